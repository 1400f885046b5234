package swiss

import "math"

// ScoreBreakdown carries one alliance's raw sub-scores for a match.
type ScoreBreakdown struct {
	AutoPoints    int
	DrivePoints   int
	EndgameBonus  int
	PenaltyPoints int
	TeamCount     int
}

// Multiplier returns the team-count score multiplier. The table is closed:
// alliances of 1 to 4 robots scale up, any other count is neutral.
func Multiplier(teamCount int) float64 {
	switch teamCount {
	case 1:
		return 1.25
	case 2:
		return 1.5
	case 3:
		return 1.75
	case 4:
		return 2.0
	default:
		return 1.0
	}
}

// AggregateScore computes an alliance's total match score:
//
//	round((auto + drive + endgame - penalties) * multiplier)
//
// Rounding is half-up and applied once, to the final product, never to
// intermediate terms.
func AggregateScore(b ScoreBreakdown) int {
	raw := float64(b.AutoPoints+b.DrivePoints+b.EndgameBonus-b.PenaltyPoints) * Multiplier(b.TeamCount)
	return int(math.Floor(raw + 0.5))
}
