package models

import "time"

// MatchScore is one alliance's scoresheet for a match. It is mutated
// repeatedly while the match is live and frozen once the match completes.
type MatchScore struct {
	ID            int           `json:"id"`
	MatchID       int           `json:"match_id"`
	AllianceColor AllianceColor `json:"alliance_color"`
	AutoPoints    int           `json:"auto_points"`
	DrivePoints   int           `json:"drive_points"`
	EndgameBonus  int           `json:"endgame_bonus"`
	PenaltyPoints int           `json:"penalty_points"`
	TeamCount     int           `json:"team_count"`
	Multiplier    float64       `json:"multiplier"`
	TotalPoints   int           `json:"total_points"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
