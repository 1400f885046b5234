package models

import "time"

// TeamStats is the per (stage, team) Swiss standing row. The whole table
// for a stage is rederived from match history on every ranking update,
// so rows never drift from the matches they summarize.
type TeamStats struct {
	ID                int       `json:"id"`
	StageID           int       `json:"stage_id"`
	TeamID            int       `json:"team_id"`
	Wins              int       `json:"wins"`
	Losses            int       `json:"losses"`
	Ties              int       `json:"ties"`
	MatchesPlayed     int       `json:"matches_played"`
	PointsScored      int       `json:"points_scored"`
	PointsConceded    int       `json:"points_conceded"`
	RankingPoints     int       `json:"ranking_points"`
	OpponentWinPct    float64   `json:"opponent_win_pct"`
	PointDifferential int       `json:"point_differential"`
	UpdatedAt         time.Time `json:"updated_at"`

	// Optional linked data, populated by services.
	Team *Team `json:"team,omitempty"`
}

// WinPct is the team's raw win percentage over its played matches.
func (s *TeamStats) WinPct() float64 {
	if s.MatchesPlayed == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.MatchesPlayed)
}
