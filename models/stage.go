package models

type StageType string

const (
	StageTypeSwiss   StageType = "swiss"
	StageTypePlayoff StageType = "playoff"
	StageTypeFinal   StageType = "final"
)

type Stage struct {
	ID           int       `json:"id"`
	TournamentID int       `json:"tournament_id"`
	Name         string    `json:"name"`
	Type         StageType `json:"type"`
	CurrentRound int       `json:"current_round"`

	// Tournament roster, populated when the stage is loaded with teams.
	TournamentTeams []*Team `json:"tournament_teams,omitempty"`
}
