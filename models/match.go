package models

import "time"

type MatchStatus string

const (
	MatchStatusPending    MatchStatus = "pending"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusCompleted  MatchStatus = "completed"
)

type AllianceColor string

const (
	AllianceRed  AllianceColor = "red"
	AllianceBlue AllianceColor = "blue"
)

type Match struct {
	ID          int         `json:"id"`
	StageID     int         `json:"stage_id"`
	MatchNumber int         `json:"match_number"`
	RoundNumber int         `json:"round_number"`
	Status      MatchStatus `json:"status"`
	ScheduledAt *time.Time  `json:"scheduled_at,omitempty"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	EndedAt     *time.Time  `json:"ended_at,omitempty"`

	Alliances []*Alliance `json:"alliances,omitempty"`
}

// Alliance returns the match's alliance of the given color, or nil.
func (m *Match) Alliance(color AllianceColor) *Alliance {
	for _, a := range m.Alliances {
		if a.Color == color {
			return a
		}
	}
	return nil
}

type Alliance struct {
	ID      int           `json:"id"`
	MatchID int           `json:"match_id"`
	Color   AllianceColor `json:"color"`
	Score   int           `json:"score"`

	TeamSlots []*TeamAlliance `json:"team_slots,omitempty"`
	Scores    []*MatchScore   `json:"scores,omitempty"`
}

// TotalPoints sums the alliance's recorded score rows.
func (a *Alliance) TotalPoints() int {
	total := 0
	for _, s := range a.Scores {
		total += s.TotalPoints
	}
	return total
}

// TeamIDs returns the alliance's team ids in station order.
func (a *Alliance) TeamIDs() []int {
	ids := make([]int, 0, len(a.TeamSlots))
	for _, slot := range a.TeamSlots {
		ids = append(ids, slot.TeamID)
	}
	return ids
}

// TeamAlliance pins a team to a station position within an alliance.
// Surrogate teams play the match but the result does not count toward
// their standing; the flag is carried through as-is.
type TeamAlliance struct {
	ID         int  `json:"id"`
	AllianceID int  `json:"alliance_id"`
	TeamID     int  `json:"team_id"`
	Station    int  `json:"station"`
	Surrogate  bool `json:"surrogate"`
}
