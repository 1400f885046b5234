package models

import "time"

type TournamentStatus string

const (
	TournamentStatusSetup    TournamentStatus = "setup"
	TournamentStatusActive   TournamentStatus = "active"
	TournamentStatusFinished TournamentStatus = "finished"
)

type Tournament struct {
	ID        int              `json:"id"`
	Name      string           `json:"name"`
	Status    TournamentStatus `json:"status"`
	StartDate time.Time        `json:"start_date"`
	EndDate   time.Time        `json:"end_date"`
	BannerKey *string          `json:"-"`
	BannerURL *string          `json:"banner_url,omitempty"`

	// Optional linked data, populated by services, not stored in the row.
	Teams  []*Team  `json:"teams,omitempty"`
	Fields []*Field `json:"fields,omitempty"`
}

// Field is a physical competition field within a tournament venue.
// Live events can be scoped to a single field.
type Field struct {
	ID           int    `json:"id"`
	TournamentID int    `json:"tournament_id"`
	Name         string `json:"name"`
}
