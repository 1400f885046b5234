package models

import "time"

type Team struct {
	ID           int       `json:"id"`
	TournamentID int       `json:"tournament_id"`
	Number       string    `json:"number"`
	Name         string    `json:"name"`
	LogoKey      *string   `json:"-"`
	LogoURL      *string   `json:"logo_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
