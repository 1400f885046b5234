package live

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/robostage/arena/models"
)

type EventType string

const (
	EventDisplayModeChange EventType = "display_mode_change"
	EventMatchUpdate       EventType = "match_update"
	EventMatchStateChange  EventType = "match_state_change"
	EventScoreUpdate       EventType = "score_update"
	EventTimerUpdate       EventType = "timer_update"
	EventAnnouncement      EventType = "announcement"
)

var (
	ErrUnknownEventType = errors.New("unknown event type")
	ErrInvalidPayload   = errors.New("invalid event payload")
)

// Event is the envelope for everything that crosses the live channel.
// Payload is one of the typed payload structs below, selected by Type.
// FieldID is nil for tournament-wide events.
type Event struct {
	Type         EventType   `json:"type"`
	TournamentID int         `json:"tournament_id"`
	FieldID      *int        `json:"field_id,omitempty"`
	Payload      interface{} `json:"payload"`
}

// InScope reports whether a client joined to the given tournament (and
// optionally one field) accepts this event: the event must be for the
// same tournament, and a field-scoped event is only accepted by a client
// joined to exactly that field. A client with no field joined rejects
// every field-scoped event.
func (e *Event) InScope(tournamentID int, fieldID *int) bool {
	if e.TournamentID != tournamentID {
		return false
	}
	if e.FieldID == nil {
		return true
	}
	return fieldID != nil && *fieldID == *e.FieldID
}

type DisplayMode string

const (
	DisplayModeMatch        DisplayMode = "match"
	DisplayModeTeams        DisplayMode = "teams"
	DisplayModeSchedule     DisplayMode = "schedule"
	DisplayModeRankings     DisplayMode = "rankings"
	DisplayModeAnnouncement DisplayMode = "announcement"
	DisplayModeBlank        DisplayMode = "blank"
)

func (m DisplayMode) Valid() bool {
	switch m {
	case DisplayModeMatch, DisplayModeTeams, DisplayModeSchedule,
		DisplayModeRankings, DisplayModeAnnouncement, DisplayModeBlank:
		return true
	}
	return false
}

// DisplaySettings is the full audience display state. Display mode
// changes are whole replacements: the newest event wins by arrival
// order, and clients never merge two of them.
type DisplaySettings struct {
	Mode      DisplayMode `json:"display_mode"`
	MatchID   *int        `json:"match_id,omitempty"`
	Message   *string     `json:"message,omitempty"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func (p *DisplaySettings) Validate() error {
	if !p.Mode.Valid() {
		return fmt.Errorf("%w: display mode %q", ErrInvalidPayload, p.Mode)
	}
	return nil
}

// MatchPatch is a partial update to client-held match state. Nil fields
// mean "keep what you have"; a patch never resets anything to zero.
type MatchPatch struct {
	MatchID     int                 `json:"match_id"`
	Status      *models.MatchStatus `json:"status,omitempty"`
	MatchNumber *int                `json:"match_number,omitempty"`
	RoundNumber *int                `json:"round_number,omitempty"`
	StartedAt   *time.Time          `json:"started_at,omitempty"`
	EndedAt     *time.Time          `json:"ended_at,omitempty"`
}

func (p *MatchPatch) Validate() error {
	if p.MatchID <= 0 {
		return fmt.Errorf("%w: match patch requires match_id", ErrInvalidPayload)
	}
	if p.Status != nil {
		switch *p.Status {
		case models.MatchStatusPending, models.MatchStatusInProgress, models.MatchStatusCompleted:
		default:
			return fmt.Errorf("%w: match status %q", ErrInvalidPayload, *p.Status)
		}
	}
	return nil
}

// ScorePatch is a partial update to one alliance's live scoresheet.
// Receivers recompute the total from the sub-scores they end up with;
// the Total field is advisory and never trusted over fresh sub-scores.
type ScorePatch struct {
	MatchID       int                  `json:"match_id"`
	AllianceColor models.AllianceColor `json:"alliance_color"`
	AutoPoints    *int                 `json:"auto_points,omitempty"`
	DrivePoints   *int                 `json:"drive_points,omitempty"`
	EndgameBonus  *int                 `json:"endgame_bonus,omitempty"`
	PenaltyPoints *int                 `json:"penalty_points,omitempty"`
	TeamCount     *int                 `json:"team_count,omitempty"`
	TotalPoints   *int                 `json:"total_points,omitempty"`
}

func (p *ScorePatch) Validate() error {
	if p.MatchID <= 0 {
		return fmt.Errorf("%w: score patch requires match_id", ErrInvalidPayload)
	}
	if p.AllianceColor != models.AllianceRed && p.AllianceColor != models.AllianceBlue {
		return fmt.Errorf("%w: alliance color %q", ErrInvalidPayload, p.AllianceColor)
	}
	return nil
}

// TimerState is the authoritative countdown snapshot. Durations are in
// milliseconds. Clients resynchronize fully on every push: whatever they
// counted down locally is discarded in favor of Remaining.
type TimerState struct {
	DurationMs  int64 `json:"duration_ms"`
	RemainingMs int64 `json:"remaining_ms"`
	IsRunning   bool  `json:"is_running"`
}

func (p *TimerState) Validate() error {
	if p.DurationMs < 0 || p.RemainingMs < 0 {
		return fmt.Errorf("%w: negative timer duration", ErrInvalidPayload)
	}
	return nil
}

// DefaultAnnouncementMs is how long an announcement overlay stays up
// when the event carries no duration.
const DefaultAnnouncementMs = 10000

// Announcement is a timed overlay message. It self-dismisses after
// DurationMs unless a newer announcement supersedes it first.
type Announcement struct {
	Message    string `json:"message"`
	DurationMs *int64 `json:"duration_ms,omitempty"`
}

func (p *Announcement) Validate() error {
	if p.Message == "" {
		return fmt.Errorf("%w: announcement requires a message", ErrInvalidPayload)
	}
	if p.DurationMs != nil && *p.DurationMs <= 0 {
		return fmt.Errorf("%w: announcement duration must be positive", ErrInvalidPayload)
	}
	return nil
}

// Duration returns the overlay lifetime, defaulted when unset.
func (p *Announcement) Duration() time.Duration {
	ms := int64(DefaultAnnouncementMs)
	if p.DurationMs != nil {
		ms = *p.DurationMs
	}
	return time.Duration(ms) * time.Millisecond
}

type validator interface {
	Validate() error
}

// DecodeEvent parses a wire event into its typed payload. Unknown event
// types and unknown payload fields are rejected, not passed through.
func DecodeEvent(raw []byte) (*Event, error) {
	var envelope struct {
		Type         EventType       `json:"type"`
		TournamentID int             `json:"tournament_id"`
		FieldID      *int            `json:"field_id,omitempty"`
		Payload      json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if envelope.TournamentID <= 0 {
		return nil, fmt.Errorf("%w: missing tournament_id", ErrInvalidPayload)
	}

	var payload validator
	switch envelope.Type {
	case EventDisplayModeChange:
		payload = &DisplaySettings{}
	case EventMatchUpdate, EventMatchStateChange:
		payload = &MatchPatch{}
	case EventScoreUpdate:
		payload = &ScorePatch{}
	case EventTimerUpdate:
		payload = &TimerState{}
	case EventAnnouncement:
		payload = &Announcement{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, envelope.Type)
	}

	dec := json.NewDecoder(bytes.NewReader(envelope.Payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	return &Event{
		Type:         envelope.Type,
		TournamentID: envelope.TournamentID,
		FieldID:      envelope.FieldID,
		Payload:      payload,
	}, nil
}
