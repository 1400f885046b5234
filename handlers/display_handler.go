package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/robostage/arena/live"
)

// DisplayHandler exposes the control-panel surface: audience display
// mode, announcements and the field match timer.
type DisplayHandler struct {
	broadcaster *live.Broadcaster
}

func NewDisplayHandler(broadcaster *live.Broadcaster) *DisplayHandler {
	return &DisplayHandler{broadcaster: broadcaster}
}

type setDisplayInput struct {
	DisplayMode live.DisplayMode `json:"display_mode"`
	MatchID     *int             `json:"match_id"`
	Message     *string          `json:"message"`
	FieldID     *int             `json:"field_id"`
}

// SetDisplay handles POST /tournaments/{tournamentID}/display.
func (h *DisplayHandler) SetDisplay(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input setDisplayInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	settings := live.DisplaySettings{
		Mode:    input.DisplayMode,
		MatchID: input.MatchID,
		Message: input.Message,
	}
	if err := h.broadcaster.SetDisplayMode(tournamentID, input.FieldID, settings); err != nil {
		if errors.Is(err, live.ErrInvalidPayload) {
			unprocessableResponse(w, r, err)
			return
		}
		serverErrorResponse(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusAccepted, jsonResponse{"display": settings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetDisplay handles GET /tournaments/{tournamentID}/display, the pull
// side a display client uses after (re)connecting.
func (h *DisplayHandler) GetDisplay(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	settings, ok := h.broadcaster.DisplaySettingsFor(tournamentID)
	if !ok {
		settings = live.DisplaySettings{Mode: live.DisplayModeBlank}
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"display": settings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type announceInput struct {
	Message    string `json:"message"`
	DurationMs *int64 `json:"duration_ms"`
	FieldID    *int   `json:"field_id"`
}

// Announce handles POST /tournaments/{tournamentID}/announcement.
func (h *DisplayHandler) Announce(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input announceInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	announcement := live.Announcement{Message: input.Message, DurationMs: input.DurationMs}
	if err := h.broadcaster.Announce(tournamentID, input.FieldID, announcement); err != nil {
		if errors.Is(err, live.ErrInvalidPayload) {
			unprocessableResponse(w, r, err)
			return
		}
		serverErrorResponse(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusAccepted, jsonResponse{"announcement": announcement}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type timerInput struct {
	DurationMs int64 `json:"duration_ms"`
	FieldID    *int  `json:"field_id"`
}

// Timer handles POST /tournaments/{tournamentID}/timer/{action} where
// action is start, pause, resume or reset. Every action broadcasts an
// authoritative timer_update snapshot.
func (h *DisplayHandler) Timer(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	action := chi.URLParam(r, "action")

	var input timerInput
	if err := readJSON(w, r, &input); err != nil {
		// Only start needs input; pause, resume and reset may post nothing.
		if action == "start" || !errors.Is(err, errEmptyBody) {
			badRequestResponse(w, r, err)
			return
		}
	}

	switch action {
	case "start":
		if input.DurationMs <= 0 {
			badRequestResponse(w, r, fmt.Errorf("duration_ms must be positive to start a timer"))
			return
		}
		h.broadcaster.StartTimer(tournamentID, input.FieldID, time.Duration(input.DurationMs)*time.Millisecond)
	case "pause":
		h.broadcaster.PauseTimer(tournamentID, input.FieldID)
	case "resume":
		h.broadcaster.ResumeTimer(tournamentID, input.FieldID)
	case "reset":
		h.broadcaster.ResetTimer(tournamentID, input.FieldID)
	default:
		badRequestResponse(w, r, fmt.Errorf("unknown timer action %q", action))
		return
	}

	snapshot := h.broadcaster.Timer(tournamentID, input.FieldID).Snapshot()
	if err := writeJSON(w, http.StatusOK, jsonResponse{"timer": snapshot}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
