package handlers

import (
	"net/http"

	"github.com/robostage/arena/services"
)

type StageHandler struct {
	rankingService services.RankingService
	swissService   services.SwissService
	matchService   services.MatchService
}

func NewStageHandler(
	rankingService services.RankingService,
	swissService services.SwissService,
	matchService services.MatchService,
) *StageHandler {
	return &StageHandler{
		rankingService: rankingService,
		swissService:   swissService,
		matchService:   matchService,
	}
}

// RecalculateRankings handles POST /stages/{stageID}/rankings.
func (h *StageHandler) RecalculateRankings(w http.ResponseWriter, r *http.Request) {
	stageID, err := getIDFromURL(r, "stageID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.rankingService.UpdateSwissRankings(r.Context(), stageID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	rankings, err := h.rankingService.GetSwissRankings(r.Context(), stageID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"rankings": rankings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetRankings handles GET /stages/{stageID}/rankings.
func (h *StageHandler) GetRankings(w http.ResponseWriter, r *http.Request) {
	stageID, err := getIDFromURL(r, "stageID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	rankings, err := h.rankingService.GetSwissRankings(r.Context(), stageID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"rankings": rankings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type generateRoundInput struct {
	CurrentRound int `json:"current_round"`
}

// GenerateRound handles POST /stages/{stageID}/rounds.
func (h *StageHandler) GenerateRound(w http.ResponseWriter, r *http.Request) {
	stageID, err := getIDFromURL(r, "stageID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input generateRoundInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.swissService.GenerateSwissRound(r.Context(), stageID, input.CurrentRound)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListMatches handles GET /stages/{stageID}/matches.
func (h *StageHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	stageID, err := getIDFromURL(r, "stageID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.matchService.ListByStage(r.Context(), stageID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
