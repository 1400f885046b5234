package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robostage/arena/live"
	"github.com/robostage/arena/models"
	"github.com/robostage/arena/repositories"
	"github.com/robostage/arena/swiss"
)

// UpdateScoreInput is a partial edit of one alliance's live scoresheet.
// Nil fields keep their persisted values.
type UpdateScoreInput struct {
	AutoPoints    *int `json:"auto_points"`
	DrivePoints   *int `json:"drive_points"`
	EndgameBonus  *int `json:"endgame_bonus"`
	PenaltyPoints *int `json:"penalty_points"`
	TeamCount     *int `json:"team_count"`
}

type MatchService interface {
	ListByStage(ctx context.Context, stageID int) ([]*models.Match, error)
	GetByID(ctx context.Context, matchID int) (*models.Match, error)
	// UpdateScore merges a partial scoresheet edit, recomputes the
	// multiplier and total, persists the row and broadcasts a
	// score_update to the tournament's displays.
	UpdateScore(ctx context.Context, matchID int, color models.AllianceColor, input UpdateScoreInput) (*models.MatchScore, error)
	// SetStatus transitions the match through
	// pending -> in_progress -> completed, stamping start/end times.
	// Completing a match freezes its alliance scores and re-runs the
	// stage rankings.
	SetStatus(ctx context.Context, matchID int, status models.MatchStatus) (*models.Match, error)
}

type matchService struct {
	matchRepo   repositories.MatchRepository
	scoreRepo   repositories.MatchScoreRepository
	stageRepo   repositories.StageRepository
	rankings    RankingService
	broadcaster MatchBroadcaster
	logger      *slog.Logger
}

func NewMatchService(
	matchRepo repositories.MatchRepository,
	scoreRepo repositories.MatchScoreRepository,
	stageRepo repositories.StageRepository,
	rankings RankingService,
	broadcaster MatchBroadcaster,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		matchRepo:   matchRepo,
		scoreRepo:   scoreRepo,
		stageRepo:   stageRepo,
		rankings:    rankings,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

func (s *matchService) ListByStage(ctx context.Context, stageID int) ([]*models.Match, error) {
	matches, err := s.matchRepo.ListByStage(ctx, nil, stageID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for stage %d: %w", stageID, err)
	}
	return matches, nil
}

func (s *matchService) GetByID(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID, true)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, fmt.Errorf("%w: match %d", ErrMatchNotFound, matchID)
		}
		return nil, err
	}
	return match, nil
}

func (s *matchService) UpdateScore(ctx context.Context, matchID int, color models.AllianceColor, input UpdateScoreInput) (*models.MatchScore, error) {
	if color != models.AllianceRed && color != models.AllianceBlue {
		return nil, fmt.Errorf("%w: alliance color %q", ErrValidationFailed, color)
	}

	match, err := s.matchRepo.GetByID(ctx, nil, matchID, false)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, fmt.Errorf("%w: match %d", ErrMatchNotFound, matchID)
		}
		return nil, err
	}
	if match.Status == models.MatchStatusCompleted {
		return nil, fmt.Errorf("%w: match %d", ErrMatchAlreadyCompleted, matchID)
	}

	score, err := s.scoreRepo.GetByMatchAndColor(ctx, nil, matchID, color)
	if err != nil {
		if !errors.Is(err, repositories.ErrMatchScoreNotFound) {
			return nil, err
		}
		score = &models.MatchScore{
			MatchID:       matchID,
			AllianceColor: color,
			TeamCount:     swiss.AllianceSize,
		}
	}

	if input.AutoPoints != nil {
		score.AutoPoints = *input.AutoPoints
	}
	if input.DrivePoints != nil {
		score.DrivePoints = *input.DrivePoints
	}
	if input.EndgameBonus != nil {
		score.EndgameBonus = *input.EndgameBonus
	}
	if input.PenaltyPoints != nil {
		score.PenaltyPoints = *input.PenaltyPoints
	}
	if input.TeamCount != nil {
		score.TeamCount = *input.TeamCount
	}

	score.Multiplier = swiss.Multiplier(score.TeamCount)
	score.TotalPoints = swiss.AggregateScore(swiss.ScoreBreakdown{
		AutoPoints:    score.AutoPoints,
		DrivePoints:   score.DrivePoints,
		EndgameBonus:  score.EndgameBonus,
		PenaltyPoints: score.PenaltyPoints,
		TeamCount:     score.TeamCount,
	})
	score.UpdatedAt = time.Now()

	if err := s.scoreRepo.Upsert(ctx, nil, score); err != nil {
		return nil, fmt.Errorf("failed to persist score for match %d: %w", matchID, err)
	}

	s.broadcastScore(ctx, match, score)
	return score, nil
}

func (s *matchService) broadcastScore(ctx context.Context, match *models.Match, score *models.MatchScore) {
	if s.broadcaster == nil {
		return
	}
	stage, err := s.stageRepo.GetByID(ctx, nil, match.StageID, false)
	if err != nil {
		s.logger.Warn("failed to resolve tournament for score broadcast", slog.Int("match_id", match.ID), slog.Any("error", err))
		return
	}
	auto := score.AutoPoints
	drive := score.DrivePoints
	endgame := score.EndgameBonus
	penalties := score.PenaltyPoints
	teamCount := score.TeamCount
	total := score.TotalPoints
	err = s.broadcaster.PublishScoreUpdate(stage.TournamentID, nil, live.ScorePatch{
		MatchID:       match.ID,
		AllianceColor: score.AllianceColor,
		AutoPoints:    &auto,
		DrivePoints:   &drive,
		EndgameBonus:  &endgame,
		PenaltyPoints: &penalties,
		TeamCount:     &teamCount,
		TotalPoints:   &total,
	})
	if err != nil {
		s.logger.Warn("failed to broadcast score update", slog.Int("match_id", match.ID), slog.Any("error", err))
	}
}

func (s *matchService) SetStatus(ctx context.Context, matchID int, status models.MatchStatus) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID, true)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, fmt.Errorf("%w: match %d", ErrMatchNotFound, matchID)
		}
		return nil, err
	}

	if !validTransition(match.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusChange, match.Status, status)
	}

	now := time.Now()
	match.Status = status
	switch status {
	case models.MatchStatusInProgress:
		match.StartedAt = &now
	case models.MatchStatusCompleted:
		match.EndedAt = &now
	}

	if err := s.matchRepo.UpdateStatus(ctx, nil, match); err != nil {
		return nil, fmt.Errorf("failed to update match %d status: %w", matchID, err)
	}

	if status == models.MatchStatusCompleted {
		s.finalizeScores(ctx, match)
	}

	if s.broadcaster != nil {
		stage, err := s.stageRepo.GetByID(ctx, nil, match.StageID, false)
		if err != nil {
			s.logger.Warn("failed to resolve tournament for state broadcast", slog.Int("match_id", match.ID), slog.Any("error", err))
		} else {
			statusCopy := match.Status
			patch := live.MatchPatch{
				MatchID:   match.ID,
				Status:    &statusCopy,
				StartedAt: match.StartedAt,
				EndedAt:   match.EndedAt,
			}
			if err := s.broadcaster.PublishMatchState(stage.TournamentID, nil, patch); err != nil {
				s.logger.Warn("failed to broadcast match state", slog.Int("match_id", match.ID), slog.Any("error", err))
			}
		}
	}

	if status == models.MatchStatusCompleted {
		if err := s.rankings.UpdateSwissRankings(ctx, match.StageID); err != nil {
			s.logger.Error("failed to update rankings after match completion",
				slog.Int("stage_id", match.StageID), slog.Any("error", err))
		}
	}

	return match, nil
}

// finalizeScores copies each alliance's aggregated total onto its row
// once the match is over.
func (s *matchService) finalizeScores(ctx context.Context, match *models.Match) {
	for _, alliance := range match.Alliances {
		alliance.Score = alliance.TotalPoints()
		if err := s.matchRepo.UpdateAllianceScore(ctx, nil, alliance.ID, alliance.Score); err != nil {
			s.logger.Warn("failed to finalize alliance score",
				slog.Int("alliance_id", alliance.ID), slog.Any("error", err))
		}
	}
}

func validTransition(from, to models.MatchStatus) bool {
	switch from {
	case models.MatchStatusPending:
		return to == models.MatchStatusInProgress
	case models.MatchStatusInProgress:
		return to == models.MatchStatusCompleted
	}
	return false
}
