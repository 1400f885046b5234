package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robostage/arena/live"
	"github.com/robostage/arena/models"
	"github.com/robostage/arena/repositories"
	"github.com/robostage/arena/swiss"
)

// MatchBroadcaster is the slice of the live broadcaster the Swiss and
// match services publish through.
type MatchBroadcaster interface {
	PublishMatchUpdate(tournamentID int, fieldID *int, patch live.MatchPatch) error
	PublishMatchState(tournamentID int, fieldID *int, patch live.MatchPatch) error
	PublishScoreUpdate(tournamentID int, fieldID *int, patch live.ScorePatch) error
}

type SwissService interface {
	// GenerateSwissRound pairs the stage's ranked teams into a new round
	// of matches. The whole fetch-compute-persist span is exclusive per
	// stage; a second call racing on the same stage fails with
	// ErrConcurrentModification and should be retried whole.
	GenerateSwissRound(ctx context.Context, stageID, currentRound int) ([]*models.Match, error)
}

type swissService struct {
	stageRepo   repositories.StageRepository
	matchRepo   repositories.MatchRepository
	rankings    RankingService
	broadcaster MatchBroadcaster
	logger      *slog.Logger

	locks stageLocks
}

func NewSwissService(
	stageRepo repositories.StageRepository,
	matchRepo repositories.MatchRepository,
	rankings RankingService,
	broadcaster MatchBroadcaster,
	logger *slog.Logger,
) SwissService {
	return &swissService{
		stageRepo:   stageRepo,
		matchRepo:   matchRepo,
		rankings:    rankings,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// stageLocks is a keyed in-process mutex. Round generation for a stage
// reads the current match numbers and then writes new matches; two
// interleaved runs would hand out duplicate numbers and double-pair
// teams, so only one runs at a time per stage.
type stageLocks struct {
	mu     sync.Mutex
	locked map[int]bool
}

func (l *stageLocks) tryLock(stageID int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locked == nil {
		l.locked = make(map[int]bool)
	}
	if l.locked[stageID] {
		return false
	}
	l.locked[stageID] = true
	return true
}

func (l *stageLocks) unlock(stageID int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.locked, stageID)
}

func (s *swissService) GenerateSwissRound(ctx context.Context, stageID, currentRound int) ([]*models.Match, error) {
	if !s.locks.tryLock(stageID) {
		return nil, fmt.Errorf("%w: stage %d", ErrConcurrentModification, stageID)
	}
	defer s.locks.unlock(stageID)

	stage, err := s.stageRepo.GetByID(ctx, nil, stageID, false)
	if err != nil {
		if errors.Is(err, repositories.ErrStageNotFound) {
			return nil, fmt.Errorf("%w: stage %d", ErrStageNotFound, stageID)
		}
		return nil, fmt.Errorf("failed to load stage %d: %w", stageID, err)
	}

	ranked, err := s.rankings.GetSwissRankings(ctx, stageID)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		// First round ever: compute baseline stats, which also seeds
		// zero rows for the whole roster, then re-fetch.
		if err := s.rankings.UpdateSwissRankings(ctx, stageID); err != nil {
			return nil, err
		}
		if ranked, err = s.rankings.GetSwissRankings(ctx, stageID); err != nil {
			return nil, err
		}
	}
	if len(ranked) == 0 {
		return []*models.Match{}, nil
	}

	nextNumber, err := s.matchRepo.NextMatchNumber(ctx, nil, stageID)
	if err != nil {
		return nil, fmt.Errorf("failed to determine next match number for stage %d: %w", stageID, err)
	}

	roundNumber := currentRound + 1
	plans := swiss.PairTeams(ranked, roundNumber, nextNumber)

	created := make([]*models.Match, 0, len(plans))
	for _, plan := range plans {
		match := buildMatch(stageID, plan)
		if err := s.matchRepo.Create(ctx, match); err != nil {
			// Matches created earlier in this round stay committed; the
			// operator sees the partial round plus the error and can
			// regenerate from there.
			return created, fmt.Errorf("failed to create match %d for stage %d: %w", plan.MatchNumber, stageID, err)
		}
		created = append(created, match)

		if s.broadcaster != nil {
			number := match.MatchNumber
			round := match.RoundNumber
			status := match.Status
			err := s.broadcaster.PublishMatchUpdate(stage.TournamentID, nil, live.MatchPatch{
				MatchID:     match.ID,
				Status:      &status,
				MatchNumber: &number,
				RoundNumber: &round,
			})
			if err != nil {
				s.logger.Warn("failed to broadcast new match", slog.Int("match_id", match.ID), slog.Any("error", err))
			}
		}
	}

	if len(created) > 0 {
		if err := s.stageRepo.UpdateCurrentRound(ctx, nil, stageID, roundNumber); err != nil {
			s.logger.Warn("failed to advance stage round counter", slog.Int("stage_id", stageID), slog.Any("error", err))
		}
	}

	return created, nil
}

func buildMatch(stageID int, plan *swiss.MatchPlan) *models.Match {
	red := &models.Alliance{Color: models.AllianceRed}
	blue := &models.Alliance{Color: models.AllianceBlue}
	for station, teamID := range plan.RedTeams {
		red.TeamSlots = append(red.TeamSlots, &models.TeamAlliance{TeamID: teamID, Station: station + 1})
	}
	for station, teamID := range plan.BlueTeams {
		blue.TeamSlots = append(blue.TeamSlots, &models.TeamAlliance{TeamID: teamID, Station: station + 1})
	}
	return &models.Match{
		StageID:     stageID,
		MatchNumber: plan.MatchNumber,
		RoundNumber: plan.RoundNumber,
		Status:      models.MatchStatusPending,
		Alliances:   []*models.Alliance{red, blue},
	}
}
