package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/robostage/arena/models"
	"github.com/robostage/arena/repositories"
	"github.com/robostage/arena/swiss"
)

type RankingService interface {
	// UpdateSwissRankings rederives the full TeamStats table of a stage
	// from its completed matches and persists it in one batch. Roster
	// teams with no stats row yet are seeded with zeros on every call,
	// so teams added mid-stage show up immediately. Calling it twice
	// with no new matches in between writes identical rows both times.
	UpdateSwissRankings(ctx context.Context, stageID int) error
	// GetSwissRankings returns the stage's standings in ranking order:
	// ranking points, opponent win percentage, point differential,
	// matches played, all descending.
	GetSwissRankings(ctx context.Context, stageID int) ([]*models.TeamStats, error)
}

type rankingService struct {
	stageRepo repositories.StageRepository
	statsRepo repositories.TeamStatsRepository
	matchRepo repositories.MatchRepository
}

func NewRankingService(
	stageRepo repositories.StageRepository,
	statsRepo repositories.TeamStatsRepository,
	matchRepo repositories.MatchRepository,
) RankingService {
	return &rankingService{
		stageRepo: stageRepo,
		statsRepo: statsRepo,
		matchRepo: matchRepo,
	}
}

func (s *rankingService) UpdateSwissRankings(ctx context.Context, stageID int) error {
	stage, err := s.stageRepo.GetByID(ctx, nil, stageID, true)
	if err != nil {
		if errors.Is(err, repositories.ErrStageNotFound) {
			return fmt.Errorf("%w: stage %d", ErrStageNotFound, stageID)
		}
		return fmt.Errorf("failed to load stage %d: %w", stageID, err)
	}

	var (
		existing []*models.TeamStats
		matches  []*models.Match
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var loadErr error
		existing, loadErr = s.statsRepo.ListByStage(gctx, nil, stageID)
		return loadErr
	})
	g.Go(func() error {
		var loadErr error
		matches, loadErr = s.matchRepo.ListByStage(gctx, nil, stageID, true)
		return loadErr
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to load stats and matches for stage %d: %w", stageID, err)
	}

	computed := swiss.ComputeStats(stageID, stage.TournamentTeams, matches)

	// Carry existing row ids over so the upsert updates in place.
	rowIDs := make(map[int]int, len(existing))
	for _, row := range existing {
		rowIDs[row.TeamID] = row.ID
	}
	for _, row := range computed {
		row.ID = rowIDs[row.TeamID]
	}

	if err := s.statsRepo.BatchUpsert(ctx, nil, computed); err != nil {
		return fmt.Errorf("failed to persist rankings for stage %d: %w", stageID, err)
	}
	return nil
}

func (s *rankingService) GetSwissRankings(ctx context.Context, stageID int) ([]*models.TeamStats, error) {
	if _, err := s.stageRepo.GetByID(ctx, nil, stageID, false); err != nil {
		if errors.Is(err, repositories.ErrStageNotFound) {
			return nil, fmt.Errorf("%w: stage %d", ErrStageNotFound, stageID)
		}
		return nil, fmt.Errorf("failed to load stage %d: %w", stageID, err)
	}

	stats, err := s.statsRepo.ListByStage(ctx, nil, stageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rankings for stage %d: %w", stageID, err)
	}
	swiss.SortStats(stats)
	return stats, nil
}
