package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/robostage/arena/models"
	"github.com/robostage/arena/repositories"
)

type TournamentService interface {
	// GetTournament loads a tournament with its team roster and fields,
	// the shape a display client pulls on (re)connect.
	GetTournament(ctx context.Context, tournamentID int) (*models.Tournament, error)
	List(ctx context.Context) ([]*models.Tournament, error)
}

type tournamentService struct {
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
) TournamentService {
	return &tournamentService{
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
	}
}

func (s *tournamentService) GetTournament(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, fmt.Errorf("%w: tournament %d", ErrTournamentNotFound, tournamentID)
		}
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		teams, loadErr := s.teamRepo.ListByTournament(gctx, nil, tournamentID)
		if loadErr != nil {
			return loadErr
		}
		tournament.Teams = teams
		return nil
	})
	g.Go(func() error {
		fields, loadErr := s.tournamentRepo.ListFields(gctx, nil, tournamentID)
		if loadErr != nil {
			return loadErr
		}
		tournament.Fields = fields
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load tournament %d details: %w", tournamentID, err)
	}

	return tournament, nil
}

func (s *tournamentService) List(ctx context.Context) ([]*models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	return tournaments, nil
}
