package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/robostage/arena/models"
	"github.com/robostage/arena/repositories"
	"github.com/robostage/arena/storage"
)

type CreateTeamInput struct {
	TournamentID int    `json:"tournament_id"`
	Number       string `json:"number"`
	Name         string `json:"name"`
}

type TeamService interface {
	Create(ctx context.Context, input CreateTeamInput) (*models.Team, error)
	GetByID(ctx context.Context, teamID int) (*models.Team, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Team, error)
	// UploadLogo stores the team logo in object storage and records its
	// key; a previous logo is deleted best-effort.
	UploadLogo(ctx context.Context, teamID int, contentType string, reader io.Reader) (*models.Team, error)
}

type teamService struct {
	teamRepo repositories.TeamRepository
	uploader storage.FileUploader
	logger   *slog.Logger
}

func NewTeamService(teamRepo repositories.TeamRepository, uploader storage.FileUploader, logger *slog.Logger) TeamService {
	return &teamService{
		teamRepo: teamRepo,
		uploader: uploader,
		logger:   logger,
	}
}

func (s *teamService) Create(ctx context.Context, input CreateTeamInput) (*models.Team, error) {
	if input.TournamentID <= 0 || strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.Number) == "" {
		return nil, fmt.Errorf("%w: tournament_id, number and name are required", ErrValidationFailed)
	}
	team := &models.Team{
		TournamentID: input.TournamentID,
		Number:       strings.TrimSpace(input.Number),
		Name:         strings.TrimSpace(input.Name),
	}
	if err := s.teamRepo.Create(ctx, nil, team); err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}
	return team, nil
}

func (s *teamService) GetByID(ctx context.Context, teamID int) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, nil, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, fmt.Errorf("%w: team %d", ErrTeamNotFound, teamID)
		}
		return nil, err
	}
	s.fillLogoURL(team)
	return team, nil
}

func (s *teamService) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Team, error) {
	teams, err := s.teamRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams for tournament %d: %w", tournamentID, err)
	}
	for _, team := range teams {
		s.fillLogoURL(team)
	}
	return teams, nil
}

func (s *teamService) UploadLogo(ctx context.Context, teamID int, contentType string, reader io.Reader) (*models.Team, error) {
	if s.uploader == nil {
		return nil, ErrStorageNotConfigured
	}

	team, err := s.teamRepo.GetByID(ctx, nil, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, fmt.Errorf("%w: team %d", ErrTeamNotFound, teamID)
		}
		return nil, err
	}

	key := fmt.Sprintf("teams/%d/logo", teamID)
	result, err := s.uploader.Upload(ctx, key, contentType, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to upload logo for team %d: %w", teamID, err)
	}

	oldKey := team.LogoKey
	if err := s.teamRepo.UpdateLogoKey(ctx, nil, teamID, &result.Key); err != nil {
		return nil, fmt.Errorf("failed to record logo for team %d: %w", teamID, err)
	}
	team.LogoKey = &result.Key

	if oldKey != nil && *oldKey != result.Key {
		if err := s.uploader.Delete(ctx, *oldKey); err != nil {
			s.logger.Warn("failed to delete previous logo", slog.String("key", *oldKey), slog.Any("error", err))
		}
	}

	s.fillLogoURL(team)
	return team, nil
}

func (s *teamService) fillLogoURL(team *models.Team) {
	if team.LogoKey != nil && s.uploader != nil {
		url := s.uploader.GetPublicURL(*team.LogoKey)
		team.LogoURL = &url
	}
}
