package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/robostage/arena/models"
)

var ErrTeamNotFound = errors.New("team not found")

type TeamRepository interface {
	Create(ctx context.Context, exec SQLExecutor, team *models.Team) error
	GetByID(ctx context.Context, exec SQLExecutor, teamID int) (*models.Team, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Team, error)
	UpdateLogoKey(ctx context.Context, exec SQLExecutor, teamID int, logoKey *string) error
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTeamRepository) Create(ctx context.Context, exec SQLExecutor, team *models.Team) error {
	executor := r.getExecutor(exec)
	return executor.QueryRowContext(ctx, `
		INSERT INTO teams (tournament_id, number, name, logo_key)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		team.TournamentID, team.Number, team.Name, team.LogoKey,
	).Scan(&team.ID, &team.CreatedAt)
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, exec SQLExecutor, teamID int) (*models.Team, error) {
	executor := r.getExecutor(exec)
	var team models.Team
	err := executor.QueryRowContext(ctx, `
		SELECT id, tournament_id, number, name, logo_key, created_at
		FROM teams
		WHERE id = $1`, teamID,
	).Scan(&team.ID, &team.TournamentID, &team.Number, &team.Name, &team.LogoKey, &team.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return &team, nil
}

func (r *postgresTeamRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Team, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx, `
		SELECT id, tournament_id, number, name, logo_key, created_at
		FROM teams
		WHERE tournament_id = $1
		ORDER BY id`, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]*models.Team, 0)
	for rows.Next() {
		var team models.Team
		if err := rows.Scan(&team.ID, &team.TournamentID, &team.Number, &team.Name, &team.LogoKey, &team.CreatedAt); err != nil {
			return nil, err
		}
		teams = append(teams, &team)
	}
	return teams, rows.Err()
}

func (r *postgresTeamRepository) UpdateLogoKey(ctx context.Context, exec SQLExecutor, teamID int, logoKey *string) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE teams SET logo_key = $1 WHERE id = $2`, logoKey, teamID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}
