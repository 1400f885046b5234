package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/robostage/arena/models"
)

var ErrStageNotFound = errors.New("stage not found")

type StageRepository interface {
	GetByID(ctx context.Context, exec SQLExecutor, stageID int, withTournamentTeams bool) (*models.Stage, error)
	UpdateCurrentRound(ctx context.Context, exec SQLExecutor, stageID, round int) error
}

type postgresStageRepository struct {
	db *sql.DB
}

func NewPostgresStageRepository(db *sql.DB) StageRepository {
	return &postgresStageRepository{db: db}
}

func (r *postgresStageRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresStageRepository) GetByID(ctx context.Context, exec SQLExecutor, stageID int, withTournamentTeams bool) (*models.Stage, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_id, name, type, current_round
		FROM stages
		WHERE id = $1`

	var stage models.Stage
	err := executor.QueryRowContext(ctx, query, stageID).Scan(
		&stage.ID, &stage.TournamentID, &stage.Name, &stage.Type, &stage.CurrentRound,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStageNotFound
		}
		return nil, err
	}

	if withTournamentTeams {
		teams, err := r.listTournamentTeams(ctx, executor, stage.TournamentID)
		if err != nil {
			return nil, err
		}
		stage.TournamentTeams = teams
	}

	return &stage, nil
}

func (r *postgresStageRepository) listTournamentTeams(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Team, error) {
	query := `
		SELECT id, tournament_id, number, name, logo_key, created_at
		FROM teams
		WHERE tournament_id = $1
		ORDER BY id`

	rows, err := exec.QueryContext(ctx, query, tournamentID)
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

func (r *postgresStageRepository) UpdateCurrentRound(ctx context.Context, exec SQLExecutor, stageID, round int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE stages SET current_round = $1 WHERE id = $2`, round, stageID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrStageNotFound)
}
