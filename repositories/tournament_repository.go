package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/robostage/arena/models"
)

var ErrTournamentNotFound = errors.New("tournament not found")

type TournamentRepository interface {
	GetByID(ctx context.Context, exec SQLExecutor, tournamentID int) (*models.Tournament, error)
	List(ctx context.Context, exec SQLExecutor) ([]*models.Tournament, error)
	ListFields(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Field, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, tournamentID int) (*models.Tournament, error) {
	executor := r.getExecutor(exec)
	var t models.Tournament
	err := executor.QueryRowContext(ctx, `
		SELECT id, name, status, start_date, end_date, banner_key
		FROM tournaments
		WHERE id = $1`, tournamentID,
	).Scan(&t.ID, &t.Name, &t.Status, &t.StartDate, &t.EndDate, &t.BannerKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, exec SQLExecutor) ([]*models.Tournament, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx, `
		SELECT id, name, status, start_date, end_date, banner_key
		FROM tournaments
		ORDER BY start_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		if err := rows.Scan(&t.ID, &t.Name, &t.Status, &t.StartDate, &t.EndDate, &t.BannerKey); err != nil {
			return nil, err
		}
		tournaments = append(tournaments, &t)
	}
	return tournaments, rows.Err()
}

func (r *postgresTournamentRepository) ListFields(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Field, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx, `
		SELECT id, tournament_id, name
		FROM fields
		WHERE tournament_id = $1
		ORDER BY id`, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := make([]*models.Field, 0)
	for rows.Next() {
		var f models.Field
		if err := rows.Scan(&f.ID, &f.TournamentID, &f.Name); err != nil {
			return nil, err
		}
		fields = append(fields, &f)
	}
	return fields, rows.Err()
}
