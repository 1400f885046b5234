package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/robostage/arena/models"
)

var ErrMatchScoreNotFound = errors.New("match score not found")

type MatchScoreRepository interface {
	GetByMatchAndColor(ctx context.Context, exec SQLExecutor, matchID int, color models.AllianceColor) (*models.MatchScore, error)
	// Upsert writes the alliance's scoresheet, keyed by (match, color).
	// Live scoring hits this repeatedly while a match runs.
	Upsert(ctx context.Context, exec SQLExecutor, score *models.MatchScore) error
}

type postgresMatchScoreRepository struct {
	db *sql.DB
}

func NewPostgresMatchScoreRepository(db *sql.DB) MatchScoreRepository {
	return &postgresMatchScoreRepository{db: db}
}

func (r *postgresMatchScoreRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresMatchScoreRepository) GetByMatchAndColor(ctx context.Context, exec SQLExecutor, matchID int, color models.AllianceColor) (*models.MatchScore, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, match_id, alliance_color, auto_points, drive_points, endgame_bonus,
		       penalty_points, team_count, multiplier, total_points, updated_at
		FROM match_scores
		WHERE match_id = $1 AND alliance_color = $2`

	var score models.MatchScore
	err := executor.QueryRowContext(ctx, query, matchID, color).Scan(
		&score.ID, &score.MatchID, &score.AllianceColor, &score.AutoPoints,
		&score.DrivePoints, &score.EndgameBonus, &score.PenaltyPoints,
		&score.TeamCount, &score.Multiplier, &score.TotalPoints, &score.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchScoreNotFound
		}
		return nil, err
	}
	return &score, nil
}

func (r *postgresMatchScoreRepository) Upsert(ctx context.Context, exec SQLExecutor, score *models.MatchScore) error {
	executor := r.getExecutor(exec)
	if score.UpdatedAt.IsZero() {
		score.UpdatedAt = time.Now()
	}
	return executor.QueryRowContext(ctx, `
		INSERT INTO match_scores
		    (match_id, alliance_color, auto_points, drive_points, endgame_bonus,
		     penalty_points, team_count, multiplier, total_points, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (match_id, alliance_color) DO UPDATE SET
		    auto_points = EXCLUDED.auto_points,
		    drive_points = EXCLUDED.drive_points,
		    endgame_bonus = EXCLUDED.endgame_bonus,
		    penalty_points = EXCLUDED.penalty_points,
		    team_count = EXCLUDED.team_count,
		    multiplier = EXCLUDED.multiplier,
		    total_points = EXCLUDED.total_points,
		    updated_at = EXCLUDED.updated_at
		RETURNING id`,
		score.MatchID, score.AllianceColor, score.AutoPoints, score.DrivePoints,
		score.EndgameBonus, score.PenaltyPoints, score.TeamCount, score.Multiplier,
		score.TotalPoints, score.UpdatedAt,
	).Scan(&score.ID)
}
