package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/robostage/arena/models"
)

var ErrTeamStatsNotFound = errors.New("team stats not found")

type TeamStatsRepository interface {
	ListByStage(ctx context.Context, exec SQLExecutor, stageID int) ([]*models.TeamStats, error)
	// BatchUpsert writes the whole recomputed stats table for a stage in
	// one transaction, inserting missing (stage, team) rows and
	// overwriting existing ones.
	BatchUpsert(ctx context.Context, exec SQLExecutor, stats []*models.TeamStats) error
}

type postgresTeamStatsRepository struct {
	db *sql.DB
}

func NewPostgresTeamStatsRepository(db *sql.DB) TeamStatsRepository {
	return &postgresTeamStatsRepository{db: db}
}

func (r *postgresTeamStatsRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTeamStatsRepository) ListByStage(ctx context.Context, exec SQLExecutor, stageID int) ([]*models.TeamStats, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, stage_id, team_id, wins, losses, ties, matches_played,
		       points_scored, points_conceded, ranking_points, opponent_win_pct,
		       point_differential, updated_at
		FROM team_stats
		WHERE stage_id = $1
		ORDER BY team_id`

	rows, err := executor.QueryContext(ctx, query, stageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make([]*models.TeamStats, 0)
	for rows.Next() {
		var s models.TeamStats
		err := rows.Scan(
			&s.ID, &s.StageID, &s.TeamID, &s.Wins, &s.Losses, &s.Ties, &s.MatchesPlayed,
			&s.PointsScored, &s.PointsConceded, &s.RankingPoints, &s.OpponentWinPct,
			&s.PointDifferential, &s.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		stats = append(stats, &s)
	}
	return stats, rows.Err()
}

func (r *postgresTeamStatsRepository) BatchUpsert(ctx context.Context, exec SQLExecutor, stats []*models.TeamStats) error {
	if len(stats) == 0 {
		return nil
	}

	executor := r.getExecutor(exec)
	tx, isTx := executor.(*sql.Tx)
	ownTx := false
	if !isTx {
		var err error
		tx, err = r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("BatchUpsert failed to begin transaction: %w", err)
		}
		ownTx = true
		defer tx.Rollback()
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO team_stats
		    (stage_id, team_id, wins, losses, ties, matches_played,
		     points_scored, points_conceded, ranking_points, opponent_win_pct,
		     point_differential, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (stage_id, team_id) DO UPDATE SET
		    wins = EXCLUDED.wins,
		    losses = EXCLUDED.losses,
		    ties = EXCLUDED.ties,
		    matches_played = EXCLUDED.matches_played,
		    points_scored = EXCLUDED.points_scored,
		    points_conceded = EXCLUDED.points_conceded,
		    ranking_points = EXCLUDED.ranking_points,
		    opponent_win_pct = EXCLUDED.opponent_win_pct,
		    point_differential = EXCLUDED.point_differential,
		    updated_at = EXCLUDED.updated_at`)
	if err != nil {
		return fmt.Errorf("BatchUpsert failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, s := range stats {
		if s.UpdatedAt.IsZero() {
			s.UpdatedAt = now
		}
		_, err = stmt.ExecContext(ctx,
			s.StageID, s.TeamID, s.Wins, s.Losses, s.Ties, s.MatchesPlayed,
			s.PointsScored, s.PointsConceded, s.RankingPoints, s.OpponentWinPct,
			s.PointDifferential, s.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("BatchUpsert failed for team %d: %w", s.TeamID, err)
		}
	}

	if ownTx {
		return tx.Commit()
	}
	return nil
}
