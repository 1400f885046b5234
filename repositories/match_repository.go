package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/robostage/arena/models"
)

var (
	ErrMatchNotFound    = errors.New("match not found")
	ErrAllianceNotFound = errors.New("alliance not found")
)

type MatchRepository interface {
	GetByID(ctx context.Context, exec SQLExecutor, matchID int, withAlliances bool) (*models.Match, error)
	// ListByStage returns the stage's matches ordered by match number,
	// optionally hydrated with alliances, team slots and score rows.
	ListByStage(ctx context.Context, exec SQLExecutor, stageID int, withAlliances bool) ([]*models.Match, error)
	// NextMatchNumber is 1 + the highest match number in the stage, or 1
	// for a stage with no matches yet.
	NextMatchNumber(ctx context.Context, exec SQLExecutor, stageID int) (int, error)
	// Create persists a match together with its two alliances and their
	// team slots in a single transaction.
	Create(ctx context.Context, match *models.Match) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, match *models.Match) error
	UpdateAllianceScore(ctx context.Context, exec SQLExecutor, allianceID, score int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, matchID int, withAlliances bool) (*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, stage_id, match_number, round_number, status, scheduled_at, started_at, ended_at
		FROM matches
		WHERE id = $1`

	var m models.Match
	err := executor.QueryRowContext(ctx, query, matchID).Scan(
		&m.ID, &m.StageID, &m.MatchNumber, &m.RoundNumber, &m.Status,
		&m.ScheduledAt, &m.StartedAt, &m.EndedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}

	if withAlliances {
		if err := r.hydrateAlliances(ctx, executor, []*models.Match{&m}); err != nil {
			return nil, err
		}
	}
	return &m, nil
}

func (r *postgresMatchRepository) ListByStage(ctx context.Context, exec SQLExecutor, stageID int, withAlliances bool) ([]*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, stage_id, match_number, round_number, status, scheduled_at, started_at, ended_at
		FROM matches
		WHERE stage_id = $1
		ORDER BY match_number`

	rows, err := executor.QueryContext(ctx, query, stageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		var m models.Match
		err := rows.Scan(
			&m.ID, &m.StageID, &m.MatchNumber, &m.RoundNumber, &m.Status,
			&m.ScheduledAt, &m.StartedAt, &m.EndedAt,
		)
		if err != nil {
			return nil, err
		}
		matches = append(matches, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if withAlliances && len(matches) > 0 {
		if err := r.hydrateAlliances(ctx, executor, matches); err != nil {
			return nil, err
		}
	}
	return matches, nil
}

func (r *postgresMatchRepository) hydrateAlliances(ctx context.Context, exec SQLExecutor, matches []*models.Match) error {
	byMatch := make(map[int]*models.Match, len(matches))
	matchIDs := make([]int, 0, len(matches))
	for _, m := range matches {
		byMatch[m.ID] = m
		matchIDs = append(matchIDs, m.ID)
	}

	allianceRows, err := exec.QueryContext(ctx, `
		SELECT a.id, a.match_id, a.color, a.score
		FROM alliances a
		WHERE a.match_id = ANY($1)
		ORDER BY a.match_id, a.color`, pq.Array(matchIDs))
	if err != nil {
		return err
	}
	defer allianceRows.Close()

	byAlliance := make(map[int]*models.Alliance)
	allianceIDs := make([]int, 0, 2*len(matches))
	for allianceRows.Next() {
		var a models.Alliance
		if err := allianceRows.Scan(&a.ID, &a.MatchID, &a.Color, &a.Score); err != nil {
			return err
		}
		match := byMatch[a.MatchID]
		match.Alliances = append(match.Alliances, &a)
		byAlliance[a.ID] = &a
		allianceIDs = append(allianceIDs, a.ID)
	}
	if err := allianceRows.Err(); err != nil {
		return err
	}
	if len(allianceIDs) == 0 {
		return nil
	}

	slotRows, err := exec.QueryContext(ctx, `
		SELECT id, alliance_id, team_id, station, surrogate
		FROM team_alliances
		WHERE alliance_id = ANY($1)
		ORDER BY alliance_id, station`, pq.Array(allianceIDs))
	if err != nil {
		return err
	}
	defer slotRows.Close()

	for slotRows.Next() {
		var slot models.TeamAlliance
		if err := slotRows.Scan(&slot.ID, &slot.AllianceID, &slot.TeamID, &slot.Station, &slot.Surrogate); err != nil {
			return err
		}
		alliance := byAlliance[slot.AllianceID]
		alliance.TeamSlots = append(alliance.TeamSlots, &slot)
	}
	if err := slotRows.Err(); err != nil {
		return err
	}

	scoreRows, err := exec.QueryContext(ctx, `
		SELECT id, match_id, alliance_color, auto_points, drive_points, endgame_bonus,
		       penalty_points, team_count, multiplier, total_points, updated_at
		FROM match_scores
		WHERE match_id = ANY($1)`, pq.Array(matchIDs))
	if err != nil {
		return err
	}
	defer scoreRows.Close()

	for scoreRows.Next() {
		var score models.MatchScore
		err := scoreRows.Scan(
			&score.ID, &score.MatchID, &score.AllianceColor, &score.AutoPoints,
			&score.DrivePoints, &score.EndgameBonus, &score.PenaltyPoints,
			&score.TeamCount, &score.Multiplier, &score.TotalPoints, &score.UpdatedAt,
		)
		if err != nil {
			return err
		}
		match := byMatch[score.MatchID]
		if alliance := match.Alliance(score.AllianceColor); alliance != nil {
			alliance.Scores = append(alliance.Scores, &score)
		}
	}
	return scoreRows.Err()
}

func (r *postgresMatchRepository) NextMatchNumber(ctx context.Context, exec SQLExecutor, stageID int) (int, error) {
	executor := r.getExecutor(exec)
	var max sql.NullInt64
	err := executor.QueryRowContext(ctx,
		`SELECT MAX(match_number) FROM matches WHERE stage_id = $1`, stageID).Scan(&max)
	if err != nil {
		return 0, err
	}
	return int(max.Int64) + 1, nil
}

func (r *postgresMatchRepository) Create(ctx context.Context, match *models.Match) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create match: begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO matches (stage_id, match_number, round_number, status, scheduled_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		match.StageID, match.MatchNumber, match.RoundNumber, match.Status, match.ScheduledAt,
	).Scan(&match.ID)
	if err != nil {
		return fmt.Errorf("create match %d: %w", match.MatchNumber, err)
	}

	for _, alliance := range match.Alliances {
		alliance.MatchID = match.ID
		err = tx.QueryRowContext(ctx, `
			INSERT INTO alliances (match_id, color, score)
			VALUES ($1, $2, $3)
			RETURNING id`,
			alliance.MatchID, alliance.Color, alliance.Score,
		).Scan(&alliance.ID)
		if err != nil {
			return fmt.Errorf("create %s alliance for match %d: %w", alliance.Color, match.MatchNumber, err)
		}

		for _, slot := range alliance.TeamSlots {
			slot.AllianceID = alliance.ID
			err = tx.QueryRowContext(ctx, `
				INSERT INTO team_alliances (alliance_id, team_id, station, surrogate)
				VALUES ($1, $2, $3, $4)
				RETURNING id`,
				slot.AllianceID, slot.TeamID, slot.Station, slot.Surrogate,
			).Scan(&slot.ID)
			if err != nil {
				return fmt.Errorf("create team slot (team %d) for match %d: %w", slot.TeamID, match.MatchNumber, err)
			}
		}
	}

	return tx.Commit()
}

func (r *postgresMatchRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `
		UPDATE matches SET status = $1, started_at = $2, ended_at = $3
		WHERE id = $4`,
		match.Status, match.StartedAt, match.EndedAt, match.ID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateAllianceScore(ctx context.Context, exec SQLExecutor, allianceID, score int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE alliances SET score = $1 WHERE id = $2`, score, allianceID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrAllianceNotFound)
}
