package runs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/liveon/internal/common"
	"github.com/dmitrijs2005/liveon/internal/dbx"
	"github.com/dmitrijs2005/liveon/internal/server/models"
)

const runColumns = `id, user_id, state, total_photos, total_posts, error, created_at, updated_at, finished_at`

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, run *models.Run) error {
	query := `
		INSERT INTO backup_runs (id, user_id, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
	`
	if _, err := r.db.ExecContext(ctx, query, run.ID, run.UserID, string(run.State), run.CreatedAt); err != nil {
		return fmt.Errorf("error performing sql request: %v", err)
	}
	return nil
}

func (r *PostgresRepository) SetState(ctx context.Context, runID string, state models.RunState) error {
	query := `
		UPDATE backup_runs
		SET state = $2, updated_at = now()
		WHERE id = $1 AND state IN ('queued', 'running')
	`
	if _, err := r.db.ExecContext(ctx, query, runID, string(state)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Finish(ctx context.Context, runID string, state models.RunState, totalPhotos, totalPosts int, errMsg string) error {
	query := `
		UPDATE backup_runs
		SET state = $2, total_photos = $3, total_posts = $4, error = $5, updated_at = now(), finished_at = now()
		WHERE id = $1 AND (
			state IN ('queued', 'running')
			OR (state = 'abandoned' AND $2 IN ('complete', 'failed'))
		)
	`
	if _, err := r.db.ExecContext(ctx, query, runID, string(state), totalPhotos, totalPosts, errMsg); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, runID string) (*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM backup_runs WHERE id = $1`
	return r.one(ctx, query, runID)
}

func (r *PostgresRepository) LatestComplete(ctx context.Context, userID string) (*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM backup_runs
		WHERE user_id = $1 AND state = 'complete'
		ORDER BY created_at DESC
		LIMIT 1`
	return r.one(ctx, query, userID)
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM backup_runs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []*models.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) MarkAbandoned(ctx context.Context, before time.Time) (int64, error) {
	query := `
		UPDATE backup_runs
		SET state = 'abandoned', error = 'no progress before stale threshold', updated_at = now(), finished_at = now()
		WHERE state IN ('queued', 'running') AND updated_at < $1
	`
	res, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) one(ctx context.Context, query string, arg any) (*models.Run, error) {
	run, err := scanRun(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return run, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*models.Run, error) {
	run := &models.Run{}
	var state string
	var finished sql.NullTime
	if err := s.Scan(&run.ID, &run.UserID, &state, &run.TotalPhotos, &run.TotalPosts,
		&run.Error, &run.CreatedAt, &run.UpdatedAt, &finished); err != nil {
		return nil, err
	}
	run.State = models.RunState(state)
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return run, nil
}
