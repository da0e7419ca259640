package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RunHistoryRepository struct {
	pool *pgxpool.Pool
}

func NewRunHistoryRepository(pool *pgxpool.Pool) *RunHistoryRepository {
	return &RunHistoryRepository{pool: pool}
}

// StartRun relies on a partial unique index:
//
//	CREATE UNIQUE INDEX one_running_run ON scheduler_run_history ((state)) WHERE state = 'running';
//
// A second concurrent INSERT with state='running' hits 23505 and is
// reported as domain.ErrRunInProgress without creating a row, matching
// spec §4.4/§5's "second concurrent start returns an error without
// creating a run record".
func (r *RunHistoryRepository) StartRun(ctx context.Context, runType domain.RunType) (*domain.RunHistory, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO scheduler_run_history (run_type, state)
		VALUES ($1, 'running')
		RETURNING id, started_at, ended_at, run_type, state,
		          total_processed, scheduled, requiring_swaps, failed, error_message`,
		runType)

	run, err := scanRunHistory(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrRunInProgress
		}
		return nil, err
	}
	return run, nil
}

func (r *RunHistoryRepository) Finish(ctx context.Context, runID string, state domain.RunState, counters domain.RunHistory, errMsg *string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE scheduler_run_history
		SET state = $2, ended_at = NOW(), total_processed = $3, scheduled = $4,
		    requiring_swaps = $5, failed = $6, error_message = $7
		WHERE id = $1 AND state = 'running'`,
		runID, state, counters.TotalProcessed, counters.Scheduled, counters.RequiringSwaps, counters.Failed, errMsg)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRunNotRunning
	}
	return nil
}

func (r *RunHistoryRepository) GetByID(ctx context.Context, id string) (*domain.RunHistory, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, started_at, ended_at, run_type, state,
		       total_processed, scheduled, requiring_swaps, failed, error_message
		FROM scheduler_run_history WHERE id = $1`, id)
	return scanRunHistory(row)
}

func (r *RunHistoryRepository) List(ctx context.Context, limit int) ([]*domain.RunHistory, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, started_at, ended_at, run_type, state,
		       total_processed, scheduled, requiring_swaps, failed, error_message
		FROM scheduler_run_history ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []*domain.RunHistory
	for rows.Next() {
		run, err := scanRunHistory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func scanRunHistory(row rowScanner) (*domain.RunHistory, error) {
	var run domain.RunHistory
	err := row.Scan(&run.ID, &run.StartedAt, &run.EndedAt, &run.RunType, &run.State,
		&run.TotalProcessed, &run.Scheduled, &run.RequiringSwaps, &run.Failed, &run.ErrorMessage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRunNotFound
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	return &run, nil
}
