package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PendingScheduleRepository struct {
	pool *pgxpool.Pool
}

func NewPendingScheduleRepository(pool *pgxpool.Pool) *PendingScheduleRepository {
	return &PendingScheduleRepository{pool: pool}
}

// CreateBatch inserts every proposal the engine produced for a run in one
// transaction — spec §4.4's "a run is atomic: all or none of its
// PendingSchedule writes are visible on commit".
func (r *PendingScheduleRepository) CreateBatch(ctx context.Context, runID string, items []*domain.PendingSchedule) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, p := range items {
		_, err := tx.Exec(ctx, `
			INSERT INTO pending_schedules (
				run_id, event_ref_num, employee_id, schedule_datetime,
				status, is_swap, swap_reason, displaced_event_ref_num, failure_reason
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			runID, p.EventRefNum, p.EmployeeID, p.ScheduleTime,
			p.Status, p.IsSwap, p.SwapReason, p.DisplacedEventRefNum, p.FailureReason)
		if err != nil {
			return fmt.Errorf("insert pending schedule: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *PendingScheduleRepository) GetByID(ctx context.Context, id string) (*domain.PendingSchedule, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, run_id, event_ref_num, employee_id, schedule_datetime,
		       status, is_swap, swap_reason, displaced_event_ref_num, failure_reason, created_at, updated_at
		FROM pending_schedules WHERE id = $1`, id)
	return scanPendingSchedule(row)
}

func (r *PendingScheduleRepository) ListByRun(ctx context.Context, runID string) ([]*domain.PendingSchedule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, run_id, event_ref_num, employee_id, schedule_datetime,
		       status, is_swap, swap_reason, displaced_event_ref_num, failure_reason, created_at, updated_at
		FROM pending_schedules WHERE run_id = $1 ORDER BY event_ref_num ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("list pending schedules: %w", err)
	}
	defer rows.Close()

	var out []*domain.PendingSchedule
	for rows.Next() {
		p, err := scanPendingSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PendingScheduleRepository) Update(ctx context.Context, p *domain.PendingSchedule) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE pending_schedules
		SET employee_id = $2, schedule_datetime = $3, status = $4, updated_at = NOW()
		WHERE id = $1`, p.ID, p.EmployeeID, p.ScheduleTime, p.Status)
	return err
}

func (r *PendingScheduleRepository) SetStatus(ctx context.Context, id string, status domain.PendingStatus, failureReason *string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE pending_schedules SET status = $2, failure_reason = $3, updated_at = NOW()
		WHERE id = $1`, id, status, failureReason)
	return err
}

func scanPendingSchedule(row rowScanner) (*domain.PendingSchedule, error) {
	var p domain.PendingSchedule
	err := row.Scan(&p.ID, &p.RunID, &p.EventRefNum, &p.EmployeeID, &p.ScheduleTime,
		&p.Status, &p.IsSwap, &p.SwapReason, &p.DisplacedEventRefNum, &p.FailureReason, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPendingScheduleNotFound
		}
		return nil, fmt.Errorf("scan pending schedule: %w", err)
	}
	return &p, nil
}
