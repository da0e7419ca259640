package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TaskRepository struct {
	pool *pgxpool.Pool
}

func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

func (r *TaskRepository) Enqueue(ctx context.Context, t *domain.Task) (*domain.Task, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO tasks (kind, schedule_id, external_id, status, max_retries, run_at)
		VALUES ($1, $2, $3, 'pending', $4, $5)
		RETURNING id, kind, schedule_id, external_id, status, attempts, max_retries, run_at,
		          claimed_at, claimed_by, heartbeat_at, completed_at, last_error, created_at, updated_at`,
		t.Kind, t.ScheduleID, t.ExternalID, t.MaxRetries, t.RunAt)
	return scanTask(row)
}

// Claim uses the same FOR UPDATE SKIP LOCKED pattern as the teacher's job
// queue so concurrent workers never double-execute a task.
func (r *TaskRepository) Claim(ctx context.Context, workerID string, limit int) ([]*domain.Task, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE tasks
		SET status = 'running', claimed_at = NOW(), claimed_by = $1,
		    heartbeat_at = NOW(), attempts = attempts + 1, updated_at = NOW()
		WHERE id IN (
			SELECT id FROM tasks
			WHERE status = 'pending' AND run_at <= NOW()
			ORDER BY run_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, kind, schedule_id, external_id, status, attempts, max_retries, run_at,
		          claimed_at, claimed_by, heartbeat_at, completed_at, last_error, created_at, updated_at`,
		workerID, limit)
	if err != nil {
		return nil, fmt.Errorf("claim tasks: %w", err)
	}
	defer rows.Close()

	var out []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TaskRepository) UpdateHeartbeat(ctx context.Context, taskID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE tasks SET heartbeat_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'running'`, taskID)
	return err
}

func (r *TaskRepository) Complete(ctx context.Context, taskID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE tasks SET status = 'completed', completed_at = NOW(), updated_at = NOW()
		WHERE id = $1`, taskID)
	return err
}

func (r *TaskRepository) Fail(ctx context.Context, taskID string, lastError string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE tasks SET status = 'failed', last_error = $2, updated_at = NOW()
		WHERE id = $1`, taskID, lastError)
	return err
}

func (r *TaskRepository) Reschedule(ctx context.Context, taskID string, lastError string, retryAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE tasks
		SET status = 'pending', last_error = $2, run_at = $3,
		    claimed_at = NULL, claimed_by = NULL, heartbeat_at = NULL, updated_at = NOW()
		WHERE id = $1`, taskID, lastError, retryAt)
	return err
}

func (r *TaskRepository) RescheduleStale(ctx context.Context, staleCutoff time.Time, limit int) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks
		SET status = 'pending', last_error = 'worker timeout',
		    claimed_at = NULL, claimed_by = NULL, heartbeat_at = NULL, updated_at = NOW()
		WHERE id IN (
			SELECT id FROM tasks
			WHERE status = 'running' AND heartbeat_at < $1 AND attempts < max_retries
			ORDER BY heartbeat_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)`, staleCutoff, limit)
	return int(tag.RowsAffected()), err
}

func (r *TaskRepository) FailStale(ctx context.Context, staleCutoff time.Time, limit int) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks
		SET status = 'failed', last_error = 'worker timeout: max retries exceeded', updated_at = NOW()
		WHERE id IN (
			SELECT id FROM tasks
			WHERE status = 'running' AND heartbeat_at < $1 AND attempts >= max_retries
			ORDER BY heartbeat_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)`, staleCutoff, limit)
	return int(tag.RowsAffected()), err
}

func (r *TaskRepository) CountByStatus(ctx context.Context) (map[domain.TaskStatus]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}
	defer rows.Close()

	out := map[domain.TaskStatus]int{}
	for rows.Next() {
		var status domain.TaskStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		out[status] = count
	}
	return out, rows.Err()
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var t domain.Task
	err := row.Scan(&t.ID, &t.Kind, &t.ScheduleID, &t.ExternalID, &t.Status, &t.Attempts, &t.MaxRetries,
		&t.RunAt, &t.ClaimedAt, &t.ClaimedBy, &t.HeartbeatAt, &t.CompletedAt, &t.LastError,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}
	return &t, nil
}
