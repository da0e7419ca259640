package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ScheduleRepository struct {
	pool *pgxpool.Pool
}

func NewScheduleRepository(pool *pgxpool.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

func (r *ScheduleRepository) Create(ctx context.Context, s *domain.Schedule) (*domain.Schedule, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO schedules (event_ref_num, employee_id, schedule_datetime, sync_status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, event_ref_num, employee_id, schedule_datetime, sync_status,
		          last_synced, api_error_details, upstream_id, created_at, updated_at`,
		s.EventRefNum, s.EmployeeID, s.ScheduleDatetime, domain.SyncStatusPending)

	created, err := scanSchedule(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrScheduleConflict
		}
		return nil, err
	}
	return created, nil
}

func (r *ScheduleRepository) GetByID(ctx context.Context, id string) (*domain.Schedule, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, event_ref_num, employee_id, schedule_datetime, sync_status,
		       last_synced, api_error_details, upstream_id, created_at, updated_at
		FROM schedules WHERE id = $1`, id)
	return scanSchedule(row)
}

func (r *ScheduleRepository) GetByEventRefNum(ctx context.Context, refNum int) (*domain.Schedule, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, event_ref_num, employee_id, schedule_datetime, sync_status,
		       last_synced, api_error_details, upstream_id, created_at, updated_at
		FROM schedules WHERE event_ref_num = $1`, refNum)
	return scanSchedule(row)
}

func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrScheduleNotFound
	}
	return nil
}

func (r *ScheduleRepository) UpdateAssignment(ctx context.Context, id string, employeeID string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE schedules
		SET employee_id = $2, schedule_datetime = $3, sync_status = 'pending', updated_at = NOW()
		WHERE id = $1`, id, employeeID, at)
	return err
}

func (r *ScheduleRepository) MarkSyncStatus(ctx context.Context, id string, status domain.SyncStatus, errDetails *string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE schedules
		SET sync_status = $2, api_error_details = $3,
		    last_synced = CASE WHEN $2 = 'synced' THEN NOW() ELSE last_synced END,
		    updated_at = NOW()
		WHERE id = $1`, id, status, errDetails)
	return err
}

func (r *ScheduleRepository) SetUpstreamID(ctx context.Context, id string, upstreamID string) error {
	_, err := r.pool.Exec(ctx, `UPDATE schedules SET upstream_id = $2, updated_at = NOW() WHERE id = $1`, id, upstreamID)
	return err
}

func (r *ScheduleRepository) Bumpable(ctx context.Context, date string, employeeID *string) ([]domain.ScheduledEvent, error) {
	query := `
		SELECT s.id, s.event_ref_num, e.event_type, s.schedule_datetime,
		       e.estimated_minutes, e.due_datetime, s.employee_id
		FROM schedules s
		JOIN events e ON e.project_ref_num = s.event_ref_num
		WHERE s.schedule_datetime::date = $1::date`
	args := []any{date}
	if employeeID != nil {
		query += ` AND s.employee_id = $2`
		args = append(args, *employeeID)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("bumpable: %w", err)
	}
	defer rows.Close()

	var out []domain.ScheduledEvent
	for rows.Next() {
		var se domain.ScheduledEvent
		if err := rows.Scan(&se.ScheduleID, &se.EventRefNum, &se.EventType, &se.ScheduleDatetime,
			&se.EstimatedMinutes, &se.DueDatetime, &se.EmployeeID); err != nil {
			return nil, err
		}
		out = append(out, se)
	}
	return out, rows.Err()
}

func scanSchedule(row rowScanner) (*domain.Schedule, error) {
	var s domain.Schedule
	var upstreamID *string
	err := row.Scan(&s.ID, &s.EventRefNum, &s.EmployeeID, &s.ScheduleDatetime, &s.SyncStatus,
		&s.LastSynced, &s.APIErrorDetails, &upstreamID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("scan schedule: %w", err)
	}
	if upstreamID != nil {
		s.UpstreamID = *upstreamID
	}
	return &s, nil
}
