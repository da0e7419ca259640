package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EmployeeRepository struct {
	pool *pgxpool.Pool
}

func NewEmployeeRepository(pool *pgxpool.Pool) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

func (r *EmployeeRepository) GetByID(ctx context.Context, id string) (*domain.Employee, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, external_id, name, job_title, is_active
		FROM employees WHERE id = $1`, id)
	return scanEmployee(row)
}

func (r *EmployeeRepository) ListActive(ctx context.Context) ([]*domain.Employee, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, external_id, name, job_title, is_active
		FROM employees WHERE is_active ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list active employees: %w", err)
	}
	defer rows.Close()

	var out []*domain.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *EmployeeRepository) Upsert(ctx context.Context, e *domain.Employee) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO employees (id, external_id, name, job_title, is_active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			external_id = EXCLUDED.external_id,
			name        = EXCLUDED.name,
			job_title   = EXCLUDED.job_title,
			is_active   = EXCLUDED.is_active`,
		e.ID, nullIfEmpty(e.ExternalID), e.Name, e.JobTitle, e.IsActive)
	return err
}

func (r *EmployeeRepository) WeeklyAvailability(ctx context.Context, employeeID string) ([]domain.WeeklyAvailability, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT employee_id, weekday, available, window_start, window_end
		FROM employee_weekly_availability WHERE employee_id = $1 ORDER BY weekday`, employeeID)
	if err != nil {
		return nil, fmt.Errorf("weekly availability: %w", err)
	}
	defer rows.Close()

	var out []domain.WeeklyAvailability
	for rows.Next() {
		var w domain.WeeklyAvailability
		if err := rows.Scan(&w.EmployeeID, &w.Weekday, &w.Available, &w.WindowStart, &w.WindowEnd); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *EmployeeRepository) DateAvailability(ctx context.Context, employeeID, date string) (*domain.DateAvailability, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT employee_id, date, available, window_start, window_end
		FROM employee_availability WHERE employee_id = $1 AND date = $2`, employeeID, date)

	var a domain.DateAvailability
	err := row.Scan(&a.EmployeeID, &a.Date, &a.Available, &a.WindowStart, &a.WindowEnd)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("date availability: %w", err)
	}
	return &a, nil
}

func (r *EmployeeRepository) TimeOffOn(ctx context.Context, employeeID, date string) (*domain.TimeOff, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, employee_id, start_date, end_date
		FROM employee_time_off
		WHERE employee_id = $1 AND start_date <= $2 AND end_date >= $2
		LIMIT 1`, employeeID, date)

	var t domain.TimeOff
	err := row.Scan(&t.ID, &t.EmployeeID, &t.StartDate, &t.EndDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("time off: %w", err)
	}
	return &t, nil
}

func (r *EmployeeRepository) ExistingSchedulesOn(ctx context.Context, employeeID, date string) ([]domain.ScheduledEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.id, s.event_ref_num, e.event_type, s.schedule_datetime,
		       e.estimated_minutes, e.due_datetime, s.employee_id
		FROM schedules s
		JOIN events e ON e.project_ref_num = s.event_ref_num
		WHERE s.employee_id = $1 AND s.schedule_datetime::date = $2::date`,
		employeeID, date)
	if err != nil {
		return nil, fmt.Errorf("existing schedules: %w", err)
	}
	defer rows.Close()

	var out []domain.ScheduledEvent
	for rows.Next() {
		var se domain.ScheduledEvent
		if err := rows.Scan(&se.ScheduleID, &se.EventRefNum, &se.EventType,
			&se.ScheduleDatetime, &se.EstimatedMinutes, &se.DueDatetime, &se.EmployeeID); err != nil {
			return nil, err
		}
		out = append(out, se)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (*domain.Employee, error) {
	var e domain.Employee
	var externalID *string
	err := row.Scan(&e.ID, &externalID, &e.Name, &e.JobTitle, &e.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEmployeeNotFound
		}
		return nil, fmt.Errorf("scan employee: %w", err)
	}
	if externalID != nil {
		e.ExternalID = *externalID
	}
	return &e, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
