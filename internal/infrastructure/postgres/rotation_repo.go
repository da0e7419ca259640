package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RotationRepository struct {
	pool *pgxpool.Pool
}

func NewRotationRepository(pool *pgxpool.Pool) *RotationRepository {
	return &RotationRepository{pool: pool}
}

func (r *RotationRepository) GetWeekly(ctx context.Context, weekday int, rotationType domain.RotationType) (*domain.DailyRotation, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT weekday, rotation_type, employee_id
		FROM daily_rotations WHERE weekday = $1 AND rotation_type = $2`, weekday, rotationType)

	var d domain.DailyRotation
	var employeeID *string
	if err := row.Scan(&d.Weekday, &d.RotationType, &employeeID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.DailyRotation{Weekday: weekday, RotationType: rotationType}, nil
		}
		return nil, fmt.Errorf("get weekly rotation: %w", err)
	}
	d.EmployeeID = employeeID
	return &d, nil
}

func (r *RotationRepository) SetWeekly(ctx context.Context, weekday int, rotationType domain.RotationType, employeeID string) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM employees WHERE id = $1)`, employeeID).Scan(&exists); err != nil {
		return fmt.Errorf("check employee exists: %w", err)
	}
	if !exists {
		return domain.ErrUnknownEmployee
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO daily_rotations (weekday, rotation_type, employee_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (weekday, rotation_type) DO UPDATE SET employee_id = EXCLUDED.employee_id`,
		weekday, rotationType, employeeID)
	return err
}

// SetAllWeekly writes every entry atomically — spec §4.1's "bulk writes
// are atomic" — rolling back the whole batch if any referenced employee
// does not exist.
func (r *RotationRepository) SetAllWeekly(ctx context.Context, entries []domain.DailyRotation) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, e := range entries {
		if e.EmployeeID == nil {
			continue
		}
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM employees WHERE id = $1)`, *e.EmployeeID).Scan(&exists); err != nil {
			return fmt.Errorf("check employee exists: %w", err)
		}
		if !exists {
			return fmt.Errorf("%w: %s", domain.ErrUnknownEmployee, *e.EmployeeID)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO daily_rotations (weekday, rotation_type, employee_id)
			VALUES ($1, $2, $3)
			ON CONFLICT (weekday, rotation_type) DO UPDATE SET employee_id = EXCLUDED.employee_id`,
			e.Weekday, e.RotationType, *e.EmployeeID); err != nil {
			return fmt.Errorf("set weekly rotation: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// ListWeekly returns every (weekday, rotation_type) pair in the fixed
// taxonomy, populated or not, so `GET rotations` can render a complete
// 7x2 grid without the caller guessing which slots are unset.
func (r *RotationRepository) ListWeekly(ctx context.Context) ([]domain.DailyRotation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT weekday, rotation_type, employee_id
		FROM daily_rotations
		ORDER BY rotation_type ASC, weekday ASC`)
	if err != nil {
		return nil, fmt.Errorf("list weekly rotations: %w", err)
	}
	defer rows.Close()

	set := map[[2]any]*string{}
	for rows.Next() {
		var weekday int
		var rotationType domain.RotationType
		var employeeID *string
		if err := rows.Scan(&weekday, &rotationType, &employeeID); err != nil {
			return nil, fmt.Errorf("scan weekly rotation: %w", err)
		}
		set[[2]any{weekday, rotationType}] = employeeID
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []domain.DailyRotation
	for _, rotationType := range []domain.RotationType{domain.RotationPrimaryJuicer, domain.RotationPrimaryLead} {
		for weekday := 0; weekday < 7; weekday++ {
			out = append(out, domain.DailyRotation{
				Weekday:      weekday,
				RotationType: rotationType,
				EmployeeID:   set[[2]any{weekday, rotationType}],
			})
		}
	}
	return out, nil
}

func (r *RotationRepository) GetException(ctx context.Context, date string, rotationType domain.RotationType) (*domain.ScheduleException, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, rotation_type, date, employee_id, reason
		FROM schedule_exceptions WHERE date = $1 AND rotation_type = $2`, date, rotationType)

	var e domain.ScheduleException
	err := row.Scan(&e.ID, &e.RotationType, &e.Date, &e.EmployeeID, &e.Reason)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get exception: %w", err)
	}
	return &e, nil
}

func (r *RotationRepository) AddException(ctx context.Context, e domain.ScheduleException) (*domain.ScheduleException, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM employees WHERE id = $1)`, e.EmployeeID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check employee exists: %w", err)
	}
	if !exists {
		return nil, domain.ErrUnknownEmployee
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO schedule_exceptions (rotation_type, date, employee_id, reason)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (date, rotation_type) DO UPDATE SET employee_id = EXCLUDED.employee_id, reason = EXCLUDED.reason
		RETURNING id, rotation_type, date, employee_id, reason`,
		e.RotationType, e.Date, e.EmployeeID, e.Reason)

	var created domain.ScheduleException
	if err := row.Scan(&created.ID, &created.RotationType, &created.Date, &created.EmployeeID, &created.Reason); err != nil {
		return nil, fmt.Errorf("add exception: %w", err)
	}
	return &created, nil
}

func (r *RotationRepository) DeleteException(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM schedule_exceptions WHERE id = $1`, id)
	return err
}

func (r *RotationRepository) ListActiveLeads(ctx context.Context) ([]*domain.Employee, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, external_id, name, job_title, is_active
		FROM employees
		WHERE is_active AND job_title = $1
		ORDER BY id ASC`, domain.JobTitleLeadEventSpecialist)
	if err != nil {
		return nil, fmt.Errorf("list active leads: %w", err)
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
