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

type EventRepository struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

func (r *EventRepository) GetByRefNum(ctx context.Context, refNum int) (*domain.Event, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT project_ref_num, external_id, location_mvid, project_name, event_type,
		       start_datetime, due_datetime, estimated_minutes, is_scheduled, condition
		FROM events WHERE project_ref_num = $1`, refNum)
	return scanEvent(row)
}

func (r *EventRepository) Upsert(ctx context.Context, e *domain.Event) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO events (
			project_ref_num, external_id, location_mvid, project_name, event_type,
			start_datetime, due_datetime, estimated_minutes, is_scheduled, condition
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (project_ref_num) DO UPDATE SET
			external_id      = EXCLUDED.external_id,
			location_mvid    = EXCLUDED.location_mvid,
			project_name     = EXCLUDED.project_name,
			event_type       = EXCLUDED.event_type,
			start_datetime   = EXCLUDED.start_datetime,
			due_datetime     = EXCLUDED.due_datetime,
			estimated_minutes = EXCLUDED.estimated_minutes,
			is_scheduled     = EXCLUDED.is_scheduled,
			condition        = EXCLUDED.condition`,
		e.ProjectRefNum, nullIfEmpty(e.ExternalID), nullIfEmpty(e.LocationMVID), e.ProjectName,
		e.EventType, e.StartDatetime, e.DueDatetime, e.EstimatedMinutesOrDefault(), e.IsScheduled, e.Condition)
	return err
}

func (r *EventRepository) SetCondition(ctx context.Context, refNum int, cond domain.EventCondition, scheduled bool) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE events SET condition = $2, is_scheduled = $3 WHERE project_ref_num = $1`,
		refNum, cond, scheduled)
	return err
}

func (r *EventRepository) Window(ctx context.Context, from, to time.Time) ([]*domain.Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT project_ref_num, external_id, location_mvid, project_name, event_type,
		       start_datetime, due_datetime, estimated_minutes, is_scheduled, condition
		FROM events
		WHERE NOT is_scheduled
		  AND start_datetime::date >= $1::date
		  AND start_datetime::date <= $2::date
		ORDER BY
			CASE event_type
				WHEN 'Juicer' THEN 1
				WHEN 'Digital Setup' THEN 2
				WHEN 'Digital Refresh' THEN 3
				WHEN 'Freeosk' THEN 4
				WHEN 'Digital Teardown' THEN 5
				WHEN 'Core' THEN 6
				WHEN 'Supervisor' THEN 7
				WHEN 'Digitals' THEN 8
				ELSE 9
			END ASC,
			due_datetime ASC,
			project_ref_num ASC`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("event window: %w", err)
	}
	defer rows.Close()

	var out []*domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *EventRepository) FindByEventNumber(ctx context.Context, eventNumber string, eventType domain.EventType) (*domain.Event, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT project_ref_num, external_id, location_mvid, project_name, event_type,
		       start_datetime, due_datetime, estimated_minutes, is_scheduled, condition
		FROM events
		WHERE event_type = $1
		  AND substring(project_name from '\d{6}') = $2
		LIMIT 1`, eventType, eventNumber)
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, domain.ErrEventNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	var e domain.Event
	var externalID, locationMVID *string
	err := row.Scan(&e.ProjectRefNum, &externalID, &locationMVID, &e.ProjectName, &e.EventType,
		&e.StartDatetime, &e.DueDatetime, &e.EstimatedMinutes, &e.IsScheduled, &e.Condition)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEventNotFound
		}
		return nil, fmt.Errorf("scan event: %w", err)
	}
	if externalID != nil {
		e.ExternalID = *externalID
	}
	if locationMVID != nil {
		e.LocationMVID = *locationMVID
	}
	return &e, nil
}
