package repository

import (
	"context"
	"time"

	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/domain"
)

type EventRepository interface {
	GetByRefNum(ctx context.Context, refNum int) (*domain.Event, error)
	Upsert(ctx context.Context, e *domain.Event) error
	SetCondition(ctx context.Context, refNum int, cond domain.EventCondition, scheduled bool) error

	// Window returns unscheduled events whose start date falls within
	// [from, to] inclusive, ordered by (event_type_priority, urgency,
	// project_ref_num) ascending per spec §4.4.
	Window(ctx context.Context, from, to time.Time) ([]*domain.Event, error)

	// FindByEventNumber looks up Core events sharing a 6-digit event
	// number, used by C5 Phase 3 to pair Supervisor events (spec §9:
	// resolved at scheduling time, never stored as a cyclic reference).
	FindByEventNumber(ctx context.Context, eventNumber string, eventType domain.EventType) (*domain.Event, error)
}
