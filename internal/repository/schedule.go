package repository

import (
	"context"
	"time"

	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/domain"
)

type ScheduleRepository interface {
	Create(ctx context.Context, s *domain.Schedule) (*domain.Schedule, error)
	GetByID(ctx context.Context, id string) (*domain.Schedule, error)
	GetByEventRefNum(ctx context.Context, refNum int) (*domain.Schedule, error)
	Delete(ctx context.Context, id string) error

	UpdateAssignment(ctx context.Context, id string, employeeID string, at time.Time) error
	MarkSyncStatus(ctx context.Context, id string, status domain.SyncStatus, errDetails *string) error
	SetUpstreamID(ctx context.Context, id string, upstreamID string) error

	// Bumpable returns Schedules on date D (optionally restricted to
	// employee E) joined with their event's type/urgency inputs, for C4.
	Bumpable(ctx context.Context, date string, employeeID *string) ([]domain.ScheduledEvent, error)
}
