package repository

import (
	"context"

	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/domain"
)

type PendingScheduleRepository interface {
	CreateBatch(ctx context.Context, runID string, items []*domain.PendingSchedule) error
	GetByID(ctx context.Context, id string) (*domain.PendingSchedule, error)
	ListByRun(ctx context.Context, runID string) ([]*domain.PendingSchedule, error)
	Update(ctx context.Context, p *domain.PendingSchedule) error
	SetStatus(ctx context.Context, id string, status domain.PendingStatus, failureReason *string) error
}
