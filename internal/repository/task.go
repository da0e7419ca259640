package repository

import (
	"context"
	"time"

	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/domain"
)

type TaskRepository interface {
	Enqueue(ctx context.Context, t *domain.Task) (*domain.Task, error)

	// Claim locks and returns up to limit due, pending tasks, the same
	// FOR UPDATE SKIP LOCKED pattern the teacher's job repository uses.
	Claim(ctx context.Context, workerID string, limit int) ([]*domain.Task, error)
	UpdateHeartbeat(ctx context.Context, taskID string) error
	Complete(ctx context.Context, taskID string) error
	Fail(ctx context.Context, taskID string, lastError string) error
	Reschedule(ctx context.Context, taskID string, lastError string, retryAt time.Time) error

	RescheduleStale(ctx context.Context, staleCutoff time.Time, limit int) (int, error)
	FailStale(ctx context.Context, staleCutoff time.Time, limit int) (int, error)

	CountByStatus(ctx context.Context) (map[domain.TaskStatus]int, error)
}
