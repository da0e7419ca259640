package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/repository"
)

// Reaper reclaims tasks whose worker went silent (missed heartbeats),
// the same sweep the teacher's scheduler.Reaper runs over its job
// queue.
type Reaper struct {
	tasks            repository.TaskRepository
	interval         time.Duration
	heartbeatTimeout time.Duration
	logger           *slog.Logger
}

func NewReaper(tasks repository.TaskRepository, interval, heartbeatTimeout time.Duration, logger *slog.Logger) *Reaper {
	return &Reaper{
		tasks:            tasks,
		interval:         interval,
		heartbeatTimeout: heartbeatTimeout,
		logger:           logger.With("component", "task_reaper"),
	}
}

func (r *Reaper) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("task reaper started", "interval", r.interval, "heartbeat_timeout", r.heartbeatTimeout)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("task reaper shut down")
			return
		case <-ticker.C:
			r.reap(ctx)
		}
	}
}

func (r *Reaper) reap(ctx context.Context) {
	staleCutoff := time.Now().Add(-r.heartbeatTimeout)

	rescheduled, err := r.tasks.RescheduleStale(ctx, staleCutoff, 100)
	if err != nil {
		r.logger.Error("reschedule stale tasks", "error", err)
	} else if rescheduled > 0 {
		r.logger.Info("rescheduled stale tasks", "count", rescheduled)
	}

	failed, err := r.tasks.FailStale(ctx, staleCutoff, 100)
	if err != nil {
		r.logger.Error("fail stale tasks", "error", err)
	} else if failed > 0 {
		r.logger.Info("permanently failed stale tasks", "count", failed)
	}
}
