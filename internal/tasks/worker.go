package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/domain"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/metrics"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/repository"
)

// Worker polls the tasks table and runs claimed tasks concurrently, the
// same claim-heartbeat-execute shape the teacher's scheduler.Worker
// uses for its job queue, pointed at Task instead of Job.
type Worker struct {
	id           string
	tasks        repository.TaskRepository
	executor     *Executor
	pollInterval time.Duration
	concurrency  int
	logger       *slog.Logger
}

func NewWorker(tasks repository.TaskRepository, executor *Executor, pollInterval time.Duration, concurrency int, logger *slog.Logger) *Worker {
	hostname, _ := os.Hostname()
	return &Worker{
		id:           fmt.Sprintf("%s-%d", hostname, os.Getpid()),
		tasks:        tasks,
		executor:     executor,
		pollInterval: pollInterval,
		concurrency:  concurrency,
		logger:       logger.With("component", "task_worker"),
	}
}

func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("task worker started", "id", w.id, "concurrency", w.concurrency)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("task worker shut down", "id", w.id)
			return
		case <-ticker.C:
			w.processBatch(ctx)
		}
	}
}

func (w *Worker) processBatch(ctx context.Context) {
	claimed, err := w.tasks.Claim(ctx, w.id, w.concurrency)
	if err != nil {
		w.logger.Error("claim tasks", "error", err)
		return
	}
	if len(claimed) == 0 {
		return
	}
	w.logger.Info("claimed tasks", "count", len(claimed))

	var wg sync.WaitGroup
	for _, t := range claimed {
		wg.Add(1)
		go func(task *domain.Task) {
			defer wg.Done()
			w.runTask(ctx, task)
		}(t)
	}
	wg.Wait()
}

func (w *Worker) runTask(ctx context.Context, t *domain.Task) {
	heartbeatCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go w.heartbeat(heartbeatCtx, t.ID)

	start := time.Now()
	retryable, err := w.executor.Run(ctx, t)
	duration := time.Since(start)

	if err == nil {
		if cerr := w.tasks.Complete(ctx, t.ID); cerr != nil {
			w.logger.Error("complete task", "task_id", t.ID, "error", cerr)
		}
		metrics.TasksCompletedTotal.WithLabelValues(string(t.Kind), "completed").Inc()
		metrics.TaskExecutionDuration.WithLabelValues(string(t.Kind)).Observe(duration.Seconds())
		w.logger.Info("task completed", "task_id", t.ID, "kind", t.Kind, "duration", duration)
		return
	}

	if retryable && t.Attempts < t.MaxRetries {
		retryAt := time.Now().Add(RetryDelay(t.Attempts))
		if rerr := w.tasks.Reschedule(ctx, t.ID, err.Error(), retryAt); rerr != nil {
			w.logger.Error("reschedule task", "task_id", t.ID, "error", rerr)
		}
		metrics.TasksCompletedTotal.WithLabelValues(string(t.Kind), "retry").Inc()
		w.logger.Warn("task failed, scheduling retry", "task_id", t.ID, "kind", t.Kind,
			"attempt", t.Attempts, "max_retries", t.MaxRetries, "retry_at", retryAt, "error", err)
		return
	}

	if ferr := w.tasks.Fail(ctx, t.ID, err.Error()); ferr != nil {
		w.logger.Error("fail task", "task_id", t.ID, "error", ferr)
	}
	metrics.TasksCompletedTotal.WithLabelValues(string(t.Kind), "failed").Inc()
	w.logger.Error("task permanently failed", "task_id", t.ID, "kind", t.Kind, "error", err)
}

func (w *Worker) heartbeat(ctx context.Context, taskID string) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.tasks.UpdateHeartbeat(ctx, taskID); err != nil {
				w.logger.Error("heartbeat", "task_id", taskID, "error", err)
			}
		}
	}
}
