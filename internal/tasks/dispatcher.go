package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/domain"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/repository"
	"github.com/robfig/cron/v3"
)

// Runner is satisfied by *engine.Engine; declared locally to avoid a
// dependency from tasks on engine's internals beyond the one method the
// periodic trigger needs.
type Runner interface {
	Run(ctx context.Context, runType domain.RunType) (*domain.RunHistory, error)
}

// Dispatcher hosts the two clock-driven triggers spec §4.7/§9 describe:
// the hourly pull_events enqueue and the periodic scheduler run. It
// uses robfig/cron rather than a bare ticker because both triggers are
// expressed as cron schedules in configuration (spec §6), not fixed
// intervals.
type Dispatcher struct {
	tasks      repository.TaskRepository
	engine     Runner
	pullCron   string
	runCron    string
	logger     *slog.Logger
	cron       *cron.Cron
}

func NewDispatcher(tasks repository.TaskRepository, engine Runner, pullCronExpr, runCronExpr string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		tasks:    tasks,
		engine:   engine,
		pullCron: pullCronExpr,
		runCron:  runCronExpr,
		logger:   logger.With("component", "dispatcher"),
	}
}

func (d *Dispatcher) Start(ctx context.Context) error {
	d.cron = cron.New()

	if _, err := d.cron.AddFunc(d.pullCron, func() { d.triggerPull(ctx) }); err != nil {
		return err
	}
	if _, err := d.cron.AddFunc(d.runCron, func() { d.triggerPeriodicRun(ctx) }); err != nil {
		return err
	}

	d.cron.Start()
	d.logger.Info("dispatcher started", "pull_cron", d.pullCron, "run_cron", d.runCron)

	<-ctx.Done()
	stopCtx := d.cron.Stop()
	<-stopCtx.Done()
	d.logger.Info("dispatcher shut down")
	return nil
}

// triggerPull enqueues an hourly pull_events task. Per spec §4.7 this
// task has no retry policy of its own — a failed pull is simply
// superseded by next tick's enqueue, so MaxRetries is zero.
func (d *Dispatcher) triggerPull(ctx context.Context) {
	if _, err := d.tasks.Enqueue(ctx, &domain.Task{
		Kind:       domain.TaskPullEvents,
		Status:     domain.TaskStatusPending,
		MaxRetries: 0,
		RunAt:      time.Now(),
	}); err != nil {
		d.logger.Error("enqueue periodic pull_events", "error", err)
	}
}

func (d *Dispatcher) triggerPeriodicRun(ctx context.Context) {
	run, err := d.engine.Run(ctx, domain.RunTypePeriodic)
	if err != nil {
		d.logger.Error("periodic scheduler run", "error", err)
		return
	}
	d.logger.Info("periodic scheduler run finished", "run_id", run.ID,
		"scheduled", run.Scheduled, "swaps", run.RequiringSwaps, "failed", run.Failed)
}
