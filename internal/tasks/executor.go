// Package tasks is the background task runner (C8, spec §4.7): a
// durable, broker-backed queue hosting the push-to-upstream and
// periodic pull-from-upstream jobs so the interactive API never blocks
// on a slow or failing Crossmark call.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/crossmark"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/domain"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/email"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/repository"
)

// Executor carries out one Task's logical effect against Crossmark and
// the domain store. It is deliberately thin: all wire encoding lives in
// internal/crossmark, all retry bookkeeping lives in the worker that
// calls it.
type Executor struct {
	client    *crossmark.Client
	schedules repository.ScheduleRepository
	events    repository.EventRepository
	employees repository.EmployeeRepository
	alerts    email.Sender
	alertTo   string
	logger    *slog.Logger
}

func NewExecutor(
	client *crossmark.Client,
	schedules repository.ScheduleRepository,
	events repository.EventRepository,
	employees repository.EmployeeRepository,
	alerts email.Sender,
	alertTo string,
	logger *slog.Logger,
) *Executor {
	return &Executor{
		client:    client,
		schedules: schedules,
		events:    events,
		employees: employees,
		alerts:    alerts,
		alertTo:   alertTo,
		logger:    logger.With("component", "task_executor"),
	}
}

// Run executes one task and reports whether it succeeded, and if not,
// whether the failure is retryable. The caller (worker) owns recording
// that outcome against the task row; Run never touches the tasks table.
func (x *Executor) Run(ctx context.Context, t *domain.Task) (retryable bool, err error) {
	switch t.Kind {
	case domain.TaskPushNew, domain.TaskPushUpdate:
		return x.runPush(ctx, t)
	case domain.TaskPushDelete:
		return x.runDelete(ctx, t)
	case domain.TaskPullEvents:
		return x.runPull(ctx)
	default:
		return false, fmt.Errorf("unknown task kind %q", t.Kind)
	}
}

// runPush handles both push_new and push_update. Per spec §5, the task
// reads the CURRENT Schedule row at execution time rather than trusting
// parameters frozen at enqueue time — the task carries only its
// ScheduleID, and the Schedule row is the source of truth.
func (x *Executor) runPush(ctx context.Context, t *domain.Task) (bool, error) {
	if t.ScheduleID == nil {
		return false, fmt.Errorf("push task missing schedule_id")
	}

	sched, err := x.schedules.GetByID(ctx, *t.ScheduleID)
	if err != nil {
		if errors.Is(err, domain.ErrScheduleNotFound) {
			// The schedule was deleted (e.g. a later swap-displacement)
			// before this task ran — nothing left to push.
			return false, nil
		}
		return true, fmt.Errorf("load schedule: %w", err)
	}

	ev, err := x.events.GetByRefNum(ctx, sched.EventRefNum)
	if err != nil {
		return true, fmt.Errorf("load event: %w", err)
	}
	emp, err := x.employees.GetByID(ctx, sched.EmployeeID)
	if err != nil {
		return true, fmt.Errorf("load employee: %w", err)
	}
	if !ev.CanPushUpstream() || !emp.CanPushUpstream() {
		// C6 is supposed to catch this before ever enqueueing a push;
		// treat it defensively as permanent rather than retry forever.
		reason := "missing required push fields at execution time"
		x.markFailed(ctx, sched.ID, reason)
		return false, errors.New(reason)
	}

	upstreamID, pushErr := x.client.PushAssignment(ctx, crossmark.PushAssignmentInput{
		RepID:            emp.ExternalID,
		MPlanID:          ev.ExternalID,
		LocationID:       ev.LocationMVID,
		Start:            sched.ScheduleDatetime,
		End:              sched.ScheduleDatetime.Add(time.Duration(ev.EstimatedMinutesOrDefault()) * time.Minute),
		PlanningOverride: true,
	})
	if pushErr != nil {
		return x.handlePushOutcome(ctx, sched.ID, pushErr)
	}

	if upstreamID != "" {
		if err := x.schedules.SetUpstreamID(ctx, sched.ID, upstreamID); err != nil {
			x.logger.ErrorContext(ctx, "set upstream id", "schedule_id", sched.ID, "error", err)
		}
	}
	if err := x.schedules.MarkSyncStatus(ctx, sched.ID, domain.SyncStatusSynced, nil); err != nil {
		return true, fmt.Errorf("mark synced: %w", err)
	}
	return false, nil
}

func (x *Executor) runDelete(ctx context.Context, t *domain.Task) (bool, error) {
	if t.ExternalID == nil {
		return false, fmt.Errorf("delete task missing external_id")
	}
	if err := x.client.DeleteAssignment(ctx, *t.ExternalID); err != nil {
		var perm *crossmark.PermanentError
		if errors.As(err, &perm) {
			return false, err
		}
		return true, err
	}
	return false, nil
}

func (x *Executor) runPull(ctx context.Context) (bool, error) {
	events, err := x.client.ListPlanningEvents(ctx)
	if err != nil {
		var perm *crossmark.PermanentError
		return !errors.As(err, &perm), fmt.Errorf("list planning events: %w", err)
	}
	for _, re := range events {
		if err := x.events.Upsert(ctx, &domain.Event{
			ExternalID:    re.ExternalID,
			LocationMVID:  re.LocationMVID,
			ProjectName:   re.ProjectName,
			StartDatetime: re.StartDatetime,
			DueDatetime:   re.DueDatetime,
		}); err != nil {
			x.logger.ErrorContext(ctx, "upsert pulled event", "external_id", re.ExternalID, "error", err)
		}
	}

	reps, err := x.client.ListAvailableReps(ctx, crossmark.Window{})
	if err != nil {
		var perm *crossmark.PermanentError
		return !errors.As(err, &perm), fmt.Errorf("list available reps: %w", err)
	}
	for _, rep := range reps {
		if err := x.employees.Upsert(ctx, &domain.Employee{
			ExternalID: rep.ExternalID,
			Name:       rep.Name,
			JobTitle:   domain.JobTitle(rep.JobTitle),
			IsActive:   true,
		}); err != nil {
			x.logger.ErrorContext(ctx, "upsert pulled rep", "external_id", rep.ExternalID, "error", err)
		}
	}
	return false, nil
}

// handlePushOutcome classifies a push failure per spec §7: transient
// errors (timeout, 5xx, auth drift) are retryable; permanent errors
// (4xx, or our own pre-check above) are not and mark the Schedule
// failed immediately.
func (x *Executor) handlePushOutcome(ctx context.Context, scheduleID string, pushErr error) (bool, error) {
	var transient *crossmark.TransientError
	if errors.As(pushErr, &transient) {
		return true, pushErr
	}
	x.markFailed(ctx, scheduleID, pushErr.Error())
	return false, pushErr
}

func (x *Executor) markFailed(ctx context.Context, scheduleID, reason string) {
	if err := x.schedules.MarkSyncStatus(ctx, scheduleID, domain.SyncStatusFailed, &reason); err != nil {
		x.logger.ErrorContext(ctx, "mark schedule failed", "schedule_id", scheduleID, "error", err)
	}
	x.alertPermanentFailure(ctx, scheduleID, reason)
}

func (x *Executor) alertPermanentFailure(ctx context.Context, scheduleID, reason string) {
	if x.alerts == nil || x.alertTo == "" {
		return
	}
	subject := fmt.Sprintf("Schedule %s failed to sync", scheduleID)
	body := fmt.Sprintf("Schedule %s permanently failed to sync with Crossmark: %s\nManual retry is required.", scheduleID, reason)
	if err := x.alerts.Send(ctx, x.alertTo, subject, body); err != nil {
		x.logger.ErrorContext(ctx, "send sync failure alert", "schedule_id", scheduleID, "error", err)
	}
}

// RetryDelay computes the nth retry delay from the deterministic
// 60s -> 120s -> 240s ladder spec §4.7 requires, using
// cenkalti/backoff/v4 with RandomizationFactor zeroed out so the
// sequence has no jitter (scenario D requires exact spacing).
func RetryDelay(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 60 * time.Second
	b.Multiplier = 2
	b.MaxInterval = 240 * time.Second
	b.RandomizationFactor = 0
	b.Reset()

	delay := b.InitialInterval
	for i := 0; i < attempt; i++ {
		delay = b.NextBackOff()
	}
	if delay > b.MaxInterval {
		delay = b.MaxInterval
	}
	return delay
}
