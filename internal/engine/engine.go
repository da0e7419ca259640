// Package engine is the three-phase scheduling orchestrator: it reads
// the unscheduled-event window, assigns rotation events, fills Core
// slots (bumping lower-priority Core schedules when needed), and pairs
// Supervisor events to their matching Core event, producing a full
// proposal set plus a run-history record.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/constraint"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/domain"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/repository"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/resolver"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/rotation"
)

// Config holds the process-wide scheduling parameters spec §6 names as
// configuration rather than constants.
type Config struct {
	WindowDays   int
	CoreSlots    []string // e.g. ["09:45", "10:30", "11:00", "11:30"]
	DefaultTimes map[domain.EventType]string
	Now          func() time.Time
}

func DefaultConfig() Config {
	return Config{
		WindowDays: 21,
		CoreSlots:  []string{"09:45", "10:30", "11:00", "11:30"},
		DefaultTimes: map[domain.EventType]string{
			domain.EventTypeJuicer:          "09:00",
			domain.EventTypeDigitalSetup:    "09:00",
			domain.EventTypeDigitalRefresh:  "10:00",
			domain.EventTypeFreeosk:         "10:00",
			domain.EventTypeDigitalTeardown: "15:00",
			domain.EventTypeSupervisor:      "12:00",
			domain.EventTypeOther:           "12:00",
		},
		Now: time.Now,
	}
}

type Engine struct {
	events    repository.EventRepository
	employees repository.EmployeeRepository
	schedules repository.ScheduleRepository
	pending   repository.PendingScheduleRepository
	runs      repository.RunHistoryRepository
	rotation  *rotation.Manager
	validator *constraint.Validator
	resolver  *resolver.Resolver
	cfg       Config
}

func New(
	events repository.EventRepository,
	employees repository.EmployeeRepository,
	schedules repository.ScheduleRepository,
	pending repository.PendingScheduleRepository,
	runs repository.RunHistoryRepository,
	rotationMgr *rotation.Manager,
	validator *constraint.Validator,
	resolver *resolver.Resolver,
	cfg Config,
) *Engine {
	return &Engine{
		events:    events,
		employees: employees,
		schedules: schedules,
		pending:   pending,
		runs:      runs,
		rotation:  rotationMgr,
		validator: validator,
		resolver:  resolver,
		cfg:       cfg,
	}
}

// runState holds the scheduler run's in-memory, run-scoped caches —
// per-date Core slot counters — which never cross a run boundary
// (spec §5, "process-wide state").
type runState struct {
	totalProcessed, scheduled, requiringSwaps, failed int
	slotIndex                                         map[string]int
	slot0945Used                                       map[string]bool
}

func newRunState() *runState {
	return &runState{slotIndex: map[string]int{}, slot0945Used: map[string]bool{}}
}

// Run executes one scheduling pass. Exactly one run may be in progress
// at a time; a concurrent attempt returns domain.ErrRunInProgress
// without creating a record.
func (e *Engine) Run(ctx context.Context, runType domain.RunType) (*domain.RunHistory, error) {
	run, err := e.runs.StartRun(ctx, runType)
	if err != nil {
		return nil, err
	}

	now := e.cfg.Now()
	windowEnd := now.AddDate(0, 0, e.cfg.WindowDays)

	events, err := e.events.Window(ctx, now, windowEnd)
	if err != nil {
		return e.abortRun(ctx, run, runState{}, fmt.Errorf("load event window: %w", err))
	}

	state := newRunState()
	var proposals []*domain.PendingSchedule

	for _, ev := range events {
		var (
			p   *domain.PendingSchedule
			err error
		)

		switch ev.EventType {
		case domain.EventTypeJuicer, domain.EventTypeDigitalSetup, domain.EventTypeDigitalRefresh,
			domain.EventTypeFreeosk, domain.EventTypeDigitalTeardown:
			p, err = e.phase1(ctx, ev, now)
		case domain.EventTypeCore:
			p, err = e.phase2(ctx, ev, now, state)
		case domain.EventTypeSupervisor:
			p, err = e.phase3(ctx, ev, now)
		default:
			continue
		}
		if err != nil {
			return e.abortRun(ctx, run, *state, fmt.Errorf("schedule event %d: %w", ev.ProjectRefNum, err))
		}

		proposals = append(proposals, p)
		state.totalProcessed++
		switch {
		case p.Failed():
			state.failed++
		case p.IsSwap:
			state.requiringSwaps++
		default:
			state.scheduled++
		}
	}

	if len(proposals) > 0 {
		if err := e.pending.CreateBatch(ctx, run.ID, proposals); err != nil {
			return e.abortRun(ctx, run, *state, fmt.Errorf("persist proposals: %w", err))
		}
	}

	counters := domain.RunHistory{
		TotalProcessed: state.totalProcessed,
		Scheduled:      state.scheduled,
		RequiringSwaps: state.requiringSwaps,
		Failed:         state.failed,
	}
	if err := e.runs.Finish(ctx, run.ID, domain.RunStateSuccess, counters, nil); err != nil {
		return nil, fmt.Errorf("finish run: %w", err)
	}

	run.State = domain.RunStateSuccess
	run.TotalProcessed, run.Scheduled, run.RequiringSwaps, run.Failed =
		counters.TotalProcessed, counters.Scheduled, counters.RequiringSwaps, counters.Failed
	return run, nil
}

func (e *Engine) abortRun(ctx context.Context, run *domain.RunHistory, state runState, cause error) (*domain.RunHistory, error) {
	msg := cause.Error()
	counters := domain.RunHistory{
		TotalProcessed: state.totalProcessed,
		Scheduled:      state.scheduled,
		RequiringSwaps: state.requiringSwaps,
		Failed:         state.failed,
	}
	if finishErr := e.runs.Finish(ctx, run.ID, domain.RunStateFailed, counters, &msg); finishErr != nil {
		return nil, fmt.Errorf("mark run failed (cause: %v): %w", cause, finishErr)
	}
	return nil, cause
}

func (e *Engine) assign(ev domain.Event, employeeID string, at time.Time, isSwap bool, swapReason *string) *domain.PendingSchedule {
	return e.assignSwap(ev, employeeID, at, isSwap, swapReason, nil)
}

func (e *Engine) assignSwap(ev domain.Event, employeeID string, at time.Time, isSwap bool, swapReason *string, displacedEventRefNum *int) *domain.PendingSchedule {
	empID := employeeID
	t := at
	return &domain.PendingSchedule{
		EventRefNum:          ev.ProjectRefNum,
		EmployeeID:           &empID,
		ScheduleTime:         &t,
		Status:               domain.PendingStatusProposed,
		IsSwap:               isSwap,
		SwapReason:           swapReason,
		DisplacedEventRefNum: displacedEventRefNum,
	}
}

func (e *Engine) failProposal(ev domain.Event, reason string) *domain.PendingSchedule {
	r := reason
	return &domain.PendingSchedule{
		EventRefNum:   ev.ProjectRefNum,
		Status:        domain.PendingStatusProposed,
		FailureReason: &r,
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// isoWeekday returns 0=Monday .. 6=Sunday.
func isoWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func atTime(date time.Time, hhmm string) (time.Time, error) {
	parsed, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", hhmm, err)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), parsed.Hour(), parsed.Minute(), 0, 0, date.Location()), nil
}
