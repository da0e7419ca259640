// Package usecase hosts the application-level workflows that sit on top
// of the domain store: reviewing and approving scheduler proposals, and
// (see schedule.go) the direct schedule mutations the internal consumer
// API exposes.
package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/constraint"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/domain"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/repository"
)

// HardViolationError reports that an edit or approval was rejected
// because the candidate triggers one or more hard constraints.
type HardViolationError struct {
	Violations []constraint.Violation
}

func (e *HardViolationError) Error() string {
	if len(e.Violations) == 0 {
		return "hard constraint violation"
	}
	return e.Violations[0].Message
}

// ProposalUsecase implements the read/review/approve workflow a
// scheduler run's output goes through before it becomes committed
// Schedules (spec §4.5).
type ProposalUsecase struct {
	runs      repository.RunHistoryRepository
	pending   repository.PendingScheduleRepository
	schedules repository.ScheduleRepository
	events    repository.EventRepository
	employees repository.EmployeeRepository
	tasks     repository.TaskRepository
	audit     repository.AuditRepository
	validator *constraint.Validator
}

func NewProposalUsecase(
	runs repository.RunHistoryRepository,
	pending repository.PendingScheduleRepository,
	schedules repository.ScheduleRepository,
	events repository.EventRepository,
	employees repository.EmployeeRepository,
	tasks repository.TaskRepository,
	audit repository.AuditRepository,
	validator *constraint.Validator,
) *ProposalUsecase {
	return &ProposalUsecase{
		runs:      runs,
		pending:   pending,
		schedules: schedules,
		events:    events,
		employees: employees,
		tasks:     tasks,
		audit:     audit,
		validator: validator,
	}
}

func (u *ProposalUsecase) ListRuns(ctx context.Context, limit int) ([]*domain.RunHistory, error) {
	runs, err := u.runs.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

func (u *ProposalUsecase) GetRun(ctx context.Context, runID string) (*domain.RunHistory, error) {
	run, err := u.runs.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ProposalCategories is list_proposals' categorized view (spec §4.5).
type ProposalCategories struct {
	NewlyScheduled []*domain.PendingSchedule
	Swaps          []*domain.PendingSchedule
	Failed         []*domain.PendingSchedule
	DailyPreview   map[string][]*domain.PendingSchedule // date (YYYY-MM-DD) -> proposals landing that day
}

func (u *ProposalUsecase) ListProposals(ctx context.Context, runID string) (*ProposalCategories, error) {
	items, err := u.pending.ListByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}

	cats := &ProposalCategories{DailyPreview: map[string][]*domain.PendingSchedule{}}
	for _, p := range items {
		switch {
		case p.Failed():
			cats.Failed = append(cats.Failed, p)
			continue
		case p.IsSwap:
			cats.Swaps = append(cats.Swaps, p)
		default:
			cats.NewlyScheduled = append(cats.NewlyScheduled, p)
		}
		date := p.ScheduleTime.Format("2006-01-02")
		cats.DailyPreview[date] = append(cats.DailyPreview[date], p)
	}
	for _, day := range cats.DailyPreview {
		sort.Slice(day, func(i, j int) bool { return day[i].ScheduleTime.Before(*day[j].ScheduleTime) })
	}
	return cats, nil
}

// EditProposal re-validates a candidate (employee, datetime) against C3
// and, if it clears every hard constraint, updates the proposal and
// marks it edited.
func (u *ProposalUsecase) EditProposal(ctx context.Context, pendingID string, newEmployeeID *string, newAt *time.Time) (*domain.PendingSchedule, error) {
	p, err := u.pending.GetByID(ctx, pendingID)
	if err != nil {
		return nil, fmt.Errorf("get pending schedule: %w", err)
	}
	if !p.Open() {
		return nil, domain.ErrPendingScheduleNotOpen
	}

	employeeID := p.EmployeeID
	if newEmployeeID != nil {
		employeeID = newEmployeeID
	}
	at := p.ScheduleTime
	if newAt != nil {
		at = newAt
	}
	if employeeID == nil || at == nil {
		return nil, fmt.Errorf("cannot edit a failed proposal without supplying both employee and datetime")
	}

	ev, err := u.events.GetByRefNum(ctx, p.EventRefNum)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	emp, err := u.employees.GetByID(ctx, *employeeID)
	if err != nil {
		return nil, fmt.Errorf("get employee: %w", err)
	}

	violations, err := u.validator.Check(ctx, constraint.Candidate{Event: *ev, Employee: *emp, At: *at})
	if err != nil {
		return nil, fmt.Errorf("validate edit: %w", err)
	}
	if constraint.HasHard(violations) {
		return nil, &HardViolationError{Violations: violations}
	}

	p.EmployeeID = employeeID
	p.ScheduleTime = at
	p.Status = domain.PendingStatusEdited
	if err := u.pending.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update pending schedule: %w", err)
	}
	return p, nil
}

// ApproveRun commits every proposed/edited PendingSchedule of a
// successful run: it creates a Schedule, soft-unschedules any swap
// displacement, and enqueues the upstream push — or, if the employee or
// event is missing the fields an upstream push requires, marks the
// proposal api_failed without ever touching Schedule/Event state.
//
// Each proposal's local writes and its enqueue are ordered so the
// enqueue only happens once those writes have succeeded; the repository
// layer has no cross-aggregate unit-of-work primitive (the teacher
// itself never composes a transaction across more than one table either
// — see PendingScheduleRepository.CreateBatch for its single-table tx
// pattern), so this is a best-effort ordering per proposal rather than
// one full-run database transaction.
func (u *ProposalUsecase) ApproveRun(ctx context.Context, runID string) (*domain.RunHistory, error) {
	run, err := u.runs.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	if run.State != domain.RunStateSuccess {
		return nil, domain.ErrRunNotReviewable
	}

	items, err := u.pending.ListByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}

	for _, p := range items {
		if p.Status != domain.PendingStatusProposed && p.Status != domain.PendingStatusEdited {
			continue
		}
		if p.Failed() {
			continue
		}
		if err := u.approveOne(ctx, p); err != nil {
			return nil, fmt.Errorf("approve proposal %s: %w", p.ID, err)
		}
	}

	return run, nil
}

func (u *ProposalUsecase) approveOne(ctx context.Context, p *domain.PendingSchedule) error {
	ev, err := u.events.GetByRefNum(ctx, p.EventRefNum)
	if err != nil {
		return fmt.Errorf("get event: %w", err)
	}
	emp, err := u.employees.GetByID(ctx, *p.EmployeeID)
	if err != nil {
		return fmt.Errorf("get employee: %w", err)
	}

	if reason := missingPushFieldReason(ev, emp); reason != "" {
		return u.pending.SetStatus(ctx, p.ID, domain.PendingStatusAPIFailed, &reason)
	}

	if p.IsSwap && p.DisplacedEventRefNum != nil {
		if err := u.softUnscheduleDisplaced(ctx, *p.DisplacedEventRefNum); err != nil {
			return fmt.Errorf("soft-unschedule displaced event %d: %w", *p.DisplacedEventRefNum, err)
		}
	}

	created, err := u.schedules.Create(ctx, &domain.Schedule{
		EventRefNum:      p.EventRefNum,
		EmployeeID:       *p.EmployeeID,
		ScheduleDatetime: *p.ScheduleTime,
		SyncStatus:       domain.SyncStatusPending,
	})
	if err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	if err := u.events.SetCondition(ctx, p.EventRefNum, domain.EventConditionScheduled, true); err != nil {
		return fmt.Errorf("mark event scheduled: %w", err)
	}

	scheduleID := created.ID
	task, err := u.tasks.Enqueue(ctx, &domain.Task{
		Kind:       domain.TaskPushNew,
		ScheduleID: &scheduleID,
		Status:     domain.TaskStatusPending,
		MaxRetries: 3,
		RunAt:      time.Now(),
	})
	if err != nil {
		return fmt.Errorf("enqueue push_new: %w", err)
	}
	_ = task

	return u.pending.SetStatus(ctx, p.ID, domain.PendingStatusAPISubmitted, nil)
}

func (u *ProposalUsecase) softUnscheduleDisplaced(ctx context.Context, displacedEventRefNum int) error {
	displaced, err := u.schedules.GetByEventRefNum(ctx, displacedEventRefNum)
	if err != nil {
		return fmt.Errorf("get displaced schedule: %w", err)
	}

	if err := u.events.SetCondition(ctx, displacedEventRefNum, domain.EventConditionUnstaffed, false); err != nil {
		return fmt.Errorf("mark displaced event unstaffed: %w", err)
	}
	if err := u.schedules.Delete(ctx, displaced.ID); err != nil {
		return fmt.Errorf("delete displaced schedule: %w", err)
	}

	if displaced.UpstreamID == "" {
		// never pushed upstream in the first place; nothing to delete remotely.
		return nil
	}
	upstreamID := displaced.UpstreamID
	_, err = u.tasks.Enqueue(ctx, &domain.Task{
		Kind:       domain.TaskPushDelete,
		ExternalID: &upstreamID,
		Status:     domain.TaskStatusPending,
		MaxRetries: 3,
		RunAt:      time.Now(),
	})
	if err != nil {
		return fmt.Errorf("enqueue push_delete: %w", err)
	}
	return nil
}

func missingPushFieldReason(ev *domain.Event, emp *domain.Employee) string {
	switch {
	case emp.ExternalID == "":
		return "Missing external_id for employee"
	case ev.ExternalID == "":
		return "Missing external_id for event"
	case ev.LocationMVID == "":
		return "Missing location_mvid for event"
	default:
		return ""
	}
}

// RejectRun transitions every still-open PendingSchedule of a run to
// rejected. It never touches Event or Schedule state (spec §4.5).
func (u *ProposalUsecase) RejectRun(ctx context.Context, runID string) error {
	items, err := u.pending.ListByRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("list proposals: %w", err)
	}
	for _, p := range items {
		if !p.Open() {
			continue
		}
		if err := u.pending.SetStatus(ctx, p.ID, domain.PendingStatusRejected, nil); err != nil {
			return fmt.Errorf("reject proposal %s: %w", p.ID, err)
		}
	}
	return nil
}
