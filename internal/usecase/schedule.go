package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/constraint"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/domain"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/repository"
)

// ScheduleUsecase implements the direct Schedule mutations the internal
// consumer API exposes outside the scheduler run/approval flow (spec
// §6's `schedule`/`reschedule`/`trade`/`change_employee`/delete
// endpoints). Every mutation that sets an employee or datetime (create,
// reschedule, change_employee, trade) validates against C3 before
// touching local state, and every mutation enqueues its matching push_*
// task only after the local write succeeds, same ordering
// ProposalUsecase.approveOne uses.
type ScheduleUsecase struct {
	schedules repository.ScheduleRepository
	events    repository.EventRepository
	employees repository.EmployeeRepository
	tasks     repository.TaskRepository
	audit     repository.AuditRepository
	validator *constraint.Validator
}

func NewScheduleUsecase(
	schedules repository.ScheduleRepository,
	events repository.EventRepository,
	employees repository.EmployeeRepository,
	tasks repository.TaskRepository,
	audit repository.AuditRepository,
	validator *constraint.Validator,
) *ScheduleUsecase {
	return &ScheduleUsecase{
		schedules: schedules,
		events:    events,
		employees: employees,
		tasks:     tasks,
		audit:     audit,
		validator: validator,
	}
}

func (u *ScheduleUsecase) validate(ctx context.Context, eventRefNum int, employeeID string, at time.Time, ignoreEventRefNum int) ([]constraint.Violation, error) {
	ev, err := u.events.GetByRefNum(ctx, eventRefNum)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	emp, err := u.employees.GetByID(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("get employee: %w", err)
	}
	return u.validator.Check(ctx, constraint.Candidate{Event: *ev, Employee: *emp, At: at})
}

// Create is `POST schedule`: a direct, manual assignment of an employee
// to an event outside a scheduler run. Rejects on any hard C3 violation.
func (u *ScheduleUsecase) Create(ctx context.Context, actor string, eventRefNum int, employeeID string, at time.Time) (*domain.Schedule, error) {
	if existing, err := u.schedules.GetByEventRefNum(ctx, eventRefNum); err == nil && existing != nil {
		return nil, domain.ErrScheduleConflict
	}

	violations, err := u.validate(ctx, eventRefNum, employeeID, at, 0)
	if err != nil {
		return nil, fmt.Errorf("validate schedule: %w", err)
	}
	if constraint.HasHard(violations) {
		return nil, &HardViolationError{Violations: violations}
	}

	created, err := u.schedules.Create(ctx, &domain.Schedule{
		EventRefNum:      eventRefNum,
		EmployeeID:       employeeID,
		ScheduleDatetime: at,
		SyncStatus:       domain.SyncStatusPending,
	})
	if err != nil {
		return nil, fmt.Errorf("create schedule: %w", err)
	}
	if err := u.events.SetCondition(ctx, eventRefNum, domain.EventConditionScheduled, true); err != nil {
		return nil, fmt.Errorf("mark event scheduled: %w", err)
	}

	if err := u.enqueuePush(ctx, domain.TaskPushNew, created.ID); err != nil {
		return nil, err
	}
	u.recordAudit(ctx, actor, "schedule.create", nil, created)
	return created, nil
}

// Reschedule is `POST reschedule`: moves an existing Schedule to a new
// datetime, same employee. Enqueues push_update.
func (u *ScheduleUsecase) Reschedule(ctx context.Context, actor, scheduleID string, at time.Time) (*domain.Schedule, error) {
	before, err := u.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}

	violations, err := u.validate(ctx, before.EventRefNum, before.EmployeeID, at, before.EventRefNum)
	if err != nil {
		return nil, fmt.Errorf("validate reschedule: %w", err)
	}
	if constraint.HasHard(violations) {
		return nil, &HardViolationError{Violations: violations}
	}

	if err := u.schedules.UpdateAssignment(ctx, scheduleID, before.EmployeeID, at); err != nil {
		return nil, fmt.Errorf("update schedule: %w", err)
	}
	if err := u.schedules.MarkSyncStatus(ctx, scheduleID, domain.SyncStatusPending, nil); err != nil {
		return nil, fmt.Errorf("reset sync status: %w", err)
	}

	if err := u.enqueuePush(ctx, domain.TaskPushUpdate, scheduleID); err != nil {
		return nil, err
	}
	after, err := u.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("reload schedule: %w", err)
	}
	u.recordAudit(ctx, actor, "schedule.reschedule", before, after)
	return after, nil
}

// ChangeEmployee is `POST change_employee`: reassigns an existing
// Schedule to a different employee, same datetime. Enqueues push_update.
func (u *ScheduleUsecase) ChangeEmployee(ctx context.Context, actor, scheduleID, newEmployeeID string) (*domain.Schedule, error) {
	before, err := u.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}

	violations, err := u.validate(ctx, before.EventRefNum, newEmployeeID, before.ScheduleDatetime, before.EventRefNum)
	if err != nil {
		return nil, fmt.Errorf("validate change_employee: %w", err)
	}
	if constraint.HasHard(violations) {
		return nil, &HardViolationError{Violations: violations}
	}

	if err := u.schedules.UpdateAssignment(ctx, scheduleID, newEmployeeID, before.ScheduleDatetime); err != nil {
		return nil, fmt.Errorf("update schedule: %w", err)
	}
	if err := u.schedules.MarkSyncStatus(ctx, scheduleID, domain.SyncStatusPending, nil); err != nil {
		return nil, fmt.Errorf("reset sync status: %w", err)
	}

	if err := u.enqueuePush(ctx, domain.TaskPushUpdate, scheduleID); err != nil {
		return nil, err
	}
	after, err := u.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("reload schedule: %w", err)
	}
	u.recordAudit(ctx, actor, "schedule.change_employee", before, after)
	return after, nil
}

// Trade is `POST trade`: swaps the employees of two existing Schedules.
// Each side is re-validated against C3 with the other side's employee
// before either write happens, so a hard violation on either side
// leaves both Schedules unchanged. The two assignment updates are
// separate writes, not one transaction.
func (u *ScheduleUsecase) Trade(ctx context.Context, actor, scheduleAID, scheduleBID string) (*domain.Schedule, *domain.Schedule, error) {
	a, err := u.schedules.GetByID(ctx, scheduleAID)
	if err != nil {
		return nil, nil, fmt.Errorf("get schedule a: %w", err)
	}
	b, err := u.schedules.GetByID(ctx, scheduleBID)
	if err != nil {
		return nil, nil, fmt.Errorf("get schedule b: %w", err)
	}

	violationsA, err := u.validate(ctx, a.EventRefNum, b.EmployeeID, a.ScheduleDatetime, a.EventRefNum)
	if err != nil {
		return nil, nil, fmt.Errorf("validate trade (a): %w", err)
	}
	violationsB, err := u.validate(ctx, b.EventRefNum, a.EmployeeID, b.ScheduleDatetime, b.EventRefNum)
	if err != nil {
		return nil, nil, fmt.Errorf("validate trade (b): %w", err)
	}
	if constraint.HasHard(violationsA) {
		return nil, nil, &HardViolationError{Violations: violationsA}
	}
	if constraint.HasHard(violationsB) {
		return nil, nil, &HardViolationError{Violations: violationsB}
	}

	if err := u.schedules.UpdateAssignment(ctx, scheduleAID, b.EmployeeID, a.ScheduleDatetime); err != nil {
		return nil, nil, fmt.Errorf("update schedule a: %w", err)
	}
	if err := u.schedules.UpdateAssignment(ctx, scheduleBID, a.EmployeeID, b.ScheduleDatetime); err != nil {
		return nil, nil, fmt.Errorf("update schedule b: %w", err)
	}
	_ = u.schedules.MarkSyncStatus(ctx, scheduleAID, domain.SyncStatusPending, nil)
	_ = u.schedules.MarkSyncStatus(ctx, scheduleBID, domain.SyncStatusPending, nil)

	if err := u.enqueuePush(ctx, domain.TaskPushUpdate, scheduleAID); err != nil {
		return nil, nil, err
	}
	if err := u.enqueuePush(ctx, domain.TaskPushUpdate, scheduleBID); err != nil {
		return nil, nil, err
	}

	newA, err := u.schedules.GetByID(ctx, scheduleAID)
	if err != nil {
		return nil, nil, fmt.Errorf("reload schedule a: %w", err)
	}
	newB, err := u.schedules.GetByID(ctx, scheduleBID)
	if err != nil {
		return nil, nil, fmt.Errorf("reload schedule b: %w", err)
	}
	u.recordAudit(ctx, actor, "schedule.trade", a, newA)
	u.recordAudit(ctx, actor, "schedule.trade", b, newB)
	return newA, newB, nil
}

// Unschedule is `DELETE schedule/{id}`: removes the local Schedule,
// marks its Event back to Unstaffed, and enqueues an upstream delete if
// the assignment was ever pushed.
func (u *ScheduleUsecase) Unschedule(ctx context.Context, actor, scheduleID string) error {
	before, err := u.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return fmt.Errorf("get schedule: %w", err)
	}

	if err := u.events.SetCondition(ctx, before.EventRefNum, domain.EventConditionUnstaffed, false); err != nil {
		return fmt.Errorf("mark event unstaffed: %w", err)
	}
	if err := u.schedules.Delete(ctx, scheduleID); err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}

	if before.UpstreamID != "" {
		upstreamID := before.UpstreamID
		if _, err := u.tasks.Enqueue(ctx, &domain.Task{
			Kind:       domain.TaskPushDelete,
			ExternalID: &upstreamID,
			Status:     domain.TaskStatusPending,
			MaxRetries: 3,
			RunAt:      time.Now(),
		}); err != nil {
			return fmt.Errorf("enqueue push_delete: %w", err)
		}
	}
	u.recordAudit(ctx, actor, "schedule.unschedule", before, nil)
	return nil
}

// Retry resets a failed Schedule's sync status back to pending and
// enqueues a fresh push, per spec §4.7's "on user-initiated retry".
func (u *ScheduleUsecase) Retry(ctx context.Context, actor, scheduleID string) (*domain.Schedule, error) {
	sched, err := u.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	if sched.SyncStatus != domain.SyncStatusFailed {
		return nil, fmt.Errorf("schedule %s is not in failed sync status", scheduleID)
	}
	if err := u.schedules.MarkSyncStatus(ctx, scheduleID, domain.SyncStatusPending, nil); err != nil {
		return nil, fmt.Errorf("reset sync status: %w", err)
	}
	kind := domain.TaskPushNew
	if sched.UpstreamID != "" {
		kind = domain.TaskPushUpdate
	}
	if err := u.enqueuePush(ctx, kind, scheduleID); err != nil {
		return nil, err
	}
	after, err := u.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("reload schedule: %w", err)
	}
	u.recordAudit(ctx, actor, "schedule.retry", sched, after)
	return after, nil
}

func (u *ScheduleUsecase) enqueuePush(ctx context.Context, kind domain.TaskKind, scheduleID string) error {
	if _, err := u.tasks.Enqueue(ctx, &domain.Task{
		Kind:       kind,
		ScheduleID: &scheduleID,
		Status:     domain.TaskStatusPending,
		MaxRetries: 3,
		RunAt:      time.Now(),
	}); err != nil {
		return fmt.Errorf("enqueue %s: %w", kind, err)
	}
	return nil
}

// recordAudit is best-effort: a failure to write the audit trail never
// unwinds an already-committed mutation (spec §6: audit log is
// recommended, not required for core correctness).
func (u *ScheduleUsecase) recordAudit(ctx context.Context, actor, action string, before, after any) {
	if u.audit == nil {
		return
	}
	entry := domain.AuditEntry{Actor: actor, Action: action, CreatedAt: time.Now()}
	if before != nil {
		entry.Before, _ = json.Marshal(before)
	}
	if after != nil {
		entry.After, _ = json.Marshal(after)
	}
	if err := u.audit.Record(ctx, entry); err != nil {
		_ = err // audit failures are dropped without logging, not fatal here
	}
}
