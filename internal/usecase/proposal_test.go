package usecase_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/constraint"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/domain"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/repository"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/usecase"
)

type fakeRunRepo struct {
	run *domain.RunHistory
}

func (f *fakeRunRepo) StartRun(_ context.Context, t domain.RunType) (*domain.RunHistory, error) {
	return f.run, nil
}
func (f *fakeRunRepo) Finish(_ context.Context, id string, s domain.RunState, c domain.RunHistory, e *string) error {
	return nil
}
func (f *fakeRunRepo) GetByID(_ context.Context, id string) (*domain.RunHistory, error) {
	if f.run == nil || f.run.ID != id {
		return nil, domain.ErrRunNotFound
	}
	return f.run, nil
}
func (f *fakeRunRepo) List(_ context.Context, limit int) ([]*domain.RunHistory, error) {
	return []*domain.RunHistory{f.run}, nil
}

type fakePendingRepo struct {
	items map[string]*domain.PendingSchedule
}

func newFakePendingRepo(items ...*domain.PendingSchedule) *fakePendingRepo {
	m := map[string]*domain.PendingSchedule{}
	for _, p := range items {
		m[p.ID] = p
	}
	return &fakePendingRepo{items: m}
}
func (f *fakePendingRepo) CreateBatch(_ context.Context, runID string, items []*domain.PendingSchedule) error {
	return nil
}
func (f *fakePendingRepo) GetByID(_ context.Context, id string) (*domain.PendingSchedule, error) {
	if p, ok := f.items[id]; ok {
		return p, nil
	}
	return nil, domain.ErrPendingScheduleNotFound
}
func (f *fakePendingRepo) ListByRun(_ context.Context, runID string) ([]*domain.PendingSchedule, error) {
	var out []*domain.PendingSchedule
	for _, p := range f.items {
		if p.RunID == runID {
			out = append(out, p)
		}
	}
	return out, nil
}
func (f *fakePendingRepo) Update(_ context.Context, p *domain.PendingSchedule) error {
	f.items[p.ID] = p
	return nil
}
func (f *fakePendingRepo) SetStatus(_ context.Context, id string, status domain.PendingStatus, reason *string) error {
	p, ok := f.items[id]
	if !ok {
		return domain.ErrPendingScheduleNotFound
	}
	p.Status = status
	p.FailureReason = reason
	return nil
}

type fakeScheduleRepo2 struct {
	byEventRef map[int]*domain.Schedule
	nextID     int
	deleted    []string
}

func newFakeScheduleRepo2(existing ...*domain.Schedule) *fakeScheduleRepo2 {
	m := map[int]*domain.Schedule{}
	for _, s := range existing {
		m[s.EventRefNum] = s
	}
	return &fakeScheduleRepo2{byEventRef: m}
}
func (f *fakeScheduleRepo2) Create(_ context.Context, s *domain.Schedule) (*domain.Schedule, error) {
	f.nextID++
	created := *s
	created.ID = fmt.Sprintf("sched-%d", f.nextID)
	f.byEventRef[created.EventRefNum] = &created
	return &created, nil
}
func (f *fakeScheduleRepo2) GetByID(_ context.Context, id string) (*domain.Schedule, error) {
	for _, s := range f.byEventRef {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, domain.ErrScheduleNotFound
}
func (f *fakeScheduleRepo2) GetByEventRefNum(_ context.Context, refNum int) (*domain.Schedule, error) {
	if s, ok := f.byEventRef[refNum]; ok {
		return s, nil
	}
	return nil, domain.ErrScheduleNotFound
}
func (f *fakeScheduleRepo2) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	for k, s := range f.byEventRef {
		if s.ID == id {
			delete(f.byEventRef, k)
		}
	}
	return nil
}
func (f *fakeScheduleRepo2) UpdateAssignment(_ context.Context, id, employeeID string, at time.Time) error {
	return nil
}
func (f *fakeScheduleRepo2) MarkSyncStatus(_ context.Context, id string, s domain.SyncStatus, e *string) error {
	return nil
}
func (f *fakeScheduleRepo2) SetUpstreamID(_ context.Context, id, upstreamID string) error { return nil }
func (f *fakeScheduleRepo2) Bumpable(_ context.Context, date string, employeeID *string) ([]domain.ScheduledEvent, error) {
	return nil, nil
}

type fakeEventRepo2 struct {
	byRef map[int]*domain.Event
}

func newFakeEventRepo2(events ...*domain.Event) *fakeEventRepo2 {
	m := map[int]*domain.Event{}
	for _, e := range events {
		m[e.ProjectRefNum] = e
	}
	return &fakeEventRepo2{byRef: m}
}
func (f *fakeEventRepo2) GetByRefNum(_ context.Context, refNum int) (*domain.Event, error) {
	if e, ok := f.byRef[refNum]; ok {
		return e, nil
	}
	return nil, domain.ErrEventNotFound
}
func (f *fakeEventRepo2) Upsert(_ context.Context, e *domain.Event) error { return nil }
func (f *fakeEventRepo2) SetCondition(_ context.Context, refNum int, cond domain.EventCondition, scheduled bool) error {
	if e, ok := f.byRef[refNum]; ok {
		e.Condition = cond
		e.IsScheduled = scheduled
	}
	return nil
}
func (f *fakeEventRepo2) Window(_ context.Context, from, to time.Time) ([]*domain.Event, error) {
	return nil, nil
}
func (f *fakeEventRepo2) FindByEventNumber(_ context.Context, n string, t domain.EventType) (*domain.Event, error) {
	return nil, nil
}

type fakeEmployeeRepo2 struct {
	byID map[string]*domain.Employee
}

func newFakeEmployeeRepo2(employees ...*domain.Employee) *fakeEmployeeRepo2 {
	m := map[string]*domain.Employee{}
	for _, e := range employees {
		m[e.ID] = e
	}
	return &fakeEmployeeRepo2{byID: m}
}
func (f *fakeEmployeeRepo2) GetByID(_ context.Context, id string) (*domain.Employee, error) {
	if e, ok := f.byID[id]; ok {
		return e, nil
	}
	return nil, domain.ErrEmployeeNotFound
}
func (f *fakeEmployeeRepo2) ListActive(_ context.Context) ([]*domain.Employee, error) { return nil, nil }
func (f *fakeEmployeeRepo2) Upsert(_ context.Context, e *domain.Employee) error       { return nil }
func (f *fakeEmployeeRepo2) WeeklyAvailability(_ context.Context, id string) ([]domain.WeeklyAvailability, error) {
	return nil, nil
}
func (f *fakeEmployeeRepo2) DateAvailability(_ context.Context, id, date string) (*domain.DateAvailability, error) {
	return nil, nil
}
func (f *fakeEmployeeRepo2) TimeOffOn(_ context.Context, id, date string) (*domain.TimeOff, error) {
	return nil, nil
}
func (f *fakeEmployeeRepo2) ExistingSchedulesOn(_ context.Context, id, date string) ([]domain.ScheduledEvent, error) {
	return nil, nil
}

type fakeTaskRepo struct {
	enqueued []*domain.Task
}

func (f *fakeTaskRepo) Enqueue(_ context.Context, t *domain.Task) (*domain.Task, error) {
	copied := *t
	copied.ID = fmt.Sprintf("task-%d", len(f.enqueued)+1)
	f.enqueued = append(f.enqueued, &copied)
	return &copied, nil
}
func (f *fakeTaskRepo) Claim(_ context.Context, workerID string, limit int) ([]*domain.Task, error) {
	return nil, nil
}
func (f *fakeTaskRepo) UpdateHeartbeat(_ context.Context, id string) error      { return nil }
func (f *fakeTaskRepo) Complete(_ context.Context, id string) error            { return nil }
func (f *fakeTaskRepo) Fail(_ context.Context, id, lastErr string) error       { return nil }
func (f *fakeTaskRepo) Reschedule(_ context.Context, id, lastErr string, at time.Time) error {
	return nil
}
func (f *fakeTaskRepo) RescheduleStale(_ context.Context, cutoff time.Time, limit int) (int, error) {
	return 0, nil
}
func (f *fakeTaskRepo) FailStale(_ context.Context, cutoff time.Time, limit int) (int, error) {
	return 0, nil
}
func (f *fakeTaskRepo) CountByStatus(_ context.Context) (map[domain.TaskStatus]int, error) {
	return nil, nil
}

type fakeAuditRepo struct{}

func (fakeAuditRepo) Record(_ context.Context, e domain.AuditEntry) error { return nil }

func strPtr(s string) *string { return &s }
func timePtr(t time.Time) *time.Time { return &t }

func TestApproveRun_HappyPath_CreatesScheduleAndEnqueuesPushNew(t *testing.T) {
	emp := &domain.Employee{ID: "JB1", ExternalID: "42", Name: "Juicer One", IsActive: true}
	ev := &domain.Event{ProjectRefNum: 1, ExternalID: "E1", LocationMVID: "L1"}
	at := time.Date(2025, 10, 6, 9, 0, 0, 0, time.UTC)
	p := &domain.PendingSchedule{ID: "p1", RunID: "run-1", EventRefNum: 1, EmployeeID: strPtr("JB1"), ScheduleTime: timePtr(at), Status: domain.PendingStatusProposed}

	runs := &fakeRunRepo{run: &domain.RunHistory{ID: "run-1", State: domain.RunStateSuccess}}
	pending := newFakePendingRepo(p)
	schedules := newFakeScheduleRepo2()
	events := newFakeEventRepo2(ev)
	employees := newFakeEmployeeRepo2(emp)
	tasks := &fakeTaskRepo{}
	validator := constraint.New(employees, constraint.DefaultOptions())

	u := usecase.NewProposalUsecase(runs, pending, schedules, events, employees, tasks, fakeAuditRepo{}, validator)

	_, err := u.ApproveRun(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.Status != domain.PendingStatusAPISubmitted {
		t.Errorf("want api_submitted, got %s", p.Status)
	}
	if len(tasks.enqueued) != 1 || tasks.enqueued[0].Kind != domain.TaskPushNew {
		t.Fatalf("want one push_new task enqueued, got %+v", tasks.enqueued)
	}
	if _, err := schedules.GetByEventRefNum(context.Background(), 1); err != nil {
		t.Errorf("want schedule created for event 1: %v", err)
	}
	if ev.Condition != domain.EventConditionScheduled {
		t.Errorf("want event marked scheduled, got %s", ev.Condition)
	}
}

func TestApproveRun_MissingEmployeeExternalID_MarksAPIFailed(t *testing.T) {
	emp := &domain.Employee{ID: "E1", ExternalID: "", Name: "No External", IsActive: true}
	ev := &domain.Event{ProjectRefNum: 2, ExternalID: "E2", LocationMVID: "L1"}
	at := time.Date(2025, 10, 6, 9, 0, 0, 0, time.UTC)
	p := &domain.PendingSchedule{ID: "p2", RunID: "run-1", EventRefNum: 2, EmployeeID: strPtr("E1"), ScheduleTime: timePtr(at), Status: domain.PendingStatusProposed}

	runs := &fakeRunRepo{run: &domain.RunHistory{ID: "run-1", State: domain.RunStateSuccess}}
	pending := newFakePendingRepo(p)
	schedules := newFakeScheduleRepo2()
	events := newFakeEventRepo2(ev)
	employees := newFakeEmployeeRepo2(emp)
	tasks := &fakeTaskRepo{}
	validator := constraint.New(employees, constraint.DefaultOptions())

	u := usecase.NewProposalUsecase(runs, pending, schedules, events, employees, tasks, fakeAuditRepo{}, validator)

	_, err := u.ApproveRun(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.Status != domain.PendingStatusAPIFailed {
		t.Fatalf("want api_failed, got %s", p.Status)
	}
	if p.FailureReason == nil || *p.FailureReason != "Missing external_id for employee" {
		t.Errorf("want specific failure reason, got %v", p.FailureReason)
	}
	if len(tasks.enqueued) != 0 {
		t.Errorf("want no task enqueued, got %+v", tasks.enqueued)
	}
	if _, err := schedules.GetByEventRefNum(context.Background(), 2); err == nil {
		t.Error("want no schedule created")
	}
}

func TestApproveRun_Swap_SoftUnschedulesDisplacedEvent(t *testing.T) {
	lead1 := &domain.Employee{ID: "L1", ExternalID: "10", IsActive: true}
	va := &domain.Event{ProjectRefNum: 10, ExternalID: "EA", LocationMVID: "L1"}
	vb := &domain.Event{ProjectRefNum: 20, ExternalID: "EB", LocationMVID: "L1", Condition: domain.EventConditionScheduled, IsScheduled: true}
	at := time.Date(2025, 10, 6, 9, 45, 0, 0, time.UTC)
	displaced := at
	existing := &domain.Schedule{ID: "sched-existing", EventRefNum: 20, EmployeeID: "L1", ScheduleDatetime: displaced, UpstreamID: "up-1"}

	refB := 20
	p := &domain.PendingSchedule{ID: "p10", RunID: "run-1", EventRefNum: 10, EmployeeID: strPtr("L1"), ScheduleTime: timePtr(at),
		Status: domain.PendingStatusProposed, IsSwap: true, SwapReason: strPtr("bumped Vb"), DisplacedEventRefNum: &refB}

	runs := &fakeRunRepo{run: &domain.RunHistory{ID: "run-1", State: domain.RunStateSuccess}}
	pending := newFakePendingRepo(p)
	schedules := newFakeScheduleRepo2(existing)
	events := newFakeEventRepo2(va, vb)
	employees := newFakeEmployeeRepo2(lead1)
	tasks := &fakeTaskRepo{}
	validator := constraint.New(employees, constraint.DefaultOptions())

	u := usecase.NewProposalUsecase(runs, pending, schedules, events, employees, tasks, fakeAuditRepo{}, validator)

	_, err := u.ApproveRun(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if vb.Condition != domain.EventConditionUnstaffed {
		t.Errorf("want displaced event back to Unstaffed, got %s", vb.Condition)
	}
	if len(schedules.deleted) != 1 || schedules.deleted[0] != "sched-existing" {
		t.Errorf("want displaced schedule deleted, got %v", schedules.deleted)
	}

	var kinds []domain.TaskKind
	for _, tk := range tasks.enqueued {
		kinds = append(kinds, tk.Kind)
	}
	if len(kinds) != 2 {
		t.Fatalf("want push_delete + push_new enqueued, got %v", kinds)
	}
}

func TestRejectRun_TransitionsOnlyOpenProposals(t *testing.T) {
	open := &domain.PendingSchedule{ID: "p1", RunID: "run-1", Status: domain.PendingStatusProposed}
	already := &domain.PendingSchedule{ID: "p2", RunID: "run-1", Status: domain.PendingStatusAPISubmitted}
	pending := newFakePendingRepo(open, already)

	u := usecase.NewProposalUsecase(&fakeRunRepo{}, pending, newFakeScheduleRepo2(), newFakeEventRepo2(), newFakeEmployeeRepo2(), &fakeTaskRepo{}, fakeAuditRepo{}, constraint.New(newFakeEmployeeRepo2(), constraint.DefaultOptions()))

	if err := u.RejectRun(context.Background(), "run-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if open.Status != domain.PendingStatusRejected {
		t.Errorf("want open proposal rejected, got %s", open.Status)
	}
	if already.Status != domain.PendingStatusAPISubmitted {
		t.Errorf("want already-submitted proposal untouched, got %s", already.Status)
	}
}

func TestEditProposal_HardViolation_Rejected(t *testing.T) {
	emp := &domain.Employee{ID: "E1", IsActive: true}
	ev := &domain.Event{ProjectRefNum: 1, DueDatetime: time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)}
	at := time.Date(2025, 10, 6, 9, 0, 0, 0, time.UTC)
	p := &domain.PendingSchedule{ID: "p1", RunID: "run-1", EventRefNum: 1, EmployeeID: strPtr("E1"), ScheduleTime: timePtr(at), Status: domain.PendingStatusProposed}

	pending := newFakePendingRepo(p)
	events := newFakeEventRepo2(ev)
	employees := newFakeEmployeeRepo2(emp)
	validator := constraint.New(employees, constraint.DefaultOptions())

	u := usecase.NewProposalUsecase(&fakeRunRepo{}, pending, newFakeScheduleRepo2(), events, employees, &fakeTaskRepo{}, fakeAuditRepo{}, validator)

	newAt := time.Date(2025, 10, 7, 9, 0, 0, 0, time.UTC) // past the event's due date
	_, err := u.EditProposal(context.Background(), "p1", nil, &newAt)
	if err == nil {
		t.Fatal("want a hard-violation error")
	}
	var hv *usecase.HardViolationError
	if !errorsAs(err, &hv) {
		t.Fatalf("want *usecase.HardViolationError, got %T: %v", err, err)
	}
	if p.Status != domain.PendingStatusProposed {
		t.Errorf("want proposal left untouched on rejection, got %s", p.Status)
	}
}

func errorsAs(err error, target **usecase.HardViolationError) bool {
	hv, ok := err.(*usecase.HardViolationError)
	if !ok {
		return false
	}
	*target = hv
	return true
}

var _ repository.EmployeeRepository = (*fakeEmployeeRepo2)(nil)
