package engine_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/constraint"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/domain"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/engine"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/resolver"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/rotation"
)

// ---- in-memory fakes, one struct per repository interface ----

type memEventRepo struct {
	events map[int]*domain.Event
}

func newMemEventRepo(events ...*domain.Event) *memEventRepo {
	m := &memEventRepo{events: map[int]*domain.Event{}}
	for _, e := range events {
		m.events[e.ProjectRefNum] = e
	}
	return m
}

func (r *memEventRepo) GetByRefNum(_ context.Context, refNum int) (*domain.Event, error) {
	if e, ok := r.events[refNum]; ok {
		return e, nil
	}
	return nil, domain.ErrEventNotFound
}
func (r *memEventRepo) Upsert(_ context.Context, e *domain.Event) error {
	r.events[e.ProjectRefNum] = e
	return nil
}
func (r *memEventRepo) SetCondition(_ context.Context, refNum int, cond domain.EventCondition, scheduled bool) error {
	if e, ok := r.events[refNum]; ok {
		e.Condition = cond
		e.IsScheduled = scheduled
	}
	return nil
}
func (r *memEventRepo) Window(_ context.Context, from, to time.Time) ([]*domain.Event, error) {
	var out []*domain.Event
	for _, e := range r.events {
		if e.IsScheduled {
			continue
		}
		d := e.StartDatetime
		if !d.Before(from) && !d.After(to) {
			out = append(out, e)
		}
	}
	// deterministic order by event-type priority then ref num
	for i := 1; i < len(out); i++ {
		for j := i; j > 0; j-- {
			a, b := out[j], out[j-1]
			pa, pb := domain.EventTypePriority(a.EventType), domain.EventTypePriority(b.EventType)
			if pa < pb || (pa == pb && a.ProjectRefNum < b.ProjectRefNum) {
				out[j], out[j-1] = out[j-1], out[j]
			} else {
				break
			}
		}
	}
	return out, nil
}
func (r *memEventRepo) FindByEventNumber(_ context.Context, eventNumber string, eventType domain.EventType) (*domain.Event, error) {
	for _, e := range r.events {
		if e.EventType == eventType && e.EventNumber() == eventNumber {
			return e, nil
		}
	}
	return nil, nil
}

type memEmployeeRepo struct {
	employees         map[string]*domain.Employee
	weekly            map[string][]domain.WeeklyAvailability
	existingSchedules func(employeeID, date string) []domain.ScheduledEvent
	timeOff           func(employeeID, date string) *domain.TimeOff
}

func newMemEmployeeRepo(employees ...*domain.Employee) *memEmployeeRepo {
	m := &memEmployeeRepo{employees: map[string]*domain.Employee{}, weekly: map[string][]domain.WeeklyAvailability{}}
	for _, e := range employees {
		m.employees[e.ID] = e
		all := make([]domain.WeeklyAvailability, 7)
		for i := range all {
			all[i] = domain.WeeklyAvailability{Weekday: i, Available: true, WindowStart: "00:00", WindowEnd: "23:59"}
		}
		m.weekly[e.ID] = all
	}
	return m
}

func (r *memEmployeeRepo) GetByID(_ context.Context, id string) (*domain.Employee, error) {
	if e, ok := r.employees[id]; ok {
		return e, nil
	}
	return nil, domain.ErrEmployeeNotFound
}
func (r *memEmployeeRepo) ListActive(_ context.Context) ([]*domain.Employee, error) {
	var out []*domain.Employee
	for _, e := range r.employees {
		if e.IsActive {
			out = append(out, e)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].ID < out[j-1].ID; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}
func (r *memEmployeeRepo) Upsert(_ context.Context, e *domain.Employee) error {
	r.employees[e.ID] = e
	return nil
}
func (r *memEmployeeRepo) WeeklyAvailability(_ context.Context, employeeID string) ([]domain.WeeklyAvailability, error) {
	return r.weekly[employeeID], nil
}
func (r *memEmployeeRepo) DateAvailability(_ context.Context, employeeID, date string) (*domain.DateAvailability, error) {
	return nil, nil
}
func (r *memEmployeeRepo) TimeOffOn(_ context.Context, employeeID, date string) (*domain.TimeOff, error) {
	if r.timeOff == nil {
		return nil, nil
	}
	return r.timeOff(employeeID, date), nil
}
func (r *memEmployeeRepo) ExistingSchedulesOn(_ context.Context, employeeID, date string) ([]domain.ScheduledEvent, error) {
	if r.existingSchedules == nil {
		return nil, nil
	}
	return r.existingSchedules(employeeID, date), nil
}

type memScheduleRepo struct {
	byID       map[string]*domain.Schedule
	byEventRef map[int]*domain.Schedule
	nextID     int
	// events backs Bumpable's join against event_type/due_datetime, the
	// same join internal/infrastructure/postgres.ScheduleRepository.Bumpable
	// does against the events table.
	events *memEventRepo
}

func newMemScheduleRepo() *memScheduleRepo {
	return &memScheduleRepo{byID: map[string]*domain.Schedule{}, byEventRef: map[int]*domain.Schedule{}}
}

func (r *memScheduleRepo) Create(_ context.Context, s *domain.Schedule) (*domain.Schedule, error) {
	if _, exists := r.byEventRef[s.EventRefNum]; exists {
		return nil, domain.ErrScheduleConflict
	}
	r.nextID++
	created := *s
	created.ID = fmt.Sprintf("sched-%d", r.nextID)
	r.byID[created.ID] = &created
	r.byEventRef[created.EventRefNum] = &created
	return &created, nil
}
func (r *memScheduleRepo) GetByID(_ context.Context, id string) (*domain.Schedule, error) {
	if s, ok := r.byID[id]; ok {
		return s, nil
	}
	return nil, domain.ErrScheduleNotFound
}
func (r *memScheduleRepo) GetByEventRefNum(_ context.Context, refNum int) (*domain.Schedule, error) {
	if s, ok := r.byEventRef[refNum]; ok {
		return s, nil
	}
	return nil, domain.ErrScheduleNotFound
}
func (r *memScheduleRepo) Delete(_ context.Context, id string) error {
	if s, ok := r.byID[id]; ok {
		delete(r.byEventRef, s.EventRefNum)
		delete(r.byID, id)
	}
	return nil
}
func (r *memScheduleRepo) UpdateAssignment(_ context.Context, id string, employeeID string, at time.Time) error {
	if s, ok := r.byID[id]; ok {
		s.EmployeeID = employeeID
		s.ScheduleDatetime = at
	}
	return nil
}
func (r *memScheduleRepo) MarkSyncStatus(_ context.Context, id string, status domain.SyncStatus, errDetails *string) error {
	return nil
}
func (r *memScheduleRepo) SetUpstreamID(_ context.Context, id string, upstreamID string) error {
	return nil
}
func (r *memScheduleRepo) Bumpable(_ context.Context, date string, employeeID *string) ([]domain.ScheduledEvent, error) {
	var out []domain.ScheduledEvent
	for _, s := range r.byID {
		if s.ScheduleDatetime.Format("2006-01-02") != date {
			continue
		}
		if employeeID != nil && s.EmployeeID != *employeeID {
			continue
		}
		ev, ok := r.events.events[s.EventRefNum]
		if !ok {
			continue
		}
		out = append(out, domain.ScheduledEvent{
			ScheduleID:       s.ID,
			EventRefNum:      s.EventRefNum,
			EventType:        ev.EventType,
			ScheduleDatetime: s.ScheduleDatetime,
			EstimatedMinutes: ev.EstimatedMinutesOrDefault(),
			DueDatetime:      ev.DueDatetime,
			EmployeeID:       s.EmployeeID,
		})
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].EventRefNum < out[j-1].EventRefNum; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

type memPendingRepo struct {
	byRun map[string][]*domain.PendingSchedule
}

func newMemPendingRepo() *memPendingRepo { return &memPendingRepo{byRun: map[string][]*domain.PendingSchedule{}} }

func (r *memPendingRepo) CreateBatch(_ context.Context, runID string, items []*domain.PendingSchedule) error {
	r.byRun[runID] = append(r.byRun[runID], items...)
	return nil
}
func (r *memPendingRepo) GetByID(_ context.Context, id string) (*domain.PendingSchedule, error) {
	return nil, domain.ErrPendingScheduleNotFound
}
func (r *memPendingRepo) ListByRun(_ context.Context, runID string) ([]*domain.PendingSchedule, error) {
	return r.byRun[runID], nil
}
func (r *memPendingRepo) Update(_ context.Context, p *domain.PendingSchedule) error { return nil }
func (r *memPendingRepo) SetStatus(_ context.Context, id string, status domain.PendingStatus, failureReason *string) error {
	return nil
}

type memRunRepo struct {
	running *domain.RunHistory
	done    []*domain.RunHistory
	nextID  int
}

func newMemRunRepo() *memRunRepo { return &memRunRepo{} }

func (r *memRunRepo) StartRun(_ context.Context, runType domain.RunType) (*domain.RunHistory, error) {
	if r.running != nil {
		return nil, domain.ErrRunInProgress
	}
	r.nextID++
	run := &domain.RunHistory{ID: "run-1", RunType: runType, State: domain.RunStateRunning, StartedAt: time.Now()}
	r.running = run
	return run, nil
}
func (r *memRunRepo) Finish(_ context.Context, runID string, state domain.RunState, counters domain.RunHistory, errMsg *string) error {
	if r.running == nil || r.running.ID != runID {
		return domain.ErrRunNotRunning
	}
	r.running.State = state
	r.running.TotalProcessed = counters.TotalProcessed
	r.running.Scheduled = counters.Scheduled
	r.running.RequiringSwaps = counters.RequiringSwaps
	r.running.Failed = counters.Failed
	r.running.ErrorMessage = errMsg
	r.done = append(r.done, r.running)
	r.running = nil
	return nil
}
func (r *memRunRepo) GetByID(_ context.Context, id string) (*domain.RunHistory, error) {
	return nil, domain.ErrRunNotFound
}
func (r *memRunRepo) List(_ context.Context, limit int) ([]*domain.RunHistory, error) { return r.done, nil }

type memRotationRepo struct {
	weekly     map[string]*string // key: "weekday|type"
	exceptions map[string]*domain.ScheduleException
	leads      []*domain.Employee
}

func newMemRotationRepo() *memRotationRepo {
	return &memRotationRepo{weekly: map[string]*string{}, exceptions: map[string]*domain.ScheduleException{}}
}

func rotKey(weekday int, rt domain.RotationType) string {
	return time.Weekday(weekday).String() + "|" + string(rt)
}

func (r *memRotationRepo) GetWeekly(_ context.Context, weekday int, rt domain.RotationType) (*domain.DailyRotation, error) {
	emp := r.weekly[rotKey(weekday, rt)]
	return &domain.DailyRotation{Weekday: weekday, RotationType: rt, EmployeeID: emp}, nil
}
func (r *memRotationRepo) SetWeekly(_ context.Context, weekday int, rt domain.RotationType, employeeID string) error {
	id := employeeID
	r.weekly[rotKey(weekday, rt)] = &id
	return nil
}
func (r *memRotationRepo) SetAllWeekly(_ context.Context, entries []domain.DailyRotation) error {
	for _, e := range entries {
		if e.EmployeeID != nil {
			r.weekly[rotKey(e.Weekday, e.RotationType)] = e.EmployeeID
		}
	}
	return nil
}
func (r *memRotationRepo) GetException(_ context.Context, date string, rt domain.RotationType) (*domain.ScheduleException, error) {
	return r.exceptions[date+"|"+string(rt)], nil
}
func (r *memRotationRepo) AddException(_ context.Context, e domain.ScheduleException) (*domain.ScheduleException, error) {
	r.exceptions[e.Date+"|"+string(e.RotationType)] = &e
	return &e, nil
}
func (r *memRotationRepo) DeleteException(_ context.Context, id string) error { return nil }
func (r *memRotationRepo) ListActiveLeads(_ context.Context) ([]*domain.Employee, error) {
	return r.leads, nil
}
func (r *memRotationRepo) ListWeekly(_ context.Context) ([]domain.DailyRotation, error) {
	var out []domain.DailyRotation
	for _, rt := range []domain.RotationType{domain.RotationPrimaryJuicer, domain.RotationPrimaryLead} {
		for wd := 0; wd < 7; wd++ {
			out = append(out, domain.DailyRotation{Weekday: wd, RotationType: rt, EmployeeID: r.weekly[rotKey(wd, rt)]})
		}
	}
	return out, nil
}

// ---- test scaffolding ----

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return tm
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// TestRun_ScenarioA_HappyPathJuicerRotation mirrors spec scenario A: one
// Juicer Barista on primary_juicer rotation, one unscheduled Juicer
// event — expect a single, non-swap proposal at the event's default
// 09:00 time on its own start date.
func TestRun_ScenarioA_HappyPathJuicerRotation(t *testing.T) {
	jb1 := &domain.Employee{ID: "JB1", ExternalID: "42", Name: "Juicer One", JobTitle: domain.JobTitleJuicerBarista, IsActive: true}
	events := newMemEventRepo(&domain.Event{
		ProjectRefNum: 1, ExternalID: "E1", LocationMVID: "L1", ProjectName: "Juicer demo",
		EventType: domain.EventTypeJuicer,
		StartDatetime: mustTime(t, "2025-10-06"), DueDatetime: mustTime(t, "2025-10-10"),
		EstimatedMinutes: 60,
	})
	employees := newMemEmployeeRepo(jb1)
	schedules := newMemScheduleRepo()
	pending := newMemPendingRepo()
	runs := newMemRunRepo()
	rotRepo := newMemRotationRepo()
	// Monday = weekday 0
	_ = rotRepo.SetWeekly(context.Background(), 0, domain.RotationPrimaryJuicer, jb1.ID)

	rotMgr := rotation.NewManager(rotRepo)
	validator := constraint.New(employees, constraint.DefaultOptions())
	res := resolver.New(schedules, validator)

	cfg := engine.DefaultConfig()
	cfg.Now = fixedNow(mustTime(t, "2025-10-03"))

	e := engine.New(events, employees, schedules, pending, runs, rotMgr, validator, res, cfg)

	run, err := e.Run(context.Background(), domain.RunTypeManual)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.State != domain.RunStateSuccess {
		t.Fatalf("want success, got %s (%v)", run.State, run.ErrorMessage)
	}
	if run.Scheduled != 1 || run.Failed != 0 || run.RequiringSwaps != 0 {
		t.Fatalf("want 1 scheduled/0 failed/0 swaps, got %+v", run)
	}

	proposals := pending.byRun["run-1"]
	if len(proposals) != 1 {
		t.Fatalf("want 1 proposal, got %d", len(proposals))
	}
	p := proposals[0]
	if p.Failed() {
		t.Fatalf("want a successful proposal, got failure_reason=%v", p.FailureReason)
	}
	if *p.EmployeeID != jb1.ID {
		t.Errorf("want JB1 assigned, got %s", *p.EmployeeID)
	}
	wantTime := mustTime(t, "2025-10-06").Add(9 * time.Hour)
	if !p.ScheduleTime.Equal(wantTime) {
		t.Errorf("want schedule time %v, got %v", wantTime, *p.ScheduleTime)
	}
	if p.IsSwap {
		t.Error("want not a swap")
	}
}

// TestRun_ScenarioC_MissingExternalID still produces a proposal at the
// engine layer — the external-id precheck belongs to C6 approval, not
// C5 — but confirms the engine doesn't itself require external ids to
// assign an employee.
func TestRun_ScenarioC_EngineStillProposesDespiteMissingExternalID(t *testing.T) {
	emp := &domain.Employee{ID: "E1", ExternalID: "", Name: "No External", JobTitle: domain.JobTitleJuicerBarista, IsActive: true}
	events := newMemEventRepo(&domain.Event{
		ProjectRefNum: 2, ExternalID: "E2", LocationMVID: "L1", ProjectName: "Juicer demo",
		EventType: domain.EventTypeJuicer,
		StartDatetime: mustTime(t, "2025-10-06"), DueDatetime: mustTime(t, "2025-10-10"),
	})
	employees := newMemEmployeeRepo(emp)
	schedules := newMemScheduleRepo()
	pending := newMemPendingRepo()
	runs := newMemRunRepo()
	rotRepo := newMemRotationRepo()
	_ = rotRepo.SetWeekly(context.Background(), 0, domain.RotationPrimaryJuicer, emp.ID)

	rotMgr := rotation.NewManager(rotRepo)
	validator := constraint.New(employees, constraint.DefaultOptions())
	res := resolver.New(schedules, validator)

	cfg := engine.DefaultConfig()
	cfg.Now = fixedNow(mustTime(t, "2025-10-03"))

	e := engine.New(events, employees, schedules, pending, runs, rotMgr, validator, res, cfg)

	run, err := e.Run(context.Background(), domain.RunTypeManual)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Scheduled != 1 {
		t.Fatalf("want engine to still propose despite missing external_id, got %+v", run)
	}
}

func TestRun_SecondConcurrentRun_ReturnsErrRunInProgress(t *testing.T) {
	events := newMemEventRepo()
	employees := newMemEmployeeRepo()
	schedules := newMemScheduleRepo()
	pending := newMemPendingRepo()
	runs := newMemRunRepo()
	runs.running = &domain.RunHistory{ID: "already-running", State: domain.RunStateRunning}
	rotMgr := rotation.NewManager(newMemRotationRepo())
	validator := constraint.New(employees, constraint.DefaultOptions())
	res := resolver.New(schedules, validator)

	e := engine.New(events, employees, schedules, pending, runs, rotMgr, validator, res, engine.DefaultConfig())

	_, err := e.Run(context.Background(), domain.RunTypeManual)
	if err == nil {
		t.Fatal("want an error")
	}
}

// TestRun_ScenarioB_CoreBumpSwap mirrors spec scenario B: two Lead Event
// Specialists, L1 the Monday Primary Lead already holding the 09:45
// Core slot with a less urgent event, L2 unavailable that day. The
// only open Core event is due sooner, so the engine must swap L1 off
// the less urgent event rather than fail or skip the slot.
func TestRun_ScenarioB_CoreBumpSwap(t *testing.T) {
	l1 := &domain.Employee{ID: "L1", ExternalID: "101", Name: "Lead One", JobTitle: domain.JobTitleLeadEventSpecialist, IsActive: true}
	l2 := &domain.Employee{ID: "L2", ExternalID: "102", Name: "Lead Two", JobTitle: domain.JobTitleLeadEventSpecialist, IsActive: true}

	vb := &domain.Event{
		ProjectRefNum: 200, ExternalID: "EVb", LocationMVID: "L1", ProjectName: "Core already scheduled",
		EventType: domain.EventTypeCore,
		StartDatetime: mustTime(t, "2025-10-01"), DueDatetime: mustTime(t, "2025-10-20"),
		EstimatedMinutes: 60, IsScheduled: true, Condition: domain.EventConditionScheduled,
	}
	va := &domain.Event{
		ProjectRefNum: 201, ExternalID: "EVa", LocationMVID: "L1", ProjectName: "Core urgently due",
		EventType: domain.EventTypeCore,
		StartDatetime: mustTime(t, "2025-10-06"), DueDatetime: mustTime(t, "2025-10-07"),
		EstimatedMinutes: 60,
	}
	events := newMemEventRepo(vb, va)

	employees := newMemEmployeeRepo(l1, l2)
	vbTime := mustTime(t, "2025-10-06").Add(9*time.Hour + 45*time.Minute)
	employees.existingSchedules = func(employeeID, date string) []domain.ScheduledEvent {
		if employeeID == "L1" && date == "2025-10-06" {
			return []domain.ScheduledEvent{{
				ScheduleID: "sched-vb", EventRefNum: vb.ProjectRefNum, EventType: domain.EventTypeCore,
				ScheduleDatetime: vbTime, EstimatedMinutes: vb.EstimatedMinutes, DueDatetime: vb.DueDatetime,
				EmployeeID: "L1",
			}}
		}
		return nil
	}
	employees.timeOff = func(employeeID, date string) *domain.TimeOff {
		if employeeID == "L2" && date == "2025-10-06" {
			return &domain.TimeOff{ID: "to-1", EmployeeID: "L2", StartDate: "2025-10-06", EndDate: "2025-10-06"}
		}
		return nil
	}

	schedules := newMemScheduleRepo()
	schedules.events = events
	if _, err := schedules.Create(context.Background(), &domain.Schedule{
		EventRefNum: vb.ProjectRefNum, EmployeeID: "L1", ScheduleDatetime: vbTime,
	}); err != nil {
		t.Fatalf("seed schedule: %v", err)
	}

	pending := newMemPendingRepo()
	runs := newMemRunRepo()
	rotRepo := newMemRotationRepo()
	// Monday = weekday 0
	_ = rotRepo.SetWeekly(context.Background(), 0, domain.RotationPrimaryLead, l1.ID)

	rotMgr := rotation.NewManager(rotRepo)
	validator := constraint.New(employees, constraint.DefaultOptions())
	res := resolver.New(schedules, validator)

	cfg := engine.DefaultConfig()
	cfg.Now = fixedNow(mustTime(t, "2025-10-03"))

	e := engine.New(events, employees, schedules, pending, runs, rotMgr, validator, res, cfg)

	run, err := e.Run(context.Background(), domain.RunTypeManual)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Scheduled != 0 || run.Failed != 0 || run.RequiringSwaps != 1 {
		t.Fatalf("want 0 scheduled/0 failed/1 swap, got %+v", run)
	}

	proposals := pending.byRun["run-1"]
	if len(proposals) != 1 {
		t.Fatalf("want 1 proposal, got %d", len(proposals))
	}
	p := proposals[0]
	if p.Failed() {
		t.Fatalf("want a successful swap proposal, got failure_reason=%v", p.FailureReason)
	}
	if p.EventRefNum != va.ProjectRefNum {
		t.Errorf("want the proposal for the urgent event %d, got %d", va.ProjectRefNum, p.EventRefNum)
	}
	if !p.IsSwap {
		t.Fatal("want a swap")
	}
	if *p.EmployeeID != "L1" {
		t.Errorf("want L1 assigned, got %s", *p.EmployeeID)
	}
	if !p.ScheduleTime.Equal(vbTime) {
		t.Errorf("want schedule time %v, got %v", vbTime, *p.ScheduleTime)
	}
	if p.DisplacedEventRefNum == nil || *p.DisplacedEventRefNum != vb.ProjectRefNum {
		t.Errorf("want displaced event %d, got %v", vb.ProjectRefNum, p.DisplacedEventRefNum)
	}
	if p.SwapReason == nil || !strings.Contains(*p.SwapReason, fmt.Sprintf("event %d", vb.ProjectRefNum)) {
		t.Errorf("want swap reason naming the displaced event, got %v", p.SwapReason)
	}
}

// TestRun_ScenarioF_SupervisorPairingByEventNumber mirrors spec scenario
// F: a Supervisor event whose project name embeds the same 6-digit
// event number as an already-scheduled Core event must pair to that
// Core event's date at noon, preferring an available Club Supervisor.
func TestRun_ScenarioF_SupervisorPairingByEventNumber(t *testing.T) {
	l1 := &domain.Employee{ID: "L1", ExternalID: "101", Name: "Lead One", JobTitle: domain.JobTitleLeadEventSpecialist, IsActive: true}
	cs1 := &domain.Employee{ID: "CS1", ExternalID: "201", Name: "Club Supervisor One", JobTitle: domain.JobTitleClubSupervisor, IsActive: true}

	core := &domain.Event{
		ProjectRefNum: 300, ExternalID: "ECore", LocationMVID: "L1", ProjectName: "123456 Core Reset",
		EventType: domain.EventTypeCore,
		StartDatetime: mustTime(t, "2025-10-08"), DueDatetime: mustTime(t, "2025-10-10"),
		EstimatedMinutes: 60, IsScheduled: true, Condition: domain.EventConditionScheduled,
	}
	supv := &domain.Event{
		ProjectRefNum: 301, ExternalID: "ESupv", LocationMVID: "L1", ProjectName: "123456 SUPV Visit",
		EventType: domain.EventTypeSupervisor,
		StartDatetime: mustTime(t, "2025-10-08"), DueDatetime: mustTime(t, "2025-10-10"),
		EstimatedMinutes: 30,
	}
	events := newMemEventRepo(core, supv)

	employees := newMemEmployeeRepo(l1, cs1)

	schedules := newMemScheduleRepo()
	schedules.events = events
	coreTime := mustTime(t, "2025-10-08").Add(9*time.Hour + 45*time.Minute)
	if _, err := schedules.Create(context.Background(), &domain.Schedule{
		EventRefNum: core.ProjectRefNum, EmployeeID: "L1", ScheduleDatetime: coreTime,
	}); err != nil {
		t.Fatalf("seed schedule: %v", err)
	}

	pending := newMemPendingRepo()
	runs := newMemRunRepo()
	rotMgr := rotation.NewManager(newMemRotationRepo())
	validator := constraint.New(employees, constraint.DefaultOptions())
	res := resolver.New(schedules, validator)

	cfg := engine.DefaultConfig()
	cfg.Now = fixedNow(mustTime(t, "2025-10-03"))

	e := engine.New(events, employees, schedules, pending, runs, rotMgr, validator, res, cfg)

	run, err := e.Run(context.Background(), domain.RunTypeManual)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Scheduled != 1 || run.Failed != 0 || run.RequiringSwaps != 0 {
		t.Fatalf("want 1 scheduled/0 failed/0 swaps, got %+v", run)
	}

	proposals := pending.byRun["run-1"]
	if len(proposals) != 1 {
		t.Fatalf("want 1 proposal, got %d", len(proposals))
	}
	p := proposals[0]
	if p.Failed() {
		t.Fatalf("want a successful proposal, got failure_reason=%v", p.FailureReason)
	}
	if p.EventRefNum != supv.ProjectRefNum {
		t.Errorf("want the proposal for the Supervisor event %d, got %d", supv.ProjectRefNum, p.EventRefNum)
	}
	if *p.EmployeeID != "CS1" {
		t.Errorf("want the Club Supervisor assigned, got %s", *p.EmployeeID)
	}
	wantTime := mustTime(t, "2025-10-08").Add(12 * time.Hour)
	if !p.ScheduleTime.Equal(wantTime) {
		t.Errorf("want noon on the Core event's date %v, got %v", wantTime, *p.ScheduleTime)
	}
}

// TestRun_ScenarioF_SupervisorFallsBackToCoreLead covers phase3's second
// branch: with no Club Supervisor on the roster, the paired Supervisor
// event goes to the Lead already working the matched Core event.
func TestRun_ScenarioF_SupervisorFallsBackToCoreLead(t *testing.T) {
	l1 := &domain.Employee{ID: "L1", ExternalID: "101", Name: "Lead One", JobTitle: domain.JobTitleLeadEventSpecialist, IsActive: true}

	core := &domain.Event{
		ProjectRefNum: 400, ExternalID: "ECore", LocationMVID: "L1", ProjectName: "654321 Core Reset",
		EventType: domain.EventTypeCore,
		StartDatetime: mustTime(t, "2025-10-08"), DueDatetime: mustTime(t, "2025-10-10"),
		EstimatedMinutes: 60, IsScheduled: true, Condition: domain.EventConditionScheduled,
	}
	supv := &domain.Event{
		ProjectRefNum: 401, ExternalID: "ESupv", LocationMVID: "L1", ProjectName: "654321 SUPV Visit",
		EventType: domain.EventTypeSupervisor,
		StartDatetime: mustTime(t, "2025-10-08"), DueDatetime: mustTime(t, "2025-10-10"),
		EstimatedMinutes: 30,
	}
	events := newMemEventRepo(core, supv)

	employees := newMemEmployeeRepo(l1)

	schedules := newMemScheduleRepo()
	schedules.events = events
	coreTime := mustTime(t, "2025-10-08").Add(9*time.Hour + 45*time.Minute)
	if _, err := schedules.Create(context.Background(), &domain.Schedule{
		EventRefNum: core.ProjectRefNum, EmployeeID: "L1", ScheduleDatetime: coreTime,
	}); err != nil {
		t.Fatalf("seed schedule: %v", err)
	}

	pending := newMemPendingRepo()
	runs := newMemRunRepo()
	rotMgr := rotation.NewManager(newMemRotationRepo())
	validator := constraint.New(employees, constraint.DefaultOptions())
	res := resolver.New(schedules, validator)

	cfg := engine.DefaultConfig()
	cfg.Now = fixedNow(mustTime(t, "2025-10-03"))

	e := engine.New(events, employees, schedules, pending, runs, rotMgr, validator, res, cfg)

	run, err := e.Run(context.Background(), domain.RunTypeManual)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Scheduled != 1 || run.Failed != 0 {
		t.Fatalf("want 1 scheduled/0 failed, got %+v", run)
	}

	proposals := pending.byRun["run-1"]
	if len(proposals) != 1 {
		t.Fatalf("want 1 proposal, got %d", len(proposals))
	}
	p := proposals[0]
	if p.Failed() {
		t.Fatalf("want a successful proposal, got failure_reason=%v", p.FailureReason)
	}
	if *p.EmployeeID != "L1" {
		t.Errorf("want fallback to the Core event's Lead, got %s", *p.EmployeeID)
	}
}
