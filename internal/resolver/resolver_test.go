package resolver_test

import (
	"context"
	"testing"
	"time"

	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/constraint"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/domain"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/resolver"
)

type fakeScheduleRepo struct {
	bumpable func(ctx context.Context, date string, employeeID *string) ([]domain.ScheduledEvent, error)
}

func (r *fakeScheduleRepo) Create(ctx context.Context, s *domain.Schedule) (*domain.Schedule, error) {
	return nil, nil
}
func (r *fakeScheduleRepo) GetByID(ctx context.Context, id string) (*domain.Schedule, error) {
	return nil, nil
}
func (r *fakeScheduleRepo) GetByEventRefNum(ctx context.Context, refNum int) (*domain.Schedule, error) {
	return nil, nil
}
func (r *fakeScheduleRepo) Delete(ctx context.Context, id string) error { return nil }
func (r *fakeScheduleRepo) UpdateAssignment(ctx context.Context, id string, employeeID string, at time.Time) error {
	return nil
}
func (r *fakeScheduleRepo) MarkSyncStatus(ctx context.Context, id string, status domain.SyncStatus, errDetails *string) error {
	return nil
}
func (r *fakeScheduleRepo) SetUpstreamID(ctx context.Context, id string, upstreamID string) error {
	return nil
}
func (r *fakeScheduleRepo) Bumpable(ctx context.Context, date string, employeeID *string) ([]domain.ScheduledEvent, error) {
	return r.bumpable(ctx, date, employeeID)
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse time %q: %v", s, err)
	}
	return tm
}

func TestUrgency_LowerMeansMoreUrgent(t *testing.T) {
	reference := mustTime(t, "2026-08-01")
	due := mustTime(t, "2026-08-05")
	if got := resolver.Urgency(due, reference); got != 4 {
		t.Errorf("urgency = %d, want 4", got)
	}
}

func TestBumpable_ExcludesSupervisorAndUnderTwoDays(t *testing.T) {
	reference := mustTime(t, "2026-08-01")
	repo := &fakeScheduleRepo{
		bumpable: func(_ context.Context, _ string, _ *string) ([]domain.ScheduledEvent, error) {
			return []domain.ScheduledEvent{
				{EventRefNum: 1, EventType: domain.EventTypeSupervisor, DueDatetime: mustTime(t, "2026-08-10")},
				{EventRefNum: 2, EventType: domain.EventTypeCore, DueDatetime: mustTime(t, "2026-08-02")}, // urgency 1, excluded
				{EventRefNum: 3, EventType: domain.EventTypeCore, DueDatetime: mustTime(t, "2026-08-10")}, // urgency 9
				{EventRefNum: 4, EventType: domain.EventTypeCore, DueDatetime: mustTime(t, "2026-08-05")}, // urgency 4
			}, nil
		},
	}
	r := resolver.New(repo, nil)

	got, err := r.Bumpable(context.Background(), "2026-08-01", nil, reference)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 bumpable candidates, got %d: %+v", len(got), got)
	}
	if got[0].Schedule.EventRefNum != 3 || got[1].Schedule.EventRefNum != 4 {
		t.Errorf("want [3, 4] sorted least-urgent first, got [%d, %d]", got[0].Schedule.EventRefNum, got[1].Schedule.EventRefNum)
	}
}

func TestResolve_PicksMostBumpableStrictlyLessUrgentThanIncoming(t *testing.T) {
	reference := mustTime(t, "2026-08-01")
	repo := &fakeScheduleRepo{
		bumpable: func(_ context.Context, _ string, _ *string) ([]domain.ScheduledEvent, error) {
			return []domain.ScheduledEvent{
				{EventRefNum: 10, EventType: domain.EventTypeCore, DueDatetime: mustTime(t, "2026-08-20")}, // urgency 19
				{EventRefNum: 11, EventType: domain.EventTypeCore, DueDatetime: mustTime(t, "2026-08-04")}, // urgency 3
			}, nil
		},
	}
	r := resolver.New(repo, nil)

	incoming := domain.Event{ProjectRefNum: 99, DueDatetime: mustTime(t, "2026-08-03")} // urgency 2

	proposal, err := r.Resolve(context.Background(), incoming, "2026-08-01", "e1", reference)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if proposal == nil {
		t.Fatal("want a proposal, got nil")
	}
	if proposal.Displaced.EventRefNum != 10 {
		t.Errorf("want displaced event 10 (least urgent), got %d", proposal.Displaced.EventRefNum)
	}
}

func TestResolve_NoCandidateLessUrgent_ReturnsNil(t *testing.T) {
	reference := mustTime(t, "2026-08-01")
	repo := &fakeScheduleRepo{
		bumpable: func(_ context.Context, _ string, _ *string) ([]domain.ScheduledEvent, error) {
			return []domain.ScheduledEvent{
				{EventRefNum: 10, EventType: domain.EventTypeCore, DueDatetime: mustTime(t, "2026-08-03")}, // urgency 2
			}, nil
		},
	}
	r := resolver.New(repo, nil)

	incoming := domain.Event{ProjectRefNum: 99, DueDatetime: mustTime(t, "2026-08-20")} // urgency 19, more urgent than incoming is wrong direction

	proposal, err := r.Resolve(context.Background(), incoming, "2026-08-01", "e1", reference)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if proposal != nil {
		t.Errorf("want nil proposal, got %+v", proposal)
	}
}

func TestAlternativeDates_ExcludesGivenDateAndInfeasibleDates(t *testing.T) {
	empRepo := &fakeAltEmployeeRepo{}
	validator := constraint.New(empRepo, constraint.DefaultOptions())
	r := resolver.New(&fakeScheduleRepo{}, validator)

	event := domain.Event{
		ProjectRefNum: 1, EventType: domain.EventTypeCore,
		StartDatetime: mustTime(t, "2026-08-01"),
		DueDatetime:   mustTime(t, "2026-08-04"),
	}
	employee := domain.Employee{ID: "e1", JobTitle: domain.JobTitleLeadEventSpecialist}

	dates, err := r.AlternativeDates(context.Background(), event, employee, mustTime(t, "2026-08-02"), "09:45")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, d := range dates {
		if d.Format("2006-01-02") == "2026-08-02" {
			t.Errorf("excluded date 2026-08-02 present in result: %v", dates)
		}
	}
	if len(dates) != 3 {
		t.Errorf("want 3 alternative dates (Aug 1, 3, 4), got %d: %v", len(dates), dates)
	}
}

type fakeAltEmployeeRepo struct{}

func (r *fakeAltEmployeeRepo) GetByID(ctx context.Context, id string) (*domain.Employee, error) {
	return nil, nil
}
func (r *fakeAltEmployeeRepo) ListActive(ctx context.Context) ([]*domain.Employee, error) {
	return nil, nil
}
func (r *fakeAltEmployeeRepo) Upsert(ctx context.Context, e *domain.Employee) error { return nil }
func (r *fakeAltEmployeeRepo) WeeklyAvailability(ctx context.Context, employeeID string) ([]domain.WeeklyAvailability, error) {
	out := make([]domain.WeeklyAvailability, 7)
	for i := range out {
		out[i] = domain.WeeklyAvailability{Weekday: i, Available: true, WindowStart: "08:00", WindowEnd: "18:00"}
	}
	return out, nil
}
func (r *fakeAltEmployeeRepo) DateAvailability(ctx context.Context, employeeID, date string) (*domain.DateAvailability, error) {
	return nil, nil
}
func (r *fakeAltEmployeeRepo) TimeOffOn(ctx context.Context, employeeID, date string) (*domain.TimeOff, error) {
	return nil, nil
}
func (r *fakeAltEmployeeRepo) ExistingSchedulesOn(ctx context.Context, employeeID, date string) ([]domain.ScheduledEvent, error) {
	return nil, nil
}
