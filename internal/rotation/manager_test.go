package rotation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/domain"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/rotation"
)

type fakeRotationRepo struct {
	getWeekly      func(ctx context.Context, weekday int, rt domain.RotationType) (*domain.DailyRotation, error)
	setWeekly      func(ctx context.Context, weekday int, rt domain.RotationType, employeeID string) error
	setAllWeekly   func(ctx context.Context, entries []domain.DailyRotation) error
	getException   func(ctx context.Context, date string, rt domain.RotationType) (*domain.ScheduleException, error)
	addException   func(ctx context.Context, e domain.ScheduleException) (*domain.ScheduleException, error)
	deleteException func(ctx context.Context, id string) error
	listActiveLeads func(ctx context.Context) ([]*domain.Employee, error)
	listWeekly      func(ctx context.Context) ([]domain.DailyRotation, error)
}

func (r *fakeRotationRepo) GetWeekly(ctx context.Context, weekday int, rt domain.RotationType) (*domain.DailyRotation, error) {
	return r.getWeekly(ctx, weekday, rt)
}
func (r *fakeRotationRepo) SetWeekly(ctx context.Context, weekday int, rt domain.RotationType, employeeID string) error {
	return r.setWeekly(ctx, weekday, rt, employeeID)
}
func (r *fakeRotationRepo) SetAllWeekly(ctx context.Context, entries []domain.DailyRotation) error {
	return r.setAllWeekly(ctx, entries)
}
func (r *fakeRotationRepo) GetException(ctx context.Context, date string, rt domain.RotationType) (*domain.ScheduleException, error) {
	return r.getException(ctx, date, rt)
}
func (r *fakeRotationRepo) AddException(ctx context.Context, e domain.ScheduleException) (*domain.ScheduleException, error) {
	return r.addException(ctx, e)
}
func (r *fakeRotationRepo) DeleteException(ctx context.Context, id string) error {
	return r.deleteException(ctx, id)
}
func (r *fakeRotationRepo) ListActiveLeads(ctx context.Context) ([]*domain.Employee, error) {
	return r.listActiveLeads(ctx)
}
func (r *fakeRotationRepo) ListWeekly(ctx context.Context) ([]domain.DailyRotation, error) {
	return r.listWeekly(ctx)
}

func ptr(s string) *string { return &s }

func TestRotationFor_ExceptionTakesPrecedenceOverWeekly(t *testing.T) {
	repo := &fakeRotationRepo{
		getException: func(_ context.Context, date string, rt domain.RotationType) (*domain.ScheduleException, error) {
			return &domain.ScheduleException{EmployeeID: "e-exception"}, nil
		},
		getWeekly: func(_ context.Context, _ int, _ domain.RotationType) (*domain.DailyRotation, error) {
			t.Fatal("weekly lookup should not run when an exception exists")
			return nil, nil
		},
	}
	m := rotation.NewManager(repo)

	got, err := m.RotationFor(context.Background(), "2026-08-03", 0, domain.RotationPrimaryJuicer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "e-exception" {
		t.Errorf("want e-exception, got %q", got)
	}
}

func TestRotationFor_FallsBackToWeekly(t *testing.T) {
	repo := &fakeRotationRepo{
		getException: func(_ context.Context, _ string, _ domain.RotationType) (*domain.ScheduleException, error) {
			return nil, nil
		},
		getWeekly: func(_ context.Context, weekday int, _ domain.RotationType) (*domain.DailyRotation, error) {
			return &domain.DailyRotation{Weekday: weekday, EmployeeID: ptr("e-weekly")}, nil
		},
	}
	m := rotation.NewManager(repo)

	got, err := m.RotationFor(context.Background(), "2026-08-03", 0, domain.RotationPrimaryJuicer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "e-weekly" {
		t.Errorf("want e-weekly, got %q", got)
	}
}

func TestRotationFor_NoneConfigured_ReturnsEmpty(t *testing.T) {
	repo := &fakeRotationRepo{
		getException: func(_ context.Context, _ string, _ domain.RotationType) (*domain.ScheduleException, error) {
			return nil, nil
		},
		getWeekly: func(_ context.Context, weekday int, rt domain.RotationType) (*domain.DailyRotation, error) {
			return &domain.DailyRotation{Weekday: weekday, RotationType: rt}, nil
		},
	}
	m := rotation.NewManager(repo)

	got, err := m.RotationFor(context.Background(), "2026-08-03", 0, domain.RotationPrimaryJuicer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Errorf("want empty string, got %q", got)
	}
}

func TestSetAllWeekly_RejectsUnknownRotationTypeWithoutWriting(t *testing.T) {
	wrote := false
	repo := &fakeRotationRepo{
		setAllWeekly: func(_ context.Context, _ []domain.DailyRotation) error {
			wrote = true
			return nil
		},
	}
	m := rotation.NewManager(repo)

	ok, errs := m.SetAllWeekly(context.Background(), []domain.DailyRotation{
		{Weekday: 0, RotationType: "bogus", EmployeeID: ptr("e1")},
	})
	if ok {
		t.Error("want ok=false")
	}
	if len(errs) == 0 {
		t.Error("want at least one validation error")
	}
	if wrote {
		t.Error("repo.SetAllWeekly should not run when validation fails")
	}
}

func TestSetAllWeekly_PropagatesRepoError(t *testing.T) {
	repoErr := errors.New("tx failed")
	repo := &fakeRotationRepo{
		setAllWeekly: func(_ context.Context, _ []domain.DailyRotation) error {
			return repoErr
		},
	}
	m := rotation.NewManager(repo)

	ok, errs := m.SetAllWeekly(context.Background(), []domain.DailyRotation{
		{Weekday: 0, RotationType: domain.RotationPrimaryJuicer, EmployeeID: ptr("e1")},
	})
	if ok {
		t.Error("want ok=false")
	}
	if len(errs) != 1 || !errors.Is(errs[0], repoErr) {
		t.Errorf("want wrapped repoErr, got %+v", errs)
	}
}

func TestSecondaryLeadFor_SkipsPrimaryLead(t *testing.T) {
	leads := []*domain.Employee{
		{ID: "e-a", JobTitle: domain.JobTitleLeadEventSpecialist},
		{ID: "e-b", JobTitle: domain.JobTitleLeadEventSpecialist},
	}
	repo := &fakeRotationRepo{
		getException: func(_ context.Context, _ string, _ domain.RotationType) (*domain.ScheduleException, error) {
			return nil, nil
		},
		getWeekly: func(_ context.Context, weekday int, _ domain.RotationType) (*domain.DailyRotation, error) {
			return &domain.DailyRotation{Weekday: weekday, EmployeeID: ptr("e-a")}, nil
		},
		listActiveLeads: func(_ context.Context) ([]*domain.Employee, error) {
			return leads, nil
		},
	}
	m := rotation.NewManager(repo)

	got, err := m.SecondaryLeadFor(context.Background(), "2026-08-03", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "e-b" {
		t.Errorf("want e-b, got %q", got)
	}
}

func TestSecondaryLeadFor_NoOtherLead_ReturnsEmpty(t *testing.T) {
	leads := []*domain.Employee{
		{ID: "e-a", JobTitle: domain.JobTitleLeadEventSpecialist},
	}
	repo := &fakeRotationRepo{
		getException: func(_ context.Context, _ string, _ domain.RotationType) (*domain.ScheduleException, error) {
			return nil, nil
		},
		getWeekly: func(_ context.Context, weekday int, _ domain.RotationType) (*domain.DailyRotation, error) {
			return &domain.DailyRotation{Weekday: weekday, EmployeeID: ptr("e-a")}, nil
		},
		listActiveLeads: func(_ context.Context) ([]*domain.Employee, error) {
			return leads, nil
		},
	}
	m := rotation.NewManager(repo)

	got, err := m.SecondaryLeadFor(context.Background(), "2026-08-03", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Errorf("want empty string, got %q", got)
	}
}
