// Package rotation resolves which employee defaults into a rotating
// role (Juicer, Lead) on a given day, with per-date exceptions taking
// precedence over the weekly pattern.
package rotation

import (
	"context"
	"fmt"

	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/domain"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/repository"
)

type Manager struct {
	repo repository.RotationRepository
}

func NewManager(repo repository.RotationRepository) *Manager {
	return &Manager{repo: repo}
}

// RotationFor resolves the employee assigned to rotationType on date,
// checking the per-date exception before falling back to the weekly
// pattern. Returns "" if neither names anyone.
func (m *Manager) RotationFor(ctx context.Context, date string, weekday int, rotationType domain.RotationType) (string, error) {
	exc, err := m.repo.GetException(ctx, date, rotationType)
	if err != nil {
		return "", fmt.Errorf("get exception: %w", err)
	}
	if exc != nil {
		return exc.EmployeeID, nil
	}

	weekly, err := m.repo.GetWeekly(ctx, weekday, rotationType)
	if err != nil {
		return "", fmt.Errorf("get weekly rotation: %w", err)
	}
	if weekly.EmployeeID == nil {
		return "", nil
	}
	return *weekly.EmployeeID, nil
}

// ListWeekly returns the full weekday x rotation_type grid for the
// `GET rotations` consumer endpoint (spec §6).
func (m *Manager) ListWeekly(ctx context.Context) ([]domain.DailyRotation, error) {
	entries, err := m.repo.ListWeekly(ctx)
	if err != nil {
		return nil, fmt.Errorf("list weekly rotations: %w", err)
	}
	return entries, nil
}

func (m *Manager) SetWeekly(ctx context.Context, weekday int, rotationType domain.RotationType, employeeID string) error {
	if rotationType != domain.RotationPrimaryJuicer && rotationType != domain.RotationPrimaryLead {
		return domain.ErrUnknownRotationType
	}
	return m.repo.SetWeekly(ctx, weekday, rotationType, employeeID)
}

// SetAllWeekly applies entries atomically, collecting any per-entry
// validation errors so the caller can report all of them at once
// without requiring a fully consistent map on the first attempt.
func (m *Manager) SetAllWeekly(ctx context.Context, entries []domain.DailyRotation) (bool, []error) {
	var errs []error
	for _, e := range entries {
		if e.RotationType != domain.RotationPrimaryJuicer && e.RotationType != domain.RotationPrimaryLead {
			errs = append(errs, fmt.Errorf("%w: %s", domain.ErrUnknownRotationType, e.RotationType))
		}
		if e.Weekday < 0 || e.Weekday > 6 {
			errs = append(errs, fmt.Errorf("weekday out of range: %d", e.Weekday))
		}
	}
	if len(errs) > 0 {
		return false, errs
	}

	if err := m.repo.SetAllWeekly(ctx, entries); err != nil {
		return false, []error{err}
	}
	return true, nil
}

func (m *Manager) AddException(ctx context.Context, e domain.ScheduleException) (*domain.ScheduleException, error) {
	if e.RotationType != domain.RotationPrimaryJuicer && e.RotationType != domain.RotationPrimaryLead {
		return nil, domain.ErrUnknownRotationType
	}
	return m.repo.AddException(ctx, e)
}

func (m *Manager) DeleteException(ctx context.Context, id string) error {
	return m.repo.DeleteException(ctx, id)
}

// SecondaryLeadFor names an active Lead Event Specialist other than the
// day's Primary Lead, for pairing a second Supervisor event. Ties break
// on the lowest employee id, matching ListActiveLeads' ordering.
func (m *Manager) SecondaryLeadFor(ctx context.Context, date string, weekday int) (string, error) {
	primary, err := m.RotationFor(ctx, date, weekday, domain.RotationPrimaryLead)
	if err != nil {
		return "", fmt.Errorf("resolve primary lead: %w", err)
	}

	leads, err := m.repo.ListActiveLeads(ctx)
	if err != nil {
		return "", fmt.Errorf("list active leads: %w", err)
	}

	for _, l := range leads {
		if l.ID != primary {
			return l.ID, nil
		}
	}
	return "", nil
}
