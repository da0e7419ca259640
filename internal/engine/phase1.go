package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/constraint"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/domain"
)

// phase1 assigns the rotation-designated employee to a Juicer, Digital
// Setup, Digital Refresh, Freeosk, or Digital Teardown event, falling
// back to any other role-eligible employee and then to the Club
// Supervisor before giving up.
func (e *Engine) phase1(ctx context.Context, ev *domain.Event, now time.Time) (*domain.PendingSchedule, error) {
	targetDate := dateOnly(ev.StartDatetime)
	dateStr := targetDate.Format("2006-01-02")
	weekday := isoWeekday(targetDate)

	defaultTime, ok := e.cfg.DefaultTimes[ev.EventType]
	if !ok {
		return nil, fmt.Errorf("no default time configured for event type %s", ev.EventType)
	}
	at, err := atTime(targetDate, defaultTime)
	if err != nil {
		return nil, err
	}

	var rotationEmployeeID string
	switch ev.EventType {
	case domain.EventTypeJuicer:
		rotationEmployeeID, err = e.rotation.RotationFor(ctx, dateStr, weekday, domain.RotationPrimaryJuicer)
	case domain.EventTypeDigitalTeardown:
		rotationEmployeeID, err = e.rotation.SecondaryLeadFor(ctx, dateStr, weekday)
	default: // Digital Setup, Digital Refresh, Freeosk
		rotationEmployeeID, err = e.rotation.RotationFor(ctx, dateStr, weekday, domain.RotationPrimaryLead)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve rotation: %w", err)
	}

	var firstHardMsg string
	if rotationEmployeeID != "" {
		emp, err := e.employees.GetByID(ctx, rotationEmployeeID)
		if err != nil && !errors.Is(err, domain.ErrEmployeeNotFound) {
			return nil, fmt.Errorf("load rotation employee: %w", err)
		}
		if emp != nil {
			violations, err := e.validator.Check(ctx, constraint.Candidate{Event: *ev, Employee: *emp, At: at})
			if err != nil {
				return nil, err
			}
			if !constraint.HasHard(violations) {
				return e.assign(*ev, emp.ID, at, false, nil), nil
			}
			if v := constraint.FirstHard(violations); v != nil {
				firstHardMsg = v.Message
			}
		}
	}

	// Fallback (a): any other active employee satisfying the role constraint.
	candidates, err := e.validator.CandidatesFor(ctx, *ev, at, "")
	if err != nil {
		return nil, err
	}
	for _, c := range candidates {
		if c.ID == rotationEmployeeID {
			continue
		}
		return e.assign(*ev, c.ID, at, false, nil), nil
	}

	// Fallback (b): the Club Supervisor at the event's default time.
	active, err := e.employees.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active employees: %w", err)
	}
	for _, emp := range active {
		if emp.JobTitle != domain.JobTitleClubSupervisor {
			continue
		}
		violations, err := e.validator.Check(ctx, constraint.Candidate{Event: *ev, Employee: *emp, At: at})
		if err != nil {
			return nil, err
		}
		if !constraint.HasHard(violations) {
			return e.assign(*ev, emp.ID, at, false, nil), nil
		}
	}

	if firstHardMsg == "" {
		firstHardMsg = fmt.Sprintf("no rotation assignment available for %s on %s", ev.EventType, dateStr)
	}
	return e.failProposal(*ev, firstHardMsg), nil
}
