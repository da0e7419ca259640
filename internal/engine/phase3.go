package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/constraint"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/domain"
)

// phase3 pairs a Supervisor event to the Core event sharing its 6-digit
// event number, scheduling it at noon on the matched Core event's date
// with the Club Supervisor, or failing that, the Lead already working
// the Core event.
func (e *Engine) phase3(ctx context.Context, ev *domain.Event, now time.Time) (*domain.PendingSchedule, error) {
	num := ev.EventNumber()
	if num == "" {
		return e.failProposal(*ev, "no matching Core event"), nil
	}

	coreEvent, err := e.events.FindByEventNumber(ctx, num, domain.EventTypeCore)
	if err != nil {
		return nil, fmt.Errorf("find matching core event: %w", err)
	}
	if coreEvent == nil {
		return e.failProposal(*ev, "no matching Core event"), nil
	}

	coreSchedule, err := e.schedules.GetByEventRefNum(ctx, coreEvent.ProjectRefNum)
	if err != nil {
		if errors.Is(err, domain.ErrScheduleNotFound) {
			return e.failProposal(*ev, "no matching Core event"), nil
		}
		return nil, fmt.Errorf("load core schedule: %w", err)
	}

	targetDate := dateOnly(coreSchedule.ScheduleDatetime)
	at, err := atTime(targetDate, "12:00")
	if err != nil {
		return nil, err
	}

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

	coreLead, err := e.employees.GetByID(ctx, coreSchedule.EmployeeID)
	if err != nil && !errors.Is(err, domain.ErrEmployeeNotFound) {
		return nil, fmt.Errorf("load core event's lead: %w", err)
	}
	if coreLead != nil {
		violations, err := e.validator.Check(ctx, constraint.Candidate{Event: *ev, Employee: *coreLead, At: at})
		if err != nil {
			return nil, err
		}
		if !constraint.HasHard(violations) {
			return e.assign(*ev, coreLead.ID, at, false, nil), nil
		}
	}

	return e.failProposal(*ev, "supervisor slot unavailable"), nil
}
