package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/constraint"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/domain"
)

// phase2 fills the Core rotating slot list for one event: the Primary
// Lead gets first claim on 09:45, then the run's per-date slot counter
// cycles through the remaining slots trying candidates in priority
// order, then the resolver is asked for a swap before the event is
// marked failed.
func (e *Engine) phase2(ctx context.Context, ev *domain.Event, now time.Time, state *runState) (*domain.PendingSchedule, error) {
	targetDate := dateOnly(ev.StartDatetime)
	dateStr := targetDate.Format("2006-01-02")
	weekday := isoWeekday(targetDate)

	primaryLead, err := e.rotation.RotationFor(ctx, dateStr, weekday, domain.RotationPrimaryLead)
	if err != nil {
		return nil, fmt.Errorf("resolve primary lead: %w", err)
	}

	if primaryLead != "" && !state.slot0945Used[dateStr] {
		at0945, err := atTime(targetDate, e.cfg.CoreSlots[0])
		if err != nil {
			return nil, err
		}
		emp, err := e.employees.GetByID(ctx, primaryLead)
		if err != nil && !errors.Is(err, domain.ErrEmployeeNotFound) {
			return nil, fmt.Errorf("load primary lead: %w", err)
		}
		if emp != nil {
			violations, err := e.validator.Check(ctx, constraint.Candidate{Event: *ev, Employee: *emp, At: at0945})
			if err != nil {
				return nil, err
			}
			if !constraint.HasHard(violations) {
				state.slot0945Used[dateStr] = true
				state.slotIndex[dateStr] = 1
				return e.assign(*ev, emp.ID, at0945, false, nil), nil
			}
		}
	}

	idx := state.slotIndex[dateStr] % len(e.cfg.CoreSlots)
	at, err := atTime(targetDate, e.cfg.CoreSlots[idx])
	if err != nil {
		return nil, err
	}
	state.slotIndex[dateStr] = (idx + 1) % len(e.cfg.CoreSlots)
	if idx == 0 {
		state.slot0945Used[dateStr] = true
	}

	candidates, err := e.validator.CandidatesFor(ctx, *ev, at, primaryLead)
	if err != nil {
		return nil, err
	}
	if len(candidates) > 0 {
		return e.assign(*ev, candidates[0].ID, at, false, nil), nil
	}

	return e.swapOrFail(ctx, ev, dateStr, at, now)
}

// swapOrFail is phase2's steps 3 and 4: try every active employee for a
// resolver swap, and failing that, report the dominant hard-violation
// reason observed across the attempted candidates.
func (e *Engine) swapOrFail(ctx context.Context, ev *domain.Event, dateStr string, at time.Time, now time.Time) (*domain.PendingSchedule, error) {
	active, err := e.employees.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active employees: %w", err)
	}

	var dominant string
	for _, emp := range active {
		proposal, err := e.resolver.Resolve(ctx, *ev, dateStr, emp.ID, now)
		if err != nil {
			return nil, fmt.Errorf("resolve swap for %s: %w", emp.ID, err)
		}
		if proposal != nil {
			reason := proposal.Reason
			displaced := proposal.Displaced.EventRefNum
			return e.assignSwap(*ev, emp.ID, at, true, &reason, &displaced), nil
		}

		violations, err := e.validator.Check(ctx, constraint.Candidate{Event: *ev, Employee: *emp, At: at})
		if err != nil {
			return nil, err
		}
		if v := constraint.FirstHard(violations); v != nil && dominant == "" {
			dominant = v.Message
		}
	}

	if dominant == "" {
		dominant = fmt.Sprintf("no feasible employee or swap for Core event on %s", dateStr)
	}
	return e.failProposal(*ev, dominant), nil
}
