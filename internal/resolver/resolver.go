// Package resolver ranks already-scheduled events by how safely they
// can be displaced to make room for a higher-priority one, and proposes
// swaps when no open slot exists.
package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/constraint"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/domain"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/repository"
)

// minBumpableUrgencyDays excludes anything due too soon from ever being
// displaced, regardless of how much less urgent the incoming event is.
const minBumpableUrgencyDays = 2

// Candidate pairs a scheduled event with its urgency, ordered so that
// index 0 is the safest to bump (least urgent).
type Candidate struct {
	Schedule domain.ScheduledEvent
	Urgency  int
}

// SwapProposal describes displacing an existing schedule to make room
// for a new, more urgent event.
type SwapProposal struct {
	Incoming  domain.Event
	Displaced domain.ScheduledEvent
	Reason    string
}

type Resolver struct {
	schedules repository.ScheduleRepository
	validator *constraint.Validator
}

func New(schedules repository.ScheduleRepository, validator *constraint.Validator) *Resolver {
	return &Resolver{schedules: schedules, validator: validator}
}

// Urgency returns days-until-due relative to reference, with lower
// meaning more urgent. Negative values mean the event is already past
// due as of reference.
func Urgency(due time.Time, reference time.Time) int {
	d := dateOnly(due).Sub(dateOnly(reference))
	return int(d.Hours() / 24)
}

// Bumpable returns the schedules on date D (optionally restricted to
// employee E) eligible to be displaced, sorted least-urgent first.
func (r *Resolver) Bumpable(ctx context.Context, date string, employeeID *string, reference time.Time) ([]Candidate, error) {
	scheduled, err := r.schedules.Bumpable(ctx, date, employeeID)
	if err != nil {
		return nil, fmt.Errorf("load bumpable schedules: %w", err)
	}

	var out []Candidate
	for _, se := range scheduled {
		if se.EventType == domain.EventTypeSupervisor {
			continue
		}
		urgency := Urgency(se.DueDatetime, reference)
		if urgency < minBumpableUrgencyDays {
			continue
		}
		out = append(out, Candidate{Schedule: se, Urgency: urgency})
	}

	// Least urgent (highest urgency number) first.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Urgency > out[j-1].Urgency; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

// Resolve finds the most-bumpable schedule on (D, E) whose urgency is
// strictly greater than incoming's, and returns a proposal to displace
// it. Returns nil, nil if no such schedule exists.
func (r *Resolver) Resolve(ctx context.Context, incoming domain.Event, date string, employeeID string, reference time.Time) (*SwapProposal, error) {
	incomingUrgency := Urgency(incoming.DueDatetime, reference)

	candidates, err := r.Bumpable(ctx, date, &employeeID, reference)
	if err != nil {
		return nil, err
	}

	for _, c := range candidates {
		if c.Urgency > incomingUrgency {
			return &SwapProposal{
				Incoming:  incoming,
				Displaced: c.Schedule,
				Reason: fmt.Sprintf("displaced event %d (due in %d days) to make room for event %d (due in %d days)",
					c.Schedule.EventRefNum, c.Urgency, incoming.ProjectRefNum, incomingUrgency),
			}, nil
		}
	}
	return nil, nil
}

// AlternativeDates enumerates working dates in [start, due] other than
// exclude on which (event, employee, defaultTime-of-day) has no hard
// violation.
func (r *Resolver) AlternativeDates(ctx context.Context, event domain.Event, employee domain.Employee, exclude time.Time, defaultTimeOfDay string) ([]time.Time, error) {
	hh, mm, err := parseHHMM(defaultTimeOfDay)
	if err != nil {
		return nil, fmt.Errorf("parse default time: %w", err)
	}

	start := dateOnly(event.StartDatetime)
	due := dateOnly(event.DueDatetime)
	excludeDate := dateOnly(exclude)

	var out []time.Time
	for d := start; !d.After(due); d = d.AddDate(0, 0, 1) {
		if d.Equal(excludeDate) {
			continue
		}
		at := time.Date(d.Year(), d.Month(), d.Day(), hh, mm, 0, 0, d.Location())

		violations, err := r.validator.Check(ctx, constraint.Candidate{Event: event, Employee: employee, At: at})
		if err != nil {
			return nil, fmt.Errorf("check candidate date %s: %w", d.Format("2006-01-02"), err)
		}
		if !constraint.HasHard(violations) {
			out = append(out, at)
		}
	}
	return out, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func parseHHMM(s string) (int, int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}
