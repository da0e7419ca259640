// Package constraint answers "may employee E take event V at time T"
// against the fixed taxonomy of hard/soft rules spec §4.2 defines.
//
// Per design note 9 ("dynamic-dispatch replacement"), the constraint set
// is closed: each rule is a tagged variant with a pure check function,
// composed as a plain slice rather than a polymorphic hierarchy.
package constraint

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/domain"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/repository"
)

// Kind distinguishes constraints that prohibit an assignment from those
// that merely reduce its desirability.
type Kind string

const (
	KindHard Kind = "hard"
	KindSoft Kind = "soft"
)

// Tag names one constraint in the fixed taxonomy.
type Tag string

const (
	TagTimeOff           Tag = "time_off"
	TagAvailability      Tag = "availability"
	TagRoleRequirement    Tag = "role_requirement"
	TagDailyCoreCap       Tag = "daily_core_cap"
	TagConflict           Tag = "conflict"
	TagDueDate            Tag = "due_date"
	TagClubSupervisorPref Tag = "club_supervisor_preference"
)

// Violation describes one failed constraint.
type Violation struct {
	Tag     Tag
	Kind    Kind
	Message string
}

// Candidate bundles the (event, employee, datetime) tuple the validator
// checks against.
type Candidate struct {
	Event      domain.Event
	Employee   domain.Employee
	At         time.Time
}

// Options carries the one documented policy toggle (spec §9, open
// question #2): whether the noon Club Supervisor "Other"/"Supervisor"
// slot is exempt from the overlap-conflict check.
type Options struct {
	ClubSupervisorNoonExemptFromConflict bool
}

func DefaultOptions() Options {
	return Options{ClubSupervisorNoonExemptFromConflict: true}
}

// Validator evaluates candidates against the fixed taxonomy, reading
// availability/time-off/existing-schedule state from the repositories.
type Validator struct {
	employees repository.EmployeeRepository
	opts      Options
}

func New(employees repository.EmployeeRepository, opts Options) *Validator {
	return &Validator{employees: employees, opts: opts}
}

// Check returns every violation the candidate triggers, hard ones first.
func (v *Validator) Check(ctx context.Context, c Candidate) ([]Violation, error) {
	date := dateKey(c.At)

	var out []Violation

	timeOff, err := v.employees.TimeOffOn(ctx, c.Employee.ID, date)
	if err != nil {
		return nil, fmt.Errorf("check time off: %w", err)
	}
	if timeOff != nil {
		out = append(out, Violation{Tag: TagTimeOff, Kind: KindHard,
			Message: fmt.Sprintf("%s is on time off %s..%s", c.Employee.ID, timeOff.StartDate, timeOff.EndDate)})
	}

	within, err := v.withinAvailability(ctx, c.Employee.ID, date, c.At)
	if err != nil {
		return nil, fmt.Errorf("check availability: %w", err)
	}
	if !within {
		out = append(out, Violation{Tag: TagAvailability, Kind: KindHard,
			Message: fmt.Sprintf("%s is not available at %s on %s", c.Employee.ID, c.At.Format("15:04"), date)})
	}

	if !roleSatisfies(c.Event.EventType, c.Employee) {
		out = append(out, Violation{Tag: TagRoleRequirement, Kind: KindHard,
			Message: fmt.Sprintf("%s's role does not permit %s events", c.Employee.JobTitle, c.Event.EventType)})
	}

	existing, err := v.employees.ExistingSchedulesOn(ctx, c.Employee.ID, date)
	if err != nil {
		return nil, fmt.Errorf("check existing schedules: %w", err)
	}

	if c.Event.EventType == domain.EventTypeCore {
		for _, se := range existing {
			if se.EventType == domain.EventTypeCore && se.EventRefNum != c.Event.ProjectRefNum {
				out = append(out, Violation{Tag: TagDailyCoreCap, Kind: KindHard,
					Message: fmt.Sprintf("%s already has a Core event on %s", c.Employee.ID, date)})
				break
			}
		}
	}

	exemptNoon := v.opts.ClubSupervisorNoonExemptFromConflict &&
		c.Employee.JobTitle == domain.JobTitleClubSupervisor &&
		(c.Event.EventType == domain.EventTypeOther || c.Event.EventType == domain.EventTypeSupervisor) &&
		c.At.Hour() == 12 && c.At.Minute() == 0

	if !exemptNoon {
		for _, se := range existing {
			if se.EventRefNum == c.Event.ProjectRefNum {
				continue
			}
			sched := domain.Schedule{ScheduleDatetime: se.ScheduleDatetime}
			if sched.Overlaps(se.EstimatedMinutes, c.At, c.Event.EstimatedMinutesOrDefault()) {
				out = append(out, Violation{Tag: TagConflict, Kind: KindHard,
					Message: fmt.Sprintf("%s already has event %d at %s overlapping this slot",
						c.Employee.ID, se.EventRefNum, se.ScheduleDatetime.Format("15:04"))})
				break
			}
		}
	}

	if dateKey(c.At) > dateKey(c.Event.DueDatetime) {
		out = append(out, Violation{Tag: TagDueDate, Kind: KindHard,
			Message: fmt.Sprintf("%s is past due date %s", date, dateKey(c.Event.DueDatetime))})
	}

	if c.Event.EventType == domain.EventTypeCore && c.Employee.JobTitle == domain.JobTitleClubSupervisor {
		out = append(out, Violation{Tag: TagClubSupervisorPref, Kind: KindSoft,
			Message: "prefer a non-Supervisor employee for regular Core events"})
	}

	return out, nil
}

// HasHard reports whether any violation in the list is hard.
func HasHard(violations []Violation) bool {
	for _, v := range violations {
		if v.Kind == KindHard {
			return true
		}
	}
	return false
}

// FirstHard returns the first hard violation, for failure-reason text.
func FirstHard(violations []Violation) *Violation {
	for _, v := range violations {
		if v.Kind == KindHard {
			return &v
		}
	}
	return nil
}

func roleSatisfies(t domain.EventType, e domain.Employee) bool {
	switch t {
	case domain.EventTypeJuicer:
		return e.CanWorkJuicer()
	case domain.EventTypeSupervisor, domain.EventTypeDigitalSetup, domain.EventTypeDigitalRefresh,
		domain.EventTypeDigitalTeardown, domain.EventTypeDigitals, domain.EventTypeFreeosk:
		return e.CanWorkLeadRole()
	default:
		return true
	}
}

func (v *Validator) withinAvailability(ctx context.Context, employeeID, date string, at time.Time) (bool, error) {
	override, err := v.employees.DateAvailability(ctx, employeeID, date)
	if err != nil {
		return false, err
	}
	if override != nil {
		return override.Available && withinWindow(at, override.WindowStart, override.WindowEnd), nil
	}

	weekly, err := v.employees.WeeklyAvailability(ctx, employeeID)
	if err != nil {
		return false, err
	}
	weekday := isoWeekday(at)
	for _, w := range weekly {
		if w.Weekday == weekday {
			return w.Available && withinWindow(at, w.WindowStart, w.WindowEnd), nil
		}
	}
	// Missing pattern means unavailable (spec §4.2).
	return false, nil
}

func withinWindow(at time.Time, start, end string) bool {
	t := at.Format("15:04")
	return t >= start && t <= end
}

// isoWeekday returns 0=Monday .. 6=Sunday, unlike time.Weekday's 0=Sunday.
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	return (wd + 6) % 7
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// CandidatesFor returns every active employee with no hard violation for
// (event, at), in the stable order spec §4.2 requires: job-title
// priority (Lead before Event Specialist for Core) then id ascending,
// with the Primary Lead elevated to the front for Core events.
func (v *Validator) CandidatesFor(ctx context.Context, event domain.Event, at time.Time, primaryLeadID string) ([]domain.Employee, error) {
	all, err := v.employees.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active employees: %w", err)
	}

	var feasible []domain.Employee
	for _, e := range all {
		violations, err := v.Check(ctx, Candidate{Event: event, Employee: *e, At: at})
		if err != nil {
			return nil, err
		}
		if !HasHard(violations) {
			feasible = append(feasible, *e)
		}
	}

	sort.SliceStable(feasible, func(i, j int) bool {
		pi, pj := titlePriority(event.EventType, feasible[i].JobTitle), titlePriority(event.EventType, feasible[j].JobTitle)
		if pi != pj {
			return pi < pj
		}
		return feasible[i].ID < feasible[j].ID
	})

	if event.EventType == domain.EventTypeCore && primaryLeadID != "" {
		for i, e := range feasible {
			if e.ID == primaryLeadID {
				feasible = append([]domain.Employee{e}, append(feasible[:i:i], feasible[i+1:]...)...)
				break
			}
		}
	}

	return feasible, nil
}

func titlePriority(eventType domain.EventType, title domain.JobTitle) int {
	if eventType != domain.EventTypeCore {
		return 0
	}
	if title == domain.JobTitleLeadEventSpecialist {
		return 0
	}
	return 1
}
