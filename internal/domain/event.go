package domain

import (
	"errors"
	"regexp"
	"time"
)

var ErrEventNotFound = errors.New("event not found")

// EventType is the fixed taxonomy of work this system schedules.
type EventType string

const (
	EventTypeCore            EventType = "Core"
	EventTypeSupervisor      EventType = "Supervisor"
	EventTypeJuicer          EventType = "Juicer"
	EventTypeDigitalSetup    EventType = "Digital Setup"
	EventTypeDigitalRefresh  EventType = "Digital Refresh"
	EventTypeDigitalTeardown EventType = "Digital Teardown"
	EventTypeDigitals        EventType = "Digitals"
	EventTypeFreeosk         EventType = "Freeosk"
	EventTypeOther           EventType = "Other"
)

// EventCondition tracks an event's staffing lifecycle on the upstream side.
type EventCondition string

const (
	EventConditionUnstaffed EventCondition = "Unstaffed"
	EventConditionScheduled EventCondition = "Scheduled"
	EventConditionSubmitted EventCondition = "Submitted"
	EventConditionReissued  EventCondition = "Reissued"
)

// eventNumberPattern matches the first contiguous run of 6 digits in a
// project name; this is the derived foreign key linking Supervisor
// events to their parent Core event (spec §3, §9).
var eventNumberPattern = regexp.MustCompile(`\d{6}`)

// Event is a unit of retail work to be performed on a date window.
type Event struct {
	ProjectRefNum     int
	ExternalID        string // upstream "mPlan" identity, required to push
	LocationMVID      string // upstream location identity, required to push
	ProjectName       string
	EventType         EventType
	StartDatetime     time.Time
	DueDatetime       time.Time
	EstimatedMinutes  int
	IsScheduled       bool
	Condition         EventCondition
}

// EventNumber returns the first contiguous 6-digit substring of the
// project name, or "" if none exists.
func (e Event) EventNumber() string {
	return eventNumberPattern.FindString(e.ProjectName)
}

// Schedulable reports whether the event may be scheduled on date d.
func (e Event) Schedulable(d time.Time) bool {
	day := dateOnly(d)
	return !day.Before(dateOnly(e.StartDatetime)) && !day.After(dateOnly(e.DueDatetime))
}

// EstimatedMinutesOrDefault returns EstimatedMinutes, defaulting to 60.
func (e Event) EstimatedMinutesOrDefault() int {
	if e.EstimatedMinutes <= 0 {
		return 60
	}
	return e.EstimatedMinutes
}

func (e Event) CanPushUpstream() bool {
	return e.ExternalID != "" && e.LocationMVID != ""
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EventTypePriority implements spec §4.4's event-type ordering for the
// scheduling window: lower sorts first.
func EventTypePriority(t EventType) int {
	switch t {
	case EventTypeJuicer:
		return 1
	case EventTypeDigitalSetup:
		return 2
	case EventTypeDigitalRefresh:
		return 3
	case EventTypeFreeosk:
		return 4
	case EventTypeDigitalTeardown:
		return 5
	case EventTypeCore:
		return 6
	case EventTypeSupervisor:
		return 7
	case EventTypeDigitals:
		return 8
	default:
		return 9
	}
}
