package domain

import "time"

// ScheduledEvent is the join of a Schedule with the Event-derived fields
// the constraint validator needs to evaluate daily caps and conflicts,
// without forcing every repository to return full Event graphs.
type ScheduledEvent struct {
	ScheduleID       string
	EventRefNum      int
	EventType        EventType
	ScheduleDatetime time.Time
	EstimatedMinutes int
	DueDatetime      time.Time
	EmployeeID       string
}
