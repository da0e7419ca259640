package domain

import (
	"errors"
	"time"
)

var (
	ErrPendingScheduleNotFound = errors.New("pending schedule not found")
	ErrPendingScheduleNotOpen  = errors.New("pending schedule is not in an editable state")
)

// PendingStatus is the approval-workflow state of a proposed assignment.
type PendingStatus string

const (
	PendingStatusProposed    PendingStatus = "proposed"
	PendingStatusEdited      PendingStatus = "edited"
	PendingStatusApproved    PendingStatus = "approved"
	PendingStatusRejected    PendingStatus = "rejected"
	PendingStatusAPISubmitted PendingStatus = "api_submitted"
	PendingStatusAPIFailed   PendingStatus = "api_failed"
)

// PendingSchedule is a proposed assignment awaiting human review. It
// never becomes a Schedule directly — approval produces a Schedule and
// transitions this record to api_submitted after the push is enqueued.
type PendingSchedule struct {
	ID           string
	RunID        string
	EventRefNum  int
	EmployeeID   *string // nullable if the proposal failed
	ScheduleTime *time.Time

	Status        PendingStatus
	IsSwap        bool
	SwapReason    *string
	// DisplacedEventRefNum identifies the existing Event whose Schedule
	// must be soft-unscheduled on approval, set only when IsSwap is true.
	DisplacedEventRefNum *int
	FailureReason        *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Open reports whether the proposal may still be edited.
func (p PendingSchedule) Open() bool {
	return p.Status == PendingStatusProposed || p.Status == PendingStatusEdited
}

// Failed reports whether the scheduling engine could not produce an
// assignment for this event during the run.
func (p PendingSchedule) Failed() bool {
	return p.EmployeeID == nil || p.ScheduleTime == nil
}
