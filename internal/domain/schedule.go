package domain

import (
	"errors"
	"time"
)

var (
	ErrScheduleNotFound  = errors.New("schedule not found")
	ErrScheduleConflict  = errors.New("event already has a schedule")
)

// SyncStatus tracks a Schedule's reconciliation state with the upstream
// system of record.
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusFailed  SyncStatus = "failed"
)

// Schedule is a committed assignment of one Employee to one Event.
// Invariant: at most one Schedule exists per Event (enforced by a unique
// index on event_ref_num at the storage layer).
type Schedule struct {
	ID               string
	EventRefNum      int
	EmployeeID       string
	ScheduleDatetime time.Time

	SyncStatus      SyncStatus
	LastSynced      *time.Time
	APIErrorDetails *string
	UpstreamID      string // the id returned by the upstream create, tracked before ack for idempotent retries

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Overlaps reports whether [s.ScheduleDatetime, +minutes) intersects
// [start, start+otherMinutes).
func (s Schedule) Overlaps(eventMinutes int, start time.Time, otherMinutes int) bool {
	aStart := s.ScheduleDatetime
	aEnd := aStart.Add(time.Duration(eventMinutes) * time.Minute)
	bStart := start
	bEnd := bStart.Add(time.Duration(otherMinutes) * time.Minute)
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
