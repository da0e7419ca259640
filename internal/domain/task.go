package domain

import (
	"errors"
	"time"
)

var ErrTaskNotFound = errors.New("task not found")

// TaskKind is the fixed family of background jobs C8 hosts. Each is
// idempotent with respect to its logical effect (spec §4.7).
type TaskKind string

const (
	TaskPushNew    TaskKind = "push_new"
	TaskPushUpdate TaskKind = "push_update"
	TaskPushDelete TaskKind = "push_delete"
	TaskPullEvents TaskKind = "pull_events"
)

// TaskStatus mirrors the Job lifecycle the teacher's worker/reaper pair
// drives: pending -> running -> completed|failed, with reschedule for
// retries.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// Task is one unit of background work against the upstream system.
// Payload carries kind-specific identifiers: push_new/push_update carry
// ScheduleID, push_delete carries ExternalID (the upstream assignment
// id to delete). pull_events carries nothing.
//
// Per spec §5, a task reads the current Schedule row at execution time
// rather than trusting parameters frozen at enqueue time; ScheduleID is
// therefore the only durable input push_update needs; the task carries
// no employee or datetime of its own.
type Task struct {
	ID         string
	Kind       TaskKind
	ScheduleID *string
	ExternalID *string

	Status     TaskStatus
	Attempts   int
	MaxRetries int
	RunAt      time.Time

	ClaimedAt   *time.Time
	ClaimedBy   *string
	HeartbeatAt *time.Time
	CompletedAt *time.Time
	LastError   *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
