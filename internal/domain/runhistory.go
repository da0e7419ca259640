package domain

import (
	"errors"
	"time"
)

var (
	ErrRunNotFound      = errors.New("scheduler run not found")
	ErrRunInProgress    = errors.New("a scheduler run is already in progress")
	ErrRunNotRunning    = errors.New("run is not in the running state")
	ErrRunNotReviewable = errors.New("run has not finished successfully and cannot be approved or rejected")
)

// RunType distinguishes an operator-triggered run from the periodic one.
type RunType string

const (
	RunTypeManual   RunType = "manual"
	RunTypePeriodic RunType = "periodic"
)

// RunState is the lifecycle of a SchedulerRunHistory row. Exactly one row
// may be in RunStateRunning at a time (spec §4.4), enforced by the
// repository's StartRun via a partial unique index.
type RunState string

const (
	RunStateRunning RunState = "running"
	RunStateSuccess RunState = "success"
	RunStateFailed  RunState = "failed"
)

// RunHistory records one execution of the scheduling engine.
type RunHistory struct {
	ID        string
	StartedAt time.Time
	EndedAt   *time.Time
	RunType   RunType
	State     RunState

	TotalProcessed  int
	Scheduled       int
	RequiringSwaps  int
	Failed          int
	ErrorMessage    *string
}

// Balanced reports the spec §8 invariant that the three outcome counters
// sum to the total processed, which must hold whenever State is success.
func (r RunHistory) Balanced() bool {
	return r.Scheduled+r.RequiringSwaps+r.Failed == r.TotalProcessed
}
