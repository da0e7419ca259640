package domain

import "errors"

var (
	ErrEmployeeNotFound = errors.New("employee not found")
)

// JobTitle enumerates the roles a capability check can key off of.
type JobTitle string

const (
	JobTitleEventSpecialist     JobTitle = "Event Specialist"
	JobTitleLeadEventSpecialist JobTitle = "Lead Event Specialist"
	JobTitleClubSupervisor      JobTitle = "Club Supervisor"
	JobTitleJuicerBarista       JobTitle = "Juicer Barista"
)

// Employee is a member of the scheduling roster.
type Employee struct {
	ID         string
	ExternalID string // required before an assignment referencing this employee may be pushed upstream
	Name       string
	JobTitle   JobTitle
	IsActive   bool
}

// CanWorkJuicer reports whether the employee may be assigned a Juicer event.
func (e Employee) CanWorkJuicer() bool {
	return e.JobTitle == JobTitleJuicerBarista
}

// CanWorkLeadRole reports whether the employee may be assigned Supervisor,
// Digital, or Freeosk events.
func (e Employee) CanWorkLeadRole() bool {
	return e.JobTitle == JobTitleLeadEventSpecialist || e.JobTitle == JobTitleClubSupervisor
}

// CanPushUpstream reports whether the employee carries the identity
// required to appear in an upstream push.
func (e Employee) CanPushUpstream() bool {
	return e.ExternalID != ""
}
