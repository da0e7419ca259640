package handler

const (
	errInternalServer      = "Internal server error"
	errEmployeeNotFound    = "Employee not found"
	errEventNotFound       = "Event not found"
	errScheduleNotFound    = "Schedule not found"
	errScheduleConflict    = "Event already has a schedule"
	errPendingNotFound     = "Pending schedule not found"
	errPendingNotOpen      = "Pending schedule is not in an editable state"
	errRunNotFound         = "Scheduler run not found"
	errRunInProgress       = "A scheduler run is already in progress"
	errRunNotReviewable    = "Run has not finished successfully and cannot be approved or rejected"
	errUnknownRotationType = "Unknown rotation type"
	errUnknownEmployee     = "Referenced employee does not exist"
	errTaskNotFound        = "Task not found"
)
