package model

// Status tracks a workflow invocation through its lifecycle.
type Status string

const (
	// StatusPending indicates no step has started yet.
	StatusPending Status = "pending"
	// StatusRunning indicates forward steps are executing.
	StatusRunning Status = "running"
	// StatusSucceeded marks a workflow whose every forward step succeeded.
	StatusSucceeded Status = "succeeded"
	// StatusFailed marks a forward failure whose unwind has not finished yet.
	StatusFailed Status = "failed"
	// StatusFailedRolledBack marks a forward failure followed by a complete
	// reverse unwind of the attempted steps.
	StatusFailedRolledBack Status = "failed_rolled_back"
	// StatusFailedDuringRollback marks a forward failure whose unwind aborted
	// partway. Compensation is incomplete and an operator must intervene.
	StatusFailedDuringRollback Status = "failed_during_rollback"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Terminal reports whether the status ends an invocation.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusFailedRolledBack, StatusFailedDuringRollback:
		return true
	default:
		return false
	}
}

// IsFailure reports whether the status is any of the failure states.
func (s Status) IsFailure() bool {
	switch s {
	case StatusFailed, StatusFailedRolledBack, StatusFailedDuringRollback:
		return true
	default:
		return false
	}
}
