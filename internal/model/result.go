package model

import "time"

// Result is what a workflow invocation hands back to its caller.
type Result struct {
	RunID      string
	Status     Status
	Messages   []string
	Exceptions Exceptions
	// FailedStep is the step whose forward action failed, empty on success.
	FailedStep StepID
	// Err describes the forward failure, joined with the rollback failure when
	// the unwind aborted. Nil on success.
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Succeeded reports whether every forward step succeeded.
func (r *Result) Succeeded() bool {
	return r != nil && r.Status == StatusSucceeded
}

// Duration returns how long the invocation ran.
func (r *Result) Duration() time.Duration {
	if r == nil || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
