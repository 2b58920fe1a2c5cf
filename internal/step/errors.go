package step

import (
	"errors"
	"fmt"

	"github.com/vinigracindo/database-as-a-service/internal/model"
)

var (
	// ErrNotRegistered is wrapped by ResolutionError when no factory exists.
	ErrNotRegistered = errors.New("step not registered")
	// ErrNilInstance is wrapped by ResolutionError when a factory returns nil.
	ErrNilInstance = errors.New("factory returned a nil step")
)

// ResolutionError reports an identifier that could not be turned into a step
// instance. It is a configuration problem, not a step failure.
type ResolutionError struct {
	ID  model.StepID
	Err error
}

// NewResolutionError creates a new ResolutionError.
func NewResolutionError(id model.StepID, err error) *ResolutionError {
	return &ResolutionError{ID: id, Err: err}
}

func (e *ResolutionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("cannot resolve step %q", e.ID)
	}
	return fmt.Sprintf("cannot resolve step %q: %v", e.ID, e.Err)
}

// Step returns the unresolved identifier.
func (e *ResolutionError) Step() model.StepID { return e.ID }

// Unwrap returns the underlying cause.
func (e *ResolutionError) Unwrap() error { return e.Err }

// FailureError reports a step whose Do returned false: a business failure
// the step already diagnosed in the context's exceptions.
type FailureError struct {
	ID    model.StepID
	Label string
}

func (e *FailureError) Error() string {
	if e.Label == "" {
		return fmt.Sprintf("step %q failed", e.ID)
	}
	return fmt.Sprintf("step %q failed: %s", e.ID, e.Label)
}

// Step returns the failed identifier.
func (e *FailureError) Step() model.StepID { return e.ID }

// Unwrap returns nil; business failures carry no Go error.
func (e *FailureError) Unwrap() error { return nil }

// UnhandledError reports an error returned by, or a panic raised in, a step.
type UnhandledError struct {
	ID    model.StepID
	Err   error
	Panic bool
}

func (e *UnhandledError) Error() string {
	kind := "error"
	if e.Panic {
		kind = "panic"
	}
	return fmt.Sprintf("unhandled %s in step %q: %v", kind, e.ID, e.Err)
}

// Step returns the identifier of the step that raised.
func (e *UnhandledError) Step() model.StepID { return e.ID }

// Unwrap returns the raised error.
func (e *UnhandledError) Unwrap() error { return e.Err }

// RollbackError reports an unwind that stopped before reaching the first step.
// Position is the 1-based index, within the reverse walk, of the step whose
// undo raised; later positions were never undone.
type RollbackError struct {
	ID       model.StepID
	Position int
	Err      error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("rollback aborted at step %q (undo %d): %v", e.ID, e.Position, e.Err)
}

// Step returns the identifier whose undo raised.
func (e *RollbackError) Step() model.StepID { return e.ID }

// Unwrap returns the raised error.
func (e *RollbackError) Unwrap() error { return e.Err }
