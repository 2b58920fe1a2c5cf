package main

import (
	"errors"
	"fmt"

	"github.com/vinigracindo/database-as-a-service/internal/model"
)

const (
	exitFailure         = 1
	exitRollbackAborted = 2
)

func newCommandError(operation, context string, cause error, suggestion string) error {
	return &commandError{operation: operation, context: context, cause: cause, suggestion: suggestion}
}

type commandError struct {
	operation  string
	context    string
	cause      error
	suggestion string
}

func (e *commandError) Error() string {
	return fmt.Sprintf("Failed to %s: %s\n\nError: %v\n\nSuggestion: %s", e.operation, e.context, e.cause, e.suggestion)
}

func (e *commandError) Unwrap() error {
	return e.cause
}

// workflowError reports a run that did not succeed.
type workflowError struct {
	result *model.Result
	taskID string
}

func (e *workflowError) Error() string {
	r := e.result
	msg := fmt.Sprintf("workflow %s at step %q (run %s)", describeStatus(r.Status), r.FailedStep, r.RunID)
	if r.Err != nil {
		msg += fmt.Sprintf(": %v", r.Err)
	}
	if r.Status == model.StatusFailedDuringRollback {
		msg += "\n\nRollback was aborted; the steps before the failing undo were left in place and need manual intervention."
	}
	if e.taskID != "" {
		msg += fmt.Sprintf("\n\nSee 'dbaas history show %s' for the full log.", e.taskID)
	}
	return msg
}

func (e *workflowError) Unwrap() error {
	return e.result.Err
}

func describeStatus(s model.Status) string {
	switch s {
	case model.StatusFailedRolledBack:
		return "failed and was rolled back"
	case model.StatusFailedDuringRollback:
		return "failed during rollback"
	default:
		return string(s)
	}
}

func exitCode(err error) int {
	var wfErr *workflowError
	if errors.As(err, &wfErr) && wfErr.result.Status == model.StatusFailedDuringRollback {
		return exitRollbackAborted
	}
	return exitFailure
}
