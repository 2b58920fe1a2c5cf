package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vinigracindo/database-as-a-service/internal/model"
)

func TestWorkflowErrorMessage(t *testing.T) {
	t.Parallel()

	cause := errors.New("step \"break\" failed")
	err := &workflowError{
		result: &model.Result{RunID: "run-1", Status: model.StatusFailedRolledBack, FailedStep: "break", Err: cause},
		taskID: "abc123",
	}

	msg := err.Error()
	require.Contains(t, msg, "failed and was rolled back")
	require.Contains(t, msg, `"break"`)
	require.Contains(t, msg, "dbaas history show abc123")
	require.NotContains(t, msg, "manual intervention")
	require.ErrorIs(t, err, cause)
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	aborted := &workflowError{result: &model.Result{Status: model.StatusFailedDuringRollback}}
	require.Contains(t, aborted.Error(), "manual intervention")

	require.Equal(t, exitRollbackAborted, exitCode(fmt.Errorf("run: %w", aborted)))
	require.Equal(t, exitFailure, exitCode(&workflowError{result: &model.Result{Status: model.StatusFailedRolledBack}}))
	require.Equal(t, exitFailure, exitCode(errors.New("boom")))
}

func TestCommandErrorUnwraps(t *testing.T) {
	t.Parallel()

	cause := errors.New("permission denied")
	err := newCommandError("open history", "loading /tmp/h.json", cause, "Check permissions.")
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "Failed to open history")
}
