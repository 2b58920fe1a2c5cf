package main

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/vinigracindo/database-as-a-service/internal/history"
	"github.com/vinigracindo/database-as-a-service/internal/model"
)

const passingWorkflow = `version: "1.0"
name: warm-cache
steps:
  - id: first
    name: First step...
    do: "true"
  - id: second
    name: Second step...
    do: "true"
`

func rollbackWorkflow(marker string) string {
	return `version: "1.0"
name: resize-volume
payload:
  vars:
    marker: ` + marker + `
steps:
  - id: prepare
    name: Preparing...
    do: "true"
    undo: touch ${marker}
  - id: break
    name: Breaking...
    do: "false"
`
}

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("workflow commands run through sh")
	}
}

func TestRunCommandRequiresConfig(t *testing.T) {
	_, err := executeCommand("run")
	require.Error(t, err)
	require.Contains(t, err.Error(), "config")
}

func TestRunCommandRejectsMissingFile(t *testing.T) {
	_, err := executeCommand("run", "-c", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not exist")
}

func TestRunCommandPassesOptions(t *testing.T) {
	original := runCmdRunner
	t.Cleanup(func() { runCmdRunner = original })

	var got runOptions
	runCmdRunner = func(_ *cobra.Command, root *rootFlags, opts runOptions) error {
		got = opts
		require.True(t, root.verbose)
		return nil
	}

	path := writeWorkflow(t, passingWorkflow)
	_, err := executeCommand("run", "-c", path, "--plain", "--no-history", "-v")
	require.NoError(t, err)
	require.Equal(t, path, got.ConfigPath)
	require.True(t, got.NoHistory)
	require.True(t, got.NonInteractive)
}

func TestRunCommandPlainSuccess(t *testing.T) {
	skipWithoutShell(t)

	historyPath := filepath.Join(t.TempDir(), "history.json")
	output, err := executeCommand("run", "-c", writeWorkflow(t, passingWorkflow), "--plain", "--history", historyPath, "--log-level", "error")
	require.NoError(t, err)
	require.Contains(t, output, "Step 1 of 2 - First step...")
	require.Contains(t, output, "Step 2 of 2 - Second step...")
	require.Contains(t, output, "DONE!")

	store, err := history.NewStore(historyPath)
	require.NoError(t, err)
	records := store.List()
	require.Len(t, records, 1)
	require.Equal(t, "warm-cache", records[0].Name)
	require.Equal(t, history.StatusSuccess, records[0].Status)
	require.Equal(t, model.StatusSucceeded, records[0].RunStatus)
	require.NotNil(t, records[0].FinishedAt)
	require.Contains(t, records[0].Details, "Step 2 of 2")
}

func TestRunCommandPlainRollback(t *testing.T) {
	skipWithoutShell(t)

	dir := t.TempDir()
	marker := filepath.Join(dir, "undone")
	historyPath := filepath.Join(dir, "history.json")

	output, err := executeCommand("run", "-c", writeWorkflow(t, rollbackWorkflow(marker)), "--plain", "--history", historyPath, "--log-level", "error")
	require.Error(t, err)
	require.Contains(t, output, `FAILED at step "break"`)
	require.Contains(t, output, "rollback completed")

	var wfErr *workflowError
	require.ErrorAs(t, err, &wfErr)
	require.Equal(t, model.StatusFailedRolledBack, wfErr.result.Status)
	require.Equal(t, model.StepID("break"), wfErr.result.FailedStep)
	require.NotEmpty(t, wfErr.taskID)
	require.Equal(t, exitFailure, exitCode(err))

	_, statErr := os.Stat(marker)
	require.NoError(t, statErr, "undo of the first step should have run")

	store, err := history.NewStore(historyPath)
	require.NoError(t, err)
	rec, err := store.Get(wfErr.taskID)
	require.NoError(t, err)
	require.Equal(t, history.StatusRollback, rec.Status)
}

func TestRunCommandNoHistory(t *testing.T) {
	skipWithoutShell(t)

	historyPath := filepath.Join(t.TempDir(), "history.json")
	_, err := executeCommand("run", "-c", writeWorkflow(t, passingWorkflow), "--plain", "--no-history", "--history", historyPath, "--log-level", "error")
	require.NoError(t, err)

	_, statErr := os.Stat(historyPath)
	require.True(t, os.IsNotExist(statErr))
}

func TestRunCommandReportsInvalidWorkflow(t *testing.T) {
	path := writeWorkflow(t, "version: \"1.0\"\nname: broken\nsteps:\n  - id: first\n")
	_, err := executeCommand("run", "-c", path, "--plain", "--no-history")
	require.Error(t, err)

	var cmdErr *commandError
	require.ErrorAs(t, err, &cmdErr)
	require.Contains(t, err.Error(), "Suggestion:")
}
