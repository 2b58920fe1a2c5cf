package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/vinigracindo/database-as-a-service/internal/engine"
	"github.com/vinigracindo/database-as-a-service/internal/model"
	"github.com/vinigracindo/database-as-a-service/internal/step"
)

func threeSteps() []step.Description {
	return []step.Description{
		{ID: "stop_database", Label: "Stopping database..."},
		{ID: "update_fstab", Label: "Updating volume information..."},
		{ID: "start_database"},
	}
}

func send(m Model, msgs ...tea.Msg) Model {
	for _, msg := range msgs {
		updated, _ := m.Update(msg)
		m = updated.(Model)
	}
	return m
}

func ev(kind engine.EventKind, pos int) EventMsg {
	return EventMsg{Event: engine.Event{Kind: kind, Position: pos, Label: "x"}}
}

func TestNewModelInitialisesState(t *testing.T) {
	t.Parallel()

	m := NewModel("resize", threeSteps(), false, nil)
	require.Equal(t, 3, m.TotalSteps())
	require.Zero(t, m.CompletedSteps())
	require.False(t, m.IsFinished())
	require.Equal(t, model.StatusPending, m.Status())
	require.Equal(t, StatePending, m.State(1))
	require.Equal(t, "start_database", m.rows[2].label)
	require.NotNil(t, m.Init())
	require.Nil(t, NewModel("resize", nil, true, nil).Init())
}

func TestModelTracksForwardProgress(t *testing.T) {
	t.Parallel()

	m := send(NewModel("resize", threeSteps(), true, nil),
		ev(engine.EventStepStarted, 1),
		ev(engine.EventStepCompleted, 1),
		ev(engine.EventStepStarted, 2),
	)
	require.Equal(t, StateDone, m.State(1))
	require.Equal(t, StateRunning, m.State(2))
	require.Equal(t, 1, m.CompletedSteps())
	require.Equal(t, model.StatusRunning, m.Status())

	m = send(m, DetailsMsg{Text: "Step 2 of 3 - Updating volume information..."})
	require.Contains(t, m.View(), "Step 2 of 3")
}

func TestModelTracksRollback(t *testing.T) {
	t.Parallel()

	m := send(NewModel("resize", threeSteps(), true, nil),
		ev(engine.EventStepStarted, 1), ev(engine.EventStepCompleted, 1),
		ev(engine.EventStepStarted, 2), ev(engine.EventStepFailed, 2),
		ev(engine.EventStepUndone, 2), ev(engine.EventStepUndone, 1),
		EventMsg{Event: engine.Event{Kind: engine.EventWorkflowFinished, Status: model.StatusFailedRolledBack}},
	)
	require.Equal(t, StateUndone, m.State(1))
	require.Equal(t, StateFailed, m.State(2))
	require.Equal(t, StatePending, m.State(3))
	require.True(t, m.IsFinished())
	require.Equal(t, model.StatusFailedRolledBack, m.Status())
	require.Contains(t, m.View(), "2 attempted steps were undone")
	require.Contains(t, m.View(), "2/2 undone")
}

func TestModelMarksStrandedStepsWhenRollbackAborts(t *testing.T) {
	t.Parallel()

	m := send(NewModel("resize", threeSteps(), true, nil),
		ev(engine.EventStepStarted, 1), ev(engine.EventStepCompleted, 1),
		ev(engine.EventStepStarted, 2), ev(engine.EventStepCompleted, 2),
		ev(engine.EventStepStarted, 3), ev(engine.EventStepFailed, 3),
		ev(engine.EventStepUndone, 3),
		// Walk position 2 is forward position 2.
		ev(engine.EventRollbackAborted, 2),
	)
	require.Equal(t, StateStranded, m.State(1))
	require.Equal(t, StateStranded, m.State(2))
	require.Equal(t, StateFailed, m.State(3))
	require.Equal(t, model.StatusFailedDuringRollback, m.Status())

	m = send(m, DoneMsg{Result: &model.Result{Status: model.StatusFailedDuringRollback, Err: errors.New("undo 2 failed")}})
	require.Contains(t, m.View(), "manual intervention required")
	require.Contains(t, m.View(), "undo 2 failed")
}

func TestModelResolutionFailureIsNotAttempted(t *testing.T) {
	t.Parallel()

	m := send(NewModel("resize", threeSteps(), true, nil),
		ev(engine.EventStepStarted, 1), ev(engine.EventStepCompleted, 1),
		EventMsg{Event: engine.Event{Kind: engine.EventStepFailed, Position: 2, StepID: "update_fstab",
			Err: step.NewResolutionError("update_fstab", step.ErrNotRegistered)}},
	)
	require.Equal(t, 1, m.attempted)
	require.Equal(t, StateFailed, m.State(2))
}

func TestModelUnlabelledFailingStepCountsAsAttempted(t *testing.T) {
	t.Parallel()

	m := send(NewModel("resize", threeSteps(), true, nil),
		ev(engine.EventStepStarted, 1), ev(engine.EventStepCompleted, 1),
		ev(engine.EventStepStarted, 2), ev(engine.EventStepCompleted, 2),
		EventMsg{Event: engine.Event{Kind: engine.EventStepStarted, Position: 3}},
		EventMsg{Event: engine.Event{Kind: engine.EventStepFailed, Position: 3,
			Err: &step.FailureError{ID: "start_database"}}},
		EventMsg{Event: engine.Event{Kind: engine.EventStepUndone, Position: 3}},
		ev(engine.EventRollbackAborted, 2),
	)
	require.Equal(t, 3, m.attempted)
	require.Equal(t, StateStranded, m.State(1))
	require.Equal(t, StateStranded, m.State(2))
	require.Equal(t, StateFailed, m.State(3))
}

func TestDoneMsgQuitsInteractiveProgram(t *testing.T) {
	t.Parallel()

	m := NewModel("resize", threeSteps(), false, nil)
	updated, cmd := m.Update(DoneMsg{Result: &model.Result{Status: model.StatusSucceeded}})
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
	require.True(t, updated.(Model).IsFinished())

	m = NewModel("resize", threeSteps(), true, nil)
	_, cmd = m.Update(DoneMsg{})
	require.Nil(t, cmd)
}

func TestCtrlCCancelsOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	m := NewModel("resize", threeSteps(), false, func() { calls++ })
	m = send(m, tea.KeyMsg{Type: tea.KeyCtrlC}, tea.KeyMsg{Type: tea.KeyCtrlC})

	require.Equal(t, 1, calls)
	require.True(t, m.cancelled)
	require.Contains(t, m.View(), "Cancelling")
}

func TestQuitMsgMarksFinished(t *testing.T) {
	t.Parallel()

	updated, cmd := NewModel("", nil, true, nil).Update(tea.QuitMsg{})
	require.Nil(t, cmd)
	require.True(t, updated.(Model).IsFinished())
}
