package tui

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vinigracindo/database-as-a-service/internal/engine"
	"github.com/vinigracindo/database-as-a-service/internal/model"
)

func TestViewRendersStepsAndTitle(t *testing.T) {
	t.Parallel()

	view := NewModel("resize-redis", threeSteps(), true, nil).View()
	require.Contains(t, view, "dbaas • resize-redis")
	require.Contains(t, view, "1. Stopping database...")
	require.Contains(t, view, "3. start_database")
	require.Contains(t, view, "0/3")
	require.NotContains(t, view, "Summary")
}

func TestViewDefaultsTitle(t *testing.T) {
	t.Parallel()

	require.Contains(t, NewModel(" ", nil, true, nil).View(), "dbaas • Workflow")
}

func TestViewSummaryOnSuccess(t *testing.T) {
	t.Parallel()

	m := send(NewModel("resize", threeSteps()[:1], true, nil),
		ev(engine.EventStepStarted, 1), ev(engine.EventStepCompleted, 1),
		DoneMsg{Result: &model.Result{Status: model.StatusSucceeded}},
	)
	view := m.View()
	require.Contains(t, view, "Workflow succeeded (1/1 steps)")
	require.NotContains(t, view, "undone")
}

func TestStatusIcon(t *testing.T) {
	t.Parallel()

	for _, state := range []StepState{StatePending, StateRunning, StateDone, StateFailed, StateUndone, StateStranded} {
		require.NotEmpty(t, StatusIcon(state))
	}
	require.NotEqual(t, StatusIcon(StateDone), StatusIcon(StateFailed))
}
