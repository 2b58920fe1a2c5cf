package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vinigracindo/database-as-a-service/internal/engine"
	"github.com/vinigracindo/database-as-a-service/internal/model"
	"github.com/vinigracindo/database-as-a-service/internal/step"
)

// StepState is what the screen shows for one step.
type StepState string

const (
	StatePending  StepState = "pending"
	StateRunning  StepState = "running"
	StateDone     StepState = "done"
	StateFailed   StepState = "failed"
	StateUndone   StepState = "undone"
	StateStranded StepState = "stranded"
)

// EventMsg carries a runner event into the program.
type EventMsg struct {
	Event engine.Event
}

// DetailsMsg carries a progress line into the program.
type DetailsMsg struct {
	Text string
}

// DoneMsg reports the finished run.
type DoneMsg struct {
	Result *model.Result
}

type stepRow struct {
	id    model.StepID
	label string
	state StepState
}

// Model contains the Bubbletea state for the workflow progress screen.
type Model struct {
	title          string
	rows           []stepRow
	index          map[model.StepID][]int
	completed      int
	attempted      int
	undone         int
	rollingBack    bool
	lastDetail     string
	status         model.Status
	result         *model.Result
	finished       bool
	cancelled      bool
	nonInteractive bool
	onCancel       func()
	spinner        spinner.Model
}

// NewModel builds the screen for the given steps, in run order. onCancel is
// called once when the user presses ctrl+c.
func NewModel(title string, steps []step.Description, nonInteractive bool, onCancel func()) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = runningStyle

	m := Model{
		title:          title,
		index:          make(map[model.StepID][]int),
		status:         model.StatusPending,
		nonInteractive: nonInteractive,
		onCancel:       onCancel,
		spinner:        sp,
	}
	for i, d := range steps {
		label := d.Label
		if label == "" {
			label = string(d.ID)
		}
		m.rows = append(m.rows, stepRow{id: d.ID, label: label, state: StatePending})
		m.index[d.ID] = append(m.index[d.ID], i)
	}
	return m
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	if m.nonInteractive {
		return nil
	}
	return m.spinner.Tick
}

// TotalSteps returns the number of steps on screen.
func (m Model) TotalSteps() int {
	return len(m.rows)
}

// CompletedSteps returns the number of steps whose forward action succeeded.
func (m Model) CompletedSteps() int {
	return m.completed
}

// IsFinished reports whether the run reached a terminal status.
func (m Model) IsFinished() bool {
	return m.finished
}

// Status returns the last known workflow status.
func (m Model) Status() model.Status {
	return m.status
}

// State returns the on-screen state of the step at position (1-indexed).
func (m Model) State(position int) StepState {
	if position < 1 || position > len(m.rows) {
		return ""
	}
	return m.rows[position-1].state
}

func (m *Model) setState(position int, state StepState) {
	if position >= 1 && position <= len(m.rows) {
		m.rows[position-1].state = state
	}
}
