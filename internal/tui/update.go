package tui

import (
	"errors"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vinigracindo/database-as-a-service/internal/engine"
	"github.com/vinigracindo/database-as-a-service/internal/model"
	"github.com/vinigracindo/database-as-a-service/internal/step"
)

// Update handles Bubbletea messages and updates model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.finished {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case EventMsg:
		m.applyEvent(msg.Event)
		return m, nil
	case DetailsMsg:
		m.lastDetail = msg.Text
		return m, nil
	case DoneMsg:
		m.result = msg.Result
		if msg.Result != nil {
			m.status = msg.Result.Status
		}
		m.finished = true
		if m.nonInteractive {
			return m, nil
		}
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC && !m.cancelled {
			m.cancelled = true
			if m.onCancel != nil {
				m.onCancel()
			}
			return m, nil
		}
	case tea.QuitMsg:
		m.finished = true
		return m, nil
	}

	return m, nil
}

func (m *Model) applyEvent(ev engine.Event) {
	switch ev.Kind {
	case engine.EventStepStarted:
		m.status = model.StatusRunning
		m.attempted = ev.Position
		m.setState(ev.Position, StateRunning)
	case engine.EventStepCompleted:
		m.completed++
		m.setState(ev.Position, StateDone)
	case engine.EventStepFailed:
		m.rollingBack = true
		m.status = model.StatusFailed
		var resErr *step.ResolutionError
		if errors.As(ev.Err, &resErr) {
			// Unresolved steps never start and are not part of the unwind.
			m.attempted = ev.Position - 1
		}
		m.setState(ev.Position, StateFailed)
	case engine.EventStepUndone:
		m.rollingBack = true
		m.undone++
		if m.State(ev.Position) != StateFailed {
			m.setState(ev.Position, StateUndone)
		}
	case engine.EventRollbackAborted:
		m.status = model.StatusFailedDuringRollback
		for pos := m.attempted - ev.Position + 1; pos >= 1; pos-- {
			if st := m.State(pos); st == StateDone || st == StateFailed {
				m.setState(pos, StateStranded)
			}
		}
	case engine.EventWorkflowFinished:
		m.status = ev.Status
		m.finished = true
	}
}
