package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vinigracindo/database-as-a-service/internal/model"
	"github.com/vinigracindo/database-as-a-service/internal/tui/components"
)

// View renders the current state of the model.
func (m Model) View() string {
	var sections []string

	sections = append(sections, titleStyle.Render(fmt.Sprintf("dbaas • %s", m.heading())))

	bar := components.NewProgress(len(m.rows))
	sections = append(sections, sectionStyle.Render("Progress"), bar.View(m.completed))
	if m.rollingBack {
		sections = append(sections, bar.RollbackView(m.undone, m.attempted))
	}

	if len(m.rows) > 0 {
		sections = append(sections, sectionStyle.Render("Steps"), m.renderRows())
	}

	if m.lastDetail != "" && !m.finished {
		sections = append(sections, detailStyle.Render(m.lastDetail))
	}

	if summary := m.summary(); summary != "" {
		sections = append(sections, sectionStyle.Render("Summary"), summaryStyle.Render(summary))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderRows() string {
	lines := make([]string, 0, len(m.rows))
	for i, row := range m.rows {
		icon := StatusIcon(row.state)
		if row.state == StateRunning && !m.nonInteractive {
			icon = m.spinner.View()
		}
		lines = append(lines, fmt.Sprintf(" %s %d. %s", icon, i+1, row.label))
	}
	return strings.Join(lines, "\n")
}

func (m Model) summary() string {
	if !m.finished {
		if m.cancelled {
			return failureStyle.Render("Cancelling; undoing attempted steps...")
		}
		return ""
	}

	var line string
	switch m.status {
	case model.StatusSucceeded:
		line = successStyle.Render(fmt.Sprintf("Workflow succeeded (%d/%d steps)", m.completed, len(m.rows)))
	case model.StatusFailedRolledBack:
		line = rollbackStyle.Render(fmt.Sprintf("Workflow failed; %d attempted steps were undone", m.undone))
	case model.StatusFailedDuringRollback:
		line = failureStyle.Render("Workflow failed and rollback was aborted; manual intervention required")
	default:
		line = pendingStyle.Render(fmt.Sprintf("Workflow ended with status %s", m.status))
	}

	if m.result != nil && m.result.Err != nil {
		line += "\n" + detailStyle.Render(m.result.Err.Error())
	}
	return line
}

func (m Model) heading() string {
	if strings.TrimSpace(m.title) != "" {
		return m.title
	}
	return "Workflow"
}

// StatusIcon returns the glyph representing a step state.
func StatusIcon(state StepState) string {
	switch state {
	case StateDone:
		return successStyle.Render("✓")
	case StateRunning:
		return runningStyle.Render("⏳")
	case StateFailed:
		return failureStyle.Render("✗")
	case StateUndone:
		return rollbackStyle.Render("↺")
	case StateStranded:
		return failureStyle.Render("!")
	default:
		return pendingStyle.Render("…")
	}
}
