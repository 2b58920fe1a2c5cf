package history

import (
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vinigracindo/database-as-a-service/internal/model"
)

// Status is the lifecycle state of a recorded task.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusRunning  Status = "running"
	StatusSuccess  Status = "success"
	StatusError    Status = "error"
	StatusRollback Status = "rollback"
)

// StatusFor maps a workflow status onto the task lifecycle. A clean unwind is
// reported as rollback; an aborted unwind is an error.
func StatusFor(s model.Status) Status {
	switch s {
	case model.StatusPending:
		return StatusWaiting
	case model.StatusRunning:
		return StatusRunning
	case model.StatusSucceeded:
		return StatusSuccess
	case model.StatusFailedRolledBack:
		return StatusRollback
	default:
		return StatusError
	}
}

// Icon returns the Unicode icon for the status
func (s Status) Icon() string {
	switch s {
	case StatusSuccess:
		return "🟢"
	case StatusRollback:
		return "🟡"
	case StatusError:
		return "🔴"
	case StatusRunning:
		return "🔵"
	default:
		return "⚪"
	}
}

// Color returns the Lipgloss color for the status
func (s Status) Color() lipgloss.Color {
	switch s {
	case StatusSuccess:
		return lipgloss.Color("42")
	case StatusRollback:
		return lipgloss.Color("226")
	case StatusError:
		return lipgloss.Color("196")
	case StatusRunning:
		return lipgloss.Color("39")
	default:
		return lipgloss.Color("250")
	}
}

func (s Status) String() string {
	return string(s)
}

// Record is one persisted task.
type Record struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Arguments  []string     `json:"arguments,omitempty"`
	Status     Status       `json:"status"`
	RunStatus  model.Status `json:"run_status,omitempty"`
	RunID      string       `json:"run_id,omitempty"`
	Details    string       `json:"details"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
}

// File is the on-disk layout of the history store.
type File struct {
	Version string   `json:"version"`
	Tasks   []Record `json:"tasks"`
}
