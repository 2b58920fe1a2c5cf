package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vinigracindo/database-as-a-service/internal/engine"
)

// Sender delivers messages to a running program. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// Bridge is a task handle that forwards runner progress to the screen.
type Bridge struct {
	sender Sender
}

var (
	_ engine.TaskHandle = (*Bridge)(nil)
	_ engine.Observer   = (*Bridge)(nil)
)

// NewBridge returns a handle sending to s.
func NewBridge(s Sender) *Bridge {
	return &Bridge{sender: s}
}

// UpdateDetails forwards a progress line.
func (b *Bridge) UpdateDetails(details string, _ bool) error {
	b.sender.Send(DetailsMsg{Text: details})
	return nil
}

// Observe forwards a runner event.
func (b *Bridge) Observe(ev engine.Event) {
	b.sender.Send(EventMsg{Event: ev})
}

// Inline applies messages to a model synchronously, for output that is not
// a terminal.
type Inline struct {
	Model *Model
}

// Send updates the wrapped model.
func (i *Inline) Send(msg tea.Msg) {
	updated, _ := i.Model.Update(msg)
	if m, ok := updated.(Model); ok {
		*i.Model = m
	}
}
