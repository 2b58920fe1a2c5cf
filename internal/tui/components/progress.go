package components

import (
	"fmt"
	"math"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// Progress renders how far a workflow has walked, forward or in reverse.
type Progress struct {
	bar      progress.Model
	rollback progress.Model
	total    int
}

// NewProgress creates a progress component for the given total.
func NewProgress(total int) Progress {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 30
	rb := progress.New(progress.WithGradient("#FFD75F", "#FF5F5F"))
	rb.Width = 30
	return Progress{bar: bar, rollback: rb, total: total}
}

// View renders the forward progress bar for the provided completion count.
func (p Progress) View(completed int) string {
	return p.render(p.bar, completed, "")
}

// RollbackView renders how many attempted steps have been undone.
func (p Progress) RollbackView(undone, attempted int) string {
	q := p
	q.total = attempted
	return q.render(p.rollback, undone, " undone")
}

func (p Progress) render(bar progress.Model, n int, suffix string) string {
	ratio := 0.0
	if p.total > 0 {
		ratio = math.Min(1.0, float64(n)/float64(p.total))
	}
	label := lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%d/%d%s", n, p.total, suffix))
	return lipgloss.JoinHorizontal(lipgloss.Left, label, " ", bar.ViewAs(ratio))
}
