package step

import (
	"context"

	"github.com/vinigracindo/database-as-a-service/internal/model"
)

// Step is one reversible unit of work in a workflow.
//
// Implementations keep no per-run state: a fresh instance is built every time
// the registry resolves an identifier, and everything a later step or a
// compensator needs travels through the workflow context.
type Step interface {
	// Do performs the forward action. A business failure is reported by
	// recording a diagnostic with Capture and returning false with a nil
	// error. A non-nil error (or a panic) marks an unexpected failure; the
	// runner handles both the same way but logs them at different levels.
	Do(ctx context.Context, wc *model.Context) (bool, error)

	// Undo performs the best-effort compensating action. It may run after a
	// Do that only partially completed. Its boolean is informational; a
	// non-nil error (or a panic) aborts the rest of the unwind.
	Undo(ctx context.Context, wc *model.Context) (bool, error)

	// String returns the label shown in progress messages.
	String() string
}

// Factory builds a new Step instance.
type Factory func() Step

// Func adapts plain functions into a Step. A nil UndoFn undoes nothing.
type Func struct {
	Label  string
	DoFn   func(ctx context.Context, wc *model.Context) (bool, error)
	UndoFn func(ctx context.Context, wc *model.Context) (bool, error)
}

var _ Step = (*Func)(nil)

// Do runs DoFn.
func (f *Func) Do(ctx context.Context, wc *model.Context) (bool, error) {
	if f.DoFn == nil {
		return true, nil
	}
	return f.DoFn(ctx, wc)
}

// Undo runs UndoFn.
func (f *Func) Undo(ctx context.Context, wc *model.Context) (bool, error) {
	if f.UndoFn == nil {
		return true, nil
	}
	return f.UndoFn(ctx, wc)
}

func (f *Func) String() string {
	return f.Label
}
