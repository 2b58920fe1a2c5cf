package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/vinigracindo/database-as-a-service/internal/logger"
	"github.com/vinigracindo/database-as-a-service/internal/model"
	"github.com/vinigracindo/database-as-a-service/internal/step"
)

// ErrNoSteps is reported when a workflow is started without any step.
var ErrNoSteps = errors.New("workflow has no steps")

// DoneMessage is appended to the progress log after each successful step.
const DoneMessage = "DONE!"

const timestampLayout = "01/02/2006 15:04:05"

// Resolver turns a step identifier into a fresh step instance.
type Resolver interface {
	Resolve(id model.StepID) (step.Step, error)
}

// Runner executes workflows one step at a time and unwinds the attempted
// steps in reverse when one of them fails. It keeps no per-run state, so a
// single Runner can serve concurrent, independent workflows.
type Runner struct {
	resolver Resolver
	logger   *logger.Logger
	now      func() time.Time
	newID    func() string
}

// Option customises a Runner.
type Option func(*Runner)

// WithClock overrides the clock used for progress timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// WithIDGenerator overrides how run identifiers are generated.
func WithIDGenerator(newID func() string) Option {
	return func(r *Runner) {
		if newID != nil {
			r.newID = newID
		}
	}
}

// NewRunner creates a Runner resolving steps through resolver.
func NewRunner(resolver Resolver, log *logger.Logger, opts ...Option) *Runner {
	r := &Runner{
		resolver: resolver,
		logger:   log,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// outcome is what one forward pass learned about its failure, if any.
type outcome struct {
	ok          bool
	failedStep  model.StepID
	cause       error
	rollbackErr error
}

// Run executes steps against a fresh context built from payload and returns
// the terminal status together with the progress and exception logs.
func (r *Runner) Run(ctx context.Context, steps []model.StepID, payload *model.Payload, task TaskHandle) *model.Result {
	runID := r.newID()
	wc := model.NewContext(steps, payload)

	started := r.now()
	out := r.forward(ctx, wc, r.invocation(task, runID))

	return &model.Result{
		RunID:      runID,
		Status:     wc.Status,
		Messages:   append([]string(nil), wc.Msgs...),
		Exceptions: wc.Exceptions.Clone(),
		FailedStep: out.failedStep,
		Err:        errors.Join(out.cause, out.rollbackErr),
		StartedAt:  started,
		FinishedAt: r.now(),
	}
}

// RunForward executes wc.Steps in order. It returns true only when every step
// succeeded. On the first failure it truncates wc.Steps to the attempted
// prefix, runs RunBackward over it and returns false.
func (r *Runner) RunForward(ctx context.Context, wc *model.Context, task TaskHandle) bool {
	return r.forward(ctx, wc, r.invocation(task, "")).ok
}

// RunBackward calls Undo on every step of wc.Steps in reverse order. The walk
// continues whatever Undo reports, but stops early when an undo raises or a
// step cannot be resolved; in that case it returns false.
func (r *Runner) RunBackward(ctx context.Context, wc *model.Context, task TaskHandle) bool {
	if wc == nil {
		return false
	}
	return r.backward(ctx, wc, r.invocation(task, "")) == nil
}

type invocation struct {
	log    *logger.Logger
	notify *notifier
}

func (r *Runner) invocation(task TaskHandle, runID string) *invocation {
	log := r.logger
	if runID != "" {
		log = log.With("run_id", runID)
	}
	return &invocation{
		log:    log,
		notify: newNotifier(task, log, runID, r.now),
	}
}

func (r *Runner) forward(ctx context.Context, wc *model.Context, inv *invocation) outcome {
	if wc == nil || len(wc.Steps) == 0 {
		inv.log.Warn("workflow has no steps; nothing to run")
		return outcome{cause: ErrNoSteps}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if wc.Data == nil {
		wc.Data = model.NewPayload()
	}

	inv.log.WithFields(map[string]any{"steps": len(wc.Steps), "payload": wc.Data.Keys()}).Debug("starting workflow")

	wc.StepCounter = 0
	wc.Status = model.StatusRunning
	wc.Msgs = []string{}
	wc.TotalSteps = len(wc.Steps)

	for _, id := range wc.Steps {
		if err := ctx.Err(); err != nil {
			step.Capture(wc, step.CodeCancelled, err)
			inv.log.With("step", string(id)).Warn("workflow cancelled before step started")
			return r.fail(ctx, wc, inv, wc.StepCounter, outcome{failedStep: id, cause: err})
		}

		wc.StepCounter++
		position := wc.StepCounter
		stepLog := inv.log.WithFields(map[string]any{"step": string(id), "position": position})

		s, err := r.resolver.Resolve(id)
		if err != nil {
			var resErr *step.ResolutionError
			if !errors.As(err, &resErr) {
				err = step.NewResolutionError(id, err)
			}
			step.Capture(wc, step.CodeResolution, err)
			stepLog.Error(err, "step could not be resolved")
			inv.notify.event(Event{Kind: EventStepFailed, Position: position, Total: wc.TotalSteps, StepID: id, Err: err})
			// The unresolved step never started, so it is not part of the unwind.
			return r.fail(ctx, wc, inv, position-1, outcome{failedStep: id, cause: err})
		}

		label := s.String()
		msg := fmt.Sprintf("%s - Step %d of %d - %s", r.now().Format(timestampLayout), position, wc.TotalSteps, label)
		wc.Msgs = append(wc.Msgs, msg)
		stepLog.Info(msg)
		inv.notify.details(msg, true)
		inv.notify.event(Event{Kind: EventStepStarted, Position: position, Total: wc.TotalSteps, StepID: id, Label: label})

		ok, err, trace := invoke(ctx, s.Do, wc)
		if err != nil || !ok {
			var cause error
			if err != nil {
				unhandled := &step.UnhandledError{ID: id, Err: err, Panic: trace != ""}
				if trace == "" {
					trace = step.Traceback(err)
				} else {
					trace = fmt.Sprintf("%v\n%s", err, trace)
				}
				wc.AddException(step.CodeUnhandled, trace)
				stepLog.Error(unhandled, "step raised an unexpected error")
				cause = unhandled
			} else {
				cause = &step.FailureError{ID: id, Label: label}
				stepLog.Warn("step reported failure")
			}
			wc.Status = model.StatusFailed
			inv.notify.event(Event{Kind: EventStepFailed, Position: position, Total: wc.TotalSteps, StepID: id, Label: label, Err: cause})
			return r.fail(ctx, wc, inv, position, outcome{failedStep: id, cause: cause})
		}

		wc.Msgs = append(wc.Msgs, DoneMessage)
		inv.notify.details(DoneMessage, true)
		inv.notify.event(Event{Kind: EventStepCompleted, Position: position, Total: wc.TotalSteps, StepID: id, Label: label})
	}

	wc.Status = model.StatusSucceeded
	inv.log.Info("workflow succeeded")
	inv.notify.event(Event{Kind: EventWorkflowFinished, Position: wc.StepCounter, Total: wc.TotalSteps, Status: wc.Status})
	return outcome{ok: true}
}

// fail truncates the step list to the attempted prefix, unwinds it and sets
// the terminal status.
func (r *Runner) fail(ctx context.Context, wc *model.Context, inv *invocation, attempted int, out outcome) outcome {
	wc.Status = model.StatusFailed
	wc.Steps = wc.Steps[:attempted]
	wc.StepCounter = attempted

	inv.log.With("attempted", attempted).Warn("running undo")
	out.rollbackErr = r.backward(ctx, wc, inv)

	rollback := "rollback completed"
	if out.rollbackErr != nil {
		wc.Status = model.StatusFailedDuringRollback
		rollback = fmt.Sprintf("rollback aborted, manual intervention required: %v", out.rollbackErr)
	} else {
		wc.Status = model.StatusFailedRolledBack
	}

	msg := fmt.Sprintf("%s - FAILED at step %q: %v; %s",
		r.now().Format(timestampLayout), out.failedStep, out.cause, rollback)
	inv.log.Warn(msg)
	inv.notify.details(msg, true)
	inv.notify.event(Event{Kind: EventWorkflowFinished, Total: wc.TotalSteps, StepID: out.failedStep, Status: wc.Status, Err: errors.Join(out.cause, out.rollbackErr)})
	return out
}

func (r *Runner) backward(ctx context.Context, wc *model.Context, inv *invocation) error {
	if ctx == nil {
		ctx = context.Background()
	}
	// Compensation must run even when the forward pass was cancelled.
	ctx = context.WithoutCancel(ctx)

	total := len(wc.Steps)
	for i := total - 1; i >= 0; i-- {
		id := wc.Steps[i]
		walk := total - i

		s, err := r.resolver.Resolve(id)
		if err != nil {
			return r.abortRollback(wc, inv, id, walk, err)
		}

		position := i + 1
		if wc.StepCounter > 0 {
			position = wc.StepCounter
			wc.StepCounter--
		}
		label := s.String()
		stepLog := inv.log.WithFields(map[string]any{"step": string(id), "position": position})
		stepLog.Info(fmt.Sprintf("Undo step %d %s", position, label))

		ok, err, trace := invoke(ctx, s.Undo, wc)
		if err != nil {
			if trace != "" {
				err = fmt.Errorf("panic: %w", err)
			}
			return r.abortRollback(wc, inv, id, walk, err)
		}
		if !ok {
			stepLog.Warn("undo reported failure; continuing unwind")
		}
		inv.notify.event(Event{Kind: EventStepUndone, Position: position, Total: wc.TotalSteps, StepID: id, Label: label})
	}
	return nil
}

func (r *Runner) abortRollback(wc *model.Context, inv *invocation, id model.StepID, walk int, err error) error {
	rbErr := &step.RollbackError{ID: id, Position: walk, Err: err}
	step.Capture(wc, step.CodeRollback, rbErr)
	inv.log.With("step", string(id)).Error(rbErr, "undo raised; remaining steps were not undone")
	inv.notify.event(Event{Kind: EventRollbackAborted, Position: walk, Total: wc.TotalSteps, StepID: id, Err: rbErr})
	return rbErr
}

// invoke runs fn and converts a panic into an error. trace is non-empty only
// when fn panicked and holds the panicking goroutine's stack.
func invoke(ctx context.Context, fn func(context.Context, *model.Context) (bool, error), wc *model.Context) (ok bool, err error, trace string) {
	defer func() {
		if rec := recover(); rec != nil {
			ok = false
			trace = string(debug.Stack())
			if recErr, isErr := rec.(error); isErr {
				err = recErr
			} else {
				err = fmt.Errorf("%v", rec)
			}
		}
	}()
	ok, err = fn(ctx, wc)
	return ok, err, ""
}
