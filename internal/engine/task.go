package engine

import (
	"errors"
	"time"

	"github.com/vinigracindo/database-as-a-service/internal/logger"
	"github.com/vinigracindo/database-as-a-service/internal/model"
)

// TaskHandle receives progress text for a workflow run. When persist is true
// the handle should store the update before returning.
type TaskHandle interface {
	UpdateDetails(details string, persist bool) error
}

// EventKind names a structured progress event.
type EventKind string

const (
	// EventStepStarted is emitted before a step's forward action runs.
	EventStepStarted EventKind = "step.started"
	// EventStepCompleted is emitted after a forward action succeeds.
	EventStepCompleted EventKind = "step.completed"
	// EventStepFailed is emitted when a forward action fails.
	EventStepFailed EventKind = "step.failed"
	// EventStepUndone is emitted after a compensating action returns.
	EventStepUndone EventKind = "step.undone"
	// EventRollbackAborted is emitted when an undo raises and the unwind stops.
	EventRollbackAborted EventKind = "rollback.aborted"
	// EventWorkflowFinished is emitted once the run reaches a terminal status.
	EventWorkflowFinished EventKind = "workflow.finished"
)

// Event is a structured progress notification.
type Event struct {
	Kind     EventKind
	RunID    string
	Position int
	Total    int
	StepID   model.StepID
	Label    string
	Status   model.Status
	Err      error
	Time     time.Time
}

// Observer is implemented by task handles that want structured events in
// addition to detail text. The runner detects it with a type assertion.
type Observer interface {
	Observe(Event)
}

// Tasks fans progress out to several handles. Nil handles are skipped.
func Tasks(handles ...TaskHandle) TaskHandle {
	out := make(multiTask, 0, len(handles))
	for _, h := range handles {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

type multiTask []TaskHandle

func (m multiTask) UpdateDetails(details string, persist bool) error {
	var errs []error
	for _, h := range m {
		if err := h.UpdateDetails(details, persist); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multiTask) Observe(ev Event) {
	for _, h := range m {
		if obs, ok := h.(Observer); ok {
			obs.Observe(ev)
		}
	}
}

// notifier shields the run from task handle failures: a handle that cannot
// persist is logged, never allowed to fail the workflow.
type notifier struct {
	task   TaskHandle
	obs    Observer
	logger *logger.Logger
	runID  string
	now    func() time.Time
}

func newNotifier(task TaskHandle, log *logger.Logger, runID string, now func() time.Time) *notifier {
	n := &notifier{task: task, logger: log, runID: runID, now: now}
	if obs, ok := task.(Observer); ok {
		n.obs = obs
	}
	return n
}

func (n *notifier) details(msg string, persist bool) {
	if n.task == nil {
		return
	}
	if err := n.task.UpdateDetails(msg, persist); err != nil {
		n.logger.Error(err, "task handle rejected progress update")
	}
}

func (n *notifier) event(ev Event) {
	if n.obs == nil {
		return
	}
	ev.RunID = n.runID
	if ev.Time.IsZero() {
		ev.Time = n.now()
	}
	n.obs.Observe(ev)
}
