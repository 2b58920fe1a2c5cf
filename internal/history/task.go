package history

import (
	"strings"

	"github.com/vinigracindo/database-as-a-service/internal/model"
)

// Task is the live handle of a recorded run. It receives progress text from
// the workflow runner.
type Task struct {
	store *Store
	id    string
}

// Start records a new running task.
func (s *Store) Start(name string, args []string) (*Task, error) {
	rec, err := s.Create(name, args)
	if err != nil {
		return nil, err
	}
	t := &Task{store: s, id: rec.ID}
	if err := s.Update(rec.ID, true, func(r *Record) { r.Status = StatusRunning }); err != nil {
		return nil, err
	}
	return t, nil
}

// ID returns the task identifier.
func (t *Task) ID() string {
	return t.id
}

// UpdateDetails appends a line to the task details.
func (t *Task) UpdateDetails(details string, persist bool) error {
	return t.store.Update(t.id, persist, func(r *Record) {
		if r.Details != "" && !strings.HasSuffix(r.Details, "\n") {
			r.Details += "\n"
		}
		r.Details += details
	})
}

// Finish stores the terminal status of the run.
func (t *Task) Finish(runID string, status model.Status) error {
	return t.store.Update(t.id, true, func(r *Record) {
		now := t.store.now()
		r.RunID = runID
		r.RunStatus = status
		r.Status = StatusFor(status)
		r.FinishedAt = &now
	})
}
