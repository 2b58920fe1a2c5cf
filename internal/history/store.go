// Package history records workflow runs as tasks in a JSON file.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

// ErrNotFound is returned when no task has the requested id.
var ErrNotFound = errors.New("task not found")

const fileVersion = "1.0"

// Store manages the task history persistence. Several processes may share
// one file: every write takes an exclusive file lock, re-reads the file and
// merges this store's changed records into it before replacing it.
type Store struct {
	path    string
	lock    *flock.Flock
	mu      sync.RWMutex
	version string
	tasks   []Record
	// dirty holds ids changed in memory since the last write.
	dirty map[string]struct{}
	now   func() time.Time
}

// NewStore creates a Store and loads it from disk.
func NewStore(path string) (*Store, error) {
	s := &Store{
		path:    path,
		lock:    flock.New(path + ".lock"),
		version: fileVersion,
		dirty:   make(map[string]struct{}),
		now:     time.Now,
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	if err := s.Load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		s.tasks = []Record{}
	}

	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Load reads the history from disk, discarding unsaved changes.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := readFile(s.path)
	if err != nil {
		return err
	}

	s.version = file.Version
	s.tasks = file.Tasks
	s.dirty = make(map[string]struct{})
	return nil
}

// Save writes the changed tasks to disk.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked("")
}

// commitLocked merges dirty records, minus removed, into the current file
// contents and writes the result atomically. s.mu must be held.
func (s *Store) commitLocked(removed string) error {
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock history: %w", err)
	}
	defer s.lock.Unlock() //nolint:errcheck

	file, err := readFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		file = File{Version: s.version}
	}

	merged := file.Tasks[:0:0]
	seen := make(map[string]struct{}, len(file.Tasks))
	for _, rec := range file.Tasks {
		if rec.ID == removed {
			continue
		}
		if _, ok := s.dirty[rec.ID]; ok {
			if local, found := s.find(rec.ID); found {
				rec = local
			}
		}
		seen[rec.ID] = struct{}{}
		merged = append(merged, rec)
	}
	for _, rec := range s.tasks {
		if _, ok := seen[rec.ID]; ok || rec.ID == removed {
			continue
		}
		if _, ok := s.dirty[rec.ID]; ok {
			merged = append(merged, rec)
		}
	}

	if err := writeFile(s.path, File{Version: s.version, Tasks: merged}); err != nil {
		return err
	}
	s.tasks = merged
	s.dirty = make(map[string]struct{})
	return nil
}

func (s *Store) find(id string) (Record, bool) {
	for _, rec := range s.tasks {
		if rec.ID == id {
			return rec, true
		}
	}
	return Record{}, false
}

func readFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, err
	}

	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return File{}, fmt.Errorf("failed to parse history: %w", err)
	}
	if file.Tasks == nil {
		file.Tasks = []Record{}
	}
	return file, nil
}

func writeFile(path string, file File) error {
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

// List returns all tasks, newest first.
func (s *Store) List() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, len(s.tasks))
	copy(out, s.tasks)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Get retrieves a task by id or by a unique id prefix.
func (s *Store) Get(id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var match *Record
	for i := range s.tasks {
		t := &s.tasks[i]
		if t.ID == id {
			return *t, nil
		}
		if id != "" && strings.HasPrefix(t.ID, id) {
			if match != nil {
				return Record{}, fmt.Errorf("task id prefix %q is ambiguous", id)
			}
			match = t
		}
	}
	if match != nil {
		return *match, nil
	}
	return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Create adds a waiting task and saves the store.
func (s *Store) Create(name string, args []string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec := Record{
		ID:        uuid.NewString(),
		Name:      name,
		Arguments: append([]string(nil), args...),
		Status:    StatusWaiting,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.tasks = append(s.tasks, rec)
	s.dirty[rec.ID] = struct{}{}
	return rec, s.commitLocked("")
}

// Update applies fn to the task with id. The store is saved when persist is true.
func (s *Store) Update(id string, persist bool, fn func(*Record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.tasks {
		if s.tasks[i].ID != id {
			continue
		}
		fn(&s.tasks[i])
		s.tasks[i].UpdatedAt = s.now()
		s.dirty[id] = struct{}{}
		if !persist {
			return nil
		}
		return s.commitLocked("")
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Remove deletes a task and saves the store.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, t := range s.tasks {
		if t.ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			delete(s.dirty, id)
			return s.commitLocked(id)
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}
