package step

import (
	"fmt"
	"strings"
	"sync"

	"github.com/vinigracindo/database-as-a-service/internal/logger"
	"github.com/vinigracindo/database-as-a-service/internal/model"
)

// Registry maps step identifiers to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[model.StepID]Factory
	logger    *logger.Logger
}

// Description pairs a step identifier with its label, or with the error
// that kept it from resolving.
type Description struct {
	ID    model.StepID
	Label string
	Err   error
}

// NewRegistry returns an empty registry.
func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		factories: make(map[model.StepID]Factory),
		logger:    log,
	}
}

// Register adds a factory for id.
func (r *Registry) Register(id model.StepID, factory Factory) error {
	if strings.TrimSpace(string(id)) == "" {
		return fmt.Errorf("step id is empty")
	}
	if factory == nil {
		return fmt.Errorf("step '%s' has a nil factory", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[id]; exists {
		return fmt.Errorf("step '%s' already registered", id)
	}
	r.factories[id] = factory
	return nil
}

// MustRegister is Register for static wiring; it panics on error.
func (r *Registry) MustRegister(id model.StepID, factory Factory) {
	if err := r.Register(id, factory); err != nil {
		panic(err)
	}
}

// Resolve builds a fresh step instance for id. Every failure comes back as a
// *ResolutionError, including a factory that panics.
func (r *Registry) Resolve(id model.StepID) (s Step, err error) {
	r.mu.RLock()
	factory, ok := r.factories[id]
	r.mu.RUnlock()

	if !ok {
		return nil, NewResolutionError(id, ErrNotRegistered)
	}

	defer func() {
		if rec := recover(); rec != nil {
			s = nil
			err = NewResolutionError(id, fmt.Errorf("factory panicked: %v", rec))
			if r.logger != nil {
				r.logger.With("step", string(id)).Error(err, "step factory panicked")
			}
		}
	}()

	instance := factory()
	if instance == nil {
		return nil, NewResolutionError(id, ErrNilInstance)
	}
	return instance, nil
}

// Validate checks that every id can be resolved, returning the first
// resolution failure.
func (r *Registry) Validate(ids []model.StepID) error {
	for _, id := range ids {
		if _, err := r.Resolve(id); err != nil {
			return err
		}
	}
	return nil
}
