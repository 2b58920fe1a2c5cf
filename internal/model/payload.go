package model

import (
	"errors"
	"fmt"
	"sort"
)

// ErrMissingKey is returned when a payload key has no value.
var ErrMissingKey = errors.New("payload key not set")

// Key names a payload value of type T. Declaring keys as package-level
// variables keeps every read and write of a value checked by the compiler.
type Key[T any] struct {
	name string
}

// NewKey declares a typed payload key.
func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name}
}

// Name returns the key's name.
func (k Key[T]) Name() string {
	return k.name
}

// KeyTypeError reports a stored value whose type does not match the key used
// to read it. This only happens when two keys share a name.
type KeyTypeError struct {
	Key      string
	Expected string
	Actual   string
}

func (e *KeyTypeError) Error() string {
	return fmt.Sprintf("payload key %q holds %s, expected %s", e.Key, e.Actual, e.Expected)
}

// Payload is the workflow's typed key/value store.
type Payload struct {
	values map[string]any
}

// NewPayload creates an empty payload.
func NewPayload() *Payload {
	return &Payload{values: make(map[string]any)}
}

// Set stores v under k, replacing any previous value.
func Set[T any](p *Payload, k Key[T], v T) {
	if p.values == nil {
		p.values = make(map[string]any)
	}
	p.values[k.name] = v
}

// Get returns the value stored under k. It fails with ErrMissingKey when the
// key is absent and with *KeyTypeError when the stored value has another type.
func Get[T any](p *Payload, k Key[T]) (T, error) {
	var zero T
	if p == nil {
		return zero, fmt.Errorf("%w: %s", ErrMissingKey, k.name)
	}
	raw, ok := p.values[k.name]
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrMissingKey, k.name)
	}
	v, ok := raw.(T)
	if !ok {
		return zero, &KeyTypeError{
			Key:      k.name,
			Expected: fmt.Sprintf("%T", zero),
			Actual:   fmt.Sprintf("%T", raw),
		}
	}
	return v, nil
}

// Lookup is Get without the error detail.
func Lookup[T any](p *Payload, k Key[T]) (T, bool) {
	v, err := Get(p, k)
	return v, err == nil
}

// Keys returns the stored key names in sorted order.
func (p *Payload) Keys() []string {
	if p == nil {
		return nil
	}
	keys := make([]string, 0, len(p.values))
	for k := range p.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
