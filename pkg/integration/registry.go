package integration

import (
	"sort"
	"strings"
	"sync"
)

// Named is implemented by every adapter.
type Named interface {
	Name() string
}

// Registry maps provider identifiers to adapters.
type Registry[T Named] struct {
	adapters map[string]T
	mu       sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry[T Named]() *Registry[T] {
	return &Registry[T]{
		adapters: make(map[string]T),
	}
}

// Register adds an adapter, replacing any with the same name.
func (r *Registry[T]) Register(a T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[strings.ToLower(a.Name())] = a
}

// Get returns the adapter for name or an UnsupportedProviderError.
func (r *Registry[T]) Get(name string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.adapters[strings.ToLower(name)]; ok {
		return a, nil
	}
	var zero T
	return zero, UnsupportedProviderError(name)
}

// Has reports whether name is registered.
func (r *Registry[T]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.adapters[strings.ToLower(name)]
	return ok
}

// All returns the registered adapters ordered by name.
func (r *Registry[T]) All() []T {
	names := r.Names()
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]T, 0, len(names))
	for _, n := range names {
		result = append(result, r.adapters[n])
	}
	return result
}

// Names returns the sorted provider identifiers.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered adapters.
func (r *Registry[T]) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.adapters)
}
