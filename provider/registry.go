package provider

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps names to provider factories so backends can be selected
// from configuration.
type Registry[T Provider] struct {
	mu        sync.RWMutex
	factories map[string]Factory[T]
}

// NewRegistry creates an empty registry.
func NewRegistry[T Provider]() *Registry[T] {
	return &Registry[T]{factories: make(map[string]Factory[T])}
}

// RegisterFactory registers a named factory, replacing any previous one.
func (r *Registry[T]) RegisterFactory(name string, factory Factory[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Create builds the provider registered under name.
func (r *Registry[T]) Create(name string) (T, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("provider %q not registered (available: %v)", name, r.List())
	}
	return factory()
}

// List returns the registered names, sorted.
func (r *Registry[T]) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
