package module

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps kind names to handler factories. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a kind. Registering the same kind twice is an error.
func (r *Registry) Register(kind string, f Factory) error {
	if kind == "" || f == nil {
		return fmt.Errorf("module kind %q: empty name or factory", kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[kind]; exists {
		return fmt.Errorf("module kind %q already registered", kind)
	}
	r.factories[kind] = f
	return nil
}

// MustRegister is Register for package-level wiring; it panics on conflicts.
func (r *Registry) MustRegister(kind string, f Factory) {
	if err := r.Register(kind, f); err != nil {
		panic(err)
	}
}

// Has reports whether kind is registered.
func (r *Registry) Has(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[kind]
	return ok
}

// Resolve builds the handler for kind. Unknown kinds resolve to Noop, and
// missing parts of a known handler are filled from Noop.
func (r *Registry) Resolve(kind string, opts Options) Handler {
	r.mu.RLock()
	f, ok := r.factories[kind]
	r.mu.RUnlock()

	noop := Noop()
	if !ok {
		return noop
	}
	h := f(opts)
	if h.Probe == nil {
		h.Probe = noop.Probe
	}
	if h.Render == nil {
		h.Render = noop.Render
	}
	if h.Click == nil {
		h.Click = noop.Click
	}
	return h
}

// Kinds returns the registered kind names, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
