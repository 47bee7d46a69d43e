package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"pulsebar/internal/module"
	logx "pulsebar/pkg/logx"
)

// Registry tracks at most one in-flight probe handle per module name.
//
// One mutex guards everything; the bar has tens of modules, not thousands.
type Registry struct {
	mu    sync.Mutex
	tasks map[string]*Handle
	gens  map[string]uint64

	log logx.Logger
	now func() time.Time
}

func NewRegistry(log logx.Logger) *Registry {
	return &Registry{
		tasks: make(map[string]*Handle),
		gens:  make(map[string]uint64),
		log:   log,
		now:   time.Now,
	}
}

// Launch starts probe in its own goroutine and returns its handle without
// registering it. ctx bounds the probe's lifetime; Cancel stops it early.
func (r *Registry) Launch(ctx context.Context, name string, probe module.Probe) *Handle {
	r.mu.Lock()
	r.gens[name]++
	gen := r.gens[name]
	r.mu.Unlock()

	pctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		name:    name,
		gen:     gen,
		started: r.now(),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go func() {
		defer close(h.done)
		defer cancel()
		// A panicking probe becomes a failed result instead of taking the bar down.
		defer func() {
			if rec := recover(); rec != nil {
				h.res = Result{Err: fmt.Errorf("%w: %v", ErrPanic, rec), Elapsed: time.Since(h.started)}
				r.log.Error("probe panic",
					logx.String("module", name),
					logx.Any("panic", rec),
					logx.Stack(logx.StackTrace(3, 16)),
				)
			}
		}()
		f, err := probe(pctx)
		h.res = Result{Fields: f, Err: err, Elapsed: time.Since(h.started)}
	}()

	return h
}

// Insert registers h under name and returns the handle it replaced, if any.
// The replaced handle is not cancelled.
func (r *Registry) Insert(name string, h *Handle) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.tasks[name]
	if h == nil {
		delete(r.tasks, name)
	} else {
		r.tasks[name] = h
	}
	return prev
}

// Take removes and returns the handle for name.
func (r *Registry) Take(name string) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.tasks[name]
	delete(r.tasks, name)
	return h
}

// Peek returns the handle for name without removing it.
func (r *Registry) Peek(name string) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tasks[name]
}

// CancelIfPresent cancels and removes the handle for name.
// It reports whether there was one.
func (r *Registry) CancelIfPresent(name string) bool {
	h := r.Take(name)
	if h == nil {
		return false
	}
	h.Cancel()
	return true
}

// Current reports whether h is the most recent launch for its name.
func (r *Registry) Current(h *Handle) bool {
	if h == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gens[h.name] == h.gen
}

// Retain cancels and removes every handle whose name is not in keep.
// It returns the removed names, sorted.
func (r *Registry) Retain(keep map[string]struct{}) []string {
	r.mu.Lock()
	var dropped []*Handle
	for name, h := range r.tasks {
		if _, ok := keep[name]; !ok {
			dropped = append(dropped, h)
			delete(r.tasks, name)
		}
	}
	r.mu.Unlock()

	names := make([]string, 0, len(dropped))
	for _, h := range dropped {
		h.Cancel()
		names = append(names, h.name)
	}
	sort.Strings(names)
	return names
}

// CancelAll cancels every registered handle and empties the registry.
func (r *Registry) CancelAll() []*Handle {
	return r.drain()
}

func (r *Registry) drain() []*Handle {
	r.mu.Lock()
	out := make([]*Handle, 0, len(r.tasks))
	for name, h := range r.tasks {
		out = append(out, h)
		delete(r.tasks, name)
	}
	r.mu.Unlock()
	for _, h := range out {
		h.Cancel()
	}
	return out
}

// Wait blocks until every handle has returned or ctx is done.
func Wait(ctx context.Context, hs []*Handle) error {
	for _, h := range hs {
		select {
		case <-h.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}
