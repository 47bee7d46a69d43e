// Package state holds the durable per-module refresh state.
package state

import (
	"sort"
	"sync"
	"time"

	"pulsebar/internal/module"
)

// RefreshState is the persisted bookkeeping of one module.
//
// StartTime is measured from the Unix epoch; zero means the module never
// launched or was reset after a failure.
type RefreshState struct {
	IsProcessing bool          `json:"is_processing"`
	StartTime    time.Duration `json:"start_time"`
	Data         module.Fields `json:"data"`
}

// Clone deep-copies the data map.
func (s RefreshState) Clone() RefreshState {
	s.Data = s.Data.Clone()
	return s
}

// Reset clears the in-flight flag and start time. Data is kept.
func (s *RefreshState) Reset() {
	s.IsProcessing = false
	s.StartTime = 0
}

// Store is the in-memory map of module name to RefreshState.
// Entries for modules that are no longer configured are kept.
type Store struct {
	mu sync.RWMutex
	m  map[string]RefreshState
}

// NewStore seeds a store, typically with state loaded from disk.
func NewStore(seed map[string]RefreshState) *Store {
	s := &Store{m: make(map[string]RefreshState, len(seed))}
	for k, v := range seed {
		s.m[k] = v.Clone()
	}
	return s
}

// Get returns a copy of the state for name, or the zero defaults.
func (s *Store) Get(name string) RefreshState {
	s.mu.RLock()
	v, ok := s.m[name]
	s.mu.RUnlock()
	if !ok {
		return RefreshState{Data: module.Fields{}}
	}
	return v.Clone()
}

func (s *Store) Put(name string, v RefreshState) {
	if v.Data == nil {
		v.Data = module.Fields{}
	}
	s.mu.Lock()
	s.m[name] = v
	s.mu.Unlock()
}

// Snapshot deep-copies the whole store.
func (s *Store) Snapshot() map[string]RefreshState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]RefreshState, len(s.m))
	for k, v := range s.m {
		out[k] = v.Clone()
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// Names returns the stored module names, sorted.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.m))
	for k := range s.m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
