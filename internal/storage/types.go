package storage

import (
	"context"
	"errors"
	"time"

	"pulsebar/internal/state"
)

var ErrDisabled = errors.New("storage disabled")

// Snapshot is the whole state map, keyed by module name.
type Snapshot = map[string]state.RefreshState

// Config configures storage.
//
// If Driver is empty, "none" or "disabled", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store loads and saves full snapshots.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
	Close() error
}
