package storage

import (
	"context"
	"errors"
	"strings"

	logx "pulsebar/pkg/logx"
)

// Open initializes the configured store.
// It returns (nil, ErrDisabled) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "none", "disabled":
		return nil, ErrDisabled
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}

// LoadOrEmpty loads the persisted snapshot. Any failure (missing file,
// corrupt content, disabled store) yields an empty snapshot and is logged,
// never returned: losing cached state only costs one refresh.
func LoadOrEmpty(ctx context.Context, st Store, log logx.Logger) Snapshot {
	if st == nil {
		return Snapshot{}
	}
	snap, err := st.Load(ctx)
	if err != nil {
		log.Warn("persisted state unreadable; starting empty", logx.Err(err))
		return Snapshot{}
	}
	if snap == nil {
		snap = Snapshot{}
	}
	return snap
}
