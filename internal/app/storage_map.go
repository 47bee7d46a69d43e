package app

import (
	"strings"

	"pulsebar/internal/storage"
)

func mapStorageConfig(cfg *Config) (storage.Config, bool) {
	p := cfg.Persist
	driver := strings.ToLower(strings.TrimSpace(p.Driver))
	switch driver {
	case "", "none", "disabled":
		return storage.Config{}, false
	}
	return storage.Config{
		Driver:      driver,
		Path:        strings.TrimSpace(p.Path),
		BusyTimeout: p.BusyTimeout.Std(),
	}, true
}
