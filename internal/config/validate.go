package config

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalid = errors.New("invalid config")

// Validate checks a config after defaults were applied.
// All problems are reported at once, each prefixed with its field path.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.PollTime <= 0 {
		add("poll_time: must be > 0")
	}
	if c.DefaultTimeout <= 0 {
		add("default_timeout: must be > 0")
	}

	switch strings.ToLower(strings.TrimSpace(c.Persist.Driver)) {
	case "file", "sqlite":
		if strings.TrimSpace(c.Persist.Path) == "" {
			add("persist.path: required for driver %q", c.Persist.Driver)
		}
	case "none", "disabled":
	default:
		add("persist.driver: unsupported %q", c.Persist.Driver)
	}
	if c.Persist.BufferSize <= 0 {
		add("persist.buffer_size: must be > 0")
	}

	seen := make(map[string]int, len(c.Modules))
	for i, m := range c.Modules {
		path := fmt.Sprintf("modules[%d]", i)
		name := strings.TrimSpace(m.Name)
		if name == "" {
			add("%s.name: required", path)
			continue
		}
		if prev, ok := seen[name]; ok {
			add("%s.name: duplicate %q (also modules[%d])", path, name, prev)
		}
		seen[name] = i
		if m.Timeout != nil && *m.Timeout <= 0 {
			add("%s.timeout: must be > 0", path)
		}
		if len(m.OnClick) > 0 && strings.TrimSpace(m.OnClick[0]) == "" {
			add("%s.on_click: empty command", path)
		}
	}

	if c.Clicks.RatePerSec < 0 {
		add("clicks.rate_per_sec: must be >= 0")
	}
	if c.Metrics.Enabled && strings.TrimSpace(c.Metrics.Addr) == "" {
		add("metrics.addr: required when enabled")
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}
