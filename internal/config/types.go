package config

import "time"

// Config is the top-level pulsebar configuration.
//
// Durations accept either integer milliseconds (the bar's historical format)
// or Go duration strings ("250ms", "1m").
type Config struct {
	PollTime       Duration `json:"poll_time"`
	DefaultTimeout Duration `json:"default_timeout"`

	Persist PersistConfig  `json:"persist"`
	Modules []ModuleConfig `json:"modules"`

	Logging LoggingConfig `json:"logging"`
	Clicks  ClicksConfig  `json:"clicks"`
	Metrics MetricsConfig `json:"metrics"`
}

// PersistConfig controls where refresh state survives restarts.
//
// Example:
//
//	"persist": { "driver": "file", "path": "~/.cache/pulsebar/state.json", "buffer_size": 10 }
type PersistConfig struct {
	Driver string `json:"driver,omitempty"` // file (default), sqlite, none
	Path   string `json:"path"`

	// BufferSize writes one snapshot out of every BufferSize ticks.
	BufferSize int `json:"buffer_size"`

	BusyTimeout Duration `json:"busy_timeout,omitempty"` // sqlite
}

// ModuleConfig describes one bar block.
//
// Kind selects the probe/renderer pair. It defaults to Name so the common
// case ("name": "battery") needs no extra key.
type ModuleConfig struct {
	Name     string            `json:"name"`
	Kind     string            `json:"kind,omitempty"`
	TTL      Duration          `json:"ttl"`
	Schedule string            `json:"schedule,omitempty"`
	Timeout  *Duration         `json:"timeout,omitempty"`
	Display  *bool             `json:"display,omitempty"`
	Options  map[string]string `json:"options,omitempty"`
	OnClick  []string          `json:"on_click,omitempty"`
}

func (m ModuleConfig) KindOrName() string {
	if m.Kind != "" {
		return m.Kind
	}
	return m.Name
}

// Shown reports whether the module contributes a block to the bar.
func (m ModuleConfig) Shown() bool { return m.Display == nil || *m.Display }

func (m ModuleConfig) TimeoutOr(def time.Duration) time.Duration {
	if m.Timeout == nil {
		return def
	}
	return m.Timeout.Std()
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
	MaxAgeDays int    `json:"max_age_days,omitempty"`
	Compress   bool   `json:"compress,omitempty"`
}

// ClicksConfig controls click dispatch.
//
// RatePerSec limits actions per block instance; 0 disables limiting.
type ClicksConfig struct {
	RatePerSec int      `json:"rate_per_sec,omitempty"`
	Timeout    Duration `json:"timeout,omitempty"`
	QueueSize  int      `json:"queue_size,omitempty"`
}

// MetricsConfig controls the optional Prometheus/pprof HTTP listener.
//
// Prefer binding to localhost (e.g. "127.0.0.1:9464").
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"`
	Pprof   bool   `json:"pprof,omitempty"`
}

const (
	DefaultPollTime       = 250 * time.Millisecond
	DefaultProbeTimeout   = time.Second
	DefaultBufferSize     = 10
	DefaultClickTimeout   = 30 * time.Second
	DefaultClickQueueSize = 10
	DefaultMetricsAddr    = "127.0.0.1:9464"
)

// ApplyDefaults fills zero values. It never overrides explicit settings.
func (c *Config) ApplyDefaults() {
	if c.PollTime <= 0 {
		c.PollTime = Duration(DefaultPollTime)
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = Duration(DefaultProbeTimeout)
	}
	if c.Persist.Driver == "" {
		c.Persist.Driver = "file"
	}
	if c.Persist.BufferSize <= 0 {
		c.Persist.BufferSize = DefaultBufferSize
	}
	if c.Clicks.Timeout <= 0 {
		c.Clicks.Timeout = Duration(DefaultClickTimeout)
	}
	if c.Clicks.QueueSize <= 0 {
		c.Clicks.QueueSize = DefaultClickQueueSize
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = DefaultMetricsAddr
	}
}
