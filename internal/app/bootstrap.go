package app

import (
	"fmt"

	"pulsebar/internal/config"
	"pulsebar/internal/metrics"
	"pulsebar/internal/module"
	"pulsebar/internal/probes"
	"pulsebar/internal/runtime/supervisor"
	"pulsebar/internal/task/scheduler"
	logx "pulsebar/pkg/logx"
)

// ---- Config ----

type Config = config.Config

type ConfigManager = config.ConfigManager

var NewConfigManager = config.NewConfigManager

var SummarizeConfigChange = config.SummarizeConfigChange

// ---- Runtime ----

type Supervisor = supervisor.Supervisor

var NewSupervisor = supervisor.NewSupervisor

var WithLogger = supervisor.WithLogger

var WithCancelOnError = supervisor.WithCancelOnError

// ---- Mapping ----

func mapLogConfig(cfg *Config) logx.Config {
	lc := cfg.Logging
	return logx.Config{
		Level:   lc.Level,
		Console: lc.Console,
		File: logx.FileConfig{
			Enabled:    lc.File.Enabled,
			Path:       lc.File.Path,
			MaxSizeMB:  lc.File.MaxSizeMB,
			MaxBackups: lc.File.MaxBackups,
			MaxAgeDays: lc.File.MaxAgeDays,
			Compress:   lc.File.Compress,
		},
	}
}

func mapMetricsConfig(cfg *Config) metrics.ServerConfig {
	return metrics.ServerConfig{
		Enabled: cfg.Metrics.Enabled,
		Addr:    cfg.Metrics.Addr,
		Pprof:   cfg.Metrics.Pprof,
	}
}

// buildModules resolves every configured module against reg, in config order.
// Click actions are keyed by module name, which is also the block instance.
func buildModules(cfg *Config, reg *module.Registry) ([]scheduler.ModuleSpec, map[string]module.ClickAction, error) {
	specs := make([]scheduler.ModuleSpec, 0, len(cfg.Modules))
	clicks := make(map[string]module.ClickAction, len(cfg.Modules))
	def := cfg.DefaultTimeout.Std()

	for i, m := range cfg.Modules {
		gate, err := scheduler.ParseGate(m.TTL.Std(), m.Schedule)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: modules[%d].schedule: %w", config.ErrInvalid, i, err)
		}
		h := reg.Resolve(m.KindOrName(), module.Options(m.Options))
		if len(m.OnClick) > 0 {
			h.Click = probes.CommandClick(m.OnClick)
		}
		specs = append(specs, scheduler.ModuleSpec{
			Name:    m.Name,
			Gate:    gate,
			Timeout: m.TimeoutOr(def),
			Display: m.Shown(),
			Probe:   h.Probe,
			Render:  h.Render,
		})
		clicks[m.Name] = h.Click
	}
	return specs, clicks, nil
}

// unknownKinds lists configured kinds the registry does not know; they run
// as no-ops.
func unknownKinds(cfg *Config, reg *module.Registry) []string {
	var out []string
	for _, m := range cfg.Modules {
		if k := m.KindOrName(); !reg.Has(k) {
			out = append(out, k)
		}
	}
	return out
}
