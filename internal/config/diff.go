package config

import (
	"reflect"
	"sort"
	"strings"

	logx "pulsebar/pkg/logx"
)

// SummarizeConfigChange returns (1) a compact list of changed sections,
// (2) structured attrs for logging, and (3) the names of modules that were
// added, removed or changed.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field, []string) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 12)

	if oldCfg.PollTime != newCfg.PollTime || oldCfg.DefaultTimeout != newCfg.DefaultTimeout {
		changed = append(changed, "timing")
		attrs = append(attrs,
			logx.Duration("poll_time", newCfg.PollTime.Std()),
			logx.Duration("default_timeout", newCfg.DefaultTimeout.Std()),
		)
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if oldCfg.Persist != newCfg.Persist {
		changed = append(changed, "persist")
		attrs = append(attrs,
			logx.String("persist.driver", newCfg.Persist.Driver),
			logx.Int("persist.buffer_size", newCfg.Persist.BufferSize),
		)
	}

	if oldCfg.Clicks != newCfg.Clicks {
		changed = append(changed, "clicks")
		attrs = append(attrs, logx.Int("clicks.rate_per_sec", newCfg.Clicks.RatePerSec))
	}

	if oldCfg.Metrics != newCfg.Metrics {
		changed = append(changed, "metrics")
		attrs = append(attrs,
			logx.Bool("metrics.enabled", newCfg.Metrics.Enabled),
			logx.String("metrics.addr", strings.TrimSpace(newCfg.Metrics.Addr)),
		)
	}

	modChanged := diffModules(oldCfg.Modules, newCfg.Modules)
	orderChanged := !reflect.DeepEqual(moduleOrder(oldCfg.Modules), moduleOrder(newCfg.Modules))
	if len(modChanged) > 0 || orderChanged {
		changed = append(changed, "modules")
		attrs = append(attrs,
			logx.Int("modules.count", len(newCfg.Modules)),
			logx.Any("modules.changed", modChanged),
		)
	}

	sort.Strings(changed)
	return changed, attrs, modChanged
}

func moduleOrder(ms []ModuleConfig) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Name)
	}
	return out
}

func diffModules(oldM, newM []ModuleConfig) []string {
	byName := func(ms []ModuleConfig) map[string]uint64 {
		out := make(map[string]uint64, len(ms))
		for _, m := range ms {
			out[m.Name] = hashJSON(m)
		}
		return out
	}
	o, n := byName(oldM), byName(newM)

	set := map[string]struct{}{}
	for k := range o {
		set[k] = struct{}{}
	}
	for k := range n {
		set[k] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for name := range set {
		oh, inOld := o[name]
		nh, inNew := n[name]
		if inOld != inNew || oh != nh {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
