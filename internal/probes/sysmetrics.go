package probes

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"

	"pulsebar/internal/module"
)

// SysMetrics samples cpu, memory and load average.
func SysMetrics(module.Options) module.Handler {
	return module.Handler{Probe: sampleSystem, Render: renderSysMetrics}
}

func sampleSystem(ctx context.Context) (module.Fields, error) {
	// interval 0 compares against the previous call; the first sample is 0.
	pct, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return nil, fmt.Errorf("cpu: %w", err)
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("mem: %w", err)
	}
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}

	f := module.Fields{
		"mem":      strconv.FormatFloat(vm.UsedPercent, 'f', 0, 64),
		"mem_used": strconv.FormatUint(vm.Used, 10),
		"load1":    strconv.FormatFloat(avg.Load1, 'f', 2, 64),
	}
	if len(pct) > 0 {
		f["cpu"] = strconv.FormatFloat(pct[0], 'f', 0, 64)
	}
	return f, nil
}

func renderSysMetrics(f module.Fields) string {
	used := "?"
	if n, err := strconv.ParseUint(f["mem_used"], 10, 64); err == nil {
		used = humanize.Bytes(n)
	}
	return fmt.Sprintf("CPU %s%% MEM %s%% (%s) LOAD %s", orDash(f["cpu"]), orDash(f["mem"]), used, orDash(f["load1"]))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
