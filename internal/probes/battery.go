package probes

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pulsebar/internal/module"
)

const powerSupplyDir = "/sys/class/power_supply"

// Battery reads sysfs capacity and status. Options: device (default BAT0),
// root (default /sys/class/power_supply).
func Battery(opts module.Options) module.Handler {
	dir := filepath.Join(opts.Get("root", powerSupplyDir), opts.Get("device", "BAT0"))
	return module.Handler{
		Probe:  func(context.Context) (module.Fields, error) { return readBattery(dir) },
		Render: renderBattery,
	}
}

func readBattery(dir string) (module.Fields, error) {
	capRaw, err := os.ReadFile(filepath.Join(dir, "capacity"))
	if err != nil {
		return nil, err
	}
	statRaw, err := os.ReadFile(filepath.Join(dir, "status"))
	if err != nil {
		return nil, err
	}
	capacity := strings.ReplaceAll(strings.TrimSpace(string(capRaw)), `"`, "")
	status := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(string(statRaw))), " ", "")
	return module.Fields{"capacity": capacity, "status": status}, nil
}

func batteryIcon(status string) string {
	switch status {
	case "full":
		return "🟢"
	case "charging":
		return "⚡"
	case "notcharging":
		return "🔌"
	case "discharging":
		return "🔋"
	}
	return ""
}

func renderBattery(f module.Fields) string {
	return fmt.Sprintf("%s %s%%", batteryIcon(f["status"]), f["capacity"])
}
