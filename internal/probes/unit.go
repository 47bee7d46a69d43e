package probes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coreos/go-systemd/v22/dbus"

	"pulsebar/internal/module"
)

// Unit reports a systemd unit's ActiveState and SubState over D-Bus.
// Options: unit (required), bus (user|system, default user).
func Unit(opts module.Options) module.Handler {
	name := unitName(opts.Get("unit", ""))
	system := opts.Get("bus", "user") == "system"
	return module.Handler{
		Probe: func(ctx context.Context) (module.Fields, error) {
			if name == "" {
				return nil, errors.New("unit: option unit is required")
			}
			return unitState(ctx, name, system)
		},
		Render: renderUnit,
	}
}

func unitName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.Contains(s, ".") {
		return s
	}
	return s + ".service"
}

func unitState(ctx context.Context, name string, system bool) (module.Fields, error) {
	var (
		conn *dbus.Conn
		err  error
	)
	if system {
		conn, err = dbus.NewSystemConnectionContext(ctx)
	} else {
		conn, err = dbus.NewUserConnectionContext(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("connect to systemd: %w", err)
	}
	defer conn.Close()

	props, err := conn.GetUnitPropertiesContext(ctx, name)
	if err != nil {
		if strings.Contains(err.Error(), "NoSuchUnit") {
			return module.Fields{"unit": name, "active": "unknown", "sub": "not-found"}, nil
		}
		return nil, fmt.Errorf("status for %s: %w", name, err)
	}
	active, _ := props["ActiveState"].(string)
	sub, _ := props["SubState"].(string)
	if load, _ := props["LoadState"].(string); load == "not-found" {
		active, sub = "unknown", "not-found"
	}
	return module.Fields{"unit": name, "active": active, "sub": sub}, nil
}

func unitIcon(active string) string {
	switch active {
	case "active":
		return "🟢"
	case "failed":
		return "🔴"
	case "activating", "deactivating", "reloading":
		return "🟡"
	}
	return "⚪"
}

func renderUnit(f module.Fields) string {
	name := strings.TrimSuffix(f["unit"], ".service")
	if f["active"] == "" {
		return name
	}
	return fmt.Sprintf("%s %s %s", unitIcon(f["active"]), name, f["sub"])
}
