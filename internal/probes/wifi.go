package probes

import (
	"context"
	"errors"
	"strings"

	"pulsebar/internal/module"
)

const (
	wifiConnected    = "connected"
	wifiDisconnected = "disconnected"
)

// Wifi asks iw for the first wireless interface and its link state.
// Options: interface skips the lookup.
func Wifi(opts module.Options) module.Handler {
	iface := opts.Get("interface", "")
	return module.Handler{
		Probe: func(ctx context.Context) (module.Fields, error) {
			name := iface
			if name == "" {
				out, err := output(ctx, "iw", "dev")
				if err != nil {
					return nil, err
				}
				name = parseInterface(out)
				if name == "" {
					return nil, errors.New("iw dev: no interface")
				}
			}
			link, err := output(ctx, "iw", name, "link")
			if err != nil {
				return nil, err
			}
			return module.Fields{"connect_status": linkStatus(link)}, nil
		},
		Render: renderWifi,
		Click:  wifiClick,
	}
}

func parseInterface(iwDev string) string {
	for _, line := range strings.Split(iwDev, "\n") {
		f := strings.Fields(line)
		if len(f) == 2 && f[0] == "Interface" {
			return f[1]
		}
	}
	return ""
}

func linkStatus(iwLink string) string {
	if strings.Contains(iwLink, "Connected") {
		return wifiConnected
	}
	return wifiDisconnected
}

func renderWifi(f module.Fields) string {
	switch f["connect_status"] {
	case wifiConnected:
		return "📶"
	case wifiDisconnected:
		return "❌"
	}
	return ""
}

func wifiClick(ctx context.Context) error {
	if err := run(ctx, true, "pkill", "iwgtk"); err != nil {
		return err
	}
	return Spawn("iwgtk")
}
