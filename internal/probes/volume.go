package probes

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"pulsebar/internal/module"
)

const defaultVolume = 50

// Volume reads the default sink through pactl.
func Volume(opts module.Options) module.Handler {
	sink := opts.Get("sink", "@DEFAULT_SINK@")
	return module.Handler{
		Probe: func(ctx context.Context) (module.Fields, error) {
			mute, err := output(ctx, "pactl", "get-sink-mute", sink)
			if err != nil {
				return nil, err
			}
			vol, err := output(ctx, "pactl", "get-sink-volume", sink)
			if err != nil {
				return nil, err
			}
			return module.Fields{
				"volume_level": parseVolumeLevel(vol),
				"is_muted":     parseMuted(mute),
			}, nil
		},
		Render: renderVolume,
		Click:  func(context.Context) error { return Spawn("pavucontrol") },
	}
}

// parseVolumeLevel returns the first percentage in
// "Volume: front-left: 32768 /  50% / -18.06 dB, ...", without the sign.
func parseVolumeLevel(out string) string {
	for _, tok := range strings.Fields(out) {
		if strings.HasSuffix(tok, "%") {
			return strings.TrimSuffix(tok, "%")
		}
	}
	return ""
}

func parseMuted(out string) string {
	f := strings.Fields(strings.ToLower(out))
	if len(f) > 0 && f[len(f)-1] == "yes" {
		return "muted"
	}
	return "not muted"
}

func volumeIcon(level int, muted bool) string {
	switch {
	case muted:
		return "🔇"
	case level < 40:
		return "🔈"
	case level < 80:
		return "🔉"
	default:
		return "🔊"
	}
}

func renderVolume(f module.Fields) string {
	raw, ok := f["volume_level"]
	if !ok {
		raw = strconv.Itoa(defaultVolume)
	}
	level, err := strconv.Atoi(raw)
	if err != nil {
		level = defaultVolume
	}
	return fmt.Sprintf("%s%s%%", volumeIcon(level, f["is_muted"] == "muted"), raw)
}
