package probes

import (
	"context"
	"encoding/json"
	"fmt"

	"pulsebar/internal/config"
	"pulsebar/internal/module"
)

type swayNode struct {
	Focused          bool   `json:"focused"`
	AppID            string `json:"app_id"`
	WindowProperties *struct {
		Class string `json:"class"`
	} `json:"window_properties"`
	Nodes         []swayNode `json:"nodes"`
	FloatingNodes []swayNode `json:"floating_nodes"`
}

// Current shows the focused window's app id. Clicking opens the program
// picker (option picker).
func Current(opts module.Options) module.Handler {
	picker := config.ExpandPath(opts.Get("picker", "~/.config/sway/prog-select"))
	return module.Handler{
		Probe: func(ctx context.Context) (module.Fields, error) {
			out, err := output(ctx, "swaymsg", "-t", "get_tree", "-r")
			if err != nil {
				return nil, err
			}
			var root swayNode
			if err := json.Unmarshal([]byte(out), &root); err != nil {
				return nil, fmt.Errorf("swaymsg get_tree: %w", err)
			}
			return module.Fields{"out": focusedName(&root)}, nil
		},
		Render: renderCurrent,
		Click:  func(context.Context) error { return Spawn("foot", "sh", "-c", picker) },
	}
}

func findFocused(n *swayNode) *swayNode {
	if n.Focused {
		return n
	}
	for i := range n.Nodes {
		if f := findFocused(&n.Nodes[i]); f != nil {
			return f
		}
	}
	for i := range n.FloatingNodes {
		if f := findFocused(&n.FloatingNodes[i]); f != nil {
			return f
		}
	}
	return nil
}

func focusedName(root *swayNode) string {
	f := findFocused(root)
	switch {
	case f == nil:
		return "nothing"
	case f.AppID != "":
		return f.AppID
	case f.WindowProperties != nil && f.WindowProperties.Class != "":
		return f.WindowProperties.Class
	}
	return "unknown"
}

func renderCurrent(f module.Fields) string {
	if v, ok := f["out"]; ok {
		return v
	}
	return "nada"
}
