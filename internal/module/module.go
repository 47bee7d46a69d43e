package module

import (
	"context"
	"maps"
)

// Fields is the string-keyed data a probe produces and a renderer consumes.
type Fields map[string]string

// Clone returns an independent copy. A nil receiver yields an empty map.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	maps.Copy(out, f)
	return out
}

// Merge overwrites keys in f with those in src and returns f.
// Keys absent from src are kept.
func (f Fields) Merge(src Fields) Fields {
	if f == nil {
		f = make(Fields, len(src))
	}
	maps.Copy(f, src)
	return f
}

// Probe gathers fresh data. It must honour ctx cancellation.
type Probe func(ctx context.Context) (Fields, error)

// Renderer turns the last known data into the block's full_text.
// It must be pure; missing fields render as a fallback.
type Renderer func(Fields) string

// ClickAction reacts to a click on the block. It runs fire-and-forget.
type ClickAction func(ctx context.Context) error

// Handler bundles the behavior of one module kind.
type Handler struct {
	Probe  Probe
	Render Renderer
	Click  ClickAction
}

// Options carries per-instance settings from the config's options map.
type Options map[string]string

// Get returns the option or def when it is missing or empty.
func (o Options) Get(key, def string) string {
	if v, ok := o[key]; ok && v != "" {
		return v
	}
	return def
}

// Factory builds a Handler for one configured instance.
type Factory func(opts Options) Handler

// Noop is the fallback handler: it probes {"": ""}, renders nothing and
// ignores clicks.
func Noop() Handler {
	return Handler{
		Probe:  func(context.Context) (Fields, error) { return Fields{"": ""}, nil },
		Render: func(Fields) string { return "" },
		Click:  NoopClick,
	}
}

func NoopClick(context.Context) error { return nil }
