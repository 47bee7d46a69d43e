package module

import (
	"context"
	"testing"
)

func TestResolveUnknownKindIsNoop(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	h := r.Resolve("nope", nil)
	f, err := h.Probe(context.Background())
	if err != nil {
		t.Fatalf("noop probe err: %v", err)
	}
	if v, ok := f[""]; !ok || v != "" {
		t.Fatalf("noop probe fields=%v", f)
	}
	if got := h.Render(Fields{"x": "y"}); got != "" {
		t.Fatalf("noop render=%q", got)
	}
	if err := h.Click(context.Background()); err != nil {
		t.Fatalf("noop click err: %v", err)
	}
}

func TestResolveFillsMissingParts(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.MustRegister("echo", func(opts Options) Handler {
		return Handler{Render: func(f Fields) string { return opts.Get("prefix", ">") + f["v"] }}
	})
	h := r.Resolve("echo", Options{"prefix": "#"})
	if h.Probe == nil || h.Click == nil {
		t.Fatalf("missing parts should default to noop")
	}
	if got := h.Render(Fields{"v": "1"}); got != "#1" {
		t.Fatalf("render=%q", got)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	f := func(Options) Handler { return Noop() }
	if err := r.Register("a", f); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := r.Register("a", f); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if got := r.Kinds(); len(got) != 1 || got[0] != "a" {
		t.Fatalf("kinds=%v", got)
	}
}

func TestFieldsMergeKeepsUntouchedKeys(t *testing.T) {
	t.Parallel()

	data := Fields{"level": "80", "icon": "🔋"}
	data.Merge(Fields{"level": "79"})
	if data["level"] != "79" || data["icon"] != "🔋" {
		t.Fatalf("merge=%v", data)
	}

	var empty Fields
	out := empty.Merge(Fields{"a": "b"})
	if out["a"] != "b" {
		t.Fatalf("merge into nil=%v", out)
	}
}
