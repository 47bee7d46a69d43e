package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDecodeFormats(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		path string
		body string
	}{
		{
			name: "json with comments",
			path: "bar.json",
			body: `{
				// refresh cadence in ms
				"poll_time": 250,
				"default_timeout": 1000,
				"persist": {"path": "/tmp/state.json", "buffer_size": 5},
				"modules": [
					{"name": "date", "ttl": 1000},
					{"name": "battery", "ttl": "30s", "timeout": 500, "display": false},
				],
			}`,
		},
		{
			name: "yaml",
			path: "bar.yaml",
			body: `
poll_time: 250
default_timeout: 1s
persist:
  path: /tmp/state.json
  buffer_size: 5
modules:
  - name: date
    ttl: 1000
  - name: battery
    ttl: 30s
    timeout: 500
    display: false
`,
		},
		{
			name: "toml",
			path: "bar.toml",
			body: `
poll_time = 250
default_timeout = "1s"

[persist]
path = "/tmp/state.json"
buffer_size = 5

[[modules]]
name = "date"
ttl = 1000

[[modules]]
name = "battery"
ttl = "30s"
timeout = 500
display = false
`,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg, err := Decode(tc.path, []byte(tc.body))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if cfg.PollTime.Std() != 250*time.Millisecond {
				t.Fatalf("poll_time=%v", cfg.PollTime)
			}
			if cfg.DefaultTimeout.Std() != time.Second {
				t.Fatalf("default_timeout=%v", cfg.DefaultTimeout)
			}
			if cfg.Persist.Driver != "file" || cfg.Persist.BufferSize != 5 {
				t.Fatalf("persist=%+v", cfg.Persist)
			}
			if len(cfg.Modules) != 2 {
				t.Fatalf("modules=%d", len(cfg.Modules))
			}
			bat := cfg.Modules[1]
			if bat.TTL.Std() != 30*time.Second {
				t.Fatalf("battery ttl=%v", bat.TTL)
			}
			if bat.TimeoutOr(time.Second) != 500*time.Millisecond {
				t.Fatalf("battery timeout=%v", bat.TimeoutOr(time.Second))
			}
			if bat.Shown() {
				t.Fatalf("battery should be hidden")
			}
			if !cfg.Modules[0].Shown() || cfg.Modules[0].TimeoutOr(time.Second) != time.Second {
				t.Fatalf("date defaults not applied: %+v", cfg.Modules[0])
			}
			if cfg.Modules[0].KindOrName() != "date" {
				t.Fatalf("kind fallback broken")
			}
		})
	}
}

func TestDecodeRejects(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
		want string
	}{
		{"unknown field", `{"poll_time": 1, "persist": {"path": "x"}, "bogus": 1}`, "unknown field"},
		{"duplicate module", `{"persist": {"path": "x"}, "modules": [{"name":"a","ttl":1},{"name":"a","ttl":1}]}`, "modules[1].name: duplicate"},
		{"missing name", `{"persist": {"path": "x"}, "modules": [{"ttl":1}]}`, "modules[0].name: required"},
		{"negative ttl", `{"persist": {"path": "x"}, "modules": [{"name":"a","ttl":-5}]}`, "must be >= 0"},
		{"bad driver", `{"persist": {"driver": "redis", "path": "x"}}`, "persist.driver"},
		{"missing path", `{"persist": {"driver": "file"}}`, "persist.path"},
		{"trailing data", `{"persist": {"path": "x"}} {}`, "trailing data"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode("bar.json", []byte(tc.body))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestMissingTTLMeansZero(t *testing.T) {
	t.Parallel()

	cfg, err := Decode("bar.json", []byte(`{"persist": {"path": "x"}, "modules": [{"name": "date"}]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Modules[0].TTL != 0 {
		t.Fatalf("ttl=%v", cfg.Modules[0].TTL)
	}
}

func TestValidateWrapsErrInvalid(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	cfg.ApplyDefaults()
	err := cfg.Validate()
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("want ErrInvalid, got %v", err)
	}
}

func TestDisabledPersistNeedsNoPath(t *testing.T) {
	t.Parallel()

	if _, err := Decode("bar.json", []byte(`{"persist": {"driver": "none"}}`)); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestSummarizeConfigChange(t *testing.T) {
	t.Parallel()

	oldCfg := &Config{Modules: []ModuleConfig{{Name: "date", TTL: 1000}, {Name: "wifi", TTL: 5000}}}
	newCfg := &Config{Modules: []ModuleConfig{{Name: "date", TTL: 2000}, {Name: "volume", TTL: 100}}}
	newCfg.Logging.Level = "debug"

	sections, _, mods := SummarizeConfigChange(oldCfg, newCfg)
	if strings.Join(sections, ",") != "logging,modules" {
		t.Fatalf("sections=%v", sections)
	}
	if strings.Join(mods, ",") != "date,volume,wifi" {
		t.Fatalf("modules=%v", mods)
	}
}

func TestManagerLoadAndWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bar.json")
	write := func(body string) {
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	write(`{"persist": {"path": "s.json"}, "modules": [{"name": "date", "ttl": 1000}]}`)

	m := NewConfigManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Get() != cfg {
		t.Fatalf("Get should return the committed config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := m.Subscribe(1)
	defer m.Unsubscribe(sub)
	go func() { _ = m.Watch(ctx) }()

	// Give the watcher a moment to register the directory.
	time.Sleep(200 * time.Millisecond)
	write(`{"persist": {"path": "s.json"}, "modules": [{"name": "date", "ttl": 2000}]}`)

	select {
	case got := <-sub:
		if got.Modules[0].TTL.Std() != 2*time.Second {
			t.Fatalf("unexpected ttl %v", got.Modules[0].TTL)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for reload")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	if got := ExpandPath("~/x/state.json"); got != filepath.Join(home, "x/state.json") {
		t.Fatalf("ExpandPath=%q", got)
	}
	if got := ExpandPath("/abs"); got != "/abs" {
		t.Fatalf("absolute path changed: %q", got)
	}
}
