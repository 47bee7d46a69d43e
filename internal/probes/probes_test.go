package probes

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pulsebar/internal/module"
)

func TestDateFields(t *testing.T) {
	t.Parallel()
	cases := []struct {
		at   time.Time
		want string
	}{
		{time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC), "Tue Jan 2 03:04 05"},
		{time.Date(2024, time.March, 10, 0, 0, 9, 0, time.UTC), "Sun Mar 10 12:00 09"},
		{time.Date(2024, time.December, 31, 12, 30, 0, 0, time.UTC), "Tue Dec 31 12:30 00"},
	}
	for _, tc := range cases {
		if got := renderDate(dateFields(tc.at)); got != tc.want {
			t.Fatalf("renderDate(%v) = %q, want %q", tc.at, got, tc.want)
		}
	}
}

func TestBatteryReadAndRender(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	bat := filepath.Join(dir, "BAT1")
	if err := os.MkdirAll(bat, 0o755); err != nil {
		t.Fatal(err)
	}
	_ = os.WriteFile(filepath.Join(bat, "capacity"), []byte("80\n"), 0o644)
	_ = os.WriteFile(filepath.Join(bat, "status"), []byte("Not Charging\n"), 0o644)

	h := Battery(module.Options{"root": dir, "device": "BAT1"})
	f, err := h.Probe(context.Background())
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if f["status"] != "notcharging" || f["capacity"] != "80" {
		t.Fatalf("fields = %v", f)
	}
	if got := h.Render(f); got != "🔌 80%" {
		t.Fatalf("render = %q", got)
	}
	if got := renderBattery(module.Fields{"status": "discharging", "capacity": "12"}); got != "🔋 12%" {
		t.Fatalf("render = %q", got)
	}

	if _, err := Battery(module.Options{"root": dir}).Probe(context.Background()); err == nil {
		t.Fatalf("expected error for missing BAT0")
	}
}

func TestWifiParsing(t *testing.T) {
	t.Parallel()
	iwDev := "phy#0\n\tUnnamed/non-netdev interface\n\t\twdev 0x2\n\tInterface wlan0\n\t\tifindex 3\n"
	if got := parseInterface(iwDev); got != "wlan0" {
		t.Fatalf("parseInterface = %q", got)
	}
	if got := parseInterface("phy#0\n"); got != "" {
		t.Fatalf("parseInterface = %q, want empty", got)
	}
	if linkStatus("Connected to 00:11:22:33:44:55 (on wlan0)") != wifiConnected {
		t.Fatalf("expected connected")
	}
	if linkStatus("Not connected.") != wifiDisconnected {
		t.Fatalf("expected disconnected")
	}
	if renderWifi(module.Fields{"connect_status": "connected"}) != "📶" || renderWifi(module.Fields{}) != "" {
		t.Fatalf("renderWifi mismatch")
	}
}

func TestVolume(t *testing.T) {
	t.Parallel()
	out := "Volume: front-left: 32768 /  50% / -18.06 dB,   front-right: 32768 /  50% / -18.06 dB\n"
	if got := parseVolumeLevel(out); got != "50" {
		t.Fatalf("parseVolumeLevel = %q", got)
	}
	if parseMuted("Mute: yes\n") != "muted" || parseMuted("Mute: no\n") != "not muted" {
		t.Fatalf("parseMuted mismatch")
	}

	cases := []struct {
		f    module.Fields
		want string
	}{
		{module.Fields{"volume_level": "30", "is_muted": "not muted"}, "🔈30%"},
		{module.Fields{"volume_level": "40", "is_muted": "not muted"}, "🔉40%"},
		{module.Fields{"volume_level": "80", "is_muted": "not muted"}, "🔊80%"},
		{module.Fields{"volume_level": "80", "is_muted": "muted"}, "🔇80%"},
		{module.Fields{}, "🔉50%"},
		{module.Fields{"volume_level": "abc"}, "🔉abc%"},
	}
	for _, tc := range cases {
		if got := renderVolume(tc.f); got != tc.want {
			t.Fatalf("renderVolume(%v) = %q, want %q", tc.f, got, tc.want)
		}
	}
}

func TestPickLine(t *testing.T) {
	t.Parallel()
	// intn always 0: every line replaces the pick, so the last one wins.
	got, ok := pickLine(strings.NewReader("a\nb\nc\n"), func(int) int { return 0 })
	if !ok || got != "c" {
		t.Fatalf("pickLine = %q,%v", got, ok)
	}
	// intn never 0 after the first line: the first one stays.
	got, _ = pickLine(strings.NewReader("a\nb\nc\n"), func(n int) int { return n - 1 })
	if got != "a" {
		t.Fatalf("pickLine = %q", got)
	}
	if _, ok := pickLine(strings.NewReader(""), func(int) int { return 0 }); ok {
		t.Fatalf("expected no line")
	}
	if renderQuote(module.Fields{}) != "ERROR!" || renderQuote(module.Fields{"quote": "hi"}) != "hi" {
		t.Fatalf("renderQuote mismatch")
	}
}

func TestFocusedName(t *testing.T) {
	t.Parallel()
	tree := `{"focused":false,"nodes":[
		{"focused":false,"nodes":[{"focused":false,"app_id":"foot"}],
		 "floating_nodes":[{"focused":true,"app_id":null,"window_properties":{"class":"Firefox"}}]}
	]}`
	var root swayNode
	if err := json.Unmarshal([]byte(tree), &root); err != nil {
		t.Fatal(err)
	}
	if got := focusedName(&root); got != "Firefox" {
		t.Fatalf("focusedName = %q", got)
	}

	root = swayNode{Nodes: []swayNode{{Focused: true, AppID: "foot"}}}
	if got := focusedName(&root); got != "foot" {
		t.Fatalf("focusedName = %q", got)
	}
	root = swayNode{Nodes: []swayNode{{Focused: true}}}
	if got := focusedName(&root); got != "unknown" {
		t.Fatalf("focusedName = %q", got)
	}
	if got := focusedName(&swayNode{}); got != "nothing" {
		t.Fatalf("focusedName = %q", got)
	}
	if renderCurrent(module.Fields{}) != "nada" {
		t.Fatalf("renderCurrent fallback")
	}
}

func TestPickImage(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	for _, n := range []string{"a.jpg", "b.txt", "c.PNG", "d.jpeg"} {
		_ = os.WriteFile(filepath.Join(dir, n), nil, 0o644)
	}
	_ = os.Mkdir(filepath.Join(dir, "e.png"), 0o755)

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		img, err := pickImage(dir, func(int) int { return i })
		if err != nil {
			t.Fatal(err)
		}
		seen[filepath.Base(img)] = true
	}
	for _, want := range []string{"a.jpg", "c.PNG", "d.jpeg"} {
		if !seen[want] {
			t.Fatalf("image %s never picked: %v", want, seen)
		}
	}
	if _, err := pickImage(t.TempDir(), func(int) int { return 0 }); err == nil {
		t.Fatalf("expected error for empty dir")
	}
}

func TestRenderers(t *testing.T) {
	t.Parallel()
	if got := renderSysMetrics(module.Fields{"cpu": "12", "mem": "43", "mem_used": "3200000000", "load1": "0.52"}); got != "CPU 12% MEM 43% (3.2 GB) LOAD 0.52" {
		t.Fatalf("renderSysMetrics = %q", got)
	}
	if got := renderSysMetrics(module.Fields{}); got != "CPU -% MEM -% (?) LOAD -" {
		t.Fatalf("renderSysMetrics = %q", got)
	}
	if got := renderUnit(module.Fields{"unit": "sshd.service", "active": "active", "sub": "running"}); got != "🟢 sshd running" {
		t.Fatalf("renderUnit = %q", got)
	}
	if unitName("sshd") != "sshd.service" || unitName("backup.timer") != "backup.timer" {
		t.Fatalf("unitName mismatch")
	}
	if got := renderSpeedTest(module.Fields{"download": "93.1", "upload": "12.0", "ping": "14"}); got != "⬇93.1 ⬆12.0 Mbps 14ms" {
		t.Fatalf("renderSpeedTest = %q", got)
	}
}

func TestRegistryHasBuiltins(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	for _, k := range []string{"date", "battery", "wifi", "volume", "quote", "current", "bgchange", "noop", "sysmetrics", "unit", "speedtest"} {
		if !reg.Has(k) {
			t.Fatalf("kind %q not registered", k)
		}
	}
	h := reg.Resolve("noop", nil)
	f, err := h.Probe(context.Background())
	if err != nil || len(f) != 1 || f[""] != "" {
		t.Fatalf("noop probe = %v, %v", f, err)
	}
}

func TestCommandClick(t *testing.T) {
	t.Parallel()
	if err := CommandClick(nil)(context.Background()); err != nil {
		t.Fatalf("empty argv: %v", err)
	}
	if err := CommandClick([]string{"/nonexistent/pulsebar-click"})(context.Background()); err == nil {
		t.Fatalf("expected spawn error")
	}
}
