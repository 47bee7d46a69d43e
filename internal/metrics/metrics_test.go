package metrics

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "pulsebar/pkg/logx"
)

func TestRegisterIdempotentAndHelpersRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))

	IncProbeLaunch("wifi")
	IncProbeResult("wifi", ResultTimeout)
	ObserveProbeDuration("wifi", 0.2)
	ObserveTick(0.001)
	SetInflight(3)
	IncClick(ClickDispatched)
	IncQueueDropped(QueueEmitter)
	IncPersistWrite(ResultOK)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	want := map[string]bool{
		"pulsebar_probe_launches_total":   false,
		"pulsebar_probe_results_total":    false,
		"pulsebar_probe_duration_seconds": false,
		"pulsebar_tick_duration_seconds":  false,
		"pulsebar_probe_inflight":         false,
		"pulsebar_clicks_total":           false,
		"pulsebar_queue_dropped_total":    false,
		"pulsebar_persist_writes_total":   false,
	}
	for _, mf := range mfs {
		if _, ok := want[mf.GetName()]; ok {
			want[mf.GetName()] = len(mf.GetMetric()) > 0
		}
	}
	for name, seen := range want {
		assert.Truef(t, seen, "metric %s missing or empty", name)
	}
}

func TestRegisterEachRegistry(t *testing.T) {
	first := prometheus.NewRegistry()
	second := prometheus.NewRegistry()
	require.NoError(t, Register(first))
	require.NoError(t, Register(second))

	IncPersistWrite(ResultError)

	for _, reg := range []*prometheus.Registry{first, second} {
		mfs, err := reg.Gather()
		require.NoError(t, err)
		found := false
		for _, mf := range mfs {
			if mf.GetName() == "pulsebar_persist_writes_total" {
				found = len(mf.GetMetric()) > 0
			}
		}
		assert.True(t, found, "second registry must carry the collectors too")
	}
}

func TestServerServesMetrics(t *testing.T) {
	srv := NewServer(logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv.Reconfigure(ctx, ServerConfig{Enabled: true, Addr: "127.0.0.1:0"})
	defer srv.Stop(context.Background())

	var addr string
	require.Eventually(t, func() bool {
		addr = srv.Addr()
		return addr != ""
	}, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")

	resp2, err := http.Get("http://" + addr + "/debug/pprof/")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestIsLoopbackAddr(t *testing.T) {
	t.Parallel()

	assert.True(t, isLoopbackAddr("127.0.0.1:9464"))
	assert.True(t, isLoopbackAddr("localhost:1"))
	assert.False(t, isLoopbackAddr(":9464"))
	assert.False(t, isLoopbackAddr("0.0.0.0:9464"))
}
