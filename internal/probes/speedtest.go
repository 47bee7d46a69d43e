package probes

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	st "github.com/showwin/speedtest-go/speedtest"

	"pulsebar/internal/module"
)

// SpeedTest measures throughput against the lowest-latency nearby server.
// It is heavy; give it a long ttl or a schedule. Options: servers
// (candidates to ping, default 3).
func SpeedTest(opts module.Options) module.Handler {
	n, err := strconv.Atoi(opts.Get("servers", "3"))
	if err != nil || n <= 0 {
		n = 3
	}
	return module.Handler{
		Probe:  func(ctx context.Context) (module.Fields, error) { return runSpeedTest(ctx, n) },
		Render: renderSpeedTest,
	}
}

func runSpeedTest(ctx context.Context, candidates int) (module.Fields, error) {
	// A private client: speedtest-go keeps state on the package default.
	stc := st.New()
	defer func() {
		stc.Snapshots().Clean()
		stc.Reset()
	}()

	servers, err := stc.FetchServerListContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch server list: %w", err)
	}
	if a := servers.Available(); a != nil {
		servers = *a
	}
	if len(servers) == 0 {
		return nil, errors.New("speedtest: no servers available")
	}
	sort.Slice(servers, func(i, j int) bool { return servers[i].Distance < servers[j].Distance })
	if candidates > len(servers) {
		candidates = len(servers)
	}

	var best *st.Server
	for _, s := range servers[:candidates] {
		if err := s.PingTestContext(ctx, nil); err != nil || s.Latency <= 0 {
			continue
		}
		if best == nil || s.Latency < best.Latency {
			best = s
		}
	}
	if best == nil {
		return nil, errors.New("speedtest: all latency tests failed")
	}
	if err := best.DownloadTestContext(ctx); err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	if err := best.UploadTestContext(ctx); err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}

	return module.Fields{
		"download": strconv.FormatFloat(best.DLSpeed.Mbps(), 'f', 1, 64),
		"upload":   strconv.FormatFloat(best.ULSpeed.Mbps(), 'f', 1, 64),
		"ping":     strconv.FormatInt(best.Latency.Milliseconds(), 10),
		"server":   best.Sponsor,
	}, nil
}

func renderSpeedTest(f module.Fields) string {
	if f["download"] == "" {
		return "⏱ -"
	}
	return fmt.Sprintf("⬇%s ⬆%s Mbps %sms", f["download"], f["upload"], f["ping"])
}
