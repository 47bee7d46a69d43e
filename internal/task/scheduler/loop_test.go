package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pulsebar/internal/emitter"
	"pulsebar/internal/module"
	"pulsebar/internal/state"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After advances the fake time by d and fires immediately.
func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	c.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

type recordSink struct {
	mu      sync.Mutex
	batches [][]emitter.Out
	states  []map[string]state.RefreshState
}

func (r *recordSink) Submit(b []emitter.Out) {
	r.mu.Lock()
	r.batches = append(r.batches, b)
	r.mu.Unlock()
}

type stateRecorder struct{ r *recordSink }

func (s stateRecorder) Submit(m map[string]state.RefreshState) {
	s.r.mu.Lock()
	s.r.states = append(s.r.states, m)
	s.r.mu.Unlock()
}

type countingClicks struct{ n atomic.Int32 }

func (c *countingClicks) Poll(context.Context) bool { c.n.Add(1); return false }

func TestLoopRunOnceWiresSinks(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestScheduler(ModuleSpec{
		Name: "date", Gate: TTL(time.Second), Timeout: time.Second, Display: true,
		Probe:  func(context.Context) (module.Fields, error) { return module.Fields{"v": "now"}, nil },
		Render: renderKey("v"),
	})
	clk := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	sink := &recordSink{}
	clicks := &countingClicks{}
	var beats atomic.Int32

	l := NewLoop(s, 250*time.Millisecond,
		WithClock(clk),
		WithClicks(clicks),
		WithOutput(sink),
		WithStateSink(stateRecorder{sink}),
		WithHeartbeat(func() { beats.Add(1) }),
	)
	l.RunOnce(context.Background())

	if clicks.n.Load() != 1 || beats.Load() != 1 || l.Ticks() != 1 {
		t.Fatalf("clicks=%d beats=%d ticks=%d", clicks.n.Load(), beats.Load(), l.Ticks())
	}
	if len(sink.batches) != 1 || len(sink.batches[0]) != 1 || sink.batches[0][0].Name != "date" {
		t.Fatalf("batches=%+v", sink.batches)
	}
	st, ok := sink.states[0]["date"]
	if !ok || !st.IsProcessing || st.StartTime != SinceEpoch(clk.Now()) {
		t.Fatalf("persisted=%+v", sink.states)
	}
}

func TestLoopRunHonoursPeriodAndCancel(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestScheduler()
	start := time.Unix(1_700_000_000, 0)
	clk := &fakeClock{now: start}

	ctx, cancel := context.WithCancel(context.Background())
	var l *Loop
	l = NewLoop(s, 250*time.Millisecond, WithClock(clk), WithHeartbeat(func() {
		if l.Ticks() >= 3 {
			cancel()
		}
	}))

	if err := l.Run(ctx); err != context.Canceled {
		t.Fatalf("run err=%v", err)
	}
	if l.Ticks() != 4 {
		t.Fatalf("ticks=%d", l.Ticks())
	}
	// Elapsed fake time is zero per tick, so every iteration sleeps a full
	// period; the last sleep is requested before the select sees ctx.
	if got := clk.Now().Sub(start); got != 4*250*time.Millisecond {
		t.Fatalf("fake time advanced %v", got)
	}
}
