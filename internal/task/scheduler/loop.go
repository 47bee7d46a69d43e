package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"pulsebar/internal/emitter"
	"pulsebar/internal/metrics"
	"pulsebar/internal/state"
	logx "pulsebar/pkg/logx"
)

// ClickPoller takes at most one pending click per call, without blocking.
type ClickPoller interface {
	Poll(ctx context.Context) bool
}

type OutputSink interface {
	Submit(batch []emitter.Out)
}

type StateSink interface {
	Submit(snapshot map[string]state.RefreshState)
}

// Loop runs the scheduler at a fixed period. The period is measured from the
// start of one iteration to the start of the next; an overrunning tick is
// followed immediately by the next one.
type Loop struct {
	sched  *Scheduler
	clock  Clock
	period atomic.Int64

	clicks    ClickPoller
	out       OutputSink
	persist   StateSink
	heartbeat func()

	ticks atomic.Uint64
	log   logx.Logger
}

type LoopOption func(*Loop)

func WithClock(c Clock) LoopOption              { return func(l *Loop) { l.clock = c } }
func WithClicks(p ClickPoller) LoopOption       { return func(l *Loop) { l.clicks = p } }
func WithOutput(o OutputSink) LoopOption        { return func(l *Loop) { l.out = o } }
func WithStateSink(p StateSink) LoopOption      { return func(l *Loop) { l.persist = p } }
func WithHeartbeat(fn func()) LoopOption        { return func(l *Loop) { l.heartbeat = fn } }
func WithLoopLogger(log logx.Logger) LoopOption { return func(l *Loop) { l.log = log } }

func NewLoop(s *Scheduler, period time.Duration, opts ...LoopOption) *Loop {
	l := &Loop{sched: s, clock: RealClock(), log: logx.Nop()}
	l.SetPeriod(period)
	for _, o := range opts {
		o(l)
	}
	l.log = l.log.With(logx.String("comp", "loop"))
	return l
}

// SetPeriod changes the tick period; it takes effect after the current sleep.
func (l *Loop) SetPeriod(d time.Duration) {
	if d <= 0 {
		d = time.Millisecond
	}
	l.period.Store(int64(d))
}

func (l *Loop) Period() time.Duration { return time.Duration(l.period.Load()) }

// Ticks returns the number of completed iterations.
func (l *Loop) Ticks() uint64 { return l.ticks.Load() }

// RunOnce performs one iteration without sleeping.
func (l *Loop) RunOnce(ctx context.Context) []emitter.Out {
	if l.clicks != nil {
		l.clicks.Poll(ctx)
	}

	outs := l.sched.Tick(ctx, SinceEpoch(l.clock.Now()))

	if l.out != nil {
		l.out.Submit(outs)
	}
	if l.persist != nil {
		l.persist.Submit(l.sched.store.Snapshot())
	}
	if l.heartbeat != nil {
		l.heartbeat()
	}
	l.ticks.Add(1)
	return outs
}

// Run ticks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info("loop started", logx.Duration("period", l.Period()), logx.Int("modules", len(l.sched.Modules())))
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := l.clock.Now()
		l.RunOnce(ctx)
		elapsed := l.clock.Now().Sub(start)
		metrics.ObserveTick(elapsed.Seconds())

		wait := l.Period() - elapsed
		if wait < 0 {
			l.log.Debug("tick overran period", logx.Duration("elapsed", elapsed))
			wait = 0
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.clock.After(wait):
		}
	}
}
