package click

import (
	"bufio"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"pulsebar/internal/metrics"
	"pulsebar/internal/module"
	logx "pulsebar/pkg/logx"
)

const (
	DefaultQueueSize = 10
	DefaultTimeout   = 30 * time.Second
)

// Router owns the click queue and the instance -> action table.
type Router struct {
	events chan Event

	mu       sync.RWMutex
	actions  map[string]module.ClickAction
	perSec   int
	limiters map[string]*rate.Limiter
	timeout  time.Duration

	wg  sync.WaitGroup
	log logx.Logger
}

func NewRouter(queueSize int, log logx.Logger) *Router {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Router{
		events:   make(chan Event, queueSize),
		actions:  map[string]module.ClickAction{},
		limiters: map[string]*rate.Limiter{},
		timeout:  DefaultTimeout,
		log:      log.With(logx.String("comp", "click")),
	}
}

// SetActions replaces the routing table (on startup and config reload).
func (r *Router) SetActions(actions map[string]module.ClickAction) {
	cp := make(map[string]module.ClickAction, len(actions))
	for k, v := range actions {
		cp[k] = v
	}
	r.mu.Lock()
	r.actions = cp
	r.mu.Unlock()
}

// SetRate limits dispatches per instance; 0 disables limiting.
func (r *Router) SetRate(perSec int) {
	r.mu.Lock()
	if perSec != r.perSec {
		r.perSec = perSec
		r.limiters = map[string]*rate.Limiter{}
	}
	r.mu.Unlock()
}

func (r *Router) SetTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultTimeout
	}
	r.mu.Lock()
	r.timeout = d
	r.mu.Unlock()
}

// Listen reads click lines from rd until EOF or ctx is done. Malformed lines
// are skipped. When the queue is full Listen waits, which in turn applies
// back-pressure on the bar.
func (r *Router) Listen(ctx context.Context, rd io.Reader) error {
	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	for sc.Scan() {
		ev, err := Decode(sc.Bytes())
		if err != nil {
			// The opening "[" of the stream lands here too.
			metrics.IncClick(metrics.ClickMalformed)
			r.log.Debug("skipping click line", logx.Err(err))
			continue
		}
		select {
		case r.events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := sc.Err(); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	r.log.Debug("click stream closed")
	return nil
}

// Poll dispatches at most one queued event without blocking and reports
// whether one was taken.
func (r *Router) Poll(ctx context.Context) bool {
	select {
	case ev := <-r.events:
		r.Dispatch(ctx, ev)
		return true
	default:
		return false
	}
}

// Dispatch starts the action for ev.Instance in the background. Unknown
// instances map to a no-op.
func (r *Router) Dispatch(ctx context.Context, ev Event) {
	r.mu.Lock()
	action, ok := r.actions[ev.Instance]
	var lim *rate.Limiter
	if ok && r.perSec > 0 {
		lim = r.limiters[ev.Instance]
		if lim == nil {
			lim = rate.NewLimiter(rate.Limit(r.perSec), r.perSec)
			r.limiters[ev.Instance] = lim
		}
	}
	timeout := r.timeout
	r.mu.Unlock()

	if !ok || action == nil {
		metrics.IncClick(metrics.ClickUnknown)
		r.log.Debug("click on unknown instance", logx.String("instance", ev.Instance))
		return
	}
	if lim != nil && !lim.Allow() {
		metrics.IncClick(metrics.ClickLimited)
		r.log.Debug("click rate limited", logx.String("instance", ev.Instance))
		return
	}

	metrics.IncClick(metrics.ClickDispatched)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				r.log.Error("click action panic", logx.String("instance", ev.Instance), logx.Any("panic", rec))
			}
		}()
		actx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := action(actx); err != nil {
			r.log.Warn("click action failed", logx.String("instance", ev.Instance), logx.Int("button", ev.Button), logx.Err(err))
		}
	}()
}

// Wait blocks until running actions return or ctx is done.
func (r *Router) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of queued, undispatched events.
func (r *Router) Pending() int { return len(r.events) }
