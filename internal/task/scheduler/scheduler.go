package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"pulsebar/internal/emitter"
	"pulsebar/internal/metrics"
	"pulsebar/internal/module"
	"pulsebar/internal/state"
	"pulsebar/internal/task/engine"
	logx "pulsebar/pkg/logx"
)

// ModuleSpec is a resolved, ready-to-run module.
type ModuleSpec struct {
	Name    string
	Gate    Gate
	Timeout time.Duration
	Display bool
	Probe   module.Probe
	Render  module.Renderer
}

const timeoutWarnEvery = 30 * time.Second

type Scheduler struct {
	mu      sync.RWMutex
	modules []ModuleSpec

	store *state.Store
	tasks *engine.Registry
	log   logx.Logger

	warnMu   sync.Mutex
	lastWarn map[string]time.Time
}

func New(modules []ModuleSpec, store *state.Store, tasks *engine.Registry, log logx.Logger) *Scheduler {
	return &Scheduler{
		modules:  append([]ModuleSpec(nil), modules...),
		store:    store,
		tasks:    tasks,
		log:      log.With(logx.String("comp", "scheduler")),
		lastWarn: map[string]time.Time{},
	}
}

// Modules returns the current module set in display order.
func (s *Scheduler) Modules() []ModuleSpec {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ModuleSpec(nil), s.modules...)
}

// Apply swaps the module set. Probes of modules that disappeared are
// cancelled; their state entries stay in the store. It returns the names of
// cancelled probes.
//
// Apply waits for a running Tick to finish, so a handle re-inserted by that
// tick is still swept.
func (s *Scheduler) Apply(modules []ModuleSpec) []string {
	keep := make(map[string]struct{}, len(modules))
	for _, m := range modules {
		keep[m.Name] = struct{}{}
	}
	s.mu.Lock()
	s.modules = append([]ModuleSpec(nil), modules...)
	dropped := s.tasks.Retain(keep)
	s.mu.Unlock()

	if len(dropped) > 0 {
		s.log.Info("cancelled probes of removed modules", logx.Any("modules", dropped))
	}
	return dropped
}

// Tick evaluates every module once at time now (an offset from the Unix
// epoch) and returns the blocks to display, in configured order.
//
// ctx bounds the lifetime of probes launched during this tick, so it must
// outlive the tick itself.
func (s *Scheduler) Tick(ctx context.Context, now time.Duration) []emitter.Out {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mods := s.modules
	outs := make([]emitter.Out, len(mods))
	shown := make([]bool, len(mods))

	var g errgroup.Group
	for i, m := range mods {
		i, m := i, m
		g.Go(func() error {
			outs[i], shown[i] = s.step(ctx, m, now)
			return nil
		})
	}
	_ = g.Wait()

	res := make([]emitter.Out, 0, len(mods))
	for i := range mods {
		if shown[i] {
			res = append(res, outs[i])
		}
	}
	metrics.SetInflight(s.tasks.Len())
	return res
}

// step runs one module's state machine for one tick.
func (s *Scheduler) step(ctx context.Context, m ModuleSpec, now time.Duration) (emitter.Out, bool) {
	st := s.store.Get(m.Name)
	h := s.tasks.Take(m.Name)

	if !st.IsProcessing && m.Gate.Due(st.StartTime, now) {
		if h != nil {
			h.Cancel()
		}
		h = s.tasks.Launch(ctx, m.Name, m.Probe)
		st.IsProcessing = true
		st.StartTime = now
		metrics.IncProbeLaunch(m.Name)
	}

	completed := false
	if h != nil {
		if res, ok := h.Poll(); ok {
			completed = true
			stale := !s.tasks.Current(h)
			gen := h.Generation()
			h = nil
			metrics.ObserveProbeDuration(m.Name, res.Elapsed.Seconds())
			if stale {
				// A newer launch exists for this name; this result belongs to nobody.
				st.Reset()
				metrics.IncProbeResult(m.Name, metrics.ResultError)
				s.log.Debug("discarded stale probe result", logx.String("module", m.Name), logx.Uint64("generation", gen))
			} else if res.Err == nil {
				st.Data = st.Data.Merge(res.Fields)
				st.IsProcessing = false
				metrics.IncProbeResult(m.Name, metrics.ResultOK)
			} else {
				// Reset rather than keep start_time: the module is eligible again next tick.
				st.Reset()
				metrics.IncProbeResult(m.Name, metrics.ResultError)
				s.log.Debug("probe failed", logx.String("module", m.Name), logx.Err(res.Err))
			}
		}
	}

	if !completed && st.IsProcessing && now-st.StartTime >= m.Timeout {
		if h != nil {
			h.Cancel()
			h = nil
		}
		st.Reset()
		metrics.IncProbeResult(m.Name, metrics.ResultTimeout)
		s.warnTimeout(m.Name, m.Timeout)
	}

	if h != nil {
		s.tasks.Insert(m.Name, h)
	}
	s.store.Put(m.Name, st)

	if !m.Display {
		return emitter.Out{}, false
	}
	return emitter.Out{Name: m.Name, Instance: m.Name, FullText: s.render(m, st.Data)}, true
}

// render isolates renderer panics; a broken renderer shows an empty block.
func (s *Scheduler) render(m ModuleSpec, data module.Fields) (text string) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("renderer panic", logx.String("module", m.Name), logx.String("panic", fmt.Sprint(r)))
			text = ""
		}
	}()
	return m.Render(data)
}

func (s *Scheduler) warnTimeout(name string, timeout time.Duration) {
	now := time.Now()
	s.warnMu.Lock()
	last := s.lastWarn[name]
	if !last.IsZero() && now.Sub(last) < timeoutWarnEvery {
		s.warnMu.Unlock()
		s.log.Debug("probe timed out", logx.String("module", name))
		return
	}
	s.lastWarn[name] = now
	s.warnMu.Unlock()
	s.log.Warn("probe timed out; cancelled", logx.String("module", name), logx.Duration("timeout", timeout))
}
