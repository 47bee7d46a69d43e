package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"pulsebar/internal/click"
	"pulsebar/internal/emitter"
	"pulsebar/internal/metrics"
	"pulsebar/internal/module"
	"pulsebar/internal/probes"
	"pulsebar/internal/state"
	"pulsebar/internal/storage"
	"pulsebar/internal/task/engine"
	"pulsebar/internal/task/scheduler"
	logx "pulsebar/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *ConfigManager
	sup  *Supervisor

	log  logx.Logger
	logs *logx.Service

	reg     *module.Registry
	store   storage.Store
	states  *state.Store
	tasks   *engine.Registry
	sched   *scheduler.Scheduler
	loop    *scheduler.Loop
	emit    *emitter.Emitter
	clicks  *click.Router
	persist *storage.Persister
	metrics *metrics.Server
	sd      *sdNotifier

	in  io.Reader
	out io.Writer
}

type Option func(*App)

// WithIO replaces stdin/stdout, mainly for tests.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(a *App) { a.in, a.out = in, out }
}

// WithRegistry replaces the built-in module kinds.
func WithRegistry(reg *module.Registry) Option {
	return func(a *App) { a.reg = reg }
}

func NewApp(cfgPath string, opts ...Option) (*App, error) {
	a := &App{cfgPath: cfgPath, in: os.Stdin, out: os.Stdout}
	for _, o := range opts {
		o(a)
	}
	if a.reg == nil {
		a.reg = probes.NewRegistry()
	}

	a.cfgm = NewConfigManager(cfgPath)
	cfg, err := a.cfgm.Parse()
	if err != nil {
		return nil, err
	}
	specs, actions, err := buildModules(cfg, a.reg)
	if err != nil {
		return nil, err
	}
	a.cfgm.Commit(cfg)

	a.logs, a.log = logx.New(mapLogConfig(cfg))
	a.log = a.log.With(logx.String("comp", "app"))
	if unk := unknownKinds(cfg, a.reg); len(unk) > 0 {
		a.log.Warn("unknown module kinds run as no-ops", logx.Any("kinds", unk))
	}

	// Persistence is best-effort: a store that cannot open only costs the
	// cached state.
	if sc, enabled := mapStorageConfig(cfg); enabled {
		st, err := storage.Open(sc, a.log.With(logx.String("comp", "storage")))
		switch {
		case err == nil:
			a.store = st
			a.log.Info("storage enabled", logx.String("driver", sc.Driver), logx.String("path", sc.Path))
		case !errors.Is(err, storage.ErrDisabled):
			a.log.Warn("storage unavailable; state will not persist", logx.Err(err))
		}
	}
	loadCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	a.states = state.NewStore(storage.LoadOrEmpty(loadCtx, a.store, a.log))
	cancel()

	a.tasks = engine.NewRegistry(a.log)
	a.sched = scheduler.New(specs, a.states, a.tasks, a.log)
	a.emit = emitter.New(a.out, emitter.DefaultQueueSize, a.log)

	a.clicks = click.NewRouter(cfg.Clicks.QueueSize, a.log)
	a.clicks.SetActions(actions)
	a.clicks.SetRate(cfg.Clicks.RatePerSec)
	a.clicks.SetTimeout(cfg.Clicks.Timeout.Std())

	a.metrics = metrics.NewServer(a.log)
	a.sd = newSDNotifier(a.log.With(logx.String("comp", "systemd")))

	loopOpts := []scheduler.LoopOption{
		scheduler.WithClicks(a.clicks),
		scheduler.WithOutput(a.emit),
		scheduler.WithHeartbeat(a.sd.Heartbeat),
		scheduler.WithLoopLogger(a.log),
	}
	if a.store != nil {
		a.persist = storage.NewPersister(a.store, cfg.Persist.BufferSize, storage.DefaultQueueSize, a.log)
		loopOpts = append(loopOpts, scheduler.WithStateSink(a.persist))
	}
	a.loop = scheduler.NewLoop(a.sched, cfg.PollTime.Std(), loopOpts...)

	return a, nil
}

func (a *App) Registry() *module.Registry { return a.reg }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = NewSupervisor(ctx, WithLogger(a.log), WithCancelOnError(true))

	// transactional config reload: validate before commit/publish
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *Config) error {
		_, _, err := buildModules(cfg, a.reg)
		return err
	})

	if err := a.emit.WriteHeader(); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	a.sup.Go("emitter", a.emit.Run)
	// A blocked stdin read cannot be interrupted, so the listener stays
	// outside the supervisor and is abandoned on shutdown. A closed stdin is
	// not fatal: swaybar may never send clicks.
	go func(c context.Context) {
		if err := a.clicks.Listen(c, a.in); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Warn("click listener stopped", logx.Err(err))
		}
	}(a.sup.Context())
	if a.persist != nil {
		a.sup.Go("persist", a.persist.Run)
	}

	cfg := a.cfgm.Get()
	a.metrics.Reconfigure(a.sup.Context(), mapMetricsConfig(cfg))

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config in the channel.
				for drained := false; !drained; {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						drained = true
					}
				}
				a.applyConfig(c, lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})
	a.sup.Go("config.watch", a.cfgm.Watch)
	a.sup.Go("loop", a.loop.Run)

	a.sd.Ready()
	a.log.Info("bar started",
		logx.Int("modules", len(cfg.Modules)),
		logx.Duration("poll_time", cfg.PollTime.Std()),
	)
	return nil
}

// applyConfig pushes a committed config into the running components.
func (a *App) applyConfig(ctx context.Context, oldCfg, newCfg *Config) {
	sections, attrs, changedModules := SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Debug("config change summary", fields...)
	if len(changedModules) > 0 {
		a.log.Debug("module changes detected", logx.Any("modules", changedModules))
	}

	for _, s := range sections {
		if s == "persist" {
			a.log.Warn("persist config changed; restart required for changes to take effect")
		}
	}

	a.logs.Apply(mapLogConfig(newCfg))

	specs, actions, err := buildModules(newCfg, a.reg)
	if err != nil {
		// The validator already ran, so this only happens if the registry changed.
		a.log.Warn("invalid modules; keeping previous", logx.Err(err))
	} else {
		a.sched.Apply(specs)
		a.clicks.SetActions(actions)
	}
	a.clicks.SetRate(newCfg.Clicks.RatePerSec)
	a.clicks.SetTimeout(newCfg.Clicks.Timeout.Std())
	a.loop.SetPeriod(newCfg.PollTime.Std())
	if a.persist != nil {
		a.persist.SetBufferSize(newCfg.Persist.BufferSize)
	}
	a.metrics.Reconfigure(ctx, mapMetricsConfig(newCfg))

	a.log.Info("config reloaded", fields...)
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	a.sd.Stopping()

	// Cancel first so the loop, listeners and persister start unwinding.
	a.sup.Cancel()

	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx := ctx
		if max > 0 {
			// respect the caller's deadline; never extend it
			if dl, ok := ctx.Deadline(); ok && time.Until(dl) < max {
				max = time.Until(dl)
			}
			var cancel context.CancelFunc
			stepCtx, cancel = context.WithTimeout(ctx, max)
			defer cancel()
		}

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Err(stepCtx.Err()),
				logx.Duration("elapsed", time.Since(start)),
			)
		}
	}

	// The supervisor owns the loop and the persister, whose Run flushes the
	// newest snapshot on the way out.
	step("supervisor", 3*time.Second, func(c context.Context) error { return a.sup.Wait(c) })
	step("probes", time.Second, func(c context.Context) error { return engine.Wait(c, a.tasks.CancelAll()) })
	step("clicks", 2*time.Second, func(c context.Context) error { return a.clicks.Wait(c) })
	step("metrics", time.Second, func(c context.Context) error { a.metrics.Stop(c); return nil })
	step("storage", time.Second, func(c context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})

	if c := a.sup.Counters(); len(c.Restarts) > 0 {
		a.log.Info("supervised restarts", logx.Any("restarts", c.Restarts), logx.Uint64("started", c.Started))
	}
	if err := a.sup.Err(); err != nil {
		a.log.Error("stopped with error", logx.Err(err))
	} else {
		a.log.Info("stopped")
	}
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}
