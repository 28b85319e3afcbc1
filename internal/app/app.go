// Package app wires configuration, logging, storage, publishers, the tracker
// and the scheduler into a running service.
package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"memberwatch/internal/config"
	"memberwatch/internal/counter"
	"memberwatch/internal/health"
	"memberwatch/internal/httpclient"
	"memberwatch/internal/runtime/supervisor"
	"memberwatch/internal/scheduler"
	"memberwatch/internal/storage"
	"memberwatch/internal/tracker"
	"memberwatch/internal/transport"
	"memberwatch/internal/transport/discord"
	"memberwatch/internal/transport/telegram"
	logx "memberwatch/pkg/logx"
)

const sweepSchedule = "sweep"

type StopReason string

const (
	StopSignal     StopReason = "signal"
	StopFatalError StopReason = "fatal_error"
	StopOnce       StopReason = "once"
)

type App struct {
	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	store storage.Store

	fetcher *swapFetcher
	router  *transport.Router
	tracker *tracker.Tracker
	sched   *scheduler.Service
	health  *health.Server
	notify  *notifier

	mu       sync.RWMutex
	entities []tracker.Entity
}

// New loads cfgPath and builds every component without starting anything.
func New(cfgPath string) (*App, error) {
	return newWithManager(config.NewManager(cfgPath))
}

func newWithManager(cfgm *config.Manager) (*App, error) {
	cfg, err := cfgm.Parse()
	if err != nil {
		return nil, err
	}
	if err := validateRuntime(context.Background(), cfg); err != nil {
		return nil, err
	}
	cfgm.Commit(cfg)

	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	cc, err := mapCounterClient(cfg)
	if err != nil {
		return nil, err
	}
	nc, err := mapNotifyClient(cfg)
	if err != nil {
		return nil, err
	}
	entities, err := mapEntities(cfg)
	if err != nil {
		return nil, err
	}

	logSvc, root := logx.NewService(mapLogConfig(cfg))
	log := root.Named("app")

	store, err := storage.Open(sc, root.Named("storage"))
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	log.Info("storage opened", logx.String("driver", sc.Driver))

	counterHTTP := httpclient.New(cc, root.Named("http.counter"))
	notifyHTTP := httpclient.New(nc, root.Named("http.notify"))

	fetcher := &swapFetcher{}
	fetcher.set(counter.New(mapCounterConfig(cfg), counterHTTP))

	router := transport.NewRouter()
	router.Register(transport.KindDiscord, discord.New(
		discord.Config{APIBase: cfg.Notifications.DiscordAPI},
		notifyHTTP,
		root.Named("discord"),
	))
	if tok := strings.TrimSpace(cfg.Telegram.Token); tok != "" {
		tp, err := telegram.New(telegram.Config{Token: tok, APIURL: cfg.Telegram.APIURL}, notifyHTTP, root.Named("telegram"))
		if err != nil {
			_ = store.Close()
			_ = logSvc.Close()
			return nil, err
		}
		router.Register(transport.KindTelegram, tp)
	}

	tr := tracker.New(fetcher, router, store, mapTrackerSettings(cfg), root.Named("tracker"))
	if err := tr.Load(context.Background()); err != nil {
		log.Warn("starting with empty state", logx.Err(err))
	}

	a := &App{
		cfgm:     cfgm,
		log:      log,
		logs:     logSvc,
		store:    store,
		fetcher:  fetcher,
		router:   router,
		tracker:  tr,
		sched:    scheduler.New(scheduler.Config{Timezone: cfg.Timezone}, root.Named("scheduler")),
		health:   health.New(mapHealthConfig(cfg), root.Named("health")),
		notify:   newNotifier(root.Named("systemd")),
		entities: entities,
	}
	return a, nil
}

func (a *App) Logger() logx.Logger { return a.log }

func (a *App) Config() *config.Config { return a.cfgm.Get() }

// Entities returns the entities the next sweep will process.
func (a *App) Entities() []tracker.Entity {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]tracker.Entity(nil), a.entities...)
}

// Done is closed when the app context is cancelled (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Sweep runs one update cycle over all entities.
func (a *App) Sweep(ctx context.Context) []tracker.Result {
	return a.tracker.Sweep(ctx, a.Entities())
}

// Preview fetches and composes for every entity without publishing.
func (a *App) Preview(ctx context.Context) []tracker.Result {
	entities := a.Entities()
	out := make([]tracker.Result, 0, len(entities))
	for _, e := range entities {
		if ctx.Err() != nil {
			break
		}
		out = append(out, a.tracker.Preview(ctx, e))
	}
	return out
}

func (a *App) sweepJob(ctx context.Context) error {
	results := a.Sweep(ctx)
	failed := 0
	for _, r := range results {
		if r.Outcome == tracker.OutcomeFailed {
			failed++
		}
	}
	if failed > 0 && failed == len(results) {
		return fmt.Errorf("all %d entities failed", failed)
	}
	return nil
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	cfg := a.cfgm.Get()

	a.cfgm.SetLogger(a.logs.Logger().Named("config"))
	a.cfgm.SetValidator(validateRuntime)

	timeout, err := mapSweepTimeout(cfg)
	if err != nil {
		return err
	}
	if err := a.sched.AddSchedule(sweepSchedule, cfg.Schedule, timeout, a.sweepJob); err != nil {
		return err
	}
	a.sched.Start(a.sup.Context())
	a.health.Start(a.sup.Context())

	if cfg.ShouldRunOnStart() {
		a.sup.Go0("sweep.startup", func(c context.Context) {
			_ = a.sched.RunNow(c, sweepSchedule)
		})
	}

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(c, sub)
	})
	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.notify.ready()
	a.notify.startWatchdog(a.sup)

	a.log.Info("app started",
		logx.Int("entities", len(a.Entities())),
		logx.String("schedule", cfg.Schedule),
		logx.Int64("milestone_step", cfg.MilestoneStep),
	)
	return nil
}

func (a *App) reloadLoop(c context.Context, sub chan *config.Config) {
	lastApplied := a.cfgm.Get()
	for {
		select {
		case <-c.Done():
			return
		case newCfg, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts.
		drain:
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						newCfg = newer
					}
				default:
					break drain
				}
			}
			a.applyConfig(lastApplied, newCfg)
			lastApplied = newCfg
		}
	}
}

func (a *App) applyConfig(oldCfg, newCfg *config.Config) {
	sections, attrs := config.SummarizeChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	for _, s := range config.RequiresRestart(sections) {
		a.log.Warn("config section changed; restart required", logx.String("section", s))
	}

	if err := a.logs.Apply(mapLogConfig(newCfg)); err != nil {
		a.log.Warn("logging sink not applied", logx.Err(err))
	}
	a.tracker.SetSettings(mapTrackerSettings(newCfg))
	a.fetcher.set(counter.New(mapCounterConfig(newCfg), a.fetcher.client()))

	if entities, err := mapEntities(newCfg); err != nil {
		a.log.Warn("invalid entities; keeping previous", logx.Err(err))
	} else {
		a.mu.Lock()
		a.entities = entities
		a.mu.Unlock()
	}

	a.sched.Apply(scheduler.Config{Timezone: newCfg.Timezone})
	if strings.TrimSpace(oldCfg.Schedule) != strings.TrimSpace(newCfg.Schedule) || oldCfg.SweepTimeout != newCfg.SweepTimeout {
		if timeout, err := mapSweepTimeout(newCfg); err != nil {
			a.log.Warn("invalid sweep_timeout; keeping previous schedule", logx.Err(err))
		} else if err := a.sched.AddSchedule(sweepSchedule, newCfg.Schedule, timeout, a.sweepJob); err != nil {
			a.log.Warn("invalid schedule; keeping previous", logx.Err(err))
		}
	}

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}

// Stop shuts everything down in order, bounding each step.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return a.Close()
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	a.notify.stopping()
	a.sup.Cancel()

	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()

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
			a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name), logx.Duration("elapsed", time.Since(start)))
		}
	}

	step("scheduler", 5*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	step("health", 2*time.Second, a.health.Stop)
	step("supervisor", 2*time.Second, a.sup.Wait)
	step("storage", 2*time.Second, func(context.Context) error { return a.store.Close() })

	a.log.Info("stopped")
	return a.logs.Close()
}

// Close releases resources for an app that was never started.
func (a *App) Close() error {
	err := a.store.Close()
	if cerr := a.logs.Close(); err == nil {
		err = cerr
	}
	return err
}
