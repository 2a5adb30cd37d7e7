package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"barghbot/internal/alert"
	"barghbot/internal/bot"
	"barghbot/internal/config"
	"barghbot/internal/eventbus"
	"barghbot/internal/jalali"
	"barghbot/internal/notifier"
	"barghbot/internal/observability/pprof"
	"barghbot/internal/outage"
	rtsup "barghbot/internal/runtime/supervisor"
	"barghbot/internal/store"
	"barghbot/internal/task/engine"
	"barghbot/internal/task/scheduler"
	kit "barghbot/internal/transport"
	telegram "barghbot/internal/transport/telegram/adapter"
	logx "barghbot/pkg/logx"

	"github.com/coreos/go-systemd/v22/daemon"
)

// StopReason records why the app is shutting down; it only feeds logs.
type StopReason string

const (
	StopUnknown    StopReason = "unknown"
	StopSignal     StopReason = "signal"
	StopFatalError StopReason = "fatal_error"
	StopAppStop    StopReason = "app_stop"
)

type App struct {
	cfgPath string

	cfgm *config.ConfigManager
	sup  *rtsup.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus
	st   store.Store

	adapter *telegram.Adapter
	source  *outage.Source

	alerts *alert.Service
	engine *engine.Service
	sched  *scheduler.Service
	notif  *notifier.Service
	pprof  *pprof.Service

	handlers *bot.Handlers
	disp     *bot.Dispatcher

	updates chan kit.Update
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	bootLog := logx.NewConsole("INFO").With(logx.String("comp", "telegram"))

	pollTimeout, err := parseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	ad, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, bootLog)
	if err != nil {
		return nil, err
	}

	// logx.New applies its config immediately. Telegram logging starts
	// disabled so Apply does not warn before the target chat is wired.
	baseLogCfg := mapLoggingConfig(cfg)
	baseLogCfg.Telegram.Enabled = false
	logSvc, log := logx.New(baseLogCfg, ad)
	log = log.With(logx.String("comp", "app"))

	if cfg.Telegram.LogChatID != 0 {
		logSvc.SetTelegramTarget(cfg.Telegram.LogChatID)
	}
	logSvc.Apply(mapLoggingConfig(cfg))

	bus := eventbus.New()

	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(sc, log.With(logx.String("comp", "store")))
	if err != nil {
		return nil, err
	}
	log.Info("storage ready", logx.String("driver", sc.Driver))

	// Gateway stack: one HTTP client, two cache tiers, a Tehran clock.
	gc, err := mapGatewayConfig(cfg)
	if err != nil {
		return nil, err
	}
	schedTTL, liveTTL, err := mapCacheTTLs(cfg)
	if err != nil {
		return nil, err
	}
	client := outage.NewClient(gc, log.With(logx.String("comp", "gateway")))
	clock := jalali.NewClock(cfg.Alerts.Timezone)
	source := outage.NewSource(client,
		outage.NewCache(schedTTL), outage.NewCache(liveTTL),
		clock, log.With(logx.String("comp", "outage")))

	engCfg, err := mapEngineConfig(cfg)
	if err != nil {
		return nil, err
	}
	engineSvc := engine.New(engCfg, log.With(logx.String("comp", "taskengine")), bus)

	schedSvc := scheduler.New(scheduler.Config{
		Enabled:  cfg.Alerts.Enabled,
		Timezone: clock.Location().String(),
	}, engineSvc, log.With(logx.String("comp", "scheduler")), bus)

	ncfg, err := mapNotifierConfig(cfg)
	if err != nil {
		return nil, err
	}
	notifSvc := notifier.New(ncfg, ad, log.With(logx.String("comp", "notifier")), bus)

	alertSvc := alert.NewService(st, source, notifSvc, bus,
		log.With(logx.String("comp", "alerts")), cfg.Alerts.RetentionDays)

	pprofCfg, err := mapPprofConfig(cfg)
	if err != nil {
		return nil, err
	}
	pprofSvc := pprof.New(pprofCfg, log.With(logx.String("comp", "pprof")))

	handlers := bot.NewHandlers(st, source, ad, cfgm, log.With(logx.String("comp", "bot")))
	disp := bot.NewDispatcher(log.With(logx.String("comp", "dispatch")), ad, handlers, cfg.Telegram.OwnerUserIDs)

	a := &App{
		cfgPath:  cfgPath,
		cfgm:     cfgm,
		log:      log,
		logs:     logSvc,
		bus:      bus,
		st:       st,
		adapter:  ad,
		source:   source,
		alerts:   alertSvc,
		engine:   engineSvc,
		sched:    schedSvc,
		notif:    notifSvc,
		pprof:    pprofSvc,
		handlers: handlers,
		disp:     disp,
		updates:  make(chan kit.Update, 256),
	}
	handlers.SetStatusFunc(a.statusText)
	return a, nil
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop).
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
	a.sup = rtsup.NewSupervisor(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))

	// transactional config reload: validate before commit/publish
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(c context.Context, cfg *config.Config) error {
		if _, err := config.ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout); err != nil {
			return err
		}
		if tz := strings.TrimSpace(cfg.Alerts.Timezone); tz != "" {
			if _, err := time.LoadLocation(tz); err != nil {
				return fmt.Errorf("alerts.timezone: invalid %q: %w", tz, err)
			}
		}
		if _, err := config.ParseDurationField("alerts.tick_interval", cfg.Alerts.TickInterval); err != nil {
			return err
		}
		if !validHHMM(cfg.Alerts.DigestAt) {
			return fmt.Errorf("alerts.digest_at: want HH:MM, got %q", cfg.Alerts.DigestAt)
		}
		if !validHHMM(cfg.Alerts.CleanupAt) {
			return fmt.Errorf("alerts.cleanup_at: want HH:MM, got %q", cfg.Alerts.CleanupAt)
		}
		if cfg.Alerts.RetentionDays < 0 {
			return fmt.Errorf("alerts.retention_days must be >= 0")
		}
		if _, err := mapGatewayConfig(cfg); err != nil {
			return err
		}
		if _, _, err := mapCacheTTLs(cfg); err != nil {
			return err
		}
		if _, err := mapEngineConfig(cfg); err != nil {
			return err
		}
		if _, err := mapNotifierConfig(cfg); err != nil {
			return err
		}
		if _, err := mapPprofConfig(cfg); err != nil {
			return err
		}
		if _, err := mapStorageConfig(cfg); err != nil {
			return err
		}
		return nil
	})

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}

	if mu, ok := any(a.adapter).(kit.CommandMenuUpdater); ok {
		cmds := []kit.BotCommand{{Command: "start", Description: "نمایش منوی اصلی"}}
		if err := mu.UpdateMenuCommands(a.sup.Context(), cmds); err != nil {
			a.log.Warn("set command menu failed", logx.Any("err", err))
		}
	}

	if a.notif.Enabled() {
		a.notif.Start(a.sup.Context())
	}
	if a.engine.Enabled() {
		a.engine.Start(a.sup.Context())
	}
	if a.sched.Enabled() {
		a.sched.Start(a.sup.Context())
	}
	if a.pprof.Enabled() {
		a.pprof.Start(a.sup.Context())
	}

	if err := a.registerAlertJobs(); err != nil {
		return err
	}

	a.sup.Go("bot.dispatch", func(c context.Context) error {
		return a.disp.DispatchLoop(c, a.updates)
	})

	// Debug trace of bus traffic; components subscribe themselves for real work.
	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})

	a.startReloadLoop()

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	// Tell systemd we're up; no-op outside a unit.
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	a.log.Info("app started")
	return nil
}

// registerAlertJobs wires the three recurring jobs onto the scheduler.
func (a *App) registerAlertJobs() error {
	cfg := a.cfgm.Get()

	tick, err := parseDurationOrDefault("alerts.tick_interval", cfg.Alerts.TickInterval, time.Minute)
	if err != nil {
		return err
	}
	digestAt := strings.TrimSpace(cfg.Alerts.DigestAt)
	if digestAt == "" {
		digestAt = "00:01"
	}
	cleanupAt := strings.TrimSpace(cfg.Alerts.CleanupAt)
	if cleanupAt == "" {
		cleanupAt = "03:00"
	}

	if _, err := a.sched.AddInterval("alerts.tick", tick, 55*time.Second, a.alerts.Tick); err != nil {
		return err
	}
	if _, err := a.sched.AddDaily("alerts.digest", digestAt, 5*time.Minute, a.alerts.Digest); err != nil {
		return err
	}
	if _, err := a.sched.AddDaily("alerts.cleanup", cleanupAt, time.Minute, func(ctx context.Context) error {
		if err := a.alerts.Cleanup(ctx); err != nil {
			return err
		}
		a.source.Sweep()
		return nil
	}); err != nil {
		return err
	}
	return nil
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))

	// Cancel the run context first so background loops start unwinding.
	a.sup.Cancel()

	// Each shutdown step gets an upper bound so one component can't stall the
	// whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		a.log.Debug("stop step begin", logx.String("name", name), logx.Duration("max", max))

		stepCtx := ctx
		var cancel context.CancelFunc
		if max > 0 {
			// respect the caller's deadline; never extend it
			if dl, ok := ctx.Deadline(); ok {
				rem := time.Until(dl)
				if rem <= 0 {
					max = 0
				} else if rem < max {
					max = rem
				}
			}
			if max > 0 {
				stepCtx, cancel = context.WithTimeout(ctx, max)
				defer cancel()
			}
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
				a.log.Warn("stop step error", logx.String("name", name), logx.String("err", err.Error()))
			}
			took := time.Since(start)
			if took >= 500*time.Millisecond {
				a.log.Info("stop step end", logx.String("name", name), logx.Duration("took", took))
			} else {
				a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", took))
			}
		case <-stepCtx.Done():
			// fn must honor stepCtx and return promptly; log a leak signal when it doesn't.
			elapsed := time.Since(start)
			a.log.Warn(
				"stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.String("err", stepCtx.Err().Error()),
				logx.Duration("elapsed", elapsed),
			)
			go func() {
				err := <-done
				took := time.Since(start)
				if err != nil {
					a.log.Warn("stop step finished after deadline", logx.String("name", name), logx.String("err", err.Error()), logx.Duration("took", took))
				} else {
					a.log.Info("stop step finished after deadline", logx.String("name", name), logx.Duration("took", took))
				}
			}()
		}
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	step("scheduler", 2*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	step("taskengine", 2*time.Second, func(c context.Context) error { a.engine.Stop(c); return nil })
	step("pprof", 1*time.Second, func(c context.Context) error { a.pprof.Stop(c); return nil })
	step("notifier", 1*time.Second, func(c context.Context) error { a.notif.Stop(c); return nil })
	step("adapter", 2*time.Second, func(c context.Context) error { return a.adapter.Stop(c) })
	step("store", 1*time.Second, func(c context.Context) error { return a.st.Close() })

	// Finally, wait for supervised goroutines (config watch/reload, dispatcher).
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	a.log.Info("stopped")
	if a.logs != nil {
		a.logs.Close()
	}
	return nil
}
