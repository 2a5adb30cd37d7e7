package app

import (
	"context"
	"strings"
	"time"

	"barghbot/internal/config"
	"barghbot/internal/task/scheduler"
	logx "barghbot/pkg/logx"
)

// startReloadLoop fans a committed config out to the live subsystems.
// Scheduler job cadences (tick interval, digest/cleanup times) are fixed at
// startup; changing them needs a restart, same as storage.
func (a *App) startReloadLoop() {
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
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				sections, attrs := config.SummarizeConfigChange(lastApplied, newCfg)
				if len(sections) > 0 {
					fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
					a.log.Debug("config change summary", fields...)
				} else {
					a.log.Debug("config reload received, but no effective changes detected")
				}
				lastApplied = newCfg

				for _, s := range sections {
					switch s {
					case "storage", "alerts", "gateway", "cache":
						a.log.Warn("config section needs restart to fully apply", logx.String("section", s))
					}
				}

				// update log target first so Apply doesn't warn when Telegram
				// logging is enabled
				a.logs.SetTelegramTarget(newCfg.Telegram.LogChatID)
				a.logs.Apply(mapLoggingConfig(newCfg))

				a.disp.SetOwners(newCfg.Telegram.OwnerUserIDs)

				a.applyEngine(c, newCfg)
				a.applyNotifier(c, newCfg)

				if ppc, err := mapPprofConfig(newCfg); err != nil {
					a.log.Warn("invalid pprof config; keeping previous", logx.Any("err", err))
				} else {
					a.pprof.Reconfigure(c, ppc)
				}

				if len(sections) > 0 {
					fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
					a.log.Info("config reloaded", fields...)
				} else {
					a.log.Info("config reloaded (no changes)")
				}
			}
		}
	})
}

func (a *App) applyEngine(c context.Context, newCfg *config.Config) {
	prevSchedEnabled := a.sched.Enabled()
	prevEngEnabled := a.engine.Enabled()

	engCfg, err := mapEngineConfig(newCfg)
	if err != nil {
		a.log.Warn("invalid engine config; keeping previous", logx.Any("err", err))
		return
	}
	a.engine.Apply(c, engCfg)
	a.sched.Apply(a.schedulerConfig(newCfg))

	newEnabled := newCfg.Alerts.Enabled

	// scheduler first on shutdown, engine first on startup
	if prevSchedEnabled && !newEnabled {
		a.log.Info("alert scheduling disabled via config")
		stopCtx, cancel := context.WithTimeout(c, 3*time.Second)
		a.sched.Stop(stopCtx)
		cancel()
	}
	if prevEngEnabled && !newEnabled {
		stopCtx, cancel := context.WithTimeout(c, 3*time.Second)
		a.engine.Stop(stopCtx)
		cancel()
	}
	if !prevEngEnabled && newEnabled {
		a.engine.Start(c)
	}
	if !prevSchedEnabled && newEnabled {
		a.log.Info("alert scheduling enabled via config")
		a.sched.Start(c)
	}
}

func (a *App) applyNotifier(c context.Context, newCfg *config.Config) {
	prevEnabled := a.notif.Enabled()
	ncfg, err := mapNotifierConfig(newCfg)
	if err != nil {
		a.log.Warn("invalid notifier config; keeping previous", logx.Any("err", err))
		return
	}
	a.notif.Apply(ncfg)
	if prevEnabled && !ncfg.Enabled {
		a.log.Info("notifier disabled via config")
		stopCtx, cancel := context.WithTimeout(c, 3*time.Second)
		a.notif.Stop(stopCtx)
		cancel()
	} else if !prevEnabled && ncfg.Enabled {
		a.log.Info("notifier enabled via config")
		a.notif.Start(c)
	}
}

func (a *App) schedulerConfig(cfg *config.Config) scheduler.Config {
	return scheduler.Config{
		Enabled:  cfg.Alerts.Enabled,
		Timezone: strings.TrimSpace(cfg.Alerts.Timezone),
	}
}
