package config

import (
	"reflect"
	"sort"
	"strings"

	logx "barghbot/pkg/logx"
)

// SummarizeConfigChange returns a compact list of changed sections plus safe
// structured attrs for logging. Secrets (tokens, JWT) never appear; only
// whether they are set.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 20)

	// Telegram (never log token)
	if strings.TrimSpace(oldCfg.Telegram.PollTimeout) != strings.TrimSpace(newCfg.Telegram.PollTimeout) ||
		!reflect.DeepEqual(oldCfg.Telegram.OwnerUserIDs, newCfg.Telegram.OwnerUserIDs) ||
		oldCfg.Telegram.LogChatID != newCfg.Telegram.LogChatID ||
		(strings.TrimSpace(oldCfg.Telegram.Token) != "") != (strings.TrimSpace(newCfg.Telegram.Token) != "") {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.String("telegram.poll_timeout", strings.TrimSpace(newCfg.Telegram.PollTimeout)),
			logx.Int("telegram.owner_count", len(newCfg.Telegram.OwnerUserIDs)),
			logx.Bool("telegram.log_chat_set", newCfg.Telegram.LogChatID != 0),
		)
	}

	// Logging
	if oldCfg.Logging.Level != newCfg.Logging.Level ||
		oldCfg.Logging.Console != newCfg.Logging.Console ||
		oldCfg.Logging.File.Enabled != newCfg.Logging.File.Enabled ||
		strings.TrimSpace(oldCfg.Logging.File.Path) != strings.TrimSpace(newCfg.Logging.File.Path) ||
		oldCfg.Logging.Telegram.Enabled != newCfg.Logging.Telegram.Enabled ||
		oldCfg.Logging.Telegram.MinLevel != newCfg.Logging.Telegram.MinLevel ||
		oldCfg.Logging.Telegram.RatePerSec != newCfg.Logging.Telegram.RatePerSec {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logx.telegram_enabled", newCfg.Logging.Telegram.Enabled),
		)
	}

	// Pprof (never log token)
	if oldCfg.Pprof.Enabled != newCfg.Pprof.Enabled ||
		strings.TrimSpace(oldCfg.Pprof.Addr) != strings.TrimSpace(newCfg.Pprof.Addr) ||
		strings.TrimSpace(oldCfg.Pprof.Prefix) != strings.TrimSpace(newCfg.Pprof.Prefix) ||
		oldCfg.Pprof.AllowInsecure != newCfg.Pprof.AllowInsecure ||
		strings.TrimSpace(oldCfg.Pprof.ReadTimeout) != strings.TrimSpace(newCfg.Pprof.ReadTimeout) ||
		strings.TrimSpace(oldCfg.Pprof.WriteTimeout) != strings.TrimSpace(newCfg.Pprof.WriteTimeout) ||
		strings.TrimSpace(oldCfg.Pprof.IdleTimeout) != strings.TrimSpace(newCfg.Pprof.IdleTimeout) ||
		(strings.TrimSpace(oldCfg.Pprof.Token) != "") != (strings.TrimSpace(newCfg.Pprof.Token) != "") {
		changed = append(changed, "pprof")
		attrs = append(attrs,
			logx.Bool("pprof.enabled", newCfg.Pprof.Enabled),
			logx.String("pprof.addr", strings.TrimSpace(newCfg.Pprof.Addr)),
			logx.Bool("pprof.token_set", strings.TrimSpace(newCfg.Pprof.Token) != ""),
			logx.Bool("pprof.allow_insecure", newCfg.Pprof.AllowInsecure),
		)
	}

	// Gateway (never log JWT)
	if strings.TrimSpace(oldCfg.Gateway.BaseURL) != strings.TrimSpace(newCfg.Gateway.BaseURL) ||
		strings.TrimSpace(oldCfg.Gateway.ScheduleTimeout) != strings.TrimSpace(newCfg.Gateway.ScheduleTimeout) ||
		strings.TrimSpace(oldCfg.Gateway.LiveTimeout) != strings.TrimSpace(newCfg.Gateway.LiveTimeout) ||
		strings.TrimSpace(oldCfg.Gateway.ProxyURL) != strings.TrimSpace(newCfg.Gateway.ProxyURL) ||
		(strings.TrimSpace(oldCfg.Gateway.JWT) != "") != (strings.TrimSpace(newCfg.Gateway.JWT) != "") {
		changed = append(changed, "gateway")
		attrs = append(attrs,
			logx.String("gateway.base_url", strings.TrimSpace(newCfg.Gateway.BaseURL)),
			logx.String("gateway.schedule_timeout", strings.TrimSpace(newCfg.Gateway.ScheduleTimeout)),
			logx.String("gateway.live_timeout", strings.TrimSpace(newCfg.Gateway.LiveTimeout)),
			logx.Bool("gateway.proxy_set", strings.TrimSpace(newCfg.Gateway.ProxyURL) != ""),
			logx.Bool("gateway.jwt_set", strings.TrimSpace(newCfg.Gateway.JWT) != ""),
		)
	}

	// Cache TTLs
	if strings.TrimSpace(oldCfg.Cache.ScheduleTTL) != strings.TrimSpace(newCfg.Cache.ScheduleTTL) ||
		strings.TrimSpace(oldCfg.Cache.LiveTTL) != strings.TrimSpace(newCfg.Cache.LiveTTL) {
		changed = append(changed, "cache")
		attrs = append(attrs,
			logx.String("cache.schedule_ttl", strings.TrimSpace(newCfg.Cache.ScheduleTTL)),
			logx.String("cache.live_ttl", strings.TrimSpace(newCfg.Cache.LiveTTL)),
		)
	}

	// Alerts
	if !reflect.DeepEqual(oldCfg.Alerts, newCfg.Alerts) {
		changed = append(changed, "alerts")
		attrs = append(attrs,
			logx.Bool("alerts.enabled", newCfg.Alerts.Enabled),
			logx.String("alerts.timezone", strings.TrimSpace(newCfg.Alerts.Timezone)),
			logx.String("alerts.tick_interval", strings.TrimSpace(newCfg.Alerts.TickInterval)),
			logx.String("alerts.digest_at", strings.TrimSpace(newCfg.Alerts.DigestAt)),
			logx.String("alerts.cleanup_at", strings.TrimSpace(newCfg.Alerts.CleanupAt)),
			logx.Int("alerts.retention_days", newCfg.Alerts.RetentionDays),
		)
	}

	// Storage (path itself may reveal usernames; only report whether it is set)
	if strings.TrimSpace(oldCfg.Storage.Driver) != strings.TrimSpace(newCfg.Storage.Driver) ||
		strings.TrimSpace(oldCfg.Storage.Path) != strings.TrimSpace(newCfg.Storage.Path) ||
		strings.TrimSpace(oldCfg.Storage.BusyTimeout) != strings.TrimSpace(newCfg.Storage.BusyTimeout) {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", strings.TrimSpace(newCfg.Storage.Driver)),
			logx.Bool("storage.path_set", strings.TrimSpace(newCfg.Storage.Path) != ""),
			logx.String("storage.busy_timeout", strings.TrimSpace(newCfg.Storage.BusyTimeout)),
		)
	}

	// Notifier (section may be omitted; nil means runtime defaults)
	defN := &NotifierConfig{Enabled: true, Workers: 2, QueueSize: 512, RatePerSec: 3}
	oldN := oldCfg.Notifier
	newN := newCfg.Notifier
	if oldN == nil {
		oldN = defN
	}
	if newN == nil {
		newN = defN
	}
	if !reflect.DeepEqual(*oldN, *newN) {
		changed = append(changed, "notifier")
		attrs = append(attrs,
			logx.Bool("notifier.enabled", newN.Enabled),
			logx.Int("notifier.workers", newN.Workers),
			logx.Int("notifier.queue_size", newN.QueueSize),
			logx.Int("notifier.rate_per_sec", newN.RatePerSec),
		)
	}

	// Engine (executor behind scheduled jobs)
	oE := derefEngine(oldCfg.Engine)
	nE := derefEngine(newCfg.Engine)
	if (oldCfg.Engine != nil) != (newCfg.Engine != nil) || !reflect.DeepEqual(oE, nE) {
		changed = append(changed, "engine")
		attrs = append(attrs,
			logx.Int("engine.workers", nE.Workers),
			logx.Int("engine.queue_size", nE.QueueSize),
			logx.String("engine.default_timeout", strings.TrimSpace(nE.DefaultTimeout)),
			logx.String("engine.max_queue_delay", strings.TrimSpace(nE.MaxQueueDelay)),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}

func derefEngine(e *EngineConfig) EngineConfig {
	if e == nil {
		return EngineConfig{}
	}
	return *e
}
