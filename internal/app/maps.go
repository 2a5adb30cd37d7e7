package app

import (
	"fmt"
	"strings"
	"time"

	"barghbot/internal/config"
	"barghbot/internal/notifier"
	logx "barghbot/pkg/logx"
	"barghbot/internal/observability/pprof"
	"barghbot/internal/outage"
	"barghbot/internal/store"
	"barghbot/internal/task/engine"
)

func parseDurationField(path, raw string) (time.Duration, error) {
	return config.ParseDurationField(path, raw)
}

func parseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	return config.ParseDurationOrDefault(path, raw, def)
}

func mapLoggingConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (store.Config, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	path := strings.TrimSpace(cfg.Storage.Path)

	switch driver {
	case "", "sqlite", "sqlite3":
		if path == "" {
			path = "./barghbot.db"
		}
	case "memory":
		// path ignored
	default:
		return store.Config{}, fmt.Errorf("unknown storage.driver: %s", cfg.Storage.Driver)
	}

	busy, err := parseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 30*time.Second)
	if err != nil {
		return store.Config{}, err
	}
	return store.Config{Driver: driver, Path: path, BusyTimeout: busy}, nil
}

func mapGatewayConfig(cfg *config.Config) (outage.ClientConfig, error) {
	schedTimeout, err := parseDurationOrDefault("gateway.schedule_timeout", cfg.Gateway.ScheduleTimeout, 40*time.Second)
	if err != nil {
		return outage.ClientConfig{}, err
	}
	liveTimeout, err := parseDurationOrDefault("gateway.live_timeout", cfg.Gateway.LiveTimeout, 30*time.Second)
	if err != nil {
		return outage.ClientConfig{}, err
	}
	return outage.ClientConfig{
		BaseURL:         strings.TrimSpace(cfg.Gateway.BaseURL),
		JWT:             cfg.Gateway.JWT,
		ScheduleTimeout: schedTimeout,
		LiveTimeout:     liveTimeout,
		ProxyURL:        strings.TrimSpace(cfg.Gateway.ProxyURL),
	}, nil
}

func mapCacheTTLs(cfg *config.Config) (schedTTL, liveTTL time.Duration, err error) {
	schedTTL, err = parseDurationOrDefault("cache.schedule_ttl", cfg.Cache.ScheduleTTL, outage.DefaultScheduleTTL)
	if err != nil {
		return 0, 0, err
	}
	liveTTL, err = parseDurationOrDefault("cache.live_ttl", cfg.Cache.LiveTTL, outage.DefaultLiveTTL)
	if err != nil {
		return 0, 0, err
	}
	return schedTTL, liveTTL, nil
}

func mapEngineConfig(cfg *config.Config) (engine.Config, error) {
	ec := config.EngineConfig{}
	if cfg.Engine != nil {
		ec = *cfg.Engine
	}
	if ec.Workers < 0 {
		return engine.Config{}, fmt.Errorf("engine.workers must be >= 0")
	}
	if ec.QueueSize < 0 {
		return engine.Config{}, fmt.Errorf("engine.queue_size must be >= 0")
	}
	defTimeout, err := parseDurationField("engine.default_timeout", ec.DefaultTimeout)
	if err != nil {
		return engine.Config{}, err
	}
	maxQueueDelay, err := parseDurationField("engine.max_queue_delay", ec.MaxQueueDelay)
	if err != nil {
		return engine.Config{}, err
	}
	return engine.Config{
		Enabled:        cfg.Alerts.Enabled,
		Workers:        ec.Workers,
		QueueSize:      ec.QueueSize,
		DefaultTimeout: defTimeout,
		MaxQueueDelay:  maxQueueDelay,
	}, nil
}

func mapNotifierConfig(cfg *config.Config) (notifier.Config, error) {
	// Section omitted means enabled with runtime defaults.
	if cfg.Notifier == nil {
		return notifier.Config{Enabled: true}, nil
	}
	n := cfg.Notifier
	if n.Workers < 0 {
		return notifier.Config{}, fmt.Errorf("notifier.workers must be >= 0")
	}
	if n.QueueSize < 0 {
		return notifier.Config{}, fmt.Errorf("notifier.queue_size must be >= 0")
	}
	if n.RatePerSec < 0 {
		return notifier.Config{}, fmt.Errorf("notifier.rate_per_sec must be >= 0")
	}
	return notifier.Config{
		Enabled:    n.Enabled,
		Workers:    n.Workers,
		QueueSize:  n.QueueSize,
		RatePerSec: n.RatePerSec,
	}, nil
}

func mapPprofConfig(cfg *config.Config) (pprof.Config, error) {
	p := cfg.Pprof
	readTimeout, err := parseDurationField("pprof.read_timeout", p.ReadTimeout)
	if err != nil {
		return pprof.Config{}, err
	}
	writeTimeout, err := parseDurationField("pprof.write_timeout", p.WriteTimeout)
	if err != nil {
		return pprof.Config{}, err
	}
	idleTimeout, err := parseDurationField("pprof.idle_timeout", p.IdleTimeout)
	if err != nil {
		return pprof.Config{}, err
	}
	return pprof.Config{
		Enabled:       p.Enabled,
		Addr:          strings.TrimSpace(p.Addr),
		Prefix:        strings.TrimSpace(p.Prefix),
		Token:         p.Token,
		AllowInsecure: p.AllowInsecure,
		ReadTimeout:   readTimeout,
		WriteTimeout:  writeTimeout,
		IdleTimeout:   idleTimeout,
	}, nil
}

// validHHMM reports whether s is a wall-clock "HH:MM".
func validHHMM(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true // defaults apply
	}
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	for _, c := range []byte{s[0], s[1], s[3], s[4]} {
		if c < '0' || c > '9' {
			return false
		}
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	return h <= 23 && m <= 59
}
