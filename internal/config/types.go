package config

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Pprof    PprofConfig    `json:"pprof,omitempty"`

	// Gateway is the utility outage API client configuration.
	Gateway GatewayConfig `json:"gateway"`

	// Cache bounds the call rate against the gateway.
	Cache CacheConfig `json:"cache,omitempty"`

	// Alerts controls the scheduling cadences of the alert engine.
	Alerts AlertsConfig `json:"alerts"`

	Storage  StorageConfig   `json:"storage"`
	Notifier *NotifierConfig `json:"notifier,omitempty"`
	Engine   *EngineConfig   `json:"engine,omitempty"`
}

type TelegramConfig struct {
	// Token may be a literal or an env reference like "${TELEGRAM_TOKEN}".
	// When empty, the TELEGRAM_TOKEN environment variable is used.
	Token        string  `json:"token"`
	OwnerUserIDs []int64 `json:"owner_user_ids"`
	// LogChatID receives rate-limited log lines when logging.telegram is enabled.
	LogChatID int64 `json:"log_chat_id,omitempty"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// GatewayConfig points at the utility's outage endpoints.
//
// All timeouts are Go duration strings. The JWT may be a literal or an env
// reference like "${API_JWT}"; when empty, the API_JWT environment variable
// is used.
type GatewayConfig struct {
	BaseURL string `json:"base_url,omitempty"` // default: "https://uiapi2.saapa.ir/api/ebills"
	JWT     string `json:"jwt"`

	ScheduleTimeout string `json:"schedule_timeout,omitempty"` // default: "40s"
	LiveTimeout     string `json:"live_timeout,omitempty"`     // default: "30s"

	// ProxyURL routes gateway calls through an HTTP(S) proxy when set.
	// Telegram traffic is not affected.
	ProxyURL string `json:"proxy_url,omitempty"`
}

// CacheConfig holds the TTLs of the two result tiers.
type CacheConfig struct {
	ScheduleTTL string `json:"schedule_ttl,omitempty"` // default: "1h"
	LiveTTL     string `json:"live_ttl,omitempty"`     // default: "45s"
}

// AlertsConfig controls the alert engine cadences.
//
// DigestAt and CleanupAt are local wall-clock times "HH:MM" in Timezone.
type AlertsConfig struct {
	Enabled       bool   `json:"enabled"`
	Timezone      string `json:"timezone,omitempty"`       // default: "Asia/Tehran"
	TickInterval  string `json:"tick_interval,omitempty"`  // default: "60s"
	DigestAt      string `json:"digest_at,omitempty"`      // default: "00:01"
	CleanupAt     string `json:"cleanup_at,omitempty"`     // default: "03:00"
	RetentionDays int    `json:"retention_days,omitempty"` // default: 30
}

// StorageConfig controls the persistence layer.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./barghbot.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// NotifierConfig controls the async notification pipeline. Delivery is
// single attempt; the sent-alert ledger already guarantees uniqueness.
type NotifierConfig struct {
	Enabled    bool `json:"enabled"`
	Workers    int  `json:"workers"`
	QueueSize  int  `json:"queue_size"`
	RatePerSec int  `json:"rate_per_sec"`
}

// EngineConfig controls the execution pool behind scheduled jobs.
//
// Defaults (when fields are omitted/zero):
//   - workers: 2
//   - queue_size: 64
//   - default_timeout: "0s" (disabled)
//   - max_queue_delay: "0s" (disabled)
type EngineConfig struct {
	Workers   int `json:"workers,omitempty"`
	QueueSize int `json:"queue_size,omitempty"`

	// DefaultTimeout is a Go duration string (e.g. "10s", "1m").
	// Use "0s" to disable a global default timeout.
	DefaultTimeout string `json:"default_timeout,omitempty"`

	// MaxQueueDelay drops jobs that have been queued longer than this duration.
	// Use "0s" to disable stale queue dropping.
	MaxQueueDelay string `json:"max_queue_delay,omitempty"`
}

// PprofConfig controls the optional pprof HTTP server.
//
// Security note:
//   - Prefer binding to localhost (e.g. "127.0.0.1:6060").
//   - If you bind to a non-loopback address, set a token or explicitly allow_insecure.
type PprofConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"`   // default: "127.0.0.1:6060"
	Prefix        string `json:"prefix,omitempty"` // default: "/debug/pprof/"
	Token         string `json:"token,omitempty"`  // optional bearer token (do not log)
	AllowInsecure bool   `json:"allow_insecure,omitempty"`

	// Server timeouts (Go duration strings). WriteTimeout defaults to 0 (disabled)
	// so /profile (which can take 30s+) works reliably.
	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`
}
