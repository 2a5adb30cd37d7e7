package store

import (
	"errors"
	"strings"

	logx "barghbot/pkg/logx"
)

// Open initializes the configured store. The sqlite driver is the
// default; "memory" keeps everything in-process and is meant for tests.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, errors.New("unknown storage driver: " + cfg.Driver)
	}
}

// flagColumn maps an alert kind to its column in bill_alerts. The
// whitelist keeps kind strings out of SQL text.
func flagColumn(kind string) (string, error) {
	switch kind {
	case "1h":
		return "a1h", nil
	case "10m":
		return "a10m", nil
	case "1201":
		return "a1201", nil
	}
	return "", ErrUnknownKind
}
