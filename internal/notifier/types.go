package notifier

import "time"

// Config controls the async notification pipeline.
type Config struct {
	Enabled    bool
	Workers    int
	QueueSize  int
	RatePerSec int
}

type HistoryItem struct {
	At     time.Time
	ChatID int64
	Kind   string
}

// NotificationEvent is emitted on the event bus for notifier lifecycle events.
// Keep it small; Data may be logged/serialized by subscribers.
type NotificationEvent struct {
	ChatID int64     `json:"chat_id"`
	Kind   string    `json:"kind"`
	At     time.Time `json:"at"`
	Error  string    `json:"error,omitempty"`
}
