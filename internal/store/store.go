// Package store persists chat state, saved bills, alert preferences,
// and the sent-alert ledger that keeps reminders exactly-once.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnknownKind is returned when an alert flag name is not one of
	// the three supported kinds.
	ErrUnknownKind = errors.New("unknown alert kind")
)

// Config configures the store.
//
// Driver values:
//   - "sqlite": SQLite database file (default)
//   - "memory": in-process map backend, used in tests
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// User is the per-chat conversational state. Pending marks an
// outstanding prompt ("awaiting_bill" while the add-bill dialog waits
// for a number), TempBill carries the dialog's intermediate value, and
// HomeMsgID is the single menu message the bot edits in place.
type User struct {
	ChatID    int64
	Pending   string
	TempBill  string
	HomeMsgID int
}

// Bill is a saved subscription subject: a billing identifier with a
// user-chosen display name, unique per (chat, name).
type Bill struct {
	ID     int64
	ChatID int64
	Name   string
	BillID string
}

// AlertFlags holds the three per-bill alert toggles.
type AlertFlags struct {
	Hour   bool // reminder one hour before a planned outage
	TenMin bool // reminder ten minutes before
	Digest bool // daily schedule digest shortly after midnight
}

// Enabled reports whether the flag for the given alert kind is set.
func (f AlertFlags) Enabled(kind string) bool {
	switch kind {
	case "1h":
		return f.Hour
	case "10m":
		return f.TenMin
	case "1201":
		return f.Digest
	}
	return false
}

// Any reports whether at least one alert kind is enabled.
func (f AlertFlags) Any() bool { return f.Hour || f.TenMin || f.Digest }

// Subscription is a bill joined with its alert flags; the alert jobs
// iterate these.
type Subscription struct {
	ChatID int64
	Name   string
	BillID string
	Flags  AlertFlags
}

// Store is the persistence API used by the bot handlers and the alert
// jobs.
type Store interface {
	// User returns the chat state row, zero-valued when absent.
	User(ctx context.Context, chatID int64) (User, error)
	// SetPending records (or clears, with "") the outstanding prompt.
	SetPending(ctx context.Context, chatID int64, value string) error
	// SetTempBill records (or clears, with "") the dialog's bill number.
	SetTempBill(ctx context.Context, chatID int64, bill string) error
	// SetHomeMsgID records the menu message the bot edits in place.
	SetHomeMsgID(ctx context.Context, chatID int64, msgID int) error

	// UpsertBill saves a bill under a display name; an existing name in
	// the same chat has its number replaced. The alert row is created
	// alongside with all flags off.
	UpsertBill(ctx context.Context, chatID int64, name, billID string) error
	// Bills lists the chat's saved bills, newest first.
	Bills(ctx context.Context, chatID int64) ([]Bill, error)
	// DeleteBill removes a bill the chat owns, cascading to its alert
	// flags and ledger entries. It reports whether anything was owned.
	DeleteBill(ctx context.Context, chatID int64, billID string) (bool, error)

	// AlertFlags returns the bill's toggles, all-off when absent.
	AlertFlags(ctx context.Context, chatID int64, billID string) (AlertFlags, error)
	// SetAlertFlag sets one toggle by alert kind ("1h", "10m", "1201").
	SetAlertFlag(ctx context.Context, chatID int64, billID, kind string, on bool) error
	// ActiveSubscriptions lists every bill with at least one flag on,
	// across all chats.
	ActiveSubscriptions(ctx context.Context) ([]Subscription, error)

	// MarkSent reserves a ledger slot for one alert occurrence. It
	// reports true exactly once per (chat, bill, kind, jdate, uniq);
	// callers send only after a true reservation.
	MarkSent(ctx context.Context, chatID int64, billID, kind, jdate, uniq string) (bool, error)
	// PurgeSentBefore deletes ledger rows dated strictly before the
	// given Jalali date, returning how many were removed.
	PurgeSentBefore(ctx context.Context, jdate string) (int64, error)

	Close() error
}
