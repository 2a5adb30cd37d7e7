// Package alert decides when outage reminders are due and runs the
// periodic jobs that send them.
package alert

// Kind labels one reminder variety. The string values double as the
// ledger's kind column and the toggle names in the store.
type Kind string

const (
	// KindHour fires one hour before a planned outage starts.
	KindHour Kind = "1h"
	// KindTenMin fires ten minutes before.
	KindTenMin Kind = "10m"
	// KindDigest is the once-a-day schedule summary sent shortly after
	// midnight. It has no lead offset.
	KindDigest Kind = "1201"
)

// reminderKinds are the window-matched kinds evaluated each tick.
var reminderKinds = [...]Kind{KindHour, KindTenMin}

// LeadMinutes returns how many minutes before the outage start the kind
// fires. The digest returns 0.
func (k Kind) LeadMinutes() int {
	switch k {
	case KindHour:
		return 60
	case KindTenMin:
		return 10
	}
	return 0
}

func (k Kind) String() string { return string(k) }
