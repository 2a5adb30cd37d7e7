package jalali

import "time"

// TehranZone is the single civil timezone the bot operates in. Every date and
// minute-of-day computation goes through a Clock pinned to it.
const TehranZone = "Asia/Tehran"

// Clock yields "now" in one fixed civil timezone and derives the Jalali date
// strings the rest of the bot works with. The time source is injectable so
// tests can pin the wall clock instead of sleeping.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// NewClock returns a Clock for the given zone name, falling back to Tehran
// when the name is empty or unknown.
func NewClock(zone string) *Clock {
	if zone == "" {
		zone = TehranZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		loc, _ = time.LoadLocation(TehranZone)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Clock{loc: loc, now: time.Now}
}

// WithNow returns a copy of the Clock using the given time source.
func (c *Clock) WithNow(now func() time.Time) *Clock {
	cp := *c
	cp.now = now
	return &cp
}

// Location returns the clock's timezone.
func (c *Clock) Location() *time.Location { return c.loc }

// Now returns the current time in the clock's timezone.
func (c *Clock) Now() time.Time { return c.now().In(c.loc) }

// Today returns today's Jalali date string.
func (c *Clock) Today() string { return FromTime(c.Now()) }

// Tomorrow returns tomorrow's Jalali date string.
func (c *Clock) Tomorrow() string { return FromTime(c.Now().AddDate(0, 0, 1)) }

// Yesterday returns yesterday's Jalali date string.
func (c *Clock) Yesterday() string { return FromTime(c.Now().AddDate(0, 0, -1)) }

// DaysAgo returns the Jalali date string n days before today. Used for the
// sent-alert retention cutoff.
func (c *Clock) DaysAgo(n int) string { return FromTime(c.Now().AddDate(0, 0, -n)) }

// NowMinutes returns the current minute of day on the 0..1439 scale every
// window comparison uses.
func (c *Clock) NowMinutes() int {
	t := c.Now()
	return t.Hour()*60 + t.Minute()
}

// FromTime converts the calendar date of t (in its own location) to a Jalali
// date string.
func FromTime(t time.Time) string {
	jy, jm, jd := ToJalali(t.Year(), int(t.Month()), t.Day())
	return FormatDate(jy, jm, jd)
}
