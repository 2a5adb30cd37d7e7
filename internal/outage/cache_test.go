package outage

import (
	"testing"
	"time"
)

func TestCacheTTLBoundary(t *testing.T) {
	t.Parallel()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	c := NewCache(time.Hour).WithNow(func() time.Time { return now })

	items := []Record{{Date: "1404/03/11", Start: "08:00", Stop: "10:00"}}
	c.Set(ScheduleKey("123456", "1404/03/11"), items)

	// Served unchanged anywhere within [t0, t0+TTL].
	for _, age := range []time.Duration{0, 30 * time.Minute, time.Hour} {
		now = base.Add(age)
		got, ok := c.Get(ScheduleKey("123456", "1404/03/11"))
		if !ok {
			t.Fatalf("entry expired at age %v, want hit", age)
		}
		if len(got) != 1 || got[0].Start != "08:00" {
			t.Fatalf("entry mutated at age %v: %+v", age, got)
		}
	}

	// One second past the TTL the entry is ignored (but not removed).
	now = base.Add(time.Hour + time.Second)
	if _, ok := c.Get(ScheduleKey("123456", "1404/03/11")); ok {
		t.Fatal("expected miss past TTL")
	}
	if c.Len() != 1 {
		t.Fatalf("expired entry was removed on read, len=%d", c.Len())
	}
}

func TestCacheSweepPurgesOnlyStale(t *testing.T) {
	t.Parallel()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	c := NewCache(time.Minute).WithNow(func() time.Time { return now })

	c.Set("a", nil)
	now = base.Add(90 * time.Second) // a is expired but younger than 2×TTL
	c.Set("b", nil)

	if n := c.Sweep(); n != 0 {
		t.Fatalf("Sweep purged %d entries, want 0", n)
	}

	now = base.Add(3 * time.Minute) // a is now older than 2×TTL
	if n := c.Sweep(); n != 1 {
		t.Fatalf("Sweep purged %d entries, want 1", n)
	}
	if c.Len() != 1 {
		t.Fatalf("len=%d after sweep, want 1", c.Len())
	}
}

func TestCacheDeleteSubject(t *testing.T) {
	t.Parallel()
	c := NewCache(time.Hour)
	c.Set(ScheduleKey("111111", "1404/01/01"), nil)
	c.Set(ScheduleKey("111111", "1404/01/02"), nil)
	c.Set(ScheduleKey("222222", "1404/01/01"), nil)
	c.Set("111111", nil) // live-tier style bare key

	c.DeleteSubject("111111")

	if c.Len() != 1 {
		t.Fatalf("len=%d after DeleteSubject, want 1", c.Len())
	}
	if _, ok := c.Get(ScheduleKey("222222", "1404/01/01")); !ok {
		t.Fatal("unrelated subject was purged")
	}
}
