package outage

import (
	"strings"
	"sync"
	"time"
)

// Default TTLs of the two result tiers. The schedule tier is keyed by
// (bill, Jalali date); the live tier by bill only.
const (
	DefaultScheduleTTL = time.Hour
	DefaultLiveTTL     = 45 * time.Second
)

// keySep joins bill id and date in schedule-tier keys. Bill ids are digits,
// so the separator cannot collide.
const keySep = "|"

type cacheEntry struct {
	at    time.Time
	items []Record
}

// Cache is one bounded-TTL tier mapping a key to the exact record slice a
// fetch returned. Reads ignore expired entries without removing them; Sweep
// purges entries older than 2×TTL. The cache is purely an optimization:
// every caller must behave identically with it disabled.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewCache returns an empty tier with the given TTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultScheduleTTL
	}
	return &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: map[string]cacheEntry{},
	}
}

// WithNow overrides the cache's time source. Test hook.
func (c *Cache) WithNow(now func() time.Time) *Cache {
	c.now = now
	return c
}

// ScheduleKey builds the schedule-tier key for (bill, date).
func ScheduleKey(billID, date string) string { return billID + keySep + date }

// Get returns the cached records for key while the entry's age is within the
// TTL. Whole-entry semantics: the exact slice stored by Set, never merged.
func (c *Cache) Get(key string) ([]Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.at) > c.ttl {
		return nil, false
	}
	return e.items, true
}

// Set stores items under key with the current fetch timestamp, replacing any
// previous entry wholesale.
func (c *Cache) Set(key string, items []Record) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{at: c.now(), items: items}
	c.mu.Unlock()
}

// DeleteSubject purges every entry for the given bill, both the bare live
// key and all dated schedule keys. Invoked on bill deletion.
func (c *Cache) DeleteSubject(billID string) {
	prefix := billID + keySep
	c.mu.Lock()
	for k := range c.entries {
		if k == billID || strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}

// Sweep removes entries older than twice the TTL and reports how many were
// purged. Piggybacked on the scheduler cadence.
func (c *Cache) Sweep() int {
	cutoff := c.now().Add(-2 * c.ttl)
	n := 0
	c.mu.Lock()
	for k, e := range c.entries {
		if e.at.Before(cutoff) {
			delete(c.entries, k)
			n++
		}
	}
	c.mu.Unlock()
	return n
}

// Len reports the number of stored entries, expired included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
