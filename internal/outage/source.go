package outage

import (
	"context"
	"errors"

	"barghbot/internal/jalali"
	logx "barghbot/pkg/logx"
)

// Source combines the gateway client, the two cache tiers, and the civil
// clock into the one surface the bot and the alert engine query. It is an
// explicit injected collaborator, never an ambient singleton, so tests can
// control clock and upstream freely.
type Source struct {
	client *Client
	sched  *Cache
	live   *Cache
	clock  *jalali.Clock
	log    logx.Logger
}

// NewSource wires a Source from its collaborators.
func NewSource(client *Client, sched, live *Cache, clock *jalali.Clock, log logx.Logger) *Source {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Source{client: client, sched: sched, live: live, clock: clock, log: log}
}

// Clock returns the source's civil clock.
func (s *Source) Clock() *jalali.Clock { return s.clock }

// DaySchedule returns the planned outages dated exactly date, via the
// schedule cache or a single-day gateway fetch. The strict date filter runs
// before the cache populate, so cached entries only ever hold same-date
// records.
func (s *Source) DaySchedule(ctx context.Context, billID, date string) ([]Record, error) {
	key := ScheduleKey(billID, date)
	if items, ok := s.sched.Get(key); ok {
		return items, nil
	}
	raw, err := s.client.Schedule(ctx, billID, date, date)
	if err != nil {
		return nil, err
	}
	items := FilterDate(raw, date)
	s.sched.Set(key, items)
	return items, nil
}

// AllFuture returns every planned outage from today through the far-future
// sentinel. Uncached: the result spans many dates and is only requested
// interactively.
func (s *Source) AllFuture(ctx context.Context, billID string) ([]Record, error) {
	return s.client.Schedule(ctx, billID, s.clock.Today(), FarFutureDate)
}

// LiveNow determines the outages active right now. The live endpoint
// (through its cache) is primary and any list it returns, including empty,
// is authoritative. Only when it fails does LiveNow fall back to combining
// yesterday's and today's schedules with the cross-day rules; fallback
// reports which path produced the result.
func (s *Source) LiveNow(ctx context.Context, billID string) (items []Record, fallback bool, err error) {
	if cached, ok := s.live.Get(billID); ok {
		return cached, false, nil
	}
	items, liveErr := s.client.Live(ctx, billID)
	if liveErr == nil {
		s.live.Set(billID, items)
		return items, false, nil
	}
	s.log.Debug("live endpoint failed; using schedule fallback",
		logx.String("bill", billID), logx.Err(liveErr))

	today := s.clock.Today()
	yesterday := s.clock.Yesterday()
	itemsT, errT := s.DaySchedule(ctx, billID, today)
	itemsY, errY := s.DaySchedule(ctx, billID, yesterday)
	if errT != nil && errY != nil {
		return nil, true, errors.Join(liveErr, errT)
	}
	combined := make([]Record, 0, len(itemsY)+len(itemsT))
	combined = append(combined, itemsY...)
	combined = append(combined, itemsT...)
	return ActiveNow(combined, s.clock.NowMinutes(), today, yesterday), true, nil
}

// DeleteSubject purges both cache tiers for the bill. Part of the cascade
// when a bill is deleted.
func (s *Source) DeleteSubject(billID string) {
	s.sched.DeleteSubject(billID)
	s.live.DeleteSubject(billID)
}

// Sweep purges entries older than 2×TTL from both tiers.
func (s *Source) Sweep() {
	if n := s.sched.Sweep() + s.live.Sweep(); n > 0 {
		s.log.Debug("cache swept", logx.Int("purged", n))
	}
}
