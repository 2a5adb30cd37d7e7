package alert

import (
	"context"

	"barghbot/internal/eventbus"
	"barghbot/internal/outage"
	"barghbot/internal/store"
	"barghbot/internal/transport"
	logx "barghbot/pkg/logx"
)

// preMidnightGate is the earliest minute at which a tomorrow-dated
// record can fall due (largest lead is 60 minutes, so the earliest
// prev-day due instant is 1440-60). Ticks before it skip the tomorrow
// fetch entirely.
const preMidnightGate = 23 * 60

// Notifier is the outbound queue reminders are handed to after their
// ledger slot is reserved.
type Notifier interface {
	Enqueue(n transport.Notification) error
}

// Service owns the three scheduled jobs: the minute tick that matches
// reminder windows, the after-midnight digest, and the ledger cleanup.
// The caller registers them on the cron scheduler.
type Service struct {
	store    store.Store
	source   *outage.Source
	notifier Notifier
	bus      eventbus.Bus
	log      logx.Logger

	retentionDays int
}

func NewService(st store.Store, src *outage.Source, n Notifier, bus eventbus.Bus, log logx.Logger, retentionDays int) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if retentionDays <= 0 {
		retentionDays = 30
	}
	return &Service{store: st, source: src, notifier: n, bus: bus, log: log, retentionDays: retentionDays}
}

// Tick evaluates every active subscription against the current minute.
// Today's records are matched forward; near midnight, tomorrow's are
// matched backward so outages starting shortly after 00:00 still get
// their lead-time reminder. A gateway failure skips that subscription
// for this tick only.
func (s *Service) Tick(ctx context.Context) error {
	clock := s.source.Clock()
	nowMin := clock.NowMinutes()
	today := clock.Today()
	tomorrow := clock.Tomorrow()

	subs, err := s.store.ActiveSubscriptions(ctx)
	if err != nil {
		return err
	}
	for _, sub := range subs {
		if !sub.Flags.Hour && !sub.Flags.TenMin {
			continue
		}
		items, err := s.source.DaySchedule(ctx, sub.BillID, today)
		if err != nil {
			s.gatewaySkip(sub.BillID, err)
			continue
		}
		s.evaluate(ctx, sub, items, nowMin, false)

		if nowMin >= preMidnightGate {
			items, err = s.source.DaySchedule(ctx, sub.BillID, tomorrow)
			if err != nil {
				s.gatewaySkip(sub.BillID, err)
				continue
			}
			s.evaluate(ctx, sub, items, nowMin, true)
		}
	}
	s.source.Sweep()
	return nil
}

func (s *Service) evaluate(ctx context.Context, sub store.Subscription, items []outage.Record, nowMin int, tomorrow bool) {
	for _, it := range items {
		start, ok := outage.HMToMinutes(it.StartHHMM())
		if !ok {
			continue
		}
		for _, k := range reminderKinds {
			if !sub.Flags.Enabled(k.String()) {
				continue
			}
			if !Due(nowMin, start, k.LeadMinutes(), tomorrow) {
				continue
			}
			first, err := s.store.MarkSent(ctx, sub.ChatID, sub.BillID, k.String(), it.CivilDate(), it.Identity())
			if err != nil {
				s.log.Error("ledger reserve failed",
					logx.Int64("chat", sub.ChatID), logx.String("bill", sub.BillID), logx.Err(err))
				continue
			}
			if !first {
				continue
			}
			s.send(sub.ChatID, k, reminderText(k, sub.Name, it, tomorrow))
		}
	}
}

// Digest sends each digest-enabled subscription one summary of today's
// schedule. The ledger keys on (today, "digest"), so reruns within the
// same civil day are no-ops; an empty schedule still sends.
func (s *Service) Digest(ctx context.Context) error {
	today := s.source.Clock().Today()

	subs, err := s.store.ActiveSubscriptions(ctx)
	if err != nil {
		return err
	}
	for _, sub := range subs {
		if !sub.Flags.Digest {
			continue
		}
		items, err := s.source.DaySchedule(ctx, sub.BillID, today)
		if err != nil {
			s.gatewaySkip(sub.BillID, err)
			continue
		}
		first, err := s.store.MarkSent(ctx, sub.ChatID, sub.BillID, KindDigest.String(), today, "digest")
		if err != nil {
			s.log.Error("ledger reserve failed",
				logx.Int64("chat", sub.ChatID), logx.String("bill", sub.BillID), logx.Err(err))
			continue
		}
		if !first {
			continue
		}
		s.send(sub.ChatID, KindDigest, digestText(items, sub.Name, today))
	}
	s.source.Sweep()
	return nil
}

// Cleanup drops ledger rows older than the retention horizon.
func (s *Service) Cleanup(ctx context.Context) error {
	cutoff := s.source.Clock().DaysAgo(s.retentionDays)
	n, err := s.store.PurgeSentBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.Info("sent-alert ledger pruned", logx.Int64("rows", n), logx.String("cutoff", cutoff))
	}
	return nil
}

func (s *Service) send(chatID int64, k Kind, text string) {
	err := s.notifier.Enqueue(transport.Notification{ChatID: chatID, Kind: k.String(), Text: text})
	if err != nil {
		// Reserve-then-send: the slot stays consumed. No duplicates
		// beats at-least-once here.
		s.log.Warn("reminder dropped at enqueue",
			logx.Int64("chat", chatID), logx.String("kind", k.String()), logx.Err(err))
		if s.bus != nil {
			s.bus.Publish(eventbus.Event{Type: eventbus.EventAlertFailed, Data: map[string]any{
				"chat_id": chatID, "kind": k.String(), "stage": "enqueue",
			}})
		}
	}
}

func (s *Service) gatewaySkip(billID string, err error) {
	s.log.Warn("gateway fetch failed; subscription skipped this run",
		logx.String("bill", billID), logx.Err(err))
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: eventbus.EventGatewayError, Data: map[string]any{
			"bill_id": billID, "error": err.Error(),
		}})
	}
}
