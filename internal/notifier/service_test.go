package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"barghbot/internal/eventbus"
	kit "barghbot/internal/transport"
	logx "barghbot/pkg/logx"
)

type fakeAdapter struct {
	mu   sync.Mutex
	sent []kit.Notification
	fail error
}

func (f *fakeAdapter) Start(ctx context.Context, out chan<- kit.Update) error { return nil }
func (f *fakeAdapter) Stop(ctx context.Context) error                        { return nil }
func (f *fakeAdapter) EditText(ctx context.Context, ref kit.MessageRef, text string, opt *kit.SendOptions) error {
	return nil
}
func (f *fakeAdapter) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return nil
}

func (f *fakeAdapter) SendText(ctx context.Context, chatID int64, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return kit.MessageRef{}, f.fail
	}
	f.sent = append(f.sent, kit.Notification{ChatID: chatID, Text: text})
	return kit.MessageRef{ChatID: chatID, MessageID: len(f.sent)}, nil
}

func (f *fakeAdapter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition never met")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestNotifierDelivers(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	bus := eventbus.New()
	events, unsub := bus.Subscribe(8)
	defer unsub()

	s := New(Config{Enabled: true, Workers: 1, RatePerSec: 100}, ad, logx.Nop(), bus)
	s.Start(context.Background())
	defer s.Stop(context.Background())

	if err := s.Enqueue(kit.Notification{ChatID: 5, Kind: "1h", Text: "یادآوری"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	waitFor(t, func() bool { return ad.count() == 1 })

	select {
	case e := <-events:
		if e.Type != eventbus.EventAlertSent {
			t.Fatalf("event = %s", e.Type)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no sent event")
	}

	hist := s.Snapshot()
	if len(hist) != 1 || hist[0].ChatID != 5 || hist[0].Kind != "1h" {
		t.Fatalf("history = %+v", hist)
	}
}

func TestNotifierSingleAttempt(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{fail: errors.New("telegram down")}
	bus := eventbus.New()
	events, unsub := bus.Subscribe(8)
	defer unsub()

	s := New(Config{Enabled: true, Workers: 1, RatePerSec: 100}, ad, logx.Nop(), bus)
	s.Start(context.Background())
	defer s.Stop(context.Background())

	if err := s.Enqueue(kit.Notification{ChatID: 5, Kind: "10m", Text: "x"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	select {
	case e := <-events:
		if e.Type != eventbus.EventAlertFailed {
			t.Fatalf("event = %s", e.Type)
		}
		ev, ok := e.Data.(NotificationEvent)
		if !ok || ev.Error == "" {
			t.Fatalf("event data = %+v", e.Data)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no failed event")
	}
	if n := len(s.Snapshot()); n != 0 {
		t.Fatalf("failed send recorded in history: %d", n)
	}
}

func TestNotifierDisabledAndStopped(t *testing.T) {
	t.Parallel()
	s := New(Config{}, &fakeAdapter{}, logx.Nop(), nil)
	if err := s.Enqueue(kit.Notification{ChatID: 1, Text: "x"}); !errors.Is(err, ErrDisabled) {
		t.Fatalf("disabled: %v", err)
	}

	s = New(Config{Enabled: true}, &fakeAdapter{}, logx.Nop(), nil)
	if err := s.Enqueue(kit.Notification{ChatID: 1, Text: "x"}); !errors.Is(err, ErrStopped) {
		t.Fatalf("not started: %v", err)
	}
}
