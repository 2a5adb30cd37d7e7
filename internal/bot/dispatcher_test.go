package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	kit "barghbot/internal/transport"
	logx "barghbot/pkg/logx"
)

func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func msgUpdate(fromID int64, text string) kit.Update {
	return kit.Update{Kind: kit.UpdateMessage, Message: &kit.Message{ID: 1, ChatID: fromID, FromID: fromID, Text: text}}
}

func TestDispatcherOwnerGate(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h, _, fa := newTestHandlers(t, "http://127.0.0.1:0")
	h.SetStatusFunc(func(context.Context) string { return "STATUS-OK" })
	d := NewDispatcher(logx.Nop(), fa, h, []int64{42})

	updates := make(chan kit.Update)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = d.DispatchLoop(ctx, updates)
	}()

	// Non-owner /health is silently dropped.
	updates <- msgUpdate(7, "/health")
	// /start from anyone builds the home screen.
	updates <- msgUpdate(7, "/start")
	waitFor(t, 2*time.Second, func() bool { return strings.Contains(fa.last(), "خاموشی‌های برنامه‌ریزی‌شده") })

	updates <- msgUpdate(42, "/health")
	waitFor(t, 2*time.Second, func() bool { return strings.Contains(fa.last(), "STATUS-OK") })

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch loop did not stop")
	}
}

func TestDispatcherAnswersCallbacks(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h, _, fa := newTestHandlers(t, "http://127.0.0.1:0")
	d := NewDispatcher(logx.Nop(), fa, h, nil)

	updates := make(chan kit.Update)
	go func() { _ = d.DispatchLoop(ctx, updates) }()

	updates <- kit.Update{Kind: kit.UpdateCallback, Callback: &kit.Callback{ID: "cb-1", ChatID: 7, FromID: 7, Data: "home"}}
	waitFor(t, 2*time.Second, func() bool {
		fa.mu.Lock()
		defer fa.mu.Unlock()
		return len(fa.answers) == 1 && fa.answers[0] == "cb-1"
	})
	waitFor(t, 2*time.Second, func() bool { return strings.Contains(fa.last(), "قبض") })
}
