package outage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"barghbot/internal/jalali"
	logx "barghbot/pkg/logx"
)

func testClock(hh, mm int) *jalali.Clock {
	clock := jalali.NewClock("")
	fixed := time.Date(2025, 8, 21, hh, mm, 0, 0, clock.Location())
	return clock.WithNow(func() time.Time { return fixed })
}

func TestSourceLiveAuthoritative(t *testing.T) {
	t.Parallel()
	var liveCalls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/BlackoutsReport" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		liveCalls.Add(1)
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	clock := testClock(9, 0)
	src := NewSource(
		NewClient(ClientConfig{BaseURL: srv.URL, JWT: "j"}, logx.Nop()),
		NewCache(DefaultScheduleTTL), NewCache(DefaultLiveTTL), clock, logx.Nop())

	for i := 0; i < 2; i++ {
		items, fallback, err := src.LiveNow(context.Background(), "123456")
		if err != nil {
			t.Fatalf("LiveNow: %v", err)
		}
		if fallback {
			t.Fatal("live path reported as fallback")
		}
		if len(items) != 0 {
			t.Fatalf("want empty authoritative list, got %v", items)
		}
	}
	// Second call is served from the live cache tier.
	if n := liveCalls.Load(); n != 1 {
		t.Fatalf("live endpoint called %d times, want 1", n)
	}
}

func TestSourceLiveFallbackCombinesDays(t *testing.T) {
	t.Parallel()
	clock := testClock(0, 30)
	today, yesterday := clock.Today(), clock.Yesterday()

	var schedCalls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/BlackoutsReport":
			http.Error(w, "upstream down", http.StatusServiceUnavailable)
		case "/PlannedBlackoutsReport":
			schedCalls.Add(1)
			var payload map[string]string
			_ = json.NewDecoder(r.Body).Decode(&payload)
			start, stop := "08:00", "10:00"
			if payload["from_date"] == yesterday {
				// Crosses midnight, still running at 00:30.
				start, stop = "23:00", "01:00"
			}
			fmt.Fprintf(w, `{"data":[{"outage_date":%q,"outage_start_time":%q,"outage_stop_time":%q,"outage_address":"a","outage_number":1}]}`,
				payload["from_date"], start, stop)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	src := NewSource(
		NewClient(ClientConfig{BaseURL: srv.URL, JWT: "j"}, logx.Nop()),
		NewCache(DefaultScheduleTTL), NewCache(DefaultLiveTTL), clock, logx.Nop())

	items, fallback, err := src.LiveNow(context.Background(), "123456")
	if err != nil {
		t.Fatalf("LiveNow: %v", err)
	}
	if !fallback {
		t.Fatal("expected fallback path")
	}
	if len(items) != 1 || items[0].CivilDate() != yesterday {
		t.Fatalf("want only yesterday's midnight-crossing outage, got %v", items)
	}

	// The fallback populated the schedule cache for both days.
	if _, ok := src.sched.Get(ScheduleKey("123456", today)); !ok {
		t.Fatal("today's schedule not cached")
	}
	if _, _, err := src.LiveNow(context.Background(), "123456"); err != nil {
		t.Fatalf("second LiveNow: %v", err)
	}
	if n := schedCalls.Load(); n != 2 {
		t.Fatalf("schedule endpoint called %d times, want 2", n)
	}
}

func TestSourceDeleteSubjectCascades(t *testing.T) {
	t.Parallel()
	src := NewSource(nil, NewCache(DefaultScheduleTTL), NewCache(DefaultLiveTTL), testClock(12, 0), logx.Nop())
	src.sched.Set(ScheduleKey("111", "1404/05/30"), nil)
	src.sched.Set(ScheduleKey("222", "1404/05/30"), nil)
	src.live.Set("111", nil)

	src.DeleteSubject("111")
	if _, ok := src.sched.Get(ScheduleKey("111", "1404/05/30")); ok {
		t.Fatal("schedule tier entry survived delete")
	}
	if _, ok := src.live.Get("111"); ok {
		t.Fatal("live tier entry survived delete")
	}
	if _, ok := src.sched.Get(ScheduleKey("222", "1404/05/30")); !ok {
		t.Fatal("unrelated bill purged")
	}
}
