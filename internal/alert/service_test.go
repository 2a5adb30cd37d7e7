package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"barghbot/internal/jalali"
	"barghbot/internal/outage"
	"barghbot/internal/store"
	"barghbot/internal/transport"
	logx "barghbot/pkg/logx"
)

type captureNotifier struct {
	mu   sync.Mutex
	sent []transport.Notification
}

func (c *captureNotifier) Enqueue(n transport.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, n)
	return nil
}

func (c *captureNotifier) list() []transport.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]transport.Notification(nil), c.sent...)
}

// tickClock is a settable time source shared with a jalali.Clock.
type tickClock struct {
	mu sync.Mutex
	t  time.Time
}

func (tc *tickClock) now() time.Time {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.t
}

func (tc *tickClock) set(t time.Time) {
	tc.mu.Lock()
	tc.t = t
	tc.mu.Unlock()
}

// scheduleServer serves one planned record per requested from_date,
// looked up in byDate.
func scheduleServer(t *testing.T, byDate map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/PlannedBlackoutsReport" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var payload map[string]string
		_ = json.NewDecoder(r.Body).Decode(&payload)
		rec, ok := byDate[payload["from_date"]]
		if !ok {
			fmt.Fprint(w, `{"data":[]}`)
			return
		}
		fmt.Fprintf(w, `{"data":[%s]}`, rec)
	}))
}

func newTestService(t *testing.T, srvURL string, tc *tickClock) (*Service, store.Store, *captureNotifier) {
	t.Helper()
	clock := jalali.NewClock("").WithNow(tc.now)
	src := outage.NewSource(
		outage.NewClient(outage.ClientConfig{BaseURL: srvURL, JWT: "j"}, logx.Nop()),
		outage.NewCache(outage.DefaultScheduleTTL), outage.NewCache(outage.DefaultLiveTTL),
		clock, logx.Nop())
	st := store.NewMemory()
	sink := &captureNotifier{}
	return NewService(st, src, sink, nil, logx.Nop(), 30), st, sink
}

func TestTickSendsExactlyOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tc := &tickClock{}
	base := jalali.NewClock("")
	day := time.Date(2025, 8, 21, 12, 59, 0, 0, base.Location())
	tc.set(day)
	today := base.WithNow(tc.now).Today()

	srv := scheduleServer(t, map[string]string{
		today: fmt.Sprintf(`{"outage_date":%q,"outage_start_time":"14:00","outage_stop_time":"16:00","outage_address":"کوچه اول","outage_number":9001}`, today),
	})
	defer srv.Close()

	svc, st, sink := newTestService(t, srv.URL, tc)
	if err := st.UpsertBill(ctx, 100, "خانه", "111111111"); err != nil {
		t.Fatal(err)
	}
	if err := st.SetAlertFlag(ctx, 100, "111111111", "1h", true); err != nil {
		t.Fatal(err)
	}

	// 12:59 is one minute early, 13:00 fires, 13:01 is inside the window
	// but blocked by the ledger.
	for _, hm := range []struct{ h, m int }{{12, 59}, {13, 0}, {13, 1}} {
		tc.set(time.Date(2025, 8, 21, hm.h, hm.m, 0, 0, base.Location()))
		if err := svc.Tick(ctx); err != nil {
			t.Fatalf("Tick at %02d:%02d: %v", hm.h, hm.m, err)
		}
	}

	sent := sink.list()
	if len(sent) != 1 {
		t.Fatalf("got %d notifications, want 1: %+v", len(sent), sent)
	}
	if sent[0].ChatID != 100 || sent[0].Kind != "1h" {
		t.Fatalf("notification = %+v", sent[0])
	}
	if !strings.Contains(sent[0].Text, "14:00") || !strings.Contains(sent[0].Text, "امروز") {
		t.Fatalf("text = %q", sent[0].Text)
	}
}

func TestTickPrevDayReminder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tc := &tickClock{}
	base := jalali.NewClock("")
	tc.set(time.Date(2025, 8, 21, 23, 55, 0, 0, base.Location()))
	clock := base.WithNow(tc.now)
	tomorrow := clock.Tomorrow()

	srv := scheduleServer(t, map[string]string{
		tomorrow: fmt.Sprintf(`{"outage_date":%q,"outage_start_time":"00:05","outage_stop_time":"02:00","outage_address":"خیابان دوم","outage_number":9002}`, tomorrow),
	})
	defer srv.Close()

	svc, st, sink := newTestService(t, srv.URL, tc)
	if err := st.UpsertBill(ctx, 200, "دفتر", "222222222"); err != nil {
		t.Fatal(err)
	}
	if err := st.SetAlertFlag(ctx, 200, "222222222", "10m", true); err != nil {
		t.Fatal(err)
	}

	if err := svc.Tick(ctx); err != nil {
		t.Fatal(err)
	}
	sent := sink.list()
	if len(sent) != 1 || sent[0].Kind != "10m" {
		t.Fatalf("sent = %+v", sent)
	}
	if !strings.Contains(sent[0].Text, "فردا") {
		t.Fatalf("prev-day reminder missing day word: %q", sent[0].Text)
	}
}

func TestDigestOncePerDayEvenWhenEmpty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tc := &tickClock{}
	base := jalali.NewClock("")
	tc.set(time.Date(2025, 8, 21, 0, 1, 0, 0, base.Location()))

	srv := scheduleServer(t, nil) // empty schedule for every date
	defer srv.Close()

	svc, st, sink := newTestService(t, srv.URL, tc)
	if err := st.UpsertBill(ctx, 300, "خانه", "333333333"); err != nil {
		t.Fatal(err)
	}
	if err := st.SetAlertFlag(ctx, 300, "333333333", "1201", true); err != nil {
		t.Fatal(err)
	}

	if err := svc.Digest(ctx); err != nil {
		t.Fatal(err)
	}
	if err := svc.Digest(ctx); err != nil {
		t.Fatal(err)
	}

	sent := sink.list()
	if len(sent) != 1 {
		t.Fatalf("got %d digests, want 1", len(sent))
	}
	if sent[0].Kind != "1201" || !strings.Contains(sent[0].Text, "یافت نشد") {
		t.Fatalf("digest = %+v", sent[0])
	}
}

func TestTickSkipsSubjectOnGatewayFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tc := &tickClock{}
	base := jalali.NewClock("")
	tc.set(time.Date(2025, 8, 21, 13, 0, 0, 0, base.Location()))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc, st, sink := newTestService(t, srv.URL, tc)
	if err := st.UpsertBill(ctx, 400, "خانه", "444444444"); err != nil {
		t.Fatal(err)
	}
	if err := st.SetAlertFlag(ctx, 400, "444444444", "1h", true); err != nil {
		t.Fatal(err)
	}

	if err := svc.Tick(ctx); err != nil {
		t.Fatalf("gateway failure must not fail the job: %v", err)
	}
	if sent := sink.list(); len(sent) != 0 {
		t.Fatalf("sent despite gateway failure: %+v", sent)
	}
}
