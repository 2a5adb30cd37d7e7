package bot

import (
	"context"
	"errors"
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
	kit "barghbot/internal/transport"
	logx "barghbot/pkg/logx"
)

const testChat = int64(7)

// fakeAdapter records every rendered screen (sends and edits) in order.
type fakeAdapter struct {
	mu      sync.Mutex
	nextID  int
	screens []string
	sends   int
	edits   int
	editErr error
	answers []string
}

func (f *fakeAdapter) Start(ctx context.Context, out chan<- kit.Update) error { return nil }
func (f *fakeAdapter) Stop(ctx context.Context) error                         { return nil }

func (f *fakeAdapter) SendText(ctx context.Context, chatID int64, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sends++
	f.screens = append(f.screens, text)
	return kit.MessageRef{ChatID: chatID, MessageID: f.nextID}, nil
}

func (f *fakeAdapter) EditText(ctx context.Context, ref kit.MessageRef, text string, opt *kit.SendOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return f.editErr
	}
	f.edits++
	f.screens = append(f.screens, text)
	return nil
}

func (f *fakeAdapter) AnswerCallback(ctx context.Context, callbackID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, callbackID)
	return nil
}

func (f *fakeAdapter) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.screens) == 0 {
		return ""
	}
	return f.screens[len(f.screens)-1]
}

func (f *fakeAdapter) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sends
}

func newTestHandlers(t *testing.T, srvURL string) (*Handlers, store.Store, *fakeAdapter) {
	t.Helper()
	base := jalali.NewClock("")
	fixed := time.Date(2025, 8, 21, 12, 0, 0, 0, base.Location())
	clock := jalali.NewClock("").WithNow(func() time.Time { return fixed })
	src := outage.NewSource(
		outage.NewClient(outage.ClientConfig{BaseURL: srvURL, JWT: "j"}, logx.Nop()),
		outage.NewCache(outage.DefaultScheduleTTL), outage.NewCache(outage.DefaultLiveTTL),
		clock, logx.Nop())
	st := store.NewMemory()
	fa := &fakeAdapter{}
	return NewHandlers(st, src, fa, nil, logx.Nop()), st, fa
}

func cbReq(data string) *Request {
	return &Request{Update: kit.Update{Kind: kit.UpdateCallback}, ChatID: testChat, FromID: testChat, Command: "cb", Data: data}
}

func textReq(text string) *Request {
	return &Request{Update: kit.Update{Kind: kit.UpdateMessage}, ChatID: testChat, FromID: testChat, Command: "text", Data: text}
}

func TestAddBillFlow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h, st, fa := newTestHandlers(t, "http://127.0.0.1:0")

	if err := h.Callback(ctx, cbReq("addbill")); err != nil {
		t.Fatalf("addbill: %v", err)
	}
	if u, _ := st.User(ctx, testChat); u.Pending != pendingBillID {
		t.Fatalf("pending = %q, want %q", u.Pending, pendingBillID)
	}

	if err := h.Text(ctx, textReq("12ab")); err != nil {
		t.Fatalf("bad bill id: %v", err)
	}
	if !strings.Contains(fa.last(), "فرمت شماره قبض معتبر نیست") {
		t.Fatalf("expected rejection, got %q", fa.last())
	}
	if err := h.Text(ctx, textReq("12345")); err != nil {
		t.Fatalf("short bill id: %v", err)
	}
	if !strings.Contains(fa.last(), "فرمت شماره قبض معتبر نیست") {
		t.Fatalf("expected rejection for short id, got %q", fa.last())
	}

	if err := h.Text(ctx, textReq("123456789")); err != nil {
		t.Fatalf("bill id: %v", err)
	}
	if u, _ := st.User(ctx, testChat); u.Pending != pendingBillName || u.TempBill != "123456789" {
		t.Fatalf("user state = %+v", u)
	}

	if err := h.Text(ctx, textReq("  ")); err != nil {
		t.Fatalf("empty name: %v", err)
	}
	if !strings.Contains(fa.last(), "نام نمی‌تواند خالی باشد") {
		t.Fatalf("expected empty-name rejection, got %q", fa.last())
	}

	if err := h.Text(ctx, textReq("خانه")); err != nil {
		t.Fatalf("name: %v", err)
	}
	bills, _ := st.Bills(ctx, testChat)
	if len(bills) != 1 || bills[0].Name != "خانه" || bills[0].BillID != "123456789" {
		t.Fatalf("bills = %+v", bills)
	}
	if u, _ := st.User(ctx, testChat); u.Pending != "" || u.TempBill != "" {
		t.Fatalf("pending not cleared: %+v", u)
	}
	if !strings.Contains(fa.last(), "ذخیره شد") {
		t.Fatalf("expected confirmation, got %q", fa.last())
	}
}

func TestToggleAndDeleteCascade(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h, st, fa := newTestHandlers(t, "http://127.0.0.1:0")
	if err := st.UpsertBill(ctx, testChat, "خانه", "123456789"); err != nil {
		t.Fatal(err)
	}

	if err := h.Callback(ctx, cbReq("toggle:a1h:123456789")); err != nil {
		t.Fatalf("toggle on: %v", err)
	}
	if fl, _ := st.AlertFlags(ctx, testChat, "123456789"); !fl.Hour {
		t.Fatal("a1h should be on after first toggle")
	}
	if err := h.Callback(ctx, cbReq("toggle:a1h:123456789")); err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	if fl, _ := st.AlertFlags(ctx, testChat, "123456789"); fl.Hour {
		t.Fatal("a1h should be off after second toggle")
	}

	if err := h.Callback(ctx, cbReq("toggle:bogus:123456789")); err != nil {
		t.Fatalf("bogus key: %v", err)
	}
	if !strings.Contains(fa.last(), "نامعتبر") {
		t.Fatalf("expected invalid-key message, got %q", fa.last())
	}

	if err := h.Callback(ctx, cbReq("del:yes:123456789")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if bills, _ := st.Bills(ctx, testChat); len(bills) != 0 {
		t.Fatalf("bills remain: %+v", bills)
	}
	if !strings.Contains(fa.last(), "حذف شدند") {
		t.Fatalf("expected delete confirmation, got %q", fa.last())
	}

	if err := h.Callback(ctx, cbReq("del:yes:123456789")); err != nil {
		t.Fatalf("delete again: %v", err)
	}
	if !strings.Contains(fa.last(), "خطا در حذف قبض") {
		t.Fatalf("expected not-found message, got %q", fa.last())
	}
}

func TestHomeResendWhenEditFails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h, st, fa := newTestHandlers(t, "http://127.0.0.1:0")
	if err := st.SetHomeMsgID(ctx, testChat, 555); err != nil {
		t.Fatal(err)
	}
	fa.editErr = errors.New("message to edit not found")

	if err := h.Start(ctx, &Request{ChatID: testChat}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if fa.sendCount() != 1 {
		t.Fatalf("sends = %d, want 1", fa.sendCount())
	}
	u, _ := st.User(ctx, testChat)
	if u.HomeMsgID == 555 || u.HomeMsgID == 0 {
		t.Fatalf("home_msg_id = %d, want fresh id", u.HomeMsgID)
	}
	if !strings.Contains(fa.last(), "خاموشی‌های برنامه‌ریزی‌شده") {
		t.Fatalf("expected home text, got %q", fa.last())
	}
}

func TestQueryTodayStrictFilter(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// The gateway may return future rows alongside today's.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[
			{"outage_date":"1404/05/30","outage_start_time":"14:00","outage_stop_time":"16:00","outage_address":"addr-today","outage_number":1},
			{"outage_date":"1404/05/31","outage_start_time":"09:00","outage_stop_time":"11:00","outage_address":"addr-future","outage_number":2}
		]}`)
	}))
	defer srv.Close()

	h, st, fa := newTestHandlers(t, srv.URL)
	if err := st.UpsertBill(ctx, testChat, "خانه", "123456789"); err != nil {
		t.Fatal(err)
	}

	if err := h.Callback(ctx, cbReq("q:today:123456789")); err != nil {
		t.Fatalf("query: %v", err)
	}
	out := fa.last()
	if !strings.Contains(out, "فقط امروز: 1404/05/30") {
		t.Fatalf("missing header: %q", out)
	}
	if !strings.Contains(out, "addr-today") || strings.Contains(out, "addr-future") {
		t.Fatalf("strict date filter not applied: %q", out)
	}
}

func TestQueryGatewayErrorRendersInline(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	}))
	defer srv.Close()

	h, st, fa := newTestHandlers(t, srv.URL)
	if err := st.UpsertBill(ctx, testChat, "خانه", "123456789"); err != nil {
		t.Fatal(err)
	}

	if err := h.Callback(ctx, cbReq("q:all:123456789")); err != nil {
		t.Fatalf("query: %v", err)
	}
	if !strings.HasPrefix(fa.last(), "❌ ") {
		t.Fatalf("expected inline error, got %q", fa.last())
	}
}
