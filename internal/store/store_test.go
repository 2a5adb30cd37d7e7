package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	logx "barghbot/pkg/logx"
)

func openDrivers(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := Open(Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "bot.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sq.Close() })
	return map[string]Store{"sqlite": sq, "memory": NewMemory()}
}

func TestUserState(t *testing.T) {
	for name, st := range openDrivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			u, err := st.User(ctx, 42)
			if err != nil {
				t.Fatalf("User: %v", err)
			}
			if u.Pending != "" || u.TempBill != "" || u.HomeMsgID != 0 {
				t.Fatalf("missing row not zero-valued: %+v", u)
			}

			if err := st.SetPending(ctx, 42, "awaiting_bill"); err != nil {
				t.Fatal(err)
			}
			if err := st.SetTempBill(ctx, 42, "123456789"); err != nil {
				t.Fatal(err)
			}
			if err := st.SetHomeMsgID(ctx, 42, 77); err != nil {
				t.Fatal(err)
			}

			u, _ = st.User(ctx, 42)
			if u.Pending != "awaiting_bill" || u.TempBill != "123456789" || u.HomeMsgID != 77 {
				t.Fatalf("round trip: %+v", u)
			}

			// Clearing one field keeps the others.
			if err := st.SetPending(ctx, 42, ""); err != nil {
				t.Fatal(err)
			}
			u, _ = st.User(ctx, 42)
			if u.Pending != "" || u.TempBill != "123456789" {
				t.Fatalf("after clear: %+v", u)
			}
		})
	}
}

func TestBillLifecycle(t *testing.T) {
	for name, st := range openDrivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			for _, b := range []struct{ name, bill string }{
				{"خانه", "111111111"},
				{"مغازه", "222222222"},
			} {
				if err := st.UpsertBill(ctx, 1, b.name, b.bill); err != nil {
					t.Fatalf("UpsertBill: %v", err)
				}
			}

			bills, err := st.Bills(ctx, 1)
			if err != nil {
				t.Fatal(err)
			}
			if len(bills) != 2 || bills[0].Name != "مغازه" {
				t.Fatalf("newest-first listing: %+v", bills)
			}

			// Same name replaces the number instead of adding a row.
			if err := st.UpsertBill(ctx, 1, "خانه", "333333333"); err != nil {
				t.Fatal(err)
			}
			bills, _ = st.Bills(ctx, 1)
			if len(bills) != 2 {
				t.Fatalf("rename grew the list: %+v", bills)
			}

			// Deletes cascade and respect ownership.
			if ok, _ := st.DeleteBill(ctx, 99, "222222222"); ok {
				t.Fatal("deleted a bill the chat does not own")
			}
			if err := st.SetAlertFlag(ctx, 1, "222222222", "1h", true); err != nil {
				t.Fatal(err)
			}
			if _, err := st.MarkSent(ctx, 1, "222222222", "1h", "1404/06/08", "x"); err != nil {
				t.Fatal(err)
			}
			ok, err := st.DeleteBill(ctx, 1, "222222222")
			if err != nil || !ok {
				t.Fatalf("DeleteBill: ok=%v err=%v", ok, err)
			}
			if f, _ := st.AlertFlags(ctx, 1, "222222222"); f.Any() {
				t.Fatal("alert flags survived delete")
			}
			if first, _ := st.MarkSent(ctx, 1, "222222222", "1h", "1404/06/08", "x"); !first {
				t.Fatal("ledger entry survived delete")
			}
		})
	}
}

func TestAlertFlagsAndSubscriptions(t *testing.T) {
	for name, st := range openDrivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := st.UpsertBill(ctx, 1, "خانه", "111"); err != nil {
				t.Fatal(err)
			}
			if err := st.UpsertBill(ctx, 2, "دفتر", "222"); err != nil {
				t.Fatal(err)
			}

			// All flags start off; nothing is active yet.
			subs, err := st.ActiveSubscriptions(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(subs) != 0 {
				t.Fatalf("fresh bills already active: %+v", subs)
			}

			if err := st.SetAlertFlag(ctx, 1, "111", "10m", true); err != nil {
				t.Fatal(err)
			}
			if err := st.SetAlertFlag(ctx, 1, "111", "1201", true); err != nil {
				t.Fatal(err)
			}
			f, err := st.AlertFlags(ctx, 1, "111")
			if err != nil {
				t.Fatal(err)
			}
			if f.Hour || !f.TenMin || !f.Digest {
				t.Fatalf("flags = %+v", f)
			}

			subs, _ = st.ActiveSubscriptions(ctx)
			if len(subs) != 1 || subs[0].ChatID != 1 || subs[0].BillID != "111" {
				t.Fatalf("subscriptions = %+v", subs)
			}

			if err := st.SetAlertFlag(ctx, 1, "111", "bogus", true); !errors.Is(err, ErrUnknownKind) {
				t.Fatalf("bogus kind: %v", err)
			}
		})
	}
}

func TestMarkSentExactlyOnce(t *testing.T) {
	for name, st := range openDrivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			const workers = 8
			var wg sync.WaitGroup
			firsts := make(chan bool, workers)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					first, err := st.MarkSent(ctx, 5, "111", "1h", "1404/06/08", "08:00")
					if err != nil {
						t.Errorf("MarkSent: %v", err)
						return
					}
					firsts <- first
				}()
			}
			wg.Wait()
			close(firsts)

			got := 0
			for first := range firsts {
				if first {
					got++
				}
			}
			if got != 1 {
				t.Fatalf("%d goroutines won the reservation, want 1", got)
			}

			// A different occurrence key reserves independently.
			if first, _ := st.MarkSent(ctx, 5, "111", "1h", "1404/06/09", "08:00"); !first {
				t.Fatal("next day's occurrence blocked")
			}
		})
	}
}

func TestPurgeSentBefore(t *testing.T) {
	for name, st := range openDrivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, jd := range []string{"1404/05/01", "1404/05/15", "1404/06/08"} {
				if _, err := st.MarkSent(ctx, 1, "111", "1201", jd, "-"); err != nil {
					t.Fatal(err)
				}
			}
			n, err := st.PurgeSentBefore(ctx, "1404/06/01")
			if err != nil {
				t.Fatal(err)
			}
			if n != 2 {
				t.Fatalf("purged %d rows, want 2", n)
			}
			if first, _ := st.MarkSent(ctx, 1, "111", "1201", "1404/06/08", "-"); first {
				t.Fatal("kept row lost its reservation")
			}
		})
	}
}
