package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"barghbot/pkg/tgui"
)

// statusText renders the owner /health report.
func (a *App) statusText(ctx context.Context) string {
	snap := a.sched.Snapshot()
	sent := a.notif.Snapshot()

	b := tgui.New().Title("🩺", "وضعیت ربات")

	b.Section("زمان‌بندی")
	b.KV("enabled", fmt.Sprintf("%v", snap.Enabled))
	b.KV("timezone", snap.Timezone)
	b.KV("workers", fmt.Sprintf("%d", snap.Workers))
	b.KV("queue", fmt.Sprintf("%d/%d", snap.QueueLen, snap.QueueCap))
	if snap.Dropped > 0 {
		b.KV("dropped", fmt.Sprintf("%d (full=%d stale=%d)", snap.Dropped, snap.DroppedQueueFull, snap.DroppedStale))
	}
	for _, it := range snap.Schedules {
		next := "-"
		if !it.Next.IsZero() {
			next = it.Next.Format("15:04:05")
		}
		b.KV(it.Name, fmt.Sprintf("%s → %s", it.Spec, next))
	}

	b.Section("ارسال‌ها")
	b.KV("recent", fmt.Sprintf("%d", len(sent)))
	if n := len(sent); n > 0 {
		last := sent[n-1]
		b.KV("last", fmt.Sprintf("%s %s", last.Kind, last.At.Format("15:04:05")))
	}

	b.Section("اجزا")
	b.KV("pprof", onOff(a.pprof.Enabled()))
	b.KV("notifier", onOff(a.notif.Enabled()))
	if a.sup != nil {
		c := a.sup.Counters()
		b.KV("goroutines", fmt.Sprintf("active=%d started=%d", c.Active, c.Started))
		if err := a.sup.Err(); err != nil {
			b.KV("fatal", truncErr(err.Error()))
		}
	}
	b.KV("uptime_check", time.Now().Format("2006-01-02 15:04:05"))

	return b.Build().Text
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func truncErr(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 200 {
		return s[:200] + "…"
	}
	return s
}
