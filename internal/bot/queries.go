package bot

import (
	"context"

	"barghbot/internal/outage"
)

var askTitles = map[string]string{
	"now":      "یک قبض برای «خاموشی‌های جاری (زنده)» انتخاب کن:",
	"today":    "یک قبض برای «امروز» انتخاب کن:",
	"tomorrow": "یک قبض برای «فردا» انتخاب کن:",
	"all":      "یک قبض برای «همهٔ خاموشی‌ها» انتخاب کن:",
}

// runQuery answers a "q:<qtype>:<bill>" pick with a formatted outage list.
// Gateway failures surface as an error line in the home message, the same
// way every other navigation step renders.
func (h *Handlers) runQuery(ctx context.Context, chatID int64, qtype, billID string) error {
	clock := h.source.Clock()

	switch qtype {
	case "now":
		items, fallback, err := h.source.LiveNow(ctx, billID)
		if err != nil {
			return h.editMain(ctx, chatID, "❌ "+err.Error(), nil)
		}
		header := "🕒 خاموشی‌های جاری (زنده، " + clock.Today() + ")"
		if fallback {
			header = "🕒 خاموشی‌های جاری (پشتیبان برنامه‌ریزی‌شده، " + clock.Today() + ")"
		}
		return h.editMain(ctx, chatID, outage.FormatList(items, header, true), nil)

	case "today":
		d := clock.Today()
		items, err := h.source.DaySchedule(ctx, billID, d)
		if err != nil {
			return h.editMain(ctx, chatID, "❌ "+err.Error(), nil)
		}
		return h.editMain(ctx, chatID, outage.FormatList(items, "🗓 فقط امروز: "+d, true), nil)

	case "tomorrow":
		d := clock.Tomorrow()
		items, err := h.source.DaySchedule(ctx, billID, d)
		if err != nil {
			return h.editMain(ctx, chatID, "❌ "+err.Error(), nil)
		}
		return h.editMain(ctx, chatID, outage.FormatList(items, "🗓 فقط فردا: "+d, false), nil)

	case "all":
		items, err := h.source.AllFuture(ctx, billID)
		if err != nil {
			return h.editMain(ctx, chatID, "❌ "+err.Error(), nil)
		}
		return h.editMain(ctx, chatID, outage.FormatList(items, "🗓 از "+clock.Today()+" تا "+outage.FarFutureDate, false), nil)
	}

	return h.editMain(ctx, chatID, invalidText, nil)
}
