package bot

import (
	"strconv"
	"strings"

	"barghbot/internal/store"
	"barghbot/pkg/tgui"

	tele "gopkg.in/telebot.v4"
)

const billsPerPage = 8

const homeTextTemplate = "⚡️ ربات اعلام «خاموشی‌های برنامه‌ریزی‌شده» (زمان تهران)\n\n" +
	"دکمه‌ها:\n" +
	"• 🔴 خاموشی‌های جاری (زنده)\n" +
	"• ⚡️ قطعی امروز / 🌤 فردا / 📋 همه\n" +
	"• 🔔 مدیریت هشدارها (۱ساعت قبل/۱۰دقیقه/۰۰:۰۱)\n" +
	"• ➕ افزودن قبض\n" +
	"• 🗑 حذف قبض\n\n" +
	"قبض‌ها: "

func homeText(bills []store.Bill) string {
	if len(bills) == 0 {
		return homeTextTemplate + "فعلاً هیچ قبضی ذخیره نشده است."
	}
	names := make([]string, 0, 6)
	for _, b := range bills {
		if len(names) == 6 {
			break
		}
		names = append(names, b.Name)
	}
	line := strings.Join(names, "، ")
	if len(bills) > 6 {
		line += "…"
	}
	return homeTextTemplate + line
}

func mainMenu() *tele.ReplyMarkup {
	return tgui.NewInline().
		Row(tgui.Btn("🔴 خاموشی‌های جاری", tgui.Data("ask", "now", "0"))).
		Row(
			tgui.Btn("⚡️ قطعی امروز", tgui.Data("ask", "today", "0")),
			tgui.Btn("🌤 قطعی فردا", tgui.Data("ask", "tomorrow", "0")),
		).
		Row(tgui.Btn("📋 همه‌ی خاموشی‌ها", tgui.Data("ask", "all", "0"))).
		Row(tgui.Btn("🔔 مدیریت هشدارها", tgui.Data("alerts", "0"))).
		Row(tgui.Btn("➕ افزودن قبض", tgui.Data("addbill"))).
		Row(tgui.Btn("🗑 حذف قبض", tgui.Data("delbill", "0"))).
		Markup()
}

func backKB() *tele.ReplyMarkup {
	return tgui.NewInline().Row(tgui.Btn("بازگشت ◀️", tgui.Data("home"))).Markup()
}

// listKeyboard renders one button per bill plus prev/next navigation and a
// back row. label renders the button text, pick the callback data, and nav
// the callback data for a page jump.
func listKeyboard(bills []store.Bill, page int, label func(store.Bill) string, pick func(store.Bill) string, nav func(page int) string) *tele.ReplyMarkup {
	sub, page, _, _, _, hasPrev, hasNext := tgui.PaginateSlice(bills, page, billsPerPage)
	kb := tgui.NewInline()
	for _, b := range sub {
		kb.Row(tgui.Btn(label(b), pick(b)))
	}
	var navRow []tele.Btn
	if hasPrev {
		navRow = append(navRow, tgui.Btn("⬅️ قبلی", nav(page-1)))
	}
	if hasNext {
		navRow = append(navRow, tgui.Btn("بعدی ➡️", nav(page+1)))
	}
	if len(navRow) > 0 {
		kb.Row(navRow...)
	}
	kb.Row(tgui.Btn("بازگشت ◀️", tgui.Data("home")))
	return kb.Markup()
}

func billPickerKB(bills []store.Bill, qtype string, page int) *tele.ReplyMarkup {
	return listKeyboard(bills, page,
		func(b store.Bill) string { return b.Name + " • " + b.BillID },
		func(b store.Bill) string { return tgui.Data("q", qtype, b.BillID) },
		func(p int) string { return tgui.Data("ask", qtype, strconv.Itoa(p)) },
	)
}

func alertsListKB(bills []store.Bill, page int) *tele.ReplyMarkup {
	return listKeyboard(bills, page,
		func(b store.Bill) string { return "🔔 " + b.Name + " • " + b.BillID },
		func(b store.Bill) string { return tgui.Data("alertcfg", b.BillID) },
		func(p int) string { return tgui.Data("alerts", strconv.Itoa(p)) },
	)
}

func deleteListKB(bills []store.Bill, page int) *tele.ReplyMarkup {
	return listKeyboard(bills, page,
		func(b store.Bill) string { return "🗑 حذف " + b.Name + " • " + b.BillID },
		func(b store.Bill) string { return tgui.Data("delpick", b.BillID) },
		func(p int) string { return tgui.Data("delbill", strconv.Itoa(p)) },
	)
}

func deleteConfirmKB(billID string) *tele.ReplyMarkup {
	kb := tgui.ConfirmInline(
		tgui.Btn("✅ بله، حذف کن", tgui.Data("del", "yes", billID)),
		tgui.Btn("❌ نه، منصرف شدم", tgui.Data("del", "no")),
	)
	kb.Row(tgui.Btn("بازگشت ◀️", tgui.Data("home")))
	return kb.Markup()
}

func alertCfgKB(billID string, fl store.AlertFlags) *tele.ReplyMarkup {
	onoff := func(v bool) string {
		if v {
			return "✅ روشن"
		}
		return "❌ خاموش"
	}
	return tgui.NewInline().
		Row(tgui.Btn("⏱ ۱ ساعت قبل • "+onoff(fl.Hour), tgui.Data("toggle", "a1h", billID))).
		Row(tgui.Btn("⏳ ۱۰ دقیقه قبل • "+onoff(fl.TenMin), tgui.Data("toggle", "a10m", billID))).
		Row(tgui.Btn("🕛 راس ۰۰:۰۱ • "+onoff(fl.Digest), tgui.Data("toggle", "a1201", billID))).
		Row(tgui.Btn("بازگشت ◀️", tgui.Data("home"))).
		Markup()
}
