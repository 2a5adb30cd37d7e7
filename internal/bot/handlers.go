package bot

import (
	"context"
	"strings"

	"barghbot/internal/config"
	"barghbot/internal/outage"
	"barghbot/internal/store"
	kit "barghbot/internal/transport"
	logx "barghbot/pkg/logx"
	"barghbot/pkg/tgui"

	tele "gopkg.in/telebot.v4"
)

// Pending states of the two-step add-bill conversation.
const (
	pendingBillID   = "await_bill_id"
	pendingBillName = "await_bill_name"
)

const invalidText = "دستور نامعتبر بود."

// toggleKinds maps callback toggle keys to the alert kinds the store knows.
var toggleKinds = map[string]string{
	"a1h":   "1h",
	"a10m":  "10m",
	"a1201": "1201",
}

// Handlers implements the bot's UI: a single "home" message per chat that is
// edited in place for every navigation step.
type Handlers struct {
	store   store.Store
	source  *outage.Source
	adapter kit.Adapter
	cfgm    *config.ConfigManager
	status  func(ctx context.Context) string
	log     logx.Logger
}

func NewHandlers(st store.Store, src *outage.Source, adapter kit.Adapter, cfgm *config.ConfigManager, log logx.Logger) *Handlers {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Handlers{store: st, source: src, adapter: adapter, cfgm: cfgm, log: log}
}

// SetStatusFunc installs the /health text provider. The app composes it from
// the subsystems it actually started.
func (h *Handlers) SetStatusFunc(fn func(ctx context.Context) string) { h.status = fn }

// Start (re)creates the home message.
func (h *Handlers) Start(ctx context.Context, req *Request) error {
	return h.ensureHome(ctx, req.ChatID)
}

// Health is owner-only; it replies with subsystem state as a plain message
// instead of touching the home message.
func (h *Handlers) Health(ctx context.Context, req *Request) error {
	text := "no status available"
	if h.status != nil {
		text = h.status(ctx)
	}
	_, err := h.adapter.SendText(ctx, req.ChatID, text, &kit.SendOptions{ParseMode: "HTML", DisablePreview: true})
	return err
}

// ConfigReload is owner-only; it re-reads the config file and commits it,
// which fans out to every subscribed subsystem.
func (h *Handlers) ConfigReload(ctx context.Context, req *Request) error {
	if h.cfgm == nil {
		_, err := h.adapter.SendText(ctx, req.ChatID, "config manager unavailable", nil)
		return err
	}
	if _, err := h.cfgm.Load(); err != nil {
		_, serr := h.adapter.SendText(ctx, req.ChatID, "reload failed: "+err.Error(), nil)
		return serr
	}
	_, err := h.adapter.SendText(ctx, req.ChatID, "config reloaded", nil)
	return err
}

// Text drives the add-bill conversation; anything else returns to home.
func (h *Handlers) Text(ctx context.Context, req *Request) error {
	u, err := h.store.User(ctx, req.ChatID)
	if err != nil {
		return err
	}

	switch u.Pending {
	case pendingBillID:
		bill := strings.TrimSpace(req.Data)
		if !isDigits(bill) || len(bill) < 6 {
			return h.editMain(ctx, req.ChatID, "فرمت شماره قبض معتبر نیست. دوباره ارسال کن (فقط اعداد).", nil)
		}
		if err := h.store.SetTempBill(ctx, req.ChatID, bill); err != nil {
			return err
		}
		if err := h.store.SetPending(ctx, req.ChatID, pendingBillName); err != nil {
			return err
		}
		return h.editMain(ctx, req.ChatID, "نام دلخواه برای این قبض را ارسال کن (مثلاً «خانه»، «دفتر»):", nil)

	case pendingBillName:
		name := strings.TrimSpace(req.Data)
		if name == "" {
			return h.editMain(ctx, req.ChatID, "نام نمی‌تواند خالی باشد. یک نام کوتاه و قابل تشخیص وارد کن.", nil)
		}
		if u.TempBill == "" {
			_ = h.store.SetPending(ctx, req.ChatID, "")
			return h.editMain(ctx, req.ChatID, "اشکال موقت در افزودن قبض. دوباره «➕ افزودن قبض» را بزن.", nil)
		}
		upErr := h.store.UpsertBill(ctx, req.ChatID, name, u.TempBill)
		_ = h.store.SetPending(ctx, req.ChatID, "")
		_ = h.store.SetTempBill(ctx, req.ChatID, "")
		if upErr != nil {
			return h.editMain(ctx, req.ChatID, "❌ خطا در ذخیره قبض: "+upErr.Error(), nil)
		}
		return h.editMain(ctx, req.ChatID, "✅ قبض «"+name+"» با شماره "+u.TempBill+" ذخیره شد.", nil)
	}

	return h.ensureHome(ctx, req.ChatID)
}

// Callback routes inline-button presses by the first token of callback data.
func (h *Handlers) Callback(ctx context.Context, req *Request) error {
	data := strings.TrimSpace(req.Data)
	chatID := req.ChatID

	action, rest, _ := strings.Cut(data, ":")
	switch action {
	case "home":
		return h.ensureHome(ctx, chatID)

	case "addbill":
		if err := h.store.SetPending(ctx, chatID, pendingBillID); err != nil {
			return err
		}
		if err := h.store.SetTempBill(ctx, chatID, ""); err != nil {
			return err
		}
		return h.editMain(ctx, chatID, "شماره قبض را ارسال کنید (فقط اعداد):", nil)

	case "alerts":
		bills, err := h.store.Bills(ctx, chatID)
		if err != nil {
			return err
		}
		if len(bills) == 0 {
			return h.editMain(ctx, chatID, "اول قبض اضافه کن: «➕ افزودن قبض».", nil)
		}
		return h.editMain(ctx, chatID, "قبضی که می‌خواهی هشدارش را تنظیم کنی انتخاب کن:", alertsListKB(bills, pageArg(rest)))

	case "alertcfg":
		return h.showAlertCfg(ctx, chatID, rest, "تنظیم هشدار برای قبض "+rest+":")

	case "toggle":
		key, billID, ok := cut2(rest)
		kind := toggleKinds[key]
		if !ok || kind == "" {
			return h.editMain(ctx, chatID, "درخواست نامعتبر بود.", nil)
		}
		fl, err := h.store.AlertFlags(ctx, chatID, billID)
		if err != nil {
			return err
		}
		if err := h.store.SetAlertFlag(ctx, chatID, billID, kind, !fl.Enabled(kind)); err != nil {
			return err
		}
		return h.showAlertCfg(ctx, chatID, billID, "بروز شد.")

	case "ask":
		qtype, pageStr, _ := cut2(rest)
		title, ok := askTitles[qtype]
		if !ok {
			return h.editMain(ctx, chatID, "درخواست نامعتبر بود.", nil)
		}
		bills, err := h.store.Bills(ctx, chatID)
		if err != nil {
			return err
		}
		if len(bills) == 0 {
			return h.editMain(ctx, chatID, "اول یک قبض اضافه کن: «➕ افزودن قبض».", nil)
		}
		return h.editMain(ctx, chatID, title, billPickerKB(bills, qtype, pageArg(pageStr)))

	case "q":
		qtype, billID, ok := cut2(rest)
		if !ok {
			return h.editMain(ctx, chatID, invalidText, nil)
		}
		return h.runQuery(ctx, chatID, qtype, billID)

	case "delbill":
		bills, err := h.store.Bills(ctx, chatID)
		if err != nil {
			return err
		}
		if len(bills) == 0 {
			return h.editMain(ctx, chatID, "قبضی برای حذف وجود ندارد.", nil)
		}
		return h.editMain(ctx, chatID, "کدام قبض حذف شود؟", deleteListKB(bills, pageArg(rest)))

	case "delpick":
		billID := rest
		name := billID
		if bills, err := h.store.Bills(ctx, chatID); err == nil {
			for _, b := range bills {
				if b.BillID == billID {
					name = b.Name
					break
				}
			}
		}
		return h.editMain(ctx, chatID,
			"آیا مطمئنی می‌خواهی قبض «"+name+" • "+billID+"» را حذف کنی؟\n"+
				"با حذف، هشدارها و سوابق مرتبط هم پاک می‌شوند.",
			deleteConfirmKB(billID))

	case "del":
		verdict, billID, _ := cut2(rest)
		if verdict == "no" {
			return h.editMain(ctx, chatID, "حذف لغو شد.", nil)
		}
		if verdict == "yes" && billID != "" {
			ok, err := h.store.DeleteBill(ctx, chatID, billID)
			if err != nil {
				return err
			}
			if ok {
				h.source.DeleteSubject(billID)
				return h.editMain(ctx, chatID, "✅ قبض و همهٔ هشدارها و سوابق مرتبط حذف شدند.", nil)
			}
			return h.editMain(ctx, chatID, "❌ خطا در حذف قبض یا قبضی با این شناسه یافت نشد.", nil)
		}
	}

	return h.editMain(ctx, chatID, invalidText, nil)
}

func (h *Handlers) showAlertCfg(ctx context.Context, chatID int64, billID, text string) error {
	fl, err := h.store.AlertFlags(ctx, chatID, billID)
	if err != nil {
		return err
	}
	return h.editMain(ctx, chatID, text, alertCfgKB(billID, fl))
}

// ensureHome edits the stored home message to the menu, or sends a fresh one
// when editing fails (deleted message, fresh chat).
func (h *Handlers) ensureHome(ctx context.Context, chatID int64) error {
	u, err := h.store.User(ctx, chatID)
	if err != nil {
		return err
	}
	bills, err := h.store.Bills(ctx, chatID)
	if err != nil {
		return err
	}

	msg := tgui.Message{
		Text: homeText(bills),
		Opt:  &kit.SendOptions{DisablePreview: true, ReplyMarkupAdapter: mainMenu()},
	}
	if u.HomeMsgID != 0 {
		if err := msg.Edit(ctx, h.adapter, kit.MessageRef{ChatID: chatID, MessageID: u.HomeMsgID}); err == nil {
			return nil
		}
	}
	ref, err := msg.Send(ctx, h.adapter, chatID)
	if err != nil {
		return err
	}
	return h.store.SetHomeMsgID(ctx, chatID, ref.MessageID)
}

// editMain updates the home message with text and a keyboard (back-only when
// rm is nil), falling back to a fresh message when the edit fails.
func (h *Handlers) editMain(ctx context.Context, chatID int64, text string, rm *tele.ReplyMarkup) error {
	if rm == nil {
		rm = backKB()
	}
	msg := tgui.Message{
		Text: text,
		Opt:  &kit.SendOptions{DisablePreview: true, ReplyMarkupAdapter: rm},
	}

	u, err := h.store.User(ctx, chatID)
	if err != nil {
		return err
	}
	if u.HomeMsgID != 0 {
		if err := msg.Edit(ctx, h.adapter, kit.MessageRef{ChatID: chatID, MessageID: u.HomeMsgID}); err == nil {
			return nil
		}
	}
	ref, err := msg.Send(ctx, h.adapter, chatID)
	if err != nil {
		return err
	}
	return h.store.SetHomeMsgID(ctx, chatID, ref.MessageID)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func pageArg(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// cut2 splits "a:b" into its two halves.
func cut2(s string) (string, string, bool) {
	a, b, ok := strings.Cut(s, ":")
	return a, b, ok
}
