package outage

import (
	"fmt"
	"strings"
)

// maxListItems bounds how many records a single message lists before
// collapsing the rest into an "and N more" line.
const maxListItems = 20

// FormatTotalMinutes renders a minute total as Persian hour/minute words.
func FormatTotalMinutes(total int) string {
	h, m := total/60, total%60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%d ساعت و %d دقیقه", h, m)
	case h > 0:
		return fmt.Sprintf("%d ساعت", h)
	default:
		return fmt.Sprintf("%d دقیقه", m)
	}
}

// FormatList renders a record list as the Persian plain-text body used by
// both the interactive views and the midnight digest: header, wraparound-
// aware total-duration line, count, then up to maxListItems items. todayNote
// appends the hint that a finished outage may already have left the list.
func FormatList(items []Record, header string, todayNote bool) string {
	total := 0
	for _, it := range items {
		total += it.DurationMinutes()
	}
	totalLine := "⏱ مجموع مدت خاموشی‌ها: " + FormatTotalMinutes(total)

	if len(items) == 0 {
		b := header + "\n" + totalLine + "\nهیچ خاموشیِ برنامه‌ریزی‌شده‌ای یافت نشد."
		if todayNote {
			b += "\n\nℹ️ ممکن است خاموشی اتفاق افتاده باشد، اما به پایان رسیده و اکنون دیگر در لیست نیست."
		}
		return b
	}

	lines := []string{
		header,
		totalLine,
		fmt.Sprintf("تعداد %d مورد:", len(items)),
		"",
	}
	for i, it := range items {
		if i >= maxListItems {
			break
		}
		lines = append(lines, fmt.Sprintf("• %s  %s–%s\n  %s  (%s)",
			it.CivilDate(), it.StartHHMM(), it.Stop, it.AddressText(), it.Reason))
	}
	if len(items) > maxListItems {
		lines = append(lines, fmt.Sprintf("\n… و %d مورد دیگر.", len(items)-maxListItems))
	}
	return strings.Join(lines, "\n")
}
