package alert

import (
	"fmt"

	"barghbot/internal/outage"
)

// reminderText renders a pre-outage reminder. tomorrow switches the
// day word for reminders sent the evening before.
func reminderText(k Kind, billName string, rec outage.Record, tomorrow bool) string {
	head := "⏱ یادآوری ۱ ساعت قبل"
	if k == KindTenMin {
		head = "⏳ یادآوری ۱۰ دقیقه قبل"
	}
	day := "امروز"
	if tomorrow {
		day = "فردا"
	}
	return fmt.Sprintf("%s (%s)\n%s %s، %s–%s\n%s",
		head, billName, day, rec.CivilDate(), rec.StartHHMM(), rec.Stop, rec.AddressText())
}

// digestText renders the after-midnight daily summary. An empty list
// still produces a message saying nothing is planned.
func digestText(items []outage.Record, billName, jdate string) string {
	header := fmt.Sprintf("🕛 خلاصهٔ خاموشی‌های امروز (%s) - %s", billName, jdate)
	return outage.FormatList(items, header, false)
}
