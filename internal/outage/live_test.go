package outage

import "testing"

func TestActiveNowCrossDay(t *testing.T) {
	t.Parallel()
	const (
		today     = "1404/05/01"
		yesterday = "1404/04/31"
	)

	tests := []struct {
		name   string
		rec    Record
		nowMin int
		active bool
	}{
		{
			name:   "yesterday midnight-crossing still running",
			rec:    Record{Date: yesterday, Start: "23:30", Stop: "00:30"},
			nowMin: 10, // 00:10
			active: true,
		},
		{
			name:   "yesterday midnight-crossing finished",
			rec:    Record{Date: yesterday, Start: "23:30", Stop: "00:30"},
			nowMin: 30, // stop boundary is exclusive
			active: false,
		},
		{
			name:   "yesterday same-day interval never active today",
			rec:    Record{Date: yesterday, Start: "08:00", Stop: "10:00"},
			nowMin: 9 * 60,
			active: false,
		},
		{
			name:   "today in window",
			rec:    Record{Date: today, Start: "08:00", Stop: "10:00"},
			nowMin: 9 * 60,
			active: true,
		},
		{
			name:   "today at exclusive stop",
			rec:    Record{Date: today, Start: "08:00", Stop: "10:00"},
			nowMin: 10 * 60,
			active: false,
		},
		{
			name:   "today at inclusive start",
			rec:    Record{Date: today, Start: "08:00", Stop: "10:00"},
			nowMin: 8 * 60,
			active: true,
		},
		{
			name:   "today wraparound after start",
			rec:    Record{Date: today, Start: "23:00", Stop: "01:00"},
			nowMin: 23*60 + 30,
			active: true,
		},
		{
			name:   "today wraparound before start",
			rec:    Record{Date: today, Start: "23:00", Stop: "01:00"},
			nowMin: 22 * 60,
			active: false,
		},
		{
			name:   "other date ignored",
			rec:    Record{Date: "1404/05/02", Start: "00:00", Stop: "23:59"},
			nowMin: 12 * 60,
			active: false,
		},
		{
			name:   "malformed time skipped",
			rec:    Record{Date: today, Start: "late", Stop: "10:00"},
			nowMin: 9 * 60,
			active: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := ActiveNow([]Record{tt.rec}, tt.nowMin, today, yesterday)
			if (len(got) == 1) != tt.active {
				t.Fatalf("ActiveNow = %d records, want active=%v", len(got), tt.active)
			}
		})
	}
}

func TestRecordIdentity(t *testing.T) {
	t.Parallel()
	withNumber := Record{Date: "1404/05/01", Start: "08:00", Stop: "10:00", Number: "987654"}
	if got := withNumber.Identity(); got != "987654" {
		t.Fatalf("Identity = %s, want the native outage number", got)
	}

	composite := Record{RegDate: "1404/05/01", AltStart: "08:00", Stop: "10:00", AltAddr: "تهران"}
	want := "1404/05/01-08:00-10:00-تهران"
	if got := composite.Identity(); got != want {
		t.Fatalf("Identity = %s, want %s", got, want)
	}
}

func TestDurationMinutesWraparound(t *testing.T) {
	t.Parallel()
	r := Record{Start: "23:30", Stop: "00:30"}
	if got := r.DurationMinutes(); got != 60 {
		t.Fatalf("DurationMinutes = %d, want 60", got)
	}
	r = Record{Start: "08:00", Stop: "10:15"}
	if got := r.DurationMinutes(); got != 135 {
		t.Fatalf("DurationMinutes = %d, want 135", got)
	}
	r = Record{Start: "oops", Stop: "10:15"}
	if got := r.DurationMinutes(); got != 0 {
		t.Fatalf("DurationMinutes = %d for malformed start, want 0", got)
	}
}

func TestHMToMinutes(t *testing.T) {
	t.Parallel()
	if m, ok := HMToMinutes("23:59"); !ok || m != 1439 {
		t.Fatalf("HMToMinutes(23:59) = %d,%v", m, ok)
	}
	for _, bad := range []string{"", "24:00", "12:60", "noon", "12", "-1:30"} {
		if _, ok := HMToMinutes(bad); ok {
			t.Fatalf("HMToMinutes(%q) accepted malformed input", bad)
		}
	}
}
