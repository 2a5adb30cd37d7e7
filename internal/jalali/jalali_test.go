package jalali

import (
	"testing"
	"time"
)

func TestToJalaliKnownDates(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		gy, gm, gd int
		want       string
	}{
		{name: "nowruz 1400", gy: 2021, gm: 3, gd: 21, want: "1400/01/01"},
		{name: "nowruz 1404", gy: 2025, gm: 3, gd: 21, want: "1404/01/01"},
		{name: "leap year esfand 30", gy: 2025, gm: 3, gd: 20, want: "1403/12/30"},
		{name: "nowruz 1395 leap", gy: 2016, gm: 3, gd: 20, want: "1395/01/01"},
		{name: "mid-winter", gy: 1979, gm: 2, gd: 11, want: "1357/11/22"},
		{name: "second half of year", gy: 2024, gm: 10, gd: 1, want: "1403/07/10"},
		{name: "gregorian new year", gy: 2025, gm: 1, gd: 1, want: "1403/10/12"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			jy, jm, jd := ToJalali(tt.gy, tt.gm, tt.gd)
			got := FormatDate(jy, jm, jd)
			if got != tt.want {
				t.Fatalf("ToJalali(%d,%d,%d) = %s, want %s", tt.gy, tt.gm, tt.gd, got, tt.want)
			}
		})
	}
}

func TestToJalaliDeterministic(t *testing.T) {
	t.Parallel()
	// Repeated calls with the same input must agree, and consecutive days
	// never move the Jalali date backwards.
	start := time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)
	prev := ""
	for i := 0; i < 3000; i++ {
		d := start.AddDate(0, 0, i)
		a := FromTime(d)
		b := FromTime(d)
		if a != b {
			t.Fatalf("conversion unstable for %v: %s vs %s", d, a, b)
		}
		if prev != "" && a == prev {
			t.Fatalf("date did not advance for %v: still %s", d, a)
		}
		prev = a
	}
}

func TestFormatDateZeroPads(t *testing.T) {
	t.Parallel()
	if got := FormatDate(1404, 1, 5); got != "1404/01/05" {
		t.Fatalf("FormatDate = %s, want 1404/01/05", got)
	}
}

func TestClockDayBoundaries(t *testing.T) {
	t.Parallel()
	// 2025-03-21 00:30 Tehran: today is nowruz, yesterday the leap-year
	// esfand 30, tomorrow farvardin 2.
	loc, err := time.LoadLocation(TehranZone)
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	fixed := time.Date(2025, 3, 21, 0, 30, 0, 0, loc)
	c := NewClock(TehranZone).WithNow(func() time.Time { return fixed })

	if got := c.Today(); got != "1404/01/01" {
		t.Fatalf("Today = %s, want 1404/01/01", got)
	}
	if got := c.Yesterday(); got != "1403/12/30" {
		t.Fatalf("Yesterday = %s, want 1403/12/30", got)
	}
	if got := c.Tomorrow(); got != "1404/01/02" {
		t.Fatalf("Tomorrow = %s, want 1404/01/02", got)
	}
	if got := c.NowMinutes(); got != 30 {
		t.Fatalf("NowMinutes = %d, want 30", got)
	}
	if got := c.DaysAgo(30); got != "1403/12/01" {
		t.Fatalf("DaysAgo(30) = %s, want 1403/12/01", got)
	}
}
