// Package jalali converts Gregorian dates to the Jalali (solar-Hijri)
// calendar used by the utility API. The conversion implements the 33-year
// leap-cycle break-point algorithm and is exact for every date the API can
// return; there is no error path because every time.Time is a valid input.
package jalali

import "fmt"

// Break years of the 2820-year Jalali grand cycle. The algorithm walks this
// table to locate the 33-year sub-cycle containing the target year.
var breaks = [...]int{
	-61, 9, 38, 199, 426, 686, 756, 818, 1111, 1181, 1210,
	1635, 2060, 2097, 2192, 2262, 2324, 2394, 2456, 3178,
}

// ToJalali converts a Gregorian calendar date to Jalali year/month/day.
func ToJalali(gy, gm, gd int) (jy, jm, jd int) {
	jy = gy - 621
	_, march := jalCal(jy)
	k := g2d(gy, gm, gd) - g2d(gy, 3, march)
	if k >= 0 {
		if k <= 185 {
			return jy, 1 + k/31, 1 + k%31
		}
		k -= 186
	} else {
		jy--
		_, march = jalCal(jy)
		k = g2d(gy, gm, gd) - g2d(gy-1, 3, march)
	}
	return jy, 7 + k/30, 1 + k%30
}

// FormatDate renders a Jalali date as "YYYY/MM/DD" with zero-padded month
// and day, the exact key format the outage API uses.
func FormatDate(jy, jm, jd int) string {
	return fmt.Sprintf("%d/%02d/%02d", jy, jm, jd)
}

// jalCal returns the leap status of the given Jalali year and the Gregorian
// March day on which that Jalali year starts.
func jalCal(jy int) (leap, march int) {
	gy := jy + 621
	leapJ := -14
	jp := breaks[0]

	var n, jump int
	for i := 1; i < len(breaks); i++ {
		jm := breaks[i]
		jump = jm - jp
		if jy < jm {
			n = jy - jp
			leapJ += n/33*8 + (n%33+3)/4
			if jump%33 == 4 && jump-n == 4 {
				leapJ++
			}
			leapG := gy/4 - (gy/100+1)*3/4 - 150
			march = 20 + leapJ - leapG
			if jump-n < 6 {
				n = n - jump + (jump+4)/33*33
			}
			return leapOf(n), march
		}
		leapJ += jump/33*8 + jump%33/4
		jp = jm
	}

	// Past the last break year; extrapolate the final cycle.
	n = jy - jp
	leapJ += n/33*8 + (n%33+3)/4
	leapG := gy/4 - (gy/100+1)*3/4 - 150
	march = 20 + leapJ - leapG
	return leapOf(n), march
}

// leapOf reports the leap offset of year n within its 33-year sub-cycle
// (0 means leap). Uses a floored mod so the cycle edge maps to 3, not -1.
func leapOf(n int) int {
	m := ((n+1)%33 - 1) % 4
	if m < 0 {
		m += 4
	}
	return m
}

// g2d converts a Gregorian date to its Julian day number.
func g2d(gy, gm, gd int) int {
	a := (14 - gm) / 12
	y := gy + 4800 - a
	m := gm + 12*a - 3
	return gd + (153*m+2)/5 + 365*y + y/4 - y/100 + y/400 - 32045
}
