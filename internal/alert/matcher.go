package alert

// WindowMinutes is the width of the due window. A reminder whose due
// instant is t fires while now is in [t, t+WindowMinutes); with a 60s
// tick this tolerates one missed or late tick without double-firing
// (the ledger catches the double).
const WindowMinutes = 2

// Due reports whether a reminder with the given lead offset is due now
// for an outage starting at startMin minutes past midnight.
//
// For a record dated today the due instant is startMin-offset; starts
// too close to midnight for the full lead (startMin < offset) are not
// announceable today and never fire. For a record dated tomorrow the
// roles flip: only starts within the lead of midnight matter, and the
// due instant lands in the last offset minutes of today,
// 1440-(offset-startMin). All arithmetic is on the 0..1439 civil-day
// minute scale.
func Due(nowMin, startMin, offset int, tomorrow bool) bool {
	var at int
	if tomorrow {
		if startMin >= offset {
			return false
		}
		at = 24*60 - (offset - startMin)
	} else {
		at = startMin - offset
		if at < 0 {
			return false
		}
	}
	return at <= nowMin && nowMin < at+WindowMinutes
}
