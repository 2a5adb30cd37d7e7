package outage

// ActiveNow classifies combined yesterday+today schedule records against the
// current minute of day and keeps those whose outage window contains "now".
// This is the planned-schedule fallback used only when the live endpoint
// fails.
//
// Cross-day rules, all on the 0..1439 minute scale with an exclusive stop
// boundary:
//   - today-dated, stop >= start:  active iff start <= now < stop
//   - today-dated, stop < start:   midnight-crossing, active iff now >= start
//   - yesterday-dated:             active iff it crosses midnight (stop <
//     start) and now < stop
//
// stop < start always denotes wraparound, never invalid input. Records with
// malformed or missing times are skipped.
func ActiveNow(items []Record, nowMin int, today, yesterday string) []Record {
	if nowMin < 0 || nowMin >= 24*60 {
		return nil
	}
	out := make([]Record, 0, len(items))
	for _, it := range items {
		d := it.CivilDate()
		if d != today && d != yesterday {
			continue
		}
		s, okS := it.StartMinutes()
		e, okE := it.StopMinutes()
		if !okS || !okE {
			continue
		}
		switch {
		case d == today && e >= s:
			if s <= nowMin && nowMin < e {
				out = append(out, it)
			}
		case d == today: // e < s: crosses into tomorrow, still within day one
			if nowMin >= s {
				out = append(out, it)
			}
		default: // yesterday-dated: only relevant past its midnight crossing
			if e < s && nowMin < e {
				out = append(out, it)
			}
		}
	}
	return out
}
