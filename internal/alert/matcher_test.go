package alert

import "testing"

func TestDueWindow(t *testing.T) {
	t.Parallel()
	// Outage at 07:00, one-hour lead: due exactly during [06:00, 06:02).
	const start = 7 * 60
	cases := []struct {
		now  int
		want bool
	}{
		{5*60 + 59, false},
		{6 * 60, true},
		{6*60 + 1, true},
		{6*60 + 2, false},
	}
	for _, tc := range cases {
		if got := Due(tc.now, start, 60, false); got != tc.want {
			t.Errorf("Due(now=%d) = %v, want %v", tc.now, got, tc.want)
		}
	}
}

func TestDueTomorrowWraparound(t *testing.T) {
	t.Parallel()
	// Outage tomorrow at 00:05, ten-minute lead: due instant is 23:55.
	const start = 5
	if !Due(1435, start, 10, true) {
		t.Error("not due at 23:55")
	}
	if Due(1434, start, 10, true) {
		t.Error("due before the window")
	}
	if Due(1437, start, 10, true) {
		t.Error("due after the window")
	}
	// Same start today cannot get a full ten-minute lead.
	if Due(1435, start, 10, false) {
		t.Error("today-dated early start fired")
	}
	// Tomorrow-dated starts at or past the offset never fire today.
	if Due(1435, 10, 10, true) {
		t.Error("tomorrow start outside the lead fired")
	}
}

func TestKindLeadMinutes(t *testing.T) {
	t.Parallel()
	if KindHour.LeadMinutes() != 60 || KindTenMin.LeadMinutes() != 10 || KindDigest.LeadMinutes() != 0 {
		t.Errorf("lead table: 1h=%d 10m=%d 1201=%d",
			KindHour.LeadMinutes(), KindTenMin.LeadMinutes(), KindDigest.LeadMinutes())
	}
}
