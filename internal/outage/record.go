// Package outage models the utility's planned-blackout records and owns
// everything between the bot and the upstream API: the HTTP gateway, the two
// TTL result caches, and the live-outage determination.
package outage

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Record is one outage entry as returned by the utility API. The upstream
// payload is loosely typed and uses alias field names for the date, start
// time, and address; accessors below resolve those. A Record is immutable
// once fetched.
type Record struct {
	Date     string `json:"outage_date,omitempty"`
	RegDate  string `json:"reg_date,omitempty"`
	Start    string `json:"outage_start_time,omitempty"`
	AltStart string `json:"outage_time,omitempty"`
	Stop     string `json:"outage_stop_time,omitempty"`
	Address  string `json:"outage_address,omitempty"`
	AltAddr  string `json:"address,omitempty"`
	Reason   string `json:"reason_outage,omitempty"`

	// Number is the source's native outage id. It arrives as a number or a
	// string depending on the endpoint, so it is normalized on decode.
	Number string `json:"outage_number,omitempty"`
}

// UnmarshalJSON tolerates numeric outage_number values.
func (r *Record) UnmarshalJSON(b []byte) error {
	type alias Record
	aux := struct {
		*alias
		Number json.RawMessage `json:"outage_number,omitempty"`
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if len(aux.Number) > 0 {
		var s string
		if err := json.Unmarshal(aux.Number, &s); err == nil {
			r.Number = s
		} else {
			var n json.Number
			if err := json.Unmarshal(aux.Number, &n); err == nil {
				r.Number = n.String()
			}
		}
	}
	return nil
}

// CivilDate returns the record's Jalali date, falling back to the
// registration date alias.
func (r Record) CivilDate() string {
	if r.Date != "" {
		return r.Date
	}
	return r.RegDate
}

// StartHHMM returns the start time, resolving the upstream alias.
func (r Record) StartHHMM() string {
	if r.Start != "" {
		return r.Start
	}
	return r.AltStart
}

// AddressText returns the outage address, resolving the upstream alias.
func (r Record) AddressText() string {
	if r.Address != "" {
		return r.Address
	}
	return r.AltAddr
}

// Identity returns a stable identity for dedup: the source's outage number
// when present, else a composite of date, times, and address.
func (r Record) Identity() string {
	if strings.TrimSpace(r.Number) != "" {
		return strings.TrimSpace(r.Number)
	}
	return fmt.Sprintf("%s-%s-%s-%s", r.CivilDate(), r.StartHHMM(), r.Stop, r.AddressText())
}

// StartMinutes returns the start time on the 0..1439 scale. ok is false when
// the field is missing or malformed; such records are excluded from window
// evaluation.
func (r Record) StartMinutes() (int, bool) { return HMToMinutes(r.StartHHMM()) }

// StopMinutes returns the stop time on the 0..1439 scale.
func (r Record) StopMinutes() (int, bool) { return HMToMinutes(r.Stop) }

// DurationMinutes returns the outage length in minutes. A stop numerically
// before the start denotes a midnight crossing, never invalid input.
func (r Record) DurationMinutes() int {
	s, okS := r.StartMinutes()
	e, okE := r.StopMinutes()
	if !okS || !okE {
		return 0
	}
	if e >= s {
		return e - s
	}
	return 24*60 - s + e
}

// HMToMinutes parses "HH:MM" into a minute of day. Hours up to 23 and
// minutes up to 59; anything else reports ok=false.
func HMToMinutes(hm string) (int, bool) {
	parts := strings.SplitN(strings.TrimSpace(hm), ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// FilterDate returns the records whose civil date equals date. The API may
// return future rows even for a single-day query, so day views and the alert
// engine always filter strictly.
func FilterDate(items []Record, date string) []Record {
	out := make([]Record, 0, len(items))
	for _, it := range items {
		if it.CivilDate() == date {
			out = append(out, it)
		}
	}
	return out
}
