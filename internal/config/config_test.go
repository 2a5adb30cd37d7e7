package config

import (
	"testing"
	"time"
)

func TestParseDurationField(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{"", 0, false},
		{"  ", 0, false},
		{"45s", 45 * time.Second, false},
		{"2m", 2 * time.Minute, false},
		{"-5s", 0, true},
		{"bogus", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseDurationField("x.y", tc.raw)
		if (err != nil) != tc.wantErr {
			t.Fatalf("ParseDurationField(%q) err = %v, wantErr %v", tc.raw, err, tc.wantErr)
		}
		if err == nil && got != tc.want {
			t.Fatalf("ParseDurationField(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()

	if got, err := ParseDurationOrDefault("x", "", time.Hour); err != nil || got != time.Hour {
		t.Fatalf("empty: got %v, %v", got, err)
	}
	if got, err := ParseDurationOrDefault("x", "30s", time.Hour); err != nil || got != 30*time.Second {
		t.Fatalf("explicit: got %v, %v", got, err)
	}
	if _, err := ParseDurationOrDefault("x", "nope", time.Hour); err == nil {
		t.Fatal("want error for invalid duration")
	}
}

func TestSummarizeConfigChangeSections(t *testing.T) {
	t.Parallel()

	oldCfg := &Config{}
	oldCfg.Telegram.PollTimeout = "10s"

	newCfg := &Config{}
	newCfg.Gateway.JWT = "secret-b"
	newCfg.Telegram.PollTimeout = "20s"
	newCfg.Logging.Level = "debug"

	sections, _ := SummarizeConfigChange(oldCfg, newCfg)
	want := map[string]bool{"gateway": true, "telegram": true, "logging": true}
	if len(sections) != len(want) {
		t.Fatalf("sections = %v, want keys %v", sections, want)
	}
	for _, s := range sections {
		if !want[s] {
			t.Fatalf("unexpected section %q in %v", s, sections)
		}
	}

	// identical configs yield no sections
	same, _ := SummarizeConfigChange(newCfg, newCfg)
	if len(same) != 0 {
		t.Fatalf("no-change diff = %v, want empty", same)
	}
}
