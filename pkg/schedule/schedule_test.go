package schedule

import (
	"testing"
	"time"
)

func at(hour, minute int) time.Time {
	return time.Date(2024, 3, 10, hour, minute, 0, 0, time.Local)
}

func TestTimeRangeContains(t *testing.T) {
	daytime, err := ParseTimeRange("09:00-18:00")
	if err != nil {
		t.Fatalf("parse daytime: %v", err)
	}
	overnight, err := ParseTimeRange("23:00-02:00")
	if err != nil {
		t.Fatalf("parse overnight: %v", err)
	}

	cases := []struct {
		name  string
		r     TimeRange
		when  time.Time
		allow bool
	}{
		{"start inclusive", daytime, at(9, 0), true},
		{"inside", daytime, at(12, 30), true},
		{"end exclusive", daytime, at(18, 0), false},
		{"before", daytime, at(8, 59), false},
		{"overnight late", overnight, at(23, 30), true},
		{"overnight early", overnight, at(1, 59), true},
		{"overnight end", overnight, at(2, 0), false},
		{"overnight gap", overnight, at(12, 0), false},
		{"zero always", TimeRange{}, at(4, 0), true},
	}
	for _, tc := range cases {
		if got := tc.r.Contains(tc.when); got != tc.allow {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.allow, got)
		}
	}
	if !overnight.OverMidnight() || daytime.OverMidnight() {
		t.Fatalf("unexpected over-midnight classification")
	}
}

func TestParseTimeRangeRejectsInvalid(t *testing.T) {
	for _, value := range []string{"10:00-10:00", "25:00-01:00", "09:00", "nine-ten"} {
		if _, err := ParseTimeRange(value); err == nil {
			t.Fatalf("expected %q to be rejected", value)
		}
	}
	r, err := ParseTimeRange("  ")
	if err != nil || !r.IsZero() {
		t.Fatalf("expected blank input to yield the zero range, got %v (%v)", r, err)
	}
}

func TestTimeRangeUntil(t *testing.T) {
	r, err := ParseTimeRange("22:30-06:00")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if wait := r.Until(at(21, 0)); wait != 90*time.Minute {
		t.Fatalf("expected 90m wait, got %s", wait)
	}
	if wait := r.Until(at(23, 0)); wait != 0 {
		t.Fatalf("expected no wait inside the window, got %s", wait)
	}
	if r.String() != "22:30-06:00" {
		t.Fatalf("unexpected string form %q", r.String())
	}
}
