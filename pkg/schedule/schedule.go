// Package schedule restricts when playback may run to a daily time-of-day window.
package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const day = 24 * time.Hour

// TimeRange is a daily window measured from local midnight. Start is
// inclusive, End exclusive. End before Start wraps over midnight. The zero
// value allows every time of day.
type TimeRange struct {
	Start time.Duration
	End   time.Duration
}

// NewTimeRange validates a window given as offsets from midnight.
func NewTimeRange(start, end time.Duration) (TimeRange, error) {
	if start < 0 || start >= day || end < 0 || end >= day {
		return TimeRange{}, fmt.Errorf("time range %s-%s: offsets must fall within one day", clockString(start), clockString(end))
	}
	if start == end {
		return TimeRange{}, fmt.Errorf("time range %s-%s: start and end must differ", clockString(start), clockString(end))
	}
	return TimeRange{Start: start, End: end}, nil
}

// ParseTimeRange parses "HH:MM-HH:MM" (seconds optional). An empty string
// yields the always-open zero range.
func ParseTimeRange(value string) (TimeRange, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" || strings.EqualFold(trimmed, "always") {
		return TimeRange{}, nil
	}
	startText, endText, ok := strings.Cut(trimmed, "-")
	if !ok {
		return TimeRange{}, fmt.Errorf("time range %q: expected START-END", value)
	}
	start, err := parseClock(startText)
	if err != nil {
		return TimeRange{}, fmt.Errorf("time range %q: %w", value, err)
	}
	end, err := parseClock(endText)
	if err != nil {
		return TimeRange{}, fmt.Errorf("time range %q: %w", value, err)
	}
	return NewTimeRange(start, end)
}

func parseClock(text string) (time.Duration, error) {
	text = strings.TrimSpace(text)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if parsed, err := time.Parse(layout, text); err == nil {
			return time.Duration(parsed.Hour())*time.Hour +
				time.Duration(parsed.Minute())*time.Minute +
				time.Duration(parsed.Second())*time.Second, nil
		}
	}
	return 0, errors.New("invalid time of day " + text)
}

// IsZero reports whether the range is the always-open zero value.
func (r TimeRange) IsZero() bool {
	return r.Start == 0 && r.End == 0
}

// OverMidnight reports whether the window wraps past midnight.
func (r TimeRange) OverMidnight() bool {
	return r.End < r.Start
}

// Contains reports whether the time of day of t falls inside the window.
func (r TimeRange) Contains(t time.Time) bool {
	if r.IsZero() {
		return true
	}
	now := sinceMidnight(t)
	if r.OverMidnight() {
		return now >= r.Start || now < r.End
	}
	return now >= r.Start && now < r.End
}

// Until returns how long from t until the window next opens; zero when t is
// already inside it.
func (r TimeRange) Until(t time.Time) time.Duration {
	if r.Contains(t) {
		return 0
	}
	wait := r.Start - sinceMidnight(t)
	if wait < 0 {
		wait += day
	}
	return wait
}

func (r TimeRange) String() string {
	if r.IsZero() {
		return "always"
	}
	return clockString(r.Start) + "-" + clockString(r.End)
}

func sinceMidnight(t time.Time) time.Duration {
	hour, minute, second := t.Clock()
	return time.Duration(hour)*time.Hour +
		time.Duration(minute)*time.Minute +
		time.Duration(second)*time.Second +
		time.Duration(t.Nanosecond())
}

func clockString(d time.Duration) string {
	d = d.Truncate(time.Second)
	hours := int(d / time.Hour)
	minutes := int(d % time.Hour / time.Minute)
	seconds := int(d % time.Minute / time.Second)
	if seconds != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", hours, minutes)
}
