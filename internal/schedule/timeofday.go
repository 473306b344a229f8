package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time expressed as minutes since midnight.
// It is the single canonical representation; 12-hour and 24-hour strings
// are converted at the boundary.
type TimeOfDay int

var (
	re24Hour = regexp.MustCompile(`^([01]?\d|2[0-3]):([0-5]\d)$`)
	re12Hour = regexp.MustCompile(`(?i)^(0?[1-9]|1[0-2]):([0-5]\d)\s*(AM|PM)$`)
)

// ParseTime24 parses "HH:MM" in 24-hour form.
func ParseTime24(s string) (TimeOfDay, error) {
	m := re24Hour.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("invalid 24-hour time %q", s)
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	return TimeOfDay(h*60 + min), nil
}

// ParseTime12 parses "H:MM AM/PM" (case-insensitive).
// 12 AM maps to hour 0, 12 PM stays 12, other PM hours gain 12.
func ParseTime12(s string) (TimeOfDay, error) {
	m := re12Hour.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("invalid 12-hour time %q", s)
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])

	pm := strings.EqualFold(m[3], "PM")
	switch {
	case h == 12 && !pm:
		h = 0
	case h != 12 && pm:
		h += 12
	}
	return TimeOfDay(h*60 + min), nil
}

// ParseTimeAny accepts either representation.
func ParseTimeAny(s string) (TimeOfDay, error) {
	if t, err := ParseTime12(s); err == nil {
		return t, nil
	}
	if t, err := ParseTime24(s); err == nil {
		return t, nil
	}
	return 0, fmt.Errorf("invalid time of day %q", s)
}

// String renders the canonical 24-hour "HH:MM" form.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Format12 renders the display "HH:MM AM/PM" form, the exact inverse of
// ParseTime12.
func (t TimeOfDay) Format12() string {
	h := int(t) / 60
	min := int(t) % 60

	period := "AM"
	switch {
	case h == 0:
		h = 12
	case h == 12:
		period = "PM"
	case h > 12:
		h -= 12
		period = "PM"
	}
	return fmt.Sprintf("%02d:%02d %s", h, min, period)
}

// Minutes returns the raw minutes-since-midnight value.
func (t TimeOfDay) Minutes() int { return int(t) }

// DistanceTo returns the absolute gap between two times in minutes.
func (t TimeOfDay) DistanceTo(other TimeOfDay) int {
	d := int(t) - int(other)
	if d < 0 {
		d = -d
	}
	return d
}

// At combines a calendar date with this time of day into a single instant
// in the given location.
func (t TimeOfDay) At(date time.Time, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), int(t)/60, int(t)%60, 0, 0, loc)
}
