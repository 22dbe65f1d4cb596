// Package calendar normalizes instants to civil days in the planner's fixed time zone.
package calendar

import (
	"fmt"
	"time"
)

// Zone is the civil zone every task instant is interpreted in (UTC+9, no DST).
var Zone = time.FixedZone("KST", 9*60*60)

// DateLayout is the YYYY-MM-DD layout used by commands and tools.
const DateLayout = "2006-01-02"

// DateOnly returns the start of t's day in Zone.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.In(Zone).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, Zone)
}

// NextDay returns the start of the day after t's day.
func NextDay(t time.Time) time.Time {
	return DateOnly(t).AddDate(0, 0, 1)
}

// SameDay reports whether a and b fall on the same civil day.
func SameDay(a, b time.Time) bool {
	return DateOnly(a).Equal(DateOnly(b))
}

// Weekday returns t's weekday in Zone (0 = Sunday).
func Weekday(t time.Time) int {
	return int(t.In(Zone).Weekday())
}

// Now returns the current instant expressed in Zone.
func Now() time.Time {
	return time.Now().In(Zone)
}

// ParseDate parses a YYYY-MM-DD string as the start of that day in Zone.
func ParseDate(raw string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, raw, Zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return t, nil
}

// ParseInstant accepts RFC 3339 timestamps, zone-less timestamps and bare dates.
// Zone-less values are read as civil time in Zone.
func ParseInstant(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.In(Zone), nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04", DateLayout} {
		if t, err := time.ParseInLocation(layout, raw, Zone); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", raw)
}

// FormatDate renders t's civil day as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.In(Zone).Format(DateLayout)
}
