package vip

import (
	"strings"
	"time"
)

// Unit is a grant duration unit. The set is deliberately small and strict:
// an unrecognized unit is an error, never a silent fallback.
type Unit string

const (
	UnitMonth  Unit = "MONTH"
	UnitMinute Unit = "MINUTE"
)

// ParseUnit returns the canonical Unit for s (case-insensitive).
func ParseUnit(s string) (Unit, error) {
	switch Unit(strings.ToUpper(strings.TrimSpace(s))) {
	case UnitMonth:
		return UnitMonth, nil
	case UnitMinute:
		return UnitMinute, nil
	default:
		return "", ErrInvalidUnit
	}
}

// AddDuration advances t by n units. Months use calendar arithmetic: the
// month field advances and the day is clamped to the last valid day of the
// target month, so Jan 31 + 1 month = Feb 29 in a leap year (not Mar 2,
// which is what time.AddDate's normalization would produce).
func AddDuration(t time.Time, n int, u Unit) (time.Time, error) {
	if n <= 0 {
		return time.Time{}, ErrInvalidDuration
	}
	switch u {
	case UnitMinute:
		return t.Add(time.Duration(n) * time.Minute), nil
	case UnitMonth:
		return addMonthsClamped(t, n), nil
	default:
		return time.Time{}, ErrInvalidUnit
	}
}

func addMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	// Anchor on day 1 so advancing the month can never roll over.
	anchor := time.Date(y, m, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location()).AddDate(0, n, 0)
	ty, tm, _ := anchor.Date()
	if last := lastDayOfMonth(ty, tm, t.Location()); d > last {
		d = last
	}
	return time.Date(ty, tm, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// lastDayOfMonth returns the number of days in the given month.
func lastDayOfMonth(y int, m time.Month, loc *time.Location) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, loc).Day()
}
