package util

import (
	"fmt"
	"time"
)

const (
	// DateFormat is the ISO calendar date format used for service dates.
	DateFormat = "2006-01-02"

	// TimeOfDayFormat is the local time-of-day format used for service windows.
	TimeOfDayFormat = "15:04"

	// DateTimeFormat is the standard datetime format for plan records.
	DateTimeFormat = "2006-01-02 15:04"
)

// FormatDate formats a time as a date string.
func FormatDate(t time.Time) string {
	return t.Format(DateFormat)
}

// ParseDate parses a YYYY-MM-DD date into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateFormat, s)
}

// MustParseDate parses a date and panics on error. Intended for tests and
// static tables only.
func MustParseDate(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

// FormatTimeOfDay formats the clock portion of t as HH:MM.
func FormatTimeOfDay(t time.Time) string {
	return t.Format(TimeOfDayFormat)
}

// FormatDateTime formats a time as a datetime string.
func FormatDateTime(t time.Time) string {
	return t.Format(DateTimeFormat)
}

// ParseTimeOfDay parses an HH:MM string into minutes after midnight.
func ParseTimeOfDay(s string) (int, error) {
	t, err := time.Parse(TimeOfDayFormat, s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// AtTimeOfDay returns the instant on date's calendar day at the given HH:MM.
func AtTimeOfDay(date time.Time, hhmm string) (time.Time, error) {
	minutes, err := ParseTimeOfDay(hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return StartOfDay(date).Add(time.Duration(minutes) * time.Minute), nil
}

// StartOfDay returns midnight of the given day in UTC.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the signed number of calendar days from -> to.
// Both arguments are reduced to their calendar date first, so clock time and
// DST never produce off-by-one results.
func DaysBetween(from, to time.Time) int {
	return int(StartOfDay(to).Sub(StartOfDay(from)).Hours() / 24)
}

// AddDays returns the calendar date n days after t.
func AddDays(t time.Time, n int) time.Time {
	return StartOfDay(t).AddDate(0, 0, n)
}

// IsSameDay checks if two times are on the same calendar day.
func IsSameDay(t1, t2 time.Time) bool {
	y1, m1, d1 := t1.Date()
	y2, m2, d2 := t2.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// DateRange returns n consecutive calendar dates starting at from.
func DateRange(from time.Time, n int) []time.Time {
	dates := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		dates = append(dates, AddDays(from, i))
	}
	return dates
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
