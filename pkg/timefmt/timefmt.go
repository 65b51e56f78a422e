// Package timefmt handles the clinic's human time formats: 12-hour display
// strings, 24-hour input forms, calendar dates, and interval arithmetic on
// minutes since midnight. All "today" and "future" determinations use the
// clinic's fixed operating timezone.
package timefmt

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout   = "2006-01-02"
	Layout12Hour = "03:04 PM"
	Layout24Hour = "15:04"
)

// OperatingZone is the single timezone used for every calendar-day and
// future-instant check. The clinic operates in UTC+7.
var OperatingZone = time.FixedZone("UTC+7", 7*60*60)

// ErrFormat reports an input that matches neither the 12-hour nor the
// 24-hour time layout, or a malformed date.
var ErrFormat = errors.New("timefmt: unrecognized time format")

// To24h parses a 12-hour clock string ("09:30 AM") into hour and minute.
func To24h(s string) (hour, minute int, err error) {
	t, err := time.Parse(Layout12Hour, strings.ToUpper(strings.TrimSpace(s)))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrFormat, s)
	}
	return t.Hour(), t.Minute(), nil
}

// To12h renders hour and minute as the canonical zero-padded 12-hour form,
// e.g. (14, 5) -> "02:05 PM".
func To12h(hour, minute int) (string, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return "", fmt.Errorf("%w: %02d:%02d", ErrFormat, hour, minute)
	}
	t := time.Date(2000, 1, 1, hour, minute, 0, 0, time.UTC)
	return t.Format(Layout12Hour), nil
}

// Normalize accepts a time-of-day in either 12-hour or 24-hour form and
// returns the canonical 12-hour representation used for storage and display.
func Normalize(s string) (string, error) {
	h, m, err := parseEither(s)
	if err != nil {
		return "", err
	}
	return To12h(h, m)
}

// ToMinutes converts a time-of-day in either form to minutes since
// midnight. Used for comparisons only, never persisted.
func ToMinutes(s string) (int, error) {
	h, m, err := parseEither(s)
	if err != nil {
		return 0, err
	}
	return h*60 + m, nil
}

func parseEither(s string) (hour, minute int, err error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(Layout12Hour, strings.ToUpper(s)); err == nil {
		return t.Hour(), t.Minute(), nil
	}
	if t, err := time.Parse(Layout24Hour, s); err == nil {
		return t.Hour(), t.Minute(), nil
	}
	return 0, 0, fmt.Errorf("%w: %q", ErrFormat, s)
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Back-to-back intervals do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

// Instant combines a calendar date and a time-of-day into an absolute
// instant in the operating timezone.
func Instant(date, timeOfDay string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, date, OperatingZone)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrFormat, date)
	}
	mins, err := ToMinutes(timeOfDay)
	if err != nil {
		return time.Time{}, err
	}
	return d.Add(time.Duration(mins) * time.Minute), nil
}

// IsStrictlyFuture reports whether date+startTime lies after now in the
// operating timezone. Used for same-day slot validation.
func IsStrictlyFuture(date, startTime string, now time.Time) (bool, error) {
	at, err := Instant(date, startTime)
	if err != nil {
		return false, err
	}
	return at.After(now), nil
}

// Today returns now's calendar date in the operating timezone.
func Today(now time.Time) string {
	return now.In(OperatingZone).Format(DateLayout)
}

// BeforeToday reports whether date falls on an earlier calendar day than
// now, compared day-to-day in the operating timezone.
func BeforeToday(date string, now time.Time) (bool, error) {
	d, err := time.ParseInLocation(DateLayout, date, OperatingZone)
	if err != nil {
		return false, fmt.Errorf("%w: %q", ErrFormat, date)
	}
	today, _ := time.ParseInLocation(DateLayout, Today(now), OperatingZone)
	return d.Before(today), nil
}
