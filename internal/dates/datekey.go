package dates

import (
	"errors"
	"fmt"
	"time"
)

// DateKey identifies a calendar day as a "YYYY-MM-DD" string. Month and day
// are zero-padded, so byte-wise comparison of two DateKeys matches their
// chronological order. A DateKey carries no timezone or time-of-day
// information; both are resolved once, at construction.
type DateKey string

// Layout is the reference layout for a DateKey.
const Layout = "2006-01-02"

var (
	// ErrMalformedDateKey indicates a string that does not parse as YYYY-MM-DD.
	ErrMalformedDateKey = errors.New("malformed date key")
	// ErrInvalidTimeZone indicates an unrecognized IANA timezone name.
	ErrInvalidTimeZone = errors.New("invalid time zone")
)

// ToDateKey converts a Unix millisecond instant to the calendar day it falls
// on in the given IANA timezone. graceMinutes is subtracted from the instant
// before the timezone projection, so a grace period of 180 attributes events
// between midnight and 3:00 AM local time to the previous day. The offset
// must be applied pre-projection: shifting after projection gives different
// answers near DST transitions.
func ToDateKey(instantMs int64, timeZone string, graceMinutes int) (DateKey, error) {
	loc, err := time.LoadLocation(timeZone)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidTimeZone, timeZone)
	}
	shifted := time.UnixMilli(instantMs - int64(graceMinutes)*60_000).In(loc)
	y, m, d := shifted.Date()
	return New(y, int(m), d), nil
}

// New builds a DateKey from year/month/day components. Out-of-range
// components are not rejected; they carry through calendar normalization, so
// New(2024, 2, 31) yields "2024-03-02". In-range components round-trip
// exactly through Parse.
func New(year, month, day int) DateKey {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return DateKey(t.Format(Layout))
}

// Parse splits a DateKey into year, month and day. It returns
// ErrMalformedDateKey when the string does not have the YYYY-MM-DD shape or a
// component is outside its nominal range (month 1-12, day 1-31). Day is
// deliberately not checked against the month's length: keys like 2024-02-31
// parse, and normalize downstream in the calendar arithmetic.
func Parse(key DateKey) (year, month, day int, err error) {
	s := string(key)
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrMalformedDateKey, s)
	}
	year, ok1 := atoi(s[0:4])
	month, ok2 := atoi(s[5:7])
	day, ok3 := atoi(s[8:10])
	if !ok1 || !ok2 || !ok3 {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrMalformedDateKey, s)
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrMalformedDateKey, s)
	}
	return year, month, day, nil
}

// atoi parses an all-digit decimal string.
func atoi(s string) (int, bool) {
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// DayOfWeek returns the day of week for key, 0=Sunday through 6=Saturday.
func DayOfWeek(key DateKey) (int, error) {
	t, err := midnightUTC(key)
	if err != nil {
		return 0, err
	}
	return int(t.Weekday()), nil
}

// AddDays returns the DateKey n days after key. n may be negative. Month and
// year boundaries carry per the Gregorian calendar, leap years included.
func AddDays(key DateKey, n int) (DateKey, error) {
	y, m, d, err := Parse(key)
	if err != nil {
		return "", err
	}
	return New(y, m, d+n), nil
}

// SubDays returns the DateKey n days before key.
func SubDays(key DateKey, n int) (DateKey, error) {
	return AddDays(key, -n)
}

// DaysBetween returns the signed number of calendar days from start to end.
// The difference is taken between local midnights rather than raw
// milliseconds, so it is exact across DST transitions and zero iff the keys
// are equal.
func DaysBetween(start, end DateKey) (int, error) {
	s, err := midnightUTC(start)
	if err != nil {
		return 0, err
	}
	e, err := midnightUTC(end)
	if err != nil {
		return 0, err
	}
	return int(e.Sub(s) / (24 * time.Hour)), nil
}

// Range returns every DateKey from start through end inclusive, ascending.
// When start falls after end (by normalized calendar day) the result is
// empty. The sequence is fully materialized; intended inputs are bounded to
// a couple of years.
func Range(start, end DateKey) ([]DateKey, error) {
	if _, _, _, err := Parse(start); err != nil {
		return nil, err
	}
	if _, _, _, err := Parse(end); err != nil {
		return nil, err
	}
	// Compare the normalized spans, not the raw strings: a denormalized
	// start key (e.g. day 31 in February) can sort before end yet land
	// after it once the overflow carries.
	n, err := DaysBetween(start, end)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return []DateKey{}, nil
	}
	y, m, d, _ := Parse(start)
	keys := make([]DateKey, 0, n+1)
	for i := 0; i <= n; i++ {
		keys = append(keys, New(y, m, d+i))
	}
	return keys, nil
}

// midnightUTC anchors key at 00:00 UTC, normalizing any day-of-month
// overflow the same way New does.
func midnightUTC(key DateKey) (time.Time, error) {
	y, m, d, err := Parse(key)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC), nil
}
