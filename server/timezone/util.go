// Package timezone provides calendar-date helpers for the streak tracker.
//
// Streaks are date-based, not duration-based: activity at 23:59 and again at
// 00:01 is a one-day gap. All comparisons therefore happen on "2006-01-02"
// strings computed in one configured location.
package timezone

import (
	"fmt"
	"time"
)

// DateLayout is the storage format of calendar dates.
const DateLayout = "2006-01-02"

// ParseTimezone parses an IANA timezone identifier (e.g., "Europe/Oslo").
// "Local" maps to the process zone and "" or "UTC" to UTC.
// If the timezone is invalid, returns UTC and an error.
func ParseTimezone(tz string) (*time.Location, error) {
	switch tz {
	case "", "UTC":
		return time.UTC, nil
	case "Local":
		return time.Local, nil
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	return loc, nil
}

// CalendarDate returns the date of t as seen in tz.
func CalendarDate(t time.Time, tz *time.Location) string {
	if tz == nil {
		tz = time.UTC
	}
	return t.In(tz).Format(DateLayout)
}

// DaysBetween returns the number of calendar days from "from" to "to".
// The result is negative when "to" is earlier.
func DaysBetween(from, to string) (int, error) {
	fromDate, err := time.Parse(DateLayout, from)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q: %w", from, err)
	}
	toDate, err := time.Parse(DateLayout, to)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q: %w", to, err)
	}
	// Both are UTC midnights, so the difference is an exact multiple of 24h.
	return int(toDate.Sub(fromDate).Hours() / 24), nil
}
