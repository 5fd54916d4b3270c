package calendar

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ISOLayout is the date format used by every newsletter document
const ISOLayout = "2006-01-02"

// ParseDate parses YYYY-MM-DD into midnight UTC, which stands in for the local wall calendar
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(ISOLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "invalid date %q", s)
	}
	return t, nil
}

// FormatDate formats a date as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(ISOLayout)
}

// Day truncates an instant to its calendar day as seen in the instant's own location
func Day(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ShortDate formats a date as M/D
func ShortDate(t time.Time) string {
	return fmt.Sprintf("%d/%d", int(t.Month()), t.Day())
}

// DaysBetween returns the whole days from a to b (negative when b is earlier)
func DaysBetween(a, b time.Time) int {
	return int(math.Round(b.Sub(a).Hours() / 24))
}

// IsWeekday reports whether t falls Monday through Friday
func IsWeekday(t time.Time) bool {
	wd := t.Weekday()
	return wd >= time.Monday && wd <= time.Friday
}
