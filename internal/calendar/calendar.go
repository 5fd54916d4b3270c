package calendar

import (
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/klabast/wb-services/newsletter/internal/i18n"
)

// Entry is a single named day on the school calendar (holiday, early release, ...)
type Entry struct {
	Date string `json:"date" validate:"required,isodate"`
	Type string `json:"type" validate:"required"`
	EN   string `json:"en"`
	ES   string `json:"es"`
}

// Name returns the entry name in l
func (e Entry) Name(l i18n.Lang) string {
	return l.Pick(e.EN, e.ES)
}

// Break is an inclusive range of closed days
type Break struct {
	Start string `json:"start" validate:"required,isodate"`
	End   string `json:"end" validate:"required,isodate"`
}

// Calendar is the school year loaded from calendar.json
type Calendar struct {
	FirstDay   string                          `json:"firstDay" validate:"required,isodate"`
	LastDay    string                          `json:"lastDay" validate:"required,isodate"`
	Dates      []Entry                         `json:"dates" validate:"dive"`
	Breaks     []Break                         `json:"breaks,omitempty" validate:"dive"`
	TypeLabels map[i18n.Lang]map[string]string `json:"typeLabels"`
}

// Bounds returns the parsed first and last instructional days
func (c *Calendar) Bounds() (time.Time, time.Time, error) {
	first, err := ParseDate(c.FirstDay)
	if err != nil {
		return time.Time{}, time.Time{}, errors.Wrap(err, "firstDay")
	}
	last, err := ParseDate(c.LastDay)
	if err != nil {
		return time.Time{}, time.Time{}, errors.Wrap(err, "lastDay")
	}
	if last.Before(first) {
		return time.Time{}, time.Time{}, errors.Errorf("lastDay %s is before firstDay %s", c.LastDay, c.FirstDay)
	}
	return first, last, nil
}

// NoSchoolSet holds ISO dates without instruction
type NoSchoolSet map[string]struct{}

// Contains reports whether t is a closed day
func (s NoSchoolSet) Contains(t time.Time) bool {
	_, ok := s[FormatDate(t)]
	return ok
}

// NoSchoolDates unions every single-day entry with every day of every break
func (c *Calendar) NoSchoolDates() (NoSchoolSet, error) {
	set := make(NoSchoolSet, len(c.Dates))
	for _, d := range c.Dates {
		set[d.Date] = struct{}{}
	}
	for _, br := range c.Breaks {
		start, err := ParseDate(br.Start)
		if err != nil {
			return nil, errors.Wrap(err, "break start")
		}
		end, err := ParseDate(br.End)
		if err != nil {
			return nil, errors.Wrap(err, "break end")
		}
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			set[FormatDate(d)] = struct{}{}
		}
	}
	return set, nil
}

// IsSchoolDay reports whether t is an instructional day
func IsSchoolDay(t time.Time, closed NoSchoolSet) bool {
	return IsWeekday(t) && !closed.Contains(t)
}

// CountSchoolDays counts instructional days in [start, end]; start after end yields 0
func CountSchoolDays(start, end time.Time, closed NoSchoolSet) int {
	count := 0
	for d := Day(start); !d.After(end); d = d.AddDate(0, 0, 1) {
		if IsSchoolDay(d, closed) {
			count++
		}
	}
	return count
}

// TypeLabel returns the display name of an entry type, or the raw type
func (c *Calendar) TypeLabel(l i18n.Lang, typ string) string {
	if label, ok := c.TypeLabels[l][typ]; ok && label != "" {
		return label
	}
	return typ
}

// Entry finds the calendar entry on date
func (c *Calendar) Entry(date string) (Entry, bool) {
	for _, e := range c.Dates {
		if e.Date == date {
			return e, true
		}
	}
	return Entry{}, false
}

// SortedDates returns a copy of the entries in date order
func (c *Calendar) SortedDates() []Entry {
	out := make([]Entry, len(c.Dates))
	copy(out, c.Dates)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date < out[j].Date
	})
	return out
}
