package calendar

import (
	"math"
	"time"

	"github.com/pkg/errors"
)

// UpcomingLimit is how many future calendar entries the dashboard lists
const UpcomingLimit = 3

// Dashboard holds the "at a glance" numbers for one displayed week
type Dashboard struct {
	ElapsedSchoolDays int     `json:"elapsedSchoolDays"`
	TotalSchoolDays   int     `json:"totalSchoolDays"`
	RemainingDays     int     `json:"remainingDays"`
	ProgressPercent   int     `json:"progressPercent"`
	WeekNumber        int     `json:"weekNumber"`
	TotalWeeks        int     `json:"totalWeeks"`
	Upcoming          []Entry `json:"upcoming"`
}

// Compute derives the dashboard for the week starting weekDate as seen at now.
// Week numbers count fixed 7-day windows from firstDay, not instructional weeks.
func Compute(cal *Calendar, weekDate, now time.Time) (Dashboard, error) {
	first, last, err := cal.Bounds()
	if err != nil {
		return Dashboard{}, err
	}
	closed, err := cal.NoSchoolDates()
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "no-school dates")
	}

	today := Day(now)
	effective := today
	if effective.After(last) {
		effective = last
	} else if effective.Before(first) {
		effective = first
	}

	total := CountSchoolDays(first, last, closed)
	elapsed := CountSchoolDays(first, effective, closed)

	d := Dashboard{
		ElapsedSchoolDays: elapsed,
		TotalSchoolDays:   total,
		RemainingDays:     max(0, total-elapsed),
		WeekNumber:        max(1, weeksSpanned(first, Day(weekDate))),
		TotalWeeks:        weeksSpanned(first, last),
		Upcoming:          upcoming(cal, today),
	}
	if total > 0 {
		d.ProgressPercent = min(100, int(math.Round(float64(elapsed)/float64(total)*100)))
	}
	return d, nil
}

// weeksSpanned is ceil((to - from + 7 days) / 7 days)
func weeksSpanned(from, to time.Time) int {
	days := DaysBetween(from, to)
	return int(math.Ceil(float64(days+7) / 7))
}

func upcoming(cal *Calendar, today time.Time) []Entry {
	out := make([]Entry, 0, UpcomingLimit)
	for _, e := range cal.SortedDates() {
		d, err := ParseDate(e.Date)
		if err != nil || !d.After(today) {
			continue
		}
		out = append(out, e)
		if len(out) == UpcomingLimit {
			break
		}
	}
	return out
}
