package app

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/pkg/errors"

	"github.com/klabast/wb-services/newsletter/internal/calendar"
)

// ICSOptions controls calendar export text
type ICSOptions struct {
	ProductID     string
	SummarySuffix string
	Description   string
	UIDDomain     string
	FilePrefix    string
	CalendarName  string
	Timezone      string
}

// Reminder is an optional alarm at a wall-clock time some days before an event
type Reminder struct {
	DaysBefore int
	Time       string // HH:MM
}

// ParseReminder reads ?reminderDays=&reminderTime=; ok is false when no reminder was asked for
func ParseReminder(r *http.Request) (Reminder, bool, error) {
	q := r.URL.Query()
	at := q.Get("reminderTime")
	if at == "" {
		return Reminder{}, false, nil
	}
	days := 0
	if s := q.Get("reminderDays"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 || n > 14 {
			return Reminder{}, false, errors.Errorf("invalid reminderDays %q", s)
		}
		days = n
	}
	if _, _, err := parseClock(at); err != nil {
		return Reminder{}, false, err
	}
	return Reminder{DaysBefore: days, Time: at}, true, nil
}

func parseClock(s string) (int, int, error) {
	h, m, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, errors.Errorf("invalid time %q", s)
	}
	hour, err1 := strconv.Atoi(h)
	minute, err2 := strconv.Atoi(m)
	if err1 != nil || err2 != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, errors.Errorf("invalid time %q", s)
	}
	return hour, minute, nil
}

// trigger is the alarm offset relative to the all-day event start at midnight
func (rem Reminder) trigger() string {
	hour, minute, _ := parseClock(rem.Time)
	offset := time.Duration(rem.DaysBefore)*24*time.Hour - time.Duration(hour)*time.Hour - time.Duration(minute)*time.Minute

	sign := "-"
	if offset < 0 {
		sign = ""
		offset = -offset
	}
	total := int(offset.Minutes())
	return fmt.Sprintf("%sP%dDT%dH%dM", sign, total/(24*60), (total%(24*60))/60, total%60)
}

func (o ICSOptions) uid(key string) string {
	return key + "@" + o.UIDDomain
}

func (o ICSOptions) addEntry(cal *ics.Calendar, e calendar.Entry, stamp time.Time) (*ics.VEvent, error) {
	day, err := calendar.ParseDate(e.Date)
	if err != nil {
		return nil, err
	}
	ev := cal.AddEvent(o.uid(e.Date + "-" + e.Type))
	ev.SetDtStampTime(stamp)
	ev.SetAllDayStartAt(day)
	ev.SetAllDayEndAt(day.AddDate(0, 0, 1))
	ev.SetSummary(e.EN + o.SummarySuffix)
	ev.SetDescription(o.Description)
	return ev, nil
}

// EventICS renders a single all-day event for one calendar entry
func EventICS(o ICSOptions, e calendar.Entry, rem *Reminder, stamp time.Time) (string, error) {
	cal := ics.NewCalendar()
	cal.SetProductId(o.ProductID)

	ev, err := o.addEntry(cal, e, stamp)
	if err != nil {
		return "", errors.Wrapf(err, "entry %s", e.Date)
	}
	if rem != nil {
		alarm := ev.AddAlarm()
		alarm.SetAction(ics.ActionDisplay)
		alarm.SetTrigger(rem.trigger())
		alarm.SetProperty(ics.ComponentPropertyDescription, e.EN+o.SummarySuffix)
	}
	return cal.Serialize(), nil
}

// SubscriptionICS renders every calendar entry and break as a feed.
// Feeds carry no alarms and ask clients to refresh hourly.
func SubscriptionICS(o ICSOptions, c *calendar.Calendar, stamp time.Time) (string, error) {
	cal := ics.NewCalendar()
	cal.SetProductId(o.ProductID)
	cal.SetMethod(ics.MethodPublish)
	if o.CalendarName != "" {
		cal.SetXWRCalName(o.CalendarName)
	}
	if o.Timezone != "" {
		cal.SetXWRTimezone(o.Timezone)
	}
	cal.SetXPublishedTTL("PT1H")

	for _, e := range c.SortedDates() {
		if _, err := o.addEntry(cal, e, stamp); err != nil {
			return "", errors.Wrapf(err, "entry %s", e.Date)
		}
	}
	for _, b := range c.Breaks {
		start, err := calendar.ParseDate(b.Start)
		if err != nil {
			return "", errors.Wrapf(err, "break %s", b.Start)
		}
		end, err := calendar.ParseDate(b.End)
		if err != nil {
			return "", errors.Wrapf(err, "break %s", b.Start)
		}
		ev := cal.AddEvent(o.uid(b.Start + "-break"))
		ev.SetDtStampTime(stamp)
		ev.SetAllDayStartAt(start)
		ev.SetAllDayEndAt(end.AddDate(0, 0, 1))
		ev.SetSummary("Break" + o.SummarySuffix)
		ev.SetDescription(o.Description)
	}
	return cal.Serialize(), nil
}

func writeICS(w http.ResponseWriter, body, filename string) error {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	if filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	}
	_, err := w.Write([]byte(body))
	return err
}
