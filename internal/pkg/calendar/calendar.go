package calendar

import (
	"fmt"
	"strings"
	"time"
)

const (
	// ISOLayout is used for every range boundary crossing the engine's edges.
	ISOLayout = "2006-01-02"
	// NativeLayout is the report format of the time-tracking application.
	NativeLayout = "02/01/2006"
	// CompactLayout is used inside report range tokens.
	CompactLayout = "20060102"
)

var parseLayouts = []string{ISOLayout, "2/1/2006", "2006-01-02T15:04:05", time.RFC3339}

// Day returns the UTC calendar date of the instant t, at midnight UTC.
func Day(t time.Time) time.Time {
	return dateOf(t.UTC())
}

// dateOf keeps the date components of t as written, whatever its location.
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Today returns the current UTC calendar date.
func Today() time.Time {
	return Day(time.Now())
}

// IsWorkday reports whether d is Monday through Friday. No holiday calendar is applied.
func IsWorkday(d time.Time) bool {
	wd := d.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// LastWorkdays returns the n workdays before today, newest first.
func LastWorkdays(n int) []time.Time {
	return LastWorkdaysFrom(time.Now(), n)
}

// LastWorkdaysFrom walks backward from the day before ref and collects n workdays, newest first.
func LastWorkdaysFrom(ref time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	days := make([]time.Time, 0, n)
	current := Day(ref).AddDate(0, 0, -1)
	for len(days) < n {
		if IsWorkday(current) {
			days = append(days, current)
		}
		current = current.AddDate(0, 0, -1)
	}
	return days
}

// LastWorkdaysRange returns the oldest and most recent of the last n workdays.
func LastWorkdaysRange(n int) (time.Time, time.Time) {
	return LastWorkdaysRangeFrom(time.Now(), n)
}

// LastWorkdaysRangeFrom is LastWorkdaysRange relative to ref.
func LastWorkdaysRangeFrom(ref time.Time, n int) (time.Time, time.Time) {
	days := LastWorkdaysFrom(ref, n)
	if len(days) == 0 {
		yesterday := Day(ref).AddDate(0, 0, -1)
		return yesterday, yesterday
	}
	return days[len(days)-1], days[0]
}

// FormatISO formats d as YYYY-MM-DD.
func FormatISO(d time.Time) string {
	return d.Format(ISOLayout)
}

// FormatNative formats d as DD/MM/YYYY.
func FormatNative(d time.Time) string {
	return d.Format(NativeLayout)
}

// FormatCompact formats d as YYYYMMDD.
func FormatCompact(d time.Time) string {
	return d.Format(CompactLayout)
}

// ParseISO parses a YYYY-MM-DD string into a calendar date.
func ParseISO(s string) (time.Time, error) {
	t, err := time.Parse(ISOLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// ParseDay accepts ISO dates (optionally with a time part) and DD/MM/YYYY dates.
// Anything after the first whitespace, such as a weekday name, is ignored.
func ParseDay(s string) (time.Time, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return time.Time{}, fmt.Errorf("empty date")
	}
	token := fields[0]
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, token); err == nil {
			return dateOf(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// Days lists every calendar day from from to to inclusive, ascending.
func Days(from, to time.Time) []time.Time {
	from, to = Day(from), Day(to)
	if to.Before(from) {
		return nil
	}
	days := make([]time.Time, 0, int(to.Sub(from).Hours()/24)+1)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// BusinessDaysBetween walks backward from today one calendar day at a time and counts the
// workdays passed before reaching last. The result counts workdays in (last, today].
func BusinessDaysBetween(last, today time.Time) int {
	last, current := Day(last), Day(today)
	count := 0
	for current.After(last) {
		if IsWorkday(current) {
			count++
		}
		current = current.AddDate(0, 0, -1)
	}
	return count
}
