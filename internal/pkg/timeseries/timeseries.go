package timeseries

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/hours-watch/internal/domain/tracker"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/calendar"
	"github.com/shopspring/decimal"
)

var sixty = decimal.NewFromInt(60)

// Summary holds the figures reported next to a normalized series.
type Summary struct {
	TotalMinutes           int
	Total                  string
	TotalHours             float64
	AverageHoursPerWorkday float64
	UnderTarget            bool
	LastActive             *time.Time
}

// Lookup folds a raw breakdown into date -> minutes. Dates may carry a trailing weekday
// name; only the leading token is used. Duplicate dates are summed and unparseable ones dropped.
func Lookup(days []tracker.DayDuration) map[time.Time]int {
	byDay := make(map[time.Time]int, len(days))
	for _, d := range days {
		day, err := calendar.ParseDay(d.Date)
		if err != nil {
			continue
		}
		byDay[day] += d.Minutes
	}
	return byDay
}

// Normalize returns exactly one entry per calendar day of window, ascending, with zero hours
// for days the raw breakdown does not mention.
func Normalize(days []tracker.DayDuration, window tracker.DateWindow) []tracker.DailyHours {
	byDay := Lookup(days)
	span := calendar.Days(window.From, window.To)
	series := make([]tracker.DailyHours, 0, len(span))
	for _, day := range span {
		series = append(series, tracker.DailyHours{
			Date:  calendar.FormatNative(day),
			Hours: MinutesToHours(byDay[day]),
		})
	}
	return series
}

// MinutesToHours converts minutes to decimal hours rounded to two places.
func MinutesToHours(minutes int) float64 {
	return decimal.NewFromInt(int64(minutes)).Div(sixty).Round(2).InexactFloat64()
}

// FormatMinutes renders a minute total as "<H> h <M> min".
func FormatMinutes(total int) string {
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%d h %d min", total/60, total%60)
}

// WindowMinutes returns the minutes a row logged inside window. Rows without a breakdown
// fall back to their reported total.
func WindowMinutes(row tracker.RawEntityRow, window tracker.DateWindow) int {
	if len(row.Days) == 0 {
		return row.TotalMinutes
	}
	total := 0
	for day, minutes := range Lookup(row.Days) {
		if window.Contains(day) {
			total += minutes
		}
	}
	return total
}

// SumBetween adds the hours of every series entry dated within [from, to].
func SumBetween(series []tracker.DailyHours, from, to time.Time) float64 {
	window := tracker.NewDateWindow(from, to)
	sum := decimal.Zero
	for _, entry := range series {
		day, err := calendar.ParseDay(entry.Date)
		if err != nil || !window.Contains(day) {
			continue
		}
		sum = sum.Add(decimal.NewFromFloat(entry.Hours))
	}
	return sum.InexactFloat64()
}

// LastActive returns the most recent day with positive hours, or nil.
func LastActive(series []tracker.DailyHours) *time.Time {
	var last *time.Time
	for _, entry := range series {
		if entry.Hours <= 0 {
			continue
		}
		day, err := calendar.ParseDay(entry.Date)
		if err != nil {
			continue
		}
		if last == nil || day.After(*last) {
			d := day
			last = &d
		}
	}
	return last
}

// BusinessDaysSince counts workdays between last and today. It is nil when there is no
// recorded activity at all.
func BusinessDaysSince(last *time.Time, today time.Time) *int {
	if last == nil {
		return nil
	}
	n := calendar.BusinessDaysBetween(*last, today)
	return &n
}

// Summarize computes totals and threshold flags for one entity over window.
func Summarize(row tracker.RawEntityRow, series []tracker.DailyHours, window tracker.DateWindow, targetHoursPerDay float64) Summary {
	minutes := WindowMinutes(row, window)
	total := decimal.NewFromInt(int64(minutes)).Div(sixty)

	workdays := 0
	for _, day := range calendar.Days(window.From, window.To) {
		if calendar.IsWorkday(day) {
			workdays++
		}
	}

	summary := Summary{
		TotalMinutes: minutes,
		Total:        FormatMinutes(minutes),
		TotalHours:   total.Round(2).InexactFloat64(),
		LastActive:   LastActive(series),
	}
	if workdays > 0 {
		avg := total.Div(decimal.NewFromInt(int64(workdays))).Round(2)
		summary.AverageHoursPerWorkday = avg.InexactFloat64()
		if targetHoursPerDay > 0 {
			summary.UnderTarget = avg.LessThan(decimal.NewFromFloat(targetHoursPerDay))
		}
	}
	return summary
}
