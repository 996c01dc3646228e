package tracker

import (
	"encoding/json"
	"time"

	"github.com/cmlabs-hris/hours-watch/internal/pkg/calendar"
)

// Credentials authenticate one extraction run against the time-tracking application.
// They are supplied per run and never persisted.
type Credentials struct {
	Email    string
	Password string
}

// DateWindow is an inclusive range of calendar dates, always normalized so From <= To.
type DateWindow struct {
	From time.Time
	To   time.Time
}

// NewDateWindow strips clock components and swaps the bounds when they are reversed.
func NewDateWindow(from, to time.Time) DateWindow {
	from, to = calendar.Day(from), calendar.Day(to)
	if to.Before(from) {
		from, to = to, from
	}
	return DateWindow{From: from, To: to}
}

// Len returns the number of calendar days in the window.
func (w DateWindow) Len() int {
	return int(w.To.Sub(w.From).Hours()/24) + 1
}

// Contains reports whether d falls inside the window.
func (w DateWindow) Contains(d time.Time) bool {
	d = calendar.Day(d)
	return !d.Before(w.From) && !d.After(w.To)
}

// Range renders the window boundaries as ISO dates.
func (w DateWindow) Range() DateRange {
	return DateRange{From: calendar.FormatISO(w.From), To: calendar.FormatISO(w.To)}
}

// Dimension is the primary grouping of a report.
type Dimension string

const (
	DimensionUser    Dimension = "user"
	DimensionProject Dimension = "project"
)

// DayDuration is one per-day sub-aggregate as extracted. Date keeps whatever the source
// produced ("05/10/2025 Sunday", "2025-10-05", ...); the aggregator normalizes it.
type DayDuration struct {
	Date    string
	Minutes int
}

// RawEntityRow is the extractor's per-entity record. It never leaves the engine.
type RawEntityRow struct {
	ID           string
	Name         string
	Email        string
	Client       string
	TotalMinutes int
	Days         []DayDuration
	// Incomplete marks a drill-down that failed: the total is known, the breakdown is not.
	Incomplete bool
	Source     string
}

// DailyHours is the canonical daily unit of every series.
type DailyHours struct {
	Date  string  `json:"date"` // DD/MM/YYYY
	Hours float64 `json:"hours"`
}

// EntityWithoutActivity is an entity with zero recorded hours in the checked window.
type EntityWithoutActivity struct {
	ID                       string       `json:"id"`
	Name                     string       `json:"name"`
	Email                    string       `json:"email"`
	LastActivityDate         *string      `json:"last_activity_date"`
	TotalHoursTrailingWindow string       `json:"total_hours_trailing_window"`
	DaysSinceLastActivity    *int         `json:"days_since_last_activity"`
	DailyHours               []DailyHours `json:"daily_hours,omitempty"`
	DataIncomplete           bool         `json:"data_incomplete,omitempty"`
}

// EntityChartSeries is a gap-filled daily series for one entity with activity.
type EntityChartSeries struct {
	ID                       string       `json:"id"`
	Name                     string       `json:"name"`
	Email                    string       `json:"email"`
	DailyHours               []DailyHours `json:"daily_hours"`
	TotalHoursTrailingWindow string       `json:"total_hours_trailing_window"`
	TotalHours               float64      `json:"total_hours"`
	AverageHoursPerWorkday   float64      `json:"average_hours_per_workday"`
	UnderTarget              bool         `json:"under_target"`
	DataIncomplete           bool         `json:"data_incomplete,omitempty"`
}

// ProjectChartSeries is an EntityChartSeries for a project, with its client when known.
type ProjectChartSeries struct {
	EntityChartSeries
	Client string `json:"client,omitempty"`
}

// CheckRun is the audit record of one orchestrated run.
type CheckRun struct {
	ID         string          `json:"id"`
	Operation  string          `json:"operation"`
	From       time.Time       `json:"from"`
	To         time.Time       `json:"to"`
	Success    bool            `json:"success"`
	Error      *string         `json:"error,omitempty"`
	TotalCount int             `json:"total_count"`
	Result     json.RawMessage `json:"result,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// AbsenceWindow spans the last workdays workdays before ref.
func AbsenceWindow(ref time.Time, workdays int) DateWindow {
	from, to := calendar.LastWorkdaysRangeFrom(ref, workdays)
	return NewDateWindow(from, to)
}

// TrailingWindow spans days calendar days ending on ref.
func TrailingWindow(ref time.Time, days int) DateWindow {
	if days < 1 {
		days = 1
	}
	to := calendar.Day(ref)
	return NewDateWindow(to.AddDate(0, 0, -(days-1)), to)
}
