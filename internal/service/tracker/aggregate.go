package tracker

import (
	"sort"
	"strings"
	"time"

	"github.com/cmlabs-hris/hours-watch/internal/domain/tracker"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/calendar"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/timeseries"
)

// mergeRoster adds roster members the report did not list, as rows with no time, and fills
// in missing emails. Members are matched by id, then email, then name.
func mergeRoster(rows, roster []tracker.RawEntityRow) []tracker.RawEntityRow {
	out := append([]tracker.RawEntityRow(nil), rows...)

	index := make(map[string]int, len(out)*3)
	add := func(i int, row tracker.RawEntityRow) {
		for _, key := range matchKeys(row) {
			if _, ok := index[key]; !ok {
				index[key] = i
			}
		}
	}
	for i, row := range out {
		add(i, row)
	}

	for _, member := range roster {
		matched := -1
		for _, key := range matchKeys(member) {
			if i, ok := index[key]; ok {
				matched = i
				break
			}
		}
		if matched >= 0 {
			if out[matched].Email == "" {
				out[matched].Email = member.Email
			}
			continue
		}
		out = append(out, tracker.RawEntityRow{
			ID:     member.ID,
			Name:   member.Name,
			Email:  member.Email,
			Source: member.Source,
		})
		add(len(out)-1, member)
	}
	return out
}

func matchKeys(row tracker.RawEntityRow) []string {
	var keys []string
	if row.ID != "" {
		keys = append(keys, "id:"+row.ID)
	}
	if row.Email != "" {
		keys = append(keys, "email:"+strings.ToLower(row.Email))
	}
	if row.Name != "" {
		keys = append(keys, "name:"+strings.ToLower(row.Name))
	}
	return keys
}

// absentEntities keeps rows with zero hours across exactly window. The trailing figures come
// from contextWindow and never decide membership.
func absentEntities(rows []tracker.RawEntityRow, window, contextWindow tracker.DateWindow, today time.Time) []tracker.EntityWithoutActivity {
	sortRows(rows)
	entities := []tracker.EntityWithoutActivity{}

	for _, row := range rows {
		if !hasBreakdown(row) {
			// the window split is unknown, so the entity is listed and flagged
			entities = append(entities, tracker.EntityWithoutActivity{
				ID:                       row.ID,
				Name:                     row.Name,
				Email:                    row.Email,
				TotalHoursTrailingWindow: timeseries.FormatMinutes(row.TotalMinutes),
				DataIncomplete:           true,
			})
			continue
		}

		series := timeseries.Normalize(row.Days, contextWindow)
		if hoursInAbsenceWindow(series, window) > 0 {
			continue
		}

		last := timeseries.LastActive(series)
		entity := tracker.EntityWithoutActivity{
			ID:                       row.ID,
			Name:                     row.Name,
			Email:                    row.Email,
			TotalHoursTrailingWindow: timeseries.FormatMinutes(timeseries.WindowMinutes(row, contextWindow)),
			DaysSinceLastActivity:    timeseries.BusinessDaysSince(last, today),
			DailyHours:               series,
		}
		if last != nil {
			date := calendar.FormatISO(*last)
			entity.LastActivityDate = &date
		}
		entities = append(entities, entity)
	}
	return entities
}

// hoursInAbsenceWindow is the filter condition of the absence check.
func hoursInAbsenceWindow(series []tracker.DailyHours, window tracker.DateWindow) float64 {
	return timeseries.SumBetween(series, window.From, window.To)
}

// hasBreakdown reports whether the row's per-day split is known. A row with no time at all
// trivially has one.
func hasBreakdown(row tracker.RawEntityRow) bool {
	if row.Incomplete {
		return false
	}
	return len(row.Days) > 0 || row.TotalMinutes == 0
}

// hasActivity reports whether the row logged any time inside window. Chart series skip
// entities that did not.
func hasActivity(row tracker.RawEntityRow, window tracker.DateWindow) bool {
	return timeseries.WindowMinutes(row, window) > 0
}

func chartSeries(row tracker.RawEntityRow, window tracker.DateWindow, targetHoursPerDay float64) tracker.EntityChartSeries {
	series := timeseries.Normalize(row.Days, window)
	summary := timeseries.Summarize(row, series, window, targetHoursPerDay)
	return tracker.EntityChartSeries{
		ID:                       row.ID,
		Name:                     row.Name,
		Email:                    row.Email,
		DailyHours:               series,
		TotalHoursTrailingWindow: summary.Total,
		TotalHours:               summary.TotalHours,
		AverageHoursPerWorkday:   summary.AverageHoursPerWorkday,
		UnderTarget:              summary.UnderTarget,
		DataIncomplete:           !hasBreakdown(row),
	}
}

func sortRows(rows []tracker.RawEntityRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		return strings.ToLower(rows[i].Name) < strings.ToLower(rows[j].Name)
	})
}
