package timeseries_test

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/hours-watch/internal/domain/tracker"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/timeseries"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNormalize_FillsGaps(t *testing.T) {
	raw := []tracker.DayDuration{
		{Date: "05/10/2025", Minutes: 8 * 60},
		{Date: "07/10/2025", Minutes: 0},
	}
	window := tracker.NewDateWindow(date(2025, 10, 4), date(2025, 10, 7))

	series := timeseries.Normalize(raw, window)

	assert.Equal(t, []tracker.DailyHours{
		{Date: "04/10/2025", Hours: 0},
		{Date: "05/10/2025", Hours: 8},
		{Date: "06/10/2025", Hours: 0},
		{Date: "07/10/2025", Hours: 0},
	}, series)
}

func TestNormalize_LengthOrderAndUniqueness(t *testing.T) {
	windows := []tracker.DateWindow{
		tracker.NewDateWindow(date(2025, 10, 1), date(2025, 10, 1)),
		tracker.NewDateWindow(date(2025, 9, 10), date(2025, 10, 9)),
		tracker.NewDateWindow(date(2024, 2, 20), date(2024, 3, 5)), // leap year
		tracker.NewDateWindow(date(2025, 12, 30), date(2025, 12, 20)),
	}
	raw := []tracker.DayDuration{
		{Date: "2025-10-09", Minutes: 30},
		{Date: "01/10/2025 Wednesday", Minutes: 90},
		{Date: "29/02/2024", Minutes: 60},
		{Date: "garbage", Minutes: 60},
	}

	for _, w := range windows {
		series := timeseries.Normalize(raw, w)
		require.Len(t, series, int(w.To.Sub(w.From).Hours()/24)+1)
		assert.Equal(t, w.Len(), len(series))

		seen := map[string]bool{}
		var prev time.Time
		for i, entry := range series {
			day, err := time.Parse("02/01/2006", entry.Date)
			require.NoError(t, err)
			if i > 0 {
				assert.True(t, day.After(prev), "series must be strictly ascending")
			}
			assert.False(t, seen[entry.Date], "duplicate date %s", entry.Date)
			seen[entry.Date] = true
			prev = day
		}
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	raw := []tracker.DayDuration{
		{Date: "06/10/2025 Monday", Minutes: 150},
		{Date: "2025-10-08", Minutes: 45},
	}
	window := tracker.NewDateWindow(date(2025, 10, 1), date(2025, 10, 10))

	first := timeseries.Normalize(raw, window)
	second := timeseries.Normalize(raw, window)
	assert.Equal(t, first, second)
	assert.Equal(t, 2.5, first[5].Hours)
	assert.Equal(t, 0.75, first[7].Hours)
}

func TestNormalize_SumsDuplicateDates(t *testing.T) {
	raw := []tracker.DayDuration{
		{Date: "06/10/2025", Minutes: 60},
		{Date: "2025-10-06", Minutes: 30},
	}
	series := timeseries.Normalize(raw, tracker.NewDateWindow(date(2025, 10, 6), date(2025, 10, 6)))
	require.Len(t, series, 1)
	assert.Equal(t, 1.5, series[0].Hours)
}

func TestFormatMinutes(t *testing.T) {
	cases := []struct {
		minutes int
		want    string
	}{
		{0, "0 h 0 min"},
		{59, "0 h 59 min"},
		{60, "1 h 0 min"},
		{150, "2 h 30 min"},
		{12 * 60, "12 h 0 min"},
		{-5, "0 h 0 min"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, timeseries.FormatMinutes(c.minutes))
	}
}

func TestMinutesToHours(t *testing.T) {
	assert.Equal(t, 2.5, timeseries.MinutesToHours(150))
	assert.Equal(t, 0.33, timeseries.MinutesToHours(20))
	assert.Equal(t, 0.0, timeseries.MinutesToHours(0))
}

func TestSumBetween(t *testing.T) {
	series := []tracker.DailyHours{
		{Date: "06/10/2025", Hours: 1.25},
		{Date: "07/10/2025", Hours: 0},
		{Date: "08/10/2025", Hours: 2.5},
		{Date: "09/10/2025", Hours: 4},
	}
	assert.Equal(t, 2.5, timeseries.SumBetween(series, date(2025, 10, 7), date(2025, 10, 8)))
	assert.Equal(t, 0.0, timeseries.SumBetween(series, date(2025, 10, 7), date(2025, 10, 7)))
	assert.Equal(t, 7.75, timeseries.SumBetween(series, date(2025, 10, 1), date(2025, 10, 31)))
}

func TestLastActiveAndBusinessDaysSince(t *testing.T) {
	series := timeseries.Normalize([]tracker.DayDuration{
		{Date: "29/09/2025", Minutes: 12 * 60},
	}, tracker.NewDateWindow(date(2025, 9, 9), date(2025, 10, 8)))

	last := timeseries.LastActive(series)
	require.NotNil(t, last)
	assert.Equal(t, date(2025, 9, 29), *last)

	// Ten calendar days later, with a weekend in between.
	days := timeseries.BusinessDaysSince(last, date(2025, 10, 9))
	require.NotNil(t, days)
	assert.Equal(t, 8, *days)

	empty := timeseries.Normalize(nil, tracker.NewDateWindow(date(2025, 9, 9), date(2025, 10, 8)))
	assert.Nil(t, timeseries.LastActive(empty))
	assert.Nil(t, timeseries.BusinessDaysSince(nil, date(2025, 10, 9)))
}

func TestWindowMinutes(t *testing.T) {
	window := tracker.NewDateWindow(date(2025, 10, 6), date(2025, 10, 7))

	row := tracker.RawEntityRow{
		TotalMinutes: 999,
		Days: []tracker.DayDuration{
			{Date: "05/10/2025", Minutes: 60},
			{Date: "06/10/2025", Minutes: 30},
			{Date: "07/10/2025", Minutes: 15},
		},
	}
	assert.Equal(t, 45, timeseries.WindowMinutes(row, window))

	noBreakdown := tracker.RawEntityRow{TotalMinutes: 120}
	assert.Equal(t, 120, timeseries.WindowMinutes(noBreakdown, window))
}

func TestSummarize(t *testing.T) {
	// Monday to Sunday: five workdays.
	window := tracker.NewDateWindow(date(2025, 10, 6), date(2025, 10, 12))
	row := tracker.RawEntityRow{
		Days: []tracker.DayDuration{
			{Date: "06/10/2025", Minutes: 8 * 60},
			{Date: "07/10/2025", Minutes: 7 * 60},
			{Date: "08/10/2025", Minutes: 5 * 60},
		},
	}
	series := timeseries.Normalize(row.Days, window)

	summary := timeseries.Summarize(row, series, window, 8)

	assert.Equal(t, 20*60, summary.TotalMinutes)
	assert.Equal(t, "20 h 0 min", summary.Total)
	assert.Equal(t, 20.0, summary.TotalHours)
	assert.Equal(t, 4.0, summary.AverageHoursPerWorkday)
	assert.True(t, summary.UnderTarget)
	require.NotNil(t, summary.LastActive)
	assert.Equal(t, date(2025, 10, 8), *summary.LastActive)

	noTarget := timeseries.Summarize(row, series, window, 0)
	assert.False(t, noTarget.UnderTarget)
}
