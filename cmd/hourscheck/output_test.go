package main

import (
	"bytes"
	"testing"

	"github.com/cmlabs-hris/hours-watch/internal/domain/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() tracker.ChartResult {
	return tracker.ChartResult{
		DateRange: tracker.DateRange{From: "2025-10-06", To: "2025-10-07"},
		Series: []tracker.EntityChartSeries{{
			ID:                       "77",
			Name:                     "Ana",
			DailyHours:               []tracker.DailyHours{{Date: "06/10/2025", Hours: 7.5}},
			TotalHoursTrailingWindow: "7 h 30 min",
			TotalHours:               7.5,
		}},
		TotalCount: 1,
	}
}

func TestWriteYAML_UsesJSONFieldNames(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeYAML(&buf, sampleResult()))

	out := buf.String()
	assert.Contains(t, out, "date_range:\n  from: \"2025-10-06\"\n  to: \"2025-10-07\"\n")
	assert.Contains(t, out, "total_hours_trailing_window: 7 h 30 min")
	assert.Contains(t, out, "- date: 06/10/2025\n")
	assert.Contains(t, out, "total_count: 1")
	assert.NotContains(t, out, "{")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, sampleResult()))
	assert.Contains(t, buf.String(), `"total_hours_trailing_window": "7 h 30 min"`)
}

func TestFormatterFor(t *testing.T) {
	_, err := formatterFor("yaml")
	assert.NoError(t, err)
	_, err = formatterFor("xml")
	assert.ErrorContains(t, err, "unknown format")
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"absences", "users", "projects"}, names)
}
