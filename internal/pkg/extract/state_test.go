package extract

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/hours-watch/internal/domain/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var madrid = time.FixedZone("CEST", 2*60*60)

func TestDecodeGroup_TimestampDaysUseBrowserZone(t *testing.T) {
	g := stateGroup{
		Text: "Ana Lima",
		State: map[string]any{
			"id":       "17",
			"duration": float64(9 * 60 * 60 * 1000),
			"groups": []any{
				// Local midnight of 5 and 6 October in Madrid.
				map[string]any{"day": "2025-10-04T22:00:00.000Z", "duration": float64(8 * 60 * 60 * 1000)},
				map[string]any{"date": float64(time.Date(2025, 10, 6, 0, 0, 0, 0, madrid).UnixMilli()), "duration": float64(60 * 60 * 1000)},
				map[string]any{"day": "07/10/2025 Tuesday", "duration": float64(0)},
			},
		},
	}

	row, err := decodeGroup(g, madrid)
	require.NoError(t, err)

	assert.Equal(t, []tracker.DayDuration{
		{Date: "2025-10-05", Minutes: 480},
		{Date: "2025-10-06", Minutes: 60},
		{Date: "07/10/2025 Tuesday", Minutes: 0},
	}, row.Days)
	assert.Equal(t, 540, row.TotalMinutes)
}

func TestDecodeGroup_UTCZoneKeepsUTCDate(t *testing.T) {
	g := stateGroup{
		Text: "Bo",
		State: map[string]any{
			"key":   "u-2",
			"items": []any{map[string]any{"day": "2025-10-04T22:00:00Z", "duration": "1 h 0 min"}},
		},
	}

	row, err := decodeGroup(g, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, []tracker.DayDuration{{Date: "2025-10-04", Minutes: 60}}, row.Days)
}

func TestDecodeGroup_NameWithoutEmail(t *testing.T) {
	g := stateGroup{
		Text:  "Ana Lima\n ana@example.com",
		State: map[string]any{"id": "17", "email": "ana@example.com", "duration": float64(0)},
	}

	row, err := decodeGroup(g, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "Ana Lima", row.Name)
	assert.Equal(t, "ana@example.com", row.Email)
}
