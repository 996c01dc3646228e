package tracker_test

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/hours-watch/internal/domain/tracker"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewDateWindow_NormalizesBounds(t *testing.T) {
	w := tracker.NewDateWindow(time.Date(2025, 10, 9, 17, 30, 0, 0, time.UTC), date(2025, 10, 6))

	assert.Equal(t, date(2025, 10, 6), w.From)
	assert.Equal(t, date(2025, 10, 9), w.To)
	assert.Equal(t, 4, w.Len())
	assert.True(t, w.Contains(time.Date(2025, 10, 9, 23, 0, 0, 0, time.UTC)))
	assert.False(t, w.Contains(date(2025, 10, 10)))
	assert.Equal(t, tracker.DateRange{From: "2025-10-06", To: "2025-10-09"}, w.Range())
}

func TestAbsenceWindow_SkipsWeekend(t *testing.T) {
	// Monday: the last two workdays are the previous Thursday and Friday.
	w := tracker.AbsenceWindow(time.Date(2025, 10, 13, 9, 0, 0, 0, time.UTC), 2)

	assert.Equal(t, date(2025, 10, 9), w.From)
	assert.Equal(t, date(2025, 10, 10), w.To)
}

func TestTrailingWindow(t *testing.T) {
	w := tracker.TrailingWindow(time.Date(2025, 10, 8, 9, 0, 0, 0, time.UTC), 30)

	assert.Equal(t, date(2025, 9, 9), w.From)
	assert.Equal(t, date(2025, 10, 8), w.To)
	assert.Equal(t, 30, w.Len())
}

func TestWindowRequest(t *testing.T) {
	fallback := func() tracker.DateWindow { return tracker.TrailingWindow(date(2025, 10, 8), 2) }

	tests := []struct {
		name    string
		req     tracker.WindowRequest
		wantErr string
		want    tracker.DateWindow
	}{
		{name: "empty uses fallback", want: tracker.NewDateWindow(date(2025, 10, 7), date(2025, 10, 8))},
		{name: "explicit", req: tracker.WindowRequest{From: "2025-10-01", To: "2025-10-03"}, want: tracker.NewDateWindow(date(2025, 10, 1), date(2025, 10, 3))},
		{name: "only from", req: tracker.WindowRequest{From: "2025-10-01"}, wantErr: "from"},
		{name: "bad format", req: tracker.WindowRequest{From: "01/10/2025", To: "2025-10-03"}, wantErr: "from"},
		{name: "reversed", req: tracker.WindowRequest{From: "2025-10-03", To: "2025-10-01"}, wantErr: "to"},
		{name: "too long", req: tracker.WindowRequest{From: "2024-01-01", To: "2025-10-01"}, wantErr: "to"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr != "" {
				var verrs validator.ValidationErrors
				require.ErrorAs(t, err, &verrs)
				assert.Contains(t, verrs.ToMap(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, tt.req.Window(fallback))
		})
	}
}
