package tmetric_test

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/hours-watch/internal/domain/tracker"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/tmetric"
	"github.com/stretchr/testify/assert"
)

func window(from, to string) tracker.DateWindow {
	f, _ := time.Parse("2006-01-02", from)
	t, _ := time.Parse("2006-01-02", to)
	return tracker.NewDateWindow(f, t)
}

func TestRangeToken(t *testing.T) {
	assert.Equal(t, "20251001-20251031", tmetric.RangeToken(window("2025-10-01", "2025-10-31")))
	assert.Equal(t, "20251009-20251009", tmetric.RangeToken(window("2025-10-09", "2025-10-09")))
}

func TestRoutePath(t *testing.T) {
	w := window("2025-09-10", "2025-10-09")

	tests := []struct {
		name  string
		route tmetric.Route
		want  string
	}{
		{
			name:  "grouped by user and day",
			route: tmetric.GroupedRoute("4242", tracker.DimensionUser, w),
			want:  "/reports/4242/summary?range=20250910-20251009&groupby=user,day",
		},
		{
			name:  "grouped by project and day",
			route: tmetric.GroupedRoute("4242", tracker.DimensionProject, w),
			want:  "/reports/4242/summary?range=20250910-20251009&groupby=project,day",
		},
		{
			name:  "flat summary",
			route: tmetric.SummaryRoute("4242", tracker.DimensionUser, w),
			want:  "/reports/4242/summary?range=20250910-20251009&groupby=user",
		},
		{
			name:  "drill-down filtered by entity",
			route: tmetric.DetailRoute("4242", tracker.DimensionUser, "77", w),
			want:  "/reports/4242/detailed?range=20250910-20251009&groupby=day&user=77",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.route.Path())
		})
	}
}

func TestWorkspaceFromURL(t *testing.T) {
	id, ok := tmetric.WorkspaceFromURL("https://app.tmetric.com/#/tracker/123456/")
	assert.True(t, ok)
	assert.Equal(t, "123456", id)

	_, ok = tmetric.WorkspaceFromURL("https://app.tmetric.com/#/")
	assert.False(t, ok)
}

func TestAppURL(t *testing.T) {
	assert.Equal(t, "https://app.tmetric.com/#/members/9", tmetric.AppURL("https://app.tmetric.com/", tmetric.MembersPath("9")))
	assert.Equal(t, "https://app.tmetric.com/login", tmetric.LoginURL("https://app.tmetric.com"))
}
