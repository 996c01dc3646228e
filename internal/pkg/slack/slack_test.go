package slack_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cmlabs-hris/hours-watch/internal/domain/tracker"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func absenceResult(n int) tracker.AbsenceResult {
	result := tracker.AbsenceResult{DateRange: tracker.DateRange{From: "2025-10-06", To: "2025-10-07"}}
	for i := 0; i < n; i++ {
		days := i + 2
		last := "2025-09-26"
		result.EntitiesWithoutActivity = append(result.EntitiesWithoutActivity, tracker.EntityWithoutActivity{
			Name:                     fmt.Sprintf("Person %02d", i),
			LastActivityDate:         &last,
			DaysSinceLastActivity:    &days,
			TotalHoursTrailingWindow: "12 h 30 min",
		})
	}
	result.TotalCount = n
	return result
}

func TestNotifyAbsences_PostsBlockKit(t *testing.T) {
	var got slack.Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := slack.NewNotifier(srv.URL, 2)
	require.NoError(t, n.NotifyAbsences(context.Background(), absenceResult(12), false))

	assert.Equal(t, ":warning: 12 people without logged hours", got.Text)
	require.Len(t, got.Blocks, 5)
	assert.Equal(t, "header", got.Blocks[0].Type)
	assert.Len(t, got.Blocks[1].Fields, 4)
	assert.Contains(t, got.Blocks[1].Fields[0].Text, "Scheduled")

	detail := got.Blocks[2].Text.Text
	assert.Equal(t, 10, strings.Count(detail, "• *Person"))
	assert.Contains(t, detail, "Person 09")
	assert.NotContains(t, detail, "Person 10")
	assert.Contains(t, detail, "...and 2 more")
	assert.Contains(t, detail, "2 workdays since | Last: 2025-09-26 | Total: 12 h 30 min")
}

func TestAbsenceMessage_AllClear(t *testing.T) {
	n := slack.NewNotifier("http://example.invalid", 2)

	msg := n.AbsenceMessage(absenceResult(0), true)

	assert.Contains(t, msg.Text, "Everyone logged hours")
	require.Len(t, msg.Blocks, 3)
	assert.Contains(t, msg.Blocks[1].Fields[0].Text, "Manual")
	assert.Contains(t, msg.Blocks[1].Fields[1].Text, "2025-10-06 → 2025-10-07")
	assert.Contains(t, msg.Blocks[2].Elements[0].Text, "last 2 workdays")
}

func TestAbsenceMessage_UnknownActivity(t *testing.T) {
	n := slack.NewNotifier("http://example.invalid", 2)
	result := tracker.AbsenceResult{EntitiesWithoutActivity: []tracker.EntityWithoutActivity{{Name: "Carla", DataIncomplete: true}}}

	msg := n.AbsenceMessage(result, false)

	assert.Contains(t, msg.Blocks[2].Text.Text, "? workdays since | Last: no entries | Total: 0 h 0 min | _incomplete data_")
}

func TestNotifyAbsences_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "rate_limited", http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := slack.NewNotifier(srv.URL, 2, slack.WithBackoff(time.Millisecond))
	require.NoError(t, n.NotifyAbsences(context.Background(), absenceResult(1), true))
	assert.Equal(t, int32(3), calls.Load())
}

func TestNotifyAbsences_GivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	n := slack.NewNotifier(srv.URL, 2, slack.WithBackoff(time.Millisecond))
	err := n.NotifyAbsences(context.Background(), absenceResult(1), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Contains(t, err.Error(), "invalid_payload")
	assert.Equal(t, int32(3), calls.Load())
}

func TestNotifyAbsences_NotConfigured(t *testing.T) {
	n := slack.NewNotifier("", 2)
	assert.False(t, n.Enabled())
	assert.ErrorIs(t, n.NotifyAbsences(context.Background(), absenceResult(1), false), slack.ErrNotConfigured)
}
