package sse_test

import (
	"testing"

	"github.com/cmlabs-hris/hours-watch/internal/pkg/sse"
	"github.com/stretchr/testify/assert"
)

func TestHub_PublishToTopic(t *testing.T) {
	hub := sse.NewHub()
	runs, cleanupRuns := hub.Subscribe("runs")
	other, cleanupOther := hub.Subscribe("other")
	defer cleanupOther()

	hub.Publish("runs", sse.Event{Event: "run.idle", Data: "r1"})

	ev := <-runs
	assert.Equal(t, "runs", ev.Topic)
	assert.Equal(t, "run.idle", ev.Event)
	assert.Empty(t, other)
	assert.Equal(t, 2, hub.TotalSubscribers())

	cleanupRuns()
	cleanupRuns()
	assert.Equal(t, 0, hub.SubscriberCount("runs"))
}

func TestHub_DropsWhenSubscriberIsSlow(t *testing.T) {
	hub := sse.NewHub()
	ch, cleanup := hub.Subscribe("runs")
	defer cleanup()

	for i := 0; i < 100; i++ {
		hub.Publish("runs", sse.Event{Event: "run.navigated"})
	}
	assert.Equal(t, 32, len(ch))
}
