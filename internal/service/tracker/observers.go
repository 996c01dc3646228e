package tracker

import (
	"bytes"
	"context"
	"log/slog"
	"path"

	"github.com/cmlabs-hris/hours-watch/internal/domain/tracker"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/sse"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/storage"
)

// RunsTopic is the SSE topic carrying run progress.
const RunsTopic = "runs"

// HubObserver republishes run progress to dashboard subscribers.
type HubObserver struct {
	hub *sse.Hub
}

func NewHubObserver(hub *sse.Hub) *HubObserver {
	return &HubObserver{hub: hub}
}

func (o *HubObserver) Observe(_ context.Context, ev tracker.RunEvent) {
	o.hub.Publish(RunsTopic, sse.Event{Event: "run." + string(ev.Stage), Data: ev})
}

func (o *HubObserver) Capture(_ context.Context, snap tracker.Snapshot) {
	o.hub.Publish(RunsTopic, sse.Event{Event: "run.snapshot", Data: map[string]any{
		"run_id":       snap.RunID,
		"label":        snap.Label,
		"content_type": snap.ContentType,
		"size":         len(snap.Data),
	}})
}

// ArtifactObserver stores snapshots under <run id>/.
type ArtifactObserver struct {
	store storage.FileStorage
}

func NewArtifactObserver(store storage.FileStorage) *ArtifactObserver {
	return &ArtifactObserver{store: store}
}

func (o *ArtifactObserver) Observe(context.Context, tracker.RunEvent) {}

func (o *ArtifactObserver) Capture(ctx context.Context, snap tracker.Snapshot) {
	name := path.Join(snap.RunID, snap.Label+artifactExt(snap.ContentType))
	key, err := o.store.Upload(ctx, bytes.NewReader(snap.Data), name, snap.ContentType)
	if err != nil {
		slog.Warn("ArtifactObserver: failed to store snapshot", "run_id", snap.RunID, "error", err)
		return
	}
	slog.Info("ArtifactObserver: snapshot stored", "run_id", snap.RunID, "key", key)
}

func artifactExt(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "text/html":
		return ".html"
	default:
		return ".bin"
	}
}
