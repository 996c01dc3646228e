package tracker

import (
	"context"
	"time"
)

// Stage is a state of the per-call orchestration state machine.
type Stage string

const (
	StageIdle               Stage = "idle"
	StageSessionEstablished Stage = "session_established"
	StageNavigated          Stage = "navigated"
	StageExtracted          Stage = "extracted"
	StageNormalized         Stage = "normalized"
	StageClosed             Stage = "closed"
)

// RunEvent describes one stage transition of a run.
type RunEvent struct {
	RunID     string    `json:"run_id"`
	Operation string    `json:"operation"`
	Stage     Stage     `json:"stage"`
	Message   string    `json:"message,omitempty"`
	Success   *bool     `json:"success,omitempty"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// Snapshot is a diagnostic capture of the page, taken when a run fails.
type Snapshot struct {
	RunID       string
	Label       string
	ContentType string
	Data        []byte
}

// Observer receives run progress. Implementations must not block for long and must never
// fail the run; errors are theirs to log.
type Observer interface {
	Observe(ctx context.Context, ev RunEvent)
	Capture(ctx context.Context, snap Snapshot)
}

// Observers fans out to several observers.
type Observers []Observer

func (o Observers) Observe(ctx context.Context, ev RunEvent) {
	for _, obs := range o {
		obs.Observe(ctx, ev)
	}
}

func (o Observers) Capture(ctx context.Context, snap Snapshot) {
	for _, obs := range o {
		obs.Capture(ctx, snap)
	}
}
