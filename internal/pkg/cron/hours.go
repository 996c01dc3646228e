package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/hours-watch/internal/domain/tracker"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/calendar"
)

// AbsenceNotifier delivers absence results. Satisfied by *slack.Notifier.
type AbsenceNotifier interface {
	Enabled() bool
	NotifyAbsences(ctx context.Context, result tracker.AbsenceResult, manual bool) error
}

type HoursConfig struct {
	Credentials     tracker.Credentials
	AbsenceWorkdays int
	// CheckHour is the UTC hour during which the scheduled check runs.
	CheckHour int
	Now       func() time.Time
}

type HoursJobs struct {
	trackerSvc tracker.Service
	notifier   AbsenceNotifier
	cfg        HoursConfig

	mu      sync.Mutex
	lastRun time.Time
}

func NewHoursJobs(trackerSvc tracker.Service, notifier AbsenceNotifier, cfg HoursConfig) *HoursJobs {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &HoursJobs{
		trackerSvc: trackerSvc,
		notifier:   notifier,
		cfg:        cfg,
	}
}

func (j *HoursJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("check_missing_hours", 1*time.Hour, j.CheckMissingHours)
}

// CheckMissingHours runs the absence check once per workday during the configured hour.
func (j *HoursJobs) CheckMissingHours(ctx context.Context) error {
	now := j.cfg.Now().UTC()
	if now.Hour() != j.cfg.CheckHour || !calendar.IsWorkday(now) {
		return nil
	}

	today := calendar.Day(now)
	j.mu.Lock()
	if j.lastRun.Equal(today) {
		j.mu.Unlock()
		return nil
	}
	j.lastRun = today
	j.mu.Unlock()

	slog.Info("Cron: Starting missing hours check")

	result, err := j.Run(ctx, false)
	if err != nil {
		// Allow another attempt within the same hour.
		j.mu.Lock()
		j.lastRun = time.Time{}
		j.mu.Unlock()
		return err
	}

	slog.Info("Cron: Missing hours check completed", "total_count", result.TotalCount)
	return nil
}

// Run performs the absence check over the default window and notifies. A delivery failure
// is logged and never fails the check.
func (j *HoursJobs) Run(ctx context.Context, manual bool) (*tracker.AbsenceResult, error) {
	window := tracker.AbsenceWindow(j.cfg.Now().UTC(), j.cfg.AbsenceWorkdays)

	result, err := j.trackerSvc.FindEntitiesWithoutActivity(ctx, j.cfg.Credentials, window)
	if err != nil {
		return nil, fmt.Errorf("absence check: %w", err)
	}

	if j.notifier != nil && j.notifier.Enabled() {
		if err := j.notifier.NotifyAbsences(ctx, *result, manual); err != nil {
			slog.Error("Cron: Failed to send absence notification", "error", err)
		}
	}

	return result, nil
}
