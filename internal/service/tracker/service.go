package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cmlabs-hris/hours-watch/internal/domain/tracker"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/browser"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/calendar"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/extract"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/tmetric"
)

// SessionOpener establishes an authenticated session. Satisfied by *tmetric.SessionManager.
type SessionOpener interface {
	Establish(ctx context.Context, creds tracker.Credentials) (*tmetric.Session, error)
}

// RowExtractor pulls raw rows from report views. Satisfied by *extract.Extractor.
type RowExtractor interface {
	Extract(ctx context.Context, page browser.Page, req extract.Request) ([]tracker.RawEntityRow, error)
	Roster(ctx context.Context, page browser.Page, workspaceID string) ([]tracker.RawEntityRow, error)
}

type Config struct {
	// ContextDays is how far back the absence check looks for context figures.
	ContextDays       int
	TargetHoursPerDay float64
	// Now defaults to time.Now.
	Now func() time.Time
}

type TrackerServiceImpl struct {
	sessions  SessionOpener
	extractor RowExtractor
	runs      tracker.RunRepository
	observer  tracker.Observer
	cfg       Config
}

// NewTrackerService wires the orchestrator. runs and observer may be nil.
func NewTrackerService(sessions SessionOpener, extractor RowExtractor, runs tracker.RunRepository, observer tracker.Observer, cfg Config) tracker.Service {
	if cfg.ContextDays <= 0 {
		cfg.ContextDays = 30
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if observer == nil {
		observer = tracker.Observers{}
	}
	return &TrackerServiceImpl{
		sessions:  sessions,
		extractor: extractor,
		runs:      runs,
		observer:  observer,
		cfg:       cfg,
	}
}

// FindEntitiesWithoutActivity reports users with zero hours across exactly window. Context
// figures cover a trailing window of ContextDays ending at window.To.
func (s *TrackerServiceImpl) FindEntitiesWithoutActivity(ctx context.Context, creds tracker.Credentials, window tracker.DateWindow) (*tracker.AbsenceResult, error) {
	contextWindow := s.contextWindow(window)

	return runOperation(ctx, s, tracker.OperationAbsences, creds, window, func(ctx context.Context, run *runScope) (*tracker.AbsenceResult, int, error) {
		rows, err := s.extractor.Extract(ctx, run.session.Page, extract.Request{
			WorkspaceID: run.session.WorkspaceID,
			Dimension:   tracker.DimensionUser,
			Window:      contextWindow,
		})
		if err != nil {
			return nil, 0, fmt.Errorf("extract user report: %w", err)
		}

		roster, err := s.extractor.Roster(ctx, run.session.Page, run.session.WorkspaceID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, 0, ctx.Err()
			}
			slog.Warn("TrackerService: roster unavailable, using report entities only", "run_id", run.id, "error", err)
		}
		rows = mergeRoster(rows, roster)
		run.stage(ctx, tracker.StageExtracted, fmt.Sprintf("%d users", len(rows)))

		entities := absentEntities(rows, window, contextWindow, calendar.Day(s.cfg.Now()))
		run.stage(ctx, tracker.StageNormalized, fmt.Sprintf("%d without activity", len(entities)))

		return &tracker.AbsenceResult{
			DateRange:               window.Range(),
			ContextRange:            contextWindow.Range(),
			EntitiesWithoutActivity: entities,
			TotalCount:              len(entities),
			CheckedAt:               s.cfg.Now().UTC(),
		}, len(entities), nil
	})
}

// CollectEntityChartSeries returns a gap-filled daily series per user over window.
func (s *TrackerServiceImpl) CollectEntityChartSeries(ctx context.Context, creds tracker.Credentials, window tracker.DateWindow) (*tracker.ChartResult, error) {
	return runOperation(ctx, s, tracker.OperationUsers, creds, window, func(ctx context.Context, run *runScope) (*tracker.ChartResult, int, error) {
		rows, err := s.extract(ctx, run, tracker.DimensionUser, window)
		if err != nil {
			return nil, 0, err
		}

		series := make([]tracker.EntityChartSeries, 0, len(rows))
		for _, row := range rows {
			if !hasActivity(row, window) {
				continue
			}
			series = append(series, chartSeries(row, window, s.cfg.TargetHoursPerDay))
		}
		run.stage(ctx, tracker.StageNormalized, fmt.Sprintf("%d series", len(series)))

		return &tracker.ChartResult{
			DateRange:  window.Range(),
			Series:     series,
			TotalCount: len(series),
			CheckedAt:  s.cfg.Now().UTC(),
		}, len(series), nil
	})
}

// CollectProjectChartSeries returns a gap-filled daily series per project over window.
func (s *TrackerServiceImpl) CollectProjectChartSeries(ctx context.Context, creds tracker.Credentials, window tracker.DateWindow) (*tracker.ProjectChartResult, error) {
	return runOperation(ctx, s, tracker.OperationProjects, creds, window, func(ctx context.Context, run *runScope) (*tracker.ProjectChartResult, int, error) {
		rows, err := s.extract(ctx, run, tracker.DimensionProject, window)
		if err != nil {
			return nil, 0, err
		}

		series := make([]tracker.ProjectChartSeries, 0, len(rows))
		for _, row := range rows {
			if !hasActivity(row, window) {
				continue
			}
			series = append(series, tracker.ProjectChartSeries{
				EntityChartSeries: chartSeries(row, window, s.cfg.TargetHoursPerDay),
				Client:            row.Client,
			})
		}
		run.stage(ctx, tracker.StageNormalized, fmt.Sprintf("%d series", len(series)))

		return &tracker.ProjectChartResult{
			DateRange:  window.Range(),
			Series:     series,
			TotalCount: len(series),
			CheckedAt:  s.cfg.Now().UTC(),
		}, len(series), nil
	})
}

func (s *TrackerServiceImpl) extract(ctx context.Context, run *runScope, dim tracker.Dimension, window tracker.DateWindow) ([]tracker.RawEntityRow, error) {
	rows, err := s.extractor.Extract(ctx, run.session.Page, extract.Request{
		WorkspaceID: run.session.WorkspaceID,
		Dimension:   dim,
		Window:      window,
	})
	if err != nil {
		return nil, fmt.Errorf("extract %s report: %w", dim, err)
	}
	sortRows(rows)
	run.stage(ctx, tracker.StageExtracted, fmt.Sprintf("%d %ss", len(rows), dim))
	return rows, nil
}

// contextWindow is [min(from, to-ContextDays), to].
func (s *TrackerServiceImpl) contextWindow(window tracker.DateWindow) tracker.DateWindow {
	from := window.To.AddDate(0, 0, -s.cfg.ContextDays)
	if window.From.Before(from) {
		from = window.From
	}
	return tracker.NewDateWindow(from, window.To)
}

// runScope is one orchestrated call: Idle -> SessionEstablished -> Navigated -> Extracted ->
// Normalized -> Closed.
type runScope struct {
	svc       *TrackerServiceImpl
	id        string
	operation string
	window    tracker.DateWindow
	startedAt time.Time
	session   *tmetric.Session
}

type runScopeKey struct{}

func scopeFromContext(ctx context.Context) *runScope {
	run, _ := ctx.Value(runScopeKey{}).(*runScope)
	return run
}

func (r *runScope) stage(ctx context.Context, stage tracker.Stage, message string) {
	slog.Info("TrackerService: stage", "run_id", r.id, "operation", r.operation, "stage", stage, "message", message)
	r.svc.observer.Observe(ctx, tracker.RunEvent{
		RunID:     r.id,
		Operation: r.operation,
		Stage:     stage,
		Message:   message,
		At:        r.svc.cfg.Now().UTC(),
	})
}

// runOperation owns the session for body: it is released on every exit path and a failure
// never returns partial data.
func runOperation[T any](ctx context.Context, s *TrackerServiceImpl, operation string, creds tracker.Credentials, window tracker.DateWindow,
	body func(ctx context.Context, run *runScope) (T, int, error)) (result T, err error) {
	run := &runScope{
		svc:       s,
		id:        uuid.NewString(),
		operation: operation,
		window:    window,
		startedAt: s.cfg.Now(),
	}
	ctx = context.WithValue(ctx, runScopeKey{}, run)
	run.stage(ctx, tracker.StageIdle, fmt.Sprintf("%s to %s", calendar.FormatISO(window.From), calendar.FormatISO(window.To)))

	var zero T
	count := 0

	if strings.TrimSpace(creds.Email) == "" || creds.Password == "" {
		err = fmt.Errorf("%w: TMETRIC_EMAIL and TMETRIC_PASSWORD must be set", tracker.ErrConfiguration)
		s.finish(ctx, run, nil, 0, err)
		return zero, err
	}

	session, err := s.sessions.Establish(ctx, creds)
	if err != nil {
		s.finish(ctx, run, nil, 0, err)
		return zero, err
	}
	run.session = session
	run.stage(ctx, tracker.StageSessionEstablished, "workspace "+session.WorkspaceID)

	defer func() {
		if err != nil {
			s.snapshot(ctx, run)
		}
		if cerr := session.Close(); cerr != nil {
			slog.Warn("TrackerService: session teardown failed", "run_id", run.id, "error", cerr)
		}
		if err != nil {
			result = zero
			s.finish(ctx, run, nil, 0, err)
			return
		}
		s.finish(ctx, run, result, count, nil)
	}()

	result, count, err = body(ctx, run)
	return result, err
}

// snapshot captures the page for diagnostics. Failures are logged.
func (s *TrackerServiceImpl) snapshot(ctx context.Context, run *runScope) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()

	page := run.session.Page
	if png, err := page.Screenshot(ctx); err != nil {
		slog.Debug("TrackerService: screenshot failed", "run_id", run.id, "error", err)
	} else {
		s.observer.Capture(ctx, tracker.Snapshot{RunID: run.id, Label: "failure", ContentType: "image/png", Data: png})
	}
	if html, err := extract.PageHTML(ctx, page); err != nil {
		slog.Debug("TrackerService: page dump failed", "run_id", run.id, "error", err)
	} else {
		s.observer.Capture(ctx, tracker.Snapshot{RunID: run.id, Label: "failure", ContentType: "text/html", Data: []byte(html)})
	}
}

// finish records the run and emits the terminal Closed event.
func (s *TrackerServiceImpl) finish(ctx context.Context, run *runScope, result any, count int, runErr error) {
	ctx = context.WithoutCancel(ctx)
	success := runErr == nil

	record := &tracker.CheckRun{
		ID:         run.id,
		Operation:  run.operation,
		From:       run.window.From,
		To:         run.window.To,
		Success:    success,
		TotalCount: count,
		StartedAt:  run.startedAt,
		FinishedAt: s.cfg.Now(),
	}
	event := tracker.RunEvent{
		RunID:     run.id,
		Operation: run.operation,
		Stage:     tracker.StageClosed,
		Success:   &success,
		At:        record.FinishedAt.UTC(),
	}

	if success {
		slog.Info("TrackerService: run finished", "run_id", run.id, "operation", run.operation, "total_count", count,
			"duration", record.FinishedAt.Sub(run.startedAt))
		if raw, err := json.Marshal(result); err == nil {
			record.Result = raw
		}
	} else {
		msg := runErr.Error()
		record.Error = &msg
		event.Error = msg
		slog.Error("TrackerService: run failed", "run_id", run.id, "operation", run.operation, "error", runErr)
	}

	if s.runs != nil {
		if err := s.runs.Create(ctx, record); err != nil {
			slog.Warn("TrackerService: failed to record run", "run_id", run.id, "error", err)
		}
	}
	s.observer.Observe(ctx, event)
}
