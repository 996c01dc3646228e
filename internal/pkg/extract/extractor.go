// Package extract pulls per-entity rows out of rendered report views.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hours-watch/internal/domain/tracker"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/browser"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/tmetric"
)

// Navigator routes a page to an in-app path and waits for it to render.
type Navigator interface {
	Open(ctx context.Context, page browser.Page, path string) error
}

// GroupReader reads entity group rows from a rendered grouped report.
type GroupReader interface {
	Name() string
	// Available reports whether the reader can work against the current page.
	Available(ctx context.Context, page browser.Page) bool
	ReadGroups(ctx context.Context, page browser.Page) ([]tracker.RawEntityRow, error)
}

// Request names the report slice to extract.
type Request struct {
	WorkspaceID string
	Dimension   tracker.Dimension
	Window      tracker.DateWindow
}

// strategy returns ok=false when it produced nothing usable and the next one should run.
type strategy struct {
	name string
	run  func(ctx context.Context, page browser.Page, req Request) (rows []tracker.RawEntityRow, ok bool, err error)
}

// Extractor tries the grouped report first and drills down entity by entity when the
// grouped report yields nothing.
type Extractor struct {
	nav        Navigator
	readers    []GroupReader
	strategies []strategy
}

// Option configures an Extractor.
type Option func(*extractorOptions)

type extractorOptions struct {
	loc *time.Location
}

// WithLocation sets the timezone the browser renders in. Day timestamps found in page state
// are read as calendar dates there. Defaults to the host's local timezone.
func WithLocation(loc *time.Location) Option {
	return func(o *extractorOptions) {
		if loc != nil {
			o.loc = loc
		}
	}
}

func NewExtractor(nav Navigator, opts ...Option) *Extractor {
	o := extractorOptions{loc: time.Local}
	for _, opt := range opts {
		opt(&o)
	}
	e := &Extractor{
		nav:     nav,
		readers: []GroupReader{stateGroupReader{loc: o.loc}, textGroupReader{}},
	}
	e.strategies = []strategy{
		{name: "grouped", run: e.grouped},
		{name: "drilldown", run: e.drilldown},
	}
	return e
}

// Extract returns one row per entity that appears in the report. An empty report is an
// empty result, not an error.
func (e *Extractor) Extract(ctx context.Context, page browser.Page, req Request) ([]tracker.RawEntityRow, error) {
	var lastErr error
	for _, s := range e.strategies {
		rows, ok, err := s.run(ctx, page, req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			slog.Warn("Extractor: strategy failed", "strategy", s.name, "dimension", req.Dimension, "error", err)
			lastErr = err
			continue
		}
		if ok {
			slog.Info("Extractor: rows extracted", "strategy", s.name, "dimension", req.Dimension, "rows", len(rows))
			return rows, nil
		}
		slog.Info("Extractor: strategy yielded nothing", "strategy", s.name, "dimension", req.Dimension)
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return []tracker.RawEntityRow{}, nil
}

func (e *Extractor) grouped(ctx context.Context, page browser.Page, req Request) ([]tracker.RawEntityRow, bool, error) {
	route := tmetric.GroupedRoute(req.WorkspaceID, req.Dimension, req.Window)
	if err := e.nav.Open(ctx, page, route.Path()); err != nil {
		return nil, false, err
	}

	for _, r := range e.readers {
		if !r.Available(ctx, page) {
			continue
		}
		rows, err := r.ReadGroups(ctx, page)
		if err != nil {
			if ctx.Err() != nil {
				return nil, false, err
			}
			slog.Warn("Extractor: group reader failed", "reader", r.Name(), "error", err)
			continue
		}
		if len(rows) > 0 {
			return rows, true, nil
		}
	}
	return nil, false, nil
}

// drilldown lists entities from the flat summary and opens a detailed report for each one
// with time in the window. A failed drill-down leaves an incomplete placeholder row.
func (e *Extractor) drilldown(ctx context.Context, page browser.Page, req Request) ([]tracker.RawEntityRow, bool, error) {
	route := tmetric.SummaryRoute(req.WorkspaceID, req.Dimension, req.Window)
	if err := e.nav.Open(ctx, page, route.Path()); err != nil {
		return nil, false, err
	}
	doc, err := pageDocument(ctx, page)
	if err != nil {
		return nil, false, err
	}

	summary := parseSummaryRows(doc)
	rows := make([]tracker.RawEntityRow, 0, len(summary))
	for _, s := range summary {
		row := tracker.RawEntityRow{
			ID:           firstNonEmpty(s.ID, s.Name),
			Name:         s.Name,
			Email:        s.Email,
			TotalMinutes: s.TotalMinutes,
			Source:       "drilldown",
		}
		if s.TotalMinutes == 0 {
			rows = append(rows, row)
			continue
		}

		days, err := e.detail(ctx, page, req, s)
		if err != nil {
			if ctx.Err() != nil {
				return nil, false, ctx.Err()
			}
			slog.Warn("Extractor: drill-down failed, keeping placeholder", "entity", s.Name, "error", err)
			row.Incomplete = true
		}
		row.Days = days
		rows = append(rows, row)
	}
	return rows, true, nil
}

func (e *Extractor) detail(ctx context.Context, page browser.Page, req Request, s summaryRow) ([]tracker.DayDuration, error) {
	if s.ID == "" {
		return nil, fmt.Errorf("%w: %q has no identifier to drill into", tracker.ErrExtractionMismatch, s.Name)
	}
	route := tmetric.DetailRoute(req.WorkspaceID, req.Dimension, s.ID, req.Window)
	if err := e.nav.Open(ctx, page, route.Path()); err != nil {
		return nil, err
	}
	doc, err := pageDocument(ctx, page)
	if err != nil {
		return nil, err
	}
	days := parseDetailDays(doc)
	if len(days) == 0 {
		return nil, errors.New("detailed report lists no days")
	}
	return days, nil
}

// Roster lists workspace members from the members view, including members who never
// tracked time.
func (e *Extractor) Roster(ctx context.Context, page browser.Page, workspaceID string) ([]tracker.RawEntityRow, error) {
	if err := e.nav.Open(ctx, page, tmetric.MembersPath(workspaceID)); err != nil {
		return nil, err
	}
	doc, err := pageDocument(ctx, page)
	if err != nil {
		return nil, err
	}
	members := parseRoster(doc)
	slog.Info("Extractor: roster read", "workspace_id", workspaceID, "members", len(members))
	return members, nil
}
