package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/hours-watch/internal/domain/tracker"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/browser"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/calendar"
)

var (
	idKeys       = []string{"id", "key", "userProfileId", "accountId", "projectId", "memberId"}
	nameKeys     = []string{"name", "title", "caption", "displayName", "userName", "projectName"}
	durationKeys = []string{"duration", "totalDuration", "durationMs", "total", "time"}
	childKeys    = []string{"groups", "subGroups", "items", "children", "days"}
	dayKeys      = []string{"day", "date", "key", "name", "title"}
	nestedKeys   = []string{"user", "profile", "project", "entity"}
)

// stateGroup is one group row as reported by readGroupStatesScript.
type stateGroup struct {
	Text  string         `json:"text"`
	Title string         `json:"title"`
	State map[string]any `json:"state"`
}

// stateGroupReader reads durations from the state object the page's client framework binds
// to each group row. Timestamps in state are read as dates in loc, the browser's timezone.
type stateGroupReader struct {
	loc *time.Location
}

func (stateGroupReader) Name() string { return "state" }

func (stateGroupReader) Available(ctx context.Context, page browser.Page) bool {
	var ok bool
	if err := page.Evaluate(ctx, probeStateScript, &ok); err != nil {
		slog.Debug("Extractor: state probe failed", "error", err)
		return false
	}
	return ok
}

func (r stateGroupReader) ReadGroups(ctx context.Context, page browser.Page) ([]tracker.RawEntityRow, error) {
	selectors := make([]string, len(groupLayouts))
	for i, l := range groupLayouts {
		selectors[i] = l.group
	}
	encoded, err := json.Marshal(selectors)
	if err != nil {
		return nil, err
	}

	var groups []stateGroup
	if err := page.Evaluate(ctx, fmt.Sprintf(readGroupStatesScript, encoded), &groups); err != nil {
		return nil, fmt.Errorf("read group states: %w", err)
	}

	rows := make([]tracker.RawEntityRow, 0, len(groups))
	for i, g := range groups {
		row, err := decodeGroup(g, r.loc)
		if err != nil {
			slog.Warn("Extractor: group row skipped", "reader", "state", "index", i, "error", err)
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// decodeGroup turns a group state into a row. The display name comes from the rendered
// cell; durations come only from state.
func decodeGroup(g stateGroup, loc *time.Location) (tracker.RawEntityRow, error) {
	if g.State == nil {
		return tracker.RawEntityRow{}, fmt.Errorf("%w: no state bound to row %q", tracker.ErrExtractionMismatch, g.Text)
	}
	state := g.State

	row := tracker.RawEntityRow{
		ID:     stringField(state, idKeys...),
		Name:   firstNonEmpty(stripEmail(g.Text), stripEmail(g.Title), stringField(state, nameKeys...)),
		Email:  stringField(state, "email"),
		Client: stringField(state, "clientName"),
		Source: "grouped:state",
	}
	for _, key := range nestedKeys {
		nested, ok := state[key].(map[string]any)
		if !ok {
			continue
		}
		if row.ID == "" {
			row.ID = stringField(nested, idKeys...)
		}
		if row.Name == "" {
			row.Name = stringField(nested, nameKeys...)
		}
		if row.Email == "" {
			row.Email = stringField(nested, "email")
		}
	}
	if client, ok := state["client"].(map[string]any); ok && row.Client == "" {
		row.Client = stringField(client, nameKeys...)
	}
	if row.Name == "" && row.ID == "" {
		return tracker.RawEntityRow{}, fmt.Errorf("%w: group state has neither name nor id", tracker.ErrExtractionMismatch)
	}
	if row.ID == "" {
		row.ID = row.Name
	}

	total, hasTotal := durationField(state)
	for _, child := range childList(state) {
		date := dayField(child, loc)
		if date == "" {
			continue
		}
		minutes, _ := durationField(child)
		row.Days = append(row.Days, tracker.DayDuration{Date: date, Minutes: minutes})
	}

	switch {
	case hasTotal:
		row.TotalMinutes = total
	case len(row.Days) > 0:
		for _, d := range row.Days {
			row.TotalMinutes += d.Minutes
		}
	default:
		return tracker.RawEntityRow{}, fmt.Errorf("%w: group %q carries no duration", tracker.ErrExtractionMismatch, row.Name)
	}
	return row, nil
}

func childList(state map[string]any) []map[string]any {
	for _, key := range childKeys {
		items, ok := state[key].([]any)
		if !ok {
			continue
		}
		out := make([]map[string]any, 0, len(items))
		for _, item := range items {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

// durationField reads a millisecond duration, or a rendered one when state holds text.
func durationField(m map[string]any) (int, bool) {
	for _, key := range durationKeys {
		switch v := m[key].(type) {
		case float64:
			return MillisToMinutes(v), true
		case string:
			if minutes, ok := ParseDuration(v); ok {
				return minutes, true
			}
		}
	}
	return 0, false
}

// dayField returns the day of a sub-group as text the aggregator can parse. Instants
// (epoch milliseconds, RFC 3339 timestamps) become their calendar date in loc.
func dayField(m map[string]any, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	for _, key := range dayKeys {
		switch v := m[key].(type) {
		case string:
			if t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(v)); err == nil {
				return calendar.FormatISO(t.In(loc))
			}
			if _, err := calendar.ParseDay(v); err == nil {
				return v
			}
		case float64:
			if v > 0 {
				return calendar.FormatISO(time.UnixMilli(int64(v)).In(loc))
			}
		}
	}
	return ""
}

func stringField(m map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := m[key].(type) {
		case string:
			if s := cleanText(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
