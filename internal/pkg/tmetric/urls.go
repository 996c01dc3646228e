package tmetric

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/cmlabs-hris/hours-watch/internal/domain/tracker"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/calendar"
)

const (
	DefaultBaseURL      = "https://app.tmetric.com"
	DefaultIdentityHost = "id.tmetric.com"
)

// ReportKind names a reporting view of the application.
type ReportKind string

const (
	// ReportSummary aggregates durations by the groupby dimensions.
	ReportSummary ReportKind = "summary"
	// ReportDetailed lists day rows for a filtered entity.
	ReportDetailed ReportKind = "detailed"
)

// GroupDay is the secondary grouping that nests per-day sub-rows.
const GroupDay = "day"

var workspacePattern = regexp.MustCompile(`/tracker/(\d+)`)

// WorkspaceFromURL extracts the workspace identifier from a post-login location.
func WorkspaceFromURL(location string) (string, bool) {
	m := workspacePattern.FindStringSubmatch(location)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// RangeToken encodes a window as YYYYMMDD-YYYYMMDD.
func RangeToken(w tracker.DateWindow) string {
	return calendar.FormatCompact(w.From) + "-" + calendar.FormatCompact(w.To)
}

// Route identifies one report view. Its Path is an in-app (hash) route.
type Route struct {
	Kind        ReportKind
	WorkspaceID string
	Window      tracker.DateWindow
	GroupBy     []string
	// Filters narrow the report, e.g. {"user": "42"} for a drill-down.
	Filters map[string]string
}

// GroupedRoute is the summary report grouped by dimension and then by day.
func GroupedRoute(workspaceID string, dim tracker.Dimension, w tracker.DateWindow) Route {
	return Route{Kind: ReportSummary, WorkspaceID: workspaceID, Window: w, GroupBy: []string{string(dim), GroupDay}}
}

// SummaryRoute is the flat staff summary: one row per entity.
func SummaryRoute(workspaceID string, dim tracker.Dimension, w tracker.DateWindow) Route {
	return Route{Kind: ReportSummary, WorkspaceID: workspaceID, Window: w, GroupBy: []string{string(dim)}}
}

// DetailRoute is the per-entity detailed report grouped by day.
func DetailRoute(workspaceID string, dim tracker.Dimension, entityID string, w tracker.DateWindow) Route {
	return Route{
		Kind:        ReportDetailed,
		WorkspaceID: workspaceID,
		Window:      w,
		GroupBy:     []string{GroupDay},
		Filters:     map[string]string{string(dim): entityID},
	}
}

// Path renders the route, e.g. /reports/123/summary?range=20251001-20251031&groupby=user,day.
func (r Route) Path() string {
	var b strings.Builder
	b.WriteString("/reports/")
	b.WriteString(url.PathEscape(r.WorkspaceID))
	b.WriteString("/")
	b.WriteString(string(r.Kind))
	b.WriteString("?range=")
	b.WriteString(RangeToken(r.Window))
	if len(r.GroupBy) > 0 {
		groups := make([]string, len(r.GroupBy))
		for i, g := range r.GroupBy {
			groups[i] = url.QueryEscape(g)
		}
		b.WriteString("&groupby=")
		b.WriteString(strings.Join(groups, ","))
	}

	keys := make([]string, 0, len(r.Filters))
	for k := range r.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString("&")
		b.WriteString(url.QueryEscape(k))
		b.WriteString("=")
		b.WriteString(url.QueryEscape(r.Filters[k]))
	}
	return b.String()
}

// MembersPath is the workspace roster view.
func MembersPath(workspaceID string) string {
	return "/members/" + url.PathEscape(workspaceID)
}

// AppURL turns an in-app path into a full hash-routed URL.
func AppURL(baseURL, path string) string {
	return strings.TrimRight(baseURL, "/") + "/#" + path
}

// LoginURL is the entry point of the login flow.
func LoginURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/login"
}
