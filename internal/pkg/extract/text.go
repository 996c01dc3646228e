package extract

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/cmlabs-hris/hours-watch/internal/domain/tracker"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/browser"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/calendar"
)

const cellSelector = `td, th, [role="cell"], .cell`

var (
	summaryRowSelectors = []string{`table.report-table tbody tr`, `.report-table tbody tr`, `table tbody tr`, `[role="row"]`}
	detailRowSelectors  = []string{`tr[data-group-level="0"]`, `tr.group-row`, `table tbody tr`}
	rosterRowSelectors  = []string{`.members-list tr`, `table.members tbody tr`, `[data-member-id]`, `table tbody tr`}

	idAttrs     = []string{"data-group-id", "data-id", "data-user-id", "data-user-profile-id", "data-project-id", "data-member-id"}
	nameAttrs   = []string{"title", "data-name", "aria-label"}
	idHref      = regexp.MustCompile(`(?:user|project|member|profile)s?[=/](\d+)`)
	emailInText = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	totalRow    = regexp.MustCompile(`(?i)^(grand\s+)?total\b`)
)

// textGroupReader parses the rendered grouped report. It is always available.
type textGroupReader struct{}

func (textGroupReader) Name() string { return "text" }

func (textGroupReader) Available(context.Context, browser.Page) bool { return true }

func (textGroupReader) ReadGroups(ctx context.Context, page browser.Page) ([]tracker.RawEntityRow, error) {
	doc, err := pageDocument(ctx, page)
	if err != nil {
		return nil, err
	}
	return parseGroups(doc), nil
}

// PageHTML returns the markup of the report container currently rendered on page.
func PageHTML(ctx context.Context, page browser.Page) (string, error) {
	var html string
	if err := page.Evaluate(ctx, containerHTMLScript, &html); err != nil {
		return "", fmt.Errorf("read report markup: %w", err)
	}
	return html, nil
}

func pageDocument(ctx context.Context, page browser.Page) (*goquery.Document, error) {
	html, err := PageHTML(ctx, page)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// parseGroups walks group rows and their day sub-rows in document order, using the first
// layout that renders any group row.
func parseGroups(doc *goquery.Document) []tracker.RawEntityRow {
	for _, l := range groupLayouts {
		if doc.Find(l.group).Length() == 0 {
			continue
		}

		var rows []tracker.RawEntityRow
		current := -1
		doc.Find(l.group+", "+l.day).Each(func(i int, s *goquery.Selection) {
			cells := s.ChildrenFiltered(cellSelector)
			if s.Is(l.group) {
				current = -1
				row, err := groupRow(s, cells)
				if err != nil {
					slog.Warn("Extractor: group row skipped", "reader", "text", "index", i, "error", err)
					return
				}
				rows = append(rows, row)
				current = len(rows) - 1
				return
			}
			if current < 0 {
				return
			}
			date := rowDate(s, cells)
			minutes, ok := rowDuration(cells)
			if date == "" || !ok {
				return
			}
			rows[current].Days = append(rows[current].Days, tracker.DayDuration{Date: date, Minutes: minutes})
		})
		return rows
	}
	return nil
}

func groupRow(s, cells *goquery.Selection) (tracker.RawEntityRow, error) {
	name := rowName(s, cells)
	id := rowID(s)
	minutes, ok := rowDuration(cells)
	if name == "" && id == "" {
		return tracker.RawEntityRow{}, fmt.Errorf("%w: group row has no name", tracker.ErrExtractionMismatch)
	}
	if !ok {
		return tracker.RawEntityRow{}, fmt.Errorf("%w: group %q has no duration cell", tracker.ErrExtractionMismatch, name)
	}
	return tracker.RawEntityRow{
		ID:           firstNonEmpty(id, name),
		Name:         firstNonEmpty(name, id),
		Email:        rowEmail(s),
		TotalMinutes: minutes,
		Source:       "grouped:text",
	}, nil
}

// summaryRow is one entity row of the flat summary report.
type summaryRow struct {
	ID           string
	Name         string
	Email        string
	TotalMinutes int
}

func parseSummaryRows(doc *goquery.Document) []summaryRow {
	for _, sel := range summaryRowSelectors {
		rows := doc.Find(sel)
		if rows.Length() == 0 {
			continue
		}

		var out []summaryRow
		rows.Each(func(i int, s *goquery.Selection) {
			if s.HasClass("total") || s.HasClass("footer") {
				return
			}
			cells := s.ChildrenFiltered(cellSelector)
			name := rowName(s, cells)
			if totalRow.MatchString(name) {
				return
			}
			id := rowID(s)
			if name == "" && id == "" {
				slog.Warn("Extractor: summary row skipped", "index", i,
					"error", fmt.Errorf("%w: row has no name", tracker.ErrExtractionMismatch))
				return
			}
			minutes, ok := rowDuration(cells)
			if !ok {
				slog.Warn("Extractor: summary row skipped", "index", i, "name", name,
					"error", fmt.Errorf("%w: no duration cell", tracker.ErrExtractionMismatch))
				return
			}
			out = append(out, summaryRow{ID: id, Name: firstNonEmpty(name, id), Email: rowEmail(s), TotalMinutes: minutes})
		})
		return out
	}
	return nil
}

// parseDetailDays reads date/duration pairs from a per-entity detailed report. Day header
// rows win over entry rows so an entry is never counted twice.
func parseDetailDays(doc *goquery.Document) []tracker.DayDuration {
	for _, sel := range detailRowSelectors {
		var days []tracker.DayDuration
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			cells := s.ChildrenFiltered(cellSelector)
			date := rowDate(s, cells)
			if date == "" {
				return
			}
			minutes, ok := rowDuration(cells)
			if !ok {
				return
			}
			days = append(days, tracker.DayDuration{Date: date, Minutes: minutes})
		})
		if len(days) > 0 {
			return days
		}
	}
	return nil
}

func parseRoster(doc *goquery.Document) []tracker.RawEntityRow {
	for _, sel := range rosterRowSelectors {
		rows := doc.Find(sel)
		if rows.Length() == 0 {
			continue
		}

		seen := make(map[string]bool)
		var members []tracker.RawEntityRow
		rows.Each(func(_ int, s *goquery.Selection) {
			cells := s.ChildrenFiltered(cellSelector)
			name := firstNonEmpty(cleanText(s.Find(".member-name, .name").First().Text()), rowName(s, cells))
			email := rowEmail(s)
			if name == "" && email == "" {
				return
			}
			id := firstNonEmpty(rowID(s), email, name)
			if seen[id] {
				return
			}
			seen[id] = true
			members = append(members, tracker.RawEntityRow{
				ID:     id,
				Name:   firstNonEmpty(name, email),
				Email:  email,
				Source: "roster",
			})
		})
		if len(members) > 0 {
			return members
		}
	}
	return nil
}

// rowName prefers rendered text and falls back to naming attributes.
func rowName(s, cells *goquery.Selection) string {
	candidates := []*goquery.Selection{s.Find(".group-name").First()}
	if cells.Length() > 0 {
		candidates = append(candidates, cells.First())
	}
	for _, c := range candidates {
		if c.Length() == 0 {
			continue
		}
		text := stripEmail(cleanText(c.Text()))
		if _, isDuration := ParseDuration(text); text != "" && !isDuration {
			return text
		}
		for _, attr := range nameAttrs {
			if v, ok := c.Attr(attr); ok && cleanText(v) != "" {
				return cleanText(v)
			}
		}
	}
	for _, attr := range nameAttrs {
		if v, ok := s.Attr(attr); ok && cleanText(v) != "" {
			return cleanText(v)
		}
	}
	return ""
}

func rowID(s *goquery.Selection) string {
	for _, attr := range idAttrs {
		if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	var id string
	s.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if m := idHref.FindStringSubmatch(href); m != nil {
			id = m[1]
			return false
		}
		return true
	})
	return id
}

func rowEmail(s *goquery.Selection) string {
	if href, ok := s.Find(`a[href^="mailto:"]`).First().Attr("href"); ok {
		return strings.TrimPrefix(href, "mailto:")
	}
	if text := cleanText(s.Find(".email").First().Text()); text != "" {
		return text
	}
	var email string
	s.ChildrenFiltered(cellSelector).EachWithBreak(func(_ int, c *goquery.Selection) bool {
		email = emailInText.FindString(c.Text())
		return email == ""
	})
	if email != "" {
		return email
	}
	return emailInText.FindString(s.Text())
}

// rowDuration probes the last cell, then the second-to-last.
func rowDuration(cells *goquery.Selection) (int, bool) {
	n := cells.Length()
	for _, i := range []int{n - 1, n - 2} {
		if i < 0 {
			continue
		}
		if minutes, ok := ParseDuration(cleanText(cells.Eq(i).Text())); ok {
			return minutes, true
		}
	}
	return 0, false
}

// rowDate finds the first cell carrying a calendar date and returns it as ISO.
func rowDate(s, cells *goquery.Selection) string {
	for _, attr := range []string{"data-day", "data-date"} {
		if v, ok := s.Attr(attr); ok {
			if d, err := calendar.ParseDay(v); err == nil {
				return calendar.FormatISO(d)
			}
		}
	}
	var date string
	cells.EachWithBreak(func(_ int, c *goquery.Selection) bool {
		for _, token := range strings.Fields(c.Text()) {
			if d, err := calendar.ParseDay(strings.Trim(token, ",")); err == nil {
				date = calendar.FormatISO(d)
				return false
			}
		}
		return true
	})
	return date
}

func stripEmail(text string) string {
	return cleanText(emailInText.ReplaceAllString(text, ""))
}
