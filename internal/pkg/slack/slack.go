// Package slack posts absence reports to an incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cmlabs-hris/hours-watch/internal/domain/tracker"
)

const (
	maxRetries = 3
	maxListed  = 10
)

// ErrNotConfigured is returned when no webhook URL is set.
var ErrNotConfigured = errors.New("slack webhook not configured")

type Block struct {
	Type     string `json:"type"`
	Text     *Text  `json:"text,omitempty"`
	Fields   []Text `json:"fields,omitempty"`
	Elements []Text `json:"elements,omitempty"`
}

type Text struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

type Message struct {
	Text   string  `json:"text"`
	Blocks []Block `json:"blocks,omitempty"`
}

type Notifier struct {
	webhookURL      string
	client          *http.Client
	absenceWorkdays int
	backoff         time.Duration
	now             func() time.Time
}

type Option func(*Notifier)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(n *Notifier) { n.client = c }
}

// WithBackoff sets the base delay between attempts; it doubles after each failure.
func WithBackoff(d time.Duration) Option {
	return func(n *Notifier) { n.backoff = d }
}

func WithClock(now func() time.Time) Option {
	return func(n *Notifier) { n.now = now }
}

func NewNotifier(webhookURL string, absenceWorkdays int, opts ...Option) *Notifier {
	n := &Notifier{
		webhookURL:      webhookURL,
		client:          &http.Client{Timeout: 10 * time.Second},
		absenceWorkdays: absenceWorkdays,
		backoff:         time.Second,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *Notifier) Enabled() bool {
	return n != nil && n.webhookURL != ""
}

// NotifyAbsences posts the result of an absence check. manual distinguishes dashboard
// checks from scheduled ones.
func (n *Notifier) NotifyAbsences(ctx context.Context, result tracker.AbsenceResult, manual bool) error {
	if !n.Enabled() {
		slog.Warn("Slack webhook not configured, skipping notification")
		return ErrNotConfigured
	}
	return n.post(ctx, n.AbsenceMessage(result, manual))
}

// AbsenceMessage builds the Block Kit payload for result.
func (n *Notifier) AbsenceMessage(result tracker.AbsenceResult, manual bool) Message {
	trigger := ":robot_face: Scheduled check"
	if manual {
		trigger = ":large_blue_circle: Manual check"
	}
	period := fmt.Sprintf("*Period:*\n%s → %s", result.DateRange.From, result.DateRange.To)
	entities := result.EntitiesWithoutActivity

	if len(entities) == 0 {
		return Message{
			Text: ":white_check_mark: Everyone logged hours",
			Blocks: []Block{
				{Type: "header", Text: &Text{Type: "plain_text", Text: ":white_check_mark: Hours check: everyone OK", Emoji: true}},
				{Type: "section", Fields: []Text{
					{Type: "mrkdwn", Text: "*Trigger:*\n" + trigger},
					{Type: "mrkdwn", Text: period},
				}},
				{Type: "context", Elements: []Text{
					{Type: "mrkdwn", Text: fmt.Sprintf("Everyone logged hours in the last %d workdays", n.absenceWorkdays)},
				}},
			},
		}
	}

	var lines []string
	for i, e := range entities {
		if i == maxListed {
			break
		}
		lines = append(lines, entityLine(e))
	}
	detail := "*Details:*\n\n" + strings.Join(lines, "\n\n")
	if extra := len(entities) - maxListed; extra > 0 {
		detail += fmt.Sprintf("\n\n_...and %d more_", extra)
	}

	return Message{
		Text: fmt.Sprintf(":warning: %d people without logged hours", len(entities)),
		Blocks: []Block{
			{Type: "header", Text: &Text{Type: "plain_text", Text: fmt.Sprintf(":warning: Hours alert: %d people without hours", len(entities)), Emoji: true}},
			{Type: "section", Fields: []Text{
				{Type: "mrkdwn", Text: "*Trigger:*\n" + trigger},
				{Type: "mrkdwn", Text: period},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Affected:*\n%d", len(entities))},
				{Type: "mrkdwn", Text: "*Date:*\n" + n.now().UTC().Format("2006-01-02 15:04 MST")},
			}},
			{Type: "section", Text: &Text{Type: "mrkdwn", Text: detail}},
			{Type: "divider"},
			{Type: "context", Elements: []Text{
				{Type: "mrkdwn", Text: "*Action:* follow up with each person about the missing entries"},
			}},
		},
	}
}

func entityLine(e tracker.EntityWithoutActivity) string {
	days := "?"
	if e.DaysSinceLastActivity != nil {
		days = fmt.Sprintf("%d", *e.DaysSinceLastActivity)
	}
	last := "no entries"
	if e.LastActivityDate != nil {
		last = *e.LastActivityDate
	}
	total := e.TotalHoursTrailingWindow
	if total == "" {
		total = "0 h 0 min"
	}
	line := fmt.Sprintf("• *%s*\n  └ %s workdays since | Last: %s | Total: %s", e.Name, days, last, total)
	if e.DataIncomplete {
		line += " | _incomplete data_"
	}
	return line
}

func (n *Notifier) post(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode slack message: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		lastErr = n.send(ctx, body)
		if lastErr == nil {
			slog.Info("Slack notification sent", "attempt", attempt)
			return nil
		}

		slog.Error("Failed to send Slack notification",
			"attempt", attempt,
			"max_retries", maxRetries,
			"error", lastErr,
		)

		if attempt < maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(n.backoff * time.Duration(1<<(attempt-1))):
			}
		}
	}

	return fmt.Errorf("failed to send slack notification after %d attempts: %w", maxRetries, lastErr)
}

func (n *Notifier) send(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack returned %d: %s", resp.StatusCode, strings.TrimSpace(string(text)))
	}
	return nil
}
