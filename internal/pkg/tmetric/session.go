// Package tmetric drives the TMetric web application: it logs in, discovers the workspace
// and routes the single-page app to report views.
package tmetric

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cmlabs-hris/hours-watch/internal/domain/tracker"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/browser"
)

const (
	emailSelector    = `input[type="email"], input[name="email"], input[name="Email"]`
	passwordSelector = `input[type="password"]`
	submitSelector   = `button[type="submit"], input[type="submit"]`
)

const challengeScript = `/* challenge:detect */ (() => {
	const visible = el => !!el && el.offsetParent !== null;
	if (/just a moment|verify you are human|attention required/i.test(document.title)) return true;
	if (document.querySelector('#challenge-form, #cf-challenge-running, .cf-browser-verification')) return true;
	const frames = document.querySelectorAll('iframe[src*="recaptcha/api2/bframe"], iframe[src*="hcaptcha.com"]');
	for (const f of frames) { if (visible(f)) return true; }
	return false;
})()`

// SessionConfig locates the application and bounds the login flow.
type SessionConfig struct {
	BaseURL       string
	IdentityHost  string
	FormTimeout   time.Duration
	LoginTimeout  time.Duration
	WorkspaceWait time.Duration
	PollInterval  time.Duration
}

// Session is an authenticated browser page bound to one workspace.
type Session struct {
	Page        browser.Page
	WorkspaceID string

	release func() error
	once    sync.Once
	err     error
}

// Close releases the browser context. It is idempotent; failures wrap ErrSessionTeardown.
func (s *Session) Close() error {
	s.once.Do(func() {
		if s.release == nil {
			return
		}
		if err := s.release(); err != nil {
			s.err = fmt.Errorf("%w: %v", tracker.ErrSessionTeardown, err)
		}
	})
	return s.err
}

// SessionManager logs in to a fresh browser context per Establish call.
type SessionManager struct {
	launcher browser.Launcher
	cfg      SessionConfig
}

func NewSessionManager(launcher browser.Launcher, cfg SessionConfig) *SessionManager {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.IdentityHost == "" {
		cfg.IdentityHost = DefaultIdentityHost
	}
	if cfg.FormTimeout == 0 {
		cfg.FormTimeout = 15 * time.Second
	}
	if cfg.LoginTimeout == 0 {
		cfg.LoginTimeout = 30 * time.Second
	}
	if cfg.WorkspaceWait == 0 {
		cfg.WorkspaceWait = 15 * time.Second
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	return &SessionManager{launcher: launcher, cfg: cfg}
}

// Establish launches an isolated browser, logs in with creds and discovers the workspace.
// On any failure the browser is already closed when the error is returned.
func (m *SessionManager) Establish(ctx context.Context, creds tracker.Credentials) (*Session, error) {
	if strings.TrimSpace(creds.Email) == "" || creds.Password == "" {
		return nil, fmt.Errorf("%w: tracker credentials are not set", tracker.ErrConfiguration)
	}

	page, release, err := m.launcher.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	sess := &Session{Page: page, release: release}

	fail := func(err error) (*Session, error) {
		if cerr := sess.Close(); cerr != nil {
			slog.Warn("SessionManager: close after failed login", "error", cerr)
		}
		return nil, err
	}

	if err := m.login(ctx, page, creds); err != nil {
		return fail(err)
	}

	workspaceID, err := m.discoverWorkspace(ctx, page)
	if err != nil {
		return fail(err)
	}
	sess.WorkspaceID = workspaceID

	slog.Info("SessionManager: session established", "workspace_id", workspaceID)
	return sess, nil
}

func (m *SessionManager) login(ctx context.Context, page browser.Page, creds tracker.Credentials) error {
	if err := page.Navigate(ctx, LoginURL(m.cfg.BaseURL)); err != nil {
		return fmt.Errorf("%w: open login page: %v", tracker.ErrAuthentication, err)
	}

	if err := page.WaitVisible(ctx, emailSelector, m.cfg.FormTimeout); err != nil {
		if m.challenged(ctx, page) {
			return tracker.ErrBotChallenge
		}
		return fmt.Errorf("%w: login form not found: %v", tracker.ErrAuthentication, err)
	}
	if err := page.Type(ctx, emailSelector, creds.Email); err != nil {
		return fmt.Errorf("%w: enter email: %v", tracker.ErrAuthentication, err)
	}
	if err := page.Type(ctx, passwordSelector, creds.Password); err != nil {
		return fmt.Errorf("%w: enter password: %v", tracker.ErrAuthentication, err)
	}
	if err := page.Click(ctx, submitSelector); err != nil {
		return fmt.Errorf("%w: submit login form: %v", tracker.ErrAuthentication, err)
	}

	deadline := time.Now().Add(m.cfg.LoginTimeout)
	for {
		location, err := page.Location(ctx)
		if err == nil && !m.onLoginPage(location) {
			return nil
		}
		if m.challenged(ctx, page) {
			return tracker.ErrBotChallenge
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: still on login page after submit", tracker.ErrAuthentication)
		}
		if err := browser.Sleep(ctx, m.cfg.PollInterval); err != nil {
			return err
		}
	}
}

// discoverWorkspace reads the workspace id from the landing URL, waiting once for the app
// to redirect when the id is not there yet.
func (m *SessionManager) discoverWorkspace(ctx context.Context, page browser.Page) (string, error) {
	deadline := time.Now().Add(m.cfg.WorkspaceWait)
	var last string
	for {
		location, err := page.Location(ctx)
		if err == nil {
			last = location
			if id, ok := WorkspaceFromURL(location); ok {
				return id, nil
			}
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("%w: workspace id not found in %q", tracker.ErrAuthentication, last)
		}
		if err := browser.Sleep(ctx, m.cfg.PollInterval); err != nil {
			return "", err
		}
	}
}

func (m *SessionManager) onLoginPage(location string) bool {
	u, err := url.Parse(location)
	if err != nil {
		return true
	}
	if strings.EqualFold(u.Hostname(), m.cfg.IdentityHost) {
		return true
	}
	return strings.Contains(u.Path, "/login") || strings.Contains(u.Fragment, "/login")
}

func (m *SessionManager) challenged(ctx context.Context, page browser.Page) bool {
	var detected bool
	if err := page.Evaluate(ctx, challengeScript, &detected); err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Debug("SessionManager: challenge probe failed", "error", err)
		}
		return false
	}
	return detected
}
