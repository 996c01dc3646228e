package tmetric_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/hours-watch/internal/domain/tracker"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/browser/browsertest"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/tmetric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var creds = tracker.Credentials{Email: "ops@example.com", Password: "secret"}

func fastSession(l *browsertest.Launcher) *tmetric.SessionManager {
	return tmetric.NewSessionManager(l, tmetric.SessionConfig{
		FormTimeout:   50 * time.Millisecond,
		LoginTimeout:  50 * time.Millisecond,
		WorkspaceWait: 50 * time.Millisecond,
		PollInterval:  5 * time.Millisecond,
	})
}

func loginPage(landing string) *browsertest.Page {
	page := &browsertest.Page{}
	page.Returns("challenge:detect", false)
	page.OnClick = func(p *browsertest.Page, selector string) {
		if landing != "" {
			p.SetURL(landing)
		}
	}
	return page
}

func TestEstablish_Success(t *testing.T) {
	page := loginPage("https://app.tmetric.com/#/tracker/4242/")
	l := &browsertest.Launcher{Page: page}

	sess, err := fastSession(l).Establish(context.Background(), creds)
	require.NoError(t, err)

	assert.Equal(t, "4242", sess.WorkspaceID)
	assert.Equal(t, []string{"https://app.tmetric.com/login"}, page.Navigated)
	assert.Contains(t, page.Typed, `input[type="password"]`)
	assert.Equal(t, 0, l.Released())

	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close())
	assert.Equal(t, 1, l.Released())
}

func TestEstablish_WaitsForWorkspaceRedirect(t *testing.T) {
	page := loginPage("https://app.tmetric.com/#/")
	page.OnClick = func(p *browsertest.Page, selector string) {
		p.SetURL("https://app.tmetric.com/#/")
		time.AfterFunc(10*time.Millisecond, func() { p.SetURL("https://app.tmetric.com/#/tracker/99/") })
	}
	l := &browsertest.Launcher{Page: page}
	m := tmetric.NewSessionManager(l, tmetric.SessionConfig{
		LoginTimeout:  time.Second,
		WorkspaceWait: time.Second,
		PollInterval:  5 * time.Millisecond,
	})

	sess, err := m.Establish(context.Background(), creds)
	require.NoError(t, err)
	defer sess.Close()

	assert.Equal(t, "99", sess.WorkspaceID)
}

func TestEstablish_RejectedCredentials(t *testing.T) {
	page := loginPage("")
	l := &browsertest.Launcher{Page: page}

	sess, err := fastSession(l).Establish(context.Background(), creds)

	assert.Nil(t, sess)
	assert.ErrorIs(t, err, tracker.ErrAuthentication)
	assert.NotErrorIs(t, err, tracker.ErrBotChallenge)
	assert.Equal(t, 1, l.Released())
}

func TestEstablish_BotChallenge(t *testing.T) {
	page := loginPage("")
	page.Returns("challenge:detect", true)
	l := &browsertest.Launcher{Page: page}

	_, err := fastSession(l).Establish(context.Background(), creds)

	assert.ErrorIs(t, err, tracker.ErrBotChallenge)
	assert.ErrorIs(t, err, tracker.ErrAuthentication)
	assert.Equal(t, 1, l.Released())
}

func TestEstablish_MissingForm(t *testing.T) {
	page := loginPage("")
	page.Visible = []string{}
	l := &browsertest.Launcher{Page: page}

	_, err := fastSession(l).Establish(context.Background(), creds)

	assert.ErrorIs(t, err, tracker.ErrAuthentication)
	assert.Empty(t, page.Clicked)
	assert.Equal(t, 1, l.Released())
}

func TestEstablish_NoWorkspace(t *testing.T) {
	page := loginPage("https://app.tmetric.com/#/welcome")
	l := &browsertest.Launcher{Page: page}

	_, err := fastSession(l).Establish(context.Background(), creds)

	assert.ErrorIs(t, err, tracker.ErrAuthentication)
	assert.Contains(t, err.Error(), "workspace")
	assert.Equal(t, 1, l.Released())
}

func TestEstablish_MissingCredentials(t *testing.T) {
	l := &browsertest.Launcher{Page: &browsertest.Page{}}

	_, err := fastSession(l).Establish(context.Background(), tracker.Credentials{Email: "ops@example.com"})

	assert.ErrorIs(t, err, tracker.ErrConfiguration)
	assert.Equal(t, 0, l.Launched())
}

func TestEstablish_LaunchFailure(t *testing.T) {
	l := &browsertest.Launcher{Err: errors.New("chrome not found")}

	_, err := fastSession(l).Establish(context.Background(), creds)

	assert.ErrorContains(t, err, "chrome not found")
}

func TestSessionClose_TeardownError(t *testing.T) {
	page := loginPage("https://app.tmetric.com/#/tracker/1/")
	l := &browsertest.Launcher{Page: page, ReleaseErr: errors.New("target closed")}

	sess, err := fastSession(l).Establish(context.Background(), creds)
	require.NoError(t, err)

	assert.ErrorIs(t, sess.Close(), tracker.ErrSessionTeardown)
}
