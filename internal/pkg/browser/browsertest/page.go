// Package browsertest provides a scripted in-memory browser.Page for tests.
package browsertest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cmlabs-hris/hours-watch/internal/pkg/browser"
)

// EvalFunc answers one Evaluate call. The returned value is JSON round-tripped into the
// caller's destination, the way a real page result would be.
type EvalFunc func(p *Page, expression string) (any, error)

type handler struct {
	marker string
	fn     EvalFunc
}

// Page is a fake browser tab. The zero value is usable; register behavior with Handle and
// the On* hooks.
type Page struct {
	mu sync.Mutex

	URL       string
	Navigated []string
	Typed     map[string]string
	Clicked   []string
	Evaluated []string

	// NavigateErr, when set, is consulted before every navigation.
	NavigateErr func(url string) error
	OnNavigate  func(p *Page, url string)
	OnClick     func(p *Page, selector string)
	// Visible lists selectors WaitVisible succeeds for; nil means every selector is visible.
	Visible []string

	handlers []handler
}

// Handle registers fn for expressions containing marker. Later registrations win.
func (p *Page) Handle(marker string, fn EvalFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append([]handler{{marker: marker, fn: fn}}, p.handlers...)
}

// Returns registers a constant answer for expressions containing marker.
func (p *Page) Returns(marker string, value any) {
	p.Handle(marker, func(*Page, string) (any, error) { return value, nil })
}

func (p *Page) SetURL(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.URL = url
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.NavigateErr != nil {
		if err := p.NavigateErr(url); err != nil {
			return err
		}
	}
	p.mu.Lock()
	p.Navigated = append(p.Navigated, url)
	p.URL = url
	p.mu.Unlock()
	if p.OnNavigate != nil {
		p.OnNavigate(p, url)
	}
	return nil
}

func (p *Page) Location(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.URL, ctx.Err()
}

func (p *Page) Evaluate(ctx context.Context, expression string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	p.Evaluated = append(p.Evaluated, expression)
	var fn EvalFunc
	for _, h := range p.handlers {
		if strings.Contains(expression, h.marker) {
			fn = h.fn
			break
		}
	}
	p.mu.Unlock()

	if fn == nil {
		return fmt.Errorf("browsertest: no handler for expression %.60q", expression)
	}
	value, err := fn(p, expression)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (p *Page) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if p.Visible == nil {
		return ctx.Err()
	}
	for _, s := range p.Visible {
		if s == selector {
			return nil
		}
	}
	return fmt.Errorf("%w: %s not visible", browser.ErrTimeout, selector)
}

func (p *Page) Type(ctx context.Context, selector, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Typed == nil {
		p.Typed = map[string]string{}
	}
	p.Typed[selector] = value
	return ctx.Err()
}

func (p *Page) Click(ctx context.Context, selector string) error {
	p.mu.Lock()
	p.Clicked = append(p.Clicked, selector)
	p.mu.Unlock()
	if p.OnClick != nil {
		p.OnClick(p, selector)
	}
	return ctx.Err()
}

func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	return []byte("\x89PNG fake"), ctx.Err()
}

// NavigationCount returns how many times url was loaded.
func (p *Page) NavigationCount(url string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, u := range p.Navigated {
		if u == url {
			n++
		}
	}
	return n
}

// Launcher hands out Page and counts releases.
type Launcher struct {
	Page       *Page
	Err        error
	ReleaseErr error

	mu       sync.Mutex
	launched int
	released int
}

func (l *Launcher) Launch(ctx context.Context) (browser.Page, func() error, error) {
	if l.Err != nil {
		return nil, nil, l.Err
	}
	l.mu.Lock()
	l.launched++
	l.mu.Unlock()
	return l.Page, func() error {
		l.mu.Lock()
		l.released++
		l.mu.Unlock()
		return l.ReleaseErr
	}, nil
}

func (l *Launcher) Launched() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launched
}

func (l *Launcher) Released() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.released
}
