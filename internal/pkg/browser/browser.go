package browser

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned when a page operation exceeds its bound.
var ErrTimeout = errors.New("browser operation timed out")

// Page is one tab of an isolated browser context. Every method is a suspension point
// bounded by the page's step timeout and by ctx.
type Page interface {
	// Navigate loads url and waits for the document to finish loading.
	Navigate(ctx context.Context, url string) error
	// Location returns the current URL, including any hash route.
	Location(ctx context.Context) (string, error)
	// Evaluate runs expression in the page and decodes its JSON result into out.
	Evaluate(ctx context.Context, expression string, out any) error
	// WaitVisible blocks until selector matches a visible element.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	// Type focuses the element matching selector and sends value as keystrokes.
	Type(ctx context.Context, selector, value string) error
	// Click clicks the first element matching selector.
	Click(ctx context.Context, selector string) error
	// Screenshot captures the visible viewport as PNG.
	Screenshot(ctx context.Context) ([]byte, error)
}

// Launcher starts a fresh, isolated browser context and returns its page with a release
// function. Release must be called exactly once.
type Launcher interface {
	Launch(ctx context.Context) (Page, func() error, error)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
