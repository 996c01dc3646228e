package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

const (
	DefaultUserAgent   = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36"
	DefaultLocale      = "en-US"
	DefaultStepTimeout = 30 * time.Second
)

// Hides the usual automation tells from scripts running in the page.
const stealthScript = `(() => {
	Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
	window.chrome = window.chrome || { runtime: {} };
	Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3] });
})();`

// Options configure a ChromeLauncher.
type Options struct {
	Headless    bool
	NoSandbox   bool
	ExecPath    string
	UserAgent   string
	Locale      string
	// Timezone is an IANA zone the page runs in. Empty keeps the host's zone.
	Timezone    string
	Width       int
	Height      int
	StepTimeout time.Duration
}

// ChromeLauncher starts one headless Chrome per Launch call through chromedp.
type ChromeLauncher struct {
	opts Options
}

func NewChromeLauncher(opts Options) *ChromeLauncher {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Locale == "" {
		opts.Locale = DefaultLocale
	}
	if opts.Width == 0 || opts.Height == 0 {
		opts.Width, opts.Height = 1280, 720
	}
	if opts.StepTimeout == 0 {
		opts.StepTimeout = DefaultStepTimeout
	}
	return &ChromeLauncher{opts: opts}
}

// Launch allocates a new browser process with its own profile, so concurrent calls never
// share cookies or storage.
func (l *ChromeLauncher) Launch(ctx context.Context) (Page, func() error, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.opts.Headless),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("lang", l.opts.Locale),
		chromedp.UserAgent(l.opts.UserAgent),
		chromedp.WindowSize(l.opts.Width, l.opts.Height),
	)
	if l.opts.NoSandbox {
		allocOpts = append(allocOpts, chromedp.NoSandbox)
	}
	if l.opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(l.opts.ExecPath))
	}

	// The browser lives until release, not until the caller's ctx ends.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	var once sync.Once
	var closeErr error
	release := func() error {
		once.Do(func() {
			closeErr = chromedp.Cancel(tabCtx)
			cancelTab()
			cancelAlloc()
		})
		return closeErr
	}

	// The first Run allocates the browser and must not carry a deadline of its own.
	stop := context.AfterFunc(ctx, cancelTab)
	err := chromedp.Run(tabCtx)
	stop()
	if err != nil {
		_ = release()
		return nil, nil, fmt.Errorf("start browser: %w", err)
	}

	p := &chromePage{ctx: tabCtx, timeout: l.opts.StepTimeout}
	setup := chromedp.ActionFunc(func(ctx context.Context) error {
		if _, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx); err != nil {
			return err
		}
		if err := emulation.SetLocaleOverride().WithLocale(l.opts.Locale).Do(ctx); err != nil {
			slog.Debug("Browser: locale override rejected", "error", err)
		}
		if l.opts.Timezone != "" {
			if err := emulation.SetTimezoneOverride(l.opts.Timezone).Do(ctx); err != nil {
				return fmt.Errorf("timezone override %q: %w", l.opts.Timezone, err)
			}
		}
		return emulation.SetUserAgentOverride(l.opts.UserAgent).WithAcceptLanguage(l.opts.Locale).Do(ctx)
	})
	if err := p.run(ctx, p.timeout, setup); err != nil {
		_ = release()
		return nil, nil, fmt.Errorf("configure browser: %w", err)
	}

	return p, release, nil
}

type chromePage struct {
	ctx     context.Context
	timeout time.Duration
}

// run executes actions bounded by timeout and by the caller's ctx.
func (p *chromePage) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	opCtx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(opCtx, actions...)
	if err == nil {
		return nil
	}
	if errors.Is(opCtx.Err(), context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, p.timeout, chromedp.Navigate(url))
}

func (p *chromePage) Location(ctx context.Context) (string, error) {
	var location string
	err := p.run(ctx, p.timeout, chromedp.Location(&location))
	return location, err
}

func (p *chromePage) Evaluate(ctx context.Context, expression string, out any) error {
	if out == nil {
		var discard json.RawMessage
		out = &discard
	}
	return p.run(ctx, p.timeout, chromedp.Evaluate(expression, out, awaitPromise))
}

func (p *chromePage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if timeout <= 0 || timeout > p.timeout {
		timeout = p.timeout
	}
	return p.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (p *chromePage) Type(ctx context.Context, selector, value string) error {
	return p.run(ctx, p.timeout,
		chromedp.SetValue(selector, "", chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
}

func (p *chromePage) Click(ctx context.Context, selector string) error {
	return p.run(ctx, p.timeout, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

func (p *chromePage) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := p.run(ctx, p.timeout, chromedp.CaptureScreenshot(&buf))
	return buf, err
}

func awaitPromise(params *runtime.EvaluateParams) *runtime.EvaluateParams {
	return params.WithAwaitPromise(true)
}
