package tmetric

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cmlabs-hris/hours-watch/internal/domain/tracker"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/browser"
)

var errNotSettled = errors.New("page did not settle")

// Changes the route through the app's own $location service so the SPA re-renders
// without a full reload.
const locationServiceScript = `/* route:location */ (() => {
	const ng = window.angular;
	if (!ng) return { ok: false, reason: 'no framework' };
	try {
		const injector = ng.element(document.body).injector();
		if (!injector) return { ok: false, reason: 'no injector' };
		const $location = injector.get('$location');
		const $rootScope = injector.get('$rootScope');
		$location.url(%s);
		$rootScope.$apply();
		return { ok: true, reason: '' };
	} catch (e) {
		return { ok: false, reason: String(e && e.message || e) };
	}
})()`

const settleProbeScript = `/* settle:probe */ (() => {
	const ready = document.readyState === 'complete';
	const ng = window.angular;
	if (!ng) return { ready: ready, pending: -1 };
	try {
		const injector = ng.element(document.body).injector();
		const $http = injector && injector.get('$http');
		return { ready: ready, pending: $http ? $http.pendingRequests.length : -1 };
	} catch (e) {
		return { ready: ready, pending: -1 };
	}
})()`

const dismissOverlaysScript = `/* overlays:dismiss */ (() => {
	const selectors = [
		'.modal.in .close',
		'.modal-dialog button.close',
		'.modal-footer [ng-click*="dismiss"]',
		'[ng-click*="closeTour"]',
		'.popover .close',
	];
	let dismissed = 0;
	for (const s of selectors) {
		document.querySelectorAll(s).forEach(el => {
			if (el.offsetParent !== null) { el.click(); dismissed++; }
		});
	}
	return dismissed;
})()`

type settleState struct {
	Ready   bool `json:"ready"`
	Pending int  `json:"pending"`
}

type routeResult struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason"`
}

// NavigatorConfig bounds the settle-wait.
type NavigatorConfig struct {
	BaseURL       string
	SettleTimeout time.Duration
	SettleDelay   time.Duration
	PollInterval  time.Duration
}

// Navigator drives the single-page app to report views and waits until they have rendered.
type Navigator struct {
	cfg NavigatorConfig
}

func NewNavigator(cfg NavigatorConfig) *Navigator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.SettleTimeout == 0 {
		cfg.SettleTimeout = 30 * time.Second
	}
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = 2 * time.Second
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	return &Navigator{cfg: cfg}
}

// OpenReport navigates to route. See Open.
func (n *Navigator) OpenReport(ctx context.Context, page browser.Page, route Route) error {
	return n.Open(ctx, page, route.Path())
}

// Open routes the page to path, waits for it to settle and dismisses overlays. A failed
// attempt is re-issued once; it is safe to call repeatedly for the same path.
func (n *Navigator) Open(ctx context.Context, page browser.Page, path string) error {
	err := n.attempt(ctx, page, path)
	if err != nil && ctx.Err() == nil {
		slog.Warn("Navigator: retrying navigation", "path", path, "error", err)
		err = n.attempt(ctx, page, path)
	}
	if err != nil {
		if errors.Is(err, errNotSettled) || errors.Is(err, browser.ErrTimeout) {
			return fmt.Errorf("%w: %s: %v", tracker.ErrNavigationTimeout, path, err)
		}
		return fmt.Errorf("navigate to %s: %w", path, err)
	}

	var dismissed int
	if err := page.Evaluate(ctx, dismissOverlaysScript, &dismissed); err != nil {
		slog.Debug("Navigator: overlay check failed", "path", path, "error", err)
	} else if dismissed > 0 {
		slog.Info("Navigator: dismissed overlays", "path", path, "count", dismissed)
	}
	return nil
}

func (n *Navigator) attempt(ctx context.Context, page browser.Page, path string) error {
	if err := n.route(ctx, page, path); err != nil {
		return err
	}
	return n.settle(ctx, page)
}

// route tries the in-app location service first and falls back to a full load.
func (n *Navigator) route(ctx context.Context, page browser.Page, path string) error {
	var res routeResult
	script := fmt.Sprintf(locationServiceScript, strconv.Quote(path))
	if err := page.Evaluate(ctx, script, &res); err == nil && res.OK {
		return nil
	} else if err != nil {
		slog.Debug("Navigator: location service unavailable", "error", err)
	} else {
		slog.Debug("Navigator: location service refused route", "reason", res.Reason)
	}
	return page.Navigate(ctx, AppURL(n.cfg.BaseURL, path))
}

// settle waits for network idle when the page exposes its pending requests, otherwise for
// document readiness plus a fixed delay.
func (n *Navigator) settle(ctx context.Context, page browser.Page) error {
	deadline := time.Now().Add(n.cfg.SettleTimeout)
	idlePolls := 0
	for {
		var st settleState
		err := page.Evaluate(ctx, settleProbeScript, &st)
		switch {
		case err != nil:
			idlePolls = 0
		case st.Ready && st.Pending < 0:
			return browser.Sleep(ctx, n.cfg.SettleDelay)
		case st.Ready && st.Pending == 0:
			idlePolls++
			if idlePolls >= 2 {
				return nil
			}
		default:
			idlePolls = 0
		}

		if time.Now().After(deadline) {
			if err != nil {
				return fmt.Errorf("%w: %v", errNotSettled, err)
			}
			return fmt.Errorf("%w: %d requests pending", errNotSettled, st.Pending)
		}
		if err := browser.Sleep(ctx, n.cfg.PollInterval); err != nil {
			return err
		}
	}
}
