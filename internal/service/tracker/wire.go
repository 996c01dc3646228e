package tracker

import (
	"github.com/cmlabs-hris/hours-watch/internal/config"
	"github.com/cmlabs-hris/hours-watch/internal/domain/tracker"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/browser"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/extract"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/tmetric"
)

// Credentials returns the tracker account from configuration.
func Credentials(cfg *config.Config) tracker.Credentials {
	return tracker.Credentials{Email: cfg.TMetric.Email, Password: cfg.TMetric.Password}
}

// NewFromConfig wires a Chrome-backed orchestrator. runs and observer may be nil.
func NewFromConfig(cfg *config.Config, runs tracker.RunRepository, observer tracker.Observer) tracker.Service {
	launcher := browser.NewChromeLauncher(browser.Options{
		Headless:    cfg.Browser.Headless,
		NoSandbox:   cfg.Browser.NoSandbox,
		ExecPath:    cfg.Browser.ExecPath,
		UserAgent:   cfg.Browser.UserAgent,
		Locale:      cfg.Browser.Locale,
		Timezone:    cfg.Browser.Timezone,
		StepTimeout: cfg.Browser.StepTimeout,
	})
	sessions := tmetric.NewSessionManager(launcher, tmetric.SessionConfig{
		BaseURL:      cfg.TMetric.BaseURL,
		IdentityHost: cfg.TMetric.IdentityHost,
		LoginTimeout: cfg.Browser.StepTimeout,
	})
	navigator := tmetric.NewNavigator(tmetric.NavigatorConfig{
		BaseURL:       cfg.TMetric.BaseURL,
		SettleTimeout: cfg.Browser.StepTimeout,
		SettleDelay:   cfg.Browser.SettleDelay,
	})
	extractor := extract.NewExtractor(ObserveNavigation(navigator), extract.WithLocation(cfg.Browser.Location))

	return NewTrackerService(sessions, extractor, runs, observer, Config{
		ContextDays:       cfg.Report.ContextDays,
		TargetHoursPerDay: cfg.Report.TargetHoursPerDay,
	})
}
