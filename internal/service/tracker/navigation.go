package tracker

import (
	"context"

	"github.com/cmlabs-hris/hours-watch/internal/domain/tracker"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/browser"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/extract"
)

type observedNavigator struct {
	next extract.Navigator
}

// ObserveNavigation reports every settled navigation of a run as a Navigated stage.
func ObserveNavigation(next extract.Navigator) extract.Navigator {
	return observedNavigator{next: next}
}

func (n observedNavigator) Open(ctx context.Context, page browser.Page, path string) error {
	if err := n.next.Open(ctx, page, path); err != nil {
		return err
	}
	if run := scopeFromContext(ctx); run != nil {
		run.stage(ctx, tracker.StageNavigated, path)
	}
	return nil
}
