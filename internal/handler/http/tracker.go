package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cmlabs-hris/hours-watch/internal/domain/tracker"
	"github.com/cmlabs-hris/hours-watch/internal/handler/http/response"
)

type TrackerHandler interface {
	CheckHours(w http.ResponseWriter, r *http.Request)
	Charts(w http.ResponseWriter, r *http.Request)
	ProjectCharts(w http.ResponseWriter, r *http.Request)
}

// Notifier sends absence results. Satisfied by *slack.Notifier.
type Notifier interface {
	Enabled() bool
	NotifyAbsences(ctx context.Context, result tracker.AbsenceResult, manual bool) error
}

// TrackerDefaults are the windows used when a request body names none.
type TrackerDefaults struct {
	AbsenceWorkdays int
	ContextDays     int
	Now             func() time.Time
}

type trackerHandlerImpl struct {
	trackerService tracker.Service
	credentials    tracker.Credentials
	defaults       TrackerDefaults
	notifier       Notifier
}

// NewTrackerHandler builds the dashboard endpoints. notifier may be nil.
func NewTrackerHandler(trackerService tracker.Service, credentials tracker.Credentials, defaults TrackerDefaults, notifier Notifier) TrackerHandler {
	if defaults.Now == nil {
		defaults.Now = time.Now
	}
	return &trackerHandlerImpl{
		trackerService: trackerService,
		credentials:    credentials,
		defaults:       defaults,
		notifier:       notifier,
	}
}

// CheckHours lists users with no time logged in the window (default: last workdays).
// With ?notify=true the result is also posted to Slack as a manual check.
func (h *trackerHandlerImpl) CheckHours(w http.ResponseWriter, r *http.Request) {
	window, ok := h.decodeWindow(w, r, func() tracker.DateWindow {
		return tracker.AbsenceWindow(h.defaults.Now(), h.defaults.AbsenceWorkdays)
	})
	if !ok {
		return
	}

	result, err := h.trackerService.FindEntitiesWithoutActivity(r.Context(), h.credentials, window)
	if err != nil {
		slog.Error("CheckHours failed", "from", window.From, "to", window.To, "error", err)
		response.HandleError(w, err)
		return
	}

	if notify, _ := strconv.ParseBool(r.URL.Query().Get("notify")); notify && h.notifier != nil && h.notifier.Enabled() {
		if err := h.notifier.NotifyAbsences(r.Context(), *result, true); err != nil {
			slog.Error("CheckHours notification failed", "error", err)
		}
	}

	response.Success(w, result)
}

// Charts returns per-user daily series (default: trailing context days).
func (h *trackerHandlerImpl) Charts(w http.ResponseWriter, r *http.Request) {
	window, ok := h.decodeWindow(w, r, h.trailingWindow)
	if !ok {
		return
	}

	result, err := h.trackerService.CollectEntityChartSeries(r.Context(), h.credentials, window)
	if err != nil {
		slog.Error("Charts failed", "from", window.From, "to", window.To, "error", err)
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ProjectCharts returns per-project daily series (default: trailing context days).
func (h *trackerHandlerImpl) ProjectCharts(w http.ResponseWriter, r *http.Request) {
	window, ok := h.decodeWindow(w, r, h.trailingWindow)
	if !ok {
		return
	}

	result, err := h.trackerService.CollectProjectChartSeries(r.Context(), h.credentials, window)
	if err != nil {
		slog.Error("ProjectCharts failed", "from", window.From, "to", window.To, "error", err)
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *trackerHandlerImpl) trailingWindow() tracker.DateWindow {
	return tracker.TrailingWindow(h.defaults.Now(), h.defaults.ContextDays)
}

// decodeWindow reads the optional {from,to} body. An empty body selects fallback.
func (h *trackerHandlerImpl) decodeWindow(w http.ResponseWriter, r *http.Request, fallback func() tracker.DateWindow) (tracker.DateWindow, bool) {
	var req tracker.WindowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, "Invalid request format", nil)
		return tracker.DateWindow{}, false
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return tracker.DateWindow{}, false
	}

	return req.Window(fallback), true
}
