package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hours-watch/internal/domain/tracker"
	"github.com/cmlabs-hris/hours-watch/internal/handler/http/response"
)

// AbsenceRunner runs the absence check and sends its notification. Satisfied by *cron.HoursJobs.
type AbsenceRunner interface {
	Run(ctx context.Context, manual bool) (*tracker.AbsenceResult, error)
}

type CronHandler interface {
	CheckHours(w http.ResponseWriter, r *http.Request)
}

type cronHandlerImpl struct {
	runner AbsenceRunner
}

func NewCronHandler(runner AbsenceRunner) CronHandler {
	return &cronHandlerImpl{runner: runner}
}

// CheckHours is the external scheduler's entry point.
func (h *cronHandlerImpl) CheckHours(w http.ResponseWriter, r *http.Request) {
	slog.Info("Cron: Check hours request from automated job")

	result, err := h.runner.Run(r.Context(), false)
	if err != nil {
		slog.Error("Cron: Check hours failed", "error", err)
		response.HandleError(w, err)
		return
	}

	slog.Info("Cron: Check hours completed", "total_count", result.TotalCount)
	response.Success(w, result)
}
