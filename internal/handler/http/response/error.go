package response

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hours-watch/internal/domain/auth"
	"github.com/cmlabs-hris/hours-watch/internal/domain/tracker"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/validator"
	"github.com/cmlabs-hris/hours-watch/internal/service/file"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth domain errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		Unauthorized(w, err.Error())
	case errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(w, "Invalid or expired token")

	// Tracker domain errors
	case errors.Is(err, tracker.ErrConfiguration):
		failure(w, http.StatusInternalServerError, "CONFIGURATION_ERROR", "Time tracker credentials are not configured", nil)
	case errors.Is(err, tracker.ErrBotChallenge):
		Upstream(w, http.StatusBadGateway, "UPSTREAM_AUTH_FAILED", "Sign-in was blocked by a bot challenge")
	case errors.Is(err, tracker.ErrAuthentication):
		Upstream(w, http.StatusBadGateway, "UPSTREAM_AUTH_FAILED", "Could not sign in to the time tracker")
	case errors.Is(err, tracker.ErrNavigationTimeout):
		Upstream(w, http.StatusGatewayTimeout, "UPSTREAM_TIMEOUT", "The time tracker did not finish loading the report")
	case errors.Is(err, tracker.ErrRunNotFound):
		NotFound(w, "Run not found")
	case errors.Is(err, file.ErrArtifactNotFound):
		NotFound(w, "Artifact not found")
	case errors.Is(err, context.Canceled):
		// client went away; nothing useful to send
		slog.Debug("request canceled", "error", err)

	// Default
	default:
		slog.Error("unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
