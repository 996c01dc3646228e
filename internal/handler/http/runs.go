package http

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cmlabs-hris/hours-watch/internal/domain/auth"
	"github.com/cmlabs-hris/hours-watch/internal/domain/tracker"
	"github.com/cmlabs-hris/hours-watch/internal/handler/http/response"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/jwt"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/sse"
	"github.com/cmlabs-hris/hours-watch/internal/service/file"
	trackersvc "github.com/cmlabs-hris/hours-watch/internal/service/tracker"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
)

// RunHandler serves run history, failure artifacts and live progress
type RunHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Artifacts(w http.ResponseWriter, r *http.Request)
	Artifact(w http.ResponseWriter, r *http.Request)

	// SSE
	GetSSEToken(w http.ResponseWriter, r *http.Request)
	Stream(w http.ResponseWriter, r *http.Request)
}

type runHandlerImpl struct {
	runService  tracker.RunService
	fileService file.FileService
	authService auth.AuthService
	jwtService  jwt.Service
	hub         *sse.Hub
	keepalive   time.Duration
}

func NewRunHandler(runService tracker.RunService, fileService file.FileService, authService auth.AuthService, jwtService jwt.Service, hub *sse.Hub) RunHandler {
	return &runHandlerImpl{
		runService:  runService,
		fileService: fileService,
		authService: authService,
		jwtService:  jwtService,
		hub:         hub,
		keepalive:   30 * time.Second,
	}
}

// getSubjectFromContext extracts the token subject from JWT context
func getSubjectFromContext(r *http.Request) string {
	token, _, err := jwtauth.FromContext(r.Context())
	if err != nil || token == nil {
		return ""
	}
	return token.Subject()
}

// getIntQueryParam gets an int query parameter with a default value
func getIntQueryParam(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func (h *runHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	limit := getIntQueryParam(r, "limit", 0)

	result, err := h.runService.ListRuns(r.Context(), limit)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result, &response.Meta{Limit: result.Limit, Count: len(result.Runs)})
}

func (h *runHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	run, err := h.runService.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, run)
}

func (h *runHandlerImpl) Artifacts(w http.ResponseWriter, r *http.Request) {
	artifacts, err := h.fileService.ListArtifacts(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, artifacts)
}

func (h *runHandlerImpl) Artifact(w http.ResponseWriter, r *http.Request) {
	rc, artifact, err := h.fileService.OpenArtifact(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "name"))
	if err != nil {
		response.HandleError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", artifact.Name))
	if _, err := io.Copy(w, rc); err != nil {
		slog.Warn("Artifact download interrupted", "name", artifact.Name, "error", err)
	}
}

// GetSSEToken generates a short-lived token for the run event stream
func (h *runHandlerImpl) GetSSEToken(w http.ResponseWriter, r *http.Request) {
	subject := getSubjectFromContext(r)
	if subject == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	token, err := h.authService.IssueSSEToken(r.Context(), subject)
	if err != nil {
		response.InternalServerError(w, "Failed to generate SSE token")
		return
	}

	response.Success(w, token)
}

// Stream pushes run progress events over SSE
func (h *runHandlerImpl) Stream(w http.ResponseWriter, r *http.Request) {
	// EventSource cannot set headers, so the token travels in the query
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Missing token", http.StatusUnauthorized)
		return
	}

	subject, err := h.jwtService.ValidateSSEToken(tokenStr)
	if err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cleanup := h.hub.Subscribe(trackersvc.RunsTopic)
	defer cleanup()

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"subject\":%q}\n\n", subject)
	flusher.Flush()

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event.Data)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Event, data)
			flusher.Flush()

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", time.Now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
