// Package api exposes the turn runner over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/graph"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/commerce-bot/internal/core/error"
	logx "github.com/Chative-core-poc-v1/commerce-bot/pkg/logger"
	"github.com/Chative-core-poc-v1/commerce-bot/pkg/metrics"
)

// maxBodyBytes leaves room for the JSON envelope around the longest message.
const maxBodyBytes = 64 << 10

// ReadyFunc reports whether the service's backing stores are reachable.
type ReadyFunc func(ctx context.Context) error

// Handler serves the turn API.
type Handler struct {
	runner graph.Runner
	ready  ReadyFunc
}

func NewHandler(runner graph.Runner, ready ReadyFunc) *Handler {
	return &Handler{runner: runner, ready: ready}
}

// Router mounts the API with the service middleware stack.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", h.Health)
	r.Get("/readyz", h.Ready)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/turns", h.Turn)
		r.Post("/tenants/{tenantID}/conversations/{conversationID}/resume", h.Resume)
	})
	return r
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Ready handles GET /readyz
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"reason": err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Turn handles POST /v1/turns
func (h *Handler) Turn(w http.ResponseWriter, r *http.Request) {
	var in model.InboundMessage
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		writeError(w, errx.Validation(model.CodeInvalidParams, "invalid request body"))
		return
	}

	res, err := h.runner.Invoke(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Resume handles POST /v1/tenants/{tenantID}/conversations/{conversationID}/resume
func (h *Handler) Resume(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	conversationID := chi.URLParam(r, "conversationID")
	if err := h.runner.Resume(r.Context(), tenantID, conversationID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":          "resumed",
		"conversation_id": conversationID,
	})
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeError maps an AppError to its status. Anything else is a 500 with a
// generic message.
func writeError(w http.ResponseWriter, err error) {
	var ae *errx.AppError
	if !errors.As(err, &ae) || ae.Status == 0 {
		logx.Error().Err(err).Msg("Unhandled request error")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: errx.SystemErrorMessage})
		return
	}
	msg := ae.Message
	if ae.Status >= http.StatusInternalServerError {
		logx.Error().Err(err).Str("kind", string(ae.Kind)).Msg("Request failed")
	}
	writeJSON(w, ae.Status, errorBody{Error: msg, Code: ae.Code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logx.Warn().Err(err).Msg("Failed to write response")
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())

		logx.Debug().
			Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", elapsed).
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Msg("Request completed")
	})
}
