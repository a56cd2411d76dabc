// Package api provides the HTTP surface over the routing engine: routing
// decisions, dispatching queries, and provider reporting.
package api

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/orcaai/relay/internal/registry"
	"github.com/orcaai/relay/internal/router"
	"github.com/orcaai/relay/internal/stats"
	relayerrors "github.com/orcaai/relay/pkg/errors"
	"github.com/orcaai/relay/pkg/types"
)

// Handler handles HTTP requests for the routing service.
type Handler struct {
	registry *registry.Registry
	router   *router.Router
	tracker  *stats.Tracker
	logger   *slog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(reg *registry.Registry, rt *router.Router, tracker *stats.Tracker, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		registry: reg,
		router:   rt,
		tracker:  tracker,
		logger:   logger,
	}
}

func (h *Handler) decodeRequest(w http.ResponseWriter, r *http.Request) (*types.RouteRequest, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		h.writeError(w, relayerrors.NewInvalidRequestError("failed to read request body"))
		return nil, false
	}
	defer r.Body.Close()

	var req types.RouteRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.writeError(w, relayerrors.NewInvalidRequestError("invalid JSON: "+err.Error()))
		return nil, false
	}
	if req.Prompt == "" {
		h.writeError(w, relayerrors.NewInvalidRequestError("prompt is required"))
		return nil, false
	}
	return &req, true
}

// Route handles POST /v1/route. It returns a routing decision without
// calling any provider.
func (h *Handler) Route(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	decision, err := h.router.Route(r.Context(), *req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, decision)
}

// queryResponse annotates a dispatch result with the decision that
// produced it, including the fallbacks the caller may retry against.
type queryResponse struct {
	*types.DispatchResult
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
	Fallbacks  []string `json:"fallbacks"`
}

// Query handles POST /v1/query: route, then one dispatch attempt against
// the recommended provider. Fallback retries stay caller-driven; on
// dispatch failure the error body carries the remaining fallbacks.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	decision, err := h.router.Route(r.Context(), *req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	result, err := h.router.Dispatch(r.Context(), decision.RecommendedProvider, *req)
	if err != nil {
		h.logger.Warn("dispatch failed",
			"provider", decision.RecommendedProvider,
			"fallbacks", decision.Fallbacks,
			"error", err,
		)
		h.writeErrorWithFallbacks(w, err, decision.Fallbacks)
		return
	}

	h.writeJSON(w, http.StatusOK, queryResponse{
		DispatchResult: result,
		Confidence:     decision.Confidence,
		Reasoning:      decision.Reasoning,
		Fallbacks:      decision.Fallbacks,
	})
}

// providerReport is the per-provider block of the reporting endpoint.
type providerReport struct {
	Profile      *registry.Profile `json:"profile"`
	SuccessCount int64             `json:"success_count"`
	ErrorCount   int64             `json:"error_count"`
	Reliability  float64           `json:"reliability"`
	AvgLatencyMs float64           `json:"avg_latency_ms"`
	HourlyCount  int64             `json:"requests_this_hour"`
}

// Providers handles GET /v1/providers: profiles plus rolling metrics.
func (h *Handler) Providers(w http.ResponseWriter, r *http.Request) {
	report := make(map[string]providerReport)

	for _, p := range h.registry.All() {
		snap, err := h.tracker.GetSnapshot(r.Context(), p.Name)
		if err != nil {
			h.logger.Warn("snapshot unavailable for report", "provider", p.Name, "error", err)
		}
		hourly, _ := h.tracker.HourlyCount(r.Context(), p.Name, 0)

		report[p.Name] = providerReport{
			Profile:      p,
			SuccessCount: snap.SuccessCount,
			ErrorCount:   snap.ErrorCount,
			Reliability:  snap.Reliability(),
			AvgLatencyMs: snap.AverageRecentLatency(stats.RecentWindow),
			HourlyCount:  hourly,
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"providers": report})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"providers": h.registry.Names(),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

type errorBody struct {
	Error     *relayerrors.RouteError `json:"error"`
	Fallbacks []string                `json:"fallbacks,omitempty"`
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	h.writeErrorWithFallbacks(w, err, nil)
}

func (h *Handler) writeErrorWithFallbacks(w http.ResponseWriter, err error, fallbacks []string) {
	re, ok := err.(*relayerrors.RouteError)
	if !ok {
		re = &relayerrors.RouteError{
			StatusCode: http.StatusInternalServerError,
			Message:    err.Error(),
			Type:       "internal_error",
		}
	}
	h.writeJSON(w, re.HTTPStatusCode(), errorBody{Error: re, Fallbacks: fallbacks})
}
