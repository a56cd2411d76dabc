package api

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orcaai/relay/internal/ratelimit"
	"github.com/orcaai/relay/internal/registry"
	"github.com/orcaai/relay/internal/router"
	"github.com/orcaai/relay/internal/stats"
	"github.com/orcaai/relay/internal/store"
	"github.com/orcaai/relay/pkg/provider"
	"github.com/orcaai/relay/pkg/types"
)

type stubAdapter struct {
	name string
	err  error
}

func (s *stubAdapter) Name() string { return s.name }

func (s *stubAdapter) Send(ctx context.Context, req provider.Request) (*provider.Response, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &provider.Response{Text: "ok from " + s.name, InputTokens: 10, OutputTokens: 20}, nil
}

func newTestHandler(t *testing.T) *Handler {
	t.Helper()

	reg, err := registry.New([]registry.Profile{
		{Name: "openai", CostPer1KInput: 0.005, CostPer1KOutput: 0.015, MaxTokens: 4096, RateLimit: 100},
		{Name: "claude", CostPer1KInput: 0.008, CostPer1KOutput: 0.024, MaxTokens: 8192, RateLimit: 100},
		{Name: "gemini", CostPer1KInput: 0.001, CostPer1KOutput: 0.002, MaxTokens: 2048, RateLimit: 100},
	})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	counters := store.NewMemoryStore()
	tracker := stats.NewTracker(counters, logger)
	recorder := stats.NewRecorder(tracker, logger)
	t.Cleanup(recorder.Close)
	limiter := ratelimit.New(counters, reg, logger)

	rt := router.New(reg, tracker, limiter, recorder, logger)
	rt.RegisterAdapter(&stubAdapter{name: "openai"})
	rt.RegisterAdapter(&stubAdapter{name: "claude"})
	rt.RegisterAdapter(&stubAdapter{name: "gemini"})

	return NewHandler(reg, rt, tracker, logger)
}

func postJSON(t *testing.T, handler http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestHandlerRoute(t *testing.T) {
	h := newTestHandler(t)

	rec := postJSON(t, h.Route, types.RouteRequest{Prompt: "explain goroutines"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var decision types.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
	assert.NotEmpty(t, decision.RecommendedProvider)
	assert.Len(t, decision.Fallbacks, 2)
	assert.NotEmpty(t, decision.Reasoning)
	assert.Len(t, decision.AllScores, 3)
}

func TestHandlerRouteMissingPrompt(t *testing.T) {
	h := newTestHandler(t)

	rec := postJSON(t, h.Route, types.RouteRequest{})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	assert.Equal(t, "invalid_request", body.Error.Type)
}

func TestHandlerRouteInvalidJSON(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	h.Route(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerQuery(t *testing.T) {
	h := newTestHandler(t)

	rec := postJSON(t, h.Query, types.RouteRequest{Prompt: "write a haiku"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Text       string   `json:"content"`
		Provider   string   `json:"provider"`
		Confidence float64  `json:"confidence"`
		Reasoning  string   `json:"reasoning"`
		Fallbacks  []string `json:"fallbacks"`
		RequestID  string   `json:"request_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Text, "ok from")
	assert.NotEmpty(t, resp.Provider)
	assert.NotEmpty(t, resp.Reasoning)
	assert.Len(t, resp.Fallbacks, 2)
	assert.NotEmpty(t, resp.RequestID)
	assert.Greater(t, resp.Confidence, 0.0)
}

func TestHandlerQueryDispatchFailureCarriesFallbacks(t *testing.T) {
	h := newTestHandler(t)

	// Pin a provider with a failing adapter so the decision is
	// deterministic and the dispatch attempt errors.
	h.router.RegisterAdapter(&stubAdapter{name: "openai", err: context.DeadlineExceeded})

	rec := postJSON(t, h.Query, types.RouteRequest{Prompt: "hi", Provider: "openai"})
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	assert.Equal(t, "provider_call_failed", body.Error.Type)
	assert.Len(t, body.Fallbacks, 2)
}

func TestHandlerProviders(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/providers", nil)
	rec := httptest.NewRecorder()
	h.Providers(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Providers map[string]struct {
			Reliability  float64 `json:"reliability"`
			SuccessCount int64   `json:"success_count"`
		} `json:"providers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Providers, 3)
	assert.InDelta(t, 0.9, resp.Providers["openai"].Reliability, 1e-9)
}

func TestHandlerHealth(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status    string   `json:"status"`
		Providers []string `json:"providers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, []string{"openai", "claude", "gemini"}, resp.Providers)
}
