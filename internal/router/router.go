// Package router is the top-level orchestrator: it gathers rolling metrics
// for every registered provider, ranks them through the scoring engine,
// filters out rate-limited providers, and produces a routing decision with
// an ordered fallback list. Dispatching to the chosen provider is a
// separate, caller-driven step.
package router

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/orcaai/relay/internal/metrics"
	"github.com/orcaai/relay/internal/ratelimit"
	"github.com/orcaai/relay/internal/registry"
	"github.com/orcaai/relay/internal/scoring"
	"github.com/orcaai/relay/internal/stats"
	relayerrors "github.com/orcaai/relay/pkg/errors"
	"github.com/orcaai/relay/pkg/provider"
	"github.com/orcaai/relay/pkg/types"
)

const maxFallbacks = 2

// Router routes requests across providers. All shared state lives in the
// injected dependencies; Route calls for different requests run in
// parallel with no global lock.
type Router struct {
	registry *registry.Registry
	tracker  *stats.Tracker
	limiter  *ratelimit.Limiter
	recorder *stats.Recorder
	cache    *decisionCache
	adapters map[string]provider.Adapter
	logger   *slog.Logger

	dispatchTimeout time.Duration
}

// Option configures a Router.
type Option func(*Router)

// WithDecisionCache enables caching of auto-routing decisions for ttl.
func WithDecisionCache(ttl time.Duration) Option {
	return func(r *Router) {
		r.cache = newDecisionCache(ttl)
	}
}

// WithDispatchTimeout bounds each provider call (default 60s).
func WithDispatchTimeout(d time.Duration) Option {
	return func(r *Router) {
		if d > 0 {
			r.dispatchTimeout = d
		}
	}
}

// New creates a router over the given collaborators.
func New(reg *registry.Registry, tracker *stats.Tracker, limiter *ratelimit.Limiter, recorder *stats.Recorder, logger *slog.Logger, opts ...Option) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		registry:        reg,
		tracker:         tracker,
		limiter:         limiter,
		recorder:        recorder,
		adapters:        make(map[string]provider.Adapter),
		logger:          logger,
		dispatchTimeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterAdapter attaches a provider adapter for dispatching. Routing
// works without adapters; Dispatch for a provider with no adapter fails.
func (r *Router) RegisterAdapter(a provider.Adapter) {
	if a == nil {
		return
	}
	r.adapters[a.Name()] = a
}

// Route produces a routing decision for the request. It never performs the
// provider call itself.
func (r *Router) Route(ctx context.Context, req types.RouteRequest) (*types.Decision, error) {
	if req.Prompt == "" {
		return nil, relayerrors.NewInvalidRequestError("prompt must not be empty")
	}

	task := req.TaskType
	if task == "" {
		task = types.TaskTextGeneration
	}

	// Explicit provider pin: honored when registered and currently
	// admissible, otherwise auto-routing takes over.
	if req.Provider != "" {
		decision, err := r.routePinned(ctx, req, task)
		if err != nil || decision != nil {
			return decision, err
		}
	}

	if r.cache != nil {
		if cached, ok := r.cache.get(req.Prompt, task); ok && r.limiter.Check(ctx, cached) {
			metrics.DecisionCacheHits.Inc()
			return r.buildDecision(ctx, task, scoring.Resolve(req.Preferences), cached)
		}
	}

	weights := scoring.Resolve(req.Preferences)
	decision, err := r.buildDecision(ctx, task, weights, "")
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		r.cache.put(req.Prompt, task, decision.RecommendedProvider)
	}
	return decision, nil
}

// routePinned handles an explicit provider request. A nil, nil return
// means the pin could not be honored and auto-routing should proceed.
func (r *Router) routePinned(ctx context.Context, req types.RouteRequest, task string) (*types.Decision, error) {
	profile, err := r.registry.Get(req.Provider)
	if err != nil {
		return nil, err
	}
	if !r.limiter.Check(ctx, profile.Name) {
		r.logger.Info("pinned provider rate limited, falling back to auto-routing",
			"provider", profile.Name,
		)
		return nil, nil
	}

	ranked, eligible := r.rankAll(ctx, task, scoring.Resolve(req.Preferences))
	decision := &types.Decision{
		RecommendedProvider: profile.Name,
		Confidence:          1.0,
		Reasoning:           "User-specified provider",
		Fallbacks:           pickFallbacks(eligible, profile.Name),
		AllScores:           scoresByName(ranked),
	}
	metrics.RoutingDecisions.WithLabelValues(profile.Name, task).Inc()
	return decision, nil
}

// buildDecision ranks all providers and assembles the decision. When
// forcedWinner is non-empty (decision cache hit) it wins regardless of
// rank, with fallbacks still computed fresh.
func (r *Router) buildDecision(ctx context.Context, task string, weights scoring.ResolvedWeights, forcedWinner string) (*types.Decision, error) {
	ranked, eligible := r.rankAll(ctx, task, weights)

	if forcedWinner != "" {
		metrics.RoutingDecisions.WithLabelValues(forcedWinner, task).Inc()
		return &types.Decision{
			RecommendedProvider: forcedWinner,
			Confidence:          1.0,
			Reasoning:           "Cache hit - returning cached result",
			Fallbacks:           pickFallbacks(eligible, forcedWinner),
			AllScores:           scoresByName(ranked),
		}, nil
	}

	if len(eligible) == 0 {
		metrics.RoutingFailures.Inc()
		return nil, relayerrors.NewAllUnavailableError()
	}

	winner := eligible[0]
	confidence := winner.Breakdown.Score
	if confidence > 1.0 {
		confidence = 1.0
	}

	metrics.RoutingDecisions.WithLabelValues(winner.Name, task).Inc()
	return &types.Decision{
		RecommendedProvider: winner.Name,
		Confidence:          confidence,
		Reasoning:           scoring.Explain(winner.Name, task, winner.Breakdown),
		Fallbacks:           pickFallbacks(eligible, winner.Name),
		AllScores:           scoresByName(ranked),
	}, nil
}

// rankAll snapshots metrics for every registered provider and ranks them.
// Rate-limited providers keep their scores for observability but are
// excluded from the eligible list. A degraded counter store downgrades a
// provider to its defaults instead of failing the route.
func (r *Router) rankAll(ctx context.Context, task string, weights scoring.ResolvedWeights) (ranked, eligible []scoring.Ranked) {
	profiles := r.registry.All()
	inputs := make([]scoring.Input, 0, len(profiles))

	for _, p := range profiles {
		snap, err := r.tracker.GetSnapshot(ctx, p.Name)
		if err != nil {
			metrics.StoreFailOpen.WithLabelValues("router").Inc()
			r.logger.Warn("metrics snapshot unavailable, scoring with defaults",
				"provider", p.Name,
				"error", err,
			)
		}
		inputs = append(inputs, scoring.Input{
			Profile:      p,
			Reliability:  snap.Reliability(),
			AvgLatencyMs: snap.AverageRecentLatency(stats.RecentWindow),
			RateLimited:  !r.limiter.Check(ctx, p.Name),
		})
	}

	ranked = scoring.Rank(inputs, task, weights)
	for _, rk := range ranked {
		if !rk.Breakdown.RateLimited {
			eligible = append(eligible, rk)
		}
	}
	return ranked, eligible
}

// Dispatch performs one attempt against the named provider and records the
// real outcome regardless of success or failure. It never retries a
// fallback itself: caller-driven fallback keeps latency and cost
// accounting per attempt accurate.
func (r *Router) Dispatch(ctx context.Context, providerName string, req types.RouteRequest) (*types.DispatchResult, error) {
	profile, err := r.registry.Get(providerName)
	if err != nil {
		return nil, err
	}

	adapter, ok := r.adapters[providerName]
	if !ok {
		return nil, relayerrors.NewProviderCallFailedError(providerName, 0, nil)
	}

	if !r.limiter.Admit(ctx, providerName) {
		return nil, relayerrors.NewRateLimitedError(providerName)
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 || maxTokens > profile.MaxTokens {
		maxTokens = profile.MaxTokens
	}

	// Detached from the caller's context: an abandoned request still runs
	// to completion so its outcome can be recorded. Discarding the
	// outcome instead of the response would bias future scores.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.dispatchTimeout)
	defer cancel()

	start := time.Now()
	resp, err := adapter.Send(callCtx, provider.Request{
		Prompt:      req.Prompt,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	})
	latency := time.Since(start)
	latencyMs := latency.Milliseconds()

	if err != nil {
		r.recorder.Submit(stats.Outcome{Provider: providerName, Success: false})
		metrics.DispatchRequests.WithLabelValues(providerName, "error").Inc()
		return nil, relayerrors.NewProviderCallFailedError(providerName, latencyMs, err)
	}

	r.recorder.Submit(stats.Outcome{Provider: providerName, Success: true, LatencyMs: latencyMs})

	cost := profile.Cost(resp.InputTokens, resp.OutputTokens)
	metrics.DispatchRequests.WithLabelValues(providerName, "success").Inc()
	metrics.ProviderLatency.WithLabelValues(providerName).Observe(latency.Seconds())
	metrics.ProviderCost.WithLabelValues(providerName).Add(cost)

	return &types.DispatchResult{
		Text:     resp.Text,
		Provider: providerName,
		Tokens: types.TokenUsage{
			Input:  resp.InputTokens,
			Output: resp.OutputTokens,
		},
		Cost:      cost,
		LatencyMs: latencyMs,
		RequestID: uuid.NewString(),
	}, nil
}

func pickFallbacks(eligible []scoring.Ranked, winner string) []string {
	fallbacks := make([]string, 0, maxFallbacks)
	for _, rk := range eligible {
		if rk.Name == winner {
			continue
		}
		fallbacks = append(fallbacks, rk.Name)
		if len(fallbacks) == maxFallbacks {
			break
		}
	}
	return fallbacks
}

func scoresByName(ranked []scoring.Ranked) map[string]types.ScoreBreakdown {
	scores := make(map[string]types.ScoreBreakdown, len(ranked))
	for _, rk := range ranked {
		scores[rk.Name] = rk.Breakdown
	}
	return scores
}
