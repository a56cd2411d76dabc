// Package ratelimit enforces per-provider admission control over fixed
// 60-second wall-clock windows, backed by the shared counter store so that
// every router replica counts against the same quota.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/orcaai/relay/internal/metrics"
	"github.com/orcaai/relay/internal/registry"
	"github.com/orcaai/relay/internal/store"
)

// Window is the fixed admission window. Bursts of up to 2x a provider's
// limit are possible across a window boundary; that approximation is the
// accepted trade-off of fixed windows over sliding ones.
const Window = 60 * time.Second

// Limiter decides whether a request to a provider may proceed within the
// current window. When the counter store is unreachable it fails open:
// availability of routing takes priority over strict limit enforcement.
type Limiter struct {
	store    store.Counters
	registry *registry.Registry
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a limiter over the given store and registry.
func New(counters store.Counters, reg *registry.Registry, logger *slog.Logger) *Limiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Limiter{
		store:    counters,
		registry: reg,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock overrides the limiter's time source. Test hook for window keys.
func (l *Limiter) SetClock(now func() time.Time) {
	l.now = now
}

func (l *Limiter) windowKey(provider string) string {
	return fmt.Sprintf("rate_limit:%s:%d", provider, l.now().Unix()/60)
}

// Admit reports whether a request to provider may proceed. Unknown
// providers are admitted; the router validates names against the registry
// before asking for admission.
//
// A concurrent race can admit at most one request beyond the limit: the
// read and increment are separate store calls. That single excess
// admission is accepted in favor of a simpler store contract.
func (l *Limiter) Admit(ctx context.Context, provider string) bool {
	profile, err := l.registry.Get(provider)
	if err != nil {
		return true
	}
	if profile.RateLimit <= 0 {
		return true
	}

	key := l.windowKey(provider)

	count, present, err := l.store.Get(ctx, key)
	if err != nil {
		l.failOpen(provider, err)
		return true
	}

	if !present {
		if err := l.store.SetWithExpiry(ctx, key, 1, Window); err != nil {
			l.failOpen(provider, err)
		}
		return true
	}

	if count >= int64(profile.RateLimit) {
		metrics.AdmissionRejections.WithLabelValues(provider).Inc()
		return false
	}

	if _, err := l.store.Incr(ctx, key); err != nil {
		l.failOpen(provider, err)
	}
	return true
}

// Check reports whether provider has admission headroom in the current
// window without consuming any of it. Routing uses this to mark providers
// ineligible; only Dispatch consumes quota through Admit.
func (l *Limiter) Check(ctx context.Context, provider string) bool {
	profile, err := l.registry.Get(provider)
	if err != nil {
		return true
	}
	if profile.RateLimit <= 0 {
		return true
	}

	count, present, err := l.store.Get(ctx, l.windowKey(provider))
	if err != nil {
		l.failOpen(provider, err)
		return true
	}
	if !present {
		return true
	}
	return count < int64(profile.RateLimit)
}

func (l *Limiter) failOpen(provider string, err error) {
	metrics.StoreFailOpen.WithLabelValues("ratelimit").Inc()
	l.logger.Warn("counter store unavailable, admitting without limit check",
		"provider", provider,
		"error", err,
	)
}
