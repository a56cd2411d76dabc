package api

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	relayerrors "github.com/orcaai/relay/pkg/errors"
)

// ClientLimiter throttles requests per client at the HTTP edge. This is a
// local token bucket, separate from the distributed per-provider admission
// windows: it protects this instance, not the providers.
type ClientLimiter struct {
	mu         sync.Mutex
	limiters   map[string]*rate.Limiter
	lastAccess map[string]time.Time

	perMinute  int
	burst      int
	cleanupTTL time.Duration
	logger     *slog.Logger
}

// NewClientLimiter creates a per-client limiter allowing perMinute
// requests with the given burst.
func NewClientLimiter(perMinute, burst int, logger *slog.Logger) *ClientLimiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	if burst <= 0 {
		burst = 10
	}
	if logger == nil {
		logger = slog.Default()
	}

	cl := &ClientLimiter{
		limiters:   make(map[string]*rate.Limiter),
		lastAccess: make(map[string]time.Time),
		perMinute:  perMinute,
		burst:      burst,
		cleanupTTL: 10 * time.Minute,
		logger:     logger,
	}
	go cl.cleanupLoop()
	return cl
}

func (cl *ClientLimiter) clientKey(r *http.Request) string {
	if key := r.Header.Get("Authorization"); key != "" {
		return key
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (cl *ClientLimiter) allow(key string) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	lim, ok := cl.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(float64(cl.perMinute)/60.0), cl.burst)
		cl.limiters[key] = lim
	}
	cl.lastAccess[key] = time.Now()
	return lim.Allow()
}

func (cl *ClientLimiter) cleanupLoop() {
	ticker := time.NewTicker(cl.cleanupTTL)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-cl.cleanupTTL)
		cl.mu.Lock()
		for key, last := range cl.lastAccess {
			if last.Before(cutoff) {
				delete(cl.limiters, key)
				delete(cl.lastAccess, key)
			}
		}
		cl.mu.Unlock()
	}
}

// Middleware wraps next with the per-client throttle.
func (cl *ClientLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !cl.allow(cl.clientKey(r)) {
			cl.logger.Info("client throttled", "remote", r.RemoteAddr)
			re := &relayerrors.RouteError{
				StatusCode: http.StatusTooManyRequests,
				Message:    "too many requests",
				Type:       relayerrors.TypeRateLimited,
				Retryable:  true,
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(re.HTTPStatusCode())
			_, _ = w.Write([]byte(`{"error":{"type":"` + re.Type + `","message":"` + re.Message + `"}}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
