// Package stats is the bookkeeping layer for per-provider outcomes. It
// records successes, failures, and latency samples in the shared counter
// store and exposes rolling snapshots for scoring. It makes no routing
// decisions itself.
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/orcaai/relay/internal/metrics"
	"github.com/orcaai/relay/internal/store"
)

const (
	// LatencyHistorySize bounds the recent-latency list per provider.
	LatencyHistorySize = 100

	// RecentWindow is how many of the newest samples scoring looks at.
	RecentWindow = 10

	// DefaultLatencyMs is reported when a provider has no samples yet.
	// "Unknown, assume average-poor" rather than zero, which would wrongly
	// favor an untested provider.
	DefaultLatencyMs = 2000

	// ReliabilityPrior is assumed before any requests have been observed.
	ReliabilityPrior = 0.9

	hourlyTTL = 7 * 24 * time.Hour
)

// Outcome is the result of one completed dispatch.
type Outcome struct {
	Provider  string
	Success   bool
	LatencyMs int64
}

// Snapshot is a derived, point-in-time view of a provider's rolling
// metrics. It is never stored.
type Snapshot struct {
	SuccessCount    int64   `json:"success_count"`
	ErrorCount      int64   `json:"error_count"`
	RecentLatencies []int64 `json:"recent_latencies"` // newest first
}

// Reliability returns success/(success+errors), or the prior with no history.
func (s *Snapshot) Reliability() float64 {
	total := s.SuccessCount + s.ErrorCount
	if total == 0 {
		return ReliabilityPrior
	}
	return float64(s.SuccessCount) / float64(total)
}

// AverageRecentLatency returns the mean of the k newest latency samples,
// all samples if fewer exist, or DefaultLatencyMs with no samples at all.
func (s *Snapshot) AverageRecentLatency(k int) float64 {
	if len(s.RecentLatencies) == 0 {
		return DefaultLatencyMs
	}
	if k <= 0 || k > len(s.RecentLatencies) {
		k = len(s.RecentLatencies)
	}
	var sum int64
	for _, v := range s.RecentLatencies[:k] {
		sum += v
	}
	return float64(sum) / float64(k)
}

// Tracker records outcomes and reads snapshots from the counter store.
type Tracker struct {
	store  store.Counters
	logger *slog.Logger
	now    func() time.Time
}

// NewTracker creates a tracker on the given counter store.
func NewTracker(counters store.Counters, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		store:  counters,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock overrides the tracker's time source. Test hook for hourly buckets.
func (t *Tracker) SetClock(now func() time.Time) {
	t.now = now
}

func successKey(provider string) string { return fmt.Sprintf("metrics:%s:success", provider) }
func errorKey(provider string) string   { return fmt.Sprintf("metrics:%s:errors", provider) }
func latencyKey(provider string) string { return fmt.Sprintf("metrics:%s:latencies", provider) }

func (t *Tracker) hourlyKey(provider string) string {
	return fmt.Sprintf("metrics:%s:hourly:%d", provider, t.now().Unix()/3600)
}

// Record applies one outcome: lifetime success/error counters, the bounded
// recent-latency list on success, and an hourly bucket with a 7-day expiry
// used for external reporting only.
//
// Recording is best-effort: a store error is returned for the caller to
// log, never to fail the original request.
func (t *Tracker) Record(ctx context.Context, o Outcome) error {
	if o.Success {
		if _, err := t.store.Incr(ctx, successKey(o.Provider)); err != nil {
			return err
		}
		if err := t.store.PushFront(ctx, latencyKey(o.Provider), o.LatencyMs); err != nil {
			return err
		}
		if err := t.store.Trim(ctx, latencyKey(o.Provider), 0, LatencyHistorySize-1); err != nil {
			return err
		}
	} else {
		if _, err := t.store.Incr(ctx, errorKey(o.Provider)); err != nil {
			return err
		}
	}

	if _, err := t.store.IncrWithExpiry(ctx, t.hourlyKey(o.Provider), hourlyTTL); err != nil {
		return err
	}
	return nil
}

// GetSnapshot reads the current counters and latency list for a provider.
// Missing keys are treated as zero/empty. On a store error the returned
// snapshot is still usable (all defaults) so scoring can proceed.
func (t *Tracker) GetSnapshot(ctx context.Context, provider string) (*Snapshot, error) {
	snap := &Snapshot{}

	success, _, err := t.store.Get(ctx, successKey(provider))
	if err != nil {
		return snap, err
	}
	snap.SuccessCount = success

	errors, _, err := t.store.Get(ctx, errorKey(provider))
	if err != nil {
		return snap, err
	}
	snap.ErrorCount = errors

	latencies, err := t.store.Range(ctx, latencyKey(provider), 0, LatencyHistorySize-1)
	if err != nil {
		return snap, err
	}
	snap.RecentLatencies = latencies

	return snap, nil
}

// HourlyCount returns the reporting bucket for the given hour offset from
// now (0 = current hour, -1 = previous hour). Missing buckets read as zero.
func (t *Tracker) HourlyCount(ctx context.Context, provider string, hourOffset int) (int64, error) {
	hour := t.now().Unix()/3600 + int64(hourOffset)
	key := fmt.Sprintf("metrics:%s:hourly:%d", provider, hour)
	n, _, err := t.store.Get(ctx, key)
	return n, err
}

// warnStoreDegraded logs a counter-store failure once per call site and
// bumps the fail-open metric.
func (t *Tracker) warnStoreDegraded(op string, err error) {
	metrics.StoreFailOpen.WithLabelValues("stats").Inc()
	t.logger.Warn("counter store unavailable, metrics recording degraded",
		"op", op,
		"error", err,
	)
}
