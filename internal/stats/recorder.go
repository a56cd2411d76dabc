package stats

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/orcaai/relay/internal/metrics"
)

const (
	defaultQueueSize     = 1024
	defaultRecordTimeout = 5 * time.Second
)

// Recorder applies outcomes to a Tracker off the response path. Submission
// never blocks the caller: a full queue drops the outcome with a logged
// warning instead of applying backpressure to request handling.
//
// A single worker drains the queue, so outcomes are applied in submission
// order and the per-provider "most recent k" latency window stays
// meaningful.
type Recorder struct {
	tracker *Tracker
	queue   chan Outcome
	logger  *slog.Logger

	timeout time.Duration

	closeOnce sync.Once
	done      chan struct{}
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithQueueSize sets the bounded queue capacity (default 1024).
func WithQueueSize(n int) RecorderOption {
	return func(r *Recorder) {
		if n > 0 {
			r.queue = make(chan Outcome, n)
		}
	}
}

// WithRecordTimeout bounds each store write batch (default 5s).
func WithRecordTimeout(d time.Duration) RecorderOption {
	return func(r *Recorder) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewRecorder creates a recorder and starts its worker.
func NewRecorder(tracker *Tracker, logger *slog.Logger, opts ...RecorderOption) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		tracker: tracker,
		queue:   make(chan Outcome, defaultQueueSize),
		logger:  logger,
		timeout: defaultRecordTimeout,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	go r.run()
	return r
}

// Submit enqueues an outcome for recording. It never blocks: when the
// queue is full the outcome is dropped and counted.
func (r *Recorder) Submit(o Outcome) {
	select {
	case r.queue <- o:
		metrics.RecorderQueueDepth.Set(float64(len(r.queue)))
	default:
		metrics.RecorderDrops.Inc()
		r.logger.Warn("recorder queue full, dropping outcome",
			"provider", o.Provider,
			"success", o.Success,
		)
	}
}

func (r *Recorder) run() {
	defer close(r.done)

	for o := range r.queue {
		metrics.RecorderQueueDepth.Set(float64(len(r.queue)))

		// Detached from any request context: the request that produced
		// this outcome may already be gone.
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		if err := r.tracker.Record(ctx, o); err != nil {
			r.tracker.warnStoreDegraded("record", err)
		}
		cancel()
	}
}

// Close stops accepting outcomes and waits for the queue to drain.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		close(r.queue)
	})
	<-r.done
}
