// Package cleanup periodically prunes published outbox entries and idle
// in-memory rate limit windows.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	outboxmetrics "zeropass/pkg/platform/audit/outbox/metrics"
)

// OutboxStore exposes pruning of published entries.
type OutboxStore interface {
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}

// BucketStore exposes removal of windows with no live entries.
type BucketStore interface {
	Cleanup(ctx context.Context, now time.Time) (int, error)
}

type CleanupResult struct {
	PrunedOutboxEntries int64
	RemovedBuckets      int
	Duration            time.Duration
}

type Metrics struct {
	Runs     *prometheus.CounterVec
	Duration prometheus.Histogram
	Buckets  prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zeropass_cleanup_runs_total",
			Help: "Cleanup runs, labeled by status",
		}, []string{"status"}),
		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Name: "zeropass_cleanup_duration_seconds",
			Help: "Duration of cleanup runs in seconds",
		}),
		Buckets: f.NewCounter(prometheus.CounterOpts{
			Name: "zeropass_cleanup_buckets_removed_total",
			Help: "Idle in-memory rate limit windows removed",
		}),
	}
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithRetention sets how long published outbox entries are kept.
func WithRetention(retention time.Duration) Option {
	return func(s *Service) {
		if retention > 0 {
			s.retention = retention
		}
	}
}

// WithBuckets adds an in-memory bucket store to sweep.
func WithBuckets(buckets BucketStore) Option {
	return func(s *Service) {
		s.buckets = buckets
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithOutboxMetrics(m *outboxmetrics.Metrics) Option {
	return func(s *Service) {
		s.outboxMetrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

type Service struct {
	outbox        OutboxStore
	buckets       BucketStore
	interval      time.Duration
	retention     time.Duration
	logger        *slog.Logger
	metrics       *Metrics
	outboxMetrics *outboxmetrics.Metrics
	now           func() time.Time
}

func New(outbox OutboxStore, opts ...Option) (*Service, error) {
	if outbox == nil {
		return nil, fmt.Errorf("outbox store is required")
	}
	s := &Service{
		outbox:    outbox,
		interval:  15 * time.Minute,
		retention: 7 * 24 * time.Hour,
		logger:    slog.New(slog.DiscardHandler),
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Start runs cleanup every interval until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			res, err := s.RunOnce(ctx)
			if err != nil {
				s.logger.ErrorContext(ctx, "cleanup_failed",
					"error", err,
					"duration_ms", res.Duration.Milliseconds(),
				)
				continue
			}
			s.logger.InfoContext(ctx, "cleanup_completed",
				"outbox_pruned", res.PrunedOutboxEntries,
				"buckets_removed", res.RemovedBuckets,
				"duration_ms", res.Duration.Milliseconds(),
			)
		case <-ctx.Done():
			s.logger.Info("cleanup worker stopping", "reason", ctx.Err())
			return ctx.Err()
		}
	}
}

// RunOnce prunes once. A failing step does not stop the others; errors are
// joined.
func (s *Service) RunOnce(ctx context.Context) (CleanupResult, error) {
	start := time.Now()
	now := s.now()
	var (
		res  CleanupResult
		errs []error
	)

	pruned, err := s.outbox.DeleteProcessedBefore(ctx, now.Add(-s.retention))
	if err != nil {
		errs = append(errs, fmt.Errorf("prune outbox: %w", err))
	} else {
		res.PrunedOutboxEntries = pruned
		if s.outboxMetrics != nil {
			s.outboxMetrics.AddPruned(pruned)
		}
	}

	if s.buckets != nil {
		removed, err := s.buckets.Cleanup(ctx, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("sweep rate limit buckets: %w", err))
		} else {
			res.RemovedBuckets = removed
			if s.metrics != nil {
				s.metrics.Buckets.Add(float64(removed))
			}
		}
	}

	res.Duration = time.Since(start)
	status := "success"
	if len(errs) > 0 {
		status = "error"
	}
	if s.metrics != nil {
		s.metrics.Runs.WithLabelValues(status).Inc()
		s.metrics.Duration.Observe(res.Duration.Seconds())
	}
	return res, errors.Join(errs...)
}
