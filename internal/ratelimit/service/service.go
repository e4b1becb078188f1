// Package service enforces per-IP sliding window limits.
//
// Decisions come from the primary bucket store (Redis when configured).
// After repeated store failures a circuit breaker routes decisions to an
// in-memory fallback until the primary recovers.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"zeropass/internal/ratelimit/config"
	"zeropass/internal/ratelimit/metrics"
	"zeropass/internal/ratelimit/models"
	"zeropass/pkg/platform/circuit"
	"zeropass/pkg/platform/privacy"
	"zeropass/pkg/requestcontext"
)

// BucketStore consumes from a sliding window.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)
}

type Service struct {
	primary  BucketStore
	fallback BucketStore
	breaker  *circuit.Breaker
	config   *config.Config

	breakerOpts []circuit.Option
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.config = cfg
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithFallback sets the store used while the breaker is open.
func WithFallback(store BucketStore) Option {
	return func(s *Service) {
		s.fallback = store
	}
}

// WithBreakerOptions tunes the breaker guarding the primary store. The
// default opens after 5 failures and closes after 3 successful probes.
func WithBreakerOptions(opts ...circuit.Option) Option {
	return func(s *Service) {
		s.breakerOpts = append(s.breakerOpts, opts...)
	}
}

func New(primary BucketStore, opts ...Option) (*Service, error) {
	if primary == nil {
		return nil, errors.New("bucket store is required")
	}
	s := &Service{
		primary: primary,
		config:  config.DefaultConfig(),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.breaker = circuit.New("ratelimit", append(s.breakerOpts, circuit.WithStateChangeHook(s.onBreakerChange))...)
	return s, nil
}

// CheckIP consumes one request from the client's bucket for class. A class
// with no configured limit is denied.
func (s *Service) CheckIP(ctx context.Context, ip string, class models.EndpointClass) (*models.RateLimitResult, error) {
	limit, window, ok := s.config.GetIPLimit(class)
	if !ok {
		s.logger.WarnContext(ctx, "rate limit config missing",
			"endpoint_class", class,
			"request_id", requestcontext.RequestID(ctx),
		)
		return &models.RateLimitResult{
			ResetAt:    requestcontext.Now(ctx),
			RetryAfter: 60,
		}, nil
	}

	key := models.NewIPKey(class, ip).String()
	result, err := s.allow(ctx, key, limit, window)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordDecision(string(class), result.Allowed)
	}
	if !result.Allowed {
		s.logger.InfoContext(ctx, "ip_rate_limit_exceeded",
			"identifier", privacy.AnonymizeIP(ip),
			"endpoint_class", class,
			"limit", limit,
			"window_seconds", int(window.Seconds()),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return result, nil
}

// AllowProofVerify reports whether ip may verify another proof.
func (s *Service) AllowProofVerify(ctx context.Context, ip string) (bool, error) {
	result, err := s.CheckIP(ctx, ip, models.ClassProofVerify)
	if err != nil {
		return false, err
	}
	return result.Allowed, nil
}

func (s *Service) allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	if !s.breaker.Allow() {
		return s.fromFallback(ctx, key, limit, window, nil)
	}

	result, err := s.primary.Allow(ctx, key, limit, window)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncStoreErrors()
		}
		s.breaker.RecordFailure()
		return s.fromFallback(ctx, key, limit, window, err)
	}
	s.breaker.RecordSuccess()
	return result, nil
}

func (s *Service) fromFallback(ctx context.Context, key string, limit int, window time.Duration, cause error) (*models.RateLimitResult, error) {
	if s.fallback == nil {
		if cause == nil {
			cause = errors.New("primary bucket store unavailable")
		}
		return nil, cause
	}
	result, err := s.fallback.Allow(ctx, key, limit, window)
	if err != nil {
		return nil, errors.Join(cause, err)
	}
	result.Degraded = true
	return result, nil
}

func (s *Service) onBreakerChange(name string, to circuit.State) {
	s.logger.Warn("rate limit circuit breaker state changed", "breaker", name, "state", to.String())
	if s.metrics != nil {
		s.metrics.SetFallbackActive(to == circuit.StateOpen)
	}
}
