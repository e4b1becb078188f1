package httptransport

import (
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	credentialhandler "zeropass/internal/credential/handler"
	"zeropass/internal/platform/health"
	proofhandler "zeropass/internal/proof/handler"
	ratelimitmw "zeropass/internal/ratelimit/middleware"
	"zeropass/internal/ratelimit/models"
	"zeropass/pkg/platform/middleware/auth"
	"zeropass/pkg/platform/middleware/metadata"
	"zeropass/pkg/platform/middleware/request"
	"zeropass/pkg/platform/middleware/requesttime"
	"zeropass/pkg/platform/validation"
)

const defaultRequestTimeout = 30 * time.Second

// Deps are the handlers and middleware the router mounts. RateLimits,
// Metrics, Gatherer and Clock are optional.
type Deps struct {
	Logger         *slog.Logger
	Health         *health.Handler
	Credentials    *credentialhandler.Handler
	Proofs         *proofhandler.Handler
	Tokens         auth.TokenValidator
	RateLimits     *ratelimitmw.Middleware
	Metrics        *request.Metrics
	Gatherer       prometheus.Gatherer
	TrustedProxies []netip.Prefix
	RequestTimeout time.Duration
	Clock          func() time.Time
}

// NewRouter wires all endpoints with middleware.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	clock := d.Clock
	if clock == nil {
		clock = time.Now
	}

	r := chi.NewRouter()

	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(requesttime.WithClock(clock))
	r.Use(metadata.NewMiddleware(d.TrustedProxies).Handler)
	r.Use(request.Logger(logger))
	r.Use(request.ContentTypeJSON)
	r.Use(request.Timeout(timeout))
	r.Use(request.LatencyMiddleware(d.Metrics))
	r.Use(request.BodyLimit(validation.MaxBodySize))

	if d.Health != nil {
		d.Health.Register(r)
	}
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	// Anonymous endpoints. Proof verification is limited inside the proof
	// service so the limit surfaces as a RATE_LIMITED reason.
	r.Group(func(r chi.Router) {
		d.Proofs.RegisterPublic(r)
	})
	r.Group(func(r chi.Router) {
		useLimit(r, d.RateLimits, models.ClassRead)
		d.Credentials.RegisterPublic(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(d.Tokens, logger))
		useLimit(r, d.RateLimits, models.ClassWrite)
		d.Credentials.Register(r)
		d.Proofs.Register(r)
	})

	return r
}

func useLimit(r chi.Router, m *ratelimitmw.Middleware, class models.EndpointClass) {
	if m != nil {
		r.Use(m.RateLimit(class))
	}
}
