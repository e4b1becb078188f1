package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	credentialhandler "zeropass/internal/credential/handler"
	credentialmetrics "zeropass/internal/credential/metrics"
	credentialservice "zeropass/internal/credential/service"
	credentialstore "zeropass/internal/credential/store"
	jwttoken "zeropass/internal/jwt_token"
	"zeropass/internal/payment"
	"zeropass/internal/platform/config"
	"zeropass/internal/platform/database"
	"zeropass/internal/platform/health"
	"zeropass/internal/platform/kafka"
	"zeropass/internal/platform/kafka/producer"
	"zeropass/internal/platform/logger"
	platformredis "zeropass/internal/platform/redis"
	proofhandler "zeropass/internal/proof/handler"
	proofmetrics "zeropass/internal/proof/metrics"
	proofservice "zeropass/internal/proof/service"
	proofstore "zeropass/internal/proof/store"
	ratelimitconfig "zeropass/internal/ratelimit/config"
	ratelimitmetrics "zeropass/internal/ratelimit/metrics"
	ratelimitmw "zeropass/internal/ratelimit/middleware"
	ratelimitmodels "zeropass/internal/ratelimit/models"
	ratelimitservice "zeropass/internal/ratelimit/service"
	"zeropass/internal/ratelimit/store/bucket"
	httptransport "zeropass/internal/transport/http"
	"zeropass/internal/workers/cleanup"
	"zeropass/pkg/platform/audit"
	"zeropass/pkg/platform/audit/outbox"
	outboxmetrics "zeropass/pkg/platform/audit/outbox/metrics"
	outboxmemory "zeropass/pkg/platform/audit/outbox/store/memory"
	outboxpostgres "zeropass/pkg/platform/audit/outbox/store/postgres"
	"zeropass/pkg/platform/audit/outbox/worker"
	"zeropass/pkg/platform/middleware/auth"
	"zeropass/pkg/platform/middleware/metadata"
	"zeropass/pkg/platform/middleware/request"
	"zeropass/pkg/platform/tracer"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// credentialBackend is satisfied by both credential stores.
type credentialBackend interface {
	credentialservice.Store
	proofservice.CredentialReader
}

type stores struct {
	credentials credentialBackend
	proofs      proofservice.Store
	outbox      outbox.Store
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	log.Info("initializing zeropass",
		"addr", cfg.Addr,
		"env", cfg.Env,
		"demo_mode", cfg.DemoMode,
		"proofs_enabled", cfg.ProofsEnabled,
	)

	reg := prometheus.DefaultRegisterer
	healthHandler := health.New(cfg.Env)

	pool, err := database.New(ctx, database.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	var st stores
	if pool != nil {
		defer func() { _ = pool.Close() }()
		if cfg.Database.AutoMigrate {
			if err := database.Migrate(ctx, pool.DB()); err != nil {
				return fmt.Errorf("migrate database: %w", err)
			}
		}
		if err := pool.RegisterMetrics(reg); err != nil {
			log.Warn("database metrics not registered", "error", err)
		}
		healthHandler.RegisterCheck(pool)
		st = stores{
			credentials: credentialstore.NewPostgres(pool.DB()),
			proofs:      proofstore.NewPostgres(pool.DB()),
			outbox:      outboxpostgres.New(pool.DB()),
		}
		log.Info("using postgres stores")
	} else {
		st = stores{
			credentials: credentialstore.NewInMemory(),
			proofs:      proofstore.NewInMemory(),
			outbox:      outboxmemory.New(),
		}
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	rdb, err := platformredis.New(ctx, platformredis.Config{
		URL:      cfg.Redis.URL,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
		if err := rdb.RegisterMetrics(reg); err != nil {
			log.Warn("redis metrics not registered", "error", err)
		}
		healthHandler.RegisterCheck(rdb)
	}

	var prod worker.Producer
	if cfg.Kafka.Brokers != "" {
		kp, err := producer.New(producer.DefaultConfig(cfg.Kafka.Brokers), log)
		if err != nil {
			return fmt.Errorf("create kafka producer: %w", err)
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			kp.Close(closeCtx)
		}()
		if err := kp.EnsureTopic(ctx, cfg.Kafka.Topic, int32(cfg.Kafka.Partitions), int16(cfg.Kafka.ReplicationFactor)); err != nil {
			log.Warn("kafka topic not provisioned, relying on auto-creation", "topic", cfg.Kafka.Topic, "error", err)
		}
		healthHandler.RegisterCheck(kafka.NewHealthChecker(kp))
		prod = kp
	} else {
		log.Warn("KAFKA_BROKERS not set, audit events are logged and dropped")
		prod = producer.NewLogProducer(log)
	}

	outboxMetrics := outboxmetrics.New(reg)
	publisher := audit.NewPublisher(st.outbox, audit.WithPublisherLogger(log))
	outboxWorker := worker.New(st.outbox, prod,
		worker.WithTopic(cfg.Kafka.Topic),
		worker.WithPollInterval(cfg.Workers.OutboxPollInterval),
		worker.WithMetrics(outboxMetrics),
		worker.WithLogger(log),
	)

	memBuckets := bucket.NewInMemoryBucketStore()
	limitCfg := ratelimitconfig.DefaultConfig().
		WithProofVerifyLimit(cfg.Limits.ProofVerifyLimit, cfg.Limits.ProofVerifyWindow).
		WithClassLimit(ratelimitmodels.ClassWrite, cfg.Limits.AuthLimit, cfg.Limits.AuthWindow)
	limiterOpts := []ratelimitservice.Option{
		ratelimitservice.WithConfig(limitCfg),
		ratelimitservice.WithMetrics(ratelimitmetrics.New(reg)),
		ratelimitservice.WithLogger(log),
	}
	var primaryBuckets ratelimitservice.BucketStore = memBuckets
	if rdb != nil {
		primaryBuckets = bucket.NewRedis(rdb.Client)
		limiterOpts = append(limiterOpts, ratelimitservice.WithFallback(memBuckets))
	}
	limiter, err := ratelimitservice.New(primaryBuckets, limiterOpts...)
	if err != nil {
		return fmt.Errorf("create rate limiter: %w", err)
	}

	credSvc := credentialservice.New(st.credentials, payment.New(cfg.DemoMode), publisher,
		credentialservice.WithCredentialTTL(cfg.CredentialTTL),
		credentialservice.WithMetrics(credentialmetrics.New(reg)),
		credentialservice.WithLogger(log),
	)
	proofSvc := proofservice.New(st.credentials, st.proofs, publisher,
		proofservice.WithProofsEnabled(cfg.ProofsEnabled),
		proofservice.WithRateLimiter(limiter),
		proofservice.WithTracer(tracer.NewOTel()),
		proofservice.WithMetrics(proofmetrics.New(reg)),
		proofservice.WithLogger(log),
	)

	tokens, err := newTokenValidator(cfg.Auth)
	if err != nil {
		return fmt.Errorf("configure token verification: %w", err)
	}

	trusted, err := metadata.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("parse TRUSTED_PROXIES: %w", err)
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:         log,
		Health:         healthHandler,
		Credentials:    credentialhandler.New(credSvc, log),
		Proofs:         proofhandler.New(proofSvc, log),
		Tokens:         tokens,
		RateLimits:     ratelimitmw.New(limiter, log),
		Metrics:        request.NewMetrics(),
		Gatherer:       prometheus.DefaultGatherer,
		TrustedProxies: trusted,
		RequestTimeout: cfg.RequestTimeout,
	})

	cleanupOpts := []cleanup.Option{
		cleanup.WithLogger(log),
		cleanup.WithInterval(cfg.Workers.CleanupInterval),
		cleanup.WithRetention(cfg.Workers.OutboxRetention),
		cleanup.WithBuckets(memBuckets),
		cleanup.WithMetrics(cleanup.NewMetrics(reg)),
		cleanup.WithOutboxMetrics(outboxMetrics),
	}
	cleaner, err := cleanup.New(st.outbox, cleanupOpts...)
	if err != nil {
		return fmt.Errorf("create cleanup worker: %w", err)
	}

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()
	outboxWorker.Start()
	go func() {
		if err := cleaner.Start(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("cleanup worker stopped", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.RequestTimeout,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	cancelWorkers()
	if err := outboxWorker.Stop(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("outbox worker: %w", err))
	}
	return errors.Join(errs...)
}

// newTokenValidator prefers RS256 with the hosted-auth public key and falls
// back to the shared HS256 secret.
func newTokenValidator(cfg config.Auth) (auth.TokenValidator, error) {
	var opts []jwttoken.Option
	if cfg.Issuer != "" {
		opts = append(opts, jwttoken.WithIssuer(cfg.Issuer))
	}
	if cfg.PublicKeyPEM != "" {
		return jwttoken.NewRS256Verifier(cfg.PublicKeyPEM, opts...)
	}
	return jwttoken.NewHS256Verifier(cfg.Secret, opts...)
}
