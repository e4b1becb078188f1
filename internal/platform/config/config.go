// Package config reads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment names accepted in ZEROPASS_ENV.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const (
	DefaultCredentialTTL     = 30 * 24 * time.Hour
	DefaultProofVerifyLimit  = 30
	DefaultProofVerifyWindow = time.Minute
	DefaultOutboxRetention   = 7 * 24 * time.Hour
	DefaultKafkaTopic        = "zeropass.credential.events"
)

// Server captures everything main needs to wire the service.
type Server struct {
	Addr            string
	Env             string
	DemoMode        bool
	ProofsEnabled   bool
	CredentialTTL   time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	TrustedProxies  string
	LogLevel        string

	Database Database
	Redis    Redis
	Kafka    Kafka
	Auth     Auth
	Limits   Limits
	Workers  Workers
}

type Database struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type Redis struct {
	URL      string
	PoolSize int
}

type Kafka struct {
	Brokers           string
	Topic             string
	Partitions        int
	ReplicationFactor int
}

// Auth configures hosted-auth session token verification. Exactly one of
// PublicKeyPEM (RS256) or Secret (HS256) is expected.
type Auth struct {
	PublicKeyPEM string
	Secret       string
	Issuer       string
}

type Limits struct {
	ProofVerifyLimit  int
	ProofVerifyWindow time.Duration
	AuthLimit         int
	AuthWindow        time.Duration
}

type Workers struct {
	OutboxPollInterval time.Duration
	OutboxRetention    time.Duration
	CleanupInterval    time.Duration
}

func (s Server) IsProduction() bool {
	return s.Env == EnvProduction
}

// FromEnv builds a Server config from environment variables so main stays lean.
// Malformed values are reported rather than silently replaced by defaults.
func FromEnv() (Server, error) {
	r := &reader{lookup: os.LookupEnv}

	cfg := Server{
		Addr:            r.str("ZEROPASS_ADDR", ":8080"),
		Env:             strings.ToLower(r.str("ZEROPASS_ENV", EnvDevelopment)),
		DemoMode:        r.boolean("DEMO_MODE", false),
		ProofsEnabled:   r.boolean("PROOFS_ENABLED", true),
		CredentialTTL:   r.duration("CREDENTIAL_TTL", DefaultCredentialTTL),
		RequestTimeout:  r.duration("REQUEST_TIMEOUT", 15*time.Second),
		ShutdownTimeout: r.duration("SHUTDOWN_TIMEOUT", 20*time.Second),
		TrustedProxies:  r.str("TRUSTED_PROXIES", ""),
		LogLevel:        r.str("LOG_LEVEL", "info"),
		Database: Database{
			URL:             r.str("DATABASE_URL", ""),
			MaxOpenConns:    r.integer("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    r.integer("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: r.duration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			AutoMigrate:     r.boolean("DB_AUTO_MIGRATE", true),
		},
		Redis: Redis{
			URL:      r.str("REDIS_URL", ""),
			PoolSize: r.integer("REDIS_POOL_SIZE", 10),
		},
		Kafka: Kafka{
			Brokers:           r.str("KAFKA_BROKERS", ""),
			Topic:             r.str("KAFKA_TOPIC", DefaultKafkaTopic),
			Partitions:        r.integer("KAFKA_TOPIC_PARTITIONS", 3),
			ReplicationFactor: r.integer("KAFKA_REPLICATION_FACTOR", 1),
		},
		Auth: Auth{
			PublicKeyPEM: r.str("CLERK_JWT_KEY", ""),
			Secret:       r.str("CLERK_SECRET", ""),
			Issuer:       r.str("CLERK_ISSUER", ""),
		},
		Limits: Limits{
			ProofVerifyLimit:  r.integer("PROOF_VERIFY_LIMIT", DefaultProofVerifyLimit),
			ProofVerifyWindow: r.duration("PROOF_VERIFY_WINDOW", DefaultProofVerifyWindow),
			AuthLimit:         r.integer("AUTH_RATE_LIMIT", 120),
			AuthWindow:        r.duration("AUTH_RATE_WINDOW", time.Minute),
		},
		Workers: Workers{
			OutboxPollInterval: r.duration("OUTBOX_POLL_INTERVAL", 500*time.Millisecond),
			OutboxRetention:    r.duration("OUTBOX_RETENTION", DefaultOutboxRetention),
			CleanupInterval:    r.duration("CLEANUP_INTERVAL", 10*time.Minute),
		},
	}

	if err := errors.Join(r.errs...); err != nil {
		return Server{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (s Server) Validate() error {
	var errs []error
	if s.Env != EnvDevelopment && s.Env != EnvProduction {
		errs = append(errs, fmt.Errorf("ZEROPASS_ENV must be %q or %q", EnvDevelopment, EnvProduction))
	}
	if s.CredentialTTL <= 0 {
		errs = append(errs, errors.New("CREDENTIAL_TTL must be positive"))
	}
	if s.Limits.ProofVerifyLimit <= 0 || s.Limits.ProofVerifyWindow <= 0 {
		errs = append(errs, errors.New("PROOF_VERIFY_LIMIT and PROOF_VERIFY_WINDOW must be positive"))
	}
	if s.Kafka.Partitions <= 0 || s.Kafka.ReplicationFactor <= 0 {
		errs = append(errs, errors.New("KAFKA_TOPIC_PARTITIONS and KAFKA_REPLICATION_FACTOR must be positive"))
	}
	if s.Auth.PublicKeyPEM == "" && s.Auth.Secret == "" {
		errs = append(errs, errors.New("one of CLERK_JWT_KEY or CLERK_SECRET is required"))
	}
	if s.IsProduction() {
		if s.DemoMode {
			errs = append(errs, errors.New("DEMO_MODE cannot be enabled in production"))
		}
		if s.Auth.PublicKeyPEM == "" {
			errs = append(errs, errors.New("CLERK_JWT_KEY is required in production"))
		}
		if s.Database.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required in production"))
		}
	}
	return errors.Join(errs...)
}

type reader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *reader) str(key, def string) string {
	if v, ok := r.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (r *reader) boolean(key string, def bool) bool {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (r *reader) integer(key string, def int) int {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}
