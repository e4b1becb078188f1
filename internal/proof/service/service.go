package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	credmodels "zeropass/internal/credential/models"
	"zeropass/internal/platform/device"
	"zeropass/internal/proof/metrics"
	"zeropass/internal/proof/models"
	id "zeropass/pkg/domain"
	dErrors "zeropass/pkg/domain-errors"
	"zeropass/pkg/platform/audit"
	"zeropass/pkg/platform/privacy"
	"zeropass/pkg/platform/sentinel"
	"zeropass/pkg/platform/tracer"
	"zeropass/pkg/requestcontext"
)

// CredentialReader is the read side of the credential store. Lookups
// return sentinel.ErrNotFound when nothing matches.
type CredentialReader interface {
	FindByUser(ctx context.Context, userID id.UserID) (*credmodels.Credential, error)
	FindByCredentialID(ctx context.Context, credentialID id.CredentialID) (*credmodels.Credential, error)
}

// Store persists proof records. Find returns sentinel.ErrNotFound when absent.
type Store interface {
	Upsert(ctx context.Context, r *models.Record) error
	Find(ctx context.Context, credentialID id.CredentialID, wallet id.WalletAddress) (*models.Record, error)
}

// RateLimiter gates verification per client IP.
type RateLimiter interface {
	AllowProofVerify(ctx context.Context, clientIP string) (bool, error)
}

// ZKVerifier checks the zero-knowledge part of a proof.
type ZKVerifier interface {
	Verify(ctx context.Context, payload models.Payload, record *models.Record) (bool, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// StubZKVerifier accepts every proof whose commitment already matched.
type StubZKVerifier struct{}

func (StubZKVerifier) Verify(context.Context, models.Payload, *models.Record) (bool, error) {
	return true, nil
}

const lookupTimeout = 3 * time.Second

type Option func(*Service)

type Service struct {
	credentials CredentialReader
	proofs      Store
	limiter     RateLimiter
	zk          ZKVerifier
	auditor     AuditPublisher
	tracer      tracer.Tracer
	metrics     *metrics.Metrics
	logger      *slog.Logger
	enabled     bool
}

func New(credentials CredentialReader, proofs Store, auditor AuditPublisher, opts ...Option) *Service {
	s := &Service{
		credentials: credentials,
		proofs:      proofs,
		auditor:     auditor,
		zk:          StubZKVerifier{},
		tracer:      tracer.NewNoop(),
		logger:      slog.New(slog.DiscardHandler),
		enabled:     true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func WithProofsEnabled(enabled bool) Option {
	return func(s *Service) {
		s.enabled = enabled
	}
}

func WithRateLimiter(l RateLimiter) Option {
	return func(s *Service) {
		s.limiter = l
	}
}

func WithZKVerifier(v ZKVerifier) Option {
	return func(s *Service) {
		if v != nil {
			s.zk = v
		}
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// Generate issues a fresh commitment for the caller's verified credential
// and returns the payload encoding it. Earlier payloads for the same
// credential and wallet stop matching.
func (s *Service) Generate(ctx context.Context, userID id.UserID) (result *models.GenerateResult, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanProofGenerate)
	defer func() { span.End(err) }()

	if !s.enabled {
		return nil, dErrors.New(dErrors.CodeForbidden, "proofs are disabled")
	}
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing user context")
	}
	now := requestcontext.Now(ctx)

	cred, err := s.credentials.FindByUser(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "no credential for user")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read credential")
	}
	status := credmodels.Derive(cred, now)
	span.SetAttributes(
		tracer.String(tracer.AttrCredentialID, string(cred.CredentialID)),
		tracer.String(tracer.AttrDerivedStatus, string(status)),
	)
	if status != credmodels.DerivedVerified {
		return nil, dErrors.New(dErrors.CodePolicyViolation, "credential is "+string(status)+", proofs require VERIFIED")
	}

	nonce, err := models.NewNonce()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate nonce")
	}
	commitment := models.Commit(cred.CredentialID, cred.WalletAddress, cred.ClaimsDigest, nonce)
	if err := s.proofs.Upsert(ctx, &models.Record{
		CredentialID:  cred.CredentialID,
		WalletAddress: cred.WalletAddress,
		Commitment:    commitment,
		CreatedAt:     now,
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save proof")
	}

	if s.metrics != nil {
		s.metrics.IncGenerated()
	}
	s.emitAudit(ctx, audit.Event{
		Action:       audit.ActionProofGenerated,
		UserID:       userID,
		CredentialID: cred.CredentialID,
		Wallet:       privacy.MaskWallet(string(cred.WalletAddress)),
	})

	payload := models.Payload{Wallet: cred.WalletAddress, CredentialID: cred.CredentialID, Commitment: commitment}
	return &models.GenerateResult{
		Payload:      payload.String(),
		Commitment:   commitment,
		CredentialID: cred.CredentialID,
		ExpiresAt:    cred.ExpiresAt,
	}, nil
}

// Verify checks a payload. Policy failures come back as a result with a
// Reason; only malformed payloads and infrastructure failures are errors.
func (s *Service) Verify(ctx context.Context, raw string) (result *models.VerifyResult, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, tracer.SpanProofVerify)
	defer func() {
		if result != nil {
			span.SetAttributes(tracer.Bool(tracer.AttrValid, result.Valid), tracer.String(tracer.AttrReason, string(result.Reason)))
			s.observe(result, time.Since(start))
		}
		span.End(err)
	}()

	now := requestcontext.Now(ctx)
	if !s.enabled {
		return models.Rejected(models.ReasonProofsDisabled, now), nil
	}
	if !s.allow(ctx) {
		return models.Rejected(models.ReasonRateLimited, now), nil
	}

	payload, err := models.ParsePayload(raw)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		tracer.String(tracer.AttrCredentialID, string(payload.CredentialID)),
		tracer.String(tracer.AttrWallet, privacy.MaskWallet(string(payload.Wallet))),
	)

	cred, record, err := s.lookup(ctx, payload)
	if err != nil {
		return nil, err
	}

	result = s.evaluate(payload, cred, record, now)
	if result.Valid {
		ok, zkErr := s.zk.Verify(ctx, payload, record)
		if zkErr != nil {
			return nil, dErrors.Wrap(zkErr, dErrors.CodeInternal, "proof verification failed")
		}
		if !ok {
			result = s.reject(payload, cred, models.ReasonMismatch, now)
		}
	}
	s.auditVerification(ctx, payload, result)
	return result, nil
}

// evaluate applies the credential and commitment checks in order.
func (s *Service) evaluate(p models.Payload, cred *credmodels.Credential, record *models.Record, now time.Time) *models.VerifyResult {
	if cred == nil || cred.WalletAddress != p.Wallet {
		return s.reject(p, nil, models.ReasonNoCredential, now)
	}
	switch credmodels.Derive(cred, now) {
	case credmodels.DerivedPending, credmodels.DerivedRevoked:
		return s.reject(p, cred, models.ReasonNoCredential, now)
	case credmodels.DerivedExpired:
		return s.reject(p, cred, models.ReasonExpired, now)
	}
	if record == nil {
		return s.reject(p, cred, models.ReasonNoProof, now)
	}
	if record.Commitment != p.Commitment {
		return s.reject(p, cred, models.ReasonMismatch, now)
	}
	return &models.VerifyResult{
		Valid:        true,
		CredentialID: cred.CredentialID,
		Wallet:       cred.WalletAddress,
		Status:       credmodels.DerivedVerified,
		ExpiresAt:    cred.ExpiresAt,
		CheckedAt:    now,
	}
}

func (s *Service) reject(p models.Payload, cred *credmodels.Credential, reason models.FailureReason, now time.Time) *models.VerifyResult {
	r := models.Rejected(reason, now)
	r.CredentialID = p.CredentialID
	r.Wallet = p.Wallet
	r.Status = credmodels.DerivedNone
	if cred != nil {
		r.Status = credmodels.Derive(cred, now)
		r.ExpiresAt = cred.ExpiresAt
	}
	return r
}

// lookup fetches the credential and proof record concurrently. Missing rows
// come back as nil without error.
func (s *Service) lookup(ctx context.Context, p models.Payload) (*credmodels.Credential, *models.Record, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanProofLookup)
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	var (
		cred   *credmodels.Credential
		record *models.Record
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.credentials.FindByCredentialID(gctx, p.CredentialID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		cred = c
		return err
	})
	g.Go(func() error {
		r, err := s.proofs.Find(gctx, p.CredentialID, p.Wallet)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		record = r
		return err
	})
	err := g.Wait()
	span.End(err)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load proof state")
	}
	return cred, record, nil
}

// allow fails open: a broken limiter must not block verification.
func (s *Service) allow(ctx context.Context) bool {
	if s.limiter == nil {
		return true
	}
	ok, err := s.limiter.AllowProofVerify(ctx, requestcontext.ClientIP(ctx))
	if err != nil {
		s.logger.WarnContext(ctx, "rate limiter unavailable, allowing request",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return true
	}
	return ok
}

func (s *Service) auditVerification(ctx context.Context, p models.Payload, result *models.VerifyResult) {
	event := audit.Event{
		Action:       audit.ActionProofVerified,
		CredentialID: p.CredentialID,
		Wallet:       privacy.MaskWallet(string(p.Wallet)),
		Status:       string(result.Status),
		Platform:     device.Classify(requestcontext.UserAgent(ctx)).Label(),
	}
	if !result.Valid {
		event.Action = audit.ActionProofRejected
		event.Reason = string(result.Reason)
	}
	s.emitAudit(ctx, event)
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"credential_id", event.CredentialID,
			"error", err,
		)
	}
}

func (s *Service) observe(result *models.VerifyResult, took time.Duration) {
	if s.metrics == nil {
		return
	}
	outcome := "valid"
	if !result.Valid {
		outcome = string(result.Reason)
	}
	s.metrics.ObserveVerification(outcome, took.Seconds())
}
