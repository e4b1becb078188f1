package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"zeropass/internal/credential/metrics"
	"zeropass/internal/credential/models"
	"zeropass/internal/credential/store"
	"zeropass/internal/payment"
	id "zeropass/pkg/domain"
	dErrors "zeropass/pkg/domain-errors"
	"zeropass/pkg/platform/audit"
	"zeropass/pkg/platform/privacy"
	platformsync "zeropass/pkg/platform/sync"
	"zeropass/pkg/requestcontext"
)

// Store defines credential persistence.
// Error Contract:
// - Find* return store.ErrNotFound when no row matches
// - Upsert returns the row as stored, which may differ from its input for revoked rows
type Store interface {
	FindByUser(ctx context.Context, userID id.UserID) (*models.Credential, error)
	FindByWallet(ctx context.Context, wallet id.WalletAddress) (*models.Credential, error)
	FindLiveByWallet(ctx context.Context, wallet id.WalletAddress, exclude id.UserID, now time.Time) (*models.Credential, error)
	FindByCredentialID(ctx context.Context, credentialID id.CredentialID) (*models.Credential, error)
	Upsert(ctx context.Context, c *models.Credential) (*models.Credential, error)
}

// PaymentVerifier confirms the KYC fee transaction.
type PaymentVerifier interface {
	Verify(ctx context.Context, wallet id.WalletAddress, txHash string) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// DefaultCredentialTTL is how long a verified credential stays valid.
const DefaultCredentialTTL = 30 * 24 * time.Hour

type Option func(*Service)

// Service owns the credential lifecycle. Mutations for one user are
// serialized in-process; the store guards revoked rows across processes.
// SubmitKYC also holds the wallet lock, always acquired before the user lock.
type Service struct {
	store       Store
	payments    PaymentVerifier
	auditor     AuditPublisher
	metrics     *metrics.Metrics
	logger      *slog.Logger
	locks       *platformsync.ShardedMutex
	walletLocks *platformsync.ShardedMutex
	ttl         time.Duration
}

func New(store Store, payments PaymentVerifier, auditor AuditPublisher, opts ...Option) *Service {
	svc := &Service{
		store:       store,
		payments:    payments,
		auditor:     auditor,
		logger:      slog.New(slog.DiscardHandler),
		locks:       platformsync.NewShardedMutex(0),
		walletLocks: platformsync.NewShardedMutex(0),
		ttl:         DefaultCredentialTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
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

// WithCredentialTTL sets the validity of verified credentials. Non-positive
// values keep the default.
func WithCredentialTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// SubmitKYC records a claim submission for userID. When txHash is set the
// payment is verified immediately; if that fails the credential stays
// PENDING and the caller can retry through ConfirmPayment.
func (s *Service) SubmitKYC(ctx context.Context, userID id.UserID, wallet id.WalletAddress, claims models.Claims, txHash string) (*models.Credential, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing user context")
	}
	if wallet.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "wallet_address is required")
	}
	if txHash != "" {
		if err := payment.ValidateTransactionHash(txHash); err != nil {
			return nil, err
		}
	}
	now := requestcontext.Now(ctx)

	s.walletLocks.Lock(string(wallet))
	defer s.walletLocks.Unlock(string(wallet))

	var result *models.Credential
	err := s.locks.WithLock(string(userID), func() error {
		existing, err := s.findByUser(ctx, userID)
		if err != nil {
			return err
		}
		if err := s.checkWalletOwner(ctx, userID, wallet, now); err != nil {
			return err
		}
		next, err := models.ApplySubmission(existing, models.Submission{
			UserID:          userID,
			WalletAddress:   wallet,
			ClaimsDigest:    claims.Digest(),
			Country:         claims.Country,
			TransactionHash: txHash,
		}, now)
		if err != nil {
			return err
		}
		stored, err := s.upsert(ctx, next)
		if err != nil {
			return err
		}
		s.incTransition(models.DerivedPending)
		s.emitAudit(ctx, audit.Event{
			Action:       audit.ActionCredentialSubmitted,
			UserID:       userID,
			CredentialID: stored.CredentialID,
			Wallet:       privacy.MaskWallet(string(wallet)),
			Status:       string(models.StatusPending),
		})
		result = stored

		if txHash == "" {
			return nil
		}
		verified, err := s.verifyPayment(ctx, stored, txHash, now)
		if err != nil {
			s.logger.WarnContext(ctx, "payment not confirmed at submission",
				"user_id", userID,
				"credential_id", stored.CredentialID,
				"error", err,
			)
			return nil
		}
		result = verified
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ConfirmPayment verifies txHash and issues the credential. Confirming an
// already verified credential returns it unchanged.
func (s *Service) ConfirmPayment(ctx context.Context, userID id.UserID, txHash string) (*models.Credential, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing user context")
	}
	if err := validateRequiredHash(txHash); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	var result *models.Credential
	err := s.locks.WithLock(string(userID), func() error {
		existing, err := s.findByUser(ctx, userID)
		if err != nil {
			return err
		}
		alreadyVerified, err := models.CheckConfirmable(existing, now)
		if err != nil {
			return err
		}
		if alreadyVerified {
			result = existing
			return nil
		}
		result, err = s.verifyPayment(ctx, existing, txHash, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Revoke permanently revokes the user's credential. Revoking twice succeeds.
func (s *Service) Revoke(ctx context.Context, userID id.UserID) (*models.Credential, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing user context")
	}
	now := requestcontext.Now(ctx)

	var result *models.Credential
	err := s.locks.WithLock(string(userID), func() error {
		existing, err := s.findByUser(ctx, userID)
		if err != nil {
			return err
		}
		next, changed, err := models.Revoke(existing, now)
		if err != nil {
			return err
		}
		if !changed {
			result = existing
			return nil
		}
		stored, err := s.upsert(ctx, next)
		if err != nil {
			return err
		}
		s.incTransition(models.DerivedRevoked)
		s.emitAudit(ctx, audit.Event{
			Action:       audit.ActionCredentialRevoked,
			UserID:       userID,
			CredentialID: stored.CredentialID,
			Status:       string(models.StatusRevoked),
			Reason:       "user_initiated",
		})
		result = stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Status returns the caller's credential as observed now.
func (s *Service) Status(ctx context.Context, userID id.UserID) (*models.StatusView, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing user context")
	}
	c, err := s.findByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, c), nil
}

// StatusByWallet reports the live credential holding wallet. With none, it
// falls back to the latest revoked or expired one.
func (s *Service) StatusByWallet(ctx context.Context, wallet id.WalletAddress) (*models.StatusView, error) {
	now := requestcontext.Now(ctx)
	c, err := s.store.FindLiveByWallet(ctx, wallet, "", now)
	if errors.Is(err, store.ErrNotFound) {
		c, err = s.store.FindByWallet(ctx, wallet)
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read credential")
	}
	return s.view(ctx, c), nil
}

func (s *Service) view(ctx context.Context, c *models.Credential) *models.StatusView {
	v := models.NewStatusView(c, requestcontext.Now(ctx))
	if s.metrics != nil {
		s.metrics.IncStatusLookup(string(v.Status))
	}
	return v
}

// verifyPayment calls the verifier and persists the VERIFIED transition.
func (s *Service) verifyPayment(ctx context.Context, c *models.Credential, txHash string, now time.Time) (*models.Credential, error) {
	start := time.Now()
	err := s.payments.Verify(ctx, c.WalletAddress, txHash)
	s.observePayment(err, time.Since(start))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "payment verification failed")
	}

	next, err := models.Verify(c, txHash, now, s.ttl)
	if err != nil {
		return nil, err
	}
	stored, err := s.upsert(ctx, next)
	if err != nil {
		return nil, err
	}
	if stored.Status != models.StatusVerified {
		return nil, dErrors.New(dErrors.CodeConflict, "credential has been revoked")
	}
	s.incTransition(models.DerivedVerified)
	s.emitAudit(ctx, audit.Event{
		Action:       audit.ActionCredentialVerified,
		UserID:       stored.UserID,
		CredentialID: stored.CredentialID,
		Status:       string(models.StatusVerified),
	})
	return stored, nil
}

// checkWalletOwner rejects a wallet that backs another user's live credential.
func (s *Service) checkWalletOwner(ctx context.Context, userID id.UserID, wallet id.WalletAddress, now time.Time) error {
	other, err := s.store.FindLiveByWallet(ctx, wallet, userID, now)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read credential")
	}
	s.logger.InfoContext(ctx, "wallet claim rejected", "holder_status", string(other.Status))
	return dErrors.New(dErrors.CodeConflict, "wallet is linked to another account")
}

func (s *Service) findByUser(ctx context.Context, userID id.UserID) (*models.Credential, error) {
	c, err := s.store.FindByUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read credential")
	}
	return c, nil
}

func (s *Service) upsert(ctx context.Context, c *models.Credential) (*models.Credential, error) {
	stored, err := s.store.Upsert(ctx, c)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save credential")
	}
	if stored.Status == models.StatusRevoked && c.Status != models.StatusRevoked {
		return nil, dErrors.New(dErrors.CodeConflict, "credential has been revoked")
	}
	return stored, nil
}

func validateRequiredHash(txHash string) error {
	if txHash == "" {
		return dErrors.New(dErrors.CodeValidation, "transaction_hash is required")
	}
	return payment.ValidateTransactionHash(txHash)
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

func (s *Service) incTransition(to models.DerivedStatus) {
	if s.metrics != nil {
		s.metrics.IncTransition(string(to))
	}
}

func (s *Service) observePayment(err error, took time.Duration) {
	if s.metrics == nil {
		return
	}
	outcome := "confirmed"
	if err != nil {
		outcome = "rejected"
		if dErrors.HasCode(err, dErrors.CodeUnavailable) {
			outcome = "unavailable"
		}
	}
	s.metrics.ObservePayment(outcome, took.Seconds())
}
