package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"zeropass/internal/credential/metrics"
	"zeropass/internal/credential/models"
	"zeropass/internal/credential/service/mocks"
	"zeropass/internal/credential/store"
	id "zeropass/pkg/domain"
	dErrors "zeropass/pkg/domain-errors"
	"zeropass/pkg/platform/audit"
	"zeropass/pkg/requestcontext"
	fixtures "zeropass/pkg/testutil"
)

type ServiceSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	store    *mocks.MockStore
	payments *mocks.MockPaymentVerifier
	auditor  *mocks.MockAuditPublisher
	metrics  *metrics.Metrics
	service  *Service
	ctx      context.Context
	now      time.Time
	userID   id.UserID
	wallet   id.WalletAddress
	claims   models.Claims
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	s.payments = mocks.NewMockPaymentVerifier(s.ctrl)
	s.auditor = mocks.NewMockAuditPublisher(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.service = New(s.store, s.payments, s.auditor,
		WithMetrics(s.metrics),
		WithCredentialTTL(DefaultCredentialTTL),
	)

	s.now = time.Date(2026, 7, 1, 8, 30, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.userID = fixtures.TestIDs.UserID1
	s.wallet = fixtures.TestIDs.Wallet1

	claims, err := models.NewClaims("Grace Hopper", "1980-12-09", "US", "passport", s.now)
	s.Require().NoError(err)
	s.claims = claims
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func echoUpsert(_ context.Context, c *models.Credential) (*models.Credential, error) {
	out := *c
	return &out, nil
}

func (s *ServiceSuite) expectNoCredential() {
	s.store.EXPECT().FindByUser(gomock.Any(), s.userID).Return(nil, store.ErrNotFound)
}

func (s *ServiceSuite) expectWalletFree() {
	s.store.EXPECT().FindLiveByWallet(gomock.Any(), s.wallet, s.userID, s.now).Return(nil, store.ErrNotFound)
}

func (s *ServiceSuite) expectAudit(action audit.Action) {
	s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e audit.Event) error {
		s.Equal(action, e.Action)
		return nil
	})
}

// =============================================================================
// SubmitKYC
// =============================================================================

func (s *ServiceSuite) TestSubmitKYC_FirstSubmissionIsPending() {
	s.expectNoCredential()
	s.expectWalletFree()
	s.store.EXPECT().Upsert(gomock.Any(), gomock.Any()).DoAndReturn(echoUpsert)
	s.expectAudit(audit.ActionCredentialSubmitted)

	c, err := s.service.SubmitKYC(s.ctx, s.userID, s.wallet, s.claims, "")
	s.Require().NoError(err)
	s.Equal(models.StatusPending, c.Status)
	s.Equal(s.claims.Digest(), c.ClaimsDigest)
	s.Equal("US", c.Country)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Transitions.WithLabelValues("PENDING")))
}

func (s *ServiceSuite) TestSubmitKYC_WithPaymentVerifiesImmediately() {
	s.expectNoCredential()
	s.expectWalletFree()
	s.store.EXPECT().Upsert(gomock.Any(), gomock.Any()).DoAndReturn(echoUpsert).Times(2)
	s.payments.EXPECT().Verify(gomock.Any(), s.wallet, "0xabc123").Return(nil)
	s.expectAudit(audit.ActionCredentialSubmitted)
	s.expectAudit(audit.ActionCredentialVerified)

	c, err := s.service.SubmitKYC(s.ctx, s.userID, s.wallet, s.claims, "0xabc123")
	s.Require().NoError(err)
	s.Equal(models.StatusVerified, c.Status)
	s.Equal(s.now, *c.IssuedAt)
	s.Equal(s.now.Add(30*24*time.Hour), *c.ExpiresAt)
	s.Equal("0xabc123", c.TransactionHash)
}

func (s *ServiceSuite) TestSubmitKYC_PaymentUnavailableStaysPending() {
	s.expectNoCredential()
	s.expectWalletFree()
	s.store.EXPECT().Upsert(gomock.Any(), gomock.Any()).DoAndReturn(echoUpsert)
	s.payments.EXPECT().Verify(gomock.Any(), s.wallet, "0xabc").
		Return(dErrors.New(dErrors.CodeUnavailable, "payment verification is not available"))
	s.expectAudit(audit.ActionCredentialSubmitted)

	c, err := s.service.SubmitKYC(s.ctx, s.userID, s.wallet, s.claims, "0xabc")
	s.Require().NoError(err)
	s.Equal(models.StatusPending, c.Status)
	s.Equal("0xabc", c.TransactionHash)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.PaymentChecks.WithLabelValues("unavailable")))
}

func (s *ServiceSuite) TestSubmitKYC_Rejections() {
	s.Run("malformed transaction hash", func() {
		_, err := s.service.SubmitKYC(s.ctx, s.userID, s.wallet, s.claims, "not-a-hash")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("missing user", func() {
		_, err := s.service.SubmitKYC(s.ctx, "", s.wallet, s.claims, "")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("revoked credential is terminal", func() {
		revoked := fixtures.NewCredentialBuilder().WithUserID(s.userID).Revoked(s.now.Add(-time.Hour)).Build()
		s.store.EXPECT().FindByUser(gomock.Any(), s.userID).Return(revoked, nil)
		s.expectWalletFree()

		_, err := s.service.SubmitKYC(s.ctx, s.userID, s.wallet, s.claims, "")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("active credential conflicts", func() {
		active := fixtures.NewCredentialBuilder().WithUserID(s.userID).Verified(s.now.Add(-time.Hour), time.Hour*24).Build()
		s.store.EXPECT().FindByUser(gomock.Any(), s.userID).Return(active, nil)
		s.expectWalletFree()

		_, err := s.service.SubmitKYC(s.ctx, s.userID, s.wallet, s.claims, "")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("wallet linked to another live account", func() {
		other := fixtures.NewCredentialBuilder().WithUserID(fixtures.TestIDs.UserID2).WithWallet(s.wallet).Build()
		s.expectNoCredential()
		s.store.EXPECT().FindLiveByWallet(gomock.Any(), s.wallet, s.userID, s.now).Return(other, nil)

		_, err := s.service.SubmitKYC(s.ctx, s.userID, s.wallet, s.claims, "")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("store failure is internal", func() {
		s.store.EXPECT().FindByUser(gomock.Any(), s.userID).Return(nil, errors.New("connection reset"))

		_, err := s.service.SubmitKYC(s.ctx, s.userID, s.wallet, s.claims, "")
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

// Resubmitting after expiry mints a new credential id.
func (s *ServiceSuite) TestSubmitKYC_ExpiredRenews() {
	expired := fixtures.NewCredentialBuilder().WithUserID(s.userID).Expired(s.now).Build()
	s.store.EXPECT().FindByUser(gomock.Any(), s.userID).Return(expired, nil)
	s.expectWalletFree()
	s.store.EXPECT().Upsert(gomock.Any(), gomock.Any()).DoAndReturn(echoUpsert)
	s.expectAudit(audit.ActionCredentialSubmitted)

	c, err := s.service.SubmitKYC(s.ctx, s.userID, s.wallet, s.claims, "")
	s.Require().NoError(err)
	s.Equal(models.StatusPending, c.Status)
	s.NotEqual(expired.CredentialID, c.CredentialID)
}

// =============================================================================
// ConfirmPayment
// =============================================================================

func (s *ServiceSuite) TestConfirmPayment_VerifiesPending() {
	pending := fixtures.NewCredentialBuilder().WithUserID(s.userID).Build()
	s.store.EXPECT().FindByUser(gomock.Any(), s.userID).Return(pending, nil)
	s.payments.EXPECT().Verify(gomock.Any(), pending.WalletAddress, "0xfeed").Return(nil)
	s.store.EXPECT().Upsert(gomock.Any(), gomock.Any()).DoAndReturn(echoUpsert)
	s.expectAudit(audit.ActionCredentialVerified)

	c, err := s.service.ConfirmPayment(s.ctx, s.userID, "0xfeed")
	s.Require().NoError(err)
	s.Equal(models.StatusVerified, c.Status)
	s.Equal(pending.CredentialID, c.CredentialID)
}

func (s *ServiceSuite) TestConfirmPayment_IdempotentWhenVerified() {
	active := fixtures.NewCredentialBuilder().WithUserID(s.userID).Verified(s.now.Add(-time.Hour), DefaultCredentialTTL).Build()
	s.store.EXPECT().FindByUser(gomock.Any(), s.userID).Return(active, nil)

	c, err := s.service.ConfirmPayment(s.ctx, s.userID, "0xfeed")
	s.Require().NoError(err)
	s.Equal(active, c)
}

func (s *ServiceSuite) TestConfirmPayment_Errors() {
	s.Run("hash required", func() {
		_, err := s.service.ConfirmPayment(s.ctx, s.userID, "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("nothing submitted", func() {
		s.expectNoCredential()
		_, err := s.service.ConfirmPayment(s.ctx, s.userID, "0x01")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("verifier unavailable", func() {
		pending := fixtures.NewCredentialBuilder().WithUserID(s.userID).Build()
		s.store.EXPECT().FindByUser(gomock.Any(), s.userID).Return(pending, nil)
		s.payments.EXPECT().Verify(gomock.Any(), gomock.Any(), "0x01").
			Return(dErrors.New(dErrors.CodeUnavailable, "payment verification is not available"))

		_, err := s.service.ConfirmPayment(s.ctx, s.userID, "0x01")
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	s.Run("verifier transport error", func() {
		pending := fixtures.NewCredentialBuilder().WithUserID(s.userID).Build()
		s.store.EXPECT().FindByUser(gomock.Any(), s.userID).Return(pending, nil)
		s.payments.EXPECT().Verify(gomock.Any(), gomock.Any(), "0x01").Return(errors.New("dial tcp: refused"))

		_, err := s.service.ConfirmPayment(s.ctx, s.userID, "0x01")
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	s.Run("revoked concurrently", func() {
		pending := fixtures.NewCredentialBuilder().WithUserID(s.userID).Build()
		revoked := fixtures.NewCredentialBuilder().WithUserID(s.userID).Revoked(s.now).Build()
		s.store.EXPECT().FindByUser(gomock.Any(), s.userID).Return(pending, nil)
		s.payments.EXPECT().Verify(gomock.Any(), gomock.Any(), "0x01").Return(nil)
		s.store.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(revoked, nil)

		_, err := s.service.ConfirmPayment(s.ctx, s.userID, "0x01")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

// =============================================================================
// Revoke
// =============================================================================

func (s *ServiceSuite) TestRevoke() {
	s.Run("revokes active credential", func() {
		active := fixtures.NewCredentialBuilder().WithUserID(s.userID).Verified(s.now.Add(-time.Hour), DefaultCredentialTTL).Build()
		s.store.EXPECT().FindByUser(gomock.Any(), s.userID).Return(active, nil)
		s.store.EXPECT().Upsert(gomock.Any(), gomock.Any()).DoAndReturn(echoUpsert)
		s.expectAudit(audit.ActionCredentialRevoked)

		c, err := s.service.Revoke(s.ctx, s.userID)
		s.Require().NoError(err)
		s.Equal(models.StatusRevoked, c.Status)
		s.Equal(s.now, *c.RevokedAt)
	})

	s.Run("second revoke writes nothing", func() {
		revoked := fixtures.NewCredentialBuilder().WithUserID(s.userID).Revoked(s.now.Add(-time.Hour)).Build()
		s.store.EXPECT().FindByUser(gomock.Any(), s.userID).Return(revoked, nil)

		c, err := s.service.Revoke(s.ctx, s.userID)
		s.Require().NoError(err)
		s.Equal(revoked.RevokedAt, c.RevokedAt)
	})

	s.Run("nothing to revoke", func() {
		s.expectNoCredential()
		_, err := s.service.Revoke(s.ctx, s.userID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// =============================================================================
// Status
// =============================================================================

func (s *ServiceSuite) TestStatus() {
	s.Run("no credential derives NONE", func() {
		s.expectNoCredential()
		v, err := s.service.Status(s.ctx, s.userID)
		s.Require().NoError(err)
		s.Equal(models.DerivedNone, v.Status)
	})

	s.Run("expired credential derives EXPIRED", func() {
		expired := fixtures.NewCredentialBuilder().WithUserID(s.userID).Expired(s.now).Build()
		s.store.EXPECT().FindByUser(gomock.Any(), s.userID).Return(expired, nil)
		v, err := s.service.Status(s.ctx, s.userID)
		s.Require().NoError(err)
		s.Equal(models.DerivedExpired, v.Status)
		s.Equal(expired.CredentialID, v.CredentialID)
	})

	s.Run("by wallet", func() {
		active := fixtures.NewCredentialBuilder().Verified(s.now.Add(-time.Hour), DefaultCredentialTTL).Build()
		s.store.EXPECT().FindLiveByWallet(gomock.Any(), s.wallet, id.UserID(""), s.now).Return(active, nil)
		v, err := s.service.StatusByWallet(s.ctx, s.wallet)
		s.Require().NoError(err)
		s.Equal(models.DerivedVerified, v.Status)
	})

	s.Run("by wallet without a live holder reports the latest record", func() {
		revoked := fixtures.NewCredentialBuilder().WithWallet(s.wallet).Revoked(s.now.Add(-time.Hour)).Build()
		s.store.EXPECT().FindLiveByWallet(gomock.Any(), s.wallet, id.UserID(""), s.now).Return(nil, store.ErrNotFound)
		s.store.EXPECT().FindByWallet(gomock.Any(), s.wallet).Return(revoked, nil)
		v, err := s.service.StatusByWallet(s.ctx, s.wallet)
		s.Require().NoError(err)
		s.Equal(models.DerivedRevoked, v.Status)
	})

	s.Run("by wallet store failure", func() {
		s.store.EXPECT().FindLiveByWallet(gomock.Any(), s.wallet, id.UserID(""), s.now).Return(nil, errors.New("timeout"))
		_, err := s.service.StatusByWallet(s.ctx, s.wallet)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}
