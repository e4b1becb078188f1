//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"zeropass/internal/credential/models"
	"zeropass/internal/credential/store"
	"zeropass/pkg/testutil"
	"zeropass/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	now      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "credentials"))
	s.now = time.Now().UTC().Truncate(time.Microsecond)
}

func (s *PostgresStoreSuite) TestUpsertAndLookups() {
	ctx := context.Background()
	c := testutil.NewCredentialBuilder().UpdatedAt(s.now).WithTransactionHash("0xbeef").Build()
	c.CreatedAt = s.now

	stored, err := s.store.Upsert(ctx, c)
	s.Require().NoError(err)
	s.Equal(c.CredentialID, stored.CredentialID)
	s.Equal("0xbeef", stored.TransactionHash)
	s.Nil(stored.IssuedAt)

	byWallet, err := s.store.FindByWallet(ctx, c.WalletAddress)
	s.Require().NoError(err)
	s.Equal(c.UserID, byWallet.UserID)

	byID, err := s.store.FindByCredentialID(ctx, c.CredentialID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, byID.Status)

	_, err = s.store.FindByUser(ctx, testutil.TestIDs.UserID2)
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *PostgresStoreSuite) TestVerifyPersistsLifecycleTimes() {
	ctx := context.Background()
	c := testutil.NewCredentialBuilder().UpdatedAt(s.now).Build()
	_, err := s.store.Upsert(ctx, c)
	s.Require().NoError(err)

	verified, err := models.Verify(c, "0x01", s.now, 30*24*time.Hour)
	s.Require().NoError(err)
	_, err = s.store.Upsert(ctx, verified)
	s.Require().NoError(err)

	got, err := s.store.FindByUser(ctx, c.UserID)
	s.Require().NoError(err)
	s.Equal(models.StatusVerified, got.Status)
	s.Require().NotNil(got.ExpiresAt)
	s.True(s.now.Add(30 * 24 * time.Hour).Equal(*got.ExpiresAt))
}

// A revoked row keeps its status, id and timestamps whatever is upserted over it.
func (s *PostgresStoreSuite) TestUpsertNeverOverwritesRevoked() {
	ctx := context.Background()
	revoked := testutil.NewCredentialBuilder().Revoked(s.now).Build()
	_, err := s.store.Upsert(ctx, revoked)
	s.Require().NoError(err)

	attempt := testutil.NewCredentialBuilder().Verified(s.now.Add(time.Hour), time.Hour).Build()
	stored, err := s.store.Upsert(ctx, attempt)
	s.Require().NoError(err)

	s.Equal(models.StatusRevoked, stored.Status)
	s.Equal(revoked.CredentialID, stored.CredentialID)
	s.Nil(stored.IssuedAt)
	s.Require().NotNil(stored.RevokedAt)
	s.True(s.now.Equal(*stored.RevokedAt))
}

func (s *PostgresStoreSuite) TestFindByWalletPrefersLatest() {
	ctx := context.Background()
	older := testutil.NewCredentialBuilder().WithUserID(testutil.TestIDs.UserID1).UpdatedAt(s.now).Build()
	newer := testutil.NewCredentialBuilder().WithUserID(testutil.TestIDs.UserID2).UpdatedAt(s.now.Add(time.Second)).Build()
	_, err := s.store.Upsert(ctx, older)
	s.Require().NoError(err)
	_, err = s.store.Upsert(ctx, newer)
	s.Require().NoError(err)

	got, err := s.store.FindByWallet(ctx, testutil.TestIDs.Wallet1)
	s.Require().NoError(err)
	s.Equal(testutil.TestIDs.UserID2, got.UserID)
}

func (s *PostgresStoreSuite) TestFindLiveByWalletSkipsStaleRows() {
	ctx := context.Background()
	live := testutil.NewCredentialBuilder().WithUserID("user_live").UpdatedAt(s.now.Add(-time.Hour)).Build()
	expired := testutil.NewCredentialBuilder().WithUserID("user_expired").Expired(s.now).Build()
	revoked := testutil.NewCredentialBuilder().WithUserID("user_revoked").Revoked(s.now).Build()
	for _, c := range []*models.Credential{live, expired, revoked} {
		_, err := s.store.Upsert(ctx, c)
		s.Require().NoError(err)
	}

	got, err := s.store.FindLiveByWallet(ctx, testutil.TestIDs.Wallet1, "", s.now)
	s.Require().NoError(err)
	s.Equal(live.CredentialID, got.CredentialID)

	_, err = s.store.FindLiveByWallet(ctx, testutil.TestIDs.Wallet1, "user_live", s.now)
	s.ErrorIs(err, store.ErrNotFound)
}
