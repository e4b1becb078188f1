package testutil

import (
	"time"

	"zeropass/internal/credential/models"
	id "zeropass/pkg/domain"
)

// TestIDs are deterministic identifiers for tests.
var TestIDs = struct {
	UserID1 id.UserID
	UserID2 id.UserID
	Wallet1 id.WalletAddress
	Wallet2 id.WalletAddress
}{
	UserID1: "user_2abcDEF1",
	UserID2: "user_2abcDEF2",
	Wallet1: "0x04a1b2c3d4e5f60718293a4b5c6d7e8f9a0b1c2d3e4f5061728394a5b6c7d8e9",
	Wallet2: "0x0123456789abcdef",
}

// CredentialBuilder provides a fluent interface for building test credentials.
// The default is a PENDING credential owned by TestIDs.UserID1.
type CredentialBuilder struct {
	cred *models.Credential
}

func NewCredentialBuilder() *CredentialBuilder {
	now := time.Now().UTC()
	return &CredentialBuilder{
		cred: &models.Credential{
			UserID:        TestIDs.UserID1,
			WalletAddress: TestIDs.Wallet1,
			CredentialID:  id.NewCredentialID(),
			Status:        models.StatusPending,
			ClaimsDigest:  "5e1f3c0cbd0fd1d6c2b8f5a0f6b7e3b4a6f4d1c2e9b8a7f6e5d4c3b2a1f0e9d8",
			Country:       "GB",
			CreatedAt:     now,
			UpdatedAt:     now,
		},
	}
}

func (b *CredentialBuilder) WithUserID(userID id.UserID) *CredentialBuilder {
	b.cred.UserID = userID
	return b
}

func (b *CredentialBuilder) WithWallet(wallet id.WalletAddress) *CredentialBuilder {
	b.cred.WalletAddress = wallet
	return b
}

func (b *CredentialBuilder) WithCredentialID(credID id.CredentialID) *CredentialBuilder {
	b.cred.CredentialID = credID
	return b
}

func (b *CredentialBuilder) WithClaimsDigest(digest string) *CredentialBuilder {
	b.cred.ClaimsDigest = digest
	return b
}

func (b *CredentialBuilder) WithTransactionHash(hash string) *CredentialBuilder {
	b.cred.TransactionHash = hash
	return b
}

func (b *CredentialBuilder) UpdatedAt(t time.Time) *CredentialBuilder {
	b.cred.UpdatedAt = t
	return b
}

// Verified issues the credential at issuedAt, valid for ttl.
func (b *CredentialBuilder) Verified(issuedAt time.Time, ttl time.Duration) *CredentialBuilder {
	expires := issuedAt.Add(ttl)
	b.cred.Status = models.StatusVerified
	b.cred.IssuedAt = &issuedAt
	b.cred.ExpiresAt = &expires
	b.cred.UpdatedAt = issuedAt
	return b
}

// Expired issues the credential so that it expired just before now.
func (b *CredentialBuilder) Expired(now time.Time) *CredentialBuilder {
	return b.Verified(now.Add(-31*24*time.Hour), 30*24*time.Hour)
}

func (b *CredentialBuilder) Revoked(at time.Time) *CredentialBuilder {
	b.cred.Status = models.StatusRevoked
	b.cred.RevokedAt = &at
	b.cred.UpdatedAt = at
	return b
}

func (b *CredentialBuilder) Build() *models.Credential {
	out := *b.cred
	return &out
}
