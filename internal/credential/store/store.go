package store

import (
	"context"
	"time"

	"zeropass/internal/credential/models"
	id "zeropass/pkg/domain"
	"zeropass/pkg/platform/sentinel"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = sentinel.ErrNotFound

// Store persists one credential per user.
//
// FindByWallet returns the most recently updated row for a wallet whatever
// its status. FindLiveByWallet only considers rows that are live at now and
// not owned by exclude (empty excludes nobody).
//
// Upsert returns the row as stored. Once a row is REVOKED its status,
// credential id and lifecycle timestamps are never overwritten, so callers
// must derive status from the returned record rather than their input.
type Store interface {
	FindByUser(ctx context.Context, userID id.UserID) (*models.Credential, error)
	FindByWallet(ctx context.Context, wallet id.WalletAddress) (*models.Credential, error)
	FindLiveByWallet(ctx context.Context, wallet id.WalletAddress, exclude id.UserID, now time.Time) (*models.Credential, error)
	FindByCredentialID(ctx context.Context, credentialID id.CredentialID) (*models.Credential, error)
	Upsert(ctx context.Context, c *models.Credential) (*models.Credential, error)
}
