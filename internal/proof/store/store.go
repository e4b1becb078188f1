package store

import (
	"context"

	"zeropass/internal/proof/models"
	id "zeropass/pkg/domain"
	"zeropass/pkg/platform/sentinel"
)

var ErrNotFound = sentinel.ErrNotFound

// Store keeps the latest proof record per (credential, wallet).
type Store interface {
	Upsert(ctx context.Context, r *models.Record) error
	Find(ctx context.Context, credentialID id.CredentialID, wallet id.WalletAddress) (*models.Record, error)
}
