package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"zeropass/internal/proof/models"
	id "zeropass/pkg/domain"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Upsert(ctx context.Context, r *models.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO proofs (credential_id, wallet_address, commitment, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (credential_id, wallet_address) DO UPDATE SET
			commitment = EXCLUDED.commitment,
			created_at = EXCLUDED.created_at
	`, string(r.CredentialID), string(r.WalletAddress), r.Commitment, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert proof: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, credentialID id.CredentialID, wallet id.WalletAddress) (*models.Record, error) {
	r := models.Record{CredentialID: credentialID, WalletAddress: wallet}
	err := s.db.QueryRowContext(ctx, `
		SELECT commitment, created_at FROM proofs
		WHERE credential_id = $1 AND wallet_address = $2
	`, string(credentialID), string(wallet)).Scan(&r.Commitment, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find proof: %w", err)
	}
	return &r, nil
}
