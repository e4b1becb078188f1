package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"zeropass/internal/credential/models"
	id "zeropass/pkg/domain"
)

// PostgresStore persists credentials in the credentials table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const credentialColumns = `user_id, wallet_address, credential_id, status, claims_digest, country,
	transaction_hash, issued_at, expires_at, revoked_at, created_at, updated_at`

func (s *PostgresStore) FindByUser(ctx context.Context, userID id.UserID) (*models.Credential, error) {
	return s.findOne(ctx, `SELECT `+credentialColumns+` FROM credentials WHERE user_id = $1`, string(userID))
}

func (s *PostgresStore) FindByWallet(ctx context.Context, wallet id.WalletAddress) (*models.Credential, error) {
	return s.findOne(ctx, `SELECT `+credentialColumns+` FROM credentials
		WHERE wallet_address = $1 ORDER BY updated_at DESC LIMIT 1`, string(wallet))
}

func (s *PostgresStore) FindLiveByWallet(ctx context.Context, wallet id.WalletAddress, exclude id.UserID, now time.Time) (*models.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials
		WHERE wallet_address = $1 AND user_id <> $2
		  AND (status = 'PENDING' OR (status = 'VERIFIED' AND (expires_at IS NULL OR expires_at > $3)))
		ORDER BY updated_at DESC LIMIT 1`
	c, err := scanCredential(s.db.QueryRowContext(ctx, query, string(wallet), string(exclude), now))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find live credential: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) FindByCredentialID(ctx context.Context, credentialID id.CredentialID) (*models.Credential, error) {
	return s.findOne(ctx, `SELECT `+credentialColumns+` FROM credentials WHERE credential_id = $1`, string(credentialID))
}

// Upsert writes c keyed by user id. The CASE guards keep a revoked row's
// lifecycle columns even under a concurrent revoke.
func (s *PostgresStore) Upsert(ctx context.Context, c *models.Credential) (*models.Credential, error) {
	if c == nil {
		return nil, fmt.Errorf("credential is required")
	}
	query := `
		INSERT INTO credentials (` + credentialColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id) DO UPDATE SET
			wallet_address   = EXCLUDED.wallet_address,
			claims_digest    = EXCLUDED.claims_digest,
			country          = EXCLUDED.country,
			transaction_hash = EXCLUDED.transaction_hash,
			credential_id    = CASE WHEN credentials.status = 'REVOKED' THEN credentials.credential_id ELSE EXCLUDED.credential_id END,
			status           = CASE WHEN credentials.status = 'REVOKED' THEN credentials.status ELSE EXCLUDED.status END,
			issued_at        = CASE WHEN credentials.status = 'REVOKED' THEN credentials.issued_at ELSE EXCLUDED.issued_at END,
			expires_at       = CASE WHEN credentials.status = 'REVOKED' THEN credentials.expires_at ELSE EXCLUDED.expires_at END,
			revoked_at       = CASE WHEN credentials.status = 'REVOKED' THEN credentials.revoked_at ELSE EXCLUDED.revoked_at END,
			updated_at       = EXCLUDED.updated_at
		RETURNING ` + credentialColumns
	row := s.db.QueryRowContext(ctx, query,
		string(c.UserID),
		string(c.WalletAddress),
		string(c.CredentialID),
		string(c.Status),
		c.ClaimsDigest,
		c.Country,
		nullString(c.TransactionHash),
		c.IssuedAt,
		c.ExpiresAt,
		c.RevokedAt,
		c.CreatedAt,
		c.UpdatedAt,
	)
	out, err := scanCredential(row)
	if err != nil {
		return nil, fmt.Errorf("upsert credential: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg string) (*models.Credential, error) {
	c, err := scanCredential(s.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find credential: %w", err)
	}
	return c, nil
}

func scanCredential(row *sql.Row) (*models.Credential, error) {
	var (
		c                        models.Credential
		userID, wallet, credID   string
		status                   string
		txHash                   sql.NullString
		issued, expires, revoked sql.NullTime
	)
	err := row.Scan(&userID, &wallet, &credID, &status, &c.ClaimsDigest, &c.Country,
		&txHash, &issued, &expires, &revoked, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	st, err := models.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	c.UserID = id.UserID(userID)
	c.WalletAddress = id.WalletAddress(wallet)
	c.CredentialID = id.CredentialID(credID)
	c.Status = st
	c.TransactionHash = txHash.String
	c.IssuedAt = timePtr(issued)
	c.ExpiresAt = timePtr(expires)
	c.RevokedAt = timePtr(revoked)
	return &c, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
