package handler

import (
	"time"

	"zeropass/internal/credential/models"
)

// CredentialResponse is returned by mutating endpoints. Status is derived at
// the request time.
type CredentialResponse struct {
	CredentialID    string     `json:"credential_id"`
	Status          string     `json:"status"`
	WalletAddress   string     `json:"wallet_address"`
	TransactionHash string     `json:"transaction_hash,omitempty"`
	IssuedAt        *time.Time `json:"issued_at,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	RevokedAt       *time.Time `json:"revoked_at,omitempty"`
}

func toCredentialResponse(c *models.Credential, now time.Time) CredentialResponse {
	return CredentialResponse{
		CredentialID:    string(c.CredentialID),
		Status:          string(models.Derive(c, now)),
		WalletAddress:   string(c.WalletAddress),
		TransactionHash: c.TransactionHash,
		IssuedAt:        c.IssuedAt,
		ExpiresAt:       c.ExpiresAt,
		RevokedAt:       c.RevokedAt,
	}
}

type StatusResponse struct {
	Status          string     `json:"status"`
	CredentialID    string     `json:"credential_id,omitempty"`
	WalletAddress   string     `json:"wallet_address,omitempty"`
	TransactionHash string     `json:"transaction_hash,omitempty"`
	IssuedAt        *time.Time `json:"issued_at,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	RevokedAt       *time.Time `json:"revoked_at,omitempty"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

func toStatusResponse(v *models.StatusView) StatusResponse {
	return StatusResponse{
		Status:          string(v.Status),
		CredentialID:    string(v.CredentialID),
		WalletAddress:   string(v.WalletAddress),
		TransactionHash: v.TransactionHash,
		IssuedAt:        v.IssuedAt,
		ExpiresAt:       v.ExpiresAt,
		RevokedAt:       v.RevokedAt,
		UpdatedAt:       v.UpdatedAt,
	}
}

// WalletStatusResponse is the public view: no transaction hash.
type WalletStatusResponse struct {
	WalletAddress string     `json:"wallet_address"`
	Status        string     `json:"status"`
	CredentialID  string     `json:"credential_id,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}
