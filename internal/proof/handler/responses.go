package handler

import (
	"time"

	"zeropass/internal/proof/models"
)

type GenerateProofResponse struct {
	Payload      string     `json:"payload"`
	Commitment   string     `json:"commitment"`
	CredentialID string     `json:"credential_id"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// VerifyProofResponse reports the outcome. Reason is set only when Valid is
// false.
type VerifyProofResponse struct {
	Valid        bool       `json:"valid"`
	Reason       string     `json:"reason,omitempty"`
	CredentialID string     `json:"credential_id,omitempty"`
	Wallet       string     `json:"wallet,omitempty"`
	Status       string     `json:"status,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	CheckedAt    time.Time  `json:"checked_at"`
}

func toVerifyResponse(r *models.VerifyResult) VerifyProofResponse {
	return VerifyProofResponse{
		Valid:        r.Valid,
		Reason:       string(r.Reason),
		CredentialID: string(r.CredentialID),
		Wallet:       string(r.Wallet),
		Status:       string(r.Status),
		ExpiresAt:    r.ExpiresAt,
		CheckedAt:    r.CheckedAt,
	}
}
