package models

import (
	"time"

	credmodels "zeropass/internal/credential/models"
	id "zeropass/pkg/domain"
)

// FailureReason explains why a payload did not verify.
type FailureReason string

const (
	ReasonNoCredential   FailureReason = "NO_CREDENTIAL"
	ReasonExpired        FailureReason = "EXPIRED"
	ReasonNoProof        FailureReason = "NO_PROOF"
	ReasonMismatch       FailureReason = "MISMATCH"
	ReasonRateLimited    FailureReason = "RATE_LIMITED"
	ReasonProofsDisabled FailureReason = "PROOFS_DISABLED"
)

// Record is the commitment most recently generated for a credential and
// wallet pair.
type Record struct {
	CredentialID  id.CredentialID
	WalletAddress id.WalletAddress
	Commitment    string
	CreatedAt     time.Time
}

type GenerateResult struct {
	Payload      string
	Commitment   string
	CredentialID id.CredentialID
	ExpiresAt    *time.Time
}

// VerifyResult is the outcome of checking a payload. Reason is empty when
// Valid is true.
type VerifyResult struct {
	Valid        bool
	Reason       FailureReason
	CredentialID id.CredentialID
	Wallet       id.WalletAddress
	Status       credmodels.DerivedStatus
	ExpiresAt    *time.Time
	CheckedAt    time.Time
}

func Rejected(reason FailureReason, now time.Time) *VerifyResult {
	return &VerifyResult{Reason: reason, CheckedAt: now}
}
