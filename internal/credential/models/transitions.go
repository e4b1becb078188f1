package models

import (
	"time"

	id "zeropass/pkg/domain"
	dErrors "zeropass/pkg/domain-errors"
)

// Submission is a validated KYC submission ready to be applied.
type Submission struct {
	UserID          id.UserID
	WalletAddress   id.WalletAddress
	ClaimsDigest    string
	Country         string
	TransactionHash string
}

// ApplySubmission returns the record that results from submitting s on top
// of existing (nil when the user has none).
//
// A missing or expired credential gets a fresh credential id so proofs bound
// to the previous id stop matching. A pending credential keeps its id and
// takes the new claims. Active and revoked credentials reject the submission.
func ApplySubmission(existing *Credential, s Submission, now time.Time) (*Credential, error) {
	switch Derive(existing, now) {
	case DerivedRevoked:
		return nil, dErrors.New(dErrors.CodeConflict, "credential has been revoked")
	case DerivedVerified:
		return nil, dErrors.New(dErrors.CodeConflict, "credential is already verified")
	case DerivedPending:
		next := *existing
		next.WalletAddress = s.WalletAddress
		next.ClaimsDigest = s.ClaimsDigest
		next.Country = s.Country
		if s.TransactionHash != "" {
			next.TransactionHash = s.TransactionHash
		}
		next.UpdatedAt = now
		return &next, nil
	}

	created := now
	if existing != nil {
		created = existing.CreatedAt
	}
	return &Credential{
		UserID:          s.UserID,
		WalletAddress:   s.WalletAddress,
		CredentialID:    id.NewCredentialID(),
		Status:          StatusPending,
		ClaimsDigest:    s.ClaimsDigest,
		Country:         s.Country,
		TransactionHash: s.TransactionHash,
		CreatedAt:       created,
		UpdatedAt:       now,
	}, nil
}

// CheckConfirmable reports whether a payment may be confirmed against c.
// It returns (true, nil) when c is already verified so callers can answer
// idempotently without writing.
func CheckConfirmable(c *Credential, now time.Time) (alreadyVerified bool, err error) {
	switch Derive(c, now) {
	case DerivedNone:
		return false, dErrors.New(dErrors.CodeNotFound, "no credential submitted")
	case DerivedRevoked:
		return false, dErrors.New(dErrors.CodeConflict, "credential has been revoked")
	case DerivedExpired:
		return false, dErrors.New(dErrors.CodeConflict, "credential has expired, resubmit KYC")
	case DerivedVerified:
		return true, nil
	}
	return false, nil
}

// Verify moves a pending credential to VERIFIED, valid for ttl from now.
func Verify(c *Credential, txHash string, now time.Time, ttl time.Duration) (*Credential, error) {
	if c == nil || c.Status != StatusPending {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "only pending credentials can be verified")
	}
	if ttl <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "credential ttl must be positive")
	}
	issued := now
	expires := now.Add(ttl)
	next := *c
	next.Status = StatusVerified
	if txHash != "" {
		next.TransactionHash = txHash
	}
	next.IssuedAt = &issued
	next.ExpiresAt = &expires
	next.UpdatedAt = now
	return &next, nil
}

// Revoke moves c to REVOKED. changed is false when c was already revoked.
func Revoke(c *Credential, now time.Time) (next *Credential, changed bool, err error) {
	if c == nil {
		return nil, false, dErrors.New(dErrors.CodeNotFound, "no credential to revoke")
	}
	if c.Status == StatusRevoked {
		return c, false, nil
	}
	revoked := now
	out := *c
	out.Status = StatusRevoked
	out.RevokedAt = &revoked
	out.UpdatedAt = now
	return &out, true, nil
}
