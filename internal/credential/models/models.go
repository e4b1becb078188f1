package models

import (
	"time"

	id "zeropass/pkg/domain"
	dErrors "zeropass/pkg/domain-errors"
)

// Status is what gets persisted. EXPIRED and NONE are never stored.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusVerified Status = "VERIFIED"
	StatusRevoked  Status = "REVOKED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusVerified, StatusRevoked:
		return true
	}
	return false
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeInvariantViolation, "unknown credential status: "+s)
	}
	return st, nil
}

// DerivedStatus is the status a caller observes at a given instant.
type DerivedStatus string

const (
	DerivedNone     DerivedStatus = "NONE"
	DerivedPending  DerivedStatus = "PENDING"
	DerivedVerified DerivedStatus = "VERIFIED"
	DerivedRevoked  DerivedStatus = "REVOKED"
	DerivedExpired  DerivedStatus = "EXPIRED"
)

// Credential is the single KYC record a user owns.
//
// Raw claims are never kept; ClaimsDigest identifies the submitted claim set
// and feeds proof commitments.
type Credential struct {
	UserID          id.UserID
	WalletAddress   id.WalletAddress
	CredentialID    id.CredentialID
	Status          Status
	ClaimsDigest    string
	Country         string
	TransactionHash string
	IssuedAt        *time.Time
	ExpiresAt       *time.Time
	RevokedAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Derive computes the observable status of c at now. A nil record is NONE.
func Derive(c *Credential, now time.Time) DerivedStatus {
	if c == nil {
		return DerivedNone
	}
	switch c.Status {
	case StatusVerified:
		if c.ExpiresAt != nil && !c.ExpiresAt.After(now) {
			return DerivedExpired
		}
		return DerivedVerified
	case StatusRevoked:
		return DerivedRevoked
	default:
		return DerivedPending
	}
}

// IsLive reports whether c still holds its wallet at now: PENDING, or
// VERIFIED and not yet expired.
func (c *Credential) IsLive(now time.Time) bool {
	switch Derive(c, now) {
	case DerivedPending, DerivedVerified:
		return true
	}
	return false
}

// StatusView is the read model returned by status lookups.
type StatusView struct {
	Status          DerivedStatus
	CredentialID    id.CredentialID
	WalletAddress   id.WalletAddress
	TransactionHash string
	IssuedAt        *time.Time
	ExpiresAt       *time.Time
	RevokedAt       *time.Time
	UpdatedAt       *time.Time
}

// NewStatusView projects c at now. A nil record yields a NONE view.
func NewStatusView(c *Credential, now time.Time) *StatusView {
	view := &StatusView{Status: Derive(c, now)}
	if c == nil {
		return view
	}
	updated := c.UpdatedAt
	view.CredentialID = c.CredentialID
	view.WalletAddress = c.WalletAddress
	view.TransactionHash = c.TransactionHash
	view.IssuedAt = c.IssuedAt
	view.ExpiresAt = c.ExpiresAt
	view.RevokedAt = c.RevokedAt
	view.UpdatedAt = &updated
	return view
}
