// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	dErrors "zeropass/pkg/domain-errors"
)

const (
	maxUserIDLength   = 128
	credentialPrefix  = "zpc_"
	maxWalletHexChars = 64
)

var (
	userIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	walletPattern = regexp.MustCompile(`^0x[0-9a-f]+$`)
)

// Distinct ID types - compiler prevents passing a UserID where a WalletAddress is expected.
type (
	// UserID is the opaque subject issued by the hosted auth provider (e.g. "user_2abc...").
	UserID string
	// WalletAddress is a lower-cased 0x-prefixed hex address.
	WalletAddress string
	// CredentialID is the issued credential identifier ("zpc_<uuid>").
	CredentialID string
)

// Parse functions - use at trust boundaries (handlers, token claims, proof payloads).

func ParseUserID(s string) (UserID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "user ID cannot be empty")
	}
	if len(s) > maxUserIDLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "user ID is too long")
	}
	if !userIDPattern.MatchString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "user ID contains invalid characters")
	}
	return UserID(s), nil
}

// ParseWalletAddress accepts "0x" followed by 1 to 64 hex digits in any case
// and returns the lower-cased form.
func ParseWalletAddress(s string) (WalletAddress, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if normalized == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "wallet address cannot be empty")
	}
	if !walletPattern.MatchString(normalized) || len(normalized)-2 > maxWalletHexChars {
		return "", dErrors.New(dErrors.CodeInvalidInput, "wallet address must be 0x followed by up to 64 hex digits")
	}
	return WalletAddress(normalized), nil
}

func ParseCredentialID(s string) (CredentialID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "credential ID cannot be empty")
	}
	return CredentialID(s), nil
}

// NewCredentialID mints a fresh credential identifier.
func NewCredentialID() CredentialID {
	return CredentialID(credentialPrefix + uuid.NewString())
}

// String methods - for logging and debugging.

func (id UserID) String() string        { return string(id) }
func (id WalletAddress) String() string { return string(id) }
func (id CredentialID) String() string  { return string(id) }

// IsNil checks - used for service-layer validation.

func (id UserID) IsNil() bool        { return id == "" }
func (id WalletAddress) IsNil() bool { return id == "" }
func (id CredentialID) IsNil() bool  { return id == "" }
