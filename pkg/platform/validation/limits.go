package validation

import (
	"fmt"

	dErrors "zeropass/pkg/domain-errors"
)

// HTTP body limits
const (
	// MaxBodySize is the maximum allowed request body size (64 KB).
	MaxBodySize = 64 * 1024
)

// String element length limits
const (
	MaxFullNameLength = 200

	// MaxTransactionHashLength covers 0x plus a 32-byte hash with headroom for other rails.
	MaxTransactionHashLength = 130

	// MaxPayloadLength bounds a proof payload scanned from a QR code.
	MaxPayloadLength = 1024

	MaxCredentialIDLength = 64

	// MaxWalletAddressLength fits 0x plus 64 hex digits.
	MaxWalletAddressLength = 66
)

// CheckStringLength validates that a string does not exceed the maximum length.
func CheckStringLength(fieldName, value string, max int) error {
	if len(value) > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
	}
	return nil
}

// CheckRequired validates that a string field is present.
func CheckRequired(fieldName, value string) error {
	if value == "" {
		return dErrors.New(dErrors.CodeValidation, fieldName+" is required")
	}
	return nil
}
