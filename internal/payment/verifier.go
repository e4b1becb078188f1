// Package payment confirms that a KYC fee was paid on the payment rail.
package payment

import (
	"context"
	"regexp"

	id "zeropass/pkg/domain"
	dErrors "zeropass/pkg/domain-errors"
	"zeropass/pkg/platform/validation"
)

// Verifier checks a payment transaction for wallet.
type Verifier interface {
	Verify(ctx context.Context, wallet id.WalletAddress, txHash string) error
}

var txHashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]+$`)

// ValidateTransactionHash checks the shape of a transaction hash.
func ValidateTransactionHash(txHash string) error {
	if err := validation.CheckStringLength("transaction_hash", txHash, validation.MaxTransactionHashLength); err != nil {
		return err
	}
	if !txHashPattern.MatchString(txHash) {
		return dErrors.New(dErrors.CodeValidation, "transaction_hash must be 0x-prefixed hex")
	}
	return nil
}

// DemoVerifier accepts any well-formed transaction hash.
type DemoVerifier struct{}

func (DemoVerifier) Verify(ctx context.Context, _ id.WalletAddress, txHash string) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "payment verification aborted")
	}
	return ValidateTransactionHash(txHash)
}

// DisabledVerifier rejects every verification. It stands in for the real
// payment rail outside demo mode.
type DisabledVerifier struct{}

func (DisabledVerifier) Verify(context.Context, id.WalletAddress, string) error {
	return dErrors.New(dErrors.CodeUnavailable, "payment verification is not available")
}

// New picks the verifier for the deployment mode.
func New(demoMode bool) Verifier {
	if demoMode {
		return DemoVerifier{}
	}
	return DisabledVerifier{}
}
