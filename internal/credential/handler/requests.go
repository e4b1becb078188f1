package handler

import (
	"strings"

	"zeropass/internal/payment"
	id "zeropass/pkg/domain"
	dErrors "zeropass/pkg/domain-errors"
	"zeropass/pkg/platform/validation"
)

// SubmitKYCRequest carries the applicant's claims. Claims are checked
// against the request clock in the handler, not here.
type SubmitKYCRequest struct {
	WalletAddress   string `json:"wallet_address"`
	FullName        string `json:"full_name"`
	DateOfBirth     string `json:"date_of_birth"`
	Country         string `json:"country"`
	DocumentType    string `json:"document_type"`
	TransactionHash string `json:"transaction_hash,omitempty"`

	parsedWallet id.WalletAddress
}

func (r *SubmitKYCRequest) Normalize() {
	if r == nil {
		return
	}
	r.WalletAddress = strings.TrimSpace(r.WalletAddress)
	r.FullName = strings.TrimSpace(r.FullName)
	r.DateOfBirth = strings.TrimSpace(r.DateOfBirth)
	r.Country = strings.TrimSpace(r.Country)
	r.DocumentType = strings.TrimSpace(r.DocumentType)
	r.TransactionHash = strings.TrimSpace(r.TransactionHash)
}

func (r *SubmitKYCRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}

	// Phase 1: size
	if err := validation.CheckStringLength("full_name", r.FullName, validation.MaxFullNameLength); err != nil {
		return err
	}
	if err := validation.CheckStringLength("wallet_address", r.WalletAddress, validation.MaxWalletAddressLength); err != nil {
		return err
	}

	// Phase 2: required fields
	for _, f := range []struct{ name, value string }{
		{"wallet_address", r.WalletAddress},
		{"full_name", r.FullName},
		{"date_of_birth", r.DateOfBirth},
		{"country", r.Country},
		{"document_type", r.DocumentType},
	} {
		if err := validation.CheckRequired(f.name, f.value); err != nil {
			return err
		}
	}

	// Phase 3: syntax
	wallet, err := id.ParseWalletAddress(r.WalletAddress)
	if err != nil {
		return err
	}
	if r.TransactionHash != "" {
		if err := payment.ValidateTransactionHash(r.TransactionHash); err != nil {
			return err
		}
	}
	r.parsedWallet = wallet
	return nil
}

func (r *SubmitKYCRequest) ParsedWallet() id.WalletAddress {
	return r.parsedWallet
}

type ConfirmPaymentRequest struct {
	TransactionHash string `json:"transaction_hash"`
}

func (r *ConfirmPaymentRequest) Normalize() {
	if r != nil {
		r.TransactionHash = strings.TrimSpace(r.TransactionHash)
	}
}

func (r *ConfirmPaymentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if err := validation.CheckRequired("transaction_hash", r.TransactionHash); err != nil {
		return err
	}
	return payment.ValidateTransactionHash(r.TransactionHash)
}
