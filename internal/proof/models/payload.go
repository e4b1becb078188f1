package models

import (
	"net/url"
	"strings"

	id "zeropass/pkg/domain"
	dErrors "zeropass/pkg/domain-errors"
	"zeropass/pkg/platform/validation"
)

// PayloadPrefix starts every proof payload. The payload is what wallets
// render as a QR code.
const PayloadPrefix = "zp://verify?"

// Payload binds a wallet and credential to a commitment.
type Payload struct {
	Wallet       id.WalletAddress
	CredentialID id.CredentialID
	Commitment   string
}

// ParsePayload decodes a payload string. Unknown query keys are ignored.
func ParsePayload(raw string) (Payload, error) {
	if err := validation.CheckStringLength("payload", raw, validation.MaxPayloadLength); err != nil {
		return Payload{}, err
	}
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, PayloadPrefix) {
		return Payload{}, dErrors.New(dErrors.CodeValidation, "payload must start with "+PayloadPrefix)
	}
	q, err := url.ParseQuery(strings.TrimPrefix(raw, PayloadPrefix))
	if err != nil {
		return Payload{}, dErrors.New(dErrors.CodeValidation, "payload query is malformed")
	}

	wallet, err := id.ParseWalletAddress(q.Get("wallet"))
	if err != nil {
		return Payload{}, dErrors.New(dErrors.CodeValidation, "payload wallet is invalid")
	}
	cred := q.Get("cred")
	if err := validation.CheckStringLength("cred", cred, validation.MaxCredentialIDLength); err != nil {
		return Payload{}, err
	}
	credID, err := id.ParseCredentialID(cred)
	if err != nil {
		return Payload{}, dErrors.New(dErrors.CodeValidation, "payload cred is required")
	}
	commitment := q.Get("commitment")
	if commitment == "" {
		return Payload{}, dErrors.New(dErrors.CodeValidation, "payload commitment is required")
	}
	return Payload{Wallet: wallet, CredentialID: credID, Commitment: commitment}, nil
}

// String formats p so that ParsePayload(p.String()) == p.
func (p Payload) String() string {
	// url.Values.Encode sorts keys; wallets expect this order.
	return PayloadPrefix +
		"wallet=" + url.QueryEscape(string(p.Wallet)) +
		"&cred=" + url.QueryEscape(string(p.CredentialID)) +
		"&commitment=" + url.QueryEscape(p.Commitment)
}
