package handler

import (
	"strings"

	dErrors "zeropass/pkg/domain-errors"
	"zeropass/pkg/platform/validation"
)

// VerifyProofRequest carries a payload as scanned from a QR code.
type VerifyProofRequest struct {
	Payload string `json:"payload"`
}

func (r *VerifyProofRequest) Normalize() {
	if r == nil {
		return
	}
	r.Payload = strings.TrimSpace(r.Payload)
}

func (r *VerifyProofRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if err := validation.CheckStringLength("payload", r.Payload, validation.MaxPayloadLength); err != nil {
		return err
	}
	return validation.CheckRequired("payload", r.Payload)
}
