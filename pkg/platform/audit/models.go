// Package audit records credential and proof lifecycle events.
package audit

import (
	"time"

	id "zeropass/pkg/domain"
)

// Event is emitted from domain logic to capture key actions. It carries no
// raw claims, only identifiers and outcome.
type Event struct {
	Timestamp    time.Time       `json:"timestamp"`
	Action       Action          `json:"action"`
	UserID       id.UserID       `json:"user_id,omitempty"`
	CredentialID id.CredentialID `json:"credential_id,omitempty"`
	Wallet       string          `json:"wallet,omitempty"`
	Status       string          `json:"status,omitempty"`
	Reason       string          `json:"reason,omitempty"`
	RequestID    string          `json:"request_id,omitempty"`
	ClientIP     string          `json:"client_ip,omitempty"`
	Platform     string          `json:"platform,omitempty"`
}

type Action string

const (
	ActionCredentialSubmitted Action = "credential_submitted"
	ActionCredentialVerified  Action = "credential_verified"
	ActionCredentialRevoked   Action = "credential_revoked"
	ActionProofGenerated      Action = "proof_generated"
	ActionProofVerified       Action = "proof_verified"
	ActionProofRejected       Action = "proof_rejected"
)

// AggregateType groups the action by the entity it concerns.
func (a Action) AggregateType() string {
	switch a {
	case ActionProofGenerated, ActionProofVerified, ActionProofRejected:
		return "proof"
	default:
		return "credential"
	}
}
