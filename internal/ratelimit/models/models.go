package models

import "time"

type EndpointClass string

const (
	// ClassProofVerify covers anonymous proof verification, keyed by client IP.
	ClassProofVerify EndpointClass = "proof_verify"
	// ClassWrite covers authenticated KYC and proof mutations.
	ClassWrite EndpointClass = "write"
	// ClassRead covers status lookups.
	ClassRead EndpointClass = "read"
)

func (c EndpointClass) IsValid() bool {
	switch c {
	case ClassProofVerify, ClassWrite, ClassRead:
		return true
	}
	return false
}

// RateLimitResult is the outcome of consuming from a bucket. Degraded is set
// when the decision came from the in-memory fallback.
type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
	Degraded   bool      `json:"-"`
}

// RetryAfterSeconds is the whole number of seconds from now until resetAt,
// zero when allowed.
func RetryAfterSeconds(allowed bool, resetAt, now time.Time) int {
	if allowed {
		return 0
	}
	seconds := int(resetAt.Sub(now).Seconds())
	if seconds < 0 {
		return 0
	}
	return seconds
}
