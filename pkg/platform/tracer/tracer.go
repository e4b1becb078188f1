// Package tracer is a thin span abstraction so services can emit traces
// without importing OpenTelemetry directly.
//
// NoopTracer is used in tests; OTelTracer wraps the global provider.
package tracer

import (
	"context"
	"time"
)

// Span is an active trace span. End must be called exactly once.
type Span interface {
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration records the value in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names.
const (
	SpanProofGenerate = "proof.generate"
	SpanProofVerify   = "proof.verify"
	SpanProofLookup   = "proof.verify.lookup"
	SpanZKVerify      = "proof.verify.zk"
)

// Attribute keys.
const (
	AttrCredentialID  = "credential.id"
	AttrDerivedStatus = "credential.derived_status"
	AttrWallet        = "wallet.masked"
	AttrValid         = "proof.valid"
	AttrReason        = "proof.reason"
)
