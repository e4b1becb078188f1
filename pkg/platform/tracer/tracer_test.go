package tracer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestNoopTracer(t *testing.T) {
	ctx := context.Background()
	got, span := NewNoop().Start(ctx, SpanProofVerify, String(AttrCredentialID, "zpc_1"))

	assert.Equal(t, ctx, got)
	require.NotNil(t, span)
	span.SetAttributes(Bool(AttrValid, false))
	span.AddEvent("lookup.done")
	span.End(errors.New("ignored"))
}

func TestOTelTracerWithNoopProvider(t *testing.T) {
	tr := NewOTel(WithOTelTracer(noop.NewTracerProvider().Tracer("test")))

	_, span := tr.Start(context.Background(), SpanProofGenerate, Int64("attempt", 1))
	require.NotNil(t, span)
	span.SetAttributes(String(AttrReason, "MISMATCH"))
	span.End(errors.New("mismatch"))
}

func TestToOTel(t *testing.T) {
	got := toOTel([]Attribute{
		String("s", "v"),
		Bool("b", true),
		Int64("i", 7),
		Duration("d", 1500*time.Millisecond),
		{Key: "int", Value: 3},
		{Key: "dropped", Value: struct{}{}},
	})

	assert.Equal(t, []attribute.KeyValue{
		attribute.String("s", "v"),
		attribute.Bool("b", true),
		attribute.Int64("i", 7),
		attribute.Int64("d", 1500),
		attribute.Int("int", 3),
	}, got)
	assert.Nil(t, toOTel(nil))
}
