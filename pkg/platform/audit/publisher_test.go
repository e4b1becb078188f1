package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zeropass/pkg/platform/audit"
	outboxmemory "zeropass/pkg/platform/audit/outbox/store/memory"
	"zeropass/pkg/requestcontext"
)

func TestPublisherEmit(t *testing.T) {
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	store := outboxmemory.New()
	p := audit.NewPublisher(store, audit.WithPublisherClock(func() time.Time { return now }))

	ctx := requestcontext.WithTime(context.Background(), now)
	ctx = requestcontext.WithRequestID(ctx, "req-1")
	ctx = requestcontext.WithClientMetadata(ctx, "203.0.113.77", "curl/8")

	err := p.Emit(ctx, audit.Event{
		Action:       audit.ActionProofRejected,
		CredentialID: "zpc_abc",
		Reason:       "MISMATCH",
	})
	require.NoError(t, err)

	entries, err := store.FetchUnprocessed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "proof", entries[0].AggregateType)
	assert.Equal(t, "zpc_abc", entries[0].AggregateID)
	assert.Equal(t, "proof_rejected", entries[0].EventType)

	var got audit.Event
	require.NoError(t, json.Unmarshal(entries[0].Payload, &got))
	assert.Equal(t, "req-1", got.RequestID)
	assert.Equal(t, "203.0.113.0", got.ClientIP)
	assert.Equal(t, "MISMATCH", got.Reason)
	assert.True(t, now.Equal(got.Timestamp))
}

func TestActionAggregateType(t *testing.T) {
	assert.Equal(t, "credential", audit.ActionCredentialRevoked.AggregateType())
	assert.Equal(t, "proof", audit.ActionProofGenerated.AggregateType())
}
