package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zeropass/pkg/platform/audit/outbox"
)

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	first := outbox.NewEntry("credential", "zpc_1", "credential_submitted", []byte(`{}`), base)
	second := outbox.NewEntry("credential", "zpc_1", "credential_verified", []byte(`{}`), base.Add(time.Second))
	third := outbox.NewEntry("proof", "zpc_1", "proof_generated", []byte(`{}`), base.Add(2*time.Second))
	for _, e := range []*outbox.Entry{third, first, second} {
		require.NoError(t, s.Append(ctx, e))
	}

	batch, err := s.FetchUnprocessed(ctx, 2)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, first.ID, batch[0].ID, "oldest first")
	assert.Equal(t, second.ID, batch[1].ID)

	require.NoError(t, s.MarkProcessed(ctx, []uuid.UUID{first.ID, second.ID, uuid.New()}, base.Add(time.Minute)))

	pending, err := s.CountPending(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, pending)

	deleted, err := s.DeleteProcessedBefore(ctx, base.Add(2*time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	rest, err := s.FetchUnprocessed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, third.ID, rest[0].ID)
}

func TestMarkProcessedKeepsFirstTimestamp(t *testing.T) {
	ctx := context.Background()
	s := New()
	e := outbox.NewEntry("credential", "zpc_2", "credential_revoked", nil, time.Now())
	require.NoError(t, s.Append(ctx, e))

	t1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.MarkProcessed(ctx, []uuid.UUID{e.ID}, t1))
	require.NoError(t, s.MarkProcessed(ctx, []uuid.UUID{e.ID}, t1.Add(time.Hour)))

	deleted, err := s.DeleteProcessedBefore(ctx, t1.Add(time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
}

func TestFetchReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	e := outbox.NewEntry("credential", "zpc_3", "credential_submitted", nil, time.Now())
	require.NoError(t, s.Append(ctx, e))

	batch, err := s.FetchUnprocessed(ctx, 1)
	require.NoError(t, err)
	now := time.Now()
	batch[0].ProcessedAt = &now

	pending, err := s.CountPending(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, pending)
}
