package cleanup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zeropass/internal/ratelimit/store/bucket"
	"zeropass/pkg/platform/audit/outbox"
	outboxmetrics "zeropass/pkg/platform/audit/outbox/metrics"
	"zeropass/pkg/platform/audit/outbox/store/memory"
	"zeropass/pkg/requestcontext"
)

type failingOutbox struct{}

func (failingOutbox) DeleteProcessedBefore(context.Context, time.Time) (int64, error) {
	return 0, errors.New("db down")
}

func TestCleanupService_RunOnce(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 20, 3, 0, 0, 0, time.UTC)

	store := memory.New()
	old := outbox.NewEntry("credential", "zpc_1", "credential_verified", []byte(`{}`), now.Add(-10*24*time.Hour))
	recent := outbox.NewEntry("credential", "zpc_2", "credential_verified", []byte(`{}`), now.Add(-time.Hour))
	pending := outbox.NewEntry("proof", "zpc_3", "proof_verified", []byte(`{}`), now.Add(-30*24*time.Hour))
	for _, e := range []*outbox.Entry{old, recent, pending} {
		require.NoError(t, store.Append(ctx, e))
	}
	require.NoError(t, store.MarkProcessed(ctx, []uuid.UUID{old.ID}, now.Add(-9*24*time.Hour)))
	require.NoError(t, store.MarkProcessed(ctx, []uuid.UUID{recent.ID}, now.Add(-time.Hour)))

	buckets := bucket.NewInMemoryBucketStore()
	_, err := buckets.Allow(requestcontext.WithTime(ctx, now.Add(-2*time.Minute)), "proof_verify:ip:203.0.113.9", 5, time.Minute)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	om := outboxmetrics.New(reg)
	svc, err := New(store,
		WithBuckets(buckets),
		WithRetention(7*24*time.Hour),
		WithMetrics(m),
		WithOutboxMetrics(om),
		WithClock(func() time.Time { return now }),
	)
	require.NoError(t, err)

	res, err := svc.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.PrunedOutboxEntries)
	assert.Equal(t, 1, res.RemovedBuckets)

	remaining, err := store.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), remaining, "pending entries are never pruned")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Buckets))
	assert.Equal(t, 1.0, testutil.ToFloat64(om.Pruned))
}

func TestCleanupService_RunOnceContinuesAfterFailure(t *testing.T) {
	buckets := bucket.NewInMemoryBucketStore()
	_, err := buckets.Allow(requestcontext.WithTime(context.Background(), time.Now().Add(-time.Hour)), "k", 1, time.Minute)
	require.NoError(t, err)

	m := NewMetrics(prometheus.NewRegistry())
	svc, err := New(failingOutbox{}, WithBuckets(buckets), WithMetrics(m))
	require.NoError(t, err)

	res, err := svc.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prune outbox")
	assert.Equal(t, 1, res.RemovedBuckets)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("error")))
}

func TestNewRequiresOutbox(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}
