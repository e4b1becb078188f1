package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store defines outbox persistence. Implementations must be safe for concurrent use.
type Store interface {
	Append(ctx context.Context, entry *Entry) error

	// FetchUnprocessed returns up to limit pending entries, oldest first.
	FetchUnprocessed(ctx context.Context, limit int) ([]*Entry, error)

	// MarkProcessed stamps the given entries. IDs already processed are ignored.
	MarkProcessed(ctx context.Context, ids []uuid.UUID, processedAt time.Time) error

	CountPending(ctx context.Context) (int64, error)

	// DeleteProcessedBefore prunes entries processed before the cutoff and
	// returns how many were removed.
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}
