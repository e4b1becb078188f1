package outbox

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one event waiting in the outbox table. ProcessedAt is nil until
// the worker has published it.
type Entry struct {
	ID            uuid.UUID
	AggregateType string // "credential" or "proof"
	AggregateID   string // credential ID
	EventType     string // e.g. "credential_verified"
	Payload       []byte // JSON-encoded audit.Event
	CreatedAt     time.Time
	ProcessedAt   *time.Time
}

func (e *Entry) IsPending() bool {
	return e.ProcessedAt == nil
}

func NewEntry(aggregateType, aggregateID, eventType string, payload []byte, now time.Time) *Entry {
	return &Entry{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     now,
	}
}
