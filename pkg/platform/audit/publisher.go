package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"zeropass/pkg/platform/audit/outbox"
	"zeropass/pkg/platform/privacy"
	"zeropass/pkg/requestcontext"
)

// Emitter is what services depend on.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// Publisher writes events to the outbox for asynchronous delivery and logs
// a structured line for each.
type Publisher struct {
	store  outbox.Store
	logger *slog.Logger
	now    func() time.Time
}

type PublisherOption func(*Publisher)

func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithPublisherClock(now func() time.Time) PublisherOption {
	return func(p *Publisher) {
		p.now = now
	}
}

func NewPublisher(store outbox.Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit fills in timestamp and request correlation from ctx, then appends the
// event to the outbox.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if ip := requestcontext.ClientIP(ctx); event.ClientIP == "" && ip != "" {
		event.ClientIP = privacy.AnonymizeIP(ip)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	entry := outbox.NewEntry(event.Action.AggregateType(), string(event.CredentialID), string(event.Action), payload, p.now())
	if err := p.store.Append(ctx, entry); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}

	p.logger.InfoContext(ctx, "audit event",
		"action", event.Action,
		"user_id", event.UserID,
		"credential_id", event.CredentialID,
		"reason", event.Reason,
		"request_id", event.RequestID,
	)
	return nil
}
