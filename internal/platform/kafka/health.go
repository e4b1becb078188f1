package kafka

import (
	"context"
	"fmt"
	"time"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker adapts a producer's broker ping to the health handler.
type HealthChecker struct {
	client  pinger
	timeout time.Duration
}

func NewHealthChecker(client pinger) *HealthChecker {
	return &HealthChecker{client: client, timeout: 3 * time.Second}
}

func (h *HealthChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	if err := h.client.Ping(ctx); err != nil {
		return fmt.Errorf("kafka unreachable: %w", err)
	}
	return nil
}

func (h *HealthChecker) Name() string {
	return "kafka"
}
