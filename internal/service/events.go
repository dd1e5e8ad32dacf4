package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Strob0t/tenantdash/internal/port/messagequeue"
)

// EventPublisher sends domain and audit events to the message queue.
// A nil queue turns every publish into a no-op, so the services run
// unchanged without NATS.
type EventPublisher struct {
	queue messagequeue.Queue
}

// NewEventPublisher wraps q. q may be nil.
func NewEventPublisher(q messagequeue.Queue) *EventPublisher {
	return &EventPublisher{queue: q}
}

// Publish marshals payload and sends it on subject.
func (p *EventPublisher) Publish(ctx context.Context, subject string, payload any) error {
	if p == nil || p.queue == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", subject, err)
	}
	if err := p.queue.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// publishBestEffort publishes and logs failures. Events never fail the
// operation that produced them.
func (p *EventPublisher) publishBestEffort(ctx context.Context, subject string, payload any) {
	if err := p.Publish(ctx, subject, payload); err != nil {
		slog.WarnContext(ctx, "event publish failed", "subject", subject, "error", err)
	}
}
