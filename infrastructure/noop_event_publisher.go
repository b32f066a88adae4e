package infrastructure

import (
	"context"

	"btclotto/domain/events"
)

// NoopEventPublisher publishes nowhere but still runs local handlers.
// Used when NATS is disabled.
type NoopEventPublisher struct {
	localHandlerRegistry
}

// NewNoopEventPublisher creates a new no-op event publisher
func NewNoopEventPublisher() *NoopEventPublisher {
	return &NoopEventPublisher{}
}

// Publish only invokes local handlers
func (n *NoopEventPublisher) Publish(event events.Event) error {
	n.dispatch(context.Background(), event)
	return nil
}
