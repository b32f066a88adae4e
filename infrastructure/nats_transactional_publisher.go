package infrastructure

import (
	"context"
	"sync"

	"btclotto/domain/events"
	"btclotto/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// NATSTransactionalPublisher holds events until the surrounding transaction
// commits, then hands them to the real publisher
type NATSTransactionalPublisher struct {
	realPublisher interfaces.EventPublisher
	mu            sync.Mutex
	pending       []events.Event
}

// NewNATSTransactionalPublisher creates a new transactional publisher
func NewNATSTransactionalPublisher(realPublisher interfaces.EventPublisher) *NATSTransactionalPublisher {
	return &NATSTransactionalPublisher{
		realPublisher: realPublisher,
		pending:       make([]events.Event, 0),
	}
}

// Publish queues the event without publishing it
func (p *NATSTransactionalPublisher) Publish(event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"pendingCount": len(p.pending),
	}).Debug("Queued event until commit")

	p.pending = append(p.pending, event)
	return nil
}

// Flush publishes all pending events in order. A failed event is logged and
// the rest are still published.
func (p *NATSTransactionalPublisher) Flush(ctx context.Context) error {
	p.mu.Lock()
	pending := p.pending
	p.pending = make([]events.Event, 0)
	p.mu.Unlock()

	for _, event := range pending {
		if err := p.realPublisher.Publish(event); err != nil {
			log.WithFields(log.Fields{
				"eventType": event.Type(),
				"error":     err,
			}).Error("Failed to publish event during flush")
		}
	}

	log.WithField("flushedCount", len(pending)).Debug("Flushed pending events")
	return nil
}

// Discard clears pending events without publishing them
func (p *NATSTransactionalPublisher) Discard() {
	p.mu.Lock()
	defer p.mu.Unlock()

	log.WithField("discardedCount", len(p.pending)).Debug("Discarded pending events")
	p.pending = p.pending[:0]
}

// PendingCount returns the number of queued events
func (p *NATSTransactionalPublisher) PendingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}
