package infrastructure

import (
	"context"
	"sync"

	"tumulte/domain/events"
	"tumulte/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// NATSTransactionalPublisher holds events until flush, then hands them to the real publisher
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

// Publish stores an event in the pending queue without publishing it
func (p *NATSTransactionalPublisher) Publish(event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	log.WithFields(log.Fields{
		"event_type":    event.Type(),
		"pending_count": len(p.pending),
	}).Debug("Adding event to transactional publisher pending queue")

	p.pending = append(p.pending, event)
	return nil
}

// Flush publishes all pending events. Called after the database commit.
func (p *NATSTransactionalPublisher) Flush(ctx context.Context) error {
	p.mu.Lock()
	pending := p.pending
	p.pending = make([]events.Event, 0)
	p.mu.Unlock()

	log.WithField("pending_event_count", len(pending)).Debug("Flushing pending events")

	for _, event := range pending {
		if ctx.Err() != nil {
			log.WithField("dropped", len(pending)).Warn("Context cancelled during flush")
			return ctx.Err()
		}
		// a failed event must not block the rest
		if err := p.realPublisher.Publish(event); err != nil {
			log.WithFields(log.Fields{
				"event_type": event.Type(),
				"error":      err,
			}).Error("Failed to publish event during flush")
		}
	}

	return nil
}

// Discard clears all pending events. Called on rollback.
func (p *NATSTransactionalPublisher) Discard() {
	p.mu.Lock()
	defer p.mu.Unlock()

	log.WithField("discarded_event_count", len(p.pending)).Debug("Discarding pending events")
	p.pending = p.pending[:0]
}

// PendingCount returns the number of buffered events
func (p *NATSTransactionalPublisher) PendingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}
