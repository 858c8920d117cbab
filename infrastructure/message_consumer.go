package infrastructure

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

// MessageHandler handles raw message bytes
type MessageHandler func(ctx context.Context, data []byte) error

// receiveRecorder receives consume counts
type receiveRecorder interface {
	RecordNATSMessageReceived(subject string)
}

// MessageConsumer manages NATS subscriptions and routes messages to handlers
type MessageConsumer struct {
	natsClient *NATSClient
	metrics    receiveRecorder
	handlers   map[string]MessageHandler
	mu         sync.RWMutex
}

// NewMessageConsumer creates a consumer on an already constructed client
func NewMessageConsumer(natsClient *NATSClient, metrics receiveRecorder) *MessageConsumer {
	return &MessageConsumer{
		natsClient: natsClient,
		metrics:    metrics,
		handlers:   make(map[string]MessageHandler),
	}
}

// RegisterHandler registers a handler for a subject
func (mc *MessageConsumer) RegisterHandler(subject string, handler MessageHandler) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.handlers[subject] = handler
	log.WithField("subject", subject).Info("Registered message handler")
}

// Start ensures the ingress stream, subscribes every registered subject and
// blocks until ctx is done. The client must already be connected.
func (mc *MessageConsumer) Start(ctx context.Context) error {
	log.Info("Starting message consumer")

	if err := mc.natsClient.EnsureStream("tumulte_ingress", "Dice rolls, channel point redemptions and engine commands", IngressSubjects()); err != nil {
		return fmt.Errorf("failed to ensure ingress stream: %w", err)
	}

	mc.mu.RLock()
	subjects := make([]string, 0, len(mc.handlers))
	for subject := range mc.handlers {
		subjects = append(subjects, subject)
	}
	mc.mu.RUnlock()

	for _, subject := range subjects {
		if err := mc.subscribe(ctx, subject); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
	}

	log.WithField("subjects", subjects).Info("Message consumer started and subscribed to subjects")

	<-ctx.Done()
	return nil
}

func (mc *MessageConsumer) subscribe(ctx context.Context, subject string) error {
	return mc.natsClient.Subscribe(subject, func(data []byte) error {
		return mc.dispatch(ctx, subject, data)
	})
}

func (mc *MessageConsumer) dispatch(ctx context.Context, subject string, data []byte) error {
	mc.mu.RLock()
	handler, exists := mc.handlers[subject]
	mc.mu.RUnlock()

	if !exists {
		return fmt.Errorf("no handler registered for subject: %s", subject)
	}

	if mc.metrics != nil {
		mc.metrics.RecordNATSMessageReceived(subject)
	}

	if err := handler(ctx, data); err != nil {
		log.WithFields(log.Fields{
			"subject": subject,
			"error":   err,
		}).Error("Failed to handle message")
		return err
	}

	log.WithField("subject", subject).Debug("Successfully handled message")
	return nil
}
