package rabbitmq

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/bus6/bus6-go/contracts"
)

// Publisher sends messages over a transient channel leased per publish.
// Channels are never shared across concurrent publish calls.
type Publisher struct {
	manager *ConnectionManager
	logger  *slog.Logger
}

// PublisherOption configures the publisher
type PublisherOption func(*Publisher)

// WithPublisherLogger sets the logger
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher creates a publisher bound to the given connection manager
func NewPublisher(manager *ConnectionManager, options ...PublisherOption) *Publisher {
	p := &Publisher{
		manager: manager,
		logger:  slog.Default(),
	}

	for _, opt := range options {
		opt(p)
	}

	return p
}

// Publish ensures the target exchange exists (durable, topic-routed), then
// sends the message persistently with a generated message id and current
// timestamp where the caller left them unset.
func (p *Publisher) Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	if exchange == "" {
		return contracts.NewValidationError("exchange", "must not be empty")
	}

	conn, err := p.manager.AcquirePublishConnection(ctx)
	if err != nil {
		return &PublishError{
			Exchange:   exchange,
			RoutingKey: routingKey,
			Op:         "acquire connection",
			Err:        err,
			Timestamp:  time.Now(),
		}
	}

	ch, err := conn.Channel()
	if err != nil {
		return &PublishError{
			Exchange:   exchange,
			RoutingKey: routingKey,
			Op:         "open channel",
			Err:        err,
			Timestamp:  time.Now(),
		}
	}
	defer func() {
		if closeErr := ch.Close(); closeErr != nil {
			p.logger.Warn("failed to close publish channel", "error", closeErr)
		}
	}()

	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return &PublishError{
			Exchange:   exchange,
			RoutingKey: routingKey,
			Op:         "declare exchange",
			Err:        err,
			Timestamp:  time.Now(),
		}
	}

	if msg.MessageId == "" {
		msg.MessageId = uuid.New().String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	if msg.DeliveryMode == 0 {
		msg.DeliveryMode = amqp.Persistent
	}

	if err := ch.PublishWithContext(ctx, exchange, routingKey, false, false, msg); err != nil {
		return &PublishError{
			Exchange:   exchange,
			RoutingKey: routingKey,
			Op:         "publish",
			Err:        err,
			Timestamp:  time.Now(),
		}
	}

	p.logger.Debug("message published",
		"exchange", exchange,
		"routingKey", routingKey,
		"messageId", msg.MessageId)

	return nil
}
