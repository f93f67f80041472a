package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"

	"github.com/bus6/bus6-go/contracts"
	"github.com/bus6/bus6-go/serialization"
)

// transportPublisher is the wire-level collaborator; *rabbitmq.Publisher
// satisfies it.
type transportPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error
}

// MessagePublisher serializes typed messages and publishes them to the
// route registered for their declared type, defaulting to the bus6 naming
// convention.
type MessagePublisher struct {
	transport  transportPublisher
	serializer serialization.MessageSerializer
	routes     *RouteRegistry
	breaker    *gobreaker.CircuitBreaker
	metrics    MetricsCollector
	logger     *slog.Logger
}

// MessagePublisherOption configures the message publisher
type MessagePublisherOption func(*MessagePublisher)

// WithPublisherLogger sets the logger
func WithPublisherLogger(logger *slog.Logger) MessagePublisherOption {
	return func(p *MessagePublisher) {
		p.logger = logger
	}
}

// WithRouteRegistry sets the route registry
func WithRouteRegistry(routes *RouteRegistry) MessagePublisherOption {
	return func(p *MessagePublisher) {
		p.routes = routes
	}
}

// WithPublisherMetrics sets the metrics collector
func WithPublisherMetrics(metrics MetricsCollector) MessagePublisherOption {
	return func(p *MessagePublisher) {
		p.metrics = metrics
	}
}

// WithCircuitBreaker guards publishes with the given circuit breaker; an
// open breaker fails calls fast instead of hitting the broker.
func WithCircuitBreaker(breaker *gobreaker.CircuitBreaker) MessagePublisherOption {
	return func(p *MessagePublisher) {
		p.breaker = breaker
	}
}

// NewMessagePublisher creates a typed publisher over the given transport
func NewMessagePublisher(transport transportPublisher, serializer serialization.MessageSerializer, options ...MessagePublisherOption) *MessagePublisher {
	p := &MessagePublisher{
		transport:  transport,
		serializer: serializer,
		routes:     NewRouteRegistry(),
		metrics:    &NoOpMetricsCollector{},
		logger:     slog.Default(),
	}

	for _, opt := range options {
		opt(p)
	}

	return p
}

// Routes returns the publisher's route registry
func (p *MessagePublisher) Routes() *RouteRegistry {
	return p.routes
}

// PublishOption overrides routing or metadata for a single publish
type PublishOption func(*publishConfig)

type publishConfig struct {
	exchange   string
	routingKey string
	headers    amqp.Table
}

// WithExchange overrides the target exchange for this publish
func WithExchange(exchange string) PublishOption {
	return func(c *publishConfig) {
		c.exchange = exchange
	}
}

// WithRoutingKey overrides the routing key for this publish
func WithRoutingKey(routingKey string) PublishOption {
	return func(c *publishConfig) {
		c.routingKey = routingKey
	}
}

// WithHeaders sets application headers for this publish
func WithHeaders(headers amqp.Table) PublishOption {
	return func(c *publishConfig) {
		c.headers = headers
	}
}

// Publish serializes the message and sends it to its route. The message
// must be non-nil and carry a declared type name; the resolved exchange
// must be non-empty. Failures are wrapped by the transport as PublishError.
func (p *MessagePublisher) Publish(ctx context.Context, msg contracts.Message, options ...PublishOption) error {
	if msg == nil {
		return contracts.NewValidationError("message", "must not be nil")
	}

	typeName := msg.GetType()
	if typeName == "" {
		return contracts.NewValidationError("message", "declared type name must not be empty")
	}

	route := p.routes.Resolve(typeName)
	cfg := publishConfig{
		exchange:   route.Exchange,
		routingKey: route.RoutingKey,
	}
	for _, opt := range options {
		opt(&cfg)
	}

	if cfg.exchange == "" {
		return contracts.NewValidationError("exchange", "must not be empty")
	}

	data, err := p.serializer.Serialize(msg)
	if err != nil {
		return fmt.Errorf("failed to serialize message %s: %w", typeName, err)
	}

	publishing := amqp.Publishing{
		ContentType:     p.serializer.ContentType(),
		ContentEncoding: "utf-8",
		DeliveryMode:    amqp.Persistent,
		MessageId:       msg.GetID(),
		CorrelationId:   msg.GetCorrelationID(),
		Type:            typeName,
		Timestamp:       msg.GetTimestamp(),
		Headers:         cfg.headers,
		Body:            data,
	}

	start := time.Now()
	err = p.send(ctx, cfg.exchange, cfg.routingKey, publishing)
	p.metrics.RecordPublish(typeName, cfg.exchange, time.Since(start), err == nil)

	if err != nil {
		p.metrics.RecordError("publisher", "publish")
		return err
	}

	p.logger.Debug("published message",
		"type", typeName,
		"exchange", cfg.exchange,
		"routingKey", cfg.routingKey,
		"messageId", publishing.MessageId)

	return nil
}

func (p *MessagePublisher) send(ctx context.Context, exchange, routingKey string, publishing amqp.Publishing) error {
	if p.breaker == nil {
		return p.transport.Publish(ctx, exchange, routingKey, publishing)
	}

	_, err := p.breaker.Execute(func() (any, error) {
		return nil, p.transport.Publish(ctx, exchange, routingKey, publishing)
	})
	return err
}
