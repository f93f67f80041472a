package bus6

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bus6/bus6-go/config"
	"github.com/bus6/bus6-go/health"
	"github.com/bus6/bus6-go/internal/rabbitmq"
	"github.com/bus6/bus6-go/messaging"
	"github.com/bus6/bus6-go/serialization"
)

// Client is the main entry point. It owns the connection manager and wires
// the typed publisher, subscriber and dispatcher over it.
type Client struct {
	cfg        config.Config
	manager    *rabbitmq.ConnectionManager
	topology   *rabbitmq.TopologyManager
	publisher  *messaging.MessagePublisher
	subscriber *messaging.MessageSubscriber
	dispatcher *messaging.MessageDispatcher
	serializer *serialization.JSONSerializer

	closeOnce sync.Once
	closeErr  error
}

// NewClient creates a client for the given configuration
func NewClient(cfg config.Config, options ...ClientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := defaultClientOptions()
	for _, opt := range options {
		opt(opts)
	}

	serializer := opts.serializer
	if serializer == nil {
		serializer = serialization.NewJSONSerializer()
	}

	manager := rabbitmq.NewConnectionManager(rabbitmq.Settings{
		URI:                     cfg.URI(),
		ConnectionName:          cfg.ConnectionName,
		MaxConnectionLifetime:   cfg.MaxConnectionLifetime,
		HealthCheckInterval:     cfg.HealthCheckInterval,
		SeparateConnections:     cfg.SeparateConnections,
		Heartbeat:               cfg.Heartbeat,
		NetworkRecoveryInterval: cfg.NetworkRecoveryInterval,
	}, rabbitmq.WithLogger(opts.logger))

	transport := rabbitmq.NewPublisher(manager, rabbitmq.WithPublisherLogger(opts.logger))
	consumer := rabbitmq.NewConsumer(manager, rabbitmq.WithConsumerLogger(opts.logger))

	publisherOpts := []messaging.MessagePublisherOption{
		messaging.WithPublisherLogger(opts.logger),
		messaging.WithPublisherMetrics(opts.metrics),
		messaging.WithRouteRegistry(opts.routes),
	}
	if opts.breaker != nil {
		publisherOpts = append(publisherOpts, messaging.WithCircuitBreaker(opts.breaker))
	}

	return &Client{
		cfg:       cfg,
		manager:   manager,
		topology:  rabbitmq.NewTopologyManager(manager),
		publisher: messaging.NewMessagePublisher(transport, serializer, publisherOpts...),
		subscriber: messaging.NewMessageSubscriber(consumer, serializer,
			messaging.WithSubscriberLogger(opts.logger),
			messaging.WithSubscriberMetrics(opts.metrics)),
		dispatcher: messaging.NewMessageDispatcher(messaging.WithDispatcherLogger(opts.logger)),
		serializer: serializer,
	}, nil
}

// NewClientFromEnv creates a client from BUS6_* environment variables
func NewClientFromEnv(options ...ClientOption) (*Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return NewClient(cfg, options...)
}

// Publisher returns the typed message publisher
func (c *Client) Publisher() *messaging.MessagePublisher {
	return c.publisher
}

// Subscriber returns the typed message subscriber
func (c *Client) Subscriber() *messaging.MessageSubscriber {
	return c.subscriber
}

// Dispatcher returns the per-type message dispatcher
func (c *Client) Dispatcher() *messaging.MessageDispatcher {
	return c.dispatcher
}

// Registry returns the serializer's type registry
func (c *Client) Registry() serialization.TypeRegistry {
	return c.serializer.Registry()
}

// Routes returns the publisher's route registry
func (c *Client) Routes() *messaging.RouteRegistry {
	return c.publisher.Routes()
}

// Config returns the configuration the client was built with
func (c *Client) Config() config.Config {
	return c.cfg
}

// DeclareQueue declares a durable queue
func (c *Client) DeclareQueue(ctx context.Context, name string) error {
	_, err := c.topology.DeclareQueue(ctx, rabbitmq.QueueDeclaration{
		Name:    name,
		Durable: true,
	})
	return err
}

// BindQueue declares the exchange and queue if absent, then binds the
// queue to the exchange with the routing key.
func (c *Client) BindQueue(ctx context.Context, queue, exchange, routingKey string) error {
	err := c.topology.DeclareExchange(ctx, rabbitmq.ExchangeDeclaration{
		Name:    exchange,
		Type:    "topic",
		Durable: true,
	})
	if err != nil {
		return err
	}

	if err := c.DeclareQueue(ctx, queue); err != nil {
		return err
	}

	return c.topology.BindQueue(ctx, rabbitmq.Binding{
		Queue:      queue,
		Exchange:   exchange,
		RoutingKey: routingKey,
	})
}

// CheckHealth runs the client's health checkers
func (c *Client) CheckHealth(ctx context.Context, queues ...string) []health.CheckResult {
	checkers := []health.Checker{
		health.NewConnectionChecker(c.manager),
	}
	for _, queue := range queues {
		checkers = append(checkers, health.NewQueueChecker(queue, c.topology))
	}
	return health.RunAll(ctx, checkers...)
}

// Close tears the client down in order: the subscription is stopped, its
// channel released, then all connections are disposed. It is idempotent.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		var errs []error
		if err := c.subscriber.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close subscriber: %w", err))
		}
		if err := c.manager.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection manager: %w", err))
		}
		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}
