package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/bus6/bus6-go/contracts"
)

// DeliveryHandler processes one inbound delivery. A non-nil error causes a
// negative acknowledgment; nil causes a positive one (unless auto-ack).
type DeliveryHandler func(ctx context.Context, delivery amqp.Delivery) error

// ConsumerSettings configures one subscription
type ConsumerSettings struct {
	Queue            string
	PrefetchCount    int
	AutoAck          bool
	RequeueOnFailure bool
	ConsumerTag      string // generated when empty
}

// NewConsumerSettings returns settings with the adapter defaults: prefetch
// of 10, explicit acknowledgment, failed deliveries requeued.
func NewConsumerSettings(queue string) ConsumerSettings {
	return ConsumerSettings{
		Queue:            queue,
		PrefetchCount:    10,
		AutoAck:          false,
		RequeueOnFailure: true,
	}
}

func (s ConsumerSettings) validate() error {
	if s.Queue == "" {
		return contracts.NewValidationError("settings.Queue", "must not be empty")
	}
	if s.PrefetchCount < 0 {
		return contracts.NewValidationError("settings.PrefetchCount", "must not be negative")
	}
	return nil
}

// Consumer subscribes a queue to a channel leased from the connection
// manager and dispatches deliveries to a handler. The running flag and
// consumer tag are set and cleared together under one mutex; a stopped
// consumer is never resurrected in place, a new start builds fresh state.
type Consumer struct {
	manager *ConnectionManager
	logger  *slog.Logger

	mu          sync.Mutex
	channel     Channel
	consumerTag string
	running     bool
	loopDone    chan struct{}
}

// ConsumerOption configures the consumer
type ConsumerOption func(*Consumer)

// WithConsumerLogger sets the logger
func WithConsumerLogger(logger *slog.Logger) ConsumerOption {
	return func(c *Consumer) {
		c.logger = logger
	}
}

// NewConsumer creates a consumer bound to the given connection manager
func NewConsumer(manager *ConnectionManager, options ...ConsumerOption) *Consumer {
	c := &Consumer{
		manager: manager,
		logger:  slog.Default(),
	}

	for _, opt := range options {
		opt(c)
	}

	return c
}

// IsRunning reports whether a subscription is currently active
func (c *Consumer) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// StartConsuming begins asynchronous delivery of messages from the queue
// to the handler. Starting an already-running consumer is a logged no-op.
// A context cancelled before the call begins fails it before any I/O.
func (c *Consumer) StartConsuming(ctx context.Context, settings ConsumerSettings, handler DeliveryHandler) error {
	if handler == nil {
		return contracts.NewValidationError("handler", "must not be nil")
	}
	if err := settings.validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return &ConsumeStartError{
			Queue:     settings.Queue,
			Op:        "start",
			Err:       err,
			Timestamp: time.Now(),
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		c.logger.Info("consumer already running, start ignored",
			"queue", settings.Queue,
			"consumerTag", c.consumerTag)
		return nil
	}

	// A previous run may have left its channel behind; the new
	// subscription gets a fresh one.
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.logger.Warn("failed to close previous channel", "error", err)
		}
		c.channel = nil
	}

	conn, err := c.manager.AcquireConsumeConnection(ctx)
	if err != nil {
		return &ConsumeStartError{
			Queue:     settings.Queue,
			Op:        "acquire connection",
			Err:       err,
			Timestamp: time.Now(),
		}
	}

	ch, err := conn.Channel()
	if err != nil {
		return &ConsumeStartError{
			Queue:     settings.Queue,
			Op:        "open channel",
			Err:       err,
			Timestamp: time.Now(),
		}
	}

	if err := ch.Qos(settings.PrefetchCount, 0, false); err != nil {
		c.closeChannel(ch)
		return &ConsumeStartError{
			Queue:     settings.Queue,
			Op:        "set qos",
			Err:       err,
			Timestamp: time.Now(),
		}
	}

	tag := settings.ConsumerTag
	if tag == "" {
		tag = "bus6-" + uuid.New().String()
	}

	deliveries, err := ch.Consume(
		settings.Queue,
		tag,
		settings.AutoAck,
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		c.closeChannel(ch)
		return &ConsumeStartError{
			Queue:     settings.Queue,
			Op:        "register consumer",
			Err:       err,
			Timestamp: time.Now(),
		}
	}

	c.channel = ch
	c.consumerTag = tag
	c.running = true
	c.loopDone = make(chan struct{})

	// Stopping the consumer only prevents new deliveries; in-flight
	// handler calls run to completion, so the loop context carries the
	// caller's values but not its cancellation.
	go c.dispatch(context.WithoutCancel(ctx), deliveries, settings, handler, c.loopDone)

	c.logger.Info("subscribed to queue",
		"queue", settings.Queue,
		"consumerTag", tag,
		"prefetchCount", settings.PrefetchCount,
		"autoAck", settings.AutoAck)

	return nil
}

// StopConsuming cancels the subscription on the broker. Stopping a
// consumer that is not running is a no-op.
func (c *Consumer) StopConsuming() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil
	}

	if c.channel != nil && !c.channel.IsClosed() {
		if err := c.channel.Cancel(c.consumerTag, false); err != nil {
			c.logger.Warn("failed to cancel subscription",
				"consumerTag", c.consumerTag,
				"error", err)
		}
	}

	c.logger.Info("consumer stopped", "consumerTag", c.consumerTag)
	c.consumerTag = ""
	c.running = false

	return nil
}

// Close stops the subscription if running and releases the channel. It is
// idempotent.
func (c *Consumer) Close() error {
	if err := c.StopConsuming(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != nil {
		c.closeChannel(c.channel)
		c.channel = nil
	}
	return nil
}

func (c *Consumer) closeChannel(ch Channel) {
	if err := ch.Close(); err != nil {
		c.logger.Warn("failed to close channel", "error", err)
	}
}

// dispatch drains the delivery stream until the broker closes it. A stream
// that dies out from under us (channel or connection death, not a caller
// stop) leaves the subscription gone on the broker side, so the consumer
// state is cleared to let a later StartConsuming rebuild from scratch.
func (c *Consumer) dispatch(ctx context.Context, deliveries <-chan amqp.Delivery, settings ConsumerSettings, handler DeliveryHandler, done chan struct{}) {
	defer close(done)

	for delivery := range deliveries {
		c.handleDelivery(ctx, delivery, settings, handler)
	}

	c.mu.Lock()
	// Only clear state still belonging to this run; a stop/restart may
	// already have moved the consumer on to a new loop.
	if c.loopDone == done && c.running {
		c.consumerTag = ""
		c.running = false
	}
	c.mu.Unlock()

	c.logger.Info("delivery stream closed", "queue", settings.Queue)
}

// handleDelivery runs the handler for one delivery and settles it. Handler
// errors and panics are contained here; they surface only as a negative
// acknowledgment and a log record, never out of the loop.
func (c *Consumer) handleDelivery(ctx context.Context, delivery amqp.Delivery, settings ConsumerSettings, handler DeliveryHandler) {
	err := c.invoke(ctx, delivery, handler)

	if settings.AutoAck {
		if err != nil {
			c.logger.Error("handler failed for auto-acked delivery",
				"queue", settings.Queue,
				"messageId", delivery.MessageId,
				"error", err)
		}
		return
	}

	if err == nil {
		if ackErr := delivery.Ack(false); ackErr != nil {
			c.logger.Error("failed to ack delivery",
				"deliveryTag", delivery.DeliveryTag,
				"error", ackErr)
		}
		return
	}

	c.logger.Error("handler failed, rejecting delivery",
		"queue", settings.Queue,
		"deliveryTag", delivery.DeliveryTag,
		"requeue", settings.RequeueOnFailure,
		"error", err)

	if nackErr := delivery.Nack(false, settings.RequeueOnFailure); nackErr != nil {
		c.logger.Error("failed to nack delivery",
			"deliveryTag", delivery.DeliveryTag,
			"error", nackErr)
	}
}

func (c *Consumer) invoke(ctx context.Context, delivery amqp.Delivery, handler DeliveryHandler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in handler: %v", r)
		}
	}()
	return handler(ctx, delivery)
}
