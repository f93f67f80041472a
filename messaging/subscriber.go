package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/bus6/bus6-go/contracts"
	"github.com/bus6/bus6-go/internal/rabbitmq"
	"github.com/bus6/bus6-go/serialization"
)

// transportConsumer is the wire-level collaborator; *rabbitmq.Consumer
// satisfies it.
type transportConsumer interface {
	StartConsuming(ctx context.Context, settings rabbitmq.ConsumerSettings, handler rabbitmq.DeliveryHandler) error
	StopConsuming() error
	Close() error
	IsRunning() bool
}

// MessageSubscriber binds typed handlers to a queue. Payloads are decoded
// through the serializer's type registry before the handler runs; a decode
// failure counts as a handler failure and rejects the delivery.
type MessageSubscriber struct {
	consumer   transportConsumer
	serializer serialization.MessageSerializer
	metrics    MetricsCollector
	logger     *slog.Logger
}

// MessageSubscriberOption configures the message subscriber
type MessageSubscriberOption func(*MessageSubscriber)

// WithSubscriberLogger sets the logger
func WithSubscriberLogger(logger *slog.Logger) MessageSubscriberOption {
	return func(s *MessageSubscriber) {
		s.logger = logger
	}
}

// WithSubscriberMetrics sets the metrics collector
func WithSubscriberMetrics(metrics MetricsCollector) MessageSubscriberOption {
	return func(s *MessageSubscriber) {
		s.metrics = metrics
	}
}

// NewMessageSubscriber creates a typed subscriber over the given consumer
func NewMessageSubscriber(consumer transportConsumer, serializer serialization.MessageSerializer, options ...MessageSubscriberOption) *MessageSubscriber {
	s := &MessageSubscriber{
		consumer:   consumer,
		serializer: serializer,
		metrics:    &NoOpMetricsCollector{},
		logger:     slog.Default(),
	}

	for _, opt := range options {
		opt(s)
	}

	return s
}

// SubscriptionOption adjusts the consume settings for one subscription
type SubscriptionOption func(*rabbitmq.ConsumerSettings)

// WithPrefetchCount bounds the number of unacknowledged deliveries the
// broker hands to the channel at a time
func WithPrefetchCount(count int) SubscriptionOption {
	return func(s *rabbitmq.ConsumerSettings) {
		s.PrefetchCount = count
	}
}

// WithAutoAck lets the broker consider deliveries settled on send
func WithAutoAck(autoAck bool) SubscriptionOption {
	return func(s *rabbitmq.ConsumerSettings) {
		s.AutoAck = autoAck
	}
}

// WithRequeueOnFailure controls whether rejected deliveries return to the
// queue. Disable it to hand perpetually failing messages to a broker-level
// dead-letter policy instead of requeueing them indefinitely.
func WithRequeueOnFailure(requeue bool) SubscriptionOption {
	return func(s *rabbitmq.ConsumerSettings) {
		s.RequeueOnFailure = requeue
	}
}

// WithConsumerTag sets an explicit consumer tag
func WithConsumerTag(tag string) SubscriptionOption {
	return func(s *rabbitmq.ConsumerSettings) {
		s.ConsumerTag = tag
	}
}

// Subscribe begins delivery from the queue to the handler
func (s *MessageSubscriber) Subscribe(ctx context.Context, queue string, handler MessageHandler, options ...SubscriptionOption) error {
	if handler == nil {
		return contracts.NewValidationError("handler", "must not be nil")
	}

	settings := rabbitmq.NewConsumerSettings(queue)
	for _, opt := range options {
		opt(&settings)
	}

	deliveryHandler := func(ctx context.Context, delivery amqp.Delivery) error {
		return s.handleDelivery(ctx, queue, delivery, handler)
	}

	return s.consumer.StartConsuming(ctx, settings, deliveryHandler)
}

func (s *MessageSubscriber) handleDelivery(ctx context.Context, queue string, delivery amqp.Delivery, handler MessageHandler) error {
	start := time.Now()

	msg, err := s.serializer.Deserialize(delivery.Body)
	if err != nil {
		s.metrics.RecordConsume(queue, delivery.Type, time.Since(start), false)
		s.metrics.RecordError("subscriber", "deserialize")
		return fmt.Errorf("failed to deserialize delivery %d: %w", delivery.DeliveryTag, err)
	}

	err = handler.Handle(ctx, msg)
	s.metrics.RecordConsume(queue, msg.GetType(), time.Since(start), err == nil)
	if err != nil {
		s.metrics.RecordError("subscriber", "handler")
	}
	return err
}

// Unsubscribe cancels the active subscription
func (s *MessageSubscriber) Unsubscribe() error {
	return s.consumer.StopConsuming()
}

// Close stops the subscription and releases the channel
func (s *MessageSubscriber) Close() error {
	return s.consumer.Close()
}
