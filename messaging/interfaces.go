package messaging

import (
	"context"
	"time"

	"github.com/bus6/bus6-go/contracts"
)

// MessageHandler processes a decoded message. A non-nil error rejects the
// underlying delivery.
type MessageHandler interface {
	Handle(ctx context.Context, msg contracts.Message) error
}

// MessageHandlerFunc is a function that implements MessageHandler
type MessageHandlerFunc func(ctx context.Context, msg contracts.Message) error

// Handle implements MessageHandler
func (f MessageHandlerFunc) Handle(ctx context.Context, msg contracts.Message) error {
	return f(ctx, msg)
}

// Publisher publishes typed messages
type Publisher interface {
	// Publish publishes a message, routing it by the registered route for
	// its declared type unless overridden per call
	Publish(ctx context.Context, msg contracts.Message, options ...PublishOption) error
}

// Subscriber binds typed handlers to queues
type Subscriber interface {
	// Subscribe begins delivery from a queue to the handler
	Subscribe(ctx context.Context, queue string, handler MessageHandler, options ...SubscriptionOption) error

	// Unsubscribe cancels the active subscription
	Unsubscribe() error

	// Close stops the subscription and releases the channel
	Close() error
}

// MetricsCollector collects messaging metrics
type MetricsCollector interface {
	// RecordPublish records a publish attempt
	RecordPublish(messageType, exchange string, duration time.Duration, success bool)

	// RecordConsume records one handled delivery; success means the
	// delivery was (or would be) positively acknowledged
	RecordConsume(queue, messageType string, duration time.Duration, success bool)

	// RecordError records a component-level error
	RecordError(component, errorType string)
}

// NoOpMetricsCollector is a no-op implementation of MetricsCollector
type NoOpMetricsCollector struct{}

// RecordPublish does nothing
func (n *NoOpMetricsCollector) RecordPublish(messageType, exchange string, duration time.Duration, success bool) {
}

// RecordConsume does nothing
func (n *NoOpMetricsCollector) RecordConsume(queue, messageType string, duration time.Duration, success bool) {
}

// RecordError does nothing
func (n *NoOpMetricsCollector) RecordError(component, errorType string) {}
