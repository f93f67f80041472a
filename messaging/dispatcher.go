package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bus6/bus6-go/contracts"
)

// MessageDispatcher routes decoded messages to the handler registered for
// their declared type. It implements MessageHandler, so it can be passed
// directly to Subscribe when one queue carries several message types.
type MessageDispatcher struct {
	mu       sync.RWMutex
	handlers map[string]MessageHandler
	logger   *slog.Logger
}

// MessageDispatcherOption configures the dispatcher
type MessageDispatcherOption func(*MessageDispatcher)

// WithDispatcherLogger sets the logger
func WithDispatcherLogger(logger *slog.Logger) MessageDispatcherOption {
	return func(d *MessageDispatcher) {
		d.logger = logger
	}
}

// NewMessageDispatcher creates an empty dispatcher
func NewMessageDispatcher(options ...MessageDispatcherOption) *MessageDispatcher {
	d := &MessageDispatcher{
		handlers: make(map[string]MessageHandler),
		logger:   slog.Default(),
	}

	for _, opt := range options {
		opt(d)
	}

	return d
}

// RegisterHandler registers a handler for a declared type name
func (d *MessageDispatcher) RegisterHandler(typeName string, handler MessageHandler) error {
	if typeName == "" {
		return contracts.NewValidationError("typeName", "must not be empty")
	}
	if handler == nil {
		return contracts.NewValidationError("handler", "must not be nil")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.handlers[typeName]; exists {
		return fmt.Errorf("handler already registered for type %s", typeName)
	}

	d.handlers[typeName] = handler
	return nil
}

// RemoveHandler removes the handler for a declared type name
func (d *MessageDispatcher) RemoveHandler(typeName string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.handlers, typeName)
}

// Handle implements MessageHandler. A message with no registered handler
// is an error, so the delivery is rejected rather than silently dropped.
func (d *MessageDispatcher) Handle(ctx context.Context, msg contracts.Message) error {
	typeName := msg.GetType()

	d.mu.RLock()
	handler, exists := d.handlers[typeName]
	d.mu.RUnlock()

	if !exists {
		return fmt.Errorf("no handler registered for type %s", typeName)
	}

	d.logger.Debug("dispatching message",
		"type", typeName,
		"messageId", msg.GetID())

	return handler.Handle(ctx, msg)
}
