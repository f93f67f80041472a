package rabbitmq

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"
)

var (
	// ErrManagerDisposed is returned when an operation is attempted after shutdown
	ErrManagerDisposed = errors.New("rabbitmq: connection manager is disposed")

	// ErrBrokerUnreachable is returned when the broker cannot be reached at connect time
	ErrBrokerUnreachable = errors.New("rabbitmq: broker unreachable")
)

// ConnectionErrorKind classifies connection acquisition failures
type ConnectionErrorKind int

const (
	// ConnectionFailure covers any connect-time failure that is not a
	// reachability problem
	ConnectionFailure ConnectionErrorKind = iota
	// ConnectionUnreachable means the broker could not be reached
	ConnectionUnreachable
	// ConnectionDisposed means the manager was already shut down
	ConnectionDisposed
)

func (k ConnectionErrorKind) String() string {
	switch k {
	case ConnectionUnreachable:
		return "unreachable"
	case ConnectionDisposed:
		return "disposed"
	default:
		return "failure"
	}
}

// ConnectionError represents a connection acquisition error
type ConnectionError struct {
	Kind      ConnectionErrorKind
	Op        string    // Operation that failed
	URL       string    // Connection URL (sanitized)
	Err       error     // Underlying error
	Timestamp time.Time // When the error occurred
}

func (e *ConnectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rabbitmq connection error (%s): %s failed: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("rabbitmq connection error (%s): %s failed", e.Kind, e.Op)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsDisposed reports whether err is a post-shutdown connection error
func IsDisposed(err error) bool {
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return connErr.Kind == ConnectionDisposed
	}
	return errors.Is(err, ErrManagerDisposed)
}

// IsUnreachable reports whether err is a broker reachability error
func IsUnreachable(err error) bool {
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return connErr.Kind == ConnectionUnreachable
	}
	return errors.Is(err, ErrBrokerUnreachable)
}

// classifyDialError maps a dial failure to a connection error kind
func classifyDialError(err error) ConnectionErrorKind {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ConnectionUnreachable
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ConnectionUnreachable
	}
	if errors.Is(err, ErrBrokerUnreachable) {
		return ConnectionUnreachable
	}
	return ConnectionFailure
}

// ConsumeStartError wraps any failure during subscription setup
type ConsumeStartError struct {
	Queue     string    // Queue name
	Op        string    // Setup step that failed
	Err       error     // Underlying error
	Timestamp time.Time // When the error occurred
}

func (e *ConsumeStartError) Error() string {
	return fmt.Sprintf("rabbitmq consume error: %s failed for queue %s: %v", e.Op, e.Queue, e.Err)
}

func (e *ConsumeStartError) Unwrap() error {
	return e.Err
}

// PublishError wraps any failure during a publish operation
type PublishError struct {
	Exchange   string    // Target exchange
	RoutingKey string    // Routing key used
	Op         string    // Publish step that failed
	Err        error     // Underlying error
	Timestamp  time.Time // When the error occurred
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("rabbitmq publish error: %s failed for %s/%s: %v",
		e.Op, e.Exchange, e.RoutingKey, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// TopologyError wraps exchange/queue declaration and binding failures
type TopologyError struct {
	Component string    // Component type (exchange, queue, binding)
	Name      string    // Component name
	Op        string    // Operation that failed
	Err       error     // Underlying error
	Timestamp time.Time // When the error occurred
}

func (e *TopologyError) Error() string {
	return fmt.Sprintf("rabbitmq topology error: failed to %s %s %q: %v",
		e.Op, e.Component, e.Name, e.Err)
}

func (e *TopologyError) Unwrap() error {
	return e.Err
}

// SanitizeURL removes credentials from connection URLs for logging
func SanitizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "***"
	}
	return u.Redacted()
}
