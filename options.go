package bus6

import (
	"log/slog"

	"github.com/sony/gobreaker"

	"github.com/bus6/bus6-go/messaging"
	"github.com/bus6/bus6-go/serialization"
)

type clientOptions struct {
	logger     *slog.Logger
	serializer *serialization.JSONSerializer
	metrics    messaging.MetricsCollector
	routes     *messaging.RouteRegistry
	breaker    *gobreaker.CircuitBreaker
}

func defaultClientOptions() *clientOptions {
	return &clientOptions{
		logger:  slog.Default(),
		metrics: &messaging.NoOpMetricsCollector{},
		routes:  messaging.NewRouteRegistry(),
	}
}

// ClientOption configures the client
type ClientOption func(*clientOptions)

// WithClientLogger sets the logger used by every component
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithSerializer replaces the default JSON serializer
func WithSerializer(serializer *serialization.JSONSerializer) ClientOption {
	return func(o *clientOptions) {
		o.serializer = serializer
	}
}

// WithMetricsCollector sets the metrics collector for publishes and
// consumed deliveries
func WithMetricsCollector(metrics messaging.MetricsCollector) ClientOption {
	return func(o *clientOptions) {
		o.metrics = metrics
	}
}

// WithRouteRegistry sets the route registry used by the publisher
func WithRouteRegistry(routes *messaging.RouteRegistry) ClientOption {
	return func(o *clientOptions) {
		o.routes = routes
	}
}

// WithPublishCircuitBreaker guards publishes with a circuit breaker
func WithPublishCircuitBreaker(breaker *gobreaker.CircuitBreaker) ClientOption {
	return func(o *clientOptions) {
		o.breaker = breaker
	}
}
