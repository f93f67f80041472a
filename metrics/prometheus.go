// Package metrics provides a Prometheus-backed implementation of the
// messaging.MetricsCollector seam.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// PrometheusCollector records messaging metrics on a Prometheus registry
type PrometheusCollector struct {
	published       *prometheus.CounterVec
	consumed        *prometheus.CounterVec
	errors          *prometheus.CounterVec
	handlerDuration *prometheus.HistogramVec
}

// NewPrometheusCollector registers the bus6 metrics on the given registerer
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	factory := promauto.With(reg)

	return &PrometheusCollector{
		published: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bus6",
			Name:      "messages_published_total",
			Help:      "Messages published, by declared type, exchange and outcome.",
		}, []string{"type", "exchange", "outcome"}),
		consumed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bus6",
			Name:      "messages_consumed_total",
			Help:      "Deliveries handled, by queue, declared type and outcome.",
		}, []string{"queue", "type", "outcome"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bus6",
			Name:      "errors_total",
			Help:      "Component-level errors.",
		}, []string{"component", "error_type"}),
		handlerDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bus6",
			Name:      "handler_duration_seconds",
			Help:      "Time spent handling one delivery, including deserialization.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"queue"}),
	}
}

// RecordPublish records a publish attempt
func (c *PrometheusCollector) RecordPublish(messageType, exchange string, duration time.Duration, success bool) {
	c.published.WithLabelValues(messageType, exchange, outcome(success)).Inc()
}

// RecordConsume records one handled delivery
func (c *PrometheusCollector) RecordConsume(queue, messageType string, duration time.Duration, success bool) {
	c.consumed.WithLabelValues(queue, messageType, outcome(success)).Inc()
	c.handlerDuration.WithLabelValues(queue).Observe(duration.Seconds())
}

// RecordError records a component-level error
func (c *PrometheusCollector) RecordError(component, errorType string) {
	c.errors.WithLabelValues(component, errorType).Inc()
}

func outcome(success bool) string {
	if success {
		return outcomeSuccess
	}
	return outcomeFailure
}
