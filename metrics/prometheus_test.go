package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusCollector(t *testing.T) {
	t.Run("counts publishes by type, exchange and outcome", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		collector := NewPrometheusCollector(reg)

		collector.RecordPublish("OrderPlaced", "bus6.orderplaced", 5*time.Millisecond, true)
		collector.RecordPublish("OrderPlaced", "bus6.orderplaced", 5*time.Millisecond, true)
		collector.RecordPublish("OrderPlaced", "bus6.orderplaced", 5*time.Millisecond, false)

		assert.Equal(t, float64(2), testutil.ToFloat64(
			collector.published.WithLabelValues("OrderPlaced", "bus6.orderplaced", "success")))
		assert.Equal(t, float64(1), testutil.ToFloat64(
			collector.published.WithLabelValues("OrderPlaced", "bus6.orderplaced", "failure")))
	})

	t.Run("counts consumes and observes handler duration", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		collector := NewPrometheusCollector(reg)

		collector.RecordConsume("orders", "OrderPlaced", 20*time.Millisecond, true)
		collector.RecordConsume("orders", "OrderPlaced", 20*time.Millisecond, false)

		assert.Equal(t, float64(1), testutil.ToFloat64(
			collector.consumed.WithLabelValues("orders", "OrderPlaced", "success")))
		assert.Equal(t, 1, testutil.CollectAndCount(collector.handlerDuration))
	})

	t.Run("counts component errors", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		collector := NewPrometheusCollector(reg)

		collector.RecordError("subscriber", "deserialize")

		assert.Equal(t, float64(1), testutil.ToFloat64(
			collector.errors.WithLabelValues("subscriber", "deserialize")))
	})

	t.Run("registers all metric families", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		collector := NewPrometheusCollector(reg)

		collector.RecordPublish("T", "e", 0, true)
		collector.RecordConsume("q", "T", 0, true)
		collector.RecordError("c", "t")

		families, err := reg.Gather()
		assert.NoError(t, err)
		assert.Len(t, families, 4)
	})
}
