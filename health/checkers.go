package health

import (
	"context"
	"fmt"
	"time"

	"github.com/bus6/bus6-go/internal/rabbitmq"
)

// ConnectionChecker reports on the connection manager's slots. It inspects
// held handles without forcing new connections, so a cold manager that has
// not served an acquisition yet reports degraded rather than unhealthy.
type ConnectionChecker struct {
	manager *rabbitmq.ConnectionManager
}

// NewConnectionChecker creates a connection health checker
func NewConnectionChecker(manager *rabbitmq.ConnectionManager) *ConnectionChecker {
	return &ConnectionChecker{
		manager: manager,
	}
}

func (c *ConnectionChecker) Name() string {
	return "rabbitmq_connections"
}

func (c *ConnectionChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{
		Name:      c.Name(),
		Timestamp: start,
		Details:   make(map[string]interface{}),
	}

	if c.manager.IsDisposed() {
		result.Status = StatusUnhealthy
		result.Message = "connection manager is disposed"
		result.Duration = time.Since(start)
		return result
	}

	slots := c.manager.Snapshot()
	open := 0
	for _, slot := range slots {
		result.Details[string(slot.Purpose)+"_open"] = slot.Open
		result.Details[string(slot.Purpose)+"_age_seconds"] = slot.Age.Seconds()
		if slot.Open {
			open++
		}
	}

	switch {
	case len(slots) == 0:
		result.Status = StatusDegraded
		result.Message = "no connections established yet"
	case open == 0:
		result.Status = StatusUnhealthy
		result.Message = "all held connections are closed"
	case open < len(slots):
		result.Status = StatusDegraded
		result.Message = fmt.Sprintf("%d of %d connections open", open, len(slots))
	default:
		result.Status = StatusHealthy
		result.Message = "all connections open"
	}

	result.Duration = time.Since(start)
	return result
}

// QueueChecker checks that a specific queue exists and is accessible
type QueueChecker struct {
	queueName string
	topology  *rabbitmq.TopologyManager
}

// NewQueueChecker creates a queue health checker
func NewQueueChecker(queueName string, topology *rabbitmq.TopologyManager) *QueueChecker {
	return &QueueChecker{
		queueName: queueName,
		topology:  topology,
	}
}

func (c *QueueChecker) Name() string {
	return fmt.Sprintf("queue_%s", c.queueName)
}

func (c *QueueChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{
		Name:      c.Name(),
		Timestamp: start,
		Details:   make(map[string]interface{}),
	}

	queue, err := c.topology.InspectQueue(ctx, c.queueName)
	if err != nil {
		result.Status = StatusUnhealthy
		result.Message = fmt.Sprintf("queue %s not accessible", c.queueName)
		result.Error = err.Error()
		result.Duration = time.Since(start)
		return result
	}

	result.Status = StatusHealthy
	result.Message = fmt.Sprintf("queue %s is accessible", c.queueName)
	result.Details["message_count"] = queue.Messages
	result.Details["consumer_count"] = queue.Consumers

	// A deep backlog usually means consumers cannot keep up
	if queue.Messages > 10000 {
		result.Status = StatusDegraded
		result.Message = fmt.Sprintf("queue %s has high message count", c.queueName)
	}

	result.Duration = time.Since(start)
	return result
}
