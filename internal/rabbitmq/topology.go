package rabbitmq

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ExchangeDeclaration defines an exchange to be declared
type ExchangeDeclaration struct {
	Name       string
	Type       string
	Durable    bool
	AutoDelete bool
	Arguments  amqp.Table
}

// QueueDeclaration defines a queue to be declared
type QueueDeclaration struct {
	Name       string
	Durable    bool
	AutoDelete bool
	Exclusive  bool
	Arguments  amqp.Table
}

// Binding defines a queue-to-exchange binding
type Binding struct {
	Queue      string
	Exchange   string
	RoutingKey string
	Arguments  amqp.Table
}

// TopologyManager declares the exchanges, queues and bindings a subscription
// needs. Each operation runs on a short-lived channel leased from the
// connection manager; declare operations are idempotent on the broker side.
type TopologyManager struct {
	manager *ConnectionManager
}

// NewTopologyManager creates a topology manager bound to the connection manager
func NewTopologyManager(manager *ConnectionManager) *TopologyManager {
	return &TopologyManager{
		manager: manager,
	}
}

// DeclareExchange declares a single exchange
func (tm *TopologyManager) DeclareExchange(ctx context.Context, exchange ExchangeDeclaration) error {
	err := tm.execute(ctx, func(ch Channel) error {
		return ch.ExchangeDeclare(
			exchange.Name,
			exchange.Type,
			exchange.Durable,
			exchange.AutoDelete,
			false, // internal
			false, // no-wait
			exchange.Arguments,
		)
	})
	if err != nil {
		return &TopologyError{
			Component: "exchange",
			Name:      exchange.Name,
			Op:        "declare",
			Err:       err,
			Timestamp: time.Now(),
		}
	}
	return nil
}

// DeclareQueue declares a single queue
func (tm *TopologyManager) DeclareQueue(ctx context.Context, queue QueueDeclaration) (amqp.Queue, error) {
	var q amqp.Queue
	err := tm.execute(ctx, func(ch Channel) error {
		var err error
		q, err = ch.QueueDeclare(
			queue.Name,
			queue.Durable,
			queue.AutoDelete,
			queue.Exclusive,
			false, // no-wait
			queue.Arguments,
		)
		return err
	})
	if err != nil {
		return amqp.Queue{}, &TopologyError{
			Component: "queue",
			Name:      queue.Name,
			Op:        "declare",
			Err:       err,
			Timestamp: time.Now(),
		}
	}
	return q, nil
}

// BindQueue creates a queue binding
func (tm *TopologyManager) BindQueue(ctx context.Context, binding Binding) error {
	err := tm.execute(ctx, func(ch Channel) error {
		return ch.QueueBind(
			binding.Queue,
			binding.RoutingKey,
			binding.Exchange,
			false, // no-wait
			binding.Arguments,
		)
	})
	if err != nil {
		return &TopologyError{
			Component: "binding",
			Name:      binding.Queue + " -> " + binding.Exchange,
			Op:        "bind",
			Err:       err,
			Timestamp: time.Now(),
		}
	}
	return nil
}

// InspectQueue retrieves queue information
func (tm *TopologyManager) InspectQueue(ctx context.Context, name string) (amqp.Queue, error) {
	var q amqp.Queue
	err := tm.execute(ctx, func(ch Channel) error {
		var err error
		q, err = ch.QueueInspect(name)
		return err
	})
	if err != nil {
		return amqp.Queue{}, &TopologyError{
			Component: "queue",
			Name:      name,
			Op:        "inspect",
			Err:       err,
			Timestamp: time.Now(),
		}
	}
	return q, nil
}

// execute runs fn on a transient channel from the publish-side connection
func (tm *TopologyManager) execute(ctx context.Context, fn func(Channel) error) error {
	conn, err := tm.manager.AcquirePublishConnection(ctx)
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	return fn(ch)
}
