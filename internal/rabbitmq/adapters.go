package rabbitmq

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Connection and Channel mirror the amqp091-go surface the adapter relies
// on, so tests can substitute fakes without a live broker.
type Connection interface {
	Channel() (Channel, error)
	IsClosed() bool
	Close() error
}

// Channel is the subset of *amqp.Channel used by the adapter
type Channel interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Cancel(consumer string, noWait bool) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	QueueInspect(name string) (amqp.Queue, error)
	IsClosed() bool
	Close() error
}

// DialFunc establishes a broker connection from the held settings
type DialFunc func(settings Settings) (Connection, error)

// realConnection adapts *amqp.Connection to the Connection interface
type realConnection struct {
	conn *amqp.Connection
}

func (r realConnection) Channel() (Channel, error) {
	ch, err := r.conn.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func (r realConnection) IsClosed() bool {
	return r.conn.IsClosed()
}

func (r realConnection) Close() error {
	return r.conn.Close()
}

// defaultDial connects using amqp091-go with the heartbeat, dial timeout
// and client identity from the settings.
func defaultDial(settings Settings) (Connection, error) {
	cfg := amqp.Config{
		Heartbeat: settings.Heartbeat,
		Properties: amqp.Table{
			"connection_name": settings.ConnectionName,
		},
		Dial: amqp.DefaultDial(settings.NetworkRecoveryInterval),
	}

	conn, err := amqp.DialConfig(settings.URI, cfg)
	if err != nil {
		return nil, err
	}
	return realConnection{conn: conn}, nil
}
