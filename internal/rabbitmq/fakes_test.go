package rabbitmq

import (
	"context"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// fakeConnection is an in-memory Connection for tests
type fakeConnection struct {
	mu         sync.Mutex
	closed     bool
	closeCount int
	closeErr   error
	channelErr error
	channels   []*fakeChannel

	// channelSetup, when set, runs on every channel before it is handed out
	channelSetup func(*fakeChannel)
}

func (c *fakeConnection) Channel() (Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channelErr != nil {
		return nil, c.channelErr
	}
	ch := newFakeChannel()
	if c.channelSetup != nil {
		c.channelSetup(ch)
	}
	c.channels = append(c.channels, ch)
	return ch, nil
}

func (c *fakeConnection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.closeCount++
	return c.closeErr
}

func (c *fakeConnection) closes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCount
}

type publishRecord struct {
	exchange   string
	routingKey string
	msg        amqp.Publishing
}

type exchangeRecord struct {
	name    string
	kind    string
	durable bool
}

// fakeChannel is an in-memory Channel for tests
type fakeChannel struct {
	mu         sync.Mutex
	closed     bool
	qosCount   int
	qosSize    int
	qosErr     error
	consumeErr error
	declareErr error
	publishErr error
	bindErr    error
	inspectErr error

	consumedQueue string
	consumedTag   string
	consumedAuto  bool
	cancelled     []string
	published     []publishRecord
	exchanges     []exchangeRecord
	queues        []string
	bindings      []Binding
	inspected     amqp.Queue

	deliveries chan amqp.Delivery
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		deliveries: make(chan amqp.Delivery, 16),
	}
}

func (ch *fakeChannel) Qos(prefetchCount, prefetchSize int, global bool) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.qosErr != nil {
		return ch.qosErr
	}
	ch.qosCount = prefetchCount
	ch.qosSize = prefetchSize
	return nil
}

func (ch *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.consumeErr != nil {
		return nil, ch.consumeErr
	}
	ch.consumedQueue = queue
	ch.consumedTag = consumer
	ch.consumedAuto = autoAck
	return ch.deliveries, nil
}

func (ch *fakeChannel) Cancel(consumer string, noWait bool) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.cancelled = append(ch.cancelled, consumer)
	return nil
}

func (ch *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.publishErr != nil {
		return ch.publishErr
	}
	ch.published = append(ch.published, publishRecord{exchange: exchange, routingKey: key, msg: msg})
	return nil
}

func (ch *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.declareErr != nil {
		return ch.declareErr
	}
	ch.exchanges = append(ch.exchanges, exchangeRecord{name: name, kind: kind, durable: durable})
	return nil
}

func (ch *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.declareErr != nil {
		return amqp.Queue{}, ch.declareErr
	}
	ch.queues = append(ch.queues, name)
	return amqp.Queue{Name: name}, nil
}

func (ch *fakeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.bindErr != nil {
		return ch.bindErr
	}
	ch.bindings = append(ch.bindings, Binding{Queue: name, Exchange: exchange, RoutingKey: key})
	return nil
}

func (ch *fakeChannel) QueueInspect(name string) (amqp.Queue, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.inspectErr != nil {
		return amqp.Queue{}, ch.inspectErr
	}
	return ch.inspected, nil
}

func (ch *fakeChannel) IsClosed() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.closed
}

func (ch *fakeChannel) Close() error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.closed = true
	return nil
}

// fakeDialer counts dials and hands out fresh fake connections
type fakeDialer struct {
	mu    sync.Mutex
	err   error
	conns []*fakeConnection
}

func (d *fakeDialer) dial(Settings) (Connection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	conn := &fakeConnection{}
	d.conns = append(d.conns, conn)
	return conn, nil
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

type nackRecord struct {
	tag     uint64
	requeue bool
}

// recordingAcknowledger captures the settle calls the dispatch loop makes
// on a delivery; it is the amqp.Acknowledger behind test deliveries.
type recordingAcknowledger struct {
	mu      sync.Mutex
	ackErrs map[uint64]error
	acks    []uint64
	nacks   []nackRecord
	rejects []uint64
}

func (a *recordingAcknowledger) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acks = append(a.acks, tag)
	return a.ackErrs[tag]
}

func (a *recordingAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacks = append(a.nacks, nackRecord{tag: tag, requeue: requeue})
	return nil
}

func (a *recordingAcknowledger) Reject(tag uint64, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rejects = append(a.rejects, tag)
	return nil
}

func (a *recordingAcknowledger) ackedTags() []uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]uint64(nil), a.acks...)
}

func (a *recordingAcknowledger) nackedTags() []nackRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]nackRecord(nil), a.nacks...)
}
