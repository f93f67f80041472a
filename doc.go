// Package bus6 is a messaging adapter for AMQP 0-9-1 brokers. It manages
// long-lived publish-side and consume-side connections, recycling handles
// that are closed or past their configured lifetime, and dispatches queue
// deliveries to typed handlers with explicit acknowledgment semantics:
// a handler that returns nil acks the delivery, a handler that fails
// nacks it back onto the queue.
//
// Delivery is at-least-once; ordering holds only per channel, as the
// broker provides it. Retry limiting and dead-lettering are left to the
// broker topology.
package bus6
