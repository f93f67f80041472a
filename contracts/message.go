package contracts

import (
	"time"
)

// Message is the base interface for everything that travels over the bus.
// The declared type name returned by GetType drives serialization and the
// default exchange/routing-key convention.
type Message interface {
	GetID() string
	GetTimestamp() time.Time
	GetType() string
	GetCorrelationID() string
	SetCorrelationID(correlationID string)
}
