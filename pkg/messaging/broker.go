package messaging

import "context"

// Broker is the pub/sub transport for appointment lifecycle events.
// The outbox processor publishes to it; downstream consumers subscribe
// per event type channel.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}
