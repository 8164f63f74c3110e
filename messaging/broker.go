package messaging

import "context"

// Delivery is one message handed to a consumer. Exactly one of Ack or Reject
// should be called; an unacked message is redelivered by the broker
// (at-least-once), so handlers must tolerate duplicates.
type Delivery struct {
	Body   []byte
	Ack    func() error
	Reject func() error
}

// HandlerFunc processes a single delivery.
type HandlerFunc func(ctx context.Context, d Delivery)

// Broker is the client-side contract against the message broker. Consume
// blocks until the context is cancelled; it is registered once per queue for
// the process lifetime.
type Broker interface {
	DeclareQueue(ctx context.Context, name string) error
	Publish(ctx context.Context, queue string, body []byte) error
	Consume(ctx context.Context, queue, group string, handler HandlerFunc) error
	Close() error
}
