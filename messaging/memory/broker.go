// Package memory provides an in-process messaging.Broker used by tests.
// Reject requeues the message, which models at-least-once redelivery.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/jayaprakash-optisol/RabbitMQ-Microservice-Model/messaging"
)

const queueBuffer = 128

type Broker struct {
	mu     sync.Mutex
	queues map[string]chan []byte
	closed bool
}

func New() *Broker {
	return &Broker{
		queues: make(map[string]chan []byte),
	}
}

func (b *Broker) queue(name string) chan []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.queues[name]
	if !ok {
		ch = make(chan []byte, queueBuffer)
		b.queues[name] = ch
	}
	return ch
}

func (b *Broker) DeclareQueue(ctx context.Context, name string) error {
	b.queue(name)
	return nil
}

func (b *Broker) Publish(ctx context.Context, queue string, body []byte) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return fmt.Errorf("broker closed")
	}

	select {
	case b.queue(queue) <- body:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume dispatches messages to the handler until the context is cancelled.
// The group argument is ignored; tests run a single consumer per queue.
func (b *Broker) Consume(ctx context.Context, queue, group string, handler messaging.HandlerFunc) error {
	ch := b.queue(queue)
	for {
		select {
		case <-ctx.Done():
			return nil
		case body := <-ch:
			msg := body
			handler(ctx, messaging.Delivery{
				Body: msg,
				Ack: func() error {
					return nil
				},
				Reject: func() error {
					// redeliver
					select {
					case ch <- msg:
						return nil
					default:
						return fmt.Errorf("queue %s full, message dropped", queue)
					}
				},
			})
		}
	}
}

func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
