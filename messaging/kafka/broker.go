package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/jayaprakash-optisol/RabbitMQ-Microservice-Model/messaging"
)

const redeliveryBackoff = time.Second

// Broker implements messaging.Broker on top of Kafka. Queues map to topics;
// consumer groups give each service its own cursor. Ack commits the offset;
// a delivery that is rejected or left unacked is re-dispatched to the
// handler after a backoff, so the group offset never moves past a message
// that has not been processed.
type Broker struct {
	addrs   []string
	writer  *kafka.Writer
	backoff time.Duration
	log     *zap.Logger
}

func NewBroker(addrs []string, log *zap.Logger) *Broker {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(addrs...),
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	log.Info("kafka broker client initialized", zap.Strings("brokers", addrs))
	return &Broker{addrs: addrs, writer: w, backoff: redeliveryBackoff, log: log}
}

// DeclareQueue creates the topic if it does not exist yet. Idempotent.
func (b *Broker) DeclareQueue(ctx context.Context, name string) error {
	conn, err := kafka.DialContext(ctx, "tcp", b.addrs[0])
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("resolve controller: %w", err)
	}

	ctrlConn, err := kafka.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("dial controller: %w", err)
	}
	defer ctrlConn.Close()

	err = ctrlConn.CreateTopics(kafka.TopicConfig{
		Topic:             name,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", name, err)
	}

	b.log.Info("queue declared", zap.String("queue", name))
	return nil
}

func (b *Broker) Publish(ctx context.Context, queue string, body []byte) error {
	err := b.writer.WriteMessages(ctx, kafka.Message{
		Topic: queue,
		Value: body,
	})
	if err != nil {
		b.log.Error("failed to publish message", zap.String("queue", queue), zap.Error(err))
		return fmt.Errorf("publish to %s: %w", queue, err)
	}
	return nil
}

// Consume runs the dispatch loop for one queue. It returns only when the
// context is cancelled; handler errors never stop the loop.
func (b *Broker) Consume(ctx context.Context, queue, group string, handler messaging.HandlerFunc) error {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  b.addrs,
		Topic:    queue,
		GroupID:  group,
		MinBytes: 1e3,
		MaxBytes: 10e6,
	})
	defer r.Close()

	b.log.Info("consumer started", zap.String("queue", queue), zap.String("group", group))

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				b.log.Info("consumer stopping", zap.String("queue", queue))
				return nil
			}
			b.log.Error("fetch failed", zap.String("queue", queue), zap.Error(err))
			continue
		}

		msg := m
		b.deliverUntilAcked(ctx, handler, msg.Value, func() error {
			return r.CommitMessages(ctx, msg)
		})
	}
}

// deliverUntilAcked dispatches one message until the handler acks it and the
// offset commit succeeds. Fetching the next message only after the current
// one is committed keeps at-least-once honest: a handler that withholds the
// ack (storage failure, reply-publish failure) sees the same delivery again
// after a backoff instead of losing it behind a later commit.
func (b *Broker) deliverUntilAcked(ctx context.Context, handler messaging.HandlerFunc, body []byte, commit func() error) {
	for attempt := 1; ; attempt++ {
		acked := false
		handler(ctx, messaging.Delivery{
			Body: body,
			Ack: func() error {
				if err := commit(); err != nil {
					return err
				}
				acked = true
				return nil
			},
			Reject: func() error {
				// no commit: the message is re-dispatched below
				return nil
			},
		})
		if acked {
			return
		}

		b.log.Warn("message unacked, redelivering",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", b.backoff),
		)
		select {
		case <-ctx.Done():
			return
		case <-time.After(b.backoff):
		}
	}
}

func (b *Broker) Close() error {
	return b.writer.Close()
}
