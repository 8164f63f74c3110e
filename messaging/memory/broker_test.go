package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jayaprakash-optisol/RabbitMQ-Microservice-Model/messaging"
)

func TestPublishConsume(t *testing.T) {
	b := New()
	require.NoError(t, b.DeclareQueue(context.Background(), "q1"))
	require.NoError(t, b.Publish(context.Background(), "q1", []byte("hello")))

	ctx, cancel := context.WithCancel(context.Background())
	var mu sync.Mutex
	var got [][]byte

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = b.Consume(ctx, "q1", "g1", func(ctx context.Context, d messaging.Delivery) {
			mu.Lock()
			got = append(got, d.Body)
			mu.Unlock()
			_ = d.Ack()
			cancel()
		})
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not receive the message")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, []byte("hello"), got[0])
}

func TestRejectRedelivers(t *testing.T) {
	b := New()
	require.NoError(t, b.Publish(context.Background(), "q1", []byte("retry-me")))

	ctx, cancel := context.WithCancel(context.Background())
	deliveries := 0

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = b.Consume(ctx, "q1", "g1", func(ctx context.Context, d messaging.Delivery) {
			deliveries++
			if deliveries == 1 {
				_ = d.Reject()
				return
			}
			_ = d.Ack()
			cancel()
		})
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("rejected message was not redelivered")
	}

	assert.Equal(t, 2, deliveries)
}

func TestPublishAfterClose(t *testing.T) {
	b := New()
	require.NoError(t, b.Close())
	require.Error(t, b.Publish(context.Background(), "q1", []byte("x")))
}
