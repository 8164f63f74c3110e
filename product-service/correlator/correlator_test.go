package correlator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jayaprakash-optisol/RabbitMQ-Microservice-Model/messaging"
)

// fakePublisher records published envelopes and can be told to fail.
type fakePublisher struct {
	mu        sync.Mutex
	published [][]byte
	err       error
}

func (p *fakePublisher) Publish(ctx context.Context, queue string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, append([]byte(nil), body...))
	return nil
}

func (p *fakePublisher) last(t *testing.T) *messaging.Envelope {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(t, p.published)
	env, err := messaging.Decode(p.published[len(p.published)-1])
	require.NoError(t, err)
	return env
}

type deliveryProbe struct {
	acked    bool
	rejected bool
}

func (dp *deliveryProbe) delivery(body []byte) messaging.Delivery {
	return messaging.Delivery{
		Body:   body,
		Ack:    func() error { dp.acked = true; return nil },
		Reject: func() error { dp.rejected = true; return nil },
	}
}

func replyBody(t *testing.T, correlationID string, result messaging.OrderResult) []byte {
	t.Helper()
	body, err := messaging.Encode(correlationID, messaging.KindOrderResult, result)
	require.NoError(t, err)
	return body
}

func completedResult(total float64) messaging.OrderResult {
	return messaging.OrderResult{
		Status: messaging.StatusCompleted,
		Order:  &messaging.OrderSnapshot{ID: "order-1", Total: total},
	}
}

func TestBeginPublishesBuyRequest(t *testing.T) {
	pub := &fakePublisher{}
	c := New(pub, "order-service-queue", time.Second, zap.NewNop())

	pending, err := c.Begin(context.Background(), []string{"p1", "p2"})
	require.NoError(t, err)

	env := pub.last(t)
	assert.Equal(t, pending.CorrelationID, env.CorrelationID)
	assert.Equal(t, messaging.KindBuyRequest, env.Kind)

	req, err := env.DecodeBuyRequest()
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, req.ProductIDs)
	assert.Equal(t, 1, c.Pending())
}

func TestBeginPublishFailureLeavesNoEntry(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	c := New(pub, "order-service-queue", time.Second, zap.NewNop())

	_, err := c.Begin(context.Background(), []string{"p1"})
	require.Error(t, err)
	assert.Equal(t, 0, c.Pending())
}

func TestReplyResolvesAwait(t *testing.T) {
	pub := &fakePublisher{}
	c := New(pub, "order-service-queue", time.Second, zap.NewNop())

	pending, err := c.Begin(context.Background(), []string{"p1"})
	require.NoError(t, err)

	probe := &deliveryProbe{}
	c.HandleReply(context.Background(), probe.delivery(replyBody(t, pending.CorrelationID, completedResult(25))))

	result, err := pending.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, messaging.StatusCompleted, result.Status)
	assert.Equal(t, 25.0, result.Order.Total)
	assert.True(t, probe.acked)
	assert.False(t, probe.rejected)
	assert.Equal(t, 0, c.Pending())
}

func TestDuplicateReplyResolvesExactlyOnce(t *testing.T) {
	pub := &fakePublisher{}
	c := New(pub, "order-service-queue", time.Second, zap.NewNop())

	pending, err := c.Begin(context.Background(), []string{"p1"})
	require.NoError(t, err)

	body := replyBody(t, pending.CorrelationID, completedResult(10))

	first := &deliveryProbe{}
	second := &deliveryProbe{}
	c.HandleReply(context.Background(), first.delivery(body))
	c.HandleReply(context.Background(), second.delivery(body))

	// both deliveries are acked; the duplicate is dropped without error
	assert.True(t, first.acked)
	assert.True(t, second.acked)

	result, err := pending.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10.0, result.Order.Total)
	assert.Equal(t, 0, c.Pending())
}

func TestUnknownCorrelationIDIsAckedAndDropped(t *testing.T) {
	pub := &fakePublisher{}
	c := New(pub, "order-service-queue", time.Second, zap.NewNop())

	pending, err := c.Begin(context.Background(), []string{"p1"})
	require.NoError(t, err)

	probe := &deliveryProbe{}
	c.HandleReply(context.Background(), probe.delivery(replyBody(t, "no-such-id", completedResult(99))))

	assert.True(t, probe.acked)
	assert.False(t, probe.rejected)
	// the real pending entry is untouched
	assert.Equal(t, 1, c.Pending())
	_ = pending
}

func TestMalformedReplyIsRejected(t *testing.T) {
	pub := &fakePublisher{}
	c := New(pub, "order-service-queue", time.Second, zap.NewNop())

	probe := &deliveryProbe{}
	c.HandleReply(context.Background(), probe.delivery([]byte("not json")))

	assert.True(t, probe.rejected)
	assert.False(t, probe.acked)
}

func TestUnknownKindReplyIsRejected(t *testing.T) {
	pub := &fakePublisher{}
	c := New(pub, "order-service-queue", time.Second, zap.NewNop())

	// well-formed envelope of the wrong kind
	body, err := messaging.Encode("some-id", messaging.KindBuyRequest, messaging.BuyRequest{ProductIDs: []string{"p1"}})
	require.NoError(t, err)

	probe := &deliveryProbe{}
	c.HandleReply(context.Background(), probe.delivery(body))

	assert.True(t, probe.rejected)
	assert.False(t, probe.acked)
}

func TestAwaitTimesOutAndLateReplyIsDropped(t *testing.T) {
	pub := &fakePublisher{}
	c := New(pub, "order-service-queue", 20*time.Millisecond, zap.NewNop())

	pending, err := c.Begin(context.Background(), []string{"p1"})
	require.NoError(t, err)

	_, err = pending.Await(context.Background())
	require.ErrorIs(t, err, ErrRequestTimedOut)
	assert.Equal(t, 0, c.Pending())

	// a reply arriving after the timeout is a harmless duplicate
	probe := &deliveryProbe{}
	c.HandleReply(context.Background(), probe.delivery(replyBody(t, pending.CorrelationID, completedResult(50))))
	assert.True(t, probe.acked)
	assert.Equal(t, 0, c.Pending())
}

func TestAwaitHonoursContextCancellation(t *testing.T) {
	pub := &fakePublisher{}
	c := New(pub, "order-service-queue", time.Minute, zap.NewNop())

	pending, err := c.Begin(context.Background(), []string{"p1"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err = pending.Await(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, c.Pending())
}

func TestConcurrentRequestsMatchedByCorrelationID(t *testing.T) {
	const n = 16

	pub := &fakePublisher{}
	c := New(pub, "order-service-queue", 2*time.Second, zap.NewNop())

	pendings := make([]*PendingRequest, n)
	for i := 0; i < n; i++ {
		p, err := c.Begin(context.Background(), []string{fmt.Sprintf("p%d", i)})
		require.NoError(t, err)
		pendings[i] = p
	}
	require.Equal(t, n, c.Pending())

	// distinct correlation ids
	seen := make(map[string]bool)
	for _, p := range pendings {
		assert.False(t, seen[p.CorrelationID])
		seen[p.CorrelationID] = true
	}

	var wg sync.WaitGroup
	results := make([]float64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := pendings[i].Await(context.Background())
			if assert.NoError(t, err) {
				results[i] = result.Order.Total
			}
		}(i)
	}

	// deliver replies in reverse order: matching is by id, not arrival order
	for i := n - 1; i >= 0; i-- {
		probe := &deliveryProbe{}
		c.HandleReply(context.Background(), probe.delivery(
			replyBody(t, pendings[i].CorrelationID, completedResult(float64(i))),
		))
	}

	wg.Wait()
	for i := 0; i < n; i++ {
		assert.Equal(t, float64(i), results[i], "caller %d got someone else's order", i)
	}
	assert.Equal(t, 0, c.Pending())
}
