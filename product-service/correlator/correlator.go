// Package correlator bridges the asynchronous order-reply stream back to the
// HTTP request that caused it. Every buy request gets a fresh correlation id
// and a pending entry; the single reply-queue consumer resolves entries by
// id, never by arrival order.
package correlator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jayaprakash-optisol/RabbitMQ-Microservice-Model/messaging"
)

// ErrRequestTimedOut is returned by Await when no reply arrives within the
// configured window. A reply arriving afterwards is discarded as unknown.
var ErrRequestTimedOut = errors.New("timed out waiting for order reply")

// Publisher is the slice of the broker the correlator needs.
type Publisher interface {
	Publish(ctx context.Context, queue string, body []byte) error
}

type pendingEntry struct {
	resolved bool
	done     chan *messaging.OrderResult // buffered cap 1 so resolvers never block
}

// Correlator tracks in-flight buy requests keyed by correlation id. The
// mutex guards the map only; it is never held while a caller waits.
type Correlator struct {
	publisher    Publisher
	requestQueue string
	timeout      time.Duration
	log          *zap.Logger

	mu      sync.Mutex
	pending map[string]*pendingEntry
}

// PendingRequest is the caller's handle on one in-flight buy request.
type PendingRequest struct {
	CorrelationID string

	c    *Correlator
	done <-chan *messaging.OrderResult
}

func New(publisher Publisher, requestQueue string, timeout time.Duration, log *zap.Logger) *Correlator {
	return &Correlator{
		publisher:    publisher,
		requestQueue: requestQueue,
		timeout:      timeout,
		log:          log,
		pending:      make(map[string]*pendingEntry),
	}
}

// Begin registers a pending entry and publishes the buy request. The entry
// is inserted before publishing so a fast reply can never miss it; a failed
// publish withdraws it again.
func (c *Correlator) Begin(ctx context.Context, productIDs []string) (*PendingRequest, error) {
	correlationID := uuid.NewString()
	entry := &pendingEntry{done: make(chan *messaging.OrderResult, 1)}

	c.mu.Lock()
	c.pending[correlationID] = entry
	c.mu.Unlock()

	body, err := messaging.Encode(correlationID, messaging.KindBuyRequest, messaging.BuyRequest{ProductIDs: productIDs})
	if err != nil {
		c.remove(correlationID)
		return nil, err
	}

	if err := c.publisher.Publish(ctx, c.requestQueue, body); err != nil {
		c.remove(correlationID)
		return nil, fmt.Errorf("publish buy request: %w", err)
	}

	c.log.Info("buy request published",
		zap.String("correlation_id", correlationID),
		zap.Int("product_count", len(productIDs)),
	)

	return &PendingRequest{CorrelationID: correlationID, c: c, done: entry.done}, nil
}

// HandleReply is the reply-queue handler. It is registered exactly once per
// process; replies for unknown or already-resolved correlation ids are acked
// and dropped (duplicate delivery is not a failure), malformed envelopes are
// rejected for redelivery or dead-lettering.
func (c *Correlator) HandleReply(ctx context.Context, d messaging.Delivery) {
	env, err := messaging.Decode(d.Body)
	if err != nil {
		c.log.Warn("rejecting malformed reply", zap.Error(err))
		_ = d.Reject()
		return
	}

	result, err := env.DecodeOrderResult()
	if err != nil {
		c.log.Warn("rejecting reply with bad payload",
			zap.String("correlation_id", env.CorrelationID),
			zap.Error(err),
		)
		_ = d.Reject()
		return
	}

	c.mu.Lock()
	entry, ok := c.pending[env.CorrelationID]
	if ok && !entry.resolved {
		entry.resolved = true
		delete(c.pending, env.CorrelationID)
		entry.done <- result
	} else {
		ok = false
	}
	c.mu.Unlock()

	if ok {
		c.log.Info("order reply matched",
			zap.String("correlation_id", env.CorrelationID),
			zap.String("status", result.Status),
		)
	} else {
		c.log.Debug("discarding reply for unknown or resolved correlation id",
			zap.String("correlation_id", env.CorrelationID),
		)
	}

	if err := d.Ack(); err != nil {
		c.log.Warn("failed to ack reply", zap.String("correlation_id", env.CorrelationID), zap.Error(err))
	}
}

// Await blocks until the reply consumer resolves this request, the configured
// timeout elapses, or the context is cancelled. Each handle yields exactly
// one resolution.
func (p *PendingRequest) Await(ctx context.Context) (*messaging.OrderResult, error) {
	timer := time.NewTimer(p.c.timeout)
	defer timer.Stop()

	select {
	case result := <-p.done:
		return result, nil
	case <-ctx.Done():
	case <-timer.C:
	}

	// Timed out or cancelled. Withdraw the entry so a late reply is dropped;
	// if the resolver won the race the result is already buffered.
	p.c.mu.Lock()
	entry, ok := p.c.pending[p.CorrelationID]
	if ok && !entry.resolved {
		entry.resolved = true
		delete(p.c.pending, p.CorrelationID)
	}
	p.c.mu.Unlock()

	if !ok {
		select {
		case result := <-p.done:
			return result, nil
		default:
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.c.log.Warn("buy request timed out", zap.String("correlation_id", p.CorrelationID))
	return nil, ErrRequestTimedOut
}

// Pending reports how many requests are currently in flight.
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Correlator) remove(correlationID string) {
	c.mu.Lock()
	delete(c.pending, correlationID)
	c.mu.Unlock()
}
