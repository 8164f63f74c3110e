package messaging

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Kind discriminates the payload carried by an Envelope.
type Kind string

const (
	KindBuyRequest  Kind = "buy.request"
	KindOrderResult Kind = "order.result"
)

// OrderResult statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ErrMalformedEnvelope is returned when a message cannot be decoded into a
// valid envelope. Consumers must reject (not ack) such deliveries so the
// broker can redeliver or dead-letter them.
var ErrMalformedEnvelope = errors.New("malformed envelope")

// Envelope wraps every message exchanged between the services. The
// correlation id is opaque transport metadata and round-trips unchanged
// through both queue hops.
type Envelope struct {
	CorrelationID string          `json:"correlation_id"`
	Kind          Kind            `json:"kind"`
	Timestamp     time.Time       `json:"timestamp"`
	Body          json.RawMessage `json:"body"`
}

// BuyRequest asks the order service to place an order for the given products.
type BuyRequest struct {
	ProductIDs []string `json:"product_ids"`
}

// ProductSnapshot is a product as priced at order-computation time.
type ProductSnapshot struct {
	ProductID   string  `json:"product_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

// OrderSnapshot is the computed order carried back on the reply queue.
type OrderSnapshot struct {
	ID        string            `json:"id"`
	Products  []ProductSnapshot `json:"products"`
	Total     float64           `json:"total"`
	CreatedAt time.Time         `json:"created_at"`
}

// OrderResult reports the outcome of one BuyRequest. Failed results carry
// the ids that did not resolve so the caller can report them.
type OrderResult struct {
	Status     string         `json:"status"`
	Order      *OrderSnapshot `json:"order,omitempty"`
	MissingIDs []string       `json:"missing_ids,omitempty"`
	Reason     string         `json:"reason,omitempty"`
}

// Encode builds the wire representation of an envelope.
func Encode(correlationID string, kind Kind, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", kind, err)
	}

	env := Envelope{
		CorrelationID: correlationID,
		Kind:          kind,
		Timestamp:     time.Now().UTC(),
		Body:          body,
	}

	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return data, nil
}

// Decode parses an envelope off the wire. Any structural problem maps to
// ErrMalformedEnvelope.
func Decode(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if env.CorrelationID == "" {
		return nil, fmt.Errorf("%w: missing correlation id", ErrMalformedEnvelope)
	}
	switch env.Kind {
	case KindBuyRequest, KindOrderResult:
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrMalformedEnvelope, env.Kind)
	}
	return &env, nil
}

// DecodeBuyRequest parses the payload of a buy.request envelope.
func (e *Envelope) DecodeBuyRequest() (*BuyRequest, error) {
	if e.Kind != KindBuyRequest {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrMalformedEnvelope, KindBuyRequest, e.Kind)
	}
	var req BuyRequest
	if err := json.Unmarshal(e.Body, &req); err != nil {
		return nil, fmt.Errorf("%w: buy request payload: %v", ErrMalformedEnvelope, err)
	}
	return &req, nil
}

// DecodeOrderResult parses the payload of an order.result envelope.
func (e *Envelope) DecodeOrderResult() (*OrderResult, error) {
	if e.Kind != KindOrderResult {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrMalformedEnvelope, KindOrderResult, e.Kind)
	}
	var res OrderResult
	if err := json.Unmarshal(e.Body, &res); err != nil {
		return nil, fmt.Errorf("%w: order result payload: %v", ErrMalformedEnvelope, err)
	}
	return &res, nil
}
