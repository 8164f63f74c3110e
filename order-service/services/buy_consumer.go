package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/jayaprakash-optisol/RabbitMQ-Microservice-Model/messaging"
	"github.com/jayaprakash-optisol/RabbitMQ-Microservice-Model/order-service/models"
)

// BuyConsumer consumes buy requests, runs the order computation and publishes
// the result back on the reply queue with the inbound correlation id.
type BuyConsumer struct {
	service      *OrderService
	broker       messaging.Broker
	requestQueue string
	replyQueue   string
	group        string
	log          *zap.Logger
}

func NewBuyConsumer(service *OrderService, broker messaging.Broker, requestQueue, replyQueue, group string, log *zap.Logger) *BuyConsumer {
	return &BuyConsumer{
		service:      service,
		broker:       broker,
		requestQueue: requestQueue,
		replyQueue:   replyQueue,
		group:        group,
		log:          log,
	}
}

// Start runs the dispatch loop until the context is cancelled.
func (c *BuyConsumer) Start(ctx context.Context) error {
	c.log.Info("buy-request consumer listening",
		zap.String("queue", c.requestQueue),
		zap.String("reply_queue", c.replyQueue),
	)
	return c.broker.Consume(ctx, c.requestQueue, c.group, c.Handle)
}

// Handle processes one delivery. Ack discipline:
//   - malformed envelope: reject, no ack (redelivery/dead-letter)
//   - missing products: publish failed result, ack (unresolvable forever)
//   - storage or lookup failure: neither publish nor ack (safe retry)
//   - success: persist, publish result, then ack
func (c *BuyConsumer) Handle(ctx context.Context, d messaging.Delivery) {
	env, err := messaging.Decode(d.Body)
	if err != nil {
		c.log.Warn("rejecting malformed buy request", zap.Error(err))
		_ = d.Reject()
		return
	}

	req, err := env.DecodeBuyRequest()
	if err != nil {
		c.log.Warn("rejecting buy request with bad payload",
			zap.String("correlation_id", env.CorrelationID),
			zap.Error(err),
		)
		_ = d.Reject()
		return
	}

	order, err := c.service.ComputeOrder(ctx, req.ProductIDs)

	var result messaging.OrderResult
	switch {
	case err == nil:
		result = messaging.OrderResult{
			Status: messaging.StatusCompleted,
			Order:  toSnapshot(order),
		}
	case errors.Is(err, ErrNoProducts):
		result = messaging.OrderResult{
			Status: messaging.StatusFailed,
			Reason: err.Error(),
		}
	default:
		var missing *MissingProductsError
		if errors.As(err, &missing) {
			result = messaging.OrderResult{
				Status:     messaging.StatusFailed,
				MissingIDs: missing.IDs,
				Reason:     missing.Error(),
			}
			break
		}
		// infrastructure failure: leave unacked so the broker redelivers
		c.log.Error("order computation failed, leaving message for redelivery",
			zap.String("correlation_id", env.CorrelationID),
			zap.Error(err),
		)
		return
	}

	body, err := messaging.Encode(env.CorrelationID, messaging.KindOrderResult, result)
	if err != nil {
		c.log.Error("failed to encode order result",
			zap.String("correlation_id", env.CorrelationID),
			zap.Error(err),
		)
		return
	}

	if err := c.broker.Publish(ctx, c.replyQueue, body); err != nil {
		c.log.Error("failed to publish order result, leaving message for redelivery",
			zap.String("correlation_id", env.CorrelationID),
			zap.Error(err),
		)
		return
	}

	if err := d.Ack(); err != nil {
		c.log.Warn("failed to ack buy request", zap.String("correlation_id", env.CorrelationID), zap.Error(err))
		return
	}

	c.log.Info("buy request processed",
		zap.String("correlation_id", env.CorrelationID),
		zap.String("status", result.Status),
	)
}

func toSnapshot(order *models.Order) *messaging.OrderSnapshot {
	products := make([]messaging.ProductSnapshot, 0, len(order.Products))
	for _, p := range order.Products {
		products = append(products, messaging.ProductSnapshot{
			ProductID:   p.ProductID,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
		})
	}
	return &messaging.OrderSnapshot{
		ID:        order.ID,
		Products:  products,
		Total:     order.Total,
		CreatedAt: order.CreatedAt,
	}
}
