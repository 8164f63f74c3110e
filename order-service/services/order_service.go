package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jayaprakash-optisol/RabbitMQ-Microservice-Model/order-service/models"
	"github.com/jayaprakash-optisol/RabbitMQ-Microservice-Model/order-service/repository"
)

// ErrNoProducts is returned for a buy request with an empty product list.
var ErrNoProducts = errors.New("at least one product id is required")

// MissingProductsError reports every requested id that did not resolve
// against the catalog. No order is persisted when any id is missing.
type MissingProductsError struct {
	IDs []string
}

func (e *MissingProductsError) Error() string {
	return "products not found: " + strings.Join(e.IDs, ", ")
}

// OrderService computes orders from product id lists.
type OrderService struct {
	products repository.ProductStore
	orders   repository.OrderRepository
	log      *zap.Logger
}

func NewOrderService(products repository.ProductStore, orders repository.OrderRepository, log *zap.Logger) *OrderService {
	return &OrderService{products: products, orders: orders, log: log}
}

// ComputeOrder resolves each id against the catalog, snapshots the products
// in request order (a repeated id is charged each time it appears), sums the
// prices and persists the order. Deterministic for a given catalog state.
func (s *OrderService) ComputeOrder(ctx context.Context, productIDs []string) (*models.Order, error) {
	if len(productIDs) == 0 {
		return nil, ErrNoProducts
	}

	found, err := s.products.FindByIDs(ctx, dedupe(productIDs))
	if err != nil {
		return nil, fmt.Errorf("resolve products: %w", err)
	}

	byID := make(map[string]models.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	var missing []string
	seenMissing := make(map[string]bool)
	items := make([]models.OrderProduct, 0, len(productIDs))
	total := 0.0

	for _, id := range productIDs {
		p, ok := byID[id]
		if !ok {
			if !seenMissing[id] {
				seenMissing[id] = true
				missing = append(missing, id)
			}
			continue
		}
		items = append(items, models.OrderProduct{
			ProductID:   p.ID,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
		})
		total += p.Price
	}

	if len(missing) > 0 {
		return nil, &MissingProductsError{IDs: missing}
	}

	order := &models.Order{
		Products:  items,
		Total:     total,
		CreatedAt: time.Now().UTC(),
	}

	saved, err := s.orders.Save(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}

	s.log.Info("order created",
		zap.String("order_id", saved.ID),
		zap.Int("items", len(saved.Products)),
		zap.Float64("total", saved.Total),
	)
	return saved, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
