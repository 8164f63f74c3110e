package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jayaprakash-optisol/RabbitMQ-Microservice-Model/order-service/models"
)

// OrderRepository persists computed orders. Save must report failure
// distinctly from success; the consumer withholds the ack on failure.
type OrderRepository interface {
	Save(ctx context.Context, order *models.Order) (*models.Order, error)
}

// ProductStore is the order service's read-only access to the catalog.
type ProductStore interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Product, error)
}

// MongoOrderRepository implements OrderRepository using MongoDB
type MongoOrderRepository struct {
	col *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{col: db.Collection("orders")}
}

func (r *MongoOrderRepository) Save(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if _, err := r.col.InsertOne(ctx, order); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	return order, nil
}

// MongoProductStore reads the products collection the product service owns.
type MongoProductStore struct {
	col *mongo.Collection
}

func NewMongoProductStore(db *mongo.Database) *MongoProductStore {
	return &MongoProductStore{col: db.Collection("products")}
}

func (s *MongoProductStore) FindByIDs(ctx context.Context, ids []string) ([]models.Product, error) {
	cursor, err := s.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	defer cursor.Close(ctx)

	var products []models.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return products, nil
}
