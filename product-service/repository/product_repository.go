package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jayaprakash-optisol/RabbitMQ-Microservice-Model/product-service/models"
)

var ErrNotFound = errors.New("product not found")

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Insert(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id string) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Product, error)
	FindPage(ctx context.Context, page, perPage int) ([]models.Product, int64, error)
}

// MongoProductRepository implements ProductRepository using MongoDB
type MongoProductRepository struct {
	col *mongo.Collection
}

func NewMongoProductRepository(db *mongo.Database) *MongoProductRepository {
	return &MongoProductRepository{col: db.Collection("products")}
}

func (r *MongoProductRepository) Insert(ctx context.Context, product *models.Product) error {
	if _, err := r.col.InsertOne(ctx, product); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *MongoProductRepository) FindByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find product %s: %w", id, err)
	}
	return &product, nil
}

// FindByIDs returns the products matching the given ids. Unknown ids are
// silently absent from the result; callers compare against the request set.
func (r *MongoProductRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Product, error) {
	cursor, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
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

func (r *MongoProductRepository) FindPage(ctx context.Context, page, perPage int) ([]models.Product, int64, error) {
	skip := (page - 1) * perPage

	findOptions := options.Find()
	findOptions.SetLimit(int64(perPage))
	findOptions.SetSkip(int64(skip))

	cursor, err := r.col.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, 0, fmt.Errorf("find products: %w", err)
	}
	defer cursor.Close(ctx)

	var products []models.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, 0, fmt.Errorf("decode products: %w", err)
	}

	total, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	return products, total, nil
}
