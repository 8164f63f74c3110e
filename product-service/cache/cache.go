package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/jayaprakash-optisol/RabbitMQ-Microservice-Model/product-service/models"
)

const ProductCachePrefix = "product:detail:"

const DefaultTTL = 10 * time.Minute

// ProductCache is a read-through Redis cache for single-product lookups.
type ProductCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewProductCache(client *redis.Client) *ProductCache {
	return &ProductCache{
		redis: client,
		ttl:   DefaultTTL,
	}
}

// Get returns the cached product, if any. Cache misses and decode failures
// both report a miss; the caller falls back to the repository.
func (pc *ProductCache) Get(ctx context.Context, productID string) (*models.Product, bool) {
	data, err := pc.redis.Get(ctx, ProductCachePrefix+productID).Result()
	if err != nil {
		return nil, false
	}

	var product models.Product
	if err := json.Unmarshal([]byte(data), &product); err != nil {
		zap.L().Warn("Failed to unmarshal cached product", zap.Error(err), zap.String("product_id", productID))
		return nil, false
	}
	return &product, true
}

// SetAsync caches a product without blocking the request path.
func (pc *ProductCache) SetAsync(productID string, product *models.Product) {
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		data, err := json.Marshal(product)
		if err != nil {
			zap.L().Warn("Failed to marshal product for cache", zap.Error(err), zap.String("product_id", productID))
			return
		}

		if err := pc.redis.Set(bgCtx, ProductCachePrefix+productID, data, pc.ttl).Err(); err != nil {
			zap.L().Warn("Failed to cache product", zap.Error(err), zap.String("product_id", productID))
		}
	}()
}
