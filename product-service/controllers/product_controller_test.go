package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/jayaprakash-optisol/RabbitMQ-Microservice-Model/common/errors"
	"github.com/jayaprakash-optisol/RabbitMQ-Microservice-Model/product-service/cache"
	"github.com/jayaprakash-optisol/RabbitMQ-Microservice-Model/product-service/models"
	"github.com/jayaprakash-optisol/RabbitMQ-Microservice-Model/product-service/repository"
)

type fakeProductRepo struct {
	products map[string]models.Product
	err      error
}

func newFakeProductRepo(products ...models.Product) *fakeProductRepo {
	repo := &fakeProductRepo{products: make(map[string]models.Product)}
	for _, p := range products {
		repo.products[p.ID] = p
	}
	return repo
}

func (f *fakeProductRepo) Insert(ctx context.Context, product *models.Product) error {
	if f.err != nil {
		return f.err
	}
	f.products[product.ID] = *product
	return nil
}

func (f *fakeProductRepo) FindByID(ctx context.Context, id string) (*models.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (f *fakeProductRepo) FindByIDs(ctx context.Context, ids []string) ([]models.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Product
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProductRepo) FindPage(ctx context.Context, page, perPage int) ([]models.Product, int64, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	var out []models.Product
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, int64(len(out)), nil
}

// unreachableCache points at a closed port so every lookup is a miss.
func unreachableCache() *cache.ProductCache {
	return cache.NewProductCache(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}))
}

func setupProductRouter(repo repository.ProductRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(apperrors.ErrorMiddleware())
	pc := NewProductController(repo, unreachableCache(), zap.NewNop())
	r.POST("/products", pc.CreateProduct)
	r.GET("/products/:id", pc.GetProductByID)
	return r
}

func TestGetProductByIDNotFound(t *testing.T) {
	r := setupProductRouter(newFakeProductRepo())

	req := httptest.NewRequest(http.MethodGet, "/products/"+uuid.NewString(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code, w.Body.String())

	var resp struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "Product not found", resp.Message)
}

func TestGetProductByIDReturnsProduct(t *testing.T) {
	id := uuid.NewString()
	r := setupProductRouter(newFakeProductRepo(models.Product{
		ID: id, Name: "Keyboard", Description: "mechanical", Price: 49.99,
	}))

	req := httptest.NewRequest(http.MethodGet, "/products/"+id, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got models.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Keyboard", got.Name)
	assert.Equal(t, 49.99, got.Price)
}

func TestGetProductByIDRejectsMalformedID(t *testing.T) {
	r := setupProductRouter(newFakeProductRepo())

	req := httptest.NewRequest(http.MethodGet, "/products/not-a-uuid", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateProductPersistsProduct(t *testing.T) {
	repo := newFakeProductRepo()
	r := setupProductRouter(repo)

	body, err := json.Marshal(gin.H{"name": "Mouse", "price": 15.0, "description": "wireless"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/products", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Len(t, repo.products, 1)
}

func TestCreateProductValidatesPayload(t *testing.T) {
	r := setupProductRouter(newFakeProductRepo())

	body, err := json.Marshal(gin.H{"name": "Mouse"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/products", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
