package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/jayaprakash-optisol/RabbitMQ-Microservice-Model/common/errors"
	"github.com/jayaprakash-optisol/RabbitMQ-Microservice-Model/product-service/cache"
	"github.com/jayaprakash-optisol/RabbitMQ-Microservice-Model/product-service/models"
	"github.com/jayaprakash-optisol/RabbitMQ-Microservice-Model/product-service/repository"
)

var validate = validator.New()

// CreateProductRequest is the payload for POST /products.
type CreateProductRequest struct {
	Name        string   `json:"name" validate:"required"`
	Price       *float64 `json:"price" validate:"required,gte=0"`
	Description string   `json:"description" validate:"required"`
}

type ProductController struct {
	repo  repository.ProductRepository
	cache *cache.ProductCache
	log   *zap.Logger
}

func NewProductController(repo repository.ProductRepository, productCache *cache.ProductCache, log *zap.Logger) *ProductController {
	return &ProductController{repo: repo, cache: productCache, log: log}
}

// CreateProduct creates a new product.
func (pc *ProductController) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Please provide name, price and description"})
		return
	}
	if err := validate.Struct(&req); err != nil {
		pc.log.Warn("Product validation failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"message": "Please provide name, price and description"})
		return
	}

	product := &models.Product{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Price:       *req.Price,
	}

	if err := pc.repo.Insert(c.Request.Context(), product); err != nil {
		pc.log.Error("Error while creating product", zap.Error(err))
		c.Error(apperrors.New(http.StatusInternalServerError, "Error while creating product", err))
		return
	}

	pc.cache.SetAsync(product.ID, product)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Product created successfully",
		"product": product,
	})
}

// GetProducts retrieves paginated products.
func (pc *ProductController) GetProducts(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err := strconv.Atoi(c.DefaultQuery("perPage", "10"))
	if err != nil || perPage <= 0 {
		perPage = 10
	}

	products, total, err := pc.repo.FindPage(c.Request.Context(), page, perPage)
	if err != nil {
		pc.log.Error("Error finding products", zap.Error(err))
		c.Error(apperrors.ErrDatabaseQuery)
		return
	}

	totalPages := (total + int64(perPage) - 1) / int64(perPage)

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"meta": gin.H{
			"page":       page,
			"perPage":    perPage,
			"total":      total,
			"totalPages": totalPages,
		},
	})
}

// GetProductByID retrieves a single product, read-through cached.
func (pc *ProductController) GetProductByID(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		pc.log.Warn("Invalid UUID format", zap.String("id", id))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid UUID format"})
		return
	}

	if product, ok := pc.cache.Get(c.Request.Context(), id); ok {
		c.JSON(http.StatusOK, product)
		return
	}

	product, err := pc.repo.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.Error(apperrors.ErrProductNotFound)
		} else {
			pc.log.Error("Database error", zap.Error(err))
			c.Error(apperrors.ErrDatabaseQuery)
		}
		return
	}

	pc.cache.SetAsync(id, product)
	c.JSON(http.StatusOK, product)
}
