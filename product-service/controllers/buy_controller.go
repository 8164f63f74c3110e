package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/jayaprakash-optisol/RabbitMQ-Microservice-Model/common/errors"
	"github.com/jayaprakash-optisol/RabbitMQ-Microservice-Model/messaging"
	"github.com/jayaprakash-optisol/RabbitMQ-Microservice-Model/product-service/correlator"
	"github.com/jayaprakash-optisol/RabbitMQ-Microservice-Model/product-service/repository"
)

// BuyRequest is the payload for POST /products/buy.
type BuyRequest struct {
	ProductIDs []string `json:"productIds" binding:"required,min=1"`
}

type BuyController struct {
	repo       repository.ProductRepository
	correlator *correlator.Correlator
	log        *zap.Logger
}

func NewBuyController(repo repository.ProductRepository, corr *correlator.Correlator, log *zap.Logger) *BuyController {
	return &BuyController{repo: repo, correlator: corr, log: log}
}

// Buy places an order for the given products. Ids are resolved against the
// catalog first so requests naming unknown products fail without a broker
// round trip; the order service re-checks at computation time, so a product
// deleted in between still surfaces as a failed result. The handler then
// publishes a buy request and blocks on the correlator until the order
// service replies or the timeout elapses.
func (bc *BuyController) Buy(c *gin.Context) {
	var req BuyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "productIds is required and must not be empty"})
		return
	}

	missing, err := bc.missingProducts(c, req.ProductIDs)
	if err != nil {
		bc.log.Error("Failed to resolve products", zap.Error(err))
		c.Error(apperrors.ErrDatabaseQuery)
		return
	}
	if len(missing) > 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"error":      "Products not found",
			"missingIds": missing,
		})
		return
	}

	pending, err := bc.correlator.Begin(c.Request.Context(), req.ProductIDs)
	if err != nil {
		bc.log.Error("Failed to publish buy request", zap.Error(err))
		c.Error(apperrors.ErrBrokerUnavailable)
		return
	}

	result, err := pending.Await(c.Request.Context())
	if err != nil {
		if errors.Is(err, correlator.ErrRequestTimedOut) {
			c.Error(apperrors.ErrGatewayTimeout)
			return
		}
		bc.log.Warn("Buy request aborted", zap.String("correlation_id", pending.CorrelationID), zap.Error(err))
		c.Error(apperrors.ErrOrderNotPlaced)
		return
	}

	if result.Status == messaging.StatusFailed {
		if len(result.MissingIDs) > 0 {
			c.JSON(http.StatusNotFound, gin.H{
				"error":      "Products not found",
				"missingIds": result.MissingIDs,
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": result.Reason})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order placed successfully",
		"order":   result.Order,
	})
}

// missingProducts returns the deduplicated request ids absent from the catalog.
func (bc *BuyController) missingProducts(c *gin.Context, ids []string) ([]string, error) {
	products, err := bc.repo.FindByIDs(c.Request.Context(), ids)
	if err != nil {
		return nil, err
	}

	found := make(map[string]struct{}, len(products))
	for _, p := range products {
		found[p.ID] = struct{}{}
	}

	seen := make(map[string]struct{}, len(ids))
	var missing []string
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}
