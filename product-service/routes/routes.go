package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/jayaprakash-optisol/RabbitMQ-Microservice-Model/product-service/controllers"
)

func RegisterProductRoutes(r *gin.Engine, pc *controllers.ProductController, bc *controllers.BuyController) {
	productRoutes := r.Group("/products")
	{
		productRoutes.GET("/", pc.GetProducts)
		productRoutes.GET("/:id", pc.GetProductByID)
		productRoutes.POST("/", pc.CreateProduct)
		productRoutes.POST("/buy", bc.Buy)
	}
}
