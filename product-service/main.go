package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/jayaprakash-optisol/RabbitMQ-Microservice-Model/common/db"
	apperrors "github.com/jayaprakash-optisol/RabbitMQ-Microservice-Model/common/errors"
	"github.com/jayaprakash-optisol/RabbitMQ-Microservice-Model/common/logger"
	"github.com/jayaprakash-optisol/RabbitMQ-Microservice-Model/common/middleware"
	kafkabroker "github.com/jayaprakash-optisol/RabbitMQ-Microservice-Model/messaging/kafka"
	"github.com/jayaprakash-optisol/RabbitMQ-Microservice-Model/product-service/cache"
	"github.com/jayaprakash-optisol/RabbitMQ-Microservice-Model/product-service/controllers"
	"github.com/jayaprakash-optisol/RabbitMQ-Microservice-Model/product-service/correlator"
	"github.com/jayaprakash-optisol/RabbitMQ-Microservice-Model/product-service/repository"
	"github.com/jayaprakash-optisol/RabbitMQ-Microservice-Model/product-service/routes"
)

func main() {
	_ = godotenv.Load()

	cfg := LoadConfig()
	log := logger.Initialize(cfg.Env)
	defer log.Sync()

	// --- MongoDB ---
	mongoClient, database, err := db.Connect(context.Background(), cfg.MongoURL, cfg.MongoDB)
	if err != nil {
		log.Fatal("Failed to connect Product-service to MongoDB", zap.Error(err))
	}
	log.Info("Product-service connected to MongoDB")

	// --- Redis ---
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal("Invalid REDIS_URL", zap.Error(err))
	}
	redisClient := redis.NewClient(redisOpts)

	// --- Broker ---
	broker := kafkabroker.NewBroker(cfg.KafkaBrokers, log)
	for _, queue := range []string{cfg.OrderRequestQueue, cfg.OrderReplyQueue} {
		if err := broker.DeclareQueue(context.Background(), queue); err != nil {
			log.Fatal("Failed to declare queue", zap.String("queue", queue), zap.Error(err))
		}
	}

	// --- Service wiring ---
	productRepo := repository.NewMongoProductRepository(database)
	productCache := cache.NewProductCache(redisClient)
	corr := correlator.New(broker, cfg.OrderRequestQueue, cfg.BuyTimeout, log)

	productController := controllers.NewProductController(productRepo, productCache, log)
	buyController := controllers.NewBuyController(productRepo, corr, log)

	// The reply consumer is registered once for the process lifetime; every
	// inbound reply is routed through the correlator by correlation id.
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	go func() {
		if err := broker.Consume(consumerCtx, cfg.OrderReplyQueue, cfg.ConsumerGroup, corr.HandleReply); err != nil {
			log.Error("Reply consumer stopped unexpectedly", zap.Error(err))
		}
	}()

	// --- HTTP router ---
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestLogger(log))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.RateLimitMiddleware())
	r.Use(apperrors.ErrorMiddleware())

	routes.RegisterProductRoutes(r, productController, buyController)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	go func() {
		log.Info("Product-Service listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down Product-Service...")
	stopConsumer()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := broker.Close(); err != nil {
		log.Warn("Failed to close broker client", zap.Error(err))
	}
	_ = redisClient.Close()
	if err := db.Disconnect(mongoClient); err != nil {
		log.Warn("Failed to disconnect MongoDB", zap.Error(err))
	}

	log.Info("Product-Service stopped gracefully")
}
