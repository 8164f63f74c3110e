package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/jayaprakash-optisol/RabbitMQ-Microservice-Model/common/db"
	"github.com/jayaprakash-optisol/RabbitMQ-Microservice-Model/common/logger"
	kafkabroker "github.com/jayaprakash-optisol/RabbitMQ-Microservice-Model/messaging/kafka"
	"github.com/jayaprakash-optisol/RabbitMQ-Microservice-Model/order-service/repository"
	"github.com/jayaprakash-optisol/RabbitMQ-Microservice-Model/order-service/services"
)

func main() {
	_ = godotenv.Load()

	cfg := LoadConfig()
	log := logger.Initialize(cfg.Env)
	defer log.Sync()

	// --- MongoDB ---
	mongoClient, database, err := db.Connect(context.Background(), cfg.MongoURL, cfg.MongoDB)
	if err != nil {
		log.Fatal("Failed to connect Order-service to MongoDB", zap.Error(err))
	}
	log.Info("Order-service connected to MongoDB")

	// --- Broker ---
	broker := kafkabroker.NewBroker(cfg.KafkaBrokers, log)
	for _, queue := range []string{cfg.OrderRequestQueue, cfg.OrderReplyQueue} {
		if err := broker.DeclareQueue(context.Background(), queue); err != nil {
			log.Fatal("Failed to declare queue", zap.String("queue", queue), zap.Error(err))
		}
	}

	// --- Service wiring ---
	orderRepo := repository.NewMongoOrderRepository(database)
	productStore := repository.NewMongoProductStore(database)
	orderService := services.NewOrderService(productStore, orderRepo, log)
	consumer := services.NewBuyConsumer(orderService, broker, cfg.OrderRequestQueue, cfg.OrderReplyQueue, cfg.ConsumerGroup, log)

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	go func() {
		if err := consumer.Start(consumerCtx); err != nil {
			log.Error("Buy-request consumer stopped unexpectedly", zap.Error(err))
		}
	}()

	// --- HTTP (health only) ---
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	go func() {
		log.Info("Order-Service listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down Order-Service...")
	stopConsumer()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := broker.Close(); err != nil {
		log.Warn("Failed to close broker client", zap.Error(err))
	}
	if err := db.Disconnect(mongoClient); err != nil {
		log.Warn("Failed to disconnect MongoDB", zap.Error(err))
	}

	log.Info("Order-Service stopped gracefully")
}
