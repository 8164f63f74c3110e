package main

import (
	"os"
	"strings"
)

// Config holds all configuration for the order-service.
type Config struct {
	Port              string
	Env               string
	MongoURL          string
	MongoDB           string
	KafkaBrokers      []string
	OrderRequestQueue string
	OrderReplyQueue   string
	ConsumerGroup     string
}

// LoadConfig loads environment variables into the Config struct.
func LoadConfig() *Config {
	return &Config{
		Port:              getEnv("PORT", "8082"),
		Env:               getEnv("GO_ENV", "development"),
		MongoURL:          getEnv("MONGO_URL", "mongodb://localhost:27017"),
		MongoDB:           getEnv("MONGO_DB", "ecommerce"),
		KafkaBrokers:      strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		OrderRequestQueue: getEnv("ORDER_REQUEST_QUEUE", "order-service-queue"),
		OrderReplyQueue:   getEnv("ORDER_REPLY_QUEUE", "product-service-queue"),
		ConsumerGroup:     getEnv("CONSUMER_GROUP", "order-service"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
