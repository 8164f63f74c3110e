package main

import (
	"os"
	"strings"
	"time"
)

// Config holds all configuration for the product-service.
type Config struct {
	Port              string
	Env               string
	MongoURL          string
	MongoDB           string
	RedisURL          string
	KafkaBrokers      []string
	OrderRequestQueue string
	OrderReplyQueue   string
	ConsumerGroup     string
	BuyTimeout        time.Duration
}

// LoadConfig loads environment variables into the Config struct.
func LoadConfig() *Config {
	return &Config{
		Port:              getEnv("PORT", "8081"),
		Env:               getEnv("GO_ENV", "development"),
		MongoURL:          getEnv("MONGO_URL", "mongodb://localhost:27017"),
		MongoDB:           getEnv("MONGO_DB", "ecommerce"),
		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379"),
		KafkaBrokers:      strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		OrderRequestQueue: getEnv("ORDER_REQUEST_QUEUE", "order-service-queue"),
		OrderReplyQueue:   getEnv("ORDER_REPLY_QUEUE", "product-service-queue"),
		ConsumerGroup:     getEnv("CONSUMER_GROUP", "product-service"),
		BuyTimeout:        getDurationEnv("BUY_TIMEOUT", 10*time.Second),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
