package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	c "github.com/12344-munna/facebook-webhook-backend/internal/cache"
	"github.com/12344-munna/facebook-webhook-backend/internal/messenger"
	m "github.com/12344-munna/facebook-webhook-backend/internal/metrics"
	"github.com/12344-munna/facebook-webhook-backend/internal/publisher"
	"github.com/12344-munna/facebook-webhook-backend/internal/repository"
	s "github.com/12344-munna/facebook-webhook-backend/internal/service"
	"github.com/12344-munna/facebook-webhook-backend/internal/webhook"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	// Configuration
	port := getEnv("PORT", "8080")
	mongoURI := getEnv("MONGO_URI", "mongodb://localhost:27017")
	mongoDBName := getEnv("MONGO_DB_NAME", "shopdb")
	redisAddr := getEnv("REDIS_ADDR", "localhost:6379")
	kafkaBrokers := getEnv("KAFKA_BROKERS", "")
	verifyToken := getEnv("FB_VERIFY_TOKEN", "")
	pageToken := getEnv("FB_PAGE_ACCESS_TOKEN", "")
	graphAPIURL := getEnv("GRAPH_API_URL", messenger.DefaultGraphAPIURL)

	if verifyToken == "" {
		log.Fatal("FB_VERIFY_TOKEN must be set")
	}

	// Set up MongoDB connection
	ctx := context.Background()
	mongoDB, err := repository.ConnectMongoDB(ctx, mongoURI, mongoDBName)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	store := repository.NewMongoStore(mongoDB)
	log.Printf("Connected to MongoDB at %s", mongoURI)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Redis connection failed: ", err)
	}
	log.Printf("Redis ping succeeded")

	redisCache := c.NewRedisCache(redisClient)
	confirmationMetrics := m.NewConfirmationMetrics(prometheus.DefaultRegisterer)
	service := s.NewConfirmationService(store, redisCache)

	var notifier webhook.Notifier
	if pageToken != "" {
		notifier = messenger.NewClient(graphAPIURL, pageToken)
	} else {
		log.Println("FB_PAGE_ACCESS_TOKEN not set, acknowledgments disabled")
	}

	handler := webhook.NewHandler(verifyToken, service, redisCache, notifier, confirmationMetrics)
	router := webhook.NewRouter(handler)

	// Outbox poller publishes confirmed orders to Kafka, if configured
	pollerCtx, stopPoller := context.WithCancel(ctx)
	defer stopPoller()
	if kafkaBrokers != "" {
		poller := publisher.NewOutboxPoller(store, strings.Split(kafkaBrokers, ",")...)
		defer poller.Close()
		go poller.Run(pollerCtx)
		log.Printf("Outbox poller started, brokers: %s", kafkaBrokers)
	} else {
		log.Println("KAFKA_BROKERS not set, outbox poller disabled")
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: otelhttp.NewHandler(router, "facebook-webhook-backend"),
	}

	go func() {
		log.Printf("Webhook backend listening on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down webhook backend...")
	stopPoller()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	if err := mongoDB.Client().Disconnect(ctx); err != nil {
		log.Printf("MongoDB disconnect error: %v", err)
	}
	log.Println("Webhook backend stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
