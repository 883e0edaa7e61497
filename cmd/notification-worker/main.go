package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/paymentsaga/payment-saga/internal/notification/listener"
	"github.com/paymentsaga/payment-saga/internal/notification/registry"
	"github.com/paymentsaga/payment-saga/internal/notification/sender"
	"github.com/paymentsaga/payment-saga/internal/notification/service"
	"github.com/paymentsaga/payment-saga/pkg/config"
	"github.com/paymentsaga/payment-saga/pkg/kafka"
	"github.com/paymentsaga/payment-saga/pkg/logger"
	"github.com/paymentsaga/payment-saga/pkg/redis"
	"github.com/paymentsaga/payment-saga/pkg/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logCfg := &logger.Config{
		Level:       logLevel(cfg),
		ServiceName: "notification-worker",
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Notification Worker...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    "notification-worker",
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
	}); err != nil {
		appLog.Warn("Telemetry initialization failed", "error", err)
	}
	defer telemetry.Shutdown(context.Background())

	// Dedup registry: Redis makes at-most-once survive restarts, the
	// in-memory set is the accepted fallback
	var sentRegistry registry.SentRegistry
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, &redis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			appLog.Warn("Redis connection failed, using in-memory dedup registry", "error", err)
		} else {
			defer redisClient.Close()
			sentRegistry = registry.NewRedisRegistry(redisClient)
			appLog.Info("Redis connected, dedup registry is durable")
		}
	}
	if sentRegistry == nil {
		sentRegistry = registry.NewMemoryRegistry()
		appLog.Info("Using in-memory dedup registry (restart re-enables resending)")
	}

	producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:  cfg.Kafka.Brokers,
		ClientID: "notification-worker-producer",
	})
	if err != nil {
		appLog.Fatal("Failed to create Kafka producer", "error", err)
	}
	defer producer.Close()
	appLog.Info("Kafka producer connected")

	notificationService := service.NewNotificationService(sentRegistry,
		sender.NewEmailSender(),
		sender.NewSMSSender(),
	)

	notificationListener, err := listener.NewNotificationListener(ctx, &listener.Config{
		Brokers:     cfg.Kafka.Brokers,
		GroupID:     "notification-service",
		WorkerCount: cfg.Kafka.WorkerCount,
	}, notificationService, producer)
	if err != nil {
		appLog.Fatal("Failed to create notification listener", "error", err)
	}
	if err := notificationListener.Start(ctx); err != nil {
		appLog.Fatal("Failed to start notification listener", "error", err)
	}

	appLog.Info("Notification Worker started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("Shutting down worker...")
	notificationListener.Stop()
	cancel()

	appLog.Info("Notification Worker exited gracefully")
}

func logLevel(cfg *config.Config) string {
	if cfg.App.Debug {
		return "debug"
	}
	return "info"
}
