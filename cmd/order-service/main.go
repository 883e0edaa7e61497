package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/paymentsaga/payment-saga/internal/order/handler"
	"github.com/paymentsaga/payment-saga/internal/order/listener"
	"github.com/paymentsaga/payment-saga/internal/order/metrics"
	"github.com/paymentsaga/payment-saga/internal/order/repository"
	"github.com/paymentsaga/payment-saga/internal/order/service"
	"github.com/paymentsaga/payment-saga/pkg/config"
	"github.com/paymentsaga/payment-saga/pkg/database"
	"github.com/paymentsaga/payment-saga/pkg/events"
	"github.com/paymentsaga/payment-saga/pkg/kafka"
	"github.com/paymentsaga/payment-saga/pkg/logger"
	"github.com/paymentsaga/payment-saga/pkg/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logCfg := &logger.Config{
		Level:       logLevel(cfg),
		ServiceName: "order-service",
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Order Service...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    "order-service",
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
	}); err != nil {
		appLog.Warn("Telemetry initialization failed", "error", err)
	}
	defer telemetry.Shutdown(context.Background())

	if err := metrics.Init(); err != nil {
		appLog.Warn("Metrics initialization failed", "error", err)
	}

	// Order store
	var orderRepo repository.OrderRepository
	db, err := database.NewPostgres(ctx, &database.PostgresConfig{
		Host:            cfg.OrderDatabase.Host,
		Port:            cfg.OrderDatabase.Port,
		User:            cfg.OrderDatabase.User,
		Password:        cfg.OrderDatabase.Password,
		Database:        cfg.OrderDatabase.DBName,
		SSLMode:         cfg.OrderDatabase.SSLMode,
		MaxConns:        int32(cfg.OrderDatabase.MaxOpenConns),
		MinConns:        int32(cfg.OrderDatabase.MaxIdleConns),
		MaxConnLifetime: cfg.OrderDatabase.ConnMaxLifetime,
		MaxConnIdleTime: cfg.OrderDatabase.ConnMaxIdleTime,
		MaxRetries:      3,
		RetryInterval:   2 * time.Second,
		EnableTracing:   cfg.OTel.Enabled,
	})
	if err != nil {
		appLog.Warn("Database connection failed, using in-memory order store", "error", err)
		orderRepo = repository.NewMemoryOrderRepository()
	} else {
		defer db.Close()
		orderRepo = repository.NewPostgresOrderRepository(db)
		appLog.Info("Database connected")
	}

	// Bus producer and publisher
	producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:  cfg.Kafka.Brokers,
		ClientID: "order-service-producer",
	})
	if err != nil {
		appLog.Fatal("Failed to create Kafka producer", "error", err)
	}
	defer producer.Close()
	appLog.Info("Kafka producer connected")

	publisher := events.NewPublisher(producer, &events.PublisherConfig{
		Source: "order-service",
	})

	orderService := service.NewOrderService(orderRepo, publisher)

	// Saga listener: risk outcomes and payment outcomes drive the
	// order state machine
	orderListener, err := listener.NewOrderListener(ctx, &listener.Config{
		Brokers:     cfg.Kafka.Brokers,
		GroupID:     "order-service",
		WorkerCount: cfg.Kafka.WorkerCount,
	}, orderService, producer)
	if err != nil {
		appLog.Fatal("Failed to create order listener", "error", err)
	}
	if err := orderListener.Start(ctx); err != nil {
		appLog.Fatal("Failed to start order listener", "error", err)
	}
	appLog.Info("Order listener started")

	// REST intake
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(telemetry.TracingMiddleware("order-service"))

	router.GET("/health", func(c *gin.Context) {
		if db != nil {
			if err := db.HealthCheck(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": cfg.App.Version})
	})

	handler.NewOrderHandler(orderService).RegisterRoutes(router)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
	}

	go func() {
		appLog.Info("Order Service listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Server forced to shutdown", "error", err)
	}
	orderListener.Stop()
	cancel()

	appLog.Info("Order Service exited gracefully")
}

func logLevel(cfg *config.Config) string {
	if cfg.App.Debug {
		return "debug"
	}
	return "info"
}
