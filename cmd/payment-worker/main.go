package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paymentsaga/payment-saga/internal/payment/gateway"
	"github.com/paymentsaga/payment-saga/internal/payment/listener"
	"github.com/paymentsaga/payment-saga/internal/payment/metrics"
	"github.com/paymentsaga/payment-saga/internal/payment/repository"
	"github.com/paymentsaga/payment-saga/internal/payment/service"
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
		ServiceName: "payment-worker",
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Payment Worker...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    "payment-worker",
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

	// Transaction store
	var transactionRepo repository.TransactionRepository
	db, err := database.NewPostgres(ctx, &database.PostgresConfig{
		Host:            cfg.PaymentDatabase.Host,
		Port:            cfg.PaymentDatabase.Port,
		User:            cfg.PaymentDatabase.User,
		Password:        cfg.PaymentDatabase.Password,
		Database:        cfg.PaymentDatabase.DBName,
		SSLMode:         cfg.PaymentDatabase.SSLMode,
		MaxConns:        int32(cfg.PaymentDatabase.MaxOpenConns),
		MinConns:        int32(cfg.PaymentDatabase.MaxIdleConns),
		MaxConnLifetime: cfg.PaymentDatabase.ConnMaxLifetime,
		MaxConnIdleTime: cfg.PaymentDatabase.ConnMaxIdleTime,
		MaxRetries:      3,
		RetryInterval:   2 * time.Second,
		EnableTracing:   cfg.OTel.Enabled,
	})
	if err != nil {
		appLog.Warn("Database connection failed, using in-memory transaction store", "error", err)
		transactionRepo = repository.NewMemoryTransactionRepository()
	} else {
		defer db.Close()
		transactionRepo = repository.NewPostgresTransactionRepository(db)
		appLog.Info("Database connected")
	}

	// Gateway selection
	var paymentGateway gateway.PaymentGateway
	if cfg.Gateway.Provider == "stripe" {
		stripeGw, gwErr := gateway.NewStripeGateway(&gateway.StripeGatewayConfig{
			SecretKey:   cfg.Gateway.StripeSecretKey,
			Environment: cfg.App.Environment,
		})
		if gwErr != nil {
			appLog.Warn("Stripe gateway unavailable, falling back to simulated gateway", "error", gwErr)
		} else {
			paymentGateway = stripeGw
			appLog.Info("Using Stripe payment gateway")
		}
	}
	if paymentGateway == nil {
		simCfg := gateway.DefaultSimulatedGatewayConfig()
		if cfg.Gateway.SuccessRate > 0 {
			simCfg.SuccessRate = cfg.Gateway.SuccessRate
		}
		paymentGateway = gateway.NewSimulatedGateway(simCfg)
		appLog.Info("Using simulated payment gateway", "success_rate", simCfg.SuccessRate)
	}

	producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:  cfg.Kafka.Brokers,
		ClientID: "payment-worker-producer",
	})
	if err != nil {
		appLog.Fatal("Failed to create Kafka producer", "error", err)
	}
	defer producer.Close()
	appLog.Info("Kafka producer connected")

	publisher := events.NewPublisher(producer, &events.PublisherConfig{
		Source: "payment-service",
	})

	paymentService := service.NewPaymentService(transactionRepo, paymentGateway, publisher)

	paymentListener, err := listener.NewPaymentListener(ctx, &listener.Config{
		Brokers:     cfg.Kafka.Brokers,
		GroupID:     "payment-service",
		WorkerCount: cfg.Kafka.WorkerCount,
	}, paymentService, producer)
	if err != nil {
		appLog.Fatal("Failed to create payment listener", "error", err)
	}
	if err := paymentListener.Start(ctx); err != nil {
		appLog.Fatal("Failed to start payment listener", "error", err)
	}

	appLog.Info("Payment Worker started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("Shutting down worker...")
	paymentListener.Stop()
	cancel()

	appLog.Info("Payment Worker exited gracefully")
}

func logLevel(cfg *config.Config) string {
	if cfg.App.Debug {
		return "debug"
	}
	return "info"
}
