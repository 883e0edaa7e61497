package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paymentsaga/payment-saga/internal/risk/listener"
	"github.com/paymentsaga/payment-saga/internal/risk/repository"
	"github.com/paymentsaga/payment-saga/internal/risk/service"
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
		ServiceName: "risk-worker",
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Risk Worker...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    "risk-worker",
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
	}); err != nil {
		appLog.Warn("Telemetry initialization failed", "error", err)
	}
	defer telemetry.Shutdown(context.Background())

	// Assessment store
	var assessmentRepo repository.AssessmentRepository
	db, err := database.NewPostgres(ctx, &database.PostgresConfig{
		Host:            cfg.RiskDatabase.Host,
		Port:            cfg.RiskDatabase.Port,
		User:            cfg.RiskDatabase.User,
		Password:        cfg.RiskDatabase.Password,
		Database:        cfg.RiskDatabase.DBName,
		SSLMode:         cfg.RiskDatabase.SSLMode,
		MaxConns:        int32(cfg.RiskDatabase.MaxOpenConns),
		MinConns:        int32(cfg.RiskDatabase.MaxIdleConns),
		MaxConnLifetime: cfg.RiskDatabase.ConnMaxLifetime,
		MaxConnIdleTime: cfg.RiskDatabase.ConnMaxIdleTime,
		MaxRetries:      3,
		RetryInterval:   2 * time.Second,
		EnableTracing:   cfg.OTel.Enabled,
	})
	if err != nil {
		appLog.Warn("Database connection failed, using in-memory assessment store", "error", err)
		assessmentRepo = repository.NewMemoryAssessmentRepository()
	} else {
		defer db.Close()
		assessmentRepo = repository.NewPostgresAssessmentRepository(db)
		appLog.Info("Database connected")
	}

	producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:  cfg.Kafka.Brokers,
		ClientID: "risk-worker-producer",
	})
	if err != nil {
		appLog.Fatal("Failed to create Kafka producer", "error", err)
	}
	defer producer.Close()
	appLog.Info("Kafka producer connected")

	publisher := events.NewPublisher(producer, &events.PublisherConfig{
		Source: "risk-service",
	})

	riskService := service.NewRiskService(assessmentRepo, publisher)

	riskListener, err := listener.NewRiskListener(ctx, &listener.Config{
		Brokers:     cfg.Kafka.Brokers,
		GroupID:     "risk-service",
		WorkerCount: cfg.Kafka.WorkerCount,
	}, riskService, publisher, producer)
	if err != nil {
		appLog.Fatal("Failed to create risk listener", "error", err)
	}
	if err := riskListener.Start(ctx); err != nil {
		appLog.Fatal("Failed to start risk listener", "error", err)
	}

	appLog.Info("Risk Worker started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("Shutting down worker...")
	riskListener.Stop()
	cancel()

	appLog.Info("Risk Worker exited gracefully")
}

func logLevel(cfg *config.Config) string {
	if cfg.App.Debug {
		return "debug"
	}
	return "info"
}
