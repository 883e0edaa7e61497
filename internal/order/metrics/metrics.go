package metrics

import (
	"context"
	"sync"

	"github.com/paymentsaga/payment-saga/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

var (
	OrdersInitiated *telemetry.Counter
	OrdersConfirmed *telemetry.Counter
	OrdersCancelled *telemetry.Counter

	OrderAmount  *telemetry.Histogram
	SagaDuration *telemetry.Histogram

	OpenSagas *telemetry.UpDownCounter

	initOnce sync.Once
	initErr  error
)

// Init initializes all order metrics
func Init() error {
	initOnce.Do(func() {
		initErr = initMetrics()
	})
	return initErr
}

func initMetrics() error {
	var err error

	OrdersInitiated, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "order_initiated_total",
		Description: "Total number of payment sagas initiated",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	OrdersConfirmed, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "order_confirmed_total",
		Description: "Total number of orders confirmed",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	OrdersCancelled, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "order_cancelled_total",
		Description: "Total number of orders cancelled",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	OrderAmount, err = telemetry.NewHistogramWithBuckets(telemetry.MetricOpts{
		Name:        "order_amount",
		Description: "Order amounts distribution",
		Unit:        "1",
	}, []float64{10, 50, 100, 500, 1000, 2500, 5000, 10000, 25000})
	if err != nil {
		return err
	}

	SagaDuration, err = telemetry.NewHistogramWithBuckets(telemetry.MetricOpts{
		Name:        "order_saga_duration_seconds",
		Description: "Time from initiation to a terminal order state",
		Unit:        "s",
	}, []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60})
	if err != nil {
		return err
	}

	OpenSagas, err = telemetry.NewUpDownCounter(telemetry.MetricOpts{
		Name:        "order_open_sagas",
		Description: "Current number of sagas not yet in a terminal state",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	return nil
}

// RecordInitiated records a saga initiation
func RecordInitiated(ctx context.Context, currency string, amount float64) {
	if OrdersInitiated != nil {
		OrdersInitiated.Inc(ctx, attribute.String("currency", currency))
	}
	if OrderAmount != nil {
		OrderAmount.Record(ctx, amount, attribute.String("currency", currency))
	}
	if OpenSagas != nil {
		OpenSagas.Inc(ctx)
	}
}

// RecordConfirmed records a confirmed order
func RecordConfirmed(ctx context.Context, durationSeconds float64) {
	if OrdersConfirmed != nil {
		OrdersConfirmed.Inc(ctx)
	}
	if SagaDuration != nil {
		SagaDuration.Record(ctx, durationSeconds, attribute.String("outcome", "confirmed"))
	}
	if OpenSagas != nil {
		OpenSagas.Dec(ctx)
	}
}

// RecordCancelled records a cancelled order
func RecordCancelled(ctx context.Context, reason string, durationSeconds float64) {
	if OrdersCancelled != nil {
		OrdersCancelled.Inc(ctx, attribute.String("reason", reason))
	}
	if SagaDuration != nil {
		SagaDuration.Record(ctx, durationSeconds, attribute.String("outcome", "cancelled"))
	}
	if OpenSagas != nil {
		OpenSagas.Dec(ctx)
	}
}
