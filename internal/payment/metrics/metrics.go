package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/paymentsaga/payment-saga/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

var (
	PaymentsProcessed *telemetry.Counter
	PaymentsFailed    *telemetry.Counter
	RefundsIssued     *telemetry.Counter
	RefundsStuck      *telemetry.Counter

	PaymentAmount  *telemetry.Histogram
	GatewayLatency *telemetry.Histogram

	initOnce sync.Once
	initErr  error
)

// Init initializes all payment metrics
func Init() error {
	initOnce.Do(func() {
		initErr = initMetrics()
	})
	return initErr
}

func initMetrics() error {
	var err error

	PaymentsProcessed, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "payment_processed_total",
		Description: "Total number of successfully captured payments",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	PaymentsFailed, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "payment_failed_total",
		Description: "Total number of failed or declined payments",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	RefundsIssued, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "payment_refunded_total",
		Description: "Total number of compensating refunds issued",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	RefundsStuck, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "payment_refund_stuck_total",
		Description: "Refunds that failed at the gateway and need manual intervention",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	PaymentAmount, err = telemetry.NewHistogramWithBuckets(telemetry.MetricOpts{
		Name:        "payment_amount",
		Description: "Captured payment amounts distribution",
		Unit:        "1",
	}, []float64{10, 50, 100, 500, 1000, 2500, 5000, 10000, 25000})
	if err != nil {
		return err
	}

	GatewayLatency, err = telemetry.NewHistogramWithBuckets(telemetry.MetricOpts{
		Name:        "payment_gateway_latency_seconds",
		Description: "Latency of gateway charge and refund calls, retries included",
		Unit:        "s",
	}, []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30})
	if err != nil {
		return err
	}

	return nil
}

// RecordProcessed records a captured payment
func RecordProcessed(ctx context.Context, gateway, currency string, amount float64, latency time.Duration) {
	if PaymentsProcessed != nil {
		PaymentsProcessed.Inc(ctx, attribute.String("gateway", gateway), attribute.String("currency", currency))
	}
	if PaymentAmount != nil {
		PaymentAmount.Record(ctx, amount, attribute.String("currency", currency))
	}
	if GatewayLatency != nil {
		GatewayLatency.Record(ctx, latency.Seconds(), attribute.String("gateway", gateway), attribute.String("op", "charge"))
	}
}

// RecordFailed records a failed or declined payment
func RecordFailed(ctx context.Context, gateway, reason string, latency time.Duration) {
	if PaymentsFailed != nil {
		PaymentsFailed.Inc(ctx, attribute.String("gateway", gateway), attribute.String("reason", reason))
	}
	if GatewayLatency != nil {
		GatewayLatency.Record(ctx, latency.Seconds(), attribute.String("gateway", gateway), attribute.String("op", "charge"))
	}
}

// RecordRefunded records an issued refund
func RecordRefunded(ctx context.Context, gateway string, amount float64) {
	if RefundsIssued != nil {
		RefundsIssued.Inc(ctx, attribute.String("gateway", gateway))
	}
}

// RecordRefundStuck records a refund that needs manual intervention
func RecordRefundStuck(ctx context.Context, gateway string) {
	if RefundsStuck != nil {
		RefundsStuck.Inc(ctx, attribute.String("gateway", gateway))
	}
}
