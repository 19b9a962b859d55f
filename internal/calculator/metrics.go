package calculator

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Metric instruments — initialized once via InitMetrics().
var (
	opsCounter     metric.Int64Counter
	opsHistogram   metric.Float64Histogram
	errorCounter   metric.Int64Counter
	keysCounter    metric.Int64Counter
	displayGauge   metric.Float64Gauge
	sessionsGauge  metric.Int64Gauge
	metricsEnabled bool
)

// InitMetrics registers custom OTel metric instruments for the calculator domain.
// Call this once at startup (after observability.InitMetrics).
func InitMetrics() error {
	meter := otel.Meter("calculator")

	var err error

	opsCounter, err = meter.Int64Counter("calculator.operations.total",
		metric.WithDescription("Total number of calculator API operations performed"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return fmt.Errorf("creating ops counter: %w", err)
	}

	opsHistogram, err = meter.Float64Histogram("calculator.operation.duration",
		metric.WithDescription("Duration of calculator operations in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 10),
	)
	if err != nil {
		return fmt.Errorf("creating ops histogram: %w", err)
	}

	errorCounter, err = meter.Int64Counter("calculator.errors.total",
		metric.WithDescription("Total number of calculator errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return fmt.Errorf("creating error counter: %w", err)
	}

	keysCounter, err = meter.Int64Counter("calculator.keys.total",
		metric.WithDescription("Key presses applied to calculator sessions, by action"),
		metric.WithUnit("{key}"),
	)
	if err != nil {
		return fmt.Errorf("creating keys counter: %w", err)
	}

	displayGauge, err = meter.Float64Gauge("calculator.last_display",
		metric.WithDescription("Numeric value of the most recently returned display"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("creating display gauge: %w", err)
	}

	sessionsGauge, err = meter.Int64Gauge("calculator.sessions.active",
		metric.WithDescription("Calculator sessions currently held in memory"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return fmt.Errorf("creating sessions gauge: %w", err)
	}

	metricsEnabled = true
	return nil
}

// recordSessions is a no-op until InitMetrics has run.
func recordSessions(n int) {
	if !metricsEnabled {
		return
	}
	sessionsGauge.Record(context.Background(), int64(n))
}
