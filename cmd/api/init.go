package main

import (
	"context"
	"errors"
	"time"

	"go-chi-calculator/internal/calculator"
	"go-chi-calculator/internal/observability"
)

// initTelemetry starts the OTLP trace, metric and log pipelines and returns a
// single shutdown func that flushes all of them.
func initTelemetry(ctx context.Context, metricsInterval time.Duration) (func(context.Context) error, error) {
	var shutdowns []func(context.Context) error
	shutdown := func(ctx context.Context) error {
		var errs []error
		for i := len(shutdowns) - 1; i >= 0; i-- {
			errs = append(errs, shutdowns[i](ctx))
		}
		return errors.Join(errs...)
	}

	traceShutdown, err := observability.InitTracing(ctx)
	if err != nil {
		return nil, err
	}
	shutdowns = append(shutdowns, traceShutdown)

	metricShutdown, err := observability.InitMetrics(ctx, metricsInterval)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}
	shutdowns = append(shutdowns, metricShutdown)

	logShutdown, err := observability.InitLogging(ctx)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}
	shutdowns = append(shutdowns, logShutdown)

	return shutdown, nil
}

// initMetrics registers application-specific metric instruments against
// whichever meter provider is installed. Add new domain InitMetrics calls
// here as the project grows.
func initMetrics() error {
	return calculator.InitMetrics()
}
