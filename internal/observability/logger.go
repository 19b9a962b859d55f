package observability

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Logger is the process-wide logger. Tests replace it with zap.NewNop() or
// an observer core.
var Logger *zap.Logger

// InitLogger installs a production JSON logger, or a development console
// logger when debug is set.
func InitLogger(debug bool) error {
	var err error

	if debug {
		Logger, err = zap.NewDevelopment()
	} else {
		Logger, err = zap.NewProduction()
	}
	if err != nil {
		return err
	}

	return nil
}

func SyncLogger() {
	_ = Logger.Sync()
}

// LoggerWithTrace returns a child logger carrying the trace_id and span_id of
// the active span in ctx.
//
// ctx is also attached as a zap.Any("context", ctx) field: the otelzap core
// picks up any field holding a context.Context and emits the OTLP record with
// it, which fills in the record's native TraceID/SpanID. Without it the bridge
// emits with context.Background() and logs cannot be joined to traces in the
// backend. The string fields keep stdout JSON greppable.
func LoggerWithTrace(ctx context.Context) *zap.Logger {
	span := trace.SpanContextFromContext(ctx)

	if !span.IsValid() {
		return Logger
	}

	return Logger.With(
		zap.Any("context", ctx),
		zap.String("trace_id", span.TraceID().String()),
		zap.String("span_id", span.SpanID().String()),
	)
}
