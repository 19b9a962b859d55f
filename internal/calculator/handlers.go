package calculator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go-chi-calculator/internal/handlers"
	"go-chi-calculator/internal/observability"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// tracer is the calculator's dedicated OpenTelemetry tracer.
var tracer = otel.Tracer("calculator")

// Handler serves the calculator HTTP API on top of a session Store.
type Handler struct {
	store *Store
}

// NewHandler returns a Handler backed by store.
func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// ---------------------------------------------------------------------------
// Shared request plumbing
// ---------------------------------------------------------------------------

// operation carries the per-request span, logger and timing shared by every
// calculator handler.
type operation struct {
	name      string
	ctx       context.Context
	span      trace.Span
	logger    *zap.Logger
	requestID string
	start     time.Time
}

func startOperation(r *http.Request, name string, attrs ...attribute.KeyValue) *operation {
	ctx := r.Context()
	requestID := observability.RequestIDFromContext(ctx)

	attrs = append(attrs,
		attribute.String("calculator.operation", name),
		attribute.String("request.id", requestID),
	)
	ctx, span := tracer.Start(ctx, fmt.Sprintf("calculator.%s", name), trace.WithAttributes(attrs...))

	return &operation{
		name:      name,
		ctx:       ctx,
		span:      span,
		logger:    observability.LoggerWithTrace(ctx),
		requestID: requestID,
		start:     time.Now(),
	}
}

// fail maps err onto an HTTP status and reports it on the span, error
// counter, log and response.
func (op *operation) fail(w http.ResponseWriter, msg string, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, ErrSessionNotFound) {
		status = http.StatusNotFound
	}
	observability.RecordError(op.ctx, op.span, op.logger, errorCounter, op.name, msg, err, status, w)
}

// succeed records metrics, the span outcome and a structured log line, then
// writes body (if any) with the given status.
func (op *operation) succeed(w http.ResponseWriter, status int, body any, fields ...zap.Field) {
	elapsed := float64(time.Since(op.start).Microseconds()) / 1000.0 // ms

	attrs := metric.WithAttributes(attribute.String("operation", op.name))
	opsCounter.Add(op.ctx, 1, attrs)
	opsHistogram.Record(op.ctx, elapsed, attrs)

	op.span.AddEvent("operation.complete", trace.WithAttributes(
		attribute.Float64("duration_ms", elapsed),
	))
	op.span.SetStatus(codes.Ok, "")

	fields = append(fields,
		zap.String("operation", op.name),
		zap.String("request_id", op.requestID),
		zap.Float64("duration_ms", elapsed),
	)
	op.logger.Info("calculator operation completed", fields...)

	if body == nil {
		w.WriteHeader(status)
		return
	}
	handlers.WriteJSON(w, status, body)
}

// recordDisplay tags the span with the display and feeds the gauge when the
// display is numeric.
func (op *operation) recordDisplay(display string) {
	op.span.SetAttributes(attribute.String("calculator.display", display))
	if v, err := strconv.ParseFloat(display, 64); err == nil {
		displayGauge.Record(op.ctx, v, metric.WithAttributes(attribute.String("operation", op.name)))
	}
}

// ---------------------------------------------------------------------------
// Handlers — sessions
// ---------------------------------------------------------------------------

// CreateSession handles POST /calculator/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	op := startOperation(r, "create_session")
	defer op.span.End()

	sess := h.store.Create()
	sessionsGauge.Record(op.ctx, int64(h.store.Len()))

	op.span.SetAttributes(attribute.String("calculator.session_id", sess.ID))
	op.recordDisplay(sess.State.Current)

	op.succeed(w, http.StatusCreated, newSessionResponse(sess),
		zap.String("session_id", sess.ID),
	)
}

// GetSession handles GET /calculator/sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	op := startOperation(r, "get_session", attribute.String("calculator.session_id", id))
	defer op.span.End()

	sess, err := h.store.Get(id)
	if err != nil {
		op.fail(w, "session not found", err)
		return
	}

	op.succeed(w, http.StatusOK, newSessionResponse(sess),
		zap.String("session_id", id),
		zap.String("display", sess.State.Current),
	)
}

// PressKeys handles POST /calculator/sessions/{id}/keys — applies every key in
// order and creates a child span per key, so a long sequence shows up as a
// multi-step trace.
func (h *Handler) PressKeys(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	op := startOperation(r, "press_keys", attribute.String("calculator.session_id", id))
	defer op.span.End()

	var req KeysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		op.fail(w, "invalid request body", err)
		return
	}

	actions, err := ParseKeys(req.Keys)
	if err != nil {
		op.fail(w, "invalid key sequence", err)
		return
	}
	op.span.SetAttributes(attribute.Int("calculator.keys_count", len(actions)))

	observe := func(i int, a Action, prev State) func(State) {
		_, keySpan := tracer.Start(op.ctx, fmt.Sprintf("calculator.key.%d.%s", i, a.Kind),
			trace.WithAttributes(
				attribute.Int("calculator.key.index", i),
				attribute.String("calculator.key.label", req.Keys[i]),
				attribute.String("calculator.key.action", a.String()),
				attribute.String("calculator.key.display_before", prev.Current),
			),
		)
		return func(next State) {
			keySpan.SetAttributes(
				attribute.String("calculator.key.display", next.Current),
				attribute.Bool("calculator.key.overwrite", next.Overwrite),
			)
			keySpan.End()
			keysCounter.Add(op.ctx, 1, metric.WithAttributes(attribute.String("action", a.Kind.String())))
		}
	}

	before, sess, err := h.store.ApplyActions(id, actions, observe)
	if err != nil {
		op.fail(w, "session not found", err)
		return
	}

	if sess.State.IsError() && !before.State.IsError() {
		errorCounter.Add(op.ctx, 1, metric.WithAttributes(attribute.String("operation", "divide_by_zero")))
		op.span.AddEvent("display.error")
	}
	op.recordDisplay(sess.State.Current)

	op.succeed(w, http.StatusOK, newSessionResponse(sess),
		zap.String("session_id", id),
		zap.Strings("keys", req.Keys),
		zap.String("display", sess.State.Current),
	)
}

// DeleteSession handles DELETE /calculator/sessions/{id}
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	op := startOperation(r, "delete_session", attribute.String("calculator.session_id", id))
	defer op.span.End()

	if err := h.store.Delete(id); err != nil {
		op.fail(w, "session not found", err)
		return
	}
	sessionsGauge.Record(op.ctx, int64(h.store.Len()))

	op.succeed(w, http.StatusNoContent, nil, zap.String("session_id", id))
}

// ---------------------------------------------------------------------------
// Handler — stateless evaluation
// ---------------------------------------------------------------------------

// Evaluate handles POST /calculator/evaluate — runs a single binary operation
// on textual operands exactly as the keypad's equals key would.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	op := startOperation(r, "evaluate")
	defer op.span.End()

	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		op.fail(w, "invalid request body", err)
		return
	}

	operator := Operator(req.Op)
	if !operator.Valid() {
		op.fail(w, "invalid operator", fmt.Errorf("unsupported operator %q", req.Op))
		return
	}

	op.span.SetAttributes(
		attribute.String("calculator.operand.a", req.A),
		attribute.String("calculator.operand.b", req.B),
		attribute.String("calculator.operator", req.Op),
	)

	result := Evaluate(req.A, req.B, operator)
	op.recordDisplay(result)

	op.succeed(w, http.StatusOK, EvaluateResponse{
		A:      req.A,
		B:      req.B,
		Op:     req.Op,
		Result: result,
		Error:  result == ErrorMarker,
	},
		zap.String("a", req.A),
		zap.String("b", req.B),
		zap.String("op", req.Op),
		zap.String("result", result),
	)
}
