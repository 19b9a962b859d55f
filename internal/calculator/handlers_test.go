package calculator

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"go-chi-calculator/internal/observability"
	"go-chi-calculator/internal/testutil"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestAPI(t *testing.T) (http.Handler, *Store) {
	t.Helper()
	observability.Logger = zap.NewNop()
	require.NoError(t, InitMetrics())

	store := NewStore()
	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(store))
	return r, store
}

func createSession(t *testing.T, api http.Handler) SessionResponse {
	t.Helper()
	w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPost, "/calculator/sessions", nil), api)
	testutil.CheckResponseCode(t, http.StatusCreated, w.Code)

	var resp SessionResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)
	return resp
}

func pressKeys(t *testing.T, api http.Handler, id string, keys ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.NewJSONRequest(t, http.MethodPost, "/calculator/sessions/"+id+"/keys", KeysRequest{Keys: keys})
	return testutil.ExecuteRequest(req, api)
}

func TestCreateSessionReturnsInitialState(t *testing.T) {
	api, store := newTestAPI(t)

	resp := createSession(t, api)

	_, err := uuid.Parse(resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "0", resp.Display)
	assert.Nil(t, resp.Previous)
	assert.Nil(t, resp.Operator)
	assert.True(t, resp.Overwrite)
	assert.False(t, resp.Error)
	assert.Equal(t, 1, store.Len())
}

func TestPressKeysReportsPendingOperation(t *testing.T) {
	api, _ := newTestAPI(t)
	sess := createSession(t, api)

	w := pressKeys(t, api, sess.SessionID, "5", "+")
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var resp SessionResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)
	assert.Equal(t, "5", resp.Display)
	require.NotNil(t, resp.Previous)
	assert.Equal(t, "5", *resp.Previous)
	require.NotNil(t, resp.Operator)
	assert.Equal(t, "+", *resp.Operator)
	assert.True(t, resp.Overwrite)

	w = pressKeys(t, api, sess.SessionID, "3", "=")
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)
	testutil.DecodeJSONBody(t, w.Body, &resp)
	assert.Equal(t, "8", resp.Display)
}

func TestPressKeysDivideByZeroSetsErrorFlag(t *testing.T) {
	api, _ := newTestAPI(t)
	sess := createSession(t, api)

	w := pressKeys(t, api, sess.SessionID, "9", "÷", "0", "=")
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var resp SessionResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)
	assert.Equal(t, ErrorMarker, resp.Display)
	assert.True(t, resp.Error)
}

func TestPressKeysErrors(t *testing.T) {
	api, _ := newTestAPI(t)
	sess := createSession(t, api)

	tests := []struct {
		name   string
		id     string
		body   any
		status int
		errMsg string
	}{
		{name: "malformed body", id: sess.SessionID, body: `{"keys":`, status: http.StatusBadRequest, errMsg: "invalid request body"},
		{name: "empty keys", id: sess.SessionID, body: KeysRequest{}, status: http.StatusBadRequest, errMsg: "invalid key sequence"},
		{name: "unknown key", id: sess.SessionID, body: KeysRequest{Keys: []string{"1", "sqrt"}}, status: http.StatusBadRequest, errMsg: "invalid key sequence"},
		{name: "unknown session", id: uuid.New().String(), body: KeysRequest{Keys: []string{"1"}}, status: http.StatusNotFound, errMsg: "session not found"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := testutil.NewJSONRequest(t, http.MethodPost, "/calculator/sessions/"+tc.id+"/keys", tc.body)
			w := testutil.ExecuteRequest(req, api)
			testutil.CheckResponseCode(t, tc.status, w.Code)

			var body map[string]string
			testutil.DecodeJSONBody(t, w.Body, &body)
			assert.Equal(t, tc.errMsg, body["error"])
		})
	}
}

func TestGetAndDeleteSession(t *testing.T) {
	api, store := newTestAPI(t)
	sess := createSession(t, api)
	pressKeys(t, api, sess.SessionID, "4", "2")

	w := testutil.ExecuteRequest(httptest.NewRequest(http.MethodGet, "/calculator/sessions/"+sess.SessionID, nil), api)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)
	var resp SessionResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)
	assert.Equal(t, "42", resp.Display)

	w = testutil.ExecuteRequest(httptest.NewRequest(http.MethodDelete, "/calculator/sessions/"+sess.SessionID, nil), api)
	testutil.CheckResponseCode(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, store.Len())

	w = testutil.ExecuteRequest(httptest.NewRequest(http.MethodDelete, "/calculator/sessions/"+sess.SessionID, nil), api)
	testutil.CheckResponseCode(t, http.StatusNotFound, w.Code)

	w = testutil.ExecuteRequest(httptest.NewRequest(http.MethodGet, "/calculator/sessions/"+sess.SessionID, nil), api)
	testutil.CheckResponseCode(t, http.StatusNotFound, w.Code)
}

func TestEvaluateEndpoint(t *testing.T) {
	api, _ := newTestAPI(t)

	tests := []struct {
		name      string
		body      any
		status    int
		result    string
		wantError bool
	}{
		{name: "add", body: EvaluateRequest{A: "5", B: "3", Op: "+"}, status: http.StatusOK, result: "8"},
		{name: "float artifact", body: EvaluateRequest{A: "0.1", B: "0.2", Op: "+"}, status: http.StatusOK, result: "0.30000000000000004"},
		{name: "divide by zero", body: EvaluateRequest{A: "1", B: "0", Op: "/"}, status: http.StatusOK, result: ErrorMarker, wantError: true},
		{name: "unparseable operand", body: EvaluateRequest{A: "one", B: "2", Op: "*"}, status: http.StatusOK, result: "0"},
		{name: "bad operator", body: EvaluateRequest{A: "1", B: "2", Op: "^"}, status: http.StatusBadRequest},
		{name: "malformed body", body: "not json", status: http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPost, "/calculator/evaluate", tc.body), api)
			testutil.CheckResponseCode(t, tc.status, w.Code)
			if tc.status != http.StatusOK {
				return
			}

			var resp EvaluateResponse
			testutil.DecodeJSONBody(t, w.Body, &resp)
			assert.Equal(t, tc.result, resp.Result)
			assert.Equal(t, tc.wantError, resp.Error)
		})
	}
}

func TestPressKeysLogsDisplay(t *testing.T) {
	api, _ := newTestAPI(t)
	sess := createSession(t, api)

	core, logs := observer.New(zap.InfoLevel)
	observability.Logger = zap.New(core)

	pressKeys(t, api, sess.SessionID, "7", "±")

	entries := logs.FilterMessage("calculator operation completed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "press_keys", fields["operation"])
	assert.Equal(t, "-7", fields["display"])
	assert.Equal(t, sess.SessionID, fields["session_id"])
}

var (
	spanRecorderOnce sync.Once
	spanRecorder     *tracetest.SpanRecorder
)

// recordSpans installs a recording tracer provider once for the package; the
// global provider only delegates to the first one set.
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	spanRecorderOnce.Do(func() {
		spanRecorder = tracetest.NewSpanRecorder()
		otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spanRecorder)))
	})
	return spanRecorder
}

func spanAttr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestPressKeysRecordsSpanPerAppliedKey(t *testing.T) {
	recorder := recordSpans(t)
	api, _ := newTestAPI(t)
	sess := createSession(t, api)

	w := pressKeys(t, api, sess.SessionID, "1", "2", "÷", "0", "=")
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var parent sdktrace.ReadOnlySpan
	var keys []sdktrace.ReadOnlySpan
	for _, span := range recorder.Ended() {
		id, ok := spanAttr(span, "calculator.session_id")
		if span.Name() == "calculator.press_keys" && ok && id.AsString() == sess.SessionID {
			parent = span
		}
	}
	require.NotNil(t, parent)
	for _, span := range recorder.Ended() {
		if span.Parent().SpanID() == parent.SpanContext().SpanID() {
			keys = append(keys, span)
		}
	}
	require.Len(t, keys, 5)

	wantDisplays := []string{"1", "12", "12", "0", ErrorMarker}
	for i, span := range keys {
		display, ok := spanAttr(span, "calculator.key.display")
		require.True(t, ok, "key span %d has no display", i)
		assert.Equal(t, wantDisplays[i], display.AsString())
		assert.False(t, span.EndTime().Before(span.StartTime()))
		assert.False(t, span.EndTime().After(parent.EndTime()))
	}

	var sawError bool
	for _, ev := range parent.Events() {
		if ev.Name == "display.error" {
			sawError = true
		}
	}
	assert.True(t, sawError, "expected display.error event on the press_keys span")
}

func TestPressKeysOnErrorDisplayDoesNotRecordNewError(t *testing.T) {
	recorder := recordSpans(t)
	api, _ := newTestAPI(t)
	sess := createSession(t, api)

	pressKeys(t, api, sess.SessionID, "1", "/", "0", "=")
	w := pressKeys(t, api, sess.SessionID, "⌫", "±")
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	ended := recorder.Ended()
	last := ended[len(ended)-1]
	require.Equal(t, "calculator.press_keys", last.Name())
	for _, ev := range last.Events() {
		assert.NotEqual(t, "display.error", ev.Name)
	}
}
