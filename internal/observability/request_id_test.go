package observability

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestNewRequestIDReturnsDistinctUUIDs(t *testing.T) {
	first, second := NewRequestID(), NewRequestID()

	for _, id := range []string{first, second} {
		if _, err := uuid.Parse(id); err != nil {
			t.Fatalf("expected valid UUID, got %q: %v", id, err)
		}
	}
	if first == second {
		t.Fatalf("expected distinct request ids, got %q twice", first)
	}
}

func TestRequestIDFromContext(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{name: "stored", ctx: ContextWithRequestID(context.Background(), "abc-123"), want: "abc-123"},
		{name: "missing", ctx: context.Background(), want: ""},
		{name: "wrong type", ctx: context.WithValue(context.Background(), RequestIDKey, 42), want: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := RequestIDFromContext(tc.ctx); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestServiceNameDefaultsAndOverrides(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "")
	if got := ServiceName(); got != "calculator-api" {
		t.Fatalf("expected default service name, got %q", got)
	}

	t.Setenv("OTEL_SERVICE_NAME", "keypad")
	if got := ServiceName(); got != "keypad" {
		t.Fatalf("expected %q, got %q", "keypad", got)
	}
}
