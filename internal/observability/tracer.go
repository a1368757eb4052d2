package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/c0dezer019/Presence"

// Tracer is resolved on each call so it follows the provider installed by Init.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

type TraceContext struct {
	TraceID string
	SpanID  string
}

// ExtractTrace returns nil when ctx carries no valid span.
func ExtractTrace(ctx context.Context) *TraceContext {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}

	return &TraceContext{
		TraceID: sc.TraceID().String(),
		SpanID:  sc.SpanID().String(),
	}
}
