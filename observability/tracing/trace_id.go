package tracing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rise-and-shine/pgbulk/meta"
	"go.opentelemetry.io/otel/trace"
)

// GetStartingTraceID returns the trace ID of the span in ctx, or a generated
// "man-<uuid>" ID when tracing is disabled so log lines still correlate.
func GetStartingTraceID(ctx context.Context) string {
	traceID := trace.SpanFromContext(ctx).SpanContext().TraceID()
	if traceID.IsValid() {
		return traceID.String()
	}
	return fmt.Sprintf("man-%s", uuid.New().String())
}

// WithTraceID stores the starting trace ID in ctx under meta.TraceID unless
// one is already present.
func WithTraceID(ctx context.Context) context.Context {
	if _, err := meta.ShouldGetMeta(ctx, meta.TraceID); err == nil {
		return ctx
	}
	return meta.InjectMetaToContext(ctx, map[meta.ContextKey]string{
		meta.TraceID: GetStartingTraceID(ctx),
	})
}
