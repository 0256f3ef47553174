package ctxutil

import (
	"context"

	"github.com/axonbase/extcore/nanoid"
)

type contextKey string

// TraceIDKey is the context key under which a request trace ID travels.
const TraceIDKey contextKey = "trace_id"

// GetTraceID gets the trace id from the context, or "" when absent.
func GetTraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// SetTraceID sets the trace id on the context.
func SetTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// EnsureTraceID ensures that a trace ID exists in the context, minting one
// when absent.
func EnsureTraceID(ctx context.Context) (context.Context, string) {
	if traceID := GetTraceID(ctx); traceID != "" {
		return ctx, traceID
	}
	traceID := nanoid.Lower()
	return SetTraceID(ctx, traceID), traceID
}
