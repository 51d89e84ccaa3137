package context

import (
	"context"

	"cannapos/internal/core/id"
)

// TraceContext correlates log lines of one request.
type TraceContext struct {
	TraceID   string
	RequestID string
}

type traceContextKey struct{}

// NewTrace builds a TraceContext, generating any id the caller did not
// supply.
func NewTrace(traceID, requestID string) *TraceContext {
	if traceID == "" {
		traceID = id.String()
	}
	if requestID == "" {
		requestID = id.String()
	}
	return &TraceContext{TraceID: traceID, RequestID: requestID}
}

// WithTrace stores trace in ctx.
func WithTrace(ctx context.Context, trace *TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, trace)
}

// GetTrace returns the request trace, or nil outside a request.
func GetTrace(ctx context.Context) *TraceContext {
	if v, ok := ctx.Value(traceContextKey{}).(*TraceContext); ok {
		return v
	}
	return nil
}
