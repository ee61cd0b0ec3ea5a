package appcontext

import (
	"context"
)

type EXECUTION_CONTEXT string

var (
	CorrelationKey EXECUTION_CONTEXT = "correlationId"
)

// WithCorrelationId stores the request correlation id used for outbound engine calls and logs.
func WithCorrelationId(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationKey, id)
}

func CorrelationIdFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(CorrelationKey).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
