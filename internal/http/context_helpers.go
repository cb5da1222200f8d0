package httpx

import (
	"context"

	"github.com/target/stockcam/internal/service"
)

// Unexported context key types avoid collisions across packages.
type (
	requestIDKey struct{}
	decisionKey  struct{}
)

// SetRequestIDInContext returns a child context that carries id.
func SetRequestIDInContext(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// GetRequestIDFromContext returns the request id, or "" outside a request.
func GetRequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// SetDecisionInContext records the guard decision that admitted the request.
func SetDecisionInContext(ctx context.Context, d service.Decision) context.Context {
	return context.WithValue(ctx, decisionKey{}, d)
}

// GetDecisionFromContext returns the guard decision and whether the guard ran.
func GetDecisionFromContext(ctx context.Context) (service.Decision, bool) {
	d, ok := ctx.Value(decisionKey{}).(service.Decision)
	return d, ok
}
