// Package requestcontext carries request-scoped values (request ID, client IP
// and the authenticated caller) through context.Context.
package requestcontext

import (
	"context"

	id "legitify/pkg/domain"
)

type (
	requestIDKey struct{}
	clientIPKey  struct{}
	callerKey    struct{}
	clientKey    struct{}
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the request ID or "" when none was set.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func ClientIP(ctx context.Context) string {
	v, _ := ctx.Value(clientIPKey{}).(string)
	return v
}

// WithCaller stores the authenticated caller.
func WithCaller(ctx context.Context, caller id.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// Caller returns the authenticated caller. The zero Caller is returned for
// unauthenticated requests.
func Caller(ctx context.Context) id.Caller {
	v, _ := ctx.Value(callerKey{}).(id.Caller)
	return v
}

// WithClient stores a short description of the calling client.
func WithClient(ctx context.Context, client string) context.Context {
	return context.WithValue(ctx, clientKey{}, client)
}

func Client(ctx context.Context) string {
	v, _ := ctx.Value(clientKey{}).(string)
	return v
}
