// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets these values; services read them without importing net/http.
//
// Usage in services (read values):
//
//	actor := requestcontext.Actor(ctx)
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithActor(ctx, "fleet-ops@example.com")
package requestcontext

import (
	"context"
	"time"
)

type (
	actorKey       struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyActor       = actorKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// Actor retrieves the authenticated actor identity recorded on history rows.
func Actor(ctx context.Context) string {
	if actor, ok := ctx.Value(ContextKeyActor).(string); ok {
		return actor
	}
	return ""
}

// WithActor injects the actor identity into the context.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ContextKeyActor, actor)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (workers, relays, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context so that every timestamp
// written during one registration batch is identical.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
