// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Middleware sets them; services read them; tests
// inject them without running the HTTP chain.
package requestcontext

import (
	"context"
	"time"

	id "balangay/pkg/domain"
)

type (
	principalIDKey struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for tests that need context.WithValue directly.
var (
	ContextKeyPrincipalID = principalIDKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// PrincipalID retrieves the authenticated principal ID from the context.
// Returns the zero value (nil UUID) if not set.
func PrincipalID(ctx context.Context) id.PrincipalID {
	if pid, ok := ctx.Value(ContextKeyPrincipalID).(id.PrincipalID); ok {
		return pid
	}
	return id.PrincipalID{}
}

// WithPrincipalID injects the authenticated principal ID into the context.
func WithPrincipalID(ctx context.Context, pid id.PrincipalID) context.Context {
	return context.WithValue(ctx, ContextKeyPrincipalID, pid)
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

// Now retrieves the request-scoped time from context. Falls back to
// time.Now() for non-HTTP contexts (workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Useful for service unit
// tests and batch operations that need a consistent timestamp.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
