// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets the values, services and handlers read them:
//
//	caller := requestcontext.Caller(ctx)
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
//
// Tests inject values directly:
//
//	ctx = requestcontext.WithCaller(ctx, requestcontext.CallerInfo{UserID: "u1", Role: requestcontext.RoleAdmin})
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"
)

type (
	callerKey      struct{}
	clientIPKey    struct{}
	userAgentKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

var (
	ContextKeyCaller      = callerKey{}
	ContextKeyClientIP    = clientIPKey{}
	ContextKeyUserAgent   = userAgentKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// Role is the coarse authorization role resolved by the auth collaborator.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// CallerInfo is the authenticated identity attached to a request.
type CallerInfo struct {
	UserID string
	Email  string
	Role   Role
}

// IsAuthenticated reports whether a caller identity is present.
func (c CallerInfo) IsAuthenticated() bool {
	return c.UserID != ""
}

// IsAdmin reports whether the caller holds the admin role.
func (c CallerInfo) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// -----------------------------------------------------------------------------
// Caller
// -----------------------------------------------------------------------------

// Caller retrieves the authenticated caller. The zero value means anonymous.
func Caller(ctx context.Context) CallerInfo {
	if c, ok := ctx.Value(ContextKeyCaller).(CallerInfo); ok {
		return c
	}
	return CallerInfo{}
}

// WithCaller injects the authenticated caller into the context.
func WithCaller(ctx context.Context, caller CallerInfo) context.Context {
	return context.WithValue(ctx, ContextKeyCaller, caller)
}

// -----------------------------------------------------------------------------
// Client metadata (IP, User-Agent)
// -----------------------------------------------------------------------------

// ClientIP retrieves the client IP address from the context.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(ContextKeyClientIP).(string); ok {
		return ip
	}
	return ""
}

// UserAgent retrieves the User-Agent from the context.
func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(ContextKeyUserAgent).(string); ok {
		return ua
	}
	return ""
}

// WithClientMetadata injects client IP and User-Agent into a context.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyClientIP, clientIP)
	ctx = context.WithValue(ctx, ContextKeyUserAgent, userAgent)
	return ctx
}

// -----------------------------------------------------------------------------
// Request metadata
// -----------------------------------------------------------------------------

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
// Falls back to time.Now() outside HTTP requests (workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
