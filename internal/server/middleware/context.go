package middleware

import (
	"context"

	"user-account-service/internal/security"
)

type contextKey struct{ name string }

var (
	claimsKey = contextKey{"token_claims"}
	callerKey = contextKey{"caller"}
	clientIP  = contextKey{"client_ip"}
)

// Caller is the authenticated user behind a request, resolved from the store.
type Caller struct {
	ID    string
	Email string
	Role  string
}

// WithClaims returns a context carrying the verified access token claims.
func WithClaims(ctx context.Context, claims *security.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// GetClaims returns the verified access token claims and true if set; otherwise nil, false.
func GetClaims(ctx context.Context) (*security.Claims, bool) {
	v, ok := ctx.Value(claimsKey).(*security.Claims)
	return v, ok && v != nil
}

// WithCaller returns a context with the resolved caller set.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey, c)
}

// GetCaller returns the resolved caller and true if set; otherwise a zero Caller, false.
func GetCaller(ctx context.Context) (Caller, bool) {
	v, ok := ctx.Value(callerKey).(Caller)
	return v, ok
}

// WithClientIP returns a context with the request's client IP set.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIP, ip)
}

// ClientIP returns the client IP stored by ClientIPMiddleware, or "unknown".
func ClientIP(ctx context.Context) string {
	if v, ok := ctx.Value(clientIP).(string); ok && v != "" {
		return v
	}
	return "unknown"
}
