package middleware

import (
	"context"
	"net"
	"net/http"
)

// Context key type to avoid collisions
type contextKey string

const (
	// IdentityKey is the context key for the client identity
	IdentityKey contextKey = "identity"
)

// APIKeyHeader is the shared-secret header checked on protected routes.
const APIKeyHeader = "X-API-Key"

// WithIdentity adds the client identity to the context
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

// GetIdentityFromContext retrieves the client identity from context
func GetIdentityFromContext(ctx context.Context) string {
	if val := ctx.Value(IdentityKey); val != nil {
		if identity, ok := val.(string); ok {
			return identity
		}
	}
	return ""
}

// Identity resolves the client identity for rate limiting: the presented API
// key when there is one, otherwise the client network address.
func Identity(r *http.Request) string {
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return key
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
