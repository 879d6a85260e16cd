// Package metadata records where a request came from so failures can be
// traced back to a dealer system.
package metadata

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type clientKey struct{}

type client struct {
	ip        string
	userAgent string
}

// ClientMetadata stores the caller IP and User-Agent in the request context.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithClientMetadata(r.Context(), ClientIPFromRequest(r), r.Header.Get("User-Agent"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithClientMetadata injects caller metadata, for tests that bypass the middleware.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	return context.WithValue(ctx, clientKey{}, client{ip: clientIP, userAgent: userAgent})
}

func GetClientIP(ctx context.Context) string {
	c, _ := ctx.Value(clientKey{}).(client)
	return c.ip
}

func GetUserAgent(ctx context.Context) string {
	c, _ := ctx.Value(clientKey{}).(client)
	return c.userAgent
}

// ClientIPFromRequest prefers the first X-Forwarded-For hop, then X-Real-IP,
// then the connection address without its port.
func ClientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
