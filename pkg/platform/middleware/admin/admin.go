// Package admin guards operator-only endpoints with a shared token.
package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	request "carreg/pkg/platform/middleware/request"
	"carreg/pkg/requestcontext"
)

// HeaderAdminToken carries the operator token.
const HeaderAdminToken = "X-Admin-Token"

// RequireAdminToken rejects requests without the expected operator token.
// An empty expected token disables every guarded route.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(HeaderAdminToken)
			if expectedToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", request.GetRequestID(ctx),
					"actor", requestcontext.Actor(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"admin token required"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
