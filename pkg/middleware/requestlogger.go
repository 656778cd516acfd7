package middleware

import (
	"log/slog"
	"net/http"

	"github.com/blackcave0/ecommerc-memonto/pkg/logger"
)

// RequestLogger stores a request-scoped logger in the context, enriched with
// the correlation id, the authenticated user, the cart session and the
// OpenTelemetry trace ids. Mount it after RequestLogging and Tracing, and
// again after Auth on protected routes so the user id is included.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if id := UserIDFromContext(ctx); id != "" {
				ctx = logger.WithUserID(ctx, id)
			}
			if id := r.Header.Get(CartSessionHeader); id != "" {
				ctx = logger.WithCartSession(ctx, id)
			}
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
