package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Catalina-leal/Huertohogarapp/pkg/logger"
)

// EmailFunc resolves the shopper email to attach to request logs. It returns
// "" when nobody is logged in.
type EmailFunc func(ctx context.Context) string

// RequestLogger builds a request-scoped logger enriched with correlation_id,
// user_email, trace_id and span_id and stores it in the context for
// logger.FromContext. Mount it after RequestLogging and Tracing.
func RequestLogger(base *slog.Logger, email EmailFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			addr := EmailFromContext(ctx)
			if addr == "" && email != nil {
				addr = email(ctx)
			}
			if addr != "" {
				ctx = logger.WithUserEmail(ctx, addr)
			}

			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
