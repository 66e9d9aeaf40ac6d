package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	dErrors "immo/pkg/domain-errors"
	"immo/pkg/platform/httputil"
	"immo/pkg/requestcontext"
)

// RequireAdminToken guards operator endpoints such as /metrics with a static
// token sent in X-Admin-Token. An empty expected token leaves the route open.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if expectedToken == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Admin-Token")
			if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin token required"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
