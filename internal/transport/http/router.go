package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	ratelimitmw "immo/internal/ratelimit/middleware"
	saleshandler "immo/internal/sales/handler"
	signaturehandler "immo/internal/signature/handler"
	"immo/pkg/platform/httputil"
	"immo/pkg/platform/middleware/admin"
	"immo/pkg/platform/middleware/auth"
	"immo/pkg/platform/middleware/device"
	"immo/pkg/platform/middleware/metadata"
	"immo/pkg/platform/middleware/request"
	"immo/pkg/platform/middleware/requesttime"
)

// HealthCheck reports whether one dependency answers.
type HealthCheck func(ctx context.Context) error

// Dependencies are the collaborators the router mounts. Metrics, RateLimit
// and Observer are optional.
type Dependencies struct {
	Sales     saleshandler.Service
	Signature signaturehandler.Service
	Tokens    auth.JWTValidator
	RateLimit *ratelimitmw.Middleware
	Observer  request.Observer
	Metrics   http.Handler
	Health    map[string]HealthCheck
	Logger    *slog.Logger

	MetricsToken string
	CORSOrigins  []string
}

// NewRouter wires the middleware chain, the operational endpoints and the
// authenticated API.
func NewRouter(d Dependencies) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recover(logger))
	r.Use(request.AccessLog(logger, d.Observer))
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(device.Middleware)
	if len(d.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: d.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowedHeaders: []string{"Authorization", "Content-Type", request.HeaderRequestID},
			ExposedHeaders: []string{"Retry-After", request.HeaderRequestID,
				"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
			MaxAge: 300,
		}))
	}

	r.Get("/healthz", healthHandler(d.Health))
	if d.Metrics != nil {
		r.With(admin.RequireAdminToken(d.MetricsToken, logger)).Handle("/metrics", d.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(d.Tokens, logger))
		if d.RateLimit != nil {
			r.Use(d.RateLimit.Handler)
		}
		saleshandler.New(d.Sales, logger).Register(r)
		signaturehandler.New(d.Signature, logger).Register(r)
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
