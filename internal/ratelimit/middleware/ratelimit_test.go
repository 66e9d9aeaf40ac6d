package middleware_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"immo/internal/ratelimit/middleware"
	"immo/internal/ratelimit/models"
	id "immo/pkg/domain"
	"immo/pkg/platform/circuit"
	"immo/pkg/requestcontext"
	"immo/pkg/testutil"
)

type stubLimiter struct {
	result *models.Result
	err    error
	calls  int
	last   struct {
		ip, userID string
		class      models.Class
	}
}

func (s *stubLimiter) Check(_ context.Context, ip, userID string, class models.Class) (*models.Result, error) {
	s.calls++
	s.last.ip, s.last.userID, s.last.class = ip, userID, class
	return s.result, s.err
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func serve(m *middleware.Middleware, method, path string, actor id.Actor) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	ctx := requestcontext.WithClientMetadata(req.Context(), "203.0.113.7", "test")
	ctx = requestcontext.WithActor(ctx, actor)
	rr := httptest.NewRecorder()
	m.Handler(okHandler).ServeHTTP(rr, req.WithContext(ctx))
	return rr
}

func TestClassFor(t *testing.T) {
	tests := []struct {
		method, path string
		want         models.Class
	}{
		{http.MethodGet, "/reservations/x", models.ClassRead},
		{http.MethodGet, "/contracts/x/signature-code", models.ClassRead},
		{http.MethodPost, "/contracts/x/signature-code", models.ClassSignature},
		{http.MethodPost, "/contracts/x/signature", models.ClassSignature},
		{http.MethodPost, "/reservations", models.ClassWrite},
		{http.MethodDelete, "/contracts/x/signature-block", models.ClassWrite},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, middleware.ClassFor(httptest.NewRequest(tt.method, tt.path, nil)))
		})
	}
}

func TestHandler(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	actor := id.Actor{UserID: id.UserID(uuid.New()), Roles: []id.Role{id.RoleClient}}

	t.Run("allowed request passes with headers", func(t *testing.T) {
		limiter := &stubLimiter{result: &models.Result{Allowed: true, Limit: 10, Remaining: 9, ResetAt: time.Unix(1700000000, 0)}}
		rr := serve(middleware.New(limiter, logger), http.MethodPost, "/reservations", actor)

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, "10", rr.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "9", rr.Header().Get("X-RateLimit-Remaining"))
		assert.Equal(t, "1700000000", rr.Header().Get("X-RateLimit-Reset"))
		assert.Equal(t, "203.0.113.7", limiter.last.ip)
		assert.Equal(t, actor.UserID.String(), limiter.last.userID)
		assert.Equal(t, models.ClassWrite, limiter.last.class)
	})

	t.Run("denied request gets 429 with retry after", func(t *testing.T) {
		limiter := &stubLimiter{result: &models.Result{Allowed: false, Limit: 10, RetryAfter: 42 * time.Second}}
		rr := serve(middleware.New(limiter, logger), http.MethodPost, "/contracts/x/signature", actor)

		testutil.AssertStatusAndError(t, rr, http.StatusTooManyRequests, "rate_limited")
		assert.Equal(t, "42", rr.Header().Get("Retry-After"))
	})

	t.Run("partial second of retry after is rounded up", func(t *testing.T) {
		limiter := &stubLimiter{result: &models.Result{Allowed: false, Limit: 10, RetryAfter: 41*time.Second + 200*time.Millisecond}}
		rr := serve(middleware.New(limiter, logger), http.MethodPost, "/reservations", actor)

		testutil.AssertStatusAndError(t, rr, http.StatusTooManyRequests, "rate_limited")
		assert.Equal(t, "42", rr.Header().Get("Retry-After"))
	})

	t.Run("disabled middleware never checks", func(t *testing.T) {
		limiter := &stubLimiter{}
		rr := serve(middleware.New(limiter, logger, middleware.WithDisabled(true)), http.MethodPost, "/reservations", actor)
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Zero(t, limiter.calls)
	})

	t.Run("primary failure fails open until the breaker opens", func(t *testing.T) {
		primary := &stubLimiter{err: errors.New("redis down")}
		fallback := &stubLimiter{result: &models.Result{Allowed: false, Limit: 5, RetryAfter: time.Second}}
		m := middleware.New(primary, logger,
			middleware.WithFallback(fallback),
			middleware.WithBreaker(circuit.New("test", circuit.WithFailureThreshold(2))),
		)

		rr := serve(m, http.MethodPost, "/reservations", actor)
		require.Equal(t, http.StatusNoContent, rr.Code)
		assert.Zero(t, fallback.calls)

		rr = serve(m, http.MethodPost, "/reservations", actor)
		testutil.AssertStatusAndError(t, rr, http.StatusTooManyRequests, "rate_limited")
		assert.Equal(t, "degraded", rr.Header().Get("X-RateLimit-Status"))
		assert.Equal(t, 1, fallback.calls)
	})
}
