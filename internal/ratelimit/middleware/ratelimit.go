// Package middleware enforces request rate limits on HTTP routes.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"immo/internal/ratelimit/models"
	dErrors "immo/pkg/domain-errors"
	"immo/pkg/platform/circuit"
	"immo/pkg/platform/httputil"
	"immo/pkg/requestcontext"
)

// Limiter is satisfied by the rate limit service.
type Limiter interface {
	Check(ctx context.Context, ip, userID string, class models.Class) (*models.Result, error)
}

// Middleware checks every request against the primary limiter. After
// repeated primary failures the breaker opens and the fallback limiter
// answers; responses then carry X-RateLimit-Status: degraded.
type Middleware struct {
	primary  Limiter
	fallback Limiter
	breaker  *circuit.Breaker
	logger   *slog.Logger
	disabled bool
}

type Option func(*Middleware)

func WithDisabled(disabled bool) Option {
	return func(m *Middleware) { m.disabled = disabled }
}

func WithFallback(l Limiter) Option {
	return func(m *Middleware) { m.fallback = l }
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(m *Middleware) { m.breaker = b }
}

func New(primary Limiter, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{primary: primary, logger: logger}
	for _, opt := range opts {
		opt(m)
	}
	if m.breaker == nil {
		m.breaker = circuit.New("rate-limit")
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// ClassFor maps a request to its limit class. Code issuance and submission
// share the signature class.
func ClassFor(r *http.Request) models.Class {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return models.ClassRead
	}
	if r.Method == http.MethodPost &&
		(strings.HasSuffix(r.URL.Path, "/signature-code") || strings.HasSuffix(r.URL.Path, "/signature")) {
		return models.ClassSignature
	}
	return models.ClassWrite
}

// Handler limits by client IP and, once authenticated, by user.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		ip := requestcontext.ClientIP(ctx)
		var userID string
		if actor := requestcontext.Actor(ctx); !actor.IsAnonymous() {
			userID = actor.UserID.String()
		}
		class := ClassFor(r)

		result, degraded := m.check(ctx, ip, userID, class)
		if result == nil {
			next.ServeHTTP(w, r)
			return
		}
		addHeaders(w, result)
		if degraded {
			w.Header().Set("X-RateLimit-Status", "degraded")
		}
		if !result.Allowed {
			httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests").
				WithRetryAfter(result.RetryAfter))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// check returns nil when no limiter could answer; the request then passes.
func (m *Middleware) check(ctx context.Context, ip, userID string, class models.Class) (*models.Result, bool) {
	result, err := m.primary.Check(ctx, ip, userID, class)
	if err == nil {
		if _, change := m.breaker.RecordSuccess(); change.Closed {
			m.logger.InfoContext(ctx, "rate limiter recovered", "breaker", m.breaker.Name())
		}
		return result, false
	}

	useFallback, change := m.breaker.RecordFailure()
	if change.Opened {
		m.logger.WarnContext(ctx, "rate limiter degraded, using in-memory fallback",
			"breaker", m.breaker.Name(),
			"error", err,
		)
	} else {
		m.logger.ErrorContext(ctx, "rate limit check failed", "class", class, "error", err)
	}
	if !useFallback || m.fallback == nil {
		return nil, false
	}
	result, err = m.fallback.Check(ctx, ip, userID, class)
	if err != nil {
		m.logger.ErrorContext(ctx, "fallback rate limit check failed", "error", err)
		return nil, true
	}
	return result, true
}

func addHeaders(w http.ResponseWriter, result *models.Result) {
	if result.Limit == 0 {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}
