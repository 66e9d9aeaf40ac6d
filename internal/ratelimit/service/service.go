// Package service applies per-class request limits to client IPs and users.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"immo/internal/ratelimit/models"
)

// BucketStore counts requests in a sliding window.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error)
	Reset(ctx context.Context, key string) error
}

type Service struct {
	buckets BucketStore
	limits  map[models.Class]models.Limit
	logger  *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithLimit sets the limit of one class. Classes without a limit are not checked.
func WithLimit(class models.Class, limit models.Limit) Option {
	return func(s *Service) { s.limits[class] = limit }
}

func New(buckets BucketStore, opts ...Option) (*Service, error) {
	if buckets == nil {
		return nil, fmt.Errorf("bucket store is required")
	}
	s := &Service{
		buckets: buckets,
		limits:  make(map[models.Class]models.Limit),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	for class, l := range s.limits {
		if l.Requests < 1 || l.Window <= 0 {
			return nil, fmt.Errorf("invalid %s limit: %d per %s", class, l.Requests, l.Window)
		}
	}
	return s, nil
}

// Check counts the request against the IP bucket and, for authenticated
// callers, the user bucket. The more restrictive result wins; a denied IP
// check does not consume from the user bucket.
func (s *Service) Check(ctx context.Context, ip, userID string, class models.Class) (*models.Result, error) {
	limit, ok := s.limits[class]
	if !ok {
		return &models.Result{Allowed: true}, nil
	}

	ipRes, err := s.buckets.Allow(ctx, models.IPKey(ip, class), limit.Requests, limit.Window)
	if err != nil {
		return nil, err
	}
	if !ipRes.Allowed || userID == "" {
		s.logDenied(ctx, ipRes, class, "ip")
		return ipRes, nil
	}

	userRes, err := s.buckets.Allow(ctx, models.UserKey(userID, class), limit.Requests, limit.Window)
	if err != nil {
		return nil, err
	}
	s.logDenied(ctx, userRes, class, "user")
	if !userRes.Allowed || userRes.Remaining < ipRes.Remaining {
		return userRes, nil
	}
	return ipRes, nil
}

func (s *Service) logDenied(ctx context.Context, res *models.Result, class models.Class, scope string) {
	if res.Allowed {
		return
	}
	s.logger.InfoContext(ctx, "rate limit exceeded",
		"class", class,
		"scope", scope,
		"retry_after", res.RetryAfter,
	)
}
