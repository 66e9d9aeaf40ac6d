package bucket

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"immo/internal/ratelimit/models"
	"immo/pkg/requestcontext"
)

// slidingWindowScript trims the window, admits the request if room remains
// and returns {allowed, remaining, oldest score in ms}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
local allowed = 0
if count < limit then
  redis.call('ZADD', key, now, ARGV[4])
  redis.call('PEXPIRE', key, window)
  count = count + 1
  allowed = 1
end
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local first = now
if oldest[2] then
  first = tonumber(oldest[2])
end
return {allowed, limit - count, first}
`)

// RedisBucketStore keeps sliding windows in sorted sets so every instance
// shares the same counts.
type RedisBucketStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

func NewRedisBucketStore(client redis.UniversalClient, keyPrefix string) *RedisBucketStore {
	return &RedisBucketStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisBucketStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error) {
	now := requestcontext.Now(ctx)
	vals, err := slidingWindowScript.Run(ctx, s.client, []string{s.keyPrefix + key},
		now.UnixMilli(), window.Milliseconds(), limit, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit script: %w", err)
	}
	if len(vals) != 3 {
		return nil, fmt.Errorf("rate limit script: unexpected reply %v", vals)
	}

	resetAt := time.UnixMilli(vals[2]).Add(window)
	res := &models.Result{
		Allowed:   vals[0] == 1,
		Limit:     limit,
		Remaining: max(int(vals[1]), 0),
		ResetAt:   resetAt,
	}
	if !res.Allowed {
		res.RetryAfter = resetAt.Sub(now)
	}
	return res, nil
}

func (s *RedisBucketStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.keyPrefix+key).Err()
}
