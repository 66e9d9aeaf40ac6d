//go:build integration

package bucket_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"immo/internal/ratelimit/store/bucket"
	"immo/pkg/requestcontext"
	"immo/pkg/testutil/containers"
)

type RedisBucketStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *bucket.RedisBucketStore
}

func TestRedisBucketStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisBucketStoreSuite))
}

func (s *RedisBucketStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = bucket.NewRedisBucketStore(s.redis.Client, "immo:rl:")
}

func (s *RedisBucketStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisBucketStoreSuite) TestSlidingWindow() {
	t0 := time.Now().Truncate(time.Millisecond)
	at := func(d time.Duration) context.Context {
		return requestcontext.WithTime(context.Background(), t0.Add(d))
	}

	for i := range 3 {
		res, err := s.store.Allow(at(time.Duration(i)*time.Second), "ip:write:1.2.3.4", 3, time.Minute)
		s.Require().NoError(err)
		s.True(res.Allowed)
		s.Equal(2-i, res.Remaining)
	}

	res, err := s.store.Allow(at(10*time.Second), "ip:write:1.2.3.4", 3, time.Minute)
	s.Require().NoError(err)
	s.False(res.Allowed)
	s.Equal(50*time.Second, res.RetryAfter)
	s.Equal(t0.Add(time.Minute), res.ResetAt)

	res, err = s.store.Allow(at(time.Minute+time.Millisecond), "ip:write:1.2.3.4", 3, time.Minute)
	s.Require().NoError(err)
	s.True(res.Allowed)

	exists, err := s.redis.Client.Exists(context.Background(), "immo:rl:ip:write:1.2.3.4").Result()
	s.Require().NoError(err)
	s.Equal(int64(1), exists)

	s.Require().NoError(s.store.Reset(context.Background(), "ip:write:1.2.3.4"))
	exists, err = s.redis.Client.Exists(context.Background(), "immo:rl:ip:write:1.2.3.4").Result()
	s.Require().NoError(err)
	s.Zero(exists)
}
