//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"immo/internal/signature/service"
	"immo/internal/signature/store"
	"immo/pkg/platform/sentinel"
	"immo/pkg/testutil/containers"
)

type RedisKVSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	kv    *store.Redis
	ctx   context.Context
}

func TestRedisKVSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisKVSuite))
}

func (s *RedisKVSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.kv = store.NewRedis(s.redis.Client, store.WithMaxRetries(50))
	s.ctx = context.Background()
}

func (s *RedisKVSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *RedisKVSuite) TestSetGetTTLDelete() {
	s.Require().NoError(s.kv.SetWithExpiry(s.ctx, "code:x", []byte("v"), 300*time.Second))

	v, err := s.kv.Get(s.ctx, "code:x")
	s.Require().NoError(err)
	s.Equal([]byte("v"), v)

	ttl, err := s.kv.TTLRemaining(s.ctx, "code:x")
	s.Require().NoError(err)
	s.InDelta(300*time.Second, ttl, float64(2*time.Second))

	exists, err := s.redis.Client.Exists(s.ctx, "immo:sig:code:x").Result()
	s.Require().NoError(err)
	s.Equal(int64(1), exists)

	s.Require().NoError(s.kv.Delete(s.ctx, "code:x"))
	_, err = s.kv.Get(s.ctx, "code:x")
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.kv.TTLRemaining(s.ctx, "code:x")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisKVSuite) TestNativeExpiry() {
	s.Require().NoError(s.kv.SetWithExpiry(s.ctx, "short", []byte("v"), 50*time.Millisecond))
	s.Eventually(func() bool {
		_, err := s.kv.Get(s.ctx, "short")
		return err != nil
	}, 2*time.Second, 20*time.Millisecond)
}

// TestAtomicCountsEveryIncrement runs concurrent read-modify-write cycles;
// WATCH must make every one of them land.
func (s *RedisKVSuite) TestAtomicCountsEveryIncrement() {
	const workers = 20
	var (
		wg      sync.WaitGroup
		failure atomic.Value
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.kv.Atomic(s.ctx, []string{"counter"}, func(ctx context.Context, ops service.KVOps) error {
				raw, err := ops.Get(ctx, "counter")
				n := 0
				if err == nil {
					n = len(raw)
				}
				return ops.SetWithExpiry(ctx, "counter", make([]byte, n+1), time.Minute)
			})
			if err != nil {
				failure.Store(err)
			}
		}()
	}
	wg.Wait()
	s.Nil(failure.Load())

	raw, err := s.kv.Get(s.ctx, "counter")
	s.Require().NoError(err)
	s.Len(raw, workers)
}

func (s *RedisKVSuite) TestAtomicStagedReads() {
	err := s.kv.Atomic(s.ctx, []string{"a"}, func(ctx context.Context, ops service.KVOps) error {
		s.Require().NoError(ops.SetWithExpiry(ctx, "a", []byte("1"), time.Minute))
		v, err := ops.Get(ctx, "a")
		s.Require().NoError(err)
		s.Equal([]byte("1"), v)
		s.Require().NoError(ops.Delete(ctx, "a"))
		_, err = ops.Get(ctx, "a")
		s.ErrorIs(err, sentinel.ErrNotFound)
		return nil
	})
	s.Require().NoError(err)
	_, err = s.kv.Get(s.ctx, "a")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
