package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"immo/internal/signature/service"
	"immo/pkg/platform/sentinel"
)

const (
	defaultKeyPrefix  = "immo:sig:"
	defaultMaxRetries = 5
)

// Redis is the shared KV for multi-instance deployments. Keys carry native
// TTLs; Atomic uses WATCH/MULTI so concurrent verifications of one contract
// serialize.
type Redis struct {
	client     redis.UniversalClient
	prefix     string
	maxRetries int
}

type RedisOption func(*Redis)

func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

func WithMaxRetries(n int) RedisOption {
	return func(r *Redis) {
		if n > 0 {
			r.maxRetries = n
		}
	}
}

func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{client: client, prefix: defaultKeyPrefix, maxRetries: defaultMaxRetries}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Redis) key(k string) string {
	return r.prefix + k
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	return get(ctx, r.client, r.key(key))
}

func (r *Redis) SetWithExpiry(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, r.key(key), value, ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, r.keys(keys)...).Err()
}

func (r *Redis) TTLRemaining(ctx context.Context, key string) (time.Duration, error) {
	return ttl(ctx, r.client, r.key(key))
}

// Atomic watches keys, runs fn against the watched connection and commits
// its staged writes in one MULTI. A lost race reruns fn; after maxRetries it
// reports sentinel.ErrContention.
func (r *Redis) Atomic(ctx context.Context, keys []string, fn func(ctx context.Context, ops service.KVOps) error) error {
	for range r.maxRetries {
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			ops := &redisOps{r: r, reader: tx}
			if err := fn(ctx, ops); err != nil {
				return err
			}
			if len(ops.writes) == 0 {
				return nil
			}
			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for _, w := range ops.writes {
					if w.del {
						pipe.Del(ctx, w.key)
						continue
					}
					pipe.Set(ctx, w.key, w.value, w.ttl)
				}
				return nil
			})
			return err
		}, r.keys(keys)...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("signature keys %v: %w", keys, sentinel.ErrContention)
}

func (r *Redis) keys(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = r.key(k)
	}
	return out
}

type stagedWrite struct {
	key   string
	value []byte
	ttl   time.Duration
	del   bool
}

// redisOps reads through the watched connection and stages writes in order.
type redisOps struct {
	r      *Redis
	reader redis.Cmdable
	writes []stagedWrite
}

func (o *redisOps) staged(key string) (stagedWrite, bool) {
	for i := len(o.writes) - 1; i >= 0; i-- {
		if o.writes[i].key == key {
			return o.writes[i], true
		}
	}
	return stagedWrite{}, false
}

func (o *redisOps) Get(ctx context.Context, key string) ([]byte, error) {
	k := o.r.key(key)
	if w, ok := o.staged(k); ok {
		if w.del {
			return nil, sentinel.ErrNotFound
		}
		return w.value, nil
	}
	return get(ctx, o.reader, k)
}

func (o *redisOps) SetWithExpiry(_ context.Context, key string, value []byte, ttl time.Duration) error {
	o.writes = append(o.writes, stagedWrite{key: o.r.key(key), value: value, ttl: ttl})
	return nil
}

func (o *redisOps) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		o.writes = append(o.writes, stagedWrite{key: o.r.key(k), del: true})
	}
	return nil
}

func (o *redisOps) TTLRemaining(ctx context.Context, key string) (time.Duration, error) {
	k := o.r.key(key)
	if w, ok := o.staged(k); ok {
		if w.del {
			return 0, sentinel.ErrNotFound
		}
		return w.ttl, nil
	}
	return ttl(ctx, o.reader, k)
}

func get(ctx context.Context, c redis.Cmdable, key string) ([]byte, error) {
	val, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// ttl maps PTTL's -2 (missing) to ErrNotFound. Keys are always written with
// an expiry, so -1 only appears for foreign keys and is reported as zero.
func ttl(ctx context.Context, c redis.Cmdable, key string) (time.Duration, error) {
	d, err := c.PTTL(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	switch {
	case d == -2 || d == -2*time.Millisecond:
		return 0, sentinel.ErrNotFound
	case d < 0:
		return 0, nil
	}
	return d, nil
}
