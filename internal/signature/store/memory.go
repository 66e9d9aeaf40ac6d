package store

import (
	"context"
	"sync"
	"time"

	"immo/internal/signature/service"
	"immo/pkg/platform/sentinel"
	"immo/pkg/requestcontext"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

func (e entry) liveAt(now time.Time) bool {
	return now.Before(e.expiresAt)
}

// Memory is a single-instance KV. Expiry is evaluated lazily against the
// request time, so expired keys disappear on read without a sweeper.
type Memory struct {
	mu   sync.Mutex
	data map[string]entry
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]entry)}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(requestcontext.Now(ctx), key)
}

func (m *Memory) SetWithExpiry(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = entry{value: append([]byte(nil), value...), expiresAt: requestcontext.Now(ctx).Add(ttl)}
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *Memory) TTLRemaining(ctx context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ttl(requestcontext.Now(ctx), key)
}

// Atomic holds the store lock for the whole of fn, so it never needs a retry.
func (m *Memory) Atomic(ctx context.Context, _ []string, fn func(ctx context.Context, ops service.KVOps) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	staged := &memoryOps{m: m, now: requestcontext.Now(ctx), writes: make(map[string]*entry)}
	if err := fn(ctx, staged); err != nil {
		return err
	}
	for k, e := range staged.writes {
		if e == nil {
			delete(m.data, k)
			continue
		}
		m.data[k] = *e
	}
	return nil
}

func (m *Memory) get(now time.Time, key string) ([]byte, error) {
	e, ok := m.data[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if !e.liveAt(now) {
		delete(m.data, key)
		return nil, sentinel.ErrNotFound
	}
	return append([]byte(nil), e.value...), nil
}

func (m *Memory) ttl(now time.Time, key string) (time.Duration, error) {
	e, ok := m.data[key]
	if !ok || !e.liveAt(now) {
		return 0, sentinel.ErrNotFound
	}
	return e.expiresAt.Sub(now), nil
}

// memoryOps buffers writes until fn succeeds. A nil entry marks a delete.
// Callers already hold m.mu.
type memoryOps struct {
	m      *Memory
	now    time.Time
	writes map[string]*entry
}

func (o *memoryOps) Get(_ context.Context, key string) ([]byte, error) {
	if e, ok := o.writes[key]; ok {
		if e == nil {
			return nil, sentinel.ErrNotFound
		}
		return append([]byte(nil), e.value...), nil
	}
	return o.m.get(o.now, key)
}

func (o *memoryOps) SetWithExpiry(_ context.Context, key string, value []byte, ttl time.Duration) error {
	o.writes[key] = &entry{value: append([]byte(nil), value...), expiresAt: o.now.Add(ttl)}
	return nil
}

func (o *memoryOps) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		o.writes[k] = nil
	}
	return nil
}

func (o *memoryOps) TTLRemaining(_ context.Context, key string) (time.Duration, error) {
	if e, ok := o.writes[key]; ok {
		if e == nil {
			return 0, sentinel.ErrNotFound
		}
		return e.expiresAt.Sub(o.now), nil
	}
	return o.m.ttl(o.now, key)
}
