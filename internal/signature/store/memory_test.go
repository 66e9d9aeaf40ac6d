package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"immo/internal/signature/service"
	"immo/pkg/platform/sentinel"
	"immo/pkg/requestcontext"
)

var t0 = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func at(d time.Duration) context.Context {
	return requestcontext.WithTime(context.Background(), t0.Add(d))
}

func TestMemoryExpiresLazily(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.SetWithExpiry(at(0), "code:a", []byte("x"), 300*time.Second))

	v, err := m.Get(at(299*time.Second), "code:a")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), v)

	ttl, err := m.TTLRemaining(at(100*time.Second), "code:a")
	require.NoError(t, err)
	assert.Equal(t, 200*time.Second, ttl)

	_, err = m.Get(at(300*time.Second), "code:a")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	_, err = m.TTLRemaining(at(300*time.Second), "code:a")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMemoryAtomicCommitsOnSuccess(t *testing.T) {
	m := NewMemory()
	ctx := at(0)
	require.NoError(t, m.SetWithExpiry(ctx, "a", []byte("1"), time.Minute))

	err := m.Atomic(ctx, []string{"a", "b"}, func(ctx context.Context, ops service.KVOps) error {
		require.NoError(t, ops.Delete(ctx, "a"))
		_, err := ops.Get(ctx, "a")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)

		require.NoError(t, ops.SetWithExpiry(ctx, "b", []byte("2"), time.Minute))
		v, err := ops.Get(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, []byte("2"), v)
		ttl, err := ops.TTLRemaining(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, time.Minute, ttl)
		return nil
	})
	require.NoError(t, err)

	_, err = m.Get(ctx, "a")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	v, err := m.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), v)
}

func TestMemoryAtomicDiscardsOnError(t *testing.T) {
	m := NewMemory()
	ctx := at(0)
	require.NoError(t, m.SetWithExpiry(ctx, "a", []byte("1"), time.Minute))
	boom := errors.New("boom")

	err := m.Atomic(ctx, []string{"a"}, func(ctx context.Context, ops service.KVOps) error {
		require.NoError(t, ops.Delete(ctx, "a"))
		require.NoError(t, ops.SetWithExpiry(ctx, "b", []byte("2"), time.Minute))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = m.Get(ctx, "a")
	assert.NoError(t, err)
	_, err = m.Get(ctx, "b")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMemoryValuesAreCopied(t *testing.T) {
	m := NewMemory()
	ctx := at(0)
	buf := []byte("abc")
	require.NoError(t, m.SetWithExpiry(ctx, "k", buf, time.Minute))
	buf[0] = 'z'

	v, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(v))
}
