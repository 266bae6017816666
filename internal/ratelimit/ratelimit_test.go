package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_BurstThenRefill(t *testing.T) {
	now := time.Unix(1700000000, 0)
	m := NewMemory(3, time.Minute)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := m.Allow(ctx, "a")
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}
	ok, _ := m.Allow(ctx, "a")
	assert.False(t, ok)

	// other keys have their own bucket
	ok, _ = m.Allow(ctx, "b")
	assert.True(t, ok)

	now = now.Add(20 * time.Second)
	ok, _ = m.Allow(ctx, "a")
	assert.True(t, ok)
	ok, _ = m.Allow(ctx, "a")
	assert.False(t, ok)
}

func TestMemory_Sweep(t *testing.T) {
	now := time.Unix(1700000000, 0)
	m := NewMemory(5, time.Second)
	m.now = func() time.Time { return now }
	_, _ = m.Allow(context.Background(), "a")
	now = now.Add(30 * time.Second)
	_, _ = m.Allow(context.Background(), "b")

	assert.Equal(t, 0, m.Sweep())
	now = now.Add(45 * time.Second)
	assert.Equal(t, 1, m.Sweep())
	assert.Len(t, m.visitors, 1)
}

type fakeCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	ttls   map[string]time.Duration
	err    error
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{counts: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (f *fakeCounter) Incr(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeCounter) Expire(_ context.Context, key string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ttls[key] = ttl
	return nil
}

func TestRedis_FixedWindow(t *testing.T) {
	fc := newFakeCounter()
	r := newRedis(fc, 2, time.Minute)
	now := time.Unix(1700000040, 0).Truncate(time.Minute)
	r.now = func() time.Time { return now }
	ctx := context.Background()

	for _, want := range []bool{true, true, false, false} {
		ok, err := r.Allow(ctx, "guest|x")
		require.NoError(t, err)
		assert.Equal(t, want, ok)
	}
	require.Len(t, fc.ttls, 1)
	for _, ttl := range fc.ttls {
		assert.Equal(t, time.Minute, ttl)
	}

	now = now.Add(time.Minute)
	ok, err := r.Allow(ctx, "guest|x")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, fc.counts, 2)
}

func TestRedis_Error(t *testing.T) {
	fc := newFakeCounter()
	fc.err = errors.New("connection refused")
	r := newRedis(fc, 2, time.Minute)
	ok, err := r.Allow(context.Background(), "k")
	assert.False(t, ok)
	assert.ErrorContains(t, err, "connection refused")
}
