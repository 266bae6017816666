// Package ratelimit throttles anonymous callers by a per-caller key.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter reports whether one more request for key is allowed right now.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Memory is a token bucket per key, refilled at limit per window with a
// burst of limit. Idle keys are swept.
type Memory struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	every    rate.Limit
	burst    int
	expiry   time.Duration
	now      func() time.Time
}

func NewMemory(limit int, window time.Duration) *Memory {
	if limit <= 0 {
		limit = 1
	}
	expiry := window * 3
	if expiry < time.Minute {
		expiry = time.Minute
	}
	return &Memory{
		visitors: map[string]*visitor{},
		every:    rate.Every(window / time.Duration(limit)),
		burst:    limit,
		expiry:   expiry,
		now:      time.Now,
	}
}

func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	now := m.now()
	m.mu.Lock()
	v, ok := m.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(m.every, m.burst)}
		m.visitors[key] = v
	}
	v.lastSeen = now
	m.mu.Unlock()
	return v.limiter.AllowN(now, 1), nil
}

// Sweep drops keys idle for longer than the expiry.
func (m *Memory) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, v := range m.visitors {
		if now.Sub(v.lastSeen) > m.expiry {
			delete(m.visitors, k)
			n++
		}
	}
	return n
}

// Run sweeps once a minute until ctx is cancelled.
func (m *Memory) Run(ctx context.Context) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Sweep()
		}
	}
}
