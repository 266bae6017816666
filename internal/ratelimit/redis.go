package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// counter is the slice of the redis client a fixed window needs.
type counter interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

type redisCounter struct{ rdb *goredis.Client }

func (c redisCounter) Incr(ctx context.Context, key string) (int64, error) {
	return c.rdb.Incr(ctx, key).Result()
}

func (c redisCounter) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return c.rdb.Expire(ctx, key, ttl).Err()
}

// Redis is a fixed-window counter shared by every gateway replica.
type Redis struct {
	c      counter
	limit  int64
	window time.Duration
	prefix string
	now    func() time.Time
}

// NewRedis dials addr and checks it answers before returning.
func NewRedis(ctx context.Context, addr string, limit int, window time.Duration) (*Redis, func() error, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return newRedis(redisCounter{rdb: rdb}, limit, window), rdb.Close, nil
}

func newRedis(c counter, limit int, window time.Duration) *Redis {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Redis{c: c, limit: int64(limit), window: window, prefix: "ratelimit:", now: time.Now}
}

func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	bucket := r.now().UnixNano() / int64(r.window)
	k := r.prefix + key + ":" + strconv.FormatInt(bucket, 10)
	n, err := r.c.Incr(ctx, k)
	if err != nil {
		return false, fmt.Errorf("incr %s: %w", k, err)
	}
	if n == 1 {
		if err := r.c.Expire(ctx, k, r.window); err != nil {
			return false, fmt.Errorf("expire %s: %w", k, err)
		}
	}
	return n <= r.limit, nil
}
