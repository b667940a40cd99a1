package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const debouncePrefix = "scoring:debounce:"

// RedisDebouncer admits one caller per key per window using SET NX.
type RedisDebouncer struct {
	client redis.Cmdable
}

func NewRedisDebouncer(client redis.Cmdable) *RedisDebouncer {
	return &RedisDebouncer{client: client}
}

// Acquire reports whether the caller won the window for key.
func (d *RedisDebouncer) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := d.client.SetNX(ctx, debouncePrefix+key, time.Now().UTC().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("debounce %s: %w", key, err)
	}
	return ok, nil
}
