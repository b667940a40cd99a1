package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/core/domain"
)

const trustResultPrefix = "trust:result:"

// RedisResultCache stores the latest TrustResult per user as JSON with a TTL.
type RedisResultCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisResultCache(client redis.Cmdable, ttl time.Duration) *RedisResultCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisResultCache{client: client, ttl: ttl}
}

func trustResultKey(userID string) string {
	return trustResultPrefix + userID
}

// GetTrustResult returns nil, nil on a miss.
func (c *RedisResultCache) GetTrustResult(ctx context.Context, userID string) (*domain.TrustResult, error) {
	raw, err := c.client.Get(ctx, trustResultKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached trust result: %w", err)
	}
	var result domain.TrustResult
	if err := json.Unmarshal(raw, &result); err != nil {
		// Corrupt entries are dropped and treated as a miss.
		_ = c.client.Del(ctx, trustResultKey(userID)).Err()
		return nil, nil
	}
	return &result, nil
}

func (c *RedisResultCache) SetTrustResult(ctx context.Context, result domain.TrustResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode trust result: %w", err)
	}
	return c.client.Set(ctx, trustResultKey(result.UserID), raw, c.ttl).Err()
}

func (c *RedisResultCache) InvalidateTrustResult(ctx context.Context, userID string) error {
	return c.client.Del(ctx, trustResultKey(userID)).Err()
}
