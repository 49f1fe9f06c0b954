package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"referral-backend/internal/platform/redis"
)

type CacheService struct {
	redisClient *redis.Client
}

func NewCacheService(redisClient *redis.Client) *CacheService {
	return &CacheService{
		redisClient: redisClient,
	}
}

// Get reads a JSON value from the cache into dest.
func (c *CacheService) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.redisClient.Get(ctx, key).Result()
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(data), dest)
}

// Set stores a JSON value with a TTL.
func (c *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return c.redisClient.Set(ctx, key, string(data), ttl).Err()
}

// Delete removes a key.
func (c *CacheService) Delete(ctx context.Context, key string) error {
	return c.redisClient.Del(ctx, key).Err()
}

// DeletePattern removes all keys matching a pattern.
func (c *CacheService) DeletePattern(ctx context.Context, pattern string) error {
	keys, err := c.redisClient.Keys(ctx, pattern).Result()
	if err != nil {
		return err
	}

	if len(keys) > 0 {
		return c.redisClient.Del(ctx, keys...).Err()
	}

	return nil
}

// GetOrSet reads from the cache, calling setter and caching on a miss.
func (c *CacheService) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, setter func() (interface{}, error)) error {
	err := c.Get(ctx, key, dest)
	if err == nil {
		return nil
	}

	value, err := setter()
	if err != nil {
		return err
	}

	if err := c.Set(ctx, key, value, ttl); err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, dest)
}

// InvalidateUserCache drops cached state for one user.
func (c *CacheService) InvalidateUserCache(ctx context.Context, userID int64) error {
	patterns := []string{
		fmt.Sprintf("user:%d", userID),
		fmt.Sprintf("user_balance:%d", userID),
	}

	for _, pattern := range patterns {
		if err := c.DeletePattern(ctx, pattern); err != nil {
			return fmt.Errorf("failed to delete pattern %s: %w", pattern, err)
		}
	}

	return nil
}

// InvalidatePackageCache drops the package catalog cache after admin edits.
func (c *CacheService) InvalidatePackageCache(ctx context.Context) error {
	patterns := []string{
		"packages:*",
		"package:*",
	}

	for _, pattern := range patterns {
		if err := c.DeletePattern(ctx, pattern); err != nil {
			return fmt.Errorf("failed to delete pattern %s: %w", pattern, err)
		}
	}

	return nil
}
