// Package cache provides the Redis-backed risk score cache.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const scoreKeyPrefix = "claims:score:"

// ScoreCache stores recent fraud scores in Redis so external surfaces
// can read them without touching the engine.
type ScoreCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewScoreCache wraps an existing Redis client.
func NewScoreCache(client *redis.Client, logger *zap.Logger) (*ScoreCache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScoreCache{client: client, logger: logger}, nil
}

// SetScore records the fraud score for a claim with the given TTL.
func (c *ScoreCache) SetScore(ctx context.Context, claimID uuid.UUID, score int, ttl time.Duration) error {
	key := scoreKeyPrefix + claimID.String()
	if err := c.client.Set(ctx, key, score, ttl).Err(); err != nil {
		c.logger.Error("caching fraud score", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// GetScore returns the cached fraud score for a claim. The second
// return reports whether a score was present.
func (c *ScoreCache) GetScore(ctx context.Context, claimID uuid.UUID) (int, bool, error) {
	key := scoreKeyPrefix + claimID.String()
	raw, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("redis get failed: %w", err)
	}
	score, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt cached score %q: %w", raw, err)
	}
	return score, true, nil
}
