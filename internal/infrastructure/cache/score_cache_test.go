package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCache(t *testing.T) (*ScoreCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	c, err := NewScoreCache(client, zap.NewNop())
	require.NoError(t, err)
	return c, mr
}

func TestScoreCache_SetAndGet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	claimID := uuid.New()

	require.NoError(t, c.SetScore(ctx, claimID, 65, time.Hour))

	score, ok, err := c.GetScore(ctx, claimID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 65, score)
}

func TestScoreCache_MissingKey(t *testing.T) {
	c, _ := newTestCache(t)

	_, ok, err := c.GetScore(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestScoreCache_TTLExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	claimID := uuid.New()

	require.NoError(t, c.SetScore(ctx, claimID, 40, time.Minute))
	mr.FastForward(2 * time.Minute)

	_, ok, err := c.GetScore(ctx, claimID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestScoreCache_CorruptValue(t *testing.T) {
	c, mr := newTestCache(t)
	claimID := uuid.New()
	mr.Set(scoreKeyPrefix+claimID.String(), "not-a-number")

	_, _, err := c.GetScore(context.Background(), claimID)
	assert.Error(t, err)
}

func TestNewScoreCache_RequiresClient(t *testing.T) {
	_, err := NewScoreCache(nil, zap.NewNop())
	assert.Error(t, err)
}
