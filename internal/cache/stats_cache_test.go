package cache

import (
	"context"
	"os"
	"testing"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studymate/internal/app"
)

func newTestCache(t *testing.T, userID uint) *StatsCache {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redisv9.NewClient(&redisv9.Options{Addr: addr})
	require.NoError(t, client.Ping(context.Background()).Err())
	c := NewStatsCache(client, time.Minute)
	t.Cleanup(func() {
		_ = client.Del(context.Background(), c.statsKey(userID), c.generationKey(userID)).Err()
		_ = client.Close()
	})
	return c
}

func TestStatsCacheRoundTrip(t *testing.T) {
	const userID = 987654
	c := newTestCache(t, userID)
	ctx := context.Background()

	cached, err := c.GetStats(ctx, userID, "2024-03-10")
	require.NoError(t, err)
	assert.Nil(t, cached.Stats)

	mean := 81.4
	stats := &app.Stats{QuizCount: 2, TotalAttempts: 5, AverageScore: app.NewAverageScore(&mean), StreakDays: 3}
	require.NoError(t, c.SetStats(ctx, userID, "2024-03-10", cached.Generation, stats))

	got, err := c.GetStats(ctx, userID, "2024-03-10")
	require.NoError(t, err)
	assert.Equal(t, stats, got.Stats)

	other, err := c.GetStats(ctx, userID, "2024-03-11")
	require.NoError(t, err)
	assert.Nil(t, other.Stats, "snapshot from another day must not be served")

	require.NoError(t, c.InvalidateStats(ctx, userID))
	after, err := c.GetStats(ctx, userID, "2024-03-10")
	require.NoError(t, err)
	assert.Nil(t, after.Stats)
	assert.Equal(t, cached.Generation+1, after.Generation)
}

func TestStatsCacheRejectsSnapshotFromOlderGeneration(t *testing.T) {
	const userID = 987656
	c := newTestCache(t, userID)
	ctx := context.Background()

	before, err := c.GetStats(ctx, userID, "2024-03-10")
	require.NoError(t, err)

	// an attempt lands while the snapshot is being computed
	require.NoError(t, c.InvalidateStats(ctx, userID))
	require.NoError(t, c.SetStats(ctx, userID, "2024-03-10", before.Generation, &app.Stats{TotalAttempts: 0}))

	got, err := c.GetStats(ctx, userID, "2024-03-10")
	require.NoError(t, err)
	assert.Nil(t, got.Stats)
}

func TestStatsCacheUndefinedAverage(t *testing.T) {
	const userID = 987655
	c := newTestCache(t, userID)
	ctx := context.Background()

	require.NoError(t, c.SetStats(ctx, userID, "2024-03-10", 0, &app.Stats{}))
	got, err := c.GetStats(ctx, userID, "2024-03-10")
	require.NoError(t, err)
	require.NotNil(t, got.Stats)
	assert.False(t, got.Stats.AverageScore.Defined)
}
