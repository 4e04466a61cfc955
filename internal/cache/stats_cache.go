package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"studymate/internal/app"
)

// StatsCache keeps one dashboard snapshot per user in redis. A snapshot is
// only served on the calendar day it was computed, and only while the user's
// generation counter still matches the one it was stored under.
type StatsCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

var _ app.StatsCache = (*StatsCache)(nil)

// generationTTL outlives any snapshot so a counter never resets under one.
const generationTTL = 48 * time.Hour

type statsEntry struct {
	Day        string     `json:"day"`
	Generation int64      `json:"generation"`
	Stats      *app.Stats `json:"stats"`
}

func NewStatsCache(client *redisv9.Client, ttl time.Duration) *StatsCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &StatsCache{client: client, ttl: ttl}
}

func (c *StatsCache) GetStats(ctx context.Context, userID uint, day string) (app.CachedStats, error) {
	vals, err := c.client.MGet(ctx, c.statsKey(userID), c.generationKey(userID)).Result()
	if err != nil {
		return app.CachedStats{}, fmt.Errorf("redis get stats failed: %w", err)
	}

	var out app.CachedStats
	if raw, ok := vals[1].(string); ok {
		gen, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return app.CachedStats{}, fmt.Errorf("parse stats generation failed: %w", err)
		}
		out.Generation = gen
	}

	raw, ok := vals[0].(string)
	if !ok {
		return out, nil
	}
	var entry statsEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return app.CachedStats{}, fmt.Errorf("unmarshal cached stats failed: %w", err)
	}
	if entry.Day == day && entry.Generation == out.Generation {
		out.Stats = entry.Stats
	}
	return out, nil
}

func (c *StatsCache) SetStats(ctx context.Context, userID uint, day string, generation int64, stats *app.Stats) error {
	payload, err := json.Marshal(statsEntry{Day: day, Generation: generation, Stats: stats})
	if err != nil {
		return fmt.Errorf("marshal stats cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.statsKey(userID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set stats failed: %w", err)
	}
	return nil
}

func (c *StatsCache) InvalidateStats(ctx context.Context, userID uint) error {
	genKey := c.generationKey(userID)
	_, err := c.client.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, generationTTL)
		pipe.Del(ctx, c.statsKey(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis invalidate stats failed: %w", err)
	}
	return nil
}

func (c *StatsCache) statsKey(userID uint) string {
	return fmt.Sprintf("studymate:stats:%d", userID)
}

func (c *StatsCache) generationKey(userID uint) string {
	return fmt.Sprintf("studymate:stats:gen:%d", userID)
}
