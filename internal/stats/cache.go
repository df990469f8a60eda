package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const snapshotKey = "saleshub:stats:snapshot"

// DefaultCacheTTL keeps cached snapshots well inside the dashboard's
// five-minute refresh so a poll never sees data older than one interval.
const DefaultCacheTTL = 60 * time.Second

// Cache stores the latest snapshot in Redis. Misses and Redis failures are
// reported as errors for the caller to treat as a cache bypass.
type Cache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a snapshot cache. A zero ttl falls back to DefaultCacheTTL.
func NewCache(redisClient *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{redis: redisClient, ttl: ttl}
}

// Get retrieves the cached snapshot. Returns redis.Nil on a miss.
func (c *Cache) Get(ctx context.Context) (*Snapshot, error) {
	data, err := c.redis.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("stats: unmarshal cached snapshot: %w", err)
	}
	return &snap, nil
}

// Set stores a snapshot with the configured TTL.
func (c *Cache) Set(ctx context.Context, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("stats: marshal snapshot: %w", err)
	}
	if err := c.redis.Set(ctx, snapshotKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("stats: cache snapshot: %w", err)
	}
	return nil
}
