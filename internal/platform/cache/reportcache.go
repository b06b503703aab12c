package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReportCache keeps rendered report payloads in Redis for a short TTL.
// Balances are always recomputed from journal lines; this cache only saves
// the serialization cost on read-heavy dashboards, and every ledger write
// invalidates it.
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewReportCache constructs a ReportCache with the given TTL.
func NewReportCache(client *redis.Client, ttl time.Duration) *ReportCache {
	return &ReportCache{client: client, ttl: ttl, prefix: "ledger:report:"}
}

// Get returns the cached payload, or nil on miss or Redis failure. Cache
// failures are treated as misses so reports stay available without Redis.
func (c *ReportCache) Get(ctx context.Context, key string) []byte {
	if c == nil || c.client == nil {
		return nil
	}
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		return nil
	}
	return data
}

// Set stores the payload under key for the configured TTL.
func (c *ReportCache) Set(ctx context.Context, key string, payload []byte) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Set(ctx, c.prefix+key, payload, c.ttl).Err()
}

// Invalidate removes every cached report. Called after each ledger write.
func (c *ReportCache) Invalidate(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if len(keys) > 0 {
		_ = c.client.Del(ctx, keys...).Err()
	}
}
