package modelcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/go-redis/redis/v8"
)

// StatsSink publishes a point-in-time Stats snapshot to an external
// observability backend. This is diagnostics, not cache coherence: no
// cache content crosses the wire, only read-only counters, so it does
// not reintroduce the cross-process-coordination Non-goal.
type StatsSink interface {
	Publish(ctx context.Context, snapshot StatsSnapshot) error
}

// RunStatsSink periodically publishes stats to sink every interval, until
// ctx is cancelled. Failures are logged and otherwise ignored: a stats
// sink outage must never affect cache operation.
func RunStatsSink(ctx context.Context, stats *Stats, sink StatsSink, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sink.Publish(ctx, stats.Snapshot()); err != nil {
				logger.WithError(err).Warn("modelcache: stats sink publish failed")
			}
		}
	}
}

// RedisStatsSink publishes snapshots as a JSON value under a fixed key.
type RedisStatsSink struct {
	client *redis.Client
	key    string
}

// NewRedisStatsSink wraps an existing redis client.
func NewRedisStatsSink(client *redis.Client, key string) *RedisStatsSink {
	return &RedisStatsSink{client: client, key: key}
}

func (s *RedisStatsSink) Publish(ctx context.Context, snapshot StatsSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("modelcache: marshaling stats snapshot: %w", err)
	}
	return s.client.Set(ctx, s.key, data, 0).Err()
}

// MemcacheStatsSink publishes snapshots as a JSON value under a fixed
// key, an alternate backend behind the same StatsSink interface.
type MemcacheStatsSink struct {
	client *memcache.Client
	key    string
}

// NewMemcacheStatsSink wraps an existing memcache client.
func NewMemcacheStatsSink(client *memcache.Client, key string) *MemcacheStatsSink {
	return &MemcacheStatsSink{client: client, key: key}
}

func (s *MemcacheStatsSink) Publish(_ context.Context, snapshot StatsSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("modelcache: marshaling stats snapshot: %w", err)
	}
	return s.client.Set(&memcache.Item{Key: s.key, Value: data})
}
