package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Storage persists metric snapshots for later querying.
type Storage interface {
	StoreBatch(snapshots []*Snapshot) error
	Query(metric string, start, end time.Time) ([]*Snapshot, error)
	QueryLatest(metric string, limit int) ([]*Snapshot, error)
	Cleanup(before time.Time) error
	GetStats() map[string]any
}

// MemoryStorage keeps snapshots in memory, for development and tests.
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string][]*Snapshot
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]*Snapshot)}
}

func (m *MemoryStorage) StoreBatch(snapshots []*Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, snapshot := range snapshots {
		m.data[snapshot.Metric] = append(m.data[snapshot.Metric], snapshot)
	}
	return nil
}

func (m *MemoryStorage) Query(metric string, start, end time.Time) ([]*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Snapshot
	for _, snapshot := range m.data[metric] {
		if snapshot.Timestamp.After(start) && snapshot.Timestamp.Before(end) {
			result = append(result, snapshot)
		}
	}
	return result, nil
}

func (m *MemoryStorage) QueryLatest(metric string, limit int) ([]*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshots := m.data[metric]
	start := len(snapshots) - limit
	if start < 0 {
		start = 0
	}
	return snapshots[start:], nil
}

func (m *MemoryStorage) Cleanup(before time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for metric, snapshots := range m.data {
		var kept []*Snapshot
		for _, snapshot := range snapshots {
			if snapshot.Timestamp.After(before) {
				kept = append(kept, snapshot)
			}
		}
		m.data[metric] = kept
	}
	return nil
}

func (m *MemoryStorage) GetStats() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := 0
	metrics := make(map[string]int)
	for metric, snapshots := range m.data {
		metrics[metric] = len(snapshots)
		total += len(snapshots)
	}
	return map[string]any{
		"type":    "memory",
		"total":   total,
		"metrics": metrics,
	}
}

// RedisStorage persists snapshots in Redis sorted sets, one per metric,
// scored by observation time so range queries map onto ZRANGEBYSCORE.
type RedisStorage struct {
	client    *redis.Client
	keyPrefix string
	retention time.Duration
}

// NewRedisStorage creates a Redis-backed storage.
func NewRedisStorage(client *redis.Client, keyPrefix string, retention time.Duration) *RedisStorage {
	return &RedisStorage{client: client, keyPrefix: keyPrefix, retention: retention}
}

func (r *RedisStorage) key(metric string) string {
	return fmt.Sprintf("%s:metrics:%s", r.keyPrefix, metric)
}

func (r *RedisStorage) StoreBatch(snapshots []*Snapshot) error {
	ctx := context.Background()
	pipe := r.client.Pipeline()

	for _, snapshot := range snapshots {
		data, err := json.Marshal(snapshot)
		if err != nil {
			return err
		}
		key := r.key(snapshot.Metric)
		pipe.ZAdd(ctx, key, redis.Z{
			Score:  float64(snapshot.Timestamp.UnixNano()),
			Member: string(data),
		})
		pipe.Expire(ctx, key, r.retention)
	}

	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStorage) Query(metric string, start, end time.Time) ([]*Snapshot, error) {
	ctx := context.Background()

	results, err := r.client.ZRangeByScore(ctx, r.key(metric), &redis.ZRangeBy{
		Min: fmt.Sprintf("%d", start.UnixNano()),
		Max: fmt.Sprintf("%d", end.UnixNano()),
	}).Result()
	if err != nil {
		return nil, err
	}
	return decodeSnapshots(results), nil
}

func (r *RedisStorage) QueryLatest(metric string, limit int) ([]*Snapshot, error) {
	ctx := context.Background()

	results, err := r.client.ZRevRange(ctx, r.key(metric), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	return decodeSnapshots(results), nil
}

func (r *RedisStorage) Cleanup(before time.Time) error {
	ctx := context.Background()

	keys, err := r.client.Keys(ctx, r.key("*")).Result()
	if err != nil {
		return err
	}

	pipe := r.client.Pipeline()
	for _, key := range keys {
		pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("%d", before.UnixNano()))
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStorage) GetStats() map[string]any {
	ctx := context.Background()

	keys, err := r.client.Keys(ctx, r.key("*")).Result()
	if err != nil {
		return map[string]any{"type": "redis", "error": err.Error()}
	}

	total := int64(0)
	metrics := make(map[string]int64)
	prefixLen := len(r.key(""))
	for _, key := range keys {
		count, err := r.client.ZCard(ctx, key).Result()
		if err != nil {
			continue
		}
		total += count
		metrics[key[prefixLen:]] = count
	}

	return map[string]any{
		"type":    "redis",
		"total":   total,
		"metrics": metrics,
		"keys":    len(keys),
	}
}

func decodeSnapshots(results []string) []*Snapshot {
	snapshots := make([]*Snapshot, 0, len(results))
	for _, result := range results {
		var snapshot Snapshot
		if err := json.Unmarshal([]byte(result), &snapshot); err == nil {
			snapshots = append(snapshots, &snapshot)
		}
	}
	return snapshots
}
