package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ai-reading-be/pkg/persistence"
	"ai-reading-be/pkg/reading"
)

const keyPrefix = "reading:snapshot:"

// SnapshotCache mirrors session snapshots to redis so a session can be
// restored on any instance even when the database is unavailable.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ persistence.Store = (*SnapshotCache)(nil)

// ConnectRedis creates a Redis client from a URL.
func ConnectRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{client: client, ttl: ttl}
}

func cacheKey(userID, documentID string) string {
	return keyPrefix + persistence.Key(userID, documentID)
}

func (c *SnapshotCache) Save(ctx context.Context, env persistence.Envelope) error {
	payload, err := json.Marshal(env.Snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(env.UserID, env.DocumentID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache snapshot: %w", err)
	}
	return nil
}

func (c *SnapshotCache) Load(ctx context.Context, userID, documentID string) (*reading.Snapshot, error) {
	payload, err := c.client.Get(ctx, cacheKey(userID, documentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cached snapshot: %w", err)
	}
	var snap reading.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("decode cached snapshot: %w", err)
	}
	return &snap, nil
}

func (c *SnapshotCache) Delete(ctx context.Context, userID, documentID string) error {
	return c.client.Del(ctx, cacheKey(userID, documentID)).Err()
}
