package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/irfndi/astro-snapshot-go/internal/models"
	"github.com/redis/go-redis/v9"
)

// ErrSnapshotNotFound is returned by a SnapshotStore when no entry exists
// for the key.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotStore is the persistent snapshot tier.
type SnapshotStore interface {
	Get(ctx context.Context, key models.SnapshotKey) (*models.Snapshot, error)
	Put(ctx context.Context, key models.SnapshotKey, snapshot *models.Snapshot) error
	Name() string
}

// snapshotEntry is the stored form of a snapshot with metadata.
type snapshotEntry struct {
	Snapshot *models.Snapshot `json:"snapshot"`
	StoredAt time.Time        `json:"stored_at"`
}

// RedisSnapshotStore keeps snapshots as JSON strings under
// "snapshot:<date>:<mode>".
type RedisSnapshotStore struct {
	redis redis.Cmdable
	ttl   time.Duration
}

// NewRedisSnapshotStore creates a store. A zero ttl stores without expiry.
func NewRedisSnapshotStore(client redis.Cmdable, ttl time.Duration) *RedisSnapshotStore {
	return &RedisSnapshotStore{
		redis: client,
		ttl:   ttl,
	}
}

func (s *RedisSnapshotStore) Name() string {
	return "redis"
}

// Get retrieves a snapshot from Redis.
func (s *RedisSnapshotStore) Get(ctx context.Context, key models.SnapshotKey) (*models.Snapshot, error) {
	data, err := s.redis.Get(ctx, key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	var entry snapshotEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("decode cached snapshot %s: %w", key, err)
	}
	if entry.Snapshot == nil {
		return nil, fmt.Errorf("decode cached snapshot %s: empty payload", key)
	}
	return entry.Snapshot, nil
}

// Put stores a snapshot in Redis with the configured TTL.
func (s *RedisSnapshotStore) Put(ctx context.Context, key models.SnapshotKey, snapshot *models.Snapshot) error {
	data, err := json.Marshal(snapshotEntry{Snapshot: snapshot, StoredAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", key, err)
	}
	if err := s.redis.Set(ctx, key.String(), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes the stored snapshot for key, if any.
func (s *RedisSnapshotStore) Delete(ctx context.Context, key models.SnapshotKey) error {
	return s.redis.Del(ctx, key.String()).Err()
}

// NopSnapshotStore is used when no persistent tier is configured. Every Get
// misses and every Put is discarded.
type NopSnapshotStore struct{}

func (NopSnapshotStore) Name() string { return "none" }

func (NopSnapshotStore) Get(context.Context, models.SnapshotKey) (*models.Snapshot, error) {
	return nil, ErrSnapshotNotFound
}

func (NopSnapshotStore) Put(context.Context, models.SnapshotKey, *models.Snapshot) error {
	return nil
}
