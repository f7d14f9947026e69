package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const checkpointKeyPrefix = "stateflow:checkpoint:"

// RedisStore is a Redis-backed implementation of Store.
//
// Checkpoints are stored as JSON values under "stateflow:checkpoint:<thread>".
// Designed for:
//   - Deployments that already operate Redis and want fast shared durability
//   - Many short-lived threads where an optional TTL bounds growth
//
// Durability depends on the Redis persistence configuration (AOF/RDB); with
// persistence disabled this backend is equivalent to a shared MemStore.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	PoolSize int

	// TTL, when positive, expires checkpoints that have not been updated
	// within the window. Abandoned threads then garbage-collect themselves.
	// Zero means checkpoints are kept until deleted.
	TTL time.Duration
}

// NewRedisStore creates a Redis-backed checkpoint store and verifies
// connectivity with a short ping.
func NewRedisStore(opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
		PoolSize: opts.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client, ttl: opts.TTL}, nil
}

// Get retrieves a thread's checkpoint.
func (s *RedisStore) Get(ctx context.Context, threadID string) (Checkpoint, error) {
	data, err := s.client.Get(ctx, checkpointKeyPrefix+threadID).Bytes()
	if errors.Is(err, redis.Nil) {
		return Checkpoint{}, ErrNotFound
	}
	if err != nil {
		return Checkpoint{}, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return cp, nil
}

// Put writes a thread's checkpoint, replacing any previous one and refreshing
// the TTL if one is configured.
func (s *RedisStore) Put(ctx context.Context, cp Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	if err := s.client.Set(ctx, checkpointKeyPrefix+cp.ThreadID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return nil
}

// Delete removes a thread's checkpoint. Unknown threads are a no-op.
func (s *RedisStore) Delete(ctx context.Context, threadID string) error {
	if err := s.client.Del(ctx, checkpointKeyPrefix+threadID).Err(); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
