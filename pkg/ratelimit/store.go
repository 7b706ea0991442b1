package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the hash key used when none is supplied.
const DefaultRedisKey = "shopify:throttle_status"

// stateTTL bounds how long a recorded status is trusted. The Shopify bucket
// refills continuously, so older readings say nothing about the present.
const stateTTL = 60 * time.Second

// Store records the most recent throttle status seen for a shop.
type Store interface {
	// Load returns the last recorded state, or nil if none is known.
	Load(ctx context.Context) (*State, error)

	// Save records a new state.
	Save(ctx context.Context, state State) error
}

// MemoryStore keeps the state in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	state *State
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state == nil {
		return nil, nil
	}
	s := *m.state
	return &s, nil
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = &state
	return nil
}

// Redis hash fields.
const (
	fieldMaximum   = "maximum_available"
	fieldCurrent   = "currently_available"
	fieldUpdatedAt = "updated_at"
)

// RedisStore shares the throttle state between processes fetching from the
// same shop.
type RedisStore struct {
	redis *redis.Client
	key   string
}

// NewRedisStore creates a Redis-backed store under the given hash key.
func NewRedisStore(redisClient *redis.Client, key string) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{redis: redisClient, key: key}
}

// Load implements Store.
func (r *RedisStore) Load(ctx context.Context) (*State, error) {
	fields, err := r.redis.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	maximum, err := strconv.ParseFloat(fields[fieldMaximum], 64)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", fieldMaximum, err)
	}
	current, err := strconv.ParseFloat(fields[fieldCurrent], 64)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", fieldCurrent, err)
	}
	updatedNanos, err := strconv.ParseInt(fields[fieldUpdatedAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", fieldUpdatedAt, err)
	}

	return &State{
		MaximumAvailable:   maximum,
		CurrentlyAvailable: current,
		UpdatedAt:          time.Unix(0, updatedNanos),
	}, nil
}

// Save implements Store. The hash expires after stateTTL.
func (r *RedisStore) Save(ctx context.Context, state State) error {
	pipe := r.redis.TxPipeline()
	pipe.HSet(ctx, r.key,
		fieldMaximum, strconv.FormatFloat(state.MaximumAvailable, 'f', -1, 64),
		fieldCurrent, strconv.FormatFloat(state.CurrentlyAvailable, 'f', -1, 64),
		fieldUpdatedAt, strconv.FormatInt(state.UpdatedAt.UnixNano(), 10),
	)
	pipe.Expire(ctx, r.key, stateTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store throttle state in redis: %w", err)
	}
	return nil
}
