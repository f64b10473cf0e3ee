// Package cache holds the Redis-backed pieces shared between importer processes.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/erp/poimport/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

// raiseAndIncr lifts the counter to at least ARGV[1] and then increments it,
// so codes created without Redis are never handed out again.
var raiseAndIncr = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
local floor = tonumber(ARGV[1])
if cur < floor then
  redis.call('SET', KEYS[1], floor)
end
return redis.call('INCR', KEYS[1])
`)

// SeedFunc returns the highest sequence number already used in the store
type SeedFunc func(ctx context.Context) (int64, error)

// RedisCodeSequence reserves vendor code numbers with an atomic Redis counter,
// so concurrent importer runs never generate the same code.
type RedisCodeSequence struct {
	client redis.Scripter
	key    string
	seed   SeedFunc

	mu     sync.Mutex
	seeded bool
	floor  int64
}

// NewRedisClient creates a client from configuration and checks the connection
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisCodeSequence creates a sequence on key. seed may be nil when the
// counter is the only source of truth.
func NewRedisCodeSequence(client redis.Scripter, key string, seed SeedFunc) *RedisCodeSequence {
	return &RedisCodeSequence{client: client, key: key, seed: seed}
}

// Key returns the Redis key holding the counter
func (s *RedisCodeSequence) Key() string {
	return s.key
}

// Next reserves the next number
func (s *RedisCodeSequence) Next(ctx context.Context) (int64, error) {
	floor, err := s.seedFloor(ctx)
	if err != nil {
		return 0, err
	}

	n, err := raiseAndIncr.Run(ctx, s.client, []string{s.key}, floor).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to reserve vendor code number: %w", err)
	}
	return n, nil
}

func (s *RedisCodeSequence) seedFloor(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seeded {
		return s.floor, nil
	}
	if s.seed != nil {
		floor, err := s.seed(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to seed vendor code sequence: %w", err)
		}
		s.floor = floor
	}
	s.seeded = true
	return s.floor, nil
}
