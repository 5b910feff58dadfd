// Package redis provides a Redis-backed implementation of the violation
// store, for multi-instance deployments where escalation state must be
// shared and survive restarts.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const (
	// DefaultKeyPrefix namespaces violation keys in a shared Redis instance
	DefaultKeyPrefix = "guard:violations:"

	// DefaultDialTimeout bounds the initial connectivity check
	DefaultDialTimeout = 5 * time.Second
)

// Config holds Redis connection settings for the violation store.
type Config struct {
	// Addr is the Redis host:port (required)
	Addr string

	// Password is the Redis AUTH password (optional)
	Password string

	// DB is the Redis database number
	DB int

	// KeyPrefix namespaces all keys written by this store.
	// Default: "guard:violations:"
	KeyPrefix string

	// TTL is how long a violation count lives after its last increment.
	// Zero means counts never expire.
	TTL time.Duration
}

// Store is a Redis-backed implementation of storage.ViolationStore.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// New creates a Redis violation store and verifies connectivity.
func New(cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), DefaultDialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	logger.Debug("Redis violation store connected", "addr", cfg.Addr, "db", cfg.DB)

	return &Store{
		client: client,
		prefix: cfg.KeyPrefix,
		ttl:    cfg.TTL,
		logger: logger,
	}, nil
}

// Close releases the underlying Redis connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

// IncrementViolations adds one violation for the identifier and returns the
// new cumulative count. The count's TTL is refreshed on every increment.
func (s *Store) IncrementViolations(ctx context.Context, identifier string) (int64, error) {
	key := s.key(identifier)

	if s.ttl <= 0 {
		return s.client.Incr(ctx, key).Result()
	}

	pipe := s.client.TxPipeline()
	counter := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to increment violations: %w", err)
	}
	return counter.Val(), nil
}

// Violations returns the cumulative violation count for the identifier
func (s *Store) Violations(ctx context.Context, identifier string) (int64, error) {
	count, err := s.client.Get(ctx, s.key(identifier)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read violations: %w", err)
	}
	return count, nil
}

// ResetViolations clears the violation count for the identifier
func (s *Store) ResetViolations(ctx context.Context, identifier string) error {
	if err := s.client.Del(ctx, s.key(identifier)).Err(); err != nil {
		return fmt.Errorf("failed to reset violations: %w", err)
	}
	return nil
}

func (s *Store) key(identifier string) string {
	return s.prefix + identifier
}
