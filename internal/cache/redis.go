package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisConfig contains Redis connection settings for the distributed
// permission cache.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int

	PoolSize     int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	DialTimeout  time.Duration

	// TTL for cached permission sets
	TTL time.Duration

	// KeyPrefix namespaces this service's keys
	KeyPrefix string
}

// DefaultRedisConfig returns a configuration with sensible defaults
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Host:         "localhost",
		Port:         6379,
		PoolSize:     10,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		DialTimeout:  5 * time.Second,
		TTL:          5 * time.Minute,
		KeyPrefix:    "authz:perms:",
	}
}

// Redis implements Cache over a Redis instance, for deployments where
// several request handlers share one permission cache. Operational errors
// degrade to cache misses; they never surface to the caller.
type Redis struct {
	client redis.UniversalClient
	config *RedisConfig
	logger *zap.Logger

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewRedis creates a Redis-backed permission cache and verifies the
// connection.
func NewRedis(config *RedisConfig, logger *zap.Logger) (*Redis, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.TTL <= 0 {
		config.TTL = 5 * time.Minute
	}

	client := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(config.Host, fmt.Sprintf("%d", config.Port)),
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		DialTimeout:  config.DialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Redis{client: client, config: config, logger: logger}, nil
}

// NewRedisWithClient wraps an existing client; used by tests with miniredis
func NewRedisWithClient(client redis.UniversalClient, config *RedisConfig, logger *zap.Logger) *Redis {
	if config == nil {
		config = DefaultRedisConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = 3 * time.Second
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 3 * time.Second
	}
	if config.TTL <= 0 {
		config.TTL = 5 * time.Minute
	}
	return &Redis{client: client, config: config, logger: logger}
}

func (r *Redis) key(key string) string {
	return r.config.KeyPrefix + key
}

// Get returns the cached permission set for key
func (r *Redis) Get(key string) ([]string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.ReadTimeout)
	defer cancel()

	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.logger.Warn("redis cache read failed", zap.String("key", key), zap.Error(err))
		}
		r.misses.Add(1)
		return nil, false
	}

	var permissions []string
	if err := json.Unmarshal(data, &permissions); err != nil {
		r.logger.Warn("redis cache entry corrupt", zap.String("key", key), zap.Error(err))
		r.misses.Add(1)
		return nil, false
	}

	r.hits.Add(1)
	return permissions, true
}

// Set stores a permission set under key with the configured TTL
func (r *Redis) Set(key string, permissions []string) {
	data, err := json.Marshal(permissions)
	if err != nil {
		r.logger.Warn("redis cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	if err := r.client.Set(ctx, r.key(key), data, r.config.TTL).Err(); err != nil {
		r.logger.Warn("redis cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete invalidates a single key
func (r *Redis) Delete(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		r.logger.Warn("redis cache delete failed", zap.String("key", key), zap.Error(err))
	}
}

// Clear invalidates every key under this cache's prefix
func (r *Redis) Clear() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	iter := r.client.Scan(ctx, 0, r.config.KeyPrefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			r.logger.Warn("redis cache clear failed", zap.String("key", iter.Val()), zap.Error(err))
		}
	}
	if err := iter.Err(); err != nil {
		r.logger.Warn("redis cache scan failed", zap.Error(err))
	}
}

// Stats returns hit/miss counters. Size is not tracked for Redis; a scan
// on every stats call would be too costly.
func (r *Redis) Stats() Stats {
	hits := r.hits.Load()
	misses := r.misses.Load()
	total := hits + misses

	s := Stats{Hits: hits, Misses: misses}
	if total > 0 {
		s.HitRate = float64(hits) / float64(total)
	}
	return s
}

// Close releases the underlying client
func (r *Redis) Close() error {
	return r.client.Close()
}

var _ Cache = (*Redis)(nil)
