package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig captures the connection parameters of the Redis cache.
type RedisConfig struct {
	Address  string
	Username string
	Password string
	DB       int
	TLS      bool
	Timeout  time.Duration
	PoolSize int
}

const (
	defaultRedisTimeout = 5 * time.Second
	redisKeyPrefix      = "restaunax:"
)

// RedisStore implements Store on top of go-redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore dials Redis and verifies the connection so misconfiguration surfaces at start-up.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	address := strings.TrimSpace(cfg.Address)
	if address == "" {
		return nil, errors.New("redis: address is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRedisTimeout
	}

	opts := &redis.Options{
		Addr:         address,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		PoolSize:     cfg.PoolSize,
	}
	if strings.HasPrefix(address, "redis://") || strings.HasPrefix(address, "rediss://") {
		parsed, err := redis.ParseURL(address)
		if err != nil {
			return nil, fmt.Errorf("redis: parse url: %w", err)
		}
		parsed.DialTimeout, parsed.ReadTimeout, parsed.WriteTimeout = timeout, timeout, timeout
		opts = parsed
	} else if cfg.TLS {
		opts.TLSConfig = tlsConfig(address)
	}

	store := NewRedisStoreFromClient(redis.NewClient(opts))
	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return store, nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Ping checks Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ensureContext(ctx)).Err()
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// fixedWindowScript increments KEYS[1] and starts its ARGV[1] millisecond expiry when the
// counter has none, in one step. Returns {count, remaining ms}.
var fixedWindowScript = redis.NewScript(`
	local count = redis.call('INCR', KEYS[1])
	local ttl = redis.call('PTTL', KEYS[1])
	if ttl < 0 then
		ttl = tonumber(ARGV[1])
		redis.call('PEXPIRE', KEYS[1], ttl)
	end
	return {count, ttl}
`)

// IncrementWithTTL increments a fixed-window counter. The expiry is set atomically with the
// first hit of a window, so a counter never outlives it.
func (s *RedisStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	ctx = ensureContext(ctx)
	if window <= 0 {
		window = time.Minute
	}
	window = max(window, time.Millisecond)

	result, err := fixedWindowScript.Run(ctx, s.client, []string{prefixedKey(key)}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, fmt.Errorf("redis: increment %s: %w", key, err)
	}
	if len(result) != 2 {
		return 0, 0, fmt.Errorf("redis: increment %s: unexpected reply %v", key, result)
	}
	return result[0], time.Duration(result[1]) * time.Millisecond, nil
}

// Reset deletes key. Missing keys are not an error.
func (s *RedisStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ensureContext(ctx), prefixedKey(key)).Err()
}

func prefixedKey(key string) string {
	key = strings.TrimSpace(key)
	if strings.HasPrefix(key, redisKeyPrefix) {
		return key
	}
	return redisKeyPrefix + key
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
