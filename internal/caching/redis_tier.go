package caching

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/medrag-mcp-server/internal/domain"
)

const defaultRedisPrefix = "medrag:resolve:"

// RedisTier is the shared second cache tier. Every call goes through a
// circuit breaker so an unavailable Redis costs one fast failure instead
// of a timeout per request.
type RedisTier struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Logger
}

// NewRedisTier connects to the Redis server named by cfg.RedisURL.
func NewRedisTier(cfg domain.CacheConfig, logger *logrus.Logger) (*RedisTier, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.PoolTimeout > 0 {
		opts.PoolTimeout = cfg.PoolTimeout
	}
	if cfg.MaxRetries != 0 {
		opts.MaxRetries = cfg.MaxRetries
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newRedisTier(client, cfg.RedisPrefix, cfg.TTL, logger), nil
}

func newRedisTier(client *redis.Client, prefix string, ttl time.Duration, logger *logrus.Logger) *RedisTier {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	if logger == nil {
		logger = logrus.New()
	}

	settings := gobreaker.Settings{
		Name:        "redis-cache",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"circuit_breaker": name,
				"from_state":      from.String(),
				"to_state":        to.String(),
			}).Warn("Circuit breaker state changed")
		},
	}

	return &RedisTier{
		client:  client,
		prefix:  prefix,
		ttl:     ttl,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// Get returns the cached result for key. Errors and misses both report false.
func (t *RedisTier) Get(ctx context.Context, key string) (*domain.ResolutionResult, bool) {
	value, err := t.breaker.Execute(func() (interface{}, error) {
		data, err := t.client.Get(ctx, t.redisKey(key)).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return data, err
	})
	if err != nil {
		t.logger.WithError(err).Debug("Redis cache read failed")
		return nil, false
	}
	data, _ := value.([]byte)
	if data == nil {
		return nil, false
	}

	var result domain.ResolutionResult
	if err := json.Unmarshal(data, &result); err != nil {
		// Drop corrupted entries.
		t.client.Del(ctx, t.redisKey(key))
		return nil, false
	}
	return &result, true
}

// SetNX stores result unless key is already present.
func (t *RedisTier) SetNX(ctx context.Context, key string, result *domain.ResolutionResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal resolution: %w", err)
	}
	_, err = t.breaker.Execute(func() (interface{}, error) {
		return nil, t.client.SetNX(ctx, t.redisKey(key), data, t.ttl).Err()
	})
	return err
}

// State returns the circuit breaker state ("closed", "half-open" or "open").
func (t *RedisTier) State() string {
	return t.breaker.State().String()
}

// Ping checks connectivity without going through the breaker.
func (t *RedisTier) Ping(ctx context.Context) error {
	return t.client.Ping(ctx).Err()
}

// Close releases the Redis connection pool.
func (t *RedisTier) Close() error {
	return t.client.Close()
}

func (t *RedisTier) redisKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return t.prefix + hex.EncodeToString(sum[:])
}
