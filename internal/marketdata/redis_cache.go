package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"smc-advisor/internal/market"
)

// ErrCacheUnavailable is returned while the circuit breaker is open
var ErrCacheUnavailable = errors.New("redis unavailable (circuit breaker open)")

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

// RedisCandleCache stores candle series in Redis as JSON. Repeated failures
// open a circuit breaker; while open, reads miss and writes are dropped so
// callers fall through to the exchange.
type RedisCandleCache struct {
	client       *redis.Client
	logger       zerolog.Logger
	mu           sync.RWMutex
	healthy      bool
	failureCount int
	lastCheck    time.Time

	// Circuit breaker settings
	maxFailures   int
	checkInterval time.Duration
}

// NewRedisCandleCache connects to Redis. A failed initial ping returns the
// cache in degraded mode rather than an error.
func NewRedisCandleCache(cfg RedisConfig, logger zerolog.Logger) (*RedisCandleCache, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("redis is not enabled in configuration")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	rc := &RedisCandleCache{
		client:        client,
		logger:        logger.With().Str("component", "candle_cache").Logger(),
		maxFailures:   3,
		checkInterval: 30 * time.Second,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		rc.logger.Warn().Err(err).Str("address", cfg.Address).Msg("Initial Redis connection failed, running degraded")
		rc.lastCheck = time.Now()
		return rc, nil
	}

	rc.healthy = true
	rc.lastCheck = time.Now()
	rc.logger.Info().Str("address", cfg.Address).Msg("Redis connected")
	return rc, nil
}

// IsHealthy returns whether Redis is currently available
func (rc *RedisCandleCache) IsHealthy() bool {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.healthy
}

func (rc *RedisCandleCache) recordFailure(err error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.failureCount++
	if rc.failureCount >= rc.maxFailures {
		if rc.healthy {
			rc.logger.Warn().Err(err).Int("failures", rc.failureCount).Msg("Circuit breaker OPEN: Redis marked unhealthy")
		}
		rc.healthy = false
	}
}

func (rc *RedisCandleCache) recordSuccess() {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if !rc.healthy {
		rc.logger.Info().Msg("Circuit breaker CLOSED: Redis recovered")
	}
	rc.healthy = true
	rc.failureCount = 0
	rc.lastCheck = time.Now()
}

// checkHealth pings in the background once the check interval has passed
func (rc *RedisCandleCache) checkHealth() {
	rc.mu.Lock()
	shouldCheck := !rc.healthy && time.Since(rc.lastCheck) >= rc.checkInterval
	if shouldCheck {
		rc.lastCheck = time.Now()
	}
	rc.mu.Unlock()

	if !shouldCheck {
		return
	}

	go func() {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := rc.client.Ping(pingCtx).Err(); err == nil {
			rc.recordSuccess()
		}
	}()
}

// GetJSON retrieves and unmarshals a JSON value. A missing key returns redis.Nil.
func (rc *RedisCandleCache) GetJSON(ctx context.Context, key string, dest any) error {
	rc.checkHealth()
	if !rc.IsHealthy() {
		return ErrCacheUnavailable
	}

	data, err := rc.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return err
		}
		rc.recordFailure(err)
		return fmt.Errorf("redis get failed: %w", err)
	}
	rc.recordSuccess()

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cached value: %w", err)
	}
	return nil
}

// SetJSON marshals and stores a value with TTL
func (rc *RedisCandleCache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	rc.checkHealth()
	if !rc.IsHealthy() {
		return ErrCacheUnavailable
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	if err := rc.client.Set(ctx, key, data, ttl).Err(); err != nil {
		rc.recordFailure(err)
		return fmt.Errorf("redis set failed: %w", err)
	}
	rc.recordSuccess()
	return nil
}

// Get implements CandleCache
func (rc *RedisCandleCache) Get(ctx context.Context, key string) ([]market.Candle, bool) {
	var candles []market.Candle
	if err := rc.GetJSON(ctx, key, &candles); err != nil {
		if !errors.Is(err, redis.Nil) && !errors.Is(err, ErrCacheUnavailable) {
			rc.logger.Debug().Err(err).Str("key", key).Msg("Candle cache read failed")
		}
		return nil, false
	}
	return candles, true
}

// Set implements CandleCache
func (rc *RedisCandleCache) Set(ctx context.Context, key string, candles []market.Candle, ttl time.Duration) {
	if err := rc.SetJSON(ctx, key, candles, ttl); err != nil && !errors.Is(err, ErrCacheUnavailable) {
		rc.logger.Debug().Err(err).Str("key", key).Msg("Candle cache write failed")
	}
}

// Ping checks Redis connectivity
func (rc *RedisCandleCache) Ping(ctx context.Context) error {
	if err := rc.client.Ping(ctx).Err(); err != nil {
		rc.recordFailure(err)
		return err
	}
	rc.recordSuccess()
	return nil
}

// Close closes the Redis connection
func (rc *RedisCandleCache) Close() error {
	if rc.client != nil {
		return rc.client.Close()
	}
	return nil
}
