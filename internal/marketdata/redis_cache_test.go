package marketdata

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewRedisCandleCacheDisabled(t *testing.T) {
	if _, err := NewRedisCandleCache(RedisConfig{Enabled: false}, zerolog.Nop()); err == nil {
		t.Error("Expected error when Redis is disabled")
	}
}

func TestRedisCandleCacheDegraded(t *testing.T) {
	rc, err := NewRedisCandleCache(RedisConfig{Enabled: true, Address: "127.0.0.1:1", PoolSize: 1}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Expected degraded cache, got error: %v", err)
	}
	defer rc.Close()

	if rc.IsHealthy() {
		t.Fatal("Expected unreachable Redis to be unhealthy")
	}
	ctx := context.Background()
	rc.Set(ctx, "k", sampleCandles(2), time.Minute)
	if _, ok := rc.Get(ctx, "k"); ok {
		t.Error("Expected miss while circuit breaker is open")
	}

	// The cached source falls through to upstream
	upstream := newCountingFetcher()
	src := NewCachedSource(upstream, rc)
	if _, err := src.Candles(ctx, "BTCUSDT", "1h", 4); err != nil {
		t.Errorf("Expected upstream fallback, got %v", err)
	}
}

func TestRedisCandleCacheRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	rc, err := NewRedisCandleCache(RedisConfig{Enabled: true, Address: addr, PoolSize: 2}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRedisCandleCache returned error: %v", err)
	}
	defer rc.Close()

	ctx := context.Background()
	key := CandleKey("TESTUSDT", "1m", 3)
	want := sampleCandles(3)
	rc.Set(ctx, key, want, 10*time.Second)

	got, ok := rc.Get(ctx, key)
	if !ok {
		t.Fatal("Expected cache hit")
	}
	if len(got) != len(want) || got[2] != want[2] {
		t.Errorf("Round trip mismatch: got %+v", got)
	}
}
