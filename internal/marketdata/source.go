package marketdata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"smc-advisor/internal/market"
)

// Fetcher is an upstream candle and price provider such as BinanceSource
type Fetcher interface {
	Candles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error)
	Price(ctx context.Context, symbol string) (float64, error)
}

// Timeframe represents a chart interval
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
	TF1d  Timeframe = "1d"
)

// MultiTimeframeData holds candles of one symbol across intervals
type MultiTimeframeData struct {
	Symbol    string                        `json:"symbol"`
	Timestamp time.Time                     `json:"timestamp"`
	Data      map[Timeframe][]market.Candle `json:"data"`
}

// Clock supplies the time stamped on multi-timeframe fetches
type Clock interface {
	Now() time.Time
}

type utcClock struct{}

func (utcClock) Now() time.Time {
	return time.Now().UTC()
}

// CachedSource serves candles from a cache in front of an upstream fetcher.
// Prices are never cached.
type CachedSource struct {
	upstream Fetcher
	cache    CandleCache
	clock    Clock
}

// NewCachedSource wraps upstream; a nil cache disables caching
func NewCachedSource(upstream Fetcher, cache CandleCache) *CachedSource {
	return &CachedSource{upstream: upstream, cache: cache, clock: utcClock{}}
}

// SetClock replaces the clock used to stamp FetchTimeframes results
func (s *CachedSource) SetClock(c Clock) {
	if c != nil {
		s.clock = c
	}
}

// Candles fetches candles with caching
func (s *CachedSource) Candles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	key := CandleKey(symbol, interval, limit)

	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, key); ok {
			return cached, nil
		}
	}

	candles, err := s.upstream.Candles(ctx, symbol, interval, limit)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && len(candles) > 0 {
		s.cache.Set(ctx, key, candles, CacheTTL(interval))
	}
	return candles, nil
}

// Price returns the upstream price
func (s *CachedSource) Price(ctx context.Context, symbol string) (float64, error) {
	return s.upstream.Price(ctx, symbol)
}

// FetchTimeframes fetches candles for several intervals in parallel. Any
// failed interval fails the whole call.
func (s *CachedSource) FetchTimeframes(ctx context.Context, symbol string, timeframes []Timeframe, limit int) (*MultiTimeframeData, error) {
	result := &MultiTimeframeData{
		Symbol:    symbol,
		Timestamp: s.clock.Now(),
		Data:      make(map[Timeframe][]market.Candle, len(timeframes)),
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	errChan := make(chan error, len(timeframes))

	for _, tf := range timeframes {
		wg.Add(1)
		go func(timeframe Timeframe) {
			defer wg.Done()

			candles, err := s.Candles(ctx, symbol, string(timeframe), limit)
			if err != nil {
				errChan <- fmt.Errorf("failed to fetch %s %s: %w", symbol, timeframe, err)
				return
			}

			mu.Lock()
			result.Data[timeframe] = candles
			mu.Unlock()
		}(tf)
	}

	wg.Wait()
	close(errChan)

	if err := <-errChan; err != nil {
		return nil, err
	}
	return result, nil
}

// CandleKey is the cache key of a candle request
func CandleKey(symbol, interval string, limit int) string {
	return fmt.Sprintf("candles:%s:%s:%d", symbol, interval, limit)
}

// CacheTTL returns how long a series on interval stays fresh
func CacheTTL(interval string) time.Duration {
	switch interval {
	case "1m":
		return 30 * time.Second
	case "5m":
		return 2 * time.Minute
	case "15m":
		return 5 * time.Minute
	case "1h":
		return 30 * time.Minute
	case "4h":
		return 2 * time.Hour
	case "1d":
		return 12 * time.Hour
	default:
		return 1 * time.Minute
	}
}

// ValidTimeframe reports whether s names a supported interval
func ValidTimeframe(s string) bool {
	switch Timeframe(s) {
	case TF1m, TF5m, TF15m, TF1h, TF4h, TF1d:
		return true
	}
	return false
}
