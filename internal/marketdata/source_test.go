package marketdata

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"smc-advisor/internal/market"
)

type countingFetcher struct {
	mu     sync.Mutex
	calls  map[string]int
	failOn map[string]bool
}

func newCountingFetcher() *countingFetcher {
	return &countingFetcher{calls: map[string]int{}, failOn: map[string]bool{}}
}

var errUpstream = errors.New("upstream down")

func (f *countingFetcher) Candles(_ context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[interval]++
	if f.failOn[interval] {
		return nil, errUpstream
	}
	return sampleCandles(limit), nil
}

func (f *countingFetcher) Price(_ context.Context, symbol string) (float64, error) {
	return 42, nil
}

func (f *countingFetcher) count(interval string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[interval]
}

func TestCachedSourceServesFromCache(t *testing.T) {
	upstream := newCountingFetcher()
	src := NewCachedSource(upstream, NewMemoryCandleCache())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		candles, err := src.Candles(ctx, "BTCUSDT", "1h", 5)
		if err != nil {
			t.Fatalf("Candles returned error: %v", err)
		}
		if len(candles) != 5 {
			t.Fatalf("Expected 5 candles, got %d", len(candles))
		}
	}
	if n := upstream.count("1h"); n != 1 {
		t.Errorf("Expected one upstream call, got %d", n)
	}

	// A different limit is a different key
	if _, err := src.Candles(ctx, "BTCUSDT", "1h", 10); err != nil {
		t.Fatalf("Candles returned error: %v", err)
	}
	if n := upstream.count("1h"); n != 2 {
		t.Errorf("Expected two upstream calls, got %d", n)
	}

	if p, _ := src.Price(ctx, "BTCUSDT"); p != 42 {
		t.Errorf("Expected upstream price, got %v", p)
	}
}

func TestCachedSourceDoesNotCacheErrors(t *testing.T) {
	upstream := newCountingFetcher()
	upstream.failOn["4h"] = true
	src := NewCachedSource(upstream, NewMemoryCandleCache())

	for i := 0; i < 2; i++ {
		if _, err := src.Candles(context.Background(), "ETHUSDT", "4h", 5); !errors.Is(err, errUpstream) {
			t.Fatalf("Expected upstream error, got %v", err)
		}
	}
	if n := upstream.count("4h"); n != 2 {
		t.Errorf("Expected every failing call to reach upstream, got %d", n)
	}
}

func TestCachedSourceWithoutCache(t *testing.T) {
	upstream := newCountingFetcher()
	src := NewCachedSource(upstream, nil)

	for i := 0; i < 2; i++ {
		if _, err := src.Candles(context.Background(), "BTCUSDT", "5m", 3); err != nil {
			t.Fatalf("Candles returned error: %v", err)
		}
	}
	if n := upstream.count("5m"); n != 2 {
		t.Errorf("Expected 2 upstream calls without cache, got %d", n)
	}
}

func TestFetchTimeframes(t *testing.T) {
	upstream := newCountingFetcher()
	src := NewCachedSource(upstream, NewMemoryCandleCache())

	data, err := src.FetchTimeframes(context.Background(), "BTCUSDT", []Timeframe{TF15m, TF1h, TF4h}, 20)
	if err != nil {
		t.Fatalf("FetchTimeframes returned error: %v", err)
	}
	if len(data.Data) != 3 {
		t.Fatalf("Expected 3 timeframes, got %d", len(data.Data))
	}
	for tf, candles := range data.Data {
		if len(candles) != 20 {
			t.Errorf("%s: expected 20 candles, got %d", tf, len(candles))
		}
	}

	upstream.failOn["1d"] = true
	if _, err := src.FetchTimeframes(context.Background(), "BTCUSDT", []Timeframe{TF1h, TF1d}, 20); !errors.Is(err, errUpstream) {
		t.Errorf("Expected upstream error, got %v", err)
	}
}

type fixedClock time.Time

func (c fixedClock) Now() time.Time {
	return time.Time(c)
}

func TestFetchTimeframesUsesClock(t *testing.T) {
	src := NewCachedSource(newCountingFetcher(), nil)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	src.SetClock(fixedClock(at))

	data, err := src.FetchTimeframes(context.Background(), "ETHUSDT", []Timeframe{TF1h}, 10)
	if err != nil {
		t.Fatalf("FetchTimeframes returned error: %v", err)
	}
	if !data.Timestamp.Equal(at) {
		t.Errorf("Expected timestamp %v, got %v", at, data.Timestamp)
	}

	src.SetClock(nil)
	if data, _ = src.FetchTimeframes(context.Background(), "ETHUSDT", []Timeframe{TF1h}, 10); !data.Timestamp.Equal(at) {
		t.Errorf("Expected nil clock to be ignored, got %v", data.Timestamp)
	}
}

func TestCacheTTL(t *testing.T) {
	tests := []struct {
		interval string
		want     time.Duration
	}{
		{"1m", 30 * time.Second},
		{"5m", 2 * time.Minute},
		{"15m", 5 * time.Minute},
		{"1h", 30 * time.Minute},
		{"4h", 2 * time.Hour},
		{"1d", 12 * time.Hour},
		{"3d", time.Minute},
	}
	for _, tt := range tests {
		if got := CacheTTL(tt.interval); got != tt.want {
			t.Errorf("CacheTTL(%s) = %v, want %v", tt.interval, got, tt.want)
		}
	}
}

func TestValidTimeframe(t *testing.T) {
	for _, s := range []string{"1m", "5m", "15m", "1h", "4h", "1d"} {
		if !ValidTimeframe(s) {
			t.Errorf("Expected %s to be valid", s)
		}
	}
	for _, s := range []string{"", "2h", "1w"} {
		if ValidTimeframe(s) {
			t.Errorf("Expected %s to be invalid", s)
		}
	}
}
