package autopilot

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"smc-advisor/internal/market"
)

// bar builds an hourly candle at position i
func bar(i int, open, high, low, close float64) market.Candle {
	return market.Candle{
		OpenTime:  int64(i+1) * 3600000,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    1000,
		CloseTime: int64(i+2)*3600000 - 1,
	}
}

func bars(ohlc [][4]float64) []market.Candle {
	candles := make([]market.Candle, len(ohlc))
	for i, v := range ohlc {
		candles[i] = bar(i, v[0], v[1], v[2], v[3])
	}
	return candles
}

// reversalSeries rallies to a high at 111, then breaks the higher low at
// 102.5 (bearish CHOCH) and closes through the bullish order block at 97,
// turning it into a bearish breaker. Last close 94.5.
func reversalSeries() []market.Candle {
	return bars([][4]float64{
		{99.5, 101, 99, 100}, {100, 102, 100, 101}, {101, 103, 101, 102}, {102, 105, 102, 103},
		{103, 104, 100, 101}, {101, 102, 98, 99}, {99.5, 101, 97, 98}, {98, 103, 98, 102},
		{102, 104, 100, 103.5}, {103.5, 106, 103, 105.5}, {105.5, 107, 104, 106.5}, {106.5, 108, 105, 107.5},
		{107.5, 108.5, 102.5, 103}, {103, 106, 102.8, 105.5}, {105.5, 109.5, 105, 109}, {109, 110, 107, 109.5},
		{109.5, 111, 108, 110.5}, {110.5, 110.8, 106, 106.5}, {106.5, 107, 103, 103.5}, {103.5, 104, 101, 101.5},
		{101.5, 102, 98, 98.5}, {98.5, 99, 95.5, 96}, {96, 97, 95, 95.5}, {95.5, 96.5, 94.5, 95},
		{95, 96, 94, 94.5},
	})
}

// risingSeries climbs by step per candle with a shallow pullback every fourth
func risingSeries(n int, start, step float64) []market.Candle {
	candles := make([]market.Candle, n)
	price := start
	for i := range candles {
		open := price
		close := open + step
		if i%4 == 3 {
			close = open - step/2
		}
		candles[i] = bar(i, open, math.Max(open, close)+step/4, math.Min(open, close)-step/4, close)
		price = close
	}
	return candles
}

// flatSeries never moves its close
func flatSeries(n int, price float64) []market.Candle {
	candles := make([]market.Candle, n)
	for i := range candles {
		candles[i] = bar(i, price, price*1.001, price*0.999, price)
	}
	return candles
}

// walkSeries is a seeded random walk; drift is the mean return per candle
func walkSeries(seed int64, n int, start, drift float64) []market.Candle {
	r := rand.New(rand.NewSource(seed))
	candles := make([]market.Candle, n)
	price := start
	for i := range candles {
		open := price
		close := open * (1 + drift + (r.Float64()-0.5)*0.02)
		high := math.Max(open, close) * (1 + r.Float64()*0.006)
		low := math.Min(open, close) * (1 - r.Float64()*0.006)
		c := bar(i, open, high, low, close)
		c.Volume = 500 + r.Float64()*1000
		candles[i] = c
		price = close
	}
	return candles
}

// fixedRandom always draws value, clamped into the range
type fixedRandom struct {
	value int
}

func (f fixedRandom) IntInRange(min, max int) int {
	return clampInt(f.value, min, max)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

var errFetch = errors.New("exchange unavailable")

// fakeCandleSource serves canned series and records requested intervals
type fakeCandleSource struct {
	mu        sync.Mutex
	series    map[string][]market.Candle
	failures  map[string]error
	intervals []string
}

func (f *fakeCandleSource) Candles(_ context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.intervals = append(f.intervals, interval)
	if err, ok := f.failures[symbol]; ok {
		return nil, err
	}
	candles, ok := f.series[symbol]
	if !ok {
		return nil, errFetch
	}
	if limit > 0 && len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles, nil
}

type fakePriceSource struct {
	prices map[string]float64
	err    error
}

func (f fakePriceSource) Price(_ context.Context, symbol string) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	p, ok := f.prices[symbol]
	if !ok {
		return 0, errFetch
	}
	return p, nil
}
