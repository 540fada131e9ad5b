package analysis

import (
	"math"
	"testing"

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

// reversalSeries rallies through a swing high at 105, forms a higher low at
// 102.5, then breaks down through both lows and the bullish order block.
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

// rangeBase holds a swing low at 100 (index 3) and a swing high at 103.5 (index 6)
func rangeBase() [][4]float64 {
	return [][4]float64{
		{103, 104, 102, 103}, {103, 103.5, 101, 101.5}, {101.5, 102, 100.5, 101}, {101, 101.5, 100, 100.8},
		{100.8, 102.5, 100.6, 102}, {102, 103, 101.5, 102.5}, {102.5, 103.5, 102, 103}, {103, 103.2, 101, 101.2},
	}
}

// stopHuntSeries wicks 0.4% under the swing low at 100 and closes back above it
func stopHuntSeries() []market.Candle {
	return bars(append(rangeBase(),
		[4]float64{101.2, 101.5, 99.6, 100.2},
		[4]float64{100.2, 101.8, 100.1, 101.5},
	))
}

// fakeoutSeries ends with a wick above the swing high at 103.5 and a close
// only 0.05% beyond it
func fakeoutSeries() []market.Candle {
	return bars(append(rangeBase(),
		[4]float64{101.2, 102.5, 101, 102.3},
		[4]float64{102.3, 103, 102, 102.8},
		[4]float64{102.8, 104, 102.6, 103.55},
	))
}

// noisySeries is a deterministic wave with uneven bars
func noisySeries(n int) []market.Candle {
	candles := make([]market.Candle, n)
	for i := range candles {
		mid := 100 + 8*math.Sin(float64(i)/4) + float64(i%5)
		spread := 0.5 + float64(i%3)
		open := mid - 0.3
		close := mid + 0.3
		if i%2 == 0 {
			open, close = close, open
		}
		candles[i] = bar(i, open, mid+spread, mid-spread, close)
	}
	return candles
}

func assertClose(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %f, expected %f", name, got, want)
	}
}
