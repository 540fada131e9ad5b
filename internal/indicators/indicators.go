// Package indicators computes the classic technical indicators used by the
// scoring and trade generation stages.
package indicators

import (
	"math"

	"github.com/markcheno/go-talib"

	"smc-advisor/internal/market"
)

// ============================================================================
// MOVING AVERAGES
// ============================================================================

// EMA returns the exponential moving average of values, seeded from the first
// value so that it is defined for any non-empty series.
func EMA(values []float64, period int) float64 {
	series := EMASeries(values, period)
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}

// EMASeries returns the EMA at every index of values.
func EMASeries(values []float64, period int) []float64 {
	if len(values) == 0 || period <= 0 {
		return nil
	}

	multiplier := 2.0 / float64(period+1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*multiplier + out[i-1]*(1-multiplier)
	}
	return out
}

// SMA returns the simple average of the trailing period values, or of all
// values when fewer are available.
func SMA(values []float64, period int) float64 {
	if len(values) == 0 {
		return 0
	}
	if period <= 0 || period > len(values) {
		period = len(values)
	}
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period)
}

// ============================================================================
// RSI (Relative Strength Index)
// ============================================================================

// RSI returns the Wilder-smoothed RSI of closes. It returns 50 when fewer than
// period+1 closes are available or when price never moved.
func RSI(closes []float64, period int) float64 {
	series := RSISeries(closes, period)
	if series == nil {
		return 50.0
	}
	return series[len(series)-1]
}

// RSISeries returns RSI values aligned with closes. Indexes before period hold
// 50. It returns nil when the series is too short.
func RSISeries(closes []float64, period int) []float64 {
	if period < 2 || len(closes) < period+1 {
		return nil
	}

	out := talib.Rsi(closes, period)
	for i := 0; i < period; i++ {
		out[i] = 50.0
	}
	if isFlat(closes) {
		for i := range out {
			out[i] = 50.0
		}
		return out
	}
	for i := period; i < len(out); i++ {
		out[i] = clamp(out[i], 0, 100)
	}
	return out
}

// ============================================================================
// ATR (Average True Range)
// ============================================================================

// TrueRange returns max(high-low, |high-prevClose|, |low-prevClose|).
func TrueRange(c, prev market.Candle) float64 {
	return math.Max(
		c.High-c.Low,
		math.Max(
			math.Abs(c.High-prev.Close),
			math.Abs(c.Low-prev.Close),
		),
	)
}

// ATR returns the average true range over the trailing period candles. It
// returns 0 when fewer than period+1 candles are available.
func ATR(candles []market.Candle, period int) float64 {
	if period <= 0 || len(candles) < 2 || len(candles) < period+1 {
		return 0
	}

	trSum := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		trSum += TrueRange(candles[i], candles[i-1])
	}
	return trSum / float64(period)
}

// ============================================================================
// MOMENTUM & VOLATILITY
// ============================================================================

// Momentum returns the percentage change of the last close against the close
// period candles earlier, or 0 when there is not enough data.
func Momentum(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return 0
	}
	roc := talib.Roc(closes, period)
	return roc[len(roc)-1]
}

// Volatility returns the standard deviation of one-candle percentage returns
// over the trailing period, or 0 when there is not enough data.
func Volatility(closes []float64, period int) float64 {
	if period < 2 || len(closes) < period+1 {
		return 0
	}

	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (closes[i]-closes[i-1])/closes[i-1]*100)
	}
	sd := talib.StdDev(returns, period, 1.0)
	return sd[len(sd)-1]
}

func isFlat(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

func clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
