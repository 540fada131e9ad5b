// Package market holds the candle data model shared by every analysis stage.
package market

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidCandles is returned when a candle series is malformed (NaN prices,
// inverted ranges or timestamps that do not increase).
var ErrInvalidCandles = errors.New("invalid candle series")

// Candle is one OHLCV bar. Times are unix milliseconds, as delivered by exchanges.
type Candle struct {
	OpenTime  int64   `json:"open_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	CloseTime int64   `json:"close_time"`
}

// IsBullish reports whether the candle closed above its open.
func (c Candle) IsBullish() bool {
	return c.Close > c.Open
}

// IsBearish reports whether the candle closed below its open.
func (c Candle) IsBearish() bool {
	return c.Close < c.Open
}

// Body returns the absolute body size.
func (c Candle) Body() float64 {
	return math.Abs(c.Close - c.Open)
}

// Range returns high minus low.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// UpperWick returns the distance between the high and the top of the body.
func (c Candle) UpperWick() float64 {
	return c.High - math.Max(c.Open, c.Close)
}

// LowerWick returns the distance between the bottom of the body and the low.
func (c Candle) LowerWick() float64 {
	return math.Min(c.Open, c.Close) - c.Low
}

// OpenedAt converts OpenTime to a time.Time.
func (c Candle) OpenedAt() time.Time {
	return time.UnixMilli(c.OpenTime).UTC()
}

// Closes extracts close prices.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Volumes extracts volumes.
func Volumes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Volume
	}
	return out
}

// Last returns the most recent candle and false when the series is empty.
func Last(candles []Candle) (Candle, bool) {
	if len(candles) == 0 {
		return Candle{}, false
	}
	return candles[len(candles)-1], true
}

// Validate checks that a candle series is well formed. Zero timestamps are
// tolerated so that synthetic series without times can be analysed.
func Validate(candles []Candle) error {
	for i, c := range candles {
		for _, v := range []float64{c.Open, c.High, c.Low, c.Close, c.Volume} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: candle %d has a non-finite value", ErrInvalidCandles, i)
			}
		}
		if c.High < c.Low {
			return fmt.Errorf("%w: candle %d has high %.8f below low %.8f", ErrInvalidCandles, i, c.High, c.Low)
		}
		if c.Volume < 0 {
			return fmt.Errorf("%w: candle %d has negative volume", ErrInvalidCandles, i)
		}
		if i > 0 && c.OpenTime != 0 && candles[i-1].OpenTime != 0 && c.OpenTime <= candles[i-1].OpenTime {
			return fmt.Errorf("%w: candle %d open time %d does not follow %d", ErrInvalidCandles, i, c.OpenTime, candles[i-1].OpenTime)
		}
	}
	return nil
}
