package indicators

import (
	"fmt"
	"math"

	"smc-advisor/internal/market"
)

// Config selects the periods used by Compute.
type Config struct {
	RSIPeriod        int `json:"rsi_period" yaml:"rsiPeriod"`
	ATRPeriod        int `json:"atr_period" yaml:"atrPeriod"`
	FastEMA          int `json:"fast_ema" yaml:"fastEma"`
	SlowEMA          int `json:"slow_ema" yaml:"slowEma"`
	MomentumPeriod   int `json:"momentum_period" yaml:"momentumPeriod"`
	VolatilityPeriod int `json:"volatility_period" yaml:"volatilityPeriod"`
}

// DefaultConfig returns RSI(14), ATR(14), EMA 9/21, 10-candle momentum and a
// 20-candle volatility window.
func DefaultConfig() Config {
	return Config{
		RSIPeriod:        14,
		ATRPeriod:        14,
		FastEMA:          9,
		SlowEMA:          21,
		MomentumPeriod:   10,
		VolatilityPeriod: 20,
	}
}

// Normalize fills zero or negative periods with their defaults.
func (c Config) Normalize() Config {
	d := DefaultConfig()
	if c.RSIPeriod <= 0 {
		c.RSIPeriod = d.RSIPeriod
	}
	if c.ATRPeriod <= 0 {
		c.ATRPeriod = d.ATRPeriod
	}
	if c.FastEMA <= 0 {
		c.FastEMA = d.FastEMA
	}
	if c.SlowEMA <= 0 {
		c.SlowEMA = d.SlowEMA
	}
	if c.MomentumPeriod <= 0 {
		c.MomentumPeriod = d.MomentumPeriod
	}
	if c.VolatilityPeriod <= 0 {
		c.VolatilityPeriod = d.VolatilityPeriod
	}
	return c
}

// Validate rejects periods too short to smooth over and a fast EMA that is
// not faster than the slow one.
func (c Config) Validate() error {
	periods := []struct {
		name  string
		value int
		min   int
	}{
		{"rsiPeriod", c.RSIPeriod, 2},
		{"atrPeriod", c.ATRPeriod, 2},
		{"fastEma", c.FastEMA, 2},
		{"slowEma", c.SlowEMA, 2},
		{"momentumPeriod", c.MomentumPeriod, 1},
		{"volatilityPeriod", c.VolatilityPeriod, 2},
	}
	for _, p := range periods {
		if p.value < p.min {
			return fmt.Errorf("indicator %s must be at least %d, got %d", p.name, p.min, p.value)
		}
	}
	if c.FastEMA >= c.SlowEMA {
		return fmt.Errorf("fastEma %d must be below slowEma %d", c.FastEMA, c.SlowEMA)
	}
	return nil
}

// TechnicalIndicators is the indicator snapshot for the last candle of a series.
type TechnicalIndicators struct {
	RSI            float64      `json:"rsi"`
	ATR            float64      `json:"atr"`
	Momentum       float64      `json:"momentum"`
	Volatility     float64      `json:"volatility"`
	Trend          market.Trend `json:"trend"`
	EMA9           float64      `json:"ema9"`
	EMA21          float64      `json:"ema21"`
	CurrentPrice   float64      `json:"current_price"`
	SignalStrength float64      `json:"signal_strength"`
}

// Compute derives the indicator snapshot from candles. Short series produce
// neutral defaults rather than errors.
func Compute(candles []market.Candle, cfg Config) TechnicalIndicators {
	if len(candles) == 0 {
		return TechnicalIndicators{RSI: 50, Trend: market.TrendNeutral}
	}
	cfg = cfg.Normalize()

	closes := market.Closes(candles)
	ti := TechnicalIndicators{
		RSI:          RSI(closes, cfg.RSIPeriod),
		ATR:          ATR(candles, cfg.ATRPeriod),
		Momentum:     Momentum(closes, cfg.MomentumPeriod),
		Volatility:   Volatility(closes, cfg.VolatilityPeriod),
		EMA9:         EMA(closes, cfg.FastEMA),
		EMA21:        EMA(closes, cfg.SlowEMA),
		CurrentPrice: closes[len(closes)-1],
	}
	ti.Trend = ClassifyTrend(ti.EMA9, ti.EMA21, ti.Momentum)
	ti.SignalStrength = SignalStrength(ti)
	return ti
}

// ClassifyTrend is bullish when the fast EMA leads and momentum is positive,
// bearish in the mirrored case and neutral otherwise.
func ClassifyTrend(fast, slow, momentum float64) market.Trend {
	switch {
	case fast > slow && momentum > 0:
		return market.TrendBullish
	case fast < slow && momentum < 0:
		return market.TrendBearish
	default:
		return market.TrendNeutral
	}
}

// Signal strength weights. The sum of the maxima is 100.
const (
	strengthTrendWeight       = 40.0
	strengthMomentumPerPct    = 5.0
	strengthMomentumCap       = 25.0
	strengthRSIWeight         = 20.0
	strengthRSIReversalWeight = 10.0
	strengthEMASpreadWeight   = 15.0
	strengthEMASpreadMinPct   = 0.1
)

// SignalStrength scores how tradeable the snapshot is on a 0-100 scale.
func SignalStrength(ti TechnicalIndicators) float64 {
	score := 0.0

	if ti.Trend != market.TrendNeutral {
		score += strengthTrendWeight
	}

	score += math.Min(math.Abs(ti.Momentum)*strengthMomentumPerPct, strengthMomentumCap)

	switch ti.Trend {
	case market.TrendBullish:
		if ti.RSI >= 50 && ti.RSI <= 70 {
			score += strengthRSIWeight
		}
	case market.TrendBearish:
		if ti.RSI >= 30 && ti.RSI <= 50 {
			score += strengthRSIWeight
		}
	default:
		// stretched RSI without a trend is a mean-reversion setup
		if ti.RSI < 30 || ti.RSI > 70 {
			score += strengthRSIReversalWeight
		}
	}

	if ti.EMA21 != 0 && math.Abs(ti.EMA9-ti.EMA21)/ti.EMA21*100 >= strengthEMASpreadMinPct {
		score += strengthEMASpreadWeight
	}

	return clamp(score, 0, 100)
}
