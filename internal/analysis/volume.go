package analysis

import (
	"smc-advisor/internal/market"
)

// VolumeAnalyzer provides volume-based analysis
type VolumeAnalyzer struct {
	avgPeriod int // Period for average volume calculation
}

// VolumeProfile represents volume analysis results
type VolumeProfile struct {
	CurrentVolume  float64          `json:"current_volume"`
	AverageVolume  float64          `json:"average_volume"`
	VolumeRatio    float64          `json:"volume_ratio"` // Current / Average
	IsHighVolume   bool             `json:"is_high_volume"`
	IsClimaxVolume bool             `json:"is_climax_volume"`
	OBV            float64          `json:"obv"`
	VWAP           float64          `json:"vwap"`
	TrendPct       float64          `json:"trend_pct"` // Second-half vs first-half average volume
	Pressure       market.Direction `json:"pressure,omitempty"`
}

// NewVolumeAnalyzer creates a new volume analyzer
func NewVolumeAnalyzer(avgPeriod int) *VolumeAnalyzer {
	if avgPeriod <= 0 {
		avgPeriod = 20 // Default 20-period average
	}
	return &VolumeAnalyzer{
		avgPeriod: avgPeriod,
	}
}

// AnalyzeVolume performs volume analysis on the last candle
func (va *VolumeAnalyzer) AnalyzeVolume(candles []market.Candle) VolumeProfile {
	if len(candles) == 0 {
		return VolumeProfile{}
	}

	current := candles[len(candles)-1]
	avgVolume := va.AverageVolume(candles[:len(candles)-1])

	var ratio float64
	if avgVolume > 0 {
		ratio = current.Volume / avgVolume
	}

	return VolumeProfile{
		CurrentVolume:  current.Volume,
		AverageVolume:  avgVolume,
		VolumeRatio:    ratio,
		IsHighVolume:   ratio > 2.0,
		IsClimaxVolume: ratio > 3.0,
		OBV:            OBV(candles),
		VWAP:           VWAP(candles),
		TrendPct:       VolumeTrend(candles, va.avgPeriod),
		Pressure:       Pressure(current),
	}
}

// AverageVolume calculates the average volume over the trailing period
func (va *VolumeAnalyzer) AverageVolume(candles []market.Candle) float64 {
	if len(candles) == 0 {
		return 0
	}

	period := va.avgPeriod
	if len(candles) < period {
		period = len(candles)
	}

	sum := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		sum += candles[i].Volume
	}
	return sum / float64(period)
}

// Pressure identifies buying or selling pressure from a single candle. A
// candle closing up with a small upper wick is buying; the mirror is selling.
func Pressure(c market.Candle) market.Direction {
	body := c.Body()
	if c.IsBullish() && c.UpperWick() < body*0.2 {
		return market.Bullish
	}
	if c.IsBearish() && c.LowerWick() < body*0.2 {
		return market.Bearish
	}
	return ""
}

// OBV calculates On-Balance Volume
func OBV(candles []market.Candle) float64 {
	obv := 0.0
	for i := 1; i < len(candles); i++ {
		if candles[i].Close > candles[i-1].Close {
			obv += candles[i].Volume
		} else if candles[i].Close < candles[i-1].Close {
			obv -= candles[i].Volume
		}
	}
	return obv
}

// VWAP calculates the volume weighted average of the typical price
func VWAP(candles []market.Candle) float64 {
	totalVolumePrice := 0.0
	totalVolume := 0.0
	for _, c := range candles {
		typical := (c.High + c.Low + c.Close) / 3
		totalVolumePrice += typical * c.Volume
		totalVolume += c.Volume
	}
	if totalVolume == 0 {
		return 0
	}
	return totalVolumePrice / totalVolume
}

// VolumeTrend is the percent change of average volume between the first and
// second half of the trailing period. Zero when there is not enough data.
func VolumeTrend(candles []market.Candle, period int) float64 {
	if period < 2 || len(candles) < period {
		return 0
	}
	recent := candles[len(candles)-period:]
	mid := period / 2

	first, second := 0.0, 0.0
	for i, c := range recent {
		if i < mid {
			first += c.Volume
		} else {
			second += c.Volume
		}
	}
	first /= float64(mid)
	second /= float64(period - mid)
	if first == 0 {
		return 0
	}
	return (second - first) / first * 100
}
