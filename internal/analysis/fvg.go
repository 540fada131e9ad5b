package analysis

import (
	"math"

	"smc-advisor/internal/market"
)

// FairValueGap is a three-candle imbalance. Index is the middle candle.
type FairValueGap struct {
	Index       int              `json:"index"`
	High        float64          `json:"high"`
	Low         float64          `json:"low"`
	Direction   market.Direction `json:"direction"`
	Filled      bool             `json:"filled"`
	FilledIndex int              `json:"filled_index,omitempty"`
	Midpoint    float64          `json:"midpoint"`
}

// DetectFVGs identifies all Fair Value Gaps in the given candles.
//
// Bullish: candle[i+1].Low > candle[i-1].High, gap [c1.High, c3.Low].
// Bearish: candle[i+1].High < candle[i-1].Low, gap [c3.High, c1.Low].
// Gaps smaller than minGapPct percent of their lower bound are ignored.
func DetectFVGs(candles []market.Candle, minGapPct float64) []FairValueGap {
	if len(candles) < 3 {
		return nil
	}

	var gaps []FairValueGap
	for i := 1; i < len(candles)-1; i++ {
		c1 := candles[i-1]
		c3 := candles[i+1]

		var gap FairValueGap
		switch {
		case c3.Low > c1.High:
			gap = FairValueGap{Index: i, High: c3.Low, Low: c1.High, Direction: market.Bullish}
		case c3.High < c1.Low:
			gap = FairValueGap{Index: i, High: c1.Low, Low: c3.High, Direction: market.Bearish}
		default:
			continue
		}

		if gap.Low <= 0 || (gap.High-gap.Low)/gap.Low*100 < minGapPct {
			continue
		}
		gap.Midpoint = (gap.High + gap.Low) / 2
		updateFill(&gap, candles)
		gaps = append(gaps, gap)
	}
	return gaps
}

// updateFill marks the gap filled when a later candle reaches its far bound:
// a low at or below the bottom of a bullish gap, a high at or above the top of
// a bearish one.
func updateFill(gap *FairValueGap, candles []market.Candle) {
	for k := gap.Index + 2; k < len(candles); k++ {
		if (gap.Direction == market.Bullish && candles[k].Low <= gap.Low) ||
			(gap.Direction == market.Bearish && candles[k].High >= gap.High) {
			gap.Filled = true
			gap.FilledIndex = k
			return
		}
	}
}

// IsPriceInFVG checks if price is within the gap
func IsPriceInFVG(price float64, gap FairValueGap) bool {
	return price >= gap.Low && price <= gap.High
}

// IsPriceNearFVG checks if price is inside the gap or within proximityPct
// percent of the gap size from either edge
func IsPriceNearFVG(price float64, gap FairValueGap, proximityPct float64) bool {
	if IsPriceInFVG(price, gap) {
		return true
	}
	threshold := (gap.High - gap.Low) * (proximityPct / 100)
	return math.Abs(price-gap.High) <= threshold || math.Abs(price-gap.Low) <= threshold
}

// UnfilledFVGs returns only the gaps price has not filled yet
func UnfilledFVGs(gaps []FairValueGap) []FairValueGap {
	var unfilled []FairValueGap
	for _, g := range gaps {
		if !g.Filled {
			unfilled = append(unfilled, g)
		}
	}
	return unfilled
}
