package analysis

import (
	"math"

	"smc-advisor/internal/market"
)

// SwingKind distinguishes swing highs from swing lows
type SwingKind string

const (
	SwingHigh SwingKind = "high"
	SwingLow  SwingKind = "low"
)

// swingKindFor returns the swing type whose break confirms a move in direction d
func swingKindFor(d market.Direction) SwingKind {
	if d == market.Bearish {
		return SwingLow
	}
	return SwingHigh
}

// SwingPoint is a local extreme of the candle sequence
type SwingPoint struct {
	Index int       `json:"index"`
	Price float64   `json:"price"`
	Kind  SwingKind `json:"kind"`
}

// SwingStructure summarizes the sequence of swing highs and lows
type SwingStructure struct {
	HigherHighs      int          `json:"higher_highs"`
	HigherLows       int          `json:"higher_lows"`
	LowerHighs       int          `json:"lower_highs"`
	LowerLows        int          `json:"lower_lows"`
	Bias             market.Trend `json:"bias"`
	SupportLevels    []float64    `json:"support_levels"`
	ResistanceLevels []float64    `json:"resistance_levels"`
}

// DetectSwings flags every index with a full window of lookback candles on
// both sides whose high (low) is the maximum (minimum) of that window. Ties
// are allowed, so equal highs can both be reported. An index may be both a
// swing high and a swing low. Results are ordered by index.
func DetectSwings(candles []market.Candle, lookback int) []SwingPoint {
	if lookback <= 0 || len(candles) < 2*lookback+1 {
		return nil
	}

	var swings []SwingPoint
	for i := lookback; i < len(candles)-lookback; i++ {
		isHigh, isLow := true, true
		for j := i - lookback; j <= i+lookback; j++ {
			if candles[j].High > candles[i].High {
				isHigh = false
			}
			if candles[j].Low < candles[i].Low {
				isLow = false
			}
		}
		if isHigh {
			swings = append(swings, SwingPoint{Index: i, Price: candles[i].High, Kind: SwingHigh})
		}
		if isLow {
			swings = append(swings, SwingPoint{Index: i, Price: candles[i].Low, Kind: SwingLow})
		}
	}
	return swings
}

// FilterSwings returns the swings of one kind, preserving order
func FilterSwings(swings []SwingPoint, kind SwingKind) []SwingPoint {
	var out []SwingPoint
	for _, s := range swings {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

// lastSwings returns up to n trailing swings of the given kind
func lastSwings(swings []SwingPoint, kind SwingKind, n int) []SwingPoint {
	filtered := FilterSwings(swings, kind)
	if len(filtered) > n {
		filtered = filtered[len(filtered)-n:]
	}
	return filtered
}

// swingsBefore returns up to n most recent swings of kind located strictly
// before index, newest first
func swingsBefore(swings []SwingPoint, kind SwingKind, index, n int) []SwingPoint {
	var out []SwingPoint
	for i := len(swings) - 1; i >= 0 && len(out) < n; i-- {
		if swings[i].Kind == kind && swings[i].Index < index {
			out = append(out, swings[i])
		}
	}
	return out
}

// SummarizeSwings counts higher/lower highs and lows, derives the swing bias
// and clusters the swings into support and resistance levels
func SummarizeSwings(swings []SwingPoint, tolerancePct float64) SwingStructure {
	highs := FilterSwings(swings, SwingHigh)
	lows := FilterSwings(swings, SwingLow)

	s := SwingStructure{Bias: market.TrendNeutral}
	for i := 1; i < len(highs); i++ {
		if highs[i].Price > highs[i-1].Price {
			s.HigherHighs++
		} else if highs[i].Price < highs[i-1].Price {
			s.LowerHighs++
		}
	}
	for i := 1; i < len(lows); i++ {
		if lows[i].Price > lows[i-1].Price {
			s.HigherLows++
		} else if lows[i].Price < lows[i-1].Price {
			s.LowerLows++
		}
	}

	// Bullish: higher highs and higher lows dominate
	if s.HigherHighs > 0 && s.HigherLows > 0 &&
		s.HigherHighs >= s.LowerHighs && s.HigherLows >= s.LowerLows {
		s.Bias = market.TrendBullish
	} else if s.LowerHighs > 0 && s.LowerLows > 0 &&
		s.LowerHighs >= s.HigherHighs && s.LowerLows >= s.HigherLows {
		s.Bias = market.TrendBearish
	}

	for _, c := range clusterSwings(lows, tolerancePct) {
		s.SupportLevels = append(s.SupportLevels, c.price)
	}
	for _, c := range clusterSwings(highs, tolerancePct) {
		s.ResistanceLevels = append(s.ResistanceLevels, c.price)
	}
	return s
}

// levelCluster is a group of swings priced within tolerance of each other
type levelCluster struct {
	price     float64
	touches   int
	lastIndex int
}

// clusterSwings greedily groups swings whose price lies within tolerancePct
// of a cluster's running average
func clusterSwings(swings []SwingPoint, tolerancePct float64) []levelCluster {
	var clusters []levelCluster
	for _, s := range swings {
		found := false
		for i := range clusters {
			c := &clusters[i]
			if c.price > 0 && math.Abs(s.Price-c.price)/c.price*100 <= tolerancePct {
				c.price = (c.price*float64(c.touches) + s.Price) / float64(c.touches+1)
				c.touches++
				if s.Index > c.lastIndex {
					c.lastIndex = s.Index
				}
				found = true
				break
			}
		}
		if !found {
			clusters = append(clusters, levelCluster{price: s.Price, touches: 1, lastIndex: s.Index})
		}
	}
	return clusters
}
