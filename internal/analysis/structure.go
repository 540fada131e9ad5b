package analysis

import (
	"sort"

	"smc-advisor/internal/market"
)

// StructureBreak is a BOS or CHOCH: the broken level, the direction of the
// break and the candle whose close confirmed it.
type StructureBreak struct {
	Index           int              `json:"index"`
	Price           float64          `json:"price"`
	Direction       market.Direction `json:"direction"`
	DisplacementPct float64          `json:"displacement_pct"`
	SwingIndex      int              `json:"swing_index"`
}

// displacementPct is the signed distance of close beyond level in direction d
func displacementPct(close, level float64, d market.Direction) float64 {
	if level == 0 {
		return 0
	}
	return d.Sign() * (close - level) / level * 100
}

// firstBreak scans closes from start for the first one beyond level by more
// than thresholdPct in direction d
func firstBreak(candles []market.Candle, start int, level float64, d market.Direction, thresholdPct float64) (int, float64, bool) {
	for i := start; i < len(candles); i++ {
		if disp := displacementPct(candles[i].Close, level, d); disp > thresholdPct {
			return i, disp, true
		}
	}
	return 0, 0, false
}

// DetectBOS checks the last BOSSwingCount swing highs (lows) and registers a
// bullish (bearish) break for the first later close beyond the level by more
// than BOSDisplacementPct. Results are ordered by confirming index.
func DetectBOS(candles []market.Candle, swings []SwingPoint, p Params) []StructureBreak {
	p = p.Normalize()

	var breaks []StructureBreak
	for _, d := range []market.Direction{market.Bullish, market.Bearish} {
		for _, s := range lastSwings(swings, swingKindFor(d), p.BOSSwingCount) {
			idx, disp, ok := firstBreak(candles, s.Index+1, s.Price, d, p.BOSDisplacementPct)
			if !ok {
				continue
			}
			breaks = append(breaks, StructureBreak{
				Index:           idx,
				Price:           s.Price,
				Direction:       d,
				DisplacementPct: disp,
				SwingIndex:      s.Index,
			})
		}
	}

	sort.SliceStable(breaks, func(i, j int) bool { return breaks[i].Index < breaks[j].Index })
	return breaks
}

// DetectCHOCH compares the two most recent swings of each kind. A lower high
// broken upward is a bullish change of character; a higher low broken
// downward is a bearish one.
func DetectCHOCH(candles []market.Candle, swings []SwingPoint, p Params) []StructureBreak {
	p = p.Normalize()

	var breaks []StructureBreak
	for _, d := range []market.Direction{market.Bullish, market.Bearish} {
		pair := lastSwings(swings, swingKindFor(d), 2)
		if len(pair) < 2 {
			continue
		}
		older, recent := pair[0], pair[1]

		// The recent swing must sit against d: a lower high for a bullish
		// change, a higher low for a bearish one.
		if d.Sign()*(recent.Price-older.Price) >= 0 {
			continue
		}

		idx, disp, ok := firstBreak(candles, recent.Index+1, recent.Price, d, p.CHOCHDisplacementPct)
		if !ok {
			continue
		}
		breaks = append(breaks, StructureBreak{
			Index:           idx,
			Price:           recent.Price,
			Direction:       d,
			DisplacementPct: disp,
			SwingIndex:      recent.Index,
		})
	}

	sort.SliceStable(breaks, func(i, j int) bool { return breaks[i].Index < breaks[j].Index })
	return breaks
}

// LatestBreak returns the most recent break in direction d
func LatestBreak(breaks []StructureBreak, d market.Direction) (StructureBreak, bool) {
	for i := len(breaks) - 1; i >= 0; i-- {
		if breaks[i].Direction == d {
			return breaks[i], true
		}
	}
	return StructureBreak{}, false
}
