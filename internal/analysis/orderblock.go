package analysis

import (
	"smc-advisor/internal/market"
)

// OrderBlock is the last opposite-colored candle before a break of structure
type OrderBlock struct {
	Index      int              `json:"index"`
	High       float64          `json:"high"`
	Low        float64          `json:"low"`
	Open       float64          `json:"open"`
	Close      float64          `json:"close"`
	Direction  market.Direction `json:"direction"`
	Mitigated  bool             `json:"mitigated"`
	Midpoint   float64          `json:"midpoint"`
	BreakIndex int              `json:"break_index"`
}

// NearEdge is the side of the block price reaches first when approaching it
// from a position in direction d
func (ob OrderBlock) NearEdge(d market.Direction) float64 {
	if d == market.Bullish {
		return ob.Low
	}
	return ob.High
}

// BreakerBlock is an order block that price closed through; it flips to the
// opposite direction.
type BreakerBlock struct {
	OrderBlockIndex int              `json:"order_block_index"`
	High            float64          `json:"high"`
	Low             float64          `json:"low"`
	Direction       market.Direction `json:"direction"`
	BrokenIndex     int              `json:"broken_index"`
	Midpoint        float64          `json:"midpoint"`
}

// DetectOrderBlocks looks back up to OrderBlockLookback candles from each
// BOS for the last candle of the opposite color. The block is mitigated once
// any candle after it, up to MitigationWindow past the BOS, trades back to
// its edge.
func DetectOrderBlocks(candles []market.Candle, bos []StructureBreak, p Params) []OrderBlock {
	p = p.Normalize()

	var blocks []OrderBlock
	seen := make(map[int]bool)
	for _, b := range bos {
		if b.Index <= 0 || b.Index >= len(candles) {
			continue
		}

		idx := -1
		stop := b.Index - p.OrderBlockLookback
		if stop < 0 {
			stop = 0
		}
		for i := b.Index - 1; i >= stop; i-- {
			c := candles[i]
			if (b.Direction == market.Bullish && c.IsBearish()) ||
				(b.Direction == market.Bearish && c.IsBullish()) {
				idx = i
				break
			}
		}
		if idx < 0 || seen[idx] {
			continue
		}
		seen[idx] = true

		c := candles[idx]
		ob := OrderBlock{
			Index:      idx,
			High:       c.High,
			Low:        c.Low,
			Open:       c.Open,
			Close:      c.Close,
			Direction:  b.Direction,
			Midpoint:   (c.High + c.Low) / 2,
			BreakIndex: b.Index,
		}

		end := b.Index + p.MitigationWindow
		if end > len(candles)-1 {
			end = len(candles) - 1
		}
		for k := ob.Index + 1; k <= end; k++ {
			if (ob.Direction == market.Bullish && candles[k].Low <= ob.High) ||
				(ob.Direction == market.Bearish && candles[k].High >= ob.Low) {
				ob.Mitigated = true
				break
			}
		}
		blocks = append(blocks, ob)
	}
	return blocks
}

// DetectBreakerBlocks returns order blocks that a later close went through:
// a bullish block closed below its low becomes a bearish breaker and vice versa.
func DetectBreakerBlocks(candles []market.Candle, blocks []OrderBlock) []BreakerBlock {
	var breakers []BreakerBlock
	for _, ob := range blocks {
		for k := ob.BreakIndex + 1; k < len(candles); k++ {
			c := candles[k]
			if (ob.Direction == market.Bullish && c.Close < ob.Low) ||
				(ob.Direction == market.Bearish && c.Close > ob.High) {
				breakers = append(breakers, BreakerBlock{
					OrderBlockIndex: ob.Index,
					High:            ob.High,
					Low:             ob.Low,
					Direction:       ob.Direction.Opposite(),
					BrokenIndex:     k,
					Midpoint:        ob.Midpoint,
				})
				break
			}
		}
	}
	return breakers
}
