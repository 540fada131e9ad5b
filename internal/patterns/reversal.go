package patterns

import (
	"smc-advisor/internal/market"
)

// isColored reports whether c closed in direction d
func isColored(c market.Candle, d market.Direction) bool {
	if d == market.Bullish {
		return c.IsBullish()
	}
	return c.IsBearish()
}

// isLongBody reports a body covering at least 60% of the range
func isLongBody(c market.Candle) bool {
	return c.Range() > 0 && c.Body() >= c.Range()*0.6
}

// isEngulfing checks whether c2's body, colored d, engulfs the opposite
// colored body of c1
func isEngulfing(c1, c2 market.Candle, d market.Direction) bool {
	if !isColored(c1, d.Opposite()) || !isColored(c2, d) {
		return false
	}
	// c2 opens at or beyond c1's close and closes at or beyond c1's open
	return d.Sign()*(c1.Close-c2.Open) >= 0 && d.Sign()*(c2.Close-c1.Open) >= 0
}

// isHarami checks for a small d-colored body inside a large opposite body
func isHarami(c1, c2 market.Candle, d market.Direction) bool {
	if !isColored(c1, d.Opposite()) || !isLongBody(c1) || !isColored(c2, d) {
		return false
	}

	top1 := max(c1.Open, c1.Close)
	bottom1 := min(c1.Open, c1.Close)
	if max(c2.Open, c2.Close) > top1 || min(c2.Open, c2.Close) < bottom1 {
		return false
	}
	return c2.Body() <= c1.Body()*0.5
}

// isStar checks a morning star (d bullish) or evening star (d bearish):
// a long opposite candle, a small indecision body, then a long d-colored
// candle closing beyond the first candle's midpoint
func isStar(c1, c2, c3 market.Candle, d market.Direction) bool {
	if !isColored(c1, d.Opposite()) || !isLongBody(c1) {
		return false
	}
	if c2.Body() > c1.Body()*0.4 {
		return false
	}
	if !isColored(c3, d) || !isLongBody(c3) {
		return false
	}
	midpoint := (c1.Open + c1.Close) / 2
	return d.Sign()*(c3.Close-midpoint) >= 0
}

// isHammerShape checks for a lower wick at least twice the body and a small
// upper wick. Context decides between hammer and hanging man.
func isHammerShape(c market.Candle) bool {
	body := c.Body()
	return c.Range() > 0 && c.LowerWick() >= body*2 && c.UpperWick() <= body*0.3
}

// isShootingStarShape mirrors isHammerShape
func isShootingStarShape(c market.Candle) bool {
	body := c.Body()
	return c.Range() > 0 && c.UpperWick() >= body*2 && c.LowerWick() <= body*0.3
}

// isDoji checks for a body smaller than 10% of the range
func isDoji(c market.Candle) bool {
	r := c.Range()
	if r == 0 {
		return false
	}
	return c.Body()/r < 0.10
}

// isDragonflyDoji checks for a doji whose body sits at the top of the range
func isDragonflyDoji(c market.Candle) bool {
	r := c.Range()
	return isDoji(c) && c.LowerWick() >= r*0.6 && c.UpperWick() <= r*0.1
}

// isGravestoneDoji checks for a doji whose body sits at the bottom of the range
func isGravestoneDoji(c market.Candle) bool {
	r := c.Range()
	return isDoji(c) && c.UpperWick() >= r*0.6 && c.LowerWick() <= r*0.1
}

// LatestReversal returns the most recent pattern in direction d that
// completed within the last `within` candles
func LatestReversal(candles []market.Candle, d market.Direction, within int) (DetectedPattern, bool) {
	if len(candles) < 2 || within <= 0 {
		return DetectedPattern{}, false
	}

	start := len(candles) - within - 2
	if start < 0 {
		start = 0
	}
	patterns := Detect(candles[start:])
	cutoff := len(candles) - within
	for i := len(patterns) - 1; i >= 0; i-- {
		p := patterns[i]
		p.Index += start
		if p.Index < cutoff {
			break
		}
		if p.Direction == d {
			return p, true
		}
	}
	return DetectedPattern{}, false
}
