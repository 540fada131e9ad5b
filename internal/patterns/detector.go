package patterns

import (
	"smc-advisor/internal/market"
)

// PatternType represents different candlestick patterns
type PatternType string

const (
	MorningStar      PatternType = "morning_star"
	EveningStar      PatternType = "evening_star"
	ShootingStar     PatternType = "shooting_star"
	Hammer           PatternType = "hammer"
	HangingMan       PatternType = "hanging_man"
	BullishEngulfing PatternType = "bullish_engulfing"
	BearishEngulfing PatternType = "bearish_engulfing"
	Doji             PatternType = "doji"
	DragonflyDoji    PatternType = "dragonfly_doji"
	GravestoneDoji   PatternType = "gravestone_doji"
	BullishHarami    PatternType = "bullish_harami"
	BearishHarami    PatternType = "bearish_harami"
)

// DetectedPattern is a pattern completed on the candle at Index. Direction is
// empty for neutral patterns such as a plain doji.
type DetectedPattern struct {
	Type       PatternType      `json:"type"`
	Index      int              `json:"index"`
	Confidence float64          `json:"confidence"` // 0.0 to 1.0
	Direction  market.Direction `json:"direction,omitempty"`
}

// pick returns the bullish or bearish variant of a mirrored pattern
func pick(d market.Direction, bullish, bearish PatternType) PatternType {
	if d == market.Bullish {
		return bullish
	}
	return bearish
}

var directions = []market.Direction{market.Bullish, market.Bearish}

// Detect scans the candles for every supported pattern, ordered by the
// candle that completes them
func Detect(candles []market.Candle) []DetectedPattern {
	var patterns []DetectedPattern

	for i := range candles {
		c := candles[i]

		if i >= 2 {
			c1, c2 := candles[i-2], candles[i-1]
			for _, d := range directions {
				if isStar(c1, c2, c, d) {
					patterns = append(patterns, DetectedPattern{
						Type:       pick(d, MorningStar, EveningStar),
						Index:      i,
						Confidence: starConfidence(c1, c),
						Direction:  d,
					})
				}
			}
		}

		if i >= 1 {
			prev := candles[i-1]
			for _, d := range directions {
				if isEngulfing(prev, c, d) {
					patterns = append(patterns, DetectedPattern{
						Type:       pick(d, BullishEngulfing, BearishEngulfing),
						Index:      i,
						Confidence: 0.75,
						Direction:  d,
					})
				}
				if isHarami(prev, c, d) {
					patterns = append(patterns, DetectedPattern{
						Type:       pick(d, BullishHarami, BearishHarami),
						Index:      i,
						Confidence: 0.68,
						Direction:  d,
					})
				}
			}

			switch {
			case isHammerShape(c) && prev.IsBearish():
				patterns = append(patterns, DetectedPattern{Type: Hammer, Index: i, Confidence: 0.65, Direction: market.Bullish})
			case isHammerShape(c) && prev.IsBullish():
				patterns = append(patterns, DetectedPattern{Type: HangingMan, Index: i, Confidence: 0.65, Direction: market.Bearish})
			case isShootingStarShape(c) && prev.IsBullish():
				patterns = append(patterns, DetectedPattern{Type: ShootingStar, Index: i, Confidence: 0.65, Direction: market.Bearish})
			}
		}

		switch {
		case isDragonflyDoji(c):
			patterns = append(patterns, DetectedPattern{Type: DragonflyDoji, Index: i, Confidence: 0.62, Direction: market.Bullish})
		case isGravestoneDoji(c):
			patterns = append(patterns, DetectedPattern{Type: GravestoneDoji, Index: i, Confidence: 0.62, Direction: market.Bearish})
		case isDoji(c):
			patterns = append(patterns, DetectedPattern{Type: Doji, Index: i, Confidence: 0.50})
		}
	}

	return patterns
}

// starConfidence rewards a third candle stronger than the first
func starConfidence(c1, c3 market.Candle) float64 {
	confidence := 0.7
	if c3.Body() > c1.Body()*1.2 {
		confidence += 0.1
	}
	return confidence
}
