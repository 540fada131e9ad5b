package analysis

import (
	"fmt"

	"smc-advisor/internal/market"
)

// ManipulationKind classifies a manipulation signal
type ManipulationKind string

const (
	NoManipulation ManipulationKind = "none"
	StopHunt       ManipulationKind = "stop_hunt"
	Fakeout        ManipulationKind = "fakeout"
)

// ManipulationSignal is the result of DetectManipulation. Direction is the
// bias implied by the trap: a sweep below lows is bullish, a failed break
// above highs is bearish.
type ManipulationSignal struct {
	Detected    bool             `json:"detected"`
	Kind        ManipulationKind `json:"kind"`
	Price       float64          `json:"price"`
	Direction   market.Direction `json:"direction,omitempty"`
	Index       int              `json:"index"`
	Description string           `json:"description"`
}

// IsFakeout reports whether the signal is an unconfirmed break
func (m ManipulationSignal) IsFakeout() bool {
	return m.Detected && m.Kind == Fakeout
}

// IsStopHunt reports whether the signal is a liquidity sweep
func (m ManipulationSignal) IsStopHunt() bool {
	return m.Detected && m.Kind == StopHunt
}

// noManipulation is the zero result
func noManipulation() ManipulationSignal {
	return ManipulationSignal{Kind: NoManipulation, Index: -1, Description: "no manipulation detected"}
}

// DetectManipulation scans the last ManipulationWindow candles, newest first,
// for a stop hunt: a candle arriving from inside a prior swing level whose
// wick pierces it and whose close falls back inside, with a wick-to-close
// distance above StopHuntWickPct. Failing that, it
// checks whether the last candle pierced the most recent swing without a
// confirming close (fakeout). At most one signal is returned.
func DetectManipulation(candles []market.Candle, swings []SwingPoint, p Params) ManipulationSignal {
	p = p.Normalize()
	n := len(candles)
	if n < 2 || len(swings) == 0 {
		return noManipulation()
	}

	start := n - p.ManipulationWindow
	if start < 1 {
		start = 1
	}

	for k := n - 1; k >= start; k-- {
		c := candles[k]
		prev := candles[k-1].Close
		// Sweeps below swing lows are checked before sweeps above highs.
		for _, s := range swingsBefore(swings, SwingLow, k, p.BOSSwingCount) {
			if prev > s.Price && c.Low < s.Price && c.Close > s.Price && c.Low > 0 &&
				(c.Close-c.Low)/c.Low*100 > p.StopHuntWickPct {
				return ManipulationSignal{
					Detected:  true,
					Kind:      StopHunt,
					Price:     s.Price,
					Direction: market.Bullish,
					Index:     k,
					Description: fmt.Sprintf("stop hunt below swing low %.4f (wick %.4f, close %.4f)",
						s.Price, c.Low, c.Close),
				}
			}
		}
		for _, s := range swingsBefore(swings, SwingHigh, k, p.BOSSwingCount) {
			if prev < s.Price && c.High > s.Price && c.Close < s.Price && c.Close > 0 &&
				(c.High-c.Close)/c.Close*100 > p.StopHuntWickPct {
				return ManipulationSignal{
					Detected:  true,
					Kind:      StopHunt,
					Price:     s.Price,
					Direction: market.Bearish,
					Index:     k,
					Description: fmt.Sprintf("stop hunt above swing high %.4f (wick %.4f, close %.4f)",
						s.Price, c.High, c.Close),
				}
			}
		}
	}

	last := candles[n-1]
	if hs := swingsBefore(swings, SwingHigh, n-1, 1); len(hs) == 1 {
		level := hs[0].Price
		if last.High > level && displacementPct(last.Close, level, market.Bullish) <= p.BOSDisplacementPct {
			return ManipulationSignal{
				Detected:    true,
				Kind:        Fakeout,
				Price:       level,
				Direction:   market.Bearish,
				Index:       n - 1,
				Description: fmt.Sprintf("unconfirmed break above swing high %.4f", level),
			}
		}
	}
	if ls := swingsBefore(swings, SwingLow, n-1, 1); len(ls) == 1 {
		level := ls[0].Price
		if last.Low < level && displacementPct(last.Close, level, market.Bearish) <= p.BOSDisplacementPct {
			return ManipulationSignal{
				Detected:    true,
				Kind:        Fakeout,
				Price:       level,
				Direction:   market.Bullish,
				Index:       n - 1,
				Description: fmt.Sprintf("unconfirmed break below swing low %.4f", level),
			}
		}
	}

	return noManipulation()
}
