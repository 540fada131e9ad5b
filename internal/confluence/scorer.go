package confluence

import (
	"fmt"
	"math"

	"smc-advisor/internal/analysis"
	"smc-advisor/internal/indicators"
	"smc-advisor/internal/market"
)

// Weights are the points each factor adds to its bucket when it fires
type Weights struct {
	RSI            float64 `json:"rsi" yaml:"rsi"`
	EMACross       float64 `json:"ema_cross" yaml:"emaCross"`
	PriceAction    float64 `json:"price_action" yaml:"priceAction"`
	VolumeMomentum float64 `json:"volume_momentum" yaml:"volumeMomentum"`
	Momentum       float64 `json:"momentum" yaml:"momentum"`
	VolumeSpike    float64 `json:"volume_spike" yaml:"volumeSpike"`
	FVGImbalance   float64 `json:"fvg_imbalance" yaml:"fvgImbalance"`
	LiquiditySweep float64 `json:"liquidity_sweep" yaml:"liquiditySweep"`
	Wyckoff        float64 `json:"wyckoff" yaml:"wyckoff"`
}

// DefaultWeights returns the stock weights: 70 points of classic factors and
// 49 points of structural factors
func DefaultWeights() Weights {
	return Weights{
		RSI:            20,
		EMACross:       20,
		PriceAction:    15,
		VolumeMomentum: 10,
		Momentum:       5,
		VolumeSpike:    15,
		FVGImbalance:   12,
		LiquiditySweep: 12,
		Wyckoff:        10,
	}
}

func (w Weights) classicTotal() float64 {
	return w.RSI + w.EMACross + w.PriceAction + w.VolumeMomentum + w.Momentum
}

func (w Weights) structuralTotal() float64 {
	return w.VolumeSpike + w.FVGImbalance + w.LiquiditySweep + w.Wyckoff
}

const (
	rsiOversold          = 30.0
	rsiOverbought        = 70.0
	priceActionCandles   = 10
	priceActionPct       = 0.5
	momentumMagnitude    = 2.0
	volumeSpikeRatio     = 2.0
	volumeElevatedRatio  = 1.5
	labelThresholdFactor = 0.10
)

// Factor is one fired signal
type Factor struct {
	Name      string           `json:"name"`
	Direction market.Direction `json:"direction"`
	Points    float64          `json:"points"`
	Detail    string           `json:"detail"`
}

// Input is what the scorer reads. Snapshot is optional; without it only the
// classic factors count toward the total.
type Input struct {
	Candles    []market.Candle
	Indicators indicators.TechnicalIndicators
	Snapshot   *analysis.Snapshot
}

// Sentiment is the scored market bias
type Sentiment struct {
	Label      market.Trend `json:"label"`
	Bullish    float64      `json:"bullish"`
	Bearish    float64      `json:"bearish"`
	Net        float64      `json:"net"`
	Total      float64      `json:"total"`
	Strength   float64      `json:"strength"` // 0-100
	Grade      string       `json:"grade"`
	Confidence string       `json:"confidence"`
	Factors    []Factor     `json:"factors"`
}

// Scorer aggregates classic and structural signals into a sentiment
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer with default weights
func NewScorer() *Scorer {
	return &Scorer{weights: DefaultWeights()}
}

// SetWeights allows custom weight configuration
func (s *Scorer) SetWeights(w Weights) error {
	for _, v := range []float64{w.RSI, w.EMACross, w.PriceAction, w.VolumeMomentum, w.Momentum,
		w.VolumeSpike, w.FVGImbalance, w.LiquiditySweep, w.Wyckoff} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("weights must be non-negative, got %.2f", v)
		}
	}
	if w.classicTotal() <= 0 {
		return fmt.Errorf("classic weights must sum above zero")
	}
	s.weights = w
	return nil
}

// Weights returns the active weights
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Score computes the weighted sentiment
func (s *Scorer) Score(in Input) Sentiment {
	w := s.weights
	var factors []Factor
	add := func(name string, d market.Direction, points float64, detail string) {
		if d == "" || points <= 0 {
			return
		}
		factors = append(factors, Factor{Name: name, Direction: d, Points: points, Detail: detail})
	}

	ti := in.Indicators
	total := w.classicTotal()

	// 1. RSI extremes
	if ti.RSI < rsiOversold {
		add("rsi", market.Bullish, w.RSI, fmt.Sprintf("RSI oversold at %.1f", ti.RSI))
	} else if ti.RSI > rsiOverbought {
		add("rsi", market.Bearish, w.RSI, fmt.Sprintf("RSI overbought at %.1f", ti.RSI))
	}

	// 2. EMA crossover
	if ti.EMA9 > ti.EMA21 {
		add("ema_cross", market.Bullish, w.EMACross, "EMA9 above EMA21")
	} else if ti.EMA9 < ti.EMA21 {
		add("ema_cross", market.Bearish, w.EMACross, "EMA9 below EMA21")
	}

	// 3. Price action over the last 10 candles
	if change, ok := priceChange(in.Candles, priceActionCandles); ok {
		if change > priceActionPct {
			add("price_action", market.Bullish, w.PriceAction, fmt.Sprintf("price up %.2f%%", change))
		} else if change < -priceActionPct {
			add("price_action", market.Bearish, w.PriceAction, fmt.Sprintf("price down %.2f%%", change))
		}
	}

	// 4. Rising volume behind the momentum
	if analysis.VolumeTrend(in.Candles, priceActionCandles) > 0 && ti.Momentum != 0 {
		add("volume_momentum", directionOf(ti.Momentum), w.VolumeMomentum, "rising volume confirms momentum")
	}

	// 5. Momentum magnitude
	if math.Abs(ti.Momentum) > momentumMagnitude {
		add("momentum", directionOf(ti.Momentum), w.Momentum, fmt.Sprintf("momentum %.2f%%", ti.Momentum))
	}

	if snap := in.Snapshot; snap != nil {
		total += w.structuralTotal()

		// 6. Volume spike in the direction of the last candle
		if last, ok := market.Last(in.Candles); ok {
			d := candleDirection(last)
			ratio := snap.Volume.VolumeRatio
			if ratio > volumeSpikeRatio {
				add("volume_spike", d, w.VolumeSpike, fmt.Sprintf("volume %.1fx average", ratio))
			} else if ratio > volumeElevatedRatio {
				add("volume_spike", d, w.VolumeSpike*2/3, fmt.Sprintf("volume %.1fx average", ratio))
			}
		}

		// 7. Open FVG imbalance
		bull, bear := 0, 0
		for _, g := range analysis.UnfilledFVGs(snap.FVGs) {
			if g.Direction == market.Bullish {
				bull++
			} else {
				bear++
			}
		}
		diff := bull - bear
		detail := fmt.Sprintf("%d bullish vs %d bearish open gaps", bull, bear)
		switch {
		case diff >= 2:
			add("fvg_imbalance", market.Bullish, w.FVGImbalance, detail)
		case diff == 1:
			add("fvg_imbalance", market.Bullish, w.FVGImbalance/2, detail)
		case diff <= -2:
			add("fvg_imbalance", market.Bearish, w.FVGImbalance, detail)
		case diff == -1:
			add("fvg_imbalance", market.Bearish, w.FVGImbalance/2, detail)
		}

		// 8. Liquidity sweep
		if snap.Manipulation.IsStopHunt() {
			add("liquidity_sweep", snap.Manipulation.Direction, w.LiquiditySweep, snap.Manipulation.Description)
		}

		// 9. Wyckoff phase
		if d, strong, ok := snap.Wyckoff.Direction(); ok {
			points := w.Wyckoff * 6 / 10
			if strong {
				points = w.Wyckoff
			}
			add("wyckoff", d, points, "wyckoff "+string(snap.Wyckoff))
		}
	}

	return summarize(factors, total)
}

// summarize folds fired factors into the labelled sentiment
func summarize(factors []Factor, total float64) Sentiment {
	out := Sentiment{Label: market.TrendNeutral, Total: total, Factors: factors}
	for _, f := range factors {
		if f.Direction == market.Bullish {
			out.Bullish += f.Points
		} else {
			out.Bearish += f.Points
		}
	}
	out.Net = out.Bullish - out.Bearish

	if total > 0 {
		threshold := total * labelThresholdFactor
		if out.Net > threshold {
			out.Label = market.TrendBullish
		} else if out.Net < -threshold {
			out.Label = market.TrendBearish
		}
		out.Strength = math.Min(math.Abs(out.Net)/total*100, 100)
	}

	out.Grade = scoreToGrade(out.Strength / 100)
	out.Confidence = scoreToConfidence(out.Strength / 100)
	return out
}

// priceChange is the percent change of the close over the last n candles
func priceChange(candles []market.Candle, n int) (float64, bool) {
	if len(candles) < n+1 {
		return 0, false
	}
	base := candles[len(candles)-1-n].Close
	if base == 0 {
		return 0, false
	}
	return (candles[len(candles)-1].Close - base) / base * 100, true
}

func directionOf(v float64) market.Direction {
	if v > 0 {
		return market.Bullish
	}
	if v < 0 {
		return market.Bearish
	}
	return ""
}

func candleDirection(c market.Candle) market.Direction {
	return directionOf(c.Close - c.Open)
}

// scoreToGrade converts numerical score to letter grade
func scoreToGrade(score float64) string {
	if score >= 0.90 {
		return "A+"
	} else if score >= 0.85 {
		return "A"
	} else if score >= 0.75 {
		return "B+"
	} else if score >= 0.70 {
		return "B"
	} else if score >= 0.60 {
		return "C"
	} else if score >= 0.50 {
		return "D"
	}
	return "F"
}

// scoreToConfidence converts score to confidence level
func scoreToConfidence(score float64) string {
	if score >= 0.85 {
		return "Very High"
	} else if score >= 0.75 {
		return "High"
	} else if score >= 0.60 {
		return "Medium"
	} else if score >= 0.45 {
		return "Low"
	}
	return "Very Low"
}
