package autopilot

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"smc-advisor/internal/analysis"
	"smc-advisor/internal/indicators"
	"smc-advisor/internal/market"
)

// ErrInvalidEntry is returned when no positive entry price is available
var ErrInvalidEntry = errors.New("entry price must be positive")

const (
	// ATR multiples used when no structural level is available
	tp1ATRFallback = 1.5
	tp2ATRFallback = 3.0
	tp3ATRFallback = 5.0
	slATRFallback  = 1.5
	slATRBuffer    = 0.5

	// Caps on target distance, scaled by an escalating factor
	tp1ATRCap     = 3.0
	tp2ATRCap     = 5.0
	tp3ATRCap     = 8.0
	capEscalation = 1.5

	minRewardRisk         = 2
	fakeoutLeverageFactor = 0.6
	atrFallbackPct        = 0.01
)

// TradeCandidate is a fully specified trade suggestion
type TradeCandidate struct {
	ID               string       `json:"id"`
	Symbol           string       `json:"symbol"`
	Direction        market.Side  `json:"direction"`
	EntryPrice       float64      `json:"entry_price"`
	Leverage         int          `json:"leverage"`
	InvestmentAmount float64      `json:"investment_amount"`
	TP1              float64      `json:"tp1"`
	TP2              float64      `json:"tp2"`
	TP3              float64      `json:"tp3"`
	StopLoss         float64      `json:"stop_loss"`
	Reasoning        string       `json:"reasoning"`
	Modality         Modality     `json:"modality"`
	Interval         string       `json:"interval"`
	SignalStrength   float64      `json:"signal_strength"`
	Sentiment        market.Trend `json:"sentiment"`
	RiskReward       float64      `json:"risk_reward"`
	ATR              float64      `json:"atr"`
	Caution          bool         `json:"caution"`
	CreatedAt        time.Time    `json:"created_at"`
}

// TradeInput is everything BuildTrade derives a trade from
type TradeInput struct {
	Symbol     string
	Profile    ModalityProfile
	Candles    []market.Candle
	Indicators indicators.TechnicalIndicators
	Snapshot   analysis.Snapshot
	Sentiment  market.Trend
	Price      float64 // latest price; 0 uses the last close
}

// level is a price expressed as its distance from entry in the trade direction
type level struct {
	dist   float64
	source string
}

// BuildTrade turns an analysed candidate into trade parameters. It is pure
// apart from the leverage draw on rnd; ID and CreatedAt are left to the caller.
func BuildTrade(in TradeInput, rnd RandomSource) (TradeCandidate, error) {
	side := market.Long
	if in.Indicators.Trend == market.TrendBearish {
		side = market.Short
	}
	dir := side.Direction()

	entry := in.Price
	if entry <= 0 {
		if last, ok := market.Last(in.Candles); ok {
			entry = last.Close
		}
	}
	if entry <= 0 || math.IsNaN(entry) || math.IsInf(entry, 0) {
		return TradeCandidate{}, fmt.Errorf("%s: %w", in.Symbol, ErrInvalidEntry)
	}

	var notes []string
	atr := in.Indicators.ATR
	if atr <= 0 {
		atr = entry * atrFallbackPct
		notes = append(notes, "ATR unavailable, using 1% of entry")
	}

	snap := in.Snapshot
	tp1 := firstTarget(snap, entry, dir, atr)
	tp2 := secondTarget(snap, entry, dir, atr, tp1.dist)
	tp3 := thirdTarget(snap, entry, dir, atr, tp2.dist)
	sl := stopLevel(snap, entry, dir, atr)
	risk := sl.dist

	// Minimum reward:risk on TP1
	if tp1.dist < minRewardRisk*risk {
		tp1 = level{dist: minRewardRisk * risk, source: "widened to 1:2 reward:risk"}
	}

	// Monotonic ordering away from entry
	if tp2.dist <= tp1.dist {
		tp2 = level{dist: tp1.dist + atr, source: "TP1 + 1 ATR"}
	}
	if tp3.dist <= tp2.dist {
		tp3 = level{dist: tp2.dist + atr, source: "TP2 + 1 ATR"}
	}

	// ATR caps; the factor escalates until the TP1 cap admits 1:2
	factor := 1.0
	for tp1ATRCap*atr*factor < minRewardRisk*risk {
		factor *= capEscalation
	}
	cap1, cap2, cap3 := tp1ATRCap*atr*factor, tp2ATRCap*atr*factor, tp3ATRCap*atr*factor
	if tp1.dist > cap1 {
		tp1 = level{dist: cap1, source: fmt.Sprintf("capped at %.1f ATR", tp1ATRCap*factor)}
	}
	if tp2.dist > cap2 {
		tp2 = level{dist: cap2, source: fmt.Sprintf("capped at %.1f ATR", tp2ATRCap*factor)}
	}
	if tp3.dist > cap3 {
		tp3 = level{dist: cap3, source: fmt.Sprintf("capped at %.1f ATR", tp3ATRCap*factor)}
	}
	if tp2.dist <= tp1.dist {
		tp2 = level{dist: (tp1.dist + cap2) / 2, source: "between TP1 and cap"}
	}
	if tp3.dist <= tp2.dist {
		tp3 = level{dist: (tp2.dist + cap3) / 2, source: "between TP2 and cap"}
	}

	s := dir.Sign()
	lv := roundLevels(side, tradeLevels{
		entry: entry,
		tp1:   entry + s*tp1.dist,
		tp2:   entry + s*tp2.dist,
		tp3:   entry + s*tp3.dist,
		stop:  entry - s*risk,
	})

	leverage := rnd.IntInRange(in.Profile.MinLeverage, in.Profile.MaxLeverage)
	fakeout := snap.Manipulation.IsFakeout()
	if fakeout {
		leverage = max(1, int(math.Round(float64(leverage)*fakeoutLeverageFactor)))
	}

	rr := 0.0
	if r := math.Abs(lv.entry - lv.stop); r > 0 {
		rr = math.Abs(lv.tp1-lv.entry) / r
	}

	var b strings.Builder
	if fakeout {
		fmt.Fprintf(&b, "CAUTION: fakeout at %s, break not confirmed; leverage reduced to %dx. ",
			formatPrice(snap.Manipulation.Price), leverage)
	}
	fmt.Fprintf(&b, "%s %s on %s: trend %s, strength %.1f, RSI %.1f, momentum %s, sentiment %s",
		side, in.Symbol, in.Profile.Interval, in.Indicators.Trend, in.Indicators.SignalStrength,
		in.Indicators.RSI, formatPercent(in.Indicators.Momentum), in.Sentiment)
	fmt.Fprintf(&b, "; TP1 %s (%s)", formatPrice(lv.tp1), tp1.source)
	fmt.Fprintf(&b, "; TP2 %s (%s)", formatPrice(lv.tp2), tp2.source)
	fmt.Fprintf(&b, "; TP3 %s (%s)", formatPrice(lv.tp3), tp3.source)
	fmt.Fprintf(&b, "; SL %s (%s)", formatPrice(lv.stop), sl.source)
	atrPct := atr / entry * 100
	fmt.Fprintf(&b, "; volatility %s (ATR %s); R:R 1:%.2f", GetVolatilityLevel(atrPct), formatPercent(atrPct), rr)
	for _, n := range notes {
		b.WriteString("; " + n)
	}

	return TradeCandidate{
		Symbol:           in.Symbol,
		Direction:        side,
		EntryPrice:       lv.entry,
		Leverage:         leverage,
		InvestmentAmount: in.Profile.InvestmentAmount,
		TP1:              lv.tp1,
		TP2:              lv.tp2,
		TP3:              lv.tp3,
		StopLoss:         lv.stop,
		Reasoning:        b.String(),
		Modality:         in.Profile.Modality,
		Interval:         in.Profile.Interval,
		SignalStrength:   in.Indicators.SignalStrength,
		Sentiment:        in.Sentiment,
		RiskReward:       math.Round(rr*100) / 100,
		ATR:              atr,
		Caution:          fakeout,
	}, nil
}

// firstTarget is the nearest unfilled FVG midpoint beyond entry
func firstTarget(snap analysis.Snapshot, entry float64, dir market.Direction, atr float64) level {
	var mids []float64
	for _, g := range analysis.UnfilledFVGs(snap.FVGs) {
		mids = append(mids, g.Midpoint)
	}
	if d, ok := nearestBeyond(mids, entry, dir, 0); ok {
		return level{dist: d, source: "FVG midpoint"}
	}
	return level{dist: tp1ATRFallback * atr, source: fmt.Sprintf("%.1f ATR", tp1ATRFallback)}
}

// secondTarget is the nearest swing extreme beyond TP1
func secondTarget(snap analysis.Snapshot, entry float64, dir market.Direction, atr, floor float64) level {
	kind, name := analysis.SwingHigh, "swing high"
	if dir == market.Bearish {
		kind, name = analysis.SwingLow, "swing low"
	}
	var prices []float64
	for _, s := range analysis.FilterSwings(snap.Swings, kind) {
		prices = append(prices, s.Price)
	}
	if d, ok := nearestBeyond(prices, entry, dir, floor); ok {
		return level{dist: d, source: name}
	}
	return level{dist: tp2ATRFallback * atr, source: fmt.Sprintf("%.1f ATR", tp2ATRFallback)}
}

// thirdTarget is the near edge of the nearest opposing unmitigated order
// block beyond TP2, then of the nearest opposing unfilled FVG
func thirdTarget(snap analysis.Snapshot, entry float64, dir market.Direction, atr, floor float64) level {
	opposing := dir.Opposite()

	var edges []float64
	for _, ob := range snap.OrderBlocks {
		if ob.Direction == opposing && !ob.Mitigated {
			edges = append(edges, ob.NearEdge(dir))
		}
	}
	if d, ok := nearestBeyond(edges, entry, dir, floor); ok {
		return level{dist: d, source: "opposing order block"}
	}

	edges = edges[:0]
	for _, g := range analysis.UnfilledFVGs(snap.FVGs) {
		if g.Direction != opposing {
			continue
		}
		if dir == market.Bullish {
			edges = append(edges, g.Low)
		} else {
			edges = append(edges, g.High)
		}
	}
	if d, ok := nearestBeyond(edges, entry, dir, floor); ok {
		return level{dist: d, source: "opposing FVG"}
	}
	return level{dist: tp3ATRFallback * atr, source: fmt.Sprintf("%.1f ATR", tp3ATRFallback)}
}

// stopLevel returns the risk distance below (long) or above (short) entry:
// beyond a swept liquidity level, then beyond the nearest equal-lows (highs)
// cluster, then a plain ATR offset
func stopLevel(snap analysis.Snapshot, entry float64, dir market.Direction, atr float64) level {
	s := dir.Sign()
	buffer := slATRBuffer * atr

	if m := snap.Manipulation; m.IsStopHunt() && m.Direction == dir {
		if r := s * (entry - m.Price); r > 0 {
			return level{dist: r + buffer, source: "beyond swept liquidity"}
		}
	}

	kind := analysis.EqualLows
	if dir == market.Bearish {
		kind = analysis.EqualHighs
	}
	best, found := 0.0, false
	for _, z := range snap.Liquidity {
		if z.Kind != kind {
			continue
		}
		if r := s * (entry - z.Price); r > 0 && (!found || r < best) {
			best, found = r, true
		}
	}
	if found {
		return level{dist: best + buffer, source: "beyond liquidity cluster"}
	}
	return level{dist: slATRFallback * atr, source: fmt.Sprintf("%.1f ATR", slATRFallback)}
}

// nearestBeyond returns the smallest distance above floor from entry to any
// of levels, measured in direction dir
func nearestBeyond(levels []float64, entry float64, dir market.Direction, floor float64) (float64, bool) {
	best, found := 0.0, false
	for _, lv := range levels {
		d := dir.Sign() * (lv - entry)
		if d > floor && (!found || d < best) {
			best, found = d, true
		}
	}
	return best, found
}
