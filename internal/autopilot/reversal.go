package autopilot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"smc-advisor/internal/analysis"
	"smc-advisor/internal/indicators"
	"smc-advisor/internal/market"
	"smc-advisor/internal/patterns"
)

// ===== REVERSAL DETECTION FOR OPEN POSITIONS =====
// Structural (CHOCH, BOS, breaker, sweep) and classic (RSI divergence, EMA
// cross, candlestick, ATR spike, S/R violation) signals against an open
// position are scored under one policy and mapped to an action.

// ErrInvalidPosition is returned for a position missing side or entry
var ErrInvalidPosition = errors.New("invalid position")

// minReversalCandles is the shortest series a reversal is evaluated on
const minReversalCandles = 20

const (
	atrSpikeRatio         = 1.5
	patternRecency        = 3
	closeConfidence       = 75.0
	stopATRBuffer         = 0.5
	countPolicyThreshold  = 60.0
	weightPolicyThreshold = 50.0
)

// ReversalAction is the recommended handling of an open position
type ReversalAction string

const (
	ActionNone      ReversalAction = "NONE"
	ActionTightenSL ReversalAction = "TIGHTEN_SL"
	ActionClose     ReversalAction = "CLOSE"
	ActionReverse   ReversalAction = "REVERSE"
)

// ScoringPolicy selects how fired signals become a confidence
type ScoringPolicy string

const (
	// PolicySignalCount maps the number of fired signals to 30/60/80/95
	PolicySignalCount ScoringPolicy = "signal_count"
	// PolicyFixedWeight sums fixed weights of the classic signals
	PolicyFixedWeight ScoringPolicy = "fixed_weight"
)

// Valid reports whether p is a known policy
func (p ScoringPolicy) Valid() bool {
	return p == PolicySignalCount || p == PolicyFixedWeight
}

// threshold is the confidence at which a reversal is declared
func (p ScoringPolicy) threshold() float64 {
	if p == PolicyFixedWeight {
		return weightPolicyThreshold
	}
	return countPolicyThreshold
}

// Reversal signal names
const (
	SignalRSIDivergence  = "rsi_divergence"
	SignalEMACross       = "ema_cross"
	SignalCandlestick    = "candlestick"
	SignalATRSpike       = "atr_spike"
	SignalSRViolation    = "sr_violation"
	SignalCHOCH          = "choch"
	SignalBOS            = "bos"
	SignalBreaker        = "breaker"
	SignalLiquiditySweep = "liquidity_sweep"
)

// classicWeights are the fixed-weight policy weights, summing to 100
var classicWeights = map[string]float64{
	SignalRSIDivergence: 25,
	SignalEMACross:      30,
	SignalCandlestick:   20,
	SignalATRSpike:      10,
	SignalSRViolation:   15,
}

// Position is the open position being watched
type Position struct {
	Symbol            string      `json:"symbol"`
	Side              market.Side `json:"side"`
	EntryPrice        float64     `json:"entry_price"`
	EffectiveStopLoss float64     `json:"effective_stop_loss"`
	CurrentPrice      float64     `json:"current_price,omitempty"` // 0 uses the last close
	Modality          Modality    `json:"modality"`
	TP1Hit            bool        `json:"tp1_hit"`
	TP1Price          float64     `json:"tp1_price,omitempty"`
	Leverage          int         `json:"leverage"`
}

// Validate checks side and entry
func (p Position) Validate() error {
	if !p.Side.Valid() {
		return fmt.Errorf("%w: side %q", ErrInvalidPosition, p.Side)
	}
	if p.EntryPrice <= 0 || math.IsNaN(p.EntryPrice) {
		return fmt.Errorf("%w: entry price %v", ErrInvalidPosition, p.EntryPrice)
	}
	if p.EffectiveStopLoss < 0 || math.IsNaN(p.EffectiveStopLoss) {
		return fmt.Errorf("%w: stop loss %v", ErrInvalidPosition, p.EffectiveStopLoss)
	}
	return nil
}

// tp1Reached reports whether TP1 executed or price traded through it
func (p Position) tp1Reached(price float64) bool {
	if p.TP1Hit {
		return true
	}
	if p.TP1Price <= 0 {
		return false
	}
	return p.Side.Direction().Sign()*(price-p.TP1Price) >= 0
}

// ReversalSignal is the outcome of a reversal evaluation
type ReversalSignal struct {
	ID                string         `json:"id"`
	Symbol            string         `json:"symbol"`
	Side              market.Side    `json:"side"`
	Modality          Modality       `json:"modality"`
	DetectedReversal  bool           `json:"detected_reversal"`
	Confidence        float64        `json:"confidence"`
	Reason            string         `json:"reason"`
	RecommendedAction ReversalAction `json:"recommended_action"`
	SuggestedNewSL    *float64       `json:"suggested_new_sl,omitempty"`
	Signals           []string       `json:"signals"`
	Policy            ScoringPolicy  `json:"policy"`
	CurrentPrice      float64        `json:"current_price"`
	PnLPercent        float64        `json:"pnl_percent"`
	EvaluatedAt       time.Time      `json:"evaluated_at"`
}

// ReversalInput is everything DetectReversal reads
type ReversalInput struct {
	Position   Position
	Candles    []market.Candle
	Params     analysis.Params
	Indicators indicators.Config
	Policy     ScoringPolicy
}

// structuralContext is the SMC reading against the position
type structuralContext struct {
	choch       bool
	breaker     bool
	bos         bool
	sweep       bool
	sweepNoCont bool
}

// PositionPnL returns the leveraged unrealized PnL percentage
func PositionPnL(side market.Side, entry, current float64, leverage int) float64 {
	if entry <= 0 {
		return 0
	}
	pct := side.Direction().Sign() * (current - entry) / entry * 100
	return pct * float64(max(leverage, 1))
}

// DetectReversal evaluates reversal signals against the position. Series
// shorter than 20 candles yield no reversal with zero confidence.
func DetectReversal(in ReversalInput) ReversalSignal {
	pos := in.Position
	policy := in.Policy
	if !policy.Valid() {
		policy = PolicySignalCount
	}
	in.Indicators = in.Indicators.Normalize()

	out := ReversalSignal{
		Symbol:            pos.Symbol,
		Side:              pos.Side,
		Modality:          pos.Modality,
		RecommendedAction: ActionNone,
		Policy:            policy,
		Signals:           []string{},
		CurrentPrice:      pos.CurrentPrice,
	}
	if len(in.Candles) < minReversalCandles {
		out.Reason = fmt.Sprintf("insufficient data: %d candles, need %d", len(in.Candles), minReversalCandles)
		return out
	}

	price := pos.CurrentPrice
	if price <= 0 {
		price = in.Candles[len(in.Candles)-1].Close
	}
	out.CurrentPrice = price
	out.PnLPercent = math.Round(PositionPnL(pos.Side, pos.EntryPrice, price, pos.Leverage)*100) / 100

	snap, err := analysis.Analyze(in.Candles, in.Params)
	if err != nil {
		out.Reason = err.Error()
		return out
	}

	against := pos.Side.Direction().Opposite()
	var details []string
	fire := func(name, detail string) {
		out.Signals = append(out.Signals, name)
		details = append(details, detail)
	}

	// Classic signals
	if rsiDivergence(in.Candles, snap.Swings, against, in.Indicators.RSIPeriod) {
		fire(SignalRSIDivergence, "RSI divergence at last two swings")
	}
	closes := market.Closes(in.Candles)
	fast := indicators.EMA(closes, in.Indicators.FastEMA)
	slow := indicators.EMA(closes, in.Indicators.SlowEMA)
	if fast != slow && against.Sign()*(fast-slow) > 0 {
		fire(SignalEMACross, fmt.Sprintf("EMA%d %s EMA%d", in.Indicators.FastEMA, crossWord(against), in.Indicators.SlowEMA))
	}
	if p, ok := patterns.LatestReversal(in.Candles, against, patternRecency); ok {
		fire(SignalCandlestick, fmt.Sprintf("%s candle", p.Type))
	}
	if atrSpike(in.Candles, against, in.Indicators.ATRPeriod) {
		fire(SignalATRSpike, "ATR spike against position")
	}
	if lv, ok := violatedLevel(snap.Swings, against, price); ok {
		fire(SignalSRViolation, fmt.Sprintf("price beyond swing level %s", formatPrice(lv)))
	}

	// Structural signals
	st := readStructure(snap, against)
	if st.choch {
		fire(SignalCHOCH, fmt.Sprintf("%s CHOCH", against))
	}
	if st.bos {
		fire(SignalBOS, fmt.Sprintf("%s BOS", against))
	}
	if st.breaker {
		fire(SignalBreaker, fmt.Sprintf("%s breaker block", against))
	}
	if st.sweep {
		fire(SignalLiquiditySweep, fmt.Sprintf("liquidity sweep at %s", formatPrice(snap.Manipulation.Price)))
	}

	out.Confidence = scoreSignals(out.Signals, policy)
	out.DetectedReversal = out.Confidence >= policy.threshold()

	action, why := recommendAction(st, out.Confidence, policy.threshold(), pos.tp1Reached(price))
	if action == ActionTightenSL || action == ActionClose {
		atr := indicators.ATR(in.Candles, in.Indicators.ATRPeriod)
		if atr <= 0 {
			atr = price * atrFallbackPct
		}
		if sl, ok := suggestStop(pos.Side, price, atr, pos.EffectiveStopLoss); ok {
			out.SuggestedNewSL = &sl
		} else if action == ActionTightenSL {
			action = ActionNone
			why += "; no tighter stop available without immediate trigger"
		}
	}
	if action == ActionReverse || action == ActionClose {
		out.DetectedReversal = true
	}
	out.RecommendedAction = action

	if len(details) == 0 {
		out.Reason = why
	} else {
		out.Reason = why + ": " + strings.Join(details, ", ")
	}
	return out
}

// scoreSignals turns fired signals into a 0-100 confidence
func scoreSignals(signals []string, policy ScoringPolicy) float64 {
	if policy == PolicyFixedWeight {
		total := 0.0
		for _, s := range signals {
			total += classicWeights[s]
		}
		return math.Min(total, 100)
	}
	switch n := len(signals); {
	case n == 0:
		return 0
	case n == 1:
		return 30
	case n == 2:
		return 60
	case n == 3:
		return 80
	default:
		return 95
	}
}

// recommendAction maps structure and confidence to an action. Reverse needs
// TP1 reached, otherwise it is downgraded to Close.
func recommendAction(st structuralContext, confidence, threshold float64, tp1Reached bool) (ReversalAction, string) {
	switch {
	case st.choch && st.breaker:
		if !tp1Reached {
			return ActionClose, "CHOCH with breaker block, TP1 not reached"
		}
		return ActionReverse, "CHOCH with breaker block"
	case confidence > closeConfidence:
		return ActionClose, fmt.Sprintf("confidence %.0f above %.0f", confidence, closeConfidence)
	case st.choch:
		return ActionTightenSL, "CHOCH against position"
	case st.sweepNoCont:
		return ActionTightenSL, "liquidity sweep without BOS continuation"
	case confidence >= threshold:
		return ActionTightenSL, fmt.Sprintf("confidence %.0f at or above %.0f", confidence, threshold)
	}
	return ActionNone, "no reversal"
}

// suggestStop offsets price by half an ATR against the position, never looser
// than the current stop. ok is false when the stop would not tighten or would
// trigger immediately.
func suggestStop(side market.Side, price, atr, current float64) (float64, bool) {
	s := side.Direction().Sign()
	sl := roundPrice(price-s*stopATRBuffer*atr, price)
	if current > 0 && s*(sl-current) <= 0 {
		return 0, false
	}
	if s*(price-sl) <= 0 {
		return 0, false
	}
	return sl, true
}

// readStructure collects the SMC signals pointing in direction against
func readStructure(snap analysis.Snapshot, against market.Direction) structuralContext {
	st := structuralContext{
		choch:   snap.HasCHOCH(against),
		breaker: snap.HasBreaker(against),
	}
	if n := len(snap.BOS); n > 0 && snap.BOS[n-1].Direction == against {
		st.bos = true
	}
	m := snap.Manipulation
	if m.IsStopHunt() && m.Direction == against {
		st.sweep = true
		st.sweepNoCont = true
		for _, b := range snap.BOS {
			if b.Direction == against && b.Index > m.Index {
				st.sweepNoCont = false
				break
			}
		}
	}
	return st
}

// rsiDivergence compares price and RSI at the last two swing highs (for a
// bearish divergence) or lows (bullish)
func rsiDivergence(candles []market.Candle, swings []analysis.SwingPoint, d market.Direction, period int) bool {
	kind := analysis.SwingHigh
	if d == market.Bullish {
		kind = analysis.SwingLow
	}
	pts := analysis.FilterSwings(swings, kind)
	if len(pts) < 2 {
		return false
	}
	rsi := indicators.RSISeries(market.Closes(candles), period)
	if rsi == nil {
		return false
	}
	a, b := pts[len(pts)-2], pts[len(pts)-1]
	if a.Index < period || b.Index >= len(rsi) {
		return false
	}
	// New price extreme that RSI does not confirm
	s := d.Sign()
	return s*(b.Price-a.Price) < 0 && s*(rsi[b.Index]-rsi[a.Index]) > 0
}

// atrSpike reports a current ATR well above the preceding window with the
// last candle moving in direction d
func atrSpike(candles []market.Candle, d market.Direction, period int) bool {
	n := len(candles)
	if period <= 0 || n < 2*period+1 {
		return false
	}
	now := indicators.ATR(candles, period)
	prev := indicators.ATR(candles[:n-period], period)
	if prev <= 0 || now <= atrSpikeRatio*prev {
		return false
	}
	last := candles[n-1]
	return d.Sign()*(last.Close-last.Open) > 0
}

// violatedLevel returns the most recent swing level price has moved beyond
// in direction d: the last swing low for a bearish move, the last swing high
// for a bullish one
func violatedLevel(swings []analysis.SwingPoint, d market.Direction, price float64) (float64, bool) {
	kind := analysis.SwingLow
	if d == market.Bullish {
		kind = analysis.SwingHigh
	}
	pts := analysis.FilterSwings(swings, kind)
	if len(pts) == 0 {
		return 0, false
	}
	lv := pts[len(pts)-1].Price
	return lv, d.Sign()*(price-lv) > 0
}

func crossWord(d market.Direction) string {
	if d == market.Bearish {
		return "below"
	}
	return "above"
}

// ReversalRecorder persists reversal evaluations
type ReversalRecorder interface {
	SaveReversalSignal(ctx context.Context, signal ReversalSignal) error
}

// ReversalDetector fetches candles on the modality's reversal timeframe and
// evaluates open positions
type ReversalDetector struct {
	candles  CandleSource
	prices   PriceSource
	clock    Clock
	cfg      Config
	recorder ReversalRecorder
	logger   zerolog.Logger
}

// NewReversalDetector creates a new reversal detector
func NewReversalDetector(candles CandleSource, prices PriceSource, clock Clock, cfg Config, logger zerolog.Logger) (*ReversalDetector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid reversal config: %w", err)
	}
	return &ReversalDetector{
		candles: candles,
		prices:  prices,
		clock:   clock,
		cfg:     cfg,
		logger:  logger.With().Str("component", "reversal_detector").Logger(),
	}, nil
}

// SetRecorder sets the store evaluations are saved to
func (d *ReversalDetector) SetRecorder(r ReversalRecorder) {
	d.recorder = r
}

// Evaluate runs reversal detection for an open position
func (d *ReversalDetector) Evaluate(ctx context.Context, pos Position) (*ReversalSignal, error) {
	if err := pos.Validate(); err != nil {
		return nil, err
	}
	profile, err := d.cfg.profile(pos.Modality)
	if err != nil {
		return nil, err
	}

	candles, err := d.candles.Candles(ctx, pos.Symbol, profile.ReversalInterval, profile.CandleLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s candles: %w", pos.Symbol, profile.ReversalInterval, err)
	}
	if err := market.Validate(candles); err != nil {
		return nil, err
	}

	if pos.CurrentPrice <= 0 && d.prices != nil {
		if p, err := d.prices.Price(ctx, pos.Symbol); err != nil {
			d.logger.Warn().
				Err(err).
				Str("symbol", pos.Symbol).
				Msg("Price lookup failed, using last close")
		} else {
			pos.CurrentPrice = p
		}
	}

	signal := DetectReversal(ReversalInput{
		Position:   pos,
		Candles:    candles,
		Params:     d.cfg.Params,
		Indicators: d.cfg.Indicators,
		Policy:     d.cfg.Policy,
	})
	signal.ID = uuid.NewString()
	signal.EvaluatedAt = d.clock.Now()

	if d.recorder != nil {
		if err := d.recorder.SaveReversalSignal(ctx, signal); err != nil {
			d.logger.Error().
				Err(err).
				Str("signal_id", signal.ID).
				Msg("Failed to save reversal signal")
		}
	}

	evt := d.logger.Debug()
	if signal.DetectedReversal {
		evt = d.logger.Info()
	}
	evt.Str("symbol", pos.Symbol).
		Str("side", string(pos.Side)).
		Str("action", string(signal.RecommendedAction)).
		Float64("confidence", signal.Confidence).
		Strs("signals", signal.Signals).
		Float64("pnl_percent", signal.PnLPercent).
		Msg("Reversal evaluated")

	return &signal, nil
}
