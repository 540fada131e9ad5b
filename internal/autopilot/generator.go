package autopilot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"smc-advisor/internal/analysis"
	"smc-advisor/internal/confluence"
	"smc-advisor/internal/indicators"
	"smc-advisor/internal/market"
)

// ErrNoCandidate is returned when no candidate symbol produced usable data
var ErrNoCandidate = errors.New("no candidate produced valid indicators")

// minTradeCandles is the shortest series a candidate is ranked on
const minTradeCandles = 30

// TradeRecorder persists generated trades
type TradeRecorder interface {
	SaveTradeCandidate(ctx context.Context, trade TradeCandidate) error
}

// evaluation is the analysed state of one candidate symbol
type evaluation struct {
	symbol     string
	order      int
	candles    []market.Candle
	indicators indicators.TechnicalIndicators
}

// Generator evaluates the candidate symbols of a modality and turns the
// strongest into a trade
type Generator struct {
	candles  CandleSource
	prices   PriceSource
	rnd      RandomSource
	clock    Clock
	cfg      Config
	scorer   *confluence.Scorer
	recorder TradeRecorder
	logger   zerolog.Logger
}

// NewGenerator creates a new trade generator
func NewGenerator(candles CandleSource, prices PriceSource, rnd RandomSource, clock Clock, cfg Config, logger zerolog.Logger) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid generator config: %w", err)
	}
	scorer := confluence.NewScorer()
	if err := scorer.SetWeights(cfg.Weights); err != nil {
		return nil, fmt.Errorf("invalid sentiment weights: %w", err)
	}
	return &Generator{
		candles: candles,
		prices:  prices,
		rnd:     rnd,
		clock:   clock,
		cfg:     cfg,
		scorer:  scorer,
		logger:  logger.With().Str("component", "trade_generator").Logger(),
	}, nil
}

// SetRecorder sets the store generated trades are saved to
func (g *Generator) SetRecorder(r TradeRecorder) {
	g.recorder = r
}

// Generate ranks the modality's candidates by signal strength and builds a
// trade for the strongest. Candidates whose fetch fails are skipped.
func (g *Generator) Generate(ctx context.Context, modality Modality) (*TradeCandidate, error) {
	profile, err := g.cfg.profile(modality)
	if err != nil {
		return nil, err
	}

	evals := g.evaluateCandidates(ctx, profile)
	if len(evals) == 0 {
		g.logger.Warn().
			Str("modality", string(modality)).
			Int("candidates", len(profile.Candidates)).
			Msg("No candidate produced valid indicators")
		return nil, fmt.Errorf("%s: %w", modality, ErrNoCandidate)
	}

	sort.SliceStable(evals, func(i, j int) bool {
		if evals[i].indicators.SignalStrength != evals[j].indicators.SignalStrength {
			return evals[i].indicators.SignalStrength > evals[j].indicators.SignalStrength
		}
		return evals[i].order < evals[j].order
	})
	best := evals[0]

	snap, err := analysis.Analyze(best.candles, g.cfg.Params)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", best.symbol, err)
	}
	sentiment := g.scorer.Score(confluence.Input{
		Candles:    best.candles,
		Indicators: best.indicators,
		Snapshot:   &snap,
	})

	price := 0.0
	if g.prices != nil {
		p, err := g.prices.Price(ctx, best.symbol)
		if err != nil {
			g.logger.Warn().
				Err(err).
				Str("symbol", best.symbol).
				Msg("Price lookup failed, using last close")
		} else {
			price = p
		}
	}

	trade, err := BuildTrade(TradeInput{
		Symbol:     best.symbol,
		Profile:    profile,
		Candles:    best.candles,
		Indicators: best.indicators,
		Snapshot:   snap,
		Sentiment:  sentiment.Label,
		Price:      price,
	}, g.rnd)
	if err != nil {
		return nil, err
	}
	trade.ID = uuid.NewString()
	trade.CreatedAt = g.clock.Now()

	if g.recorder != nil {
		if err := g.recorder.SaveTradeCandidate(ctx, trade); err != nil {
			g.logger.Error().
				Err(err).
				Str("trade_id", trade.ID).
				Msg("Failed to save trade candidate")
		}
	}

	g.logger.Info().
		Str("trade_id", trade.ID).
		Str("symbol", trade.Symbol).
		Str("direction", string(trade.Direction)).
		Str("modality", string(modality)).
		Float64("entry", trade.EntryPrice).
		Float64("tp1", trade.TP1).
		Float64("stop_loss", trade.StopLoss).
		Int("leverage", trade.Leverage).
		Float64("signal_strength", trade.SignalStrength).
		Bool("caution", trade.Caution).
		Msg("Trade candidate generated")

	return &trade, nil
}

// evaluateCandidates fetches and scores every candidate in parallel. The
// result keeps only candidates with a valid, long enough series.
func (g *Generator) evaluateCandidates(ctx context.Context, profile ModalityProfile) []evaluation {
	results := make([]*evaluation, len(profile.Candidates))

	var wg sync.WaitGroup
	for i, symbol := range profile.Candidates {
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()

			candles, err := g.candles.Candles(ctx, symbol, profile.Interval, profile.CandleLimit)
			if err != nil {
				g.logger.Warn().
					Err(err).
					Str("symbol", symbol).
					Str("interval", profile.Interval).
					Msg("Skipping candidate, candle fetch failed")
				return
			}
			if err := market.Validate(candles); err != nil {
				g.logger.Warn().
					Err(err).
					Str("symbol", symbol).
					Msg("Skipping candidate, invalid candles")
				return
			}
			if len(candles) < minTradeCandles {
				g.logger.Debug().
					Str("symbol", symbol).
					Int("candles", len(candles)).
					Msg("Skipping candidate, not enough candles")
				return
			}
			results[i] = &evaluation{
				symbol:     symbol,
				order:      i,
				candles:    candles,
				indicators: indicators.Compute(candles, g.cfg.Indicators),
			}
		}(i, symbol)
	}
	wg.Wait()

	var out []evaluation
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}
