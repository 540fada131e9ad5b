package autopilot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"smc-advisor/internal/market"
)

type recordingStore struct {
	trades   []TradeCandidate
	reversal []ReversalSignal
	err      error
}

func (r *recordingStore) SaveTradeCandidate(_ context.Context, trade TradeCandidate) error {
	r.trades = append(r.trades, trade)
	return r.err
}

func (r *recordingStore) SaveReversalSignal(_ context.Context, signal ReversalSignal) error {
	r.reversal = append(r.reversal, signal)
	return r.err
}

func generatorConfig(candidates ...string) Config {
	cfg := DefaultConfig()
	profile := testProfile(5, 10)
	profile.Candidates = candidates
	cfg.Profiles = map[Modality]ModalityProfile{ModalityDay: profile}
	return cfg
}

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestGenerator(t *testing.T, candles CandleSource, prices PriceSource, cfg Config) *Generator {
	t.Helper()
	g, err := NewGenerator(candles, prices, fixedRandom{value: 8}, fixedClock{now: testNow}, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewGenerator returned error: %v", err)
	}
	return g
}

func TestGeneratePicksStrongestCandidate(t *testing.T) {
	rising := risingSeries(60, 100, 1)
	source := &fakeCandleSource{
		series: map[string][]market.Candle{
			"FLATUSDT": flatSeries(60, 50),
			"UPUSDT":   rising,
		},
		failures: map[string]error{"DOWNUSDT": errFetch},
	}
	last := rising[len(rising)-1].Close
	prices := fakePriceSource{prices: map[string]float64{"UPUSDT": last}}

	g := newTestGenerator(t, source, prices, generatorConfig("DOWNUSDT", "FLATUSDT", "UPUSDT"))
	trade, err := g.Generate(context.Background(), ModalityDay)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	if trade.Symbol != "UPUSDT" {
		t.Errorf("Expected UPUSDT to be selected, got %s", trade.Symbol)
	}
	if trade.Direction != market.Long {
		t.Errorf("Expected LONG on a rising series, got %s", trade.Direction)
	}
	if trade.ID == "" {
		t.Error("Expected trade ID to be set")
	}
	if !trade.CreatedAt.Equal(testNow) {
		t.Errorf("Expected CreatedAt %v, got %v", testNow, trade.CreatedAt)
	}
	if trade.Leverage != 8 {
		t.Errorf("Expected leverage 8, got %d", trade.Leverage)
	}
	assertPrice(t, "entry", trade.EntryPrice, last)
	if trade.Modality != ModalityDay || trade.Interval != "1h" {
		t.Errorf("Expected day modality on 1h, got %s on %s", trade.Modality, trade.Interval)
	}
	for _, iv := range source.intervals {
		if iv != "1h" {
			t.Errorf("Expected 1h candle requests, got %s", iv)
		}
	}
}

func TestGenerateFallsBackToLastClose(t *testing.T) {
	rising := risingSeries(60, 100, 1)
	source := &fakeCandleSource{series: map[string][]market.Candle{"UPUSDT": rising}}
	prices := fakePriceSource{err: errFetch}

	g := newTestGenerator(t, source, prices, generatorConfig("UPUSDT"))
	trade, err := g.Generate(context.Background(), ModalityDay)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	assertPrice(t, "entry", trade.EntryPrice, rising[len(rising)-1].Close)
}

func TestGenerateNoCandidate(t *testing.T) {
	tests := []struct {
		name   string
		source *fakeCandleSource
	}{
		{
			name:   "all fetches fail",
			source: &fakeCandleSource{failures: map[string]error{"A": errFetch, "B": errFetch}},
		},
		{
			name: "series too short",
			source: &fakeCandleSource{series: map[string][]market.Candle{
				"A": risingSeries(10, 100, 1),
				"B": risingSeries(minTradeCandles-1, 100, 1),
			}},
		},
		{
			name: "malformed candles",
			source: &fakeCandleSource{series: map[string][]market.Candle{
				"A": {bar(0, 100, 99, 101, 100)},
			}, failures: map[string]error{"B": errFetch}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGenerator(t, tt.source, nil, generatorConfig("A", "B"))
			_, err := g.Generate(context.Background(), ModalityDay)
			if !errors.Is(err, ErrNoCandidate) {
				t.Errorf("Expected ErrNoCandidate, got %v", err)
			}
		})
	}
}

func TestGenerateUnknownModality(t *testing.T) {
	g := newTestGenerator(t, &fakeCandleSource{}, nil, generatorConfig("A"))
	_, err := g.Generate(context.Background(), ModalityScalping)
	if !errors.Is(err, ErrUnknownModality) {
		t.Errorf("Expected ErrUnknownModality, got %v", err)
	}
}

func TestGenerateRecordsTrade(t *testing.T) {
	source := &fakeCandleSource{series: map[string][]market.Candle{"UPUSDT": risingSeries(60, 100, 1)}}
	store := &recordingStore{err: errors.New("disk full")}

	g := newTestGenerator(t, source, nil, generatorConfig("UPUSDT"))
	g.SetRecorder(store)
	trade, err := g.Generate(context.Background(), ModalityDay)
	if err != nil {
		t.Fatalf("Save failures must not fail generation, got %v", err)
	}
	if len(store.trades) != 1 || store.trades[0].ID != trade.ID {
		t.Errorf("Expected the generated trade to be recorded, got %+v", store.trades)
	}
}

func TestNewGeneratorRejectsInvalidConfig(t *testing.T) {
	cfg := generatorConfig("A")
	p := cfg.Profiles[ModalityDay]
	p.MaxLeverage = 0
	cfg.Profiles[ModalityDay] = p

	_, err := NewGenerator(&fakeCandleSource{}, nil, fixedRandom{}, SystemClock{}, cfg, zerolog.Nop())
	if err == nil {
		t.Error("Expected error for invalid leverage range")
	}
}
