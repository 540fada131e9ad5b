package database

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"smc-advisor/internal/autopilot"
	"smc-advisor/internal/market"
)

func TestConfigDSN(t *testing.T) {
	t.Run("url wins", func(t *testing.T) {
		cfg := Config{URL: "postgres://u:p@db:5432/smc", Host: "ignored", Database: "ignored"}
		if got := cfg.DSN(); got != cfg.URL {
			t.Errorf("Expected DSN %q, got %q", cfg.URL, got)
		}
	})

	t.Run("fields with defaults", func(t *testing.T) {
		cfg := Config{Host: "localhost", User: "smc", Password: "secret", Database: "smc"}
		got := cfg.DSN()
		for _, part := range []string{"host=localhost", "port=5432", "dbname=smc", "sslmode=disable"} {
			if !strings.Contains(got, part) {
				t.Errorf("Expected DSN to contain %q, got %q", part, got)
			}
		}
	})
}

func TestConfigEnabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want bool
	}{
		{"empty", Config{}, false},
		{"url", Config{URL: "postgres://localhost/smc"}, true},
		{"host and database", Config{Host: "localhost", Database: "smc"}, true},
		{"host only", Config{Host: "localhost"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.Enabled(); got != tt.want {
				t.Errorf("Expected Enabled()=%v, got %v", tt.want, got)
			}
		})
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, defaultListLimit},
		{-3, defaultListLimit},
		{10, 10},
		{maxListLimit + 1, maxListLimit},
	}
	for _, tt := range tests {
		if got := clampLimit(tt.in); got != tt.want {
			t.Errorf("clampLimit(%d): expected %d, got %d", tt.in, tt.want, got)
		}
	}
}

// openTestDB connects to DATABASE_URL or skips the test.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	ctx := context.Background()
	db, err := NewDB(ctx, Config{URL: url}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(db.Close)
	if err := db.RunMigrations(ctx); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func TestRepositoryTradeCandidateRoundTrip(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()

	trade := autopilot.TradeCandidate{
		ID:               uuid.NewString(),
		Symbol:           "BTCUSDT",
		Direction:        market.Long,
		EntryPrice:       65000.5,
		Leverage:         7,
		InvestmentAmount: 100,
		TP1:              65500,
		TP2:              66000,
		TP3:              67000,
		StopLoss:         64700,
		Reasoning:        "bullish sentiment",
		Modality:         autopilot.ModalityDay,
		Interval:         "1h",
		SignalStrength:   72.5,
		Sentiment:        market.TrendBullish,
		RiskReward:       1.66,
		ATR:              210.25,
		CreatedAt:        time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := repo.SaveTradeCandidate(ctx, trade); err != nil {
		t.Fatalf("Failed to save trade: %v", err)
	}

	got, err := repo.GetTradeCandidate(ctx, trade.ID)
	if err != nil {
		t.Fatalf("Failed to get trade: %v", err)
	}
	if got.Symbol != trade.Symbol || got.Direction != trade.Direction || got.Modality != trade.Modality {
		t.Errorf("Expected %+v, got %+v", trade, *got)
	}
	if got.TP3 != trade.TP3 || got.Leverage != trade.Leverage {
		t.Errorf("Expected TP3 %v leverage %d, got %v %d", trade.TP3, trade.Leverage, got.TP3, got.Leverage)
	}

	list, err := repo.ListTradeCandidates(ctx, 5)
	if err != nil {
		t.Fatalf("Failed to list trades: %v", err)
	}
	if len(list) == 0 {
		t.Error("Expected at least one stored trade")
	}

	_, err = repo.GetTradeCandidate(ctx, uuid.NewString())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestRepositoryReversalSignalRoundTrip(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()

	sl := 92.75
	sig := autopilot.ReversalSignal{
		ID:                uuid.NewString(),
		Symbol:            "ETHUSDT-" + uuid.NewString()[:8],
		Side:              market.Long,
		Modality:          autopilot.ModalityDay,
		DetectedReversal:  true,
		Confidence:        80,
		Reason:            "Bearish CHOCH",
		RecommendedAction: autopilot.ActionClose,
		SuggestedNewSL:    &sl,
		Signals:           []string{"choch", "ema_cross"},
		Policy:            autopilot.PolicySignalCount,
		CurrentPrice:      95,
		PnLPercent:        -12.5,
		EvaluatedAt:       time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := repo.SaveReversalSignal(ctx, sig); err != nil {
		t.Fatalf("Failed to save reversal signal: %v", err)
	}

	list, err := repo.ListReversalSignals(ctx, sig.Symbol, 10)
	if err != nil {
		t.Fatalf("Failed to list reversal signals: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("Expected 1 signal, got %d", len(list))
	}
	got := list[0]
	if got.RecommendedAction != autopilot.ActionClose || len(got.Signals) != 2 {
		t.Errorf("Expected CLOSE with 2 signals, got %s with %v", got.RecommendedAction, got.Signals)
	}
	if got.SuggestedNewSL == nil || *got.SuggestedNewSL != sl {
		t.Errorf("Expected suggested SL %v, got %v", sl, got.SuggestedNewSL)
	}
}
