package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"smc-advisor/internal/autopilot"
	"smc-advisor/internal/market"
)

func trendCandles(n int, start, step float64) []market.Candle {
	out := make([]market.Candle, n)
	for i := range out {
		base := start + float64(i)*step + 2*math.Sin(float64(i)/3)
		out[i] = market.Candle{
			OpenTime: int64(i) * 60_000,
			Open:     base - 0.3,
			High:     base + 1,
			Low:      base - 1,
			Close:    base + 0.3,
			Volume:   500 + float64(i%5)*40,
		}
	}
	return out
}

type mapSource map[string][]market.Candle

func (m mapSource) Candles(_ context.Context, symbol, _ string, _ int) ([]market.Candle, error) {
	c, ok := m[symbol]
	if !ok {
		return nil, errors.New("symbol not listed")
	}
	return c, nil
}

func TestParseFlags(t *testing.T) {
	tuning := autopilot.DefaultConfig()

	opts, err := parseFlags([]string{"-modality", "Swing"}, tuning)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if opts.interval != "4h" || opts.limit != 200 || len(opts.symbols) != 5 {
		t.Errorf("Expected swing profile defaults, got %+v", opts)
	}

	opts, err = parseFlags([]string{"-symbols", "btcusdt, ethusdt", "-interval", "15m", "-limit", "90"}, tuning)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(opts.symbols) != 2 || opts.symbols[1] != "ETHUSDT" || opts.interval != "15m" || opts.limit != 90 {
		t.Errorf("Expected overrides applied, got %+v", opts)
	}

	for _, args := range [][]string{
		{"-modality", "hodl"},
		{"-interval", "7m"},
		{"-symbols", " , "},
	} {
		if _, err := parseFlags(args, tuning); err == nil {
			t.Errorf("Expected error for %v", args)
		}
	}
}

func TestScanRanksAndPreviews(t *testing.T) {
	tuning := autopilot.DefaultConfig()
	source := mapSource{
		"UPUSDT":   trendCandles(120, 100, 0.5),
		"FLATUSDT": trendCandles(120, 100, 0),
	}
	opts := options{
		modality: autopilot.ModalityDay,
		symbols:  []string{"FLATUSDT", "MISSING", "UPUSDT"},
		interval: "1h",
		limit:    120,
		seed:     7,
	}

	reports := scan(context.Background(), source, tuning, opts)
	if len(reports) != 3 {
		t.Fatalf("Expected 3 reports, got %d", len(reports))
	}
	if reports[2].Symbol != "MISSING" || reports[2].Err == nil {
		t.Errorf("Expected the failed symbol last, got %+v", reports[2])
	}
	if reports[0].Indicators.SignalStrength < reports[1].Indicators.SignalStrength {
		t.Errorf("Expected reports sorted by strength, got %v then %v",
			reports[0].Indicators.SignalStrength, reports[1].Indicators.SignalStrength)
	}
	for _, r := range reports[:2] {
		if r.Trade == nil {
			t.Fatalf("Expected a trade preview for %s: %v", r.Symbol, r.Err)
		}
		if r.Trade.Leverage < 1 || r.Trade.Leverage > 10 {
			t.Errorf("Expected leverage within the day range for %s, got %d", r.Symbol, r.Trade.Leverage)
		}
	}

	var buf bytes.Buffer
	printReports(&buf, opts, reports)
	out := buf.String()
	for _, want := range []string{"SMC SCAN: DAY on 1h", "UPUSDT", "MISSING", "entry"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q", want)
		}
	}
}

func TestFileSource(t *testing.T) {
	candles := trendCandles(50, 10, 0.1)
	path := filepath.Join(t.TempDir(), "candles.json")
	data, err := json.Marshal(candles)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	loaded, err := readCandleFile(path)
	if err != nil {
		t.Fatalf("Failed to read candle file: %v", err)
	}
	src := fileSource{candles: loaded}
	got, _ := src.Candles(context.Background(), "ANY", "1h", 20)
	if len(got) != 20 || got[19].Close != candles[49].Close {
		t.Errorf("Expected the trailing 20 candles, got %d", len(got))
	}

	if _, err := readCandleFile(filepath.Join(t.TempDir(), "none.json")); err == nil {
		t.Error("Expected error for a missing file")
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{65000.123, "65000.12"},
		{1.5, "1.5000"},
		{0.00012345, "0.00012345"},
	}
	for _, tt := range tests {
		if got := formatNumber(tt.in); got != tt.want {
			t.Errorf("formatNumber(%v): expected %s, got %s", tt.in, tt.want, got)
		}
	}
}
