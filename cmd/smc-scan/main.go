// Command smc-scan ranks the candidate symbols of a modality and prints the
// structure reading and a trade preview for each.
//
// Usage:
//
//	smc-scan -modality day
//	smc-scan -modality swing -symbols BTCUSDT,ETHUSDT
//	smc-scan -file candles.json -symbols BTCUSDT -interval 1h
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"smc-advisor/config"
	"smc-advisor/internal/analysis"
	"smc-advisor/internal/autopilot"
	"smc-advisor/internal/confluence"
	"smc-advisor/internal/indicators"
	"smc-advisor/internal/market"
	"smc-advisor/internal/marketdata"
)

type options struct {
	modality autopilot.Modality
	symbols  []string
	interval string
	limit    int
	file     string
	seed     int64
}

// SymbolReport is the reading of one scanned symbol
type SymbolReport struct {
	Symbol     string
	Candles    int
	Indicators indicators.TechnicalIndicators
	Sentiment  confluence.Sentiment
	Snapshot   analysis.Snapshot
	Trade      *autopilot.TradeCandidate
	Err        error
}

// fileSource serves one candle file for every symbol
type fileSource struct {
	candles []market.Candle
}

func (f fileSource) Candles(_ context.Context, _, _ string, limit int) ([]market.Candle, error) {
	if limit > 0 && len(f.candles) > limit {
		return f.candles[len(f.candles)-limit:], nil
	}
	return f.candles, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	tuning, err := config.LoadAnalysisProfile(cfg.AnalysisConfig.ProfilePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load analysis profile: %v\n", err)
		os.Exit(1)
	}

	opts, err := parseFlags(os.Args[1:], tuning)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(2)
	}

	var source autopilot.CandleSource = marketdata.NewBinanceSource(marketdata.BinanceConfig{
		APIKey:    cfg.BinanceConfig.APIKey,
		SecretKey: cfg.BinanceConfig.SecretKey,
		BaseURL:   cfg.BinanceConfig.BaseURL,
	})
	if opts.file != "" {
		candles, err := readCandleFile(opts.file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
			os.Exit(1)
		}
		source = fileSource{candles: candles}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	reports := scan(ctx, source, tuning, opts)
	printReports(os.Stdout, opts, reports)
}

func parseFlags(args []string, tuning autopilot.Config) (options, error) {
	fs := flag.NewFlagSet("smc-scan", flag.ContinueOnError)
	modality := fs.String("modality", string(autopilot.ModalityDay), "scalping, day, swing or trend")
	symbols := fs.String("symbols", "", "comma separated symbols, defaults to the modality candidates")
	interval := fs.String("interval", "", "candle interval, defaults to the modality interval")
	limit := fs.Int("limit", 0, "candles per symbol, defaults to the modality limit")
	file := fs.String("file", "", "JSON candle file to scan instead of the exchange")
	seed := fs.Int64("seed", time.Now().UnixNano(), "leverage draw seed")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	m, ok := autopilot.ValidateModality(*modality)
	if !ok {
		return options{}, fmt.Errorf("unknown modality %q", *modality)
	}
	profile, ok := tuning.Profiles[m]
	if !ok {
		return options{}, fmt.Errorf("no profile configured for %s", m)
	}

	opts := options{
		modality: m,
		symbols:  profile.Candidates,
		interval: profile.Interval,
		limit:    profile.CandleLimit,
		file:     *file,
		seed:     *seed,
	}
	if *symbols != "" {
		opts.symbols = nil
		for _, s := range strings.Split(*symbols, ",") {
			if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
				opts.symbols = append(opts.symbols, s)
			}
		}
	}
	if *interval != "" {
		if !marketdata.ValidTimeframe(*interval) {
			return options{}, fmt.Errorf("unsupported interval %q", *interval)
		}
		opts.interval = *interval
	}
	if *limit > 0 {
		opts.limit = *limit
	}
	if len(opts.symbols) == 0 {
		return options{}, fmt.Errorf("no symbols to scan")
	}
	return opts, nil
}

func readCandleFile(path string) ([]market.Candle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read candle file: %w", err)
	}
	var candles []market.Candle
	if err := json.Unmarshal(data, &candles); err != nil {
		return nil, fmt.Errorf("parse candle file: %w", err)
	}
	return candles, nil
}

// scan analyses every symbol sequentially and sorts the results by signal
// strength, failures last
func scan(ctx context.Context, source autopilot.CandleSource, tuning autopilot.Config, opts options) []SymbolReport {
	profile := tuning.Profiles[opts.modality]
	profile.Interval = opts.interval
	profile.CandleLimit = opts.limit

	scorer := confluence.NewScorer()
	if err := scorer.SetWeights(tuning.Weights); err != nil {
		return []SymbolReport{{Err: err}}
	}
	rnd := autopilot.NewMathRandSource(opts.seed)

	reports := make([]SymbolReport, 0, len(opts.symbols))
	for _, symbol := range opts.symbols {
		rep := SymbolReport{Symbol: symbol}

		candles, err := source.Candles(ctx, symbol, opts.interval, opts.limit)
		if err != nil {
			rep.Err = err
			reports = append(reports, rep)
			continue
		}
		rep.Candles = len(candles)

		snap, err := analysis.Analyze(candles, tuning.Params)
		if err != nil {
			rep.Err = err
			reports = append(reports, rep)
			continue
		}
		rep.Snapshot = snap
		rep.Indicators = indicators.Compute(candles, tuning.Indicators)
		rep.Sentiment = scorer.Score(confluence.Input{Candles: candles, Indicators: rep.Indicators, Snapshot: &snap})

		trade, err := autopilot.BuildTrade(autopilot.TradeInput{
			Symbol:     symbol,
			Profile:    profile,
			Candles:    candles,
			Indicators: rep.Indicators,
			Snapshot:   snap,
			Sentiment:  rep.Sentiment.Label,
		}, rnd)
		if err != nil {
			rep.Err = err
		} else {
			rep.Trade = &trade
		}
		reports = append(reports, rep)
	}

	sort.SliceStable(reports, func(i, j int) bool {
		if (reports[i].Err == nil) != (reports[j].Err == nil) {
			return reports[i].Err == nil
		}
		return reports[i].Indicators.SignalStrength > reports[j].Indicators.SignalStrength
	})
	return reports
}

func printReports(w io.Writer, opts options, reports []SymbolReport) {
	rule := strings.Repeat("=", 80)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "📊 SMC SCAN: %s on %s (%d candles)\n", strings.ToUpper(string(opts.modality)), opts.interval, opts.limit)
	fmt.Fprintln(w, rule)

	fmt.Fprintf(w, "%-10s %8s %7s %8s %-8s %-10s %-14s %-14s\n",
		"Symbol", "Strength", "RSI", "ATR", "Trend", "Sentiment", "Wyckoff", "Cycle")
	for _, r := range reports {
		if r.Err != nil {
			fmt.Fprintf(w, "%-10s ❌ %v\n", r.Symbol, r.Err)
			continue
		}
		fmt.Fprintf(w, "%-10s %8.1f %7.1f %8s %-8s %-10s %-14s %-14s\n",
			r.Symbol, r.Indicators.SignalStrength, r.Indicators.RSI, formatNumber(r.Indicators.ATR),
			r.Indicators.Trend, r.Sentiment.Label, r.Snapshot.Wyckoff, r.Snapshot.Cycle)
	}

	for _, r := range reports {
		if r.Trade == nil {
			continue
		}
		t := r.Trade
		fmt.Fprintln(w)
		fmt.Fprintf(w, "🎯 %s %s x%d  entry %s  SL %s  TP %s / %s / %s  R:R %.2f\n",
			t.Symbol, t.Direction, t.Leverage, formatNumber(t.EntryPrice), formatNumber(t.StopLoss),
			formatNumber(t.TP1), formatNumber(t.TP2), formatNumber(t.TP3), t.RiskReward)
		fmt.Fprintf(w, "   %s\n", t.Reasoning)
	}
}

func formatNumber(v float64) string {
	switch {
	case v >= 1000:
		return fmt.Sprintf("%.2f", v)
	case v >= 1:
		return fmt.Sprintf("%.4f", v)
	default:
		return fmt.Sprintf("%.8f", v)
	}
}
