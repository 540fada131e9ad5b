// Package marketdata supplies candles and prices to the analysis core from
// Binance futures, with optional in-memory or Redis caching.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/adshao/go-binance/v2/futures"

	"smc-advisor/internal/market"
)

// ErrNoPrice is returned when the exchange has no price for a symbol
var ErrNoPrice = errors.New("no price for symbol")

// BinanceConfig selects the futures endpoint. Keys are optional because only
// public market data endpoints are used.
type BinanceConfig struct {
	APIKey    string `json:"api_key"`
	SecretKey string `json:"secret_key"`
	BaseURL   string `json:"base_url"`
}

// BinanceSource reads klines and last prices from Binance USDT-M futures
type BinanceSource struct {
	client *futures.Client
}

// NewBinanceSource creates a source; an empty BaseURL keeps the library default
func NewBinanceSource(cfg BinanceConfig) *BinanceSource {
	client := futures.NewClient(cfg.APIKey, cfg.SecretKey)
	if cfg.BaseURL != "" {
		client.BaseURL = cfg.BaseURL
	}
	return &BinanceSource{client: client}
}

// Candles fetches the last limit klines of symbol on interval
func (b *BinanceSource) Candles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	klines, err := b.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get klines for %s %s: %w", symbol, interval, err)
	}
	return convertKlines(klines)
}

// Price returns the latest traded price of symbol
func (b *BinanceSource) Price(ctx context.Context, symbol string) (float64, error) {
	prices, err := b.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get price for %s: %w", symbol, err)
	}
	for _, p := range prices {
		if p.Symbol != symbol {
			continue
		}
		price, err := strconv.ParseFloat(p.Price, 64)
		if err != nil {
			return 0, fmt.Errorf("parse price %q for %s: %w", p.Price, symbol, err)
		}
		return price, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrNoPrice, symbol)
}

// convertKlines parses the string OHLCV fields of exchange klines
func convertKlines(klines []*futures.Kline) ([]market.Candle, error) {
	candles := make([]market.Candle, 0, len(klines))
	for i, k := range klines {
		var (
			c   = market.Candle{OpenTime: k.OpenTime, CloseTime: k.CloseTime}
			err error
		)
		fields := []struct {
			name string
			raw  string
			dst  *float64
		}{
			{"open", k.Open, &c.Open},
			{"high", k.High, &c.High},
			{"low", k.Low, &c.Low},
			{"close", k.Close, &c.Close},
			{"volume", k.Volume, &c.Volume},
		}
		for _, f := range fields {
			if *f.dst, err = strconv.ParseFloat(f.raw, 64); err != nil {
				return nil, fmt.Errorf("kline %d: parse %s %q: %w", i, f.name, f.raw, err)
			}
		}
		candles = append(candles, c)
	}
	return candles, nil
}
