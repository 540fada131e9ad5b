package marketdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/adshao/go-binance/v2/futures"
)

func newFuturesServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/fapi/v1/klines", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("symbol"); got != "BTCUSDT" {
			t.Errorf("Expected symbol BTCUSDT, got %s", got)
		}
		if got := r.URL.Query().Get("interval"); got != "1h" {
			t.Errorf("Expected interval 1h, got %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			[1700000000000,"100.5","101.0","99.8","100.9","1200.5",1700003599999,"121000.1",350,"600.2","60500.3","0"],
			[1700003600000,"100.9","102.3","100.7","102.1","1500.0",1700007199999,"153000.0",410,"800.0","81600.0","0"]
		]`))
	})
	mux.HandleFunc("/fapi/v1/ticker/price", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("symbol") {
		case "BTCUSDT":
			w.Write([]byte(`[{"symbol":"BTCUSDT","price":"102.15","time":1700007000000}]`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestBinanceSourceCandles(t *testing.T) {
	srv := newFuturesServer(t)
	src := NewBinanceSource(BinanceConfig{BaseURL: srv.URL})

	candles, err := src.Candles(context.Background(), "BTCUSDT", "1h", 2)
	if err != nil {
		t.Fatalf("Candles returned error: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("Expected 2 candles, got %d", len(candles))
	}

	c := candles[1]
	if c.OpenTime != 1700003600000 || c.CloseTime != 1700007199999 {
		t.Errorf("Unexpected times %d-%d", c.OpenTime, c.CloseTime)
	}
	if c.Open != 100.9 || c.High != 102.3 || c.Low != 100.7 || c.Close != 102.1 || c.Volume != 1500 {
		t.Errorf("Unexpected OHLCV %+v", c)
	}
}

func TestBinanceSourcePrice(t *testing.T) {
	srv := newFuturesServer(t)
	src := NewBinanceSource(BinanceConfig{BaseURL: srv.URL})

	price, err := src.Price(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("Price returned error: %v", err)
	}
	if price != 102.15 {
		t.Errorf("Expected 102.15, got %v", price)
	}

	if _, err := src.Price(context.Background(), "NOPE"); err == nil {
		t.Error("Expected error for invalid symbol")
	}
}

func TestConvertKlinesRejectsBadNumbers(t *testing.T) {
	_, err := convertKlines([]*futures.Kline{
		{OpenTime: 1, Open: "1", High: "2", Low: "0.5", Close: "1.5", Volume: "10"},
		{OpenTime: 2, Open: "1", High: "abc", Low: "0.5", Close: "1.5", Volume: "10"},
	})
	if err == nil {
		t.Fatal("Expected parse error")
	}
	var numErr *strconv.NumError
	if !errors.As(err, &numErr) {
		t.Errorf("Expected wrapped parse error, got %v", err)
	}
}
