package market

import (
	"errors"
	"math"
	"testing"
)

func TestCandleGeometry(t *testing.T) {
	c := Candle{Open: 100, High: 110, Low: 95, Close: 105}

	if !c.IsBullish() || c.IsBearish() {
		t.Error("Expected bullish candle")
	}
	if c.Body() != 5 {
		t.Errorf("Expected body 5, got %f", c.Body())
	}
	if c.Range() != 15 {
		t.Errorf("Expected range 15, got %f", c.Range())
	}
	if c.UpperWick() != 5 {
		t.Errorf("Expected upper wick 5, got %f", c.UpperWick())
	}
	if c.LowerWick() != 5 {
		t.Errorf("Expected lower wick 5, got %f", c.LowerWick())
	}
}

func TestValidate(t *testing.T) {
	good := []Candle{
		{OpenTime: 1000, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
		{OpenTime: 2000, Open: 1.5, High: 2, Low: 1, Close: 1.2, Volume: 5},
	}

	tests := []struct {
		name    string
		candles []Candle
		wantErr bool
	}{
		{"empty", nil, false},
		{"well formed", good, false},
		{"nan close", []Candle{{Open: 1, High: 2, Low: 0.5, Close: math.NaN()}}, true},
		{"inf high", []Candle{{Open: 1, High: math.Inf(1), Low: 0.5, Close: 1}}, true},
		{"high below low", []Candle{{Open: 1, High: 0.4, Low: 0.5, Close: 1}}, true},
		{"negative volume", []Candle{{Open: 1, High: 2, Low: 0.5, Close: 1, Volume: -1}}, true},
		{"time goes backwards", []Candle{good[1], good[0]}, true},
		{"zero times tolerated", []Candle{{Open: 1, High: 2, Low: 0.5, Close: 1}, {Open: 1, High: 2, Low: 0.5, Close: 1}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.candles)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidCandles) {
					t.Errorf("Expected ErrInvalidCandles, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestSideAndDirection(t *testing.T) {
	if Long.Direction() != Bullish || Short.Direction() != Bearish {
		t.Error("Side to direction mapping is wrong")
	}
	if Long.Opposite() != Short {
		t.Error("Expected LONG opposite to be SHORT")
	}
	if Bullish.Opposite() != Bearish || Bearish.Sign() != -1 {
		t.Error("Direction helpers are wrong")
	}
	if Side("FLAT").Valid() {
		t.Error("FLAT must not be a valid side")
	}
}
