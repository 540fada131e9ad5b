package analysis

import (
	"testing"

	"smc-advisor/internal/market"
)

func TestAnalyzeVolume(t *testing.T) {
	candles := make([]market.Candle, 21)
	for i := range candles {
		candles[i] = market.Candle{Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 100}
	}
	// Strong bullish close on triple volume
	candles[20] = market.Candle{Open: 100, High: 103.1, Low: 99.9, Close: 103, Volume: 300}

	profile := NewVolumeAnalyzer(20).AnalyzeVolume(candles)

	if profile.AverageVolume != 100 {
		t.Errorf("Expected average 100, got %f", profile.AverageVolume)
	}
	if profile.VolumeRatio != 3 {
		t.Errorf("Expected ratio 3, got %f", profile.VolumeRatio)
	}
	if !profile.IsHighVolume {
		t.Error("Expected high volume")
	}
	if profile.Pressure != market.Bullish {
		t.Errorf("Expected buying pressure, got %q", profile.Pressure)
	}
}

func TestOBV(t *testing.T) {
	candles := []market.Candle{
		{Close: 10, Volume: 100},
		{Close: 11, Volume: 200}, // +200
		{Close: 10, Volume: 50},  // -50
		{Close: 10, Volume: 70},  // unchanged
	}
	if got := OBV(candles); got != 150 {
		t.Errorf("Expected OBV 150, got %f", got)
	}
}

func TestVolumeTrend(t *testing.T) {
	candles := halves(100, 100, 100, 150)
	assertClose(t, "volume trend", VolumeTrend(candles, 20), 50)
	if got := VolumeTrend(candles[:5], 20); got != 0 {
		t.Errorf("Expected 0 for short input, got %f", got)
	}
}
