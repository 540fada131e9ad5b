package config

import (
	"os"
	"path/filepath"
	"testing"

	"smc-advisor/internal/autopilot"
)

func TestLoadAnalysisProfileDefaults(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "absent.yaml")} {
		cfg, err := LoadAnalysisProfile(path)
		if err != nil {
			t.Fatalf("Expected defaults for %q, got %v", path, err)
		}
		if cfg.Policy != autopilot.PolicySignalCount {
			t.Errorf("Expected default policy, got %s", cfg.Policy)
		}
		if len(cfg.Profiles) != 4 {
			t.Errorf("Expected 4 default profiles, got %d", len(cfg.Profiles))
		}
	}
}

func TestParseAnalysisProfilePartialOverrides(t *testing.T) {
	doc := `
policy: fixed_weight
params:
  swingLookback: 5
  liquidityTolerancePct: 0.2
indicators:
  rsiPeriod: 21
weights:
  wyckoff: 0
profiles:
  day:
    name: Intraday
    interval: 30m
    candleLimit: 120
    reversalInterval: 5m
    minLeverage: 3
    maxLeverage: 6
    investmentAmount: 75
    candidates: [BTCUSDT]
`
	cfg, err := ParseAnalysisProfile([]byte(doc))
	if err != nil {
		t.Fatalf("Failed to parse profile: %v", err)
	}

	if cfg.Policy != autopilot.PolicyFixedWeight {
		t.Errorf("Expected fixed_weight policy, got %s", cfg.Policy)
	}
	if cfg.Params.SwingLookback != 5 || cfg.Params.LiquidityTolerancePct != 0.2 {
		t.Errorf("Expected overridden params, got %+v", cfg.Params)
	}
	if cfg.Params.WyckoffWindow != 20 {
		t.Errorf("Expected untouched Wyckoff window 20, got %d", cfg.Params.WyckoffWindow)
	}
	if cfg.Indicators.RSIPeriod != 21 || cfg.Indicators.ATRPeriod != 14 {
		t.Errorf("Expected RSI 21 with default ATR 14, got %+v", cfg.Indicators)
	}
	if cfg.Weights.Wyckoff != 0 || cfg.Weights.RSI != 20 {
		t.Errorf("Expected Wyckoff weight 0 with default RSI 20, got %+v", cfg.Weights)
	}

	day := cfg.Profiles[autopilot.ModalityDay]
	if day.Modality != autopilot.ModalityDay || day.Interval != "30m" || day.MaxLeverage != 6 {
		t.Errorf("Expected replaced day profile, got %+v", day)
	}
	if cfg.Profiles[autopilot.ModalitySwing].Interval != "4h" {
		t.Errorf("Expected default swing profile to survive, got %+v", cfg.Profiles[autopilot.ModalitySwing])
	}
}

func TestParseAnalysisProfileInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"malformed yaml", "params: [unterminated"},
		{"unknown policy", "policy: blended"},
		{"incomplete profile", "profiles:\n  swing:\n    interval: 4h\n"},
		{"zero rsi period", "indicators:\n  rsiPeriod: 0\n"},
		{"zero atr period", "indicators:\n  atrPeriod: 0\n"},
		{"fast ema not faster", "indicators:\n  fastEma: 21\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseAnalysisProfile([]byte(tt.doc)); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestLoadAnalysisProfileFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analysis.yaml")
	if err := os.WriteFile(path, []byte("params:\n  mitigationWindow: 8\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadAnalysisProfile(path)
	if err != nil {
		t.Fatalf("Failed to load profile: %v", err)
	}
	if cfg.Params.MitigationWindow != 8 {
		t.Errorf("Expected mitigation window 8, got %d", cfg.Params.MitigationWindow)
	}
}
