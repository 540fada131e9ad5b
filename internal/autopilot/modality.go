package autopilot

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownModality is returned for a modality without a profile
var ErrUnknownModality = errors.New("unknown trading modality")

// Modality represents the selected trading modality
type Modality string

const (
	ModalityScalping Modality = "scalping"
	ModalityDay      Modality = "day"
	ModalitySwing    Modality = "swing"
	ModalityTrend    Modality = "trend"
)

// ModalityProfile holds the timeframe, leverage range and candidates of a modality
type ModalityProfile struct {
	Modality Modality `json:"modality" yaml:"modality"`
	Name     string   `json:"name" yaml:"name"`

	// Timeframe settings
	Interval         string `json:"interval" yaml:"interval"`                  // Candles used for trade generation
	CandleLimit      int    `json:"candle_limit" yaml:"candleLimit"`           // Candles fetched per candidate
	ReversalInterval string `json:"reversal_interval" yaml:"reversalInterval"` // Candles used to watch open positions

	// Leverage settings
	MinLeverage int `json:"min_leverage" yaml:"minLeverage"`
	MaxLeverage int `json:"max_leverage" yaml:"maxLeverage"`

	// Sizing
	InvestmentAmount float64 `json:"investment_amount" yaml:"investmentAmount"`

	// Symbols evaluated when generating a trade
	Candidates []string `json:"candidates" yaml:"candidates"`
}

var defaultCandidates = []string{"BTCUSDT", "ETHUSDT", "SOLUSDT", "BNBUSDT", "XRPUSDT"}

// DefaultProfile returns the default profile for a modality
func DefaultProfile(m Modality) (ModalityProfile, error) {
	candidates := append([]string(nil), defaultCandidates...)

	switch m {
	case ModalityScalping:
		return ModalityProfile{
			Modality:         m,
			Name:             "Scalping",
			Interval:         "5m",
			CandleLimit:      100,
			ReversalInterval: "1m",
			MinLeverage:      10,
			MaxLeverage:      20,
			InvestmentAmount: 50,
			Candidates:       candidates,
		}, nil
	case ModalityDay:
		return ModalityProfile{
			Modality:         m,
			Name:             "Day Trading",
			Interval:         "1h",
			CandleLimit:      150,
			ReversalInterval: "15m",
			MinLeverage:      5,
			MaxLeverage:      10,
			InvestmentAmount: 100,
			Candidates:       candidates,
		}, nil
	case ModalitySwing:
		return ModalityProfile{
			Modality:         m,
			Name:             "Swing Trading",
			Interval:         "4h",
			CandleLimit:      200,
			ReversalInterval: "1h",
			MinLeverage:      3,
			MaxLeverage:      5,
			InvestmentAmount: 200,
			Candidates:       candidates,
		}, nil
	case ModalityTrend:
		return ModalityProfile{
			Modality:         m,
			Name:             "Trend Following",
			Interval:         "1d",
			CandleLimit:      200,
			ReversalInterval: "4h",
			MinLeverage:      2,
			MaxLeverage:      3,
			InvestmentAmount: 300,
			Candidates:       candidates,
		}, nil
	}
	return ModalityProfile{}, fmt.Errorf("%w: %q", ErrUnknownModality, m)
}

// DefaultProfiles returns the default profile of every modality
func DefaultProfiles() map[Modality]ModalityProfile {
	profiles := make(map[Modality]ModalityProfile, 4)
	for _, m := range AllModalities() {
		p, _ := DefaultProfile(m)
		profiles[m] = p
	}
	return profiles
}

// Validate checks that a profile can drive trade generation
func (p ModalityProfile) Validate() error {
	if p.Interval == "" || p.ReversalInterval == "" {
		return fmt.Errorf("modality %s: interval and reversal interval are required", p.Modality)
	}
	if p.CandleLimit < minTradeCandles {
		return fmt.Errorf("modality %s: candle limit %d below %d", p.Modality, p.CandleLimit, minTradeCandles)
	}
	if p.MinLeverage < 1 || p.MaxLeverage < p.MinLeverage {
		return fmt.Errorf("modality %s: invalid leverage range %d-%d", p.Modality, p.MinLeverage, p.MaxLeverage)
	}
	if len(p.Candidates) == 0 {
		return fmt.Errorf("modality %s: no candidate symbols", p.Modality)
	}
	return nil
}

// GetModalityDescription returns a human-readable description of the modality
func GetModalityDescription(m Modality) string {
	switch m {
	case ModalityScalping:
		return "Minutes-long trades on 5m candles. High leverage, tight ATR targets."
	case ModalityDay:
		return "Intraday trades on 1h candles, closed before the session ends."
	case ModalitySwing:
		return "Hold for days on 4h structure. Medium leverage, wider targets."
	case ModalityTrend:
		return "Follow the daily trend for weeks. Low leverage, widest targets."
	default:
		return "Unknown trading modality"
	}
}

// ValidateModality validates if a modality string is valid
func ValidateModality(s string) (Modality, bool) {
	switch m := Modality(strings.ToLower(strings.TrimSpace(s))); m {
	case ModalityScalping, ModalityDay, ModalitySwing, ModalityTrend:
		return m, true
	}
	return "", false
}

// AllModalities returns all available modalities
func AllModalities() []Modality {
	return []Modality{ModalityScalping, ModalityDay, ModalitySwing, ModalityTrend}
}
