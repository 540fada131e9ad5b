package autopilot

import (
	"fmt"

	"smc-advisor/internal/analysis"
	"smc-advisor/internal/confluence"
	"smc-advisor/internal/indicators"
)

// Config carries the tuning shared by the generator and the reversal detector
type Config struct {
	Profiles   map[Modality]ModalityProfile `json:"profiles" yaml:"profiles"`
	Indicators indicators.Config            `json:"indicators" yaml:"indicators"`
	Params     analysis.Params              `json:"params" yaml:"params"`
	Weights    confluence.Weights           `json:"weights" yaml:"weights"`
	Policy     ScoringPolicy                `json:"policy" yaml:"policy"`
}

// DefaultConfig returns the default profiles, periods and thresholds with the
// signal-count reversal policy
func DefaultConfig() Config {
	return Config{
		Profiles:   DefaultProfiles(),
		Indicators: indicators.DefaultConfig(),
		Params:     analysis.DefaultParams(),
		Weights:    confluence.DefaultWeights(),
		Policy:     PolicySignalCount,
	}
}

// Validate checks every profile, the indicator periods and the reversal policy
func (c Config) Validate() error {
	if len(c.Profiles) == 0 {
		return fmt.Errorf("no modality profiles configured")
	}
	for m, p := range c.Profiles {
		if p.Modality != m {
			return fmt.Errorf("profile key %q does not match modality %q", m, p.Modality)
		}
		if err := p.Validate(); err != nil {
			return err
		}
	}
	if err := c.Indicators.Validate(); err != nil {
		return err
	}
	if !c.Policy.Valid() {
		return fmt.Errorf("unknown reversal policy %q", c.Policy)
	}
	return nil
}

func (c Config) profile(m Modality) (ModalityProfile, error) {
	p, ok := c.Profiles[m]
	if !ok {
		return ModalityProfile{}, fmt.Errorf("%w: %q", ErrUnknownModality, m)
	}
	return p, nil
}
