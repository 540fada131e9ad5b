package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"smc-advisor/internal/autopilot"
)

// LoadAnalysisProfile reads the YAML tuning profile at path over the default
// autopilot configuration. An empty path or missing file yields the defaults.
// Profiles listed in the file replace the built-in profile of that modality
// as a whole.
func LoadAnalysisProfile(path string) (autopilot.Config, error) {
	cfg := autopilot.DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("error reading analysis profile: %w", err)
	}
	return ParseAnalysisProfile(data)
}

// ParseAnalysisProfile decodes a YAML tuning profile over the defaults
func ParseAnalysisProfile(data []byte) (autopilot.Config, error) {
	cfg := autopilot.DefaultConfig()

	var overrides struct {
		Profiles   map[autopilot.Modality]autopilot.ModalityProfile `yaml:"profiles"`
		Indicators yaml.Node                                        `yaml:"indicators"`
		Params     yaml.Node                                        `yaml:"params"`
		Weights    yaml.Node                                        `yaml:"weights"`
		Policy     autopilot.ScoringPolicy                          `yaml:"policy"`
	}
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return cfg, fmt.Errorf("error parsing analysis profile: %w", err)
	}

	// Sections decode onto the defaults so omitted keys keep their values
	sections := []struct {
		node *yaml.Node
		out  interface{}
	}{
		{&overrides.Indicators, &cfg.Indicators},
		{&overrides.Params, &cfg.Params},
		{&overrides.Weights, &cfg.Weights},
	}
	for _, s := range sections {
		if s.node.Kind == 0 {
			continue
		}
		if err := s.node.Decode(s.out); err != nil {
			return cfg, fmt.Errorf("error parsing analysis profile: %w", err)
		}
	}

	for m, p := range overrides.Profiles {
		if p.Modality == "" {
			p.Modality = m
		}
		cfg.Profiles[m] = p
	}
	if overrides.Policy != "" {
		cfg.Policy = overrides.Policy
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid analysis profile: %w", err)
	}
	return cfg, nil
}
