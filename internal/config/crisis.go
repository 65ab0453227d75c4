package config

import (
	"github.com/lewisedginton/wellbeing_companion/internal/crisis"
	"github.com/lewisedginton/wellbeing_companion/internal/risk"
)

// CrisisConfig holds the risk and crisis-pattern detection settings.
type CrisisConfig struct {
	// OverrideFirst lets idiom override patterns win over every category.
	OverrideFirst bool `env:"RISK_OVERRIDE_FIRST" yaml:"override_first" default:"true"`

	Window          int      `env:"CRISIS_WINDOW" yaml:"window" default:"10"`
	HighWeight      int      `env:"CRISIS_HIGH_WEIGHT" yaml:"high_weight" default:"3"`
	MediumWeight    int      `env:"CRISIS_MEDIUM_WEIGHT" yaml:"medium_weight" default:"1"`
	HighThreshold   int      `env:"CRISIS_HIGH_THRESHOLD" yaml:"high_threshold" default:"15"`
	MediumThreshold int      `env:"CRISIS_MEDIUM_THRESHOLD" yaml:"medium_threshold" default:"8"`
	HighRiskTags    []string `env:"CRISIS_HIGH_RISK_TAGS" yaml:"high_risk_tags" default:"hopeless,suicidal,overwhelmed"`
	MediumRiskTags  []string `env:"CRISIS_MEDIUM_RISK_TAGS" yaml:"medium_risk_tags" default:"sad,angry,anxious,lonely"`

	RepeatedWindow     int      `env:"REPEATED_EMOTION_WINDOW" yaml:"repeated_window" default:"10"`
	RepeatedMinEntries int      `env:"REPEATED_EMOTION_MIN_ENTRIES" yaml:"repeated_min_entries" default:"5"`
	RepeatedThreshold  int      `env:"REPEATED_EMOTION_THRESHOLD" yaml:"repeated_threshold" default:"4"`
	ConcerningTags     []string `env:"REPEATED_EMOTION_TAGS" yaml:"concerning_tags" default:"sad,lonely,overwhelmed,anxious"`
}

// RiskOptions returns the risk classifier options.
func (c CrisisConfig) RiskOptions() risk.Options {
	return risk.Options{OverrideFirst: c.OverrideFirst}
}

// Detector returns the crisis score detector configuration.
func (c CrisisConfig) Detector() crisis.Config {
	return crisis.Config{
		Window:          c.Window,
		HighWeight:      c.HighWeight,
		MediumWeight:    c.MediumWeight,
		HighRiskTags:    c.HighRiskTags,
		MediumRiskTags:  c.MediumRiskTags,
		HighThreshold:   c.HighThreshold,
		MediumThreshold: c.MediumThreshold,
	}
}

// Repeated returns the repeated-emotion detector configuration.
func (c CrisisConfig) Repeated() crisis.RepeatedConfig {
	return crisis.RepeatedConfig{
		Window:     c.RepeatedWindow,
		MinEntries: c.RepeatedMinEntries,
		Threshold:  c.RepeatedThreshold,
		Concerning: c.ConcerningTags,
	}
}
