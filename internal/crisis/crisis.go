// Package crisis looks across the recent emotion history for sustained
// distress, independently of single-message risk detection.
package crisis

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Level is the escalation tier of a crisis state.
type Level string

const (
	Low    Level = "low"
	Medium Level = "medium"
	High   Level = "high"
)

// Config parameterises the score detector.
type Config struct {
	// Window is how many of the most recent emotion tags are scored.
	Window int
	// HighWeight and MediumWeight are the points per tag in each set.
	HighWeight   int
	MediumWeight int

	HighRiskTags   []string
	MediumRiskTags []string
	// HighThreshold and MediumThreshold are the minimum scores of each level.
	HighThreshold   int
	MediumThreshold int
}

// DefaultConfig returns the standard weights, tag sets and thresholds.
func DefaultConfig() Config {
	return Config{
		Window:          10,
		HighWeight:      3,
		MediumWeight:    1,
		HighRiskTags:    []string{"hopeless", "suicidal", "overwhelmed"},
		MediumRiskTags:  []string{"sad", "angry", "anxious", "lonely"},
		HighThreshold:   15,
		MediumThreshold: 8,
	}
}

// Validate checks that the configuration describes a usable detector.
func (c Config) Validate() error {
	var result error
	if c.Window <= 0 {
		result = multierror.Append(result, fmt.Errorf("crisis window must be greater than 0, got %d", c.Window))
	}
	if c.HighWeight < 0 || c.MediumWeight < 0 {
		result = multierror.Append(result, fmt.Errorf("crisis weights cannot be negative"))
	}
	if c.MediumThreshold <= 0 {
		result = multierror.Append(result, fmt.Errorf("crisis medium threshold must be greater than 0, got %d", c.MediumThreshold))
	}
	if c.HighThreshold < c.MediumThreshold {
		result = multierror.Append(result, fmt.Errorf("crisis high threshold %d is below the medium threshold %d", c.HighThreshold, c.MediumThreshold))
	}
	for _, tag := range c.HighRiskTags {
		for _, other := range c.MediumRiskTags {
			if tag == other {
				result = multierror.Append(result, fmt.Errorf("emotion %q is in both crisis tag sets", tag))
			}
		}
	}
	return result
}

// State is the derived escalation state of a window of emotions. It is
// recomputed on every call and never cached.
type State struct {
	Score           int      `json:"crisis_score"`
	MaxScore        int      `json:"max_score"`
	Level           Level    `json:"level"`
	Recommendations []string `json:"recommendations"`
	Window          []string `json:"window"`
}

var recommendations = map[Level][]string{
	High: {
		"Consider reaching out to a mental health professional soon.",
		"Share how you have been feeling with someone you trust today.",
		"Keep a helpline number close, such as Kiran (India, 24x7): 1800-599-0019.",
		"Try a grounding exercise when feelings become overwhelming.",
	},
	Medium: {
		"Check in with yourself each day about how you are feeling.",
		"Make time for the activities that usually lift your mood.",
		"Talk to a friend or family member about what has been on your mind.",
	},
	Low: {
		"Keep up the routines that support your wellbeing.",
	},
}

// Detector scores emotion windows. It is immutable and safe for concurrent
// use.
type Detector struct {
	cfg    Config
	high   map[string]bool
	medium map[string]bool
}

// NewDetector validates cfg and returns a detector.
func NewDetector(cfg Config) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Detector{cfg: cfg, high: make(map[string]bool), medium: make(map[string]bool)}
	for _, tag := range cfg.HighRiskTags {
		d.high[tag] = true
	}
	for _, tag := range cfg.MediumRiskTags {
		d.medium[tag] = true
	}
	return d, nil
}

// Window returns how many recent emotions the detector scores.
func (d *Detector) Window() int {
	return d.cfg.Window
}

// MaxScore is the score of a window made only of high-risk tags.
func (d *Detector) MaxScore() int {
	return d.cfg.HighWeight * d.cfg.Window
}

// Evaluate scores the most recent Window tags of emotions, oldest first.
func (d *Detector) Evaluate(emotions []string) State {
	window := emotions[max(0, len(emotions)-d.cfg.Window):]

	score := 0
	for _, tag := range window {
		switch {
		case d.high[tag]:
			score += d.cfg.HighWeight
		case d.medium[tag]:
			score += d.cfg.MediumWeight
		}
	}

	level := Low
	switch {
	case score >= d.cfg.HighThreshold:
		level = High
	case score >= d.cfg.MediumThreshold:
		level = Medium
	}

	return State{
		Score:           score,
		MaxScore:        d.MaxScore(),
		Level:           level,
		Recommendations: append([]string(nil), recommendations[level]...),
		Window:          append([]string{}, window...),
	}
}
