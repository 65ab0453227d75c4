// Package risk assesses a single utterance for risk of self-harm, violence,
// abuse, substance misuse or disordered eating.
package risk

import (
	"strings"

	"github.com/lewisedginton/wellbeing_companion/internal/patterns"
)

// Level is the severity of an assessment.
type Level string

const (
	None   Level = "none"
	Low    Level = "low"
	Medium Level = "medium"
	High   Level = "high"
)

// Levels lists every level from least to most severe.
var Levels = []Level{None, Low, Medium, High}

// IsCrisis reports whether the level routes a turn to the crisis path.
func (l Level) IsCrisis() bool {
	return l == High || l == Medium
}

// String returns the upper-case form used in logs and displays.
func (l Level) String() string {
	return strings.ToUpper(string(l))
}

// Assessment is the outcome of assessing one utterance.
type Assessment struct {
	Level           Level                 `json:"level"`
	Category        patterns.RiskCategory `json:"category"`
	MatchedPatterns []string              `json:"matched_patterns"`
}

// Options tune the classifier.
type Options struct {
	// OverrideFirst returns LOW as soon as an override pattern matches, before
	// any category is scanned. When false an override only applies if no
	// category pattern matched.
	OverrideFirst bool
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{OverrideFirst: true}
}

// Classifier assesses utterances against a pattern library. It holds no
// mutable state and is safe for concurrent use.
type Classifier struct {
	lib   *patterns.Library
	opts  Options
	rules []rule
}

// NewClassifier returns a classifier over lib.
func NewClassifier(lib *patterns.Library, opts Options) *Classifier {
	return &Classifier{lib: lib, opts: opts, rules: pipeline}
}

// Assess runs the rule pipeline over text. It never fails: empty or
// unrecognised text assesses as NONE.
func (c *Classifier) Assess(text string) Assessment {
	s := &scan{text: text}
	for _, r := range c.rules {
		if r.apply(c, s) {
			break
		}
	}
	return s.result
}

// Options returns the options the classifier was built with.
func (c *Classifier) Options() Options {
	return c.opts
}
