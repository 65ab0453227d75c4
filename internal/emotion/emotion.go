// Package emotion classifies the emotional state expressed in an utterance
// using weighted keyword hits across registers, cultural idiom boosts and a
// sentiment fallback.
package emotion

import (
	"github.com/lewisedginton/wellbeing_companion/internal/patterns"
	"github.com/lewisedginton/wellbeing_companion/internal/sentiment"
)

// Neutral is the fallback tag when nothing else applies.
const Neutral = "neutral"

// Intensity is how strongly an emotion is expressed.
type Intensity string

const (
	Low    Intensity = "low"
	Medium Intensity = "medium"
	High   Intensity = "high"
)

// AtLeastMedium reports whether the intensity is MEDIUM or HIGH.
func (i Intensity) AtLeastMedium() bool {
	return i == Medium || i == High
}

// Assessment is the emotional reading of one utterance.
type Assessment struct {
	Primary         string             `json:"primary_emotion"`
	Confidence      float64            `json:"confidence"`
	Emotions        map[string]float64 `json:"multiple_emotions"`
	Intensity       Intensity          `json:"intensity"`
	RegionalContext string             `json:"regional_context,omitempty"`
}

// Clone returns a deep copy of the assessment.
func (a Assessment) Clone() Assessment {
	out := a
	if a.Emotions != nil {
		out.Emotions = make(map[string]float64, len(a.Emotions))
		for k, v := range a.Emotions {
			out.Emotions[k] = v
		}
	}
	return out
}

// Classifier scores utterances against a pattern library. It holds no
// mutable state and is safe for concurrent use.
type Classifier struct {
	lib       *patterns.Library
	sentiment sentiment.Scorer
	rules     []rule
}

// NewClassifier returns a classifier over lib that falls back to scorer when
// no keyword or idiom matches.
func NewClassifier(lib *patterns.Library, scorer sentiment.Scorer) *Classifier {
	return &Classifier{lib: lib, sentiment: scorer, rules: pipeline}
}

// Classify runs the rule pipeline over text. It always yields a primary
// emotion.
func (c *Classifier) Classify(text string) Assessment {
	s := newScoring(text)
	for _, r := range c.rules {
		r.apply(c, s)
	}
	return s.result
}

// Vocabulary returns the tags the classifier can produce, besides Neutral.
func (c *Classifier) Vocabulary() []string {
	return c.lib.Vocabulary()
}
