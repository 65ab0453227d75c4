package emotion

import (
	"math"
	"strings"

	"github.com/lewisedginton/wellbeing_companion/internal/patterns"
)

const (
	// wordsPerUnit is the utterance length, in words, above which keyword
	// scores are scaled down.
	wordsPerUnit = 10.0
	// multiEmotionFloor is the score a tag must exceed to be reported.
	multiEmotionFloor = 0.1
	// neutralScore is both the fallback score and the fallback confidence.
	neutralScore = 0.5
)

// scoring is the working state of one classification.
type scoring struct {
	text   string
	words  int
	scores map[string]float64
	result Assessment
}

func newScoring(text string) *scoring {
	return &scoring{
		text:   text,
		words:  len(strings.Fields(text)),
		scores: make(map[string]float64),
	}
}

type rule struct {
	name  string
	apply func(c *Classifier, s *scoring)
}

var pipeline = []rule{
	{name: "keyword_score", apply: keywordScore},
	{name: "idiom_boost", apply: idiomBoost},
	{name: "sentiment_fallback", apply: sentimentFallback},
	{name: "primary", apply: primary},
	{name: "multi_emotion", apply: multiEmotion},
	{name: "intensity", apply: intensity},
	{name: "regional_context", apply: regionalContext},
}

// RuleNames returns the pipeline stages in the order they run.
func RuleNames() []string {
	names := make([]string, len(pipeline))
	for i, r := range pipeline {
		names[i] = r.name
	}
	return names
}

func keywordScore(c *Classifier, s *scoring) {
	divisor := math.Max(1, float64(s.words)/wordsPerUnit)
	for _, tag := range c.lib.Vocabulary() {
		raw := 0.0
		for _, k := range c.lib.Keywords(tag) {
			if k.Match(s.text) {
				raw += c.lib.Weight(k.Register)
			}
		}
		if raw > 0 {
			s.scores[tag] = raw / divisor
		}
	}
}

func idiomBoost(c *Classifier, s *scoring) {
	for _, idiom := range c.lib.Idioms() {
		if idiom.Emotion == "" || idiom.Boost == 0 {
			continue
		}
		if idiom.Match(s.text) {
			s.scores[idiom.Emotion] += idiom.Boost
		}
	}
}

func sentimentFallback(c *Classifier, s *scoring) {
	for _, v := range s.scores {
		if v > 0 {
			return
		}
	}
	clear(s.scores)

	compound := 0.0
	if c.sentiment != nil && strings.TrimSpace(s.text) != "" {
		compound = c.sentiment.Compound(s.text)
	}
	tag, score := fallbackBucket(compound)
	s.scores[tag] = score
}

// fallbackBucket maps a compound polarity onto an emotion and its score.
func fallbackBucket(compound float64) (string, float64) {
	switch {
	case compound >= 0.5:
		return "happy", compound
	case compound <= -0.5:
		return "sad", math.Abs(compound)
	case compound <= -0.1:
		return "angry", math.Abs(compound) * 0.8
	case compound >= 0.1:
		return "hopeful", compound
	default:
		return Neutral, neutralScore
	}
}

func primary(c *Classifier, s *scoring) {
	best, bestScore := Neutral, math.Inf(-1)
	// strict comparison keeps the earliest tag on ties
	for _, tag := range c.lib.Vocabulary() {
		if score, ok := s.scores[tag]; ok && score > bestScore {
			best, bestScore = tag, score
		}
	}
	if score, ok := s.scores[Neutral]; ok && score > bestScore {
		best, bestScore = Neutral, score
	}
	if math.IsInf(bestScore, -1) {
		bestScore = neutralScore
	}
	s.result.Primary = best
	s.result.Confidence = math.Min(bestScore, 1)
}

func multiEmotion(_ *Classifier, s *scoring) {
	s.result.Emotions = make(map[string]float64)
	for tag, score := range s.scores {
		if score > multiEmotionFloor {
			s.result.Emotions[tag] = score
		}
	}
}

func intensity(c *Classifier, s *scoring) {
	high := countMatches(c.lib.HighQualifiers(), s.text)
	medium := countMatches(c.lib.MediumQualifiers(), s.text)
	switch {
	case high >= 2:
		s.result.Intensity = High
	case high >= 1 || medium >= 2:
		s.result.Intensity = Medium
	default:
		s.result.Intensity = Low
	}
}

func regionalContext(c *Classifier, s *scoring) {
	for _, region := range c.lib.Regions() {
		if countMatches(region.Markers, s.text) >= 2 {
			s.result.RegionalContext = region.Name
			return
		}
	}
}

// countMatches counts the distinct phrases found in text.
func countMatches(phrases []patterns.Phrase, text string) int {
	n := 0
	for _, p := range phrases {
		if p.Match(text) {
			n++
		}
	}
	return n
}
