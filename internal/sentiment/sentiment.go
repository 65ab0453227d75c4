// Package sentiment scores the overall polarity of short texts.
//
// The scorer is a small rule-based valence model in the style of VADER: each
// lexicon word contributes its valence, shifted by preceding boosters, flipped
// by nearby negations and emphasised by capitals. Clauses after "but" weigh
// more than those before it, exclamation marks add emphasis, and the sum is
// normalised into [-1, 1].
package sentiment

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"math"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Scorer computes a compound polarity in [-1, 1] for a text.
type Scorer interface {
	Compound(text string) float64
}

const (
	// normAlpha approximates the maximum expected sum of valences.
	normAlpha = 15.0

	capsIncrement   = 0.733
	negationScalar  = -0.74
	exclamationStep = 0.292
	maxExclamations = 4
	negationReach   = 3
	boosterReach    = 3
)

//go:embed data/lexicon.yaml
var defaultLexicon []byte

type lexiconDoc struct {
	Valence   map[string]float64 `yaml:"valence"`
	Negations []string           `yaml:"negations"`
	Boosters  map[string]float64 `yaml:"boosters"`
}

// LexiconScorer is a rule-based Scorer. It is immutable and safe for
// concurrent use.
type LexiconScorer struct {
	valence   map[string]float64
	negations map[string]bool
	boosters  map[string]float64
}

// NewLexiconScorer returns a scorer over the embedded lexicon.
func NewLexiconScorer() *LexiconScorer {
	s, err := LoadLexicon(bytes.NewReader(defaultLexicon))
	if err != nil {
		panic(fmt.Sprintf("embedded sentiment lexicon is invalid: %v", err))
	}
	return s
}

// LoadLexicon builds a scorer from a YAML lexicon document.
func LoadLexicon(r io.Reader) (*LexiconScorer, error) {
	var doc lexiconDoc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode sentiment lexicon: %w", err)
	}
	if len(doc.Valence) == 0 {
		return nil, fmt.Errorf("sentiment lexicon has no valence entries")
	}

	s := &LexiconScorer{
		valence:   make(map[string]float64, len(doc.Valence)),
		negations: make(map[string]bool, len(doc.Negations)),
		boosters:  make(map[string]float64, len(doc.Boosters)),
	}
	for w, v := range doc.Valence {
		s.valence[strings.ToLower(w)] = v
	}
	for _, w := range doc.Negations {
		s.negations[strings.ToLower(w)] = true
	}
	for w, v := range doc.Boosters {
		s.boosters[strings.ToLower(w)] = v
	}
	return s, nil
}

type token struct {
	word string
	caps bool
}

func tokenize(text string) []token {
	text = strings.ReplaceAll(text, "’", "'")
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'')
	})

	tokens := make([]token, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "'")
		if f == "" {
			continue
		}
		tokens = append(tokens, token{word: strings.ToLower(f), caps: isShouted(f)})
	}
	return tokens
}

func isShouted(word string) bool {
	letters := 0
	for _, r := range word {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return letters > 1
}

// Compound returns the normalised polarity of text; 0 for text with no
// sentiment words.
func (s *LexiconScorer) Compound(text string) float64 {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return 0
	}

	// capitals only signal emphasis when the text is not shouted throughout
	shoutedAll := true
	for _, t := range tokens {
		if !t.caps {
			shoutedAll = false
			break
		}
	}

	butAt := -1
	for i, t := range tokens {
		if t.word == "but" {
			butAt = i
		}
	}

	sum := 0.0
	for i, t := range tokens {
		v, ok := s.valence[t.word]
		if !ok {
			continue
		}
		if t.caps && !shoutedAll {
			v += math.Copysign(capsIncrement, v)
		}
		v += s.boost(tokens, i, v, shoutedAll)
		if s.negated(tokens, i) {
			v *= negationScalar
		}
		switch {
		case butAt < 0:
		case i < butAt:
			v *= 0.5
		case i > butAt:
			v *= 1.5
		}
		sum += v
	}

	if sum != 0 {
		marks := min(strings.Count(text, "!"), maxExclamations)
		sum += math.Copysign(float64(marks)*exclamationStep, sum)
	}
	return normalize(sum)
}

// boost sums the booster shifts of the words preceding tokens[i], decaying
// with distance.
func (s *LexiconScorer) boost(tokens []token, i int, valence float64, shoutedAll bool) float64 {
	total := 0.0
	decay := []float64{1, 0.95, 0.9}
	for d := 1; d <= boosterReach && i-d >= 0; d++ {
		prev := tokens[i-d]
		b, ok := s.boosters[prev.word]
		if !ok {
			continue
		}
		if valence < 0 {
			b = -b
		}
		if prev.caps && !shoutedAll {
			b += math.Copysign(capsIncrement, b)
		}
		total += b * decay[d-1]
	}
	return total
}

func (s *LexiconScorer) negated(tokens []token, i int) bool {
	for d := 1; d <= negationReach && i-d >= 0; d++ {
		w := tokens[i-d].word
		if s.negations[w] || strings.HasSuffix(w, "n't") {
			return true
		}
	}
	return false
}

func normalize(sum float64) float64 {
	if sum == 0 {
		return 0
	}
	n := sum / math.Sqrt(sum*sum+normAlpha)
	return math.Max(-1, math.Min(1, n))
}
