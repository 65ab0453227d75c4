package sentiment

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestCompound_Polarity(t *testing.T) {
	s := NewLexiconScorer()

	tests := []struct {
		name string
		text string
		sign int
	}{
		{name: "positive", text: "what a great day", sign: 1},
		{name: "negative", text: "this is terrible", sign: -1},
		{name: "hinglish positive", text: "aaj ka din badhiya tha", sign: 1},
		{name: "hinglish negative", text: "sab kuch bekar hai", sign: -1},
		{name: "no sentiment words", text: "the bus leaves at nine", sign: 0},
		{name: "empty", text: "", sign: 0},
		{name: "punctuation only", text: "?!...", sign: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Compound(tt.text)
			switch tt.sign {
			case 1:
				assert.Greater(t, got, 0.0)
			case -1:
				assert.Less(t, got, 0.0)
			default:
				assert.Zero(t, got)
			}
		})
	}
}

func TestCompound_Rules(t *testing.T) {
	s := NewLexiconScorer()

	t.Run("single word matches the normalised valence", func(t *testing.T) {
		assert.InDelta(t, 1.9/math.Sqrt(1.9*1.9+normAlpha), s.Compound("good"), 1e-9)
	})

	t.Run("negation flips polarity", func(t *testing.T) {
		assert.Greater(t, s.Compound("I am happy"), 0.0)
		assert.Less(t, s.Compound("I am not happy"), 0.0)
		assert.Less(t, s.Compound("main khush nahi hun, achha nahi lag raha"), s.Compound("achha lag raha"))
	})

	t.Run("boosters amplify and dampeners soften", func(t *testing.T) {
		plain := s.Compound("good")
		assert.Greater(t, s.Compound("very good"), plain)
		assert.Less(t, s.Compound("slightly good"), plain)
		assert.Less(t, s.Compound("very bad"), s.Compound("bad"))
	})

	t.Run("clause after but dominates", func(t *testing.T) {
		assert.Less(t, s.Compound("the food was good but the service was terrible"), 0.0)
		assert.Greater(t, s.Compound("the food was bad but the people were wonderful"), 0.0)
	})

	t.Run("exclamation marks add emphasis", func(t *testing.T) {
		assert.Greater(t, s.Compound("good!!"), s.Compound("good"))
		assert.Equal(t, s.Compound("good!!!!"), s.Compound("good!!!!!!!"))
	})

	t.Run("capitals add emphasis unless everything is shouted", func(t *testing.T) {
		assert.Greater(t, s.Compound("this is GREAT"), s.Compound("this is great"))
		assert.InDelta(t, s.Compound("great"), s.Compound("GREAT"), 1e-9)
	})

	t.Run("curly apostrophes are handled", func(t *testing.T) {
		assert.Less(t, s.Compound("I don’t feel good"), 0.0)
	})
}

func TestCompound_Bounded(t *testing.T) {
	s := NewLexiconScorer()

	rapid.Check(t, func(rt *rapid.T) {
		words := rapid.SliceOf(rapid.SampledFrom([]string{
			"good", "GREAT", "terrible", "not", "very", "but", "!", "bahut", "achha", "bura", "hmm",
		})).Draw(rt, "words")
		text := strings.Join(words, " ")

		got := s.Compound(text)
		if got < -1 || got > 1 || math.IsNaN(got) {
			rt.Fatalf("compound %v out of range for %q", got, text)
		}
		if got != s.Compound(text) {
			rt.Fatalf("compound not deterministic for %q", text)
		}
	})
}

func TestLoadLexicon(t *testing.T) {
	s, err := LoadLexicon(strings.NewReader("valence:\n  meh: -0.5\nnegations: [not]\n"))
	require.NoError(t, err)
	assert.Less(t, s.Compound("meh"), 0.0)
	assert.Greater(t, s.Compound("not meh"), 0.0)

	_, err = LoadLexicon(strings.NewReader("negations: [not]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no valence entries")

	_, err = LoadLexicon(strings.NewReader("valence: {a: 1}\nemoji: {}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode sentiment lexicon")
}

func TestScorerInterface(t *testing.T) {
	var _ Scorer = NewLexiconScorer()
}
