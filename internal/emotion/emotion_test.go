package emotion

import (
	"strings"
	"testing"

	"github.com/lewisedginton/wellbeing_companion/internal/patterns"
	"github.com/lewisedginton/wellbeing_companion/internal/sentiment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubScorer float64

func (s stubScorer) Compound(string) float64 { return float64(s) }

func newTestClassifier(t *testing.T, scorer sentiment.Scorer) *Classifier {
	t.Helper()
	lib, err := patterns.Default()
	require.NoError(t, err)
	return NewClassifier(lib, scorer)
}

func TestClassify(t *testing.T) {
	c := newTestClassifier(t, sentiment.NewLexiconScorer())

	tests := []struct {
		name       string
		text       string
		primary    string
		confidence float64
		emotions   map[string]float64
		intensity  Intensity
	}{
		{
			name:       "english keywords tie on vocabulary order",
			text:       "I feel so sad and lonely today",
			primary:    "sad",
			confidence: 1,
			emotions:   map[string]float64{"sad": 1, "lonely": 1},
			intensity:  Medium,
		},
		{
			name:       "code mixed keyword weighs two",
			text:       "bahut tension mein hun",
			primary:    "anxious",
			confidence: 1,
			emotions:   map[string]float64{"anxious": 2},
			intensity:  Medium,
		},
		{
			name:       "transliterated keyword weighs one and a half",
			text:       "aaj main udaas hun",
			primary:    "sad",
			confidence: 1,
			emotions:   map[string]float64{"sad": 1.5},
			intensity:  Low,
		},
		{
			name:       "idiom boost outranks a keyword",
			text:       "sar par bojh hai",
			primary:    "anxious",
			confidence: 1,
			emotions:   map[string]float64{"anxious": 2, "overwhelmed": 1.5},
			intensity:  Low,
		},
		{
			name:       "long utterances are normalised",
			text:       "sad" + strings.Repeat(" word", 19),
			primary:    "sad",
			confidence: 0.5,
			emotions:   map[string]float64{"sad": 0.5},
			intensity:  Low,
		},
		{
			name:       "earlier tag wins a tie",
			text:       "happy but sad",
			primary:    "happy",
			confidence: 1,
			emotions:   map[string]float64{"happy": 1, "sad": 1},
			intensity:  Low,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.text)
			assert.Equal(t, tt.primary, got.Primary)
			assert.InDelta(t, tt.confidence, got.Confidence, 1e-9)
			assert.InDeltaMapValues(t, tt.emotions, got.Emotions, 1e-9)
			assert.Len(t, got.Emotions, len(tt.emotions))
			assert.Equal(t, tt.intensity, got.Intensity)
		})
	}
}

func TestClassify_EmptyInput(t *testing.T) {
	c := newTestClassifier(t, sentiment.NewLexiconScorer())

	for _, text := range []string{"", "   "} {
		got := c.Classify(text)
		assert.Equal(t, Assessment{
			Primary:    Neutral,
			Confidence: 0.5,
			Emotions:   map[string]float64{Neutral: 0.5},
			Intensity:  Low,
		}, got)
	}
}

func TestClassify_SentimentFallback(t *testing.T) {
	tests := []struct {
		compound   float64
		primary    string
		confidence float64
	}{
		{compound: 0.9, primary: "happy", confidence: 0.9},
		{compound: 0.5, primary: "happy", confidence: 0.5},
		{compound: 0.3, primary: "hopeful", confidence: 0.3},
		{compound: 0.1, primary: "hopeful", confidence: 0.1},
		{compound: 0.05, primary: Neutral, confidence: 0.5},
		{compound: -0.05, primary: Neutral, confidence: 0.5},
		{compound: -0.1, primary: "angry", confidence: 0.08},
		{compound: -0.3, primary: "angry", confidence: 0.24},
		{compound: -0.5, primary: "sad", confidence: 0.5},
		{compound: -0.8, primary: "sad", confidence: 0.8},
	}

	for _, tt := range tests {
		c := newTestClassifier(t, stubScorer(tt.compound))
		got := c.Classify("the bus leaves at nine")
		assert.Equal(t, tt.primary, got.Primary, "compound %v", tt.compound)
		assert.InDelta(t, tt.confidence, got.Confidence, 1e-9, "compound %v", tt.compound)
	}
}

func TestClassify_SentimentNotUsedWhenKeywordsMatch(t *testing.T) {
	c := newTestClassifier(t, stubScorer(0.9))

	got := c.Classify("I am so angry")
	assert.Equal(t, "angry", got.Primary)
	assert.NotContains(t, got.Emotions, "happy")
}

func TestClassify_WholeWordKeywords(t *testing.T) {
	c := newTestClassifier(t, stubScorer(0))

	got := c.Classify("the crusade was long")
	assert.Equal(t, Neutral, got.Primary)
}

func TestClassify_InflectedKeywords(t *testing.T) {
	c := newTestClassifier(t, stubScorer(0))

	tests := map[string]string{
		"the sadness will not lift":       "sad",
		"my depression is back":           "sad",
		"anxiety keeps me up":             "anxious",
		"so much loneliness in this city": "lonely",
		"the guilt is eating me":          "guilty",
	}
	for text, want := range tests {
		assert.Equal(t, want, c.Classify(text).Primary, text)
	}
}

func TestClassify_Intensity(t *testing.T) {
	c := newTestClassifier(t, stubScorer(0))

	tests := []struct {
		text string
		want Intensity
	}{
		{text: "I am very very sad", want: Medium},
		{text: "extremely sad and really tired", want: High},
		{text: "quite tired, thoda sad", want: Medium},
		{text: "a little bit tired", want: Low},
		{text: "bahut bohot thak gaya", want: High},
		{text: "tired", want: Low},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Classify(tt.text).Intensity, tt.text)
	}
}

func TestClassify_RegionalContext(t *testing.T) {
	c := newTestClassifier(t, stubScorer(0))

	assert.Equal(t, "north_indian", c.Classify("arre yaar, kya scene hai bhai").RegionalContext)
	assert.Equal(t, "south_indian", c.Classify("machha, anna is here da").RegionalContext)
	assert.Empty(t, c.Classify("kya scene hai yaar").RegionalContext)
}

func TestClassify_Idempotent(t *testing.T) {
	c := newTestClassifier(t, sentiment.NewLexiconScorer())

	text := "Bahut tension mein hun yaar, sar par bojh hai"
	assert.Equal(t, c.Classify(text), c.Classify(text))
}

func TestRuleNames(t *testing.T) {
	assert.Equal(t, []string{
		"keyword_score", "idiom_boost", "sentiment_fallback", "primary", "multi_emotion", "intensity", "regional_context",
	}, RuleNames())
}

func TestRules(t *testing.T) {
	c := newTestClassifier(t, stubScorer(0.7))

	t.Run("keyword_score leaves unmatched tags out", func(t *testing.T) {
		s := newScoring("I feel grateful")
		keywordScore(c, s)
		assert.Equal(t, map[string]float64{"grateful": 1}, s.scores)
	})

	t.Run("idiom_boost adds after normalisation", func(t *testing.T) {
		s := newScoring("dil toot gaya")
		s.scores["sad"] = 0.25
		idiomBoost(c, s)
		assert.InDelta(t, 2.25, s.scores["sad"], 1e-9)
	})

	t.Run("idiom_boost ignores unmapped groups", func(t *testing.T) {
		s := newScoring("pyaar ho gaya")
		idiomBoost(c, s)
		assert.Empty(t, s.scores)
	})

	t.Run("sentiment_fallback only runs without scores", func(t *testing.T) {
		s := newScoring("anything")
		s.scores["tired"] = 1
		sentimentFallback(c, s)
		assert.Equal(t, map[string]float64{"tired": 1}, s.scores)

		s = newScoring("anything")
		sentimentFallback(c, s)
		assert.Equal(t, map[string]float64{"happy": 0.7}, s.scores)
	})

	t.Run("multi_emotion drops small scores", func(t *testing.T) {
		s := newScoring("x")
		s.scores = map[string]float64{"sad": 0.1, "tired": 0.11}
		multiEmotion(c, s)
		assert.Equal(t, map[string]float64{"tired": 0.11}, s.result.Emotions)
	})

	t.Run("primary caps confidence at one", func(t *testing.T) {
		s := newScoring("x")
		s.scores = map[string]float64{"lonely": 3.5, "hopeless": 3.5}
		primary(c, s)
		assert.Equal(t, "lonely", s.result.Primary)
		assert.Equal(t, 1.0, s.result.Confidence)
	})
}

func TestAssessment_Clone(t *testing.T) {
	a := Assessment{Primary: "sad", Emotions: map[string]float64{"sad": 1}}
	b := a.Clone()
	b.Emotions["sad"] = 2
	assert.Equal(t, 1.0, a.Emotions["sad"])
}
