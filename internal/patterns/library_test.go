package patterns

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	lib, err := Default()
	require.NoError(t, err)

	assert.Len(t, lib.Vocabulary(), 22)
	assert.Equal(t, "happy", lib.Vocabulary()[0])
	assert.Equal(t, "hopeless", lib.Vocabulary()[21])
	assert.NotContains(t, lib.Vocabulary(), "neutral")

	for _, c := range CategoryOrder {
		assert.NotEmpty(t, lib.CategoryPatterns(c), "category %s has no patterns", c)
	}
	assert.NotEmpty(t, lib.Overrides())
	assert.Greater(t, lib.PatternCount(), 25)

	assert.Equal(t, 1.0, lib.Weight(Standard))
	assert.Equal(t, 1.5, lib.Weight(Transliterated))
	assert.Equal(t, 2.0, lib.Weight(CodeMixed))

	for _, tag := range lib.Vocabulary() {
		assert.NotEmpty(t, lib.Keywords(tag), "tag %s has no keywords", tag)
	}

	regions := make([]string, 0, len(lib.Regions()))
	for _, r := range lib.Regions() {
		regions = append(regions, r.Name)
	}
	assert.Equal(t, []string{"north_indian", "south_indian", "west_indian", "east_indian"}, regions)
}

func TestDefault_IdiomGroups(t *testing.T) {
	lib, err := Default()
	require.NoError(t, err)

	boosts := map[string]struct {
		emotion string
		boost   float64
	}{}
	for _, idiom := range lib.Idioms() {
		boosts[idiom.Group] = struct {
			emotion string
			boost   float64
		}{idiom.Emotion, idiom.Boost}
	}

	assert.Equal(t, "anxious", boosts["stress"].emotion)
	assert.Equal(t, 2.0, boosts["stress"].boost)
	assert.Equal(t, "happy", boosts["happiness"].emotion)
	assert.Equal(t, "sad", boosts["sadness"].emotion)
	assert.Equal(t, "angry", boosts["anger"].emotion)
	assert.Equal(t, 1.5, boosts["fear"].boost)
	assert.Equal(t, 1.5, boosts["worry"].boost)
	assert.Empty(t, boosts["love"].emotion)
	assert.Zero(t, boosts["love"].boost)
}

func TestPhrase_Match(t *testing.T) {
	tests := []struct {
		name   string
		phrase string
		text   string
		want   bool
	}{
		{name: "exact word", phrase: "sad", text: "I am sad", want: true},
		{name: "case insensitive", phrase: "sad", text: "SO SAD today", want: true},
		{name: "word inside another word", phrase: "sad", text: "the crusade continues", want: false},
		{name: "prefix of a longer word", phrase: "mad", text: "a madman", want: false},
		{name: "multi word with extra spaces", phrase: "mood off", text: "mood   off hai", want: true},
		{name: "punctuation after word", phrase: "yaar", text: "kya yaar!", want: true},
		{name: "regex characters are literal", phrase: "a.b", text: "axb", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := newPhrase(tt.phrase, Standard)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Match(tt.text))
		})
	}
}

func TestPattern_MatchIsCaseInsensitive(t *testing.T) {
	p, err := newPattern("test.id", `\bend my life\b`, Standard)
	require.NoError(t, err)

	assert.True(t, p.Match("I want to END MY LIFE"))
	assert.False(t, p.Match("the end of my lifetime"))
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "duplicate id",
			yaml: `
categories:
  suicide:
    - {id: a, register: standard, pattern: 'x'}
    - {id: a, register: standard, pattern: 'y'}
`,
			wantErr: "duplicate pattern id a",
		},
		{
			name: "invalid regular expression",
			yaml: `
overrides:
  - {id: broken, register: standard, pattern: '(unclosed'}
`,
			wantErr: "pattern broken",
		},
		{
			name: "unknown category",
			yaml: `
categories:
  gambling:
    - {id: g, register: standard, pattern: 'bet'}
`,
			wantErr: `unknown risk category "gambling"`,
		},
		{
			name: "unknown register",
			yaml: `
overrides:
  - {id: o, register: klingon, pattern: 'x'}
`,
			wantErr: `unknown register "klingon"`,
		},
		{
			name: "lexicon tag outside vocabulary",
			yaml: `
vocabulary: [happy]
lexicon:
  bored:
    standard: [bored]
`,
			wantErr: `lexicon tag "bored" is not in the vocabulary`,
		},
		{
			name: "idiom with unknown emotion",
			yaml: `
vocabulary: [happy]
idioms:
  - {group: g, emotion: ecstatic, boost: 1, phrases: [woo]}
`,
			wantErr: `unknown emotion "ecstatic"`,
		},
		{
			name:    "unknown field",
			yaml:    "colours: [red]\n",
			wantErr: "failed to decode pattern table 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_AggregatesErrors(t *testing.T) {
	_, err := Load(strings.NewReader(`
overrides:
  - {id: a, register: standard, pattern: '(bad'}
  - {id: b, register: nope, pattern: 'x'}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 errors occurred")
}

func TestLoadFile_ExtendsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extra.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
categories:
  substance:
    - id: substance.extra
      register: standard
      pattern: '\bgambling away my rent\b'
lexicon:
  tired:
    standard: [knackered]
`), 0o600))

	base, err := Default()
	require.NoError(t, err)
	lib, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, base.PatternCount()+1, lib.PatternCount())
	patterns := lib.CategoryPatterns(Substance)
	last := patterns[len(patterns)-1]
	assert.Equal(t, "substance.extra", last.ID)
	assert.Equal(t, Substance, last.Category)
	assert.True(t, last.Match("I keep gambling away my rent"))

	keywords := lib.Keywords("tired")
	assert.Equal(t, "knackered", keywords[len(keywords)-1].Text)
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read pattern file")
}
