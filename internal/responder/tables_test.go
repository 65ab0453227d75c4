package responder

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lewisedginton/wellbeing_companion/internal/conversation_memory"
	"github.com/lewisedginton/wellbeing_companion/internal/patterns"
)

func TestDefaultTables(t *testing.T) {
	tmpl, err := DefaultTemplates()
	require.NoError(t, err)
	assert.Len(t, tmpl.Contexts, 4)
	assert.Len(t, tmpl.Emotions, 8)
	assert.Len(t, tmpl.Coping, 4)
	assert.NotEmpty(t, tmpl.GroundingOffer)

	h, err := DefaultHelplines()
	require.NoError(t, err)
	assert.Equal(t, "DEFAULT", h.DefaultLocale)
	assert.Contains(t, h.Locales, "IN")
}

func TestLoadTemplates_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want []string
	}{
		{
			name: "missing pieces",
			yaml: `
contexts:
  - name: career_stress
    keywords: ["job"]
coping_by_emotion:
  anxious: breathing
`,
			want: []string{"context 0 needs", `coping group "breathing"`, "grounding group", "fallback reply is required"},
		},
		{
			name: "not yaml",
			yaml: "emotions: [",
			want: []string{"decode templates"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTemplates(strings.NewReader(tt.yaml))
			require.Error(t, err)
			for _, w := range tt.want {
				assert.Contains(t, err.Error(), w)
			}
		})
	}
}

func TestLoadTemplatesFile(t *testing.T) {
	_, err := LoadTemplatesFile("does/not/exist.yaml")
	assert.Error(t, err)

	_, err = LoadHelplinesFile("does/not/exist.yaml")
	assert.Error(t, err)
}

func TestDetectCulturalContexts(t *testing.T) {
	tmpl, err := DefaultTemplates()
	require.NoError(t, err)

	tests := []struct {
		text string
		want []string
	}{
		{text: "", want: nil},
		{text: "Just a quiet evening", want: nil},
		{text: "My PARENTS keep asking about shaadi", want: []string{"family_pressure"}},
		{text: "working late again, my boss never stops", want: []string{"career_stress"}},
		{text: "after the breakup my friends vanished", want: []string{"relationship_issues", "social_expectations"}},
		{text: "Log kya kahenge about my naukri", want: []string{"career_stress", "social_expectations"}},
		{text: "I finished my homework and wrote a blog", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, tmpl.DetectCulturalContexts(tt.text))
		})
	}
}

const testHelplines = `
default_locale: gb
intro:
  default: "You matter."
  violence: "Let's keep everyone safe."
outro: "Shall we breathe together?"
locales:
  gb:
    lines: ["Samaritans: 116 123"]
    categories:
      substance: ["FRANK: 0300 123 6600"]
  IN:
    lines: ["Kiran: 1800-599-0019"]
`

func TestHelplines(t *testing.T) {
	h, err := LoadHelplines(strings.NewReader(testHelplines))
	require.NoError(t, err)

	tests := []struct {
		name     string
		locale   string
		category patterns.RiskCategory
		want     []string
	}{
		{name: "category lines first", locale: "GB", category: patterns.Substance, want: []string{"FRANK: 0300 123 6600", "Samaritans: 116 123"}},
		{name: "locale is case-insensitive", locale: "in", category: patterns.Suicide, want: []string{"Kiran: 1800-599-0019"}},
		{name: "locale without category extras", locale: "IN", category: patterns.Substance, want: []string{"Kiran: 1800-599-0019"}},
		{name: "unknown locale uses default", locale: "fr", category: patterns.Suicide, want: []string{"Samaritans: 116 123"}},
		{name: "empty locale uses default", locale: "", category: patterns.Substance, want: []string{"FRANK: 0300 123 6600", "Samaritans: 116 123"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, h.Lines(tt.locale, tt.category))
		})
	}

	assert.Equal(t, "You matter.\n• Kiran: 1800-599-0019\n\nShall we breathe together?", h.Script("IN", patterns.SelfHarm))
	assert.Equal(t, "Let's keep everyone safe.\n• Samaritans: 116 123\n\nShall we breathe together?", h.Script("xx", patterns.Violence))
}

func TestLoadHelplines_Invalid(t *testing.T) {
	_, err := LoadHelplines(strings.NewReader(`
default_locale: US
locales:
  IN:
    lines: ["Kiran"]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `default locale "US" has no table`)
	assert.Contains(t, err.Error(), "default intro is required")
}

func TestDefaultHelplines_EveryCategory(t *testing.T) {
	h, err := DefaultHelplines()
	require.NoError(t, err)

	for _, locale := range []string{"IN", "DEFAULT", "unknown"} {
		for _, c := range patterns.CategoryOrder {
			script := h.Script(locale, c)
			assert.Contains(t, script, "\n• ", "%s/%s", locale, c)
			assert.True(t, strings.HasSuffix(script, h.Outro))
		}
	}
	assert.Contains(t, h.Script("IN", patterns.Substance), "Tele-MANAS (24x7): 14416")
	assert.Contains(t, h.Script("US", patterns.Substance), "1-800-662-4357")
}

func TestEmotionEmoji(t *testing.T) {
	assert.Equal(t, "😊", EmotionEmoji("happy"))
	assert.Equal(t, "😰", EmotionEmoji("anxious"))
	assert.Equal(t, "😐", EmotionEmoji("neutral"))
	assert.Equal(t, "😐", EmotionEmoji("bewildered"))
}

func TestGoodbye(t *testing.T) {
	got := Goodbye(conversation_memory.Summary{MessageCount: 7, DominantEmotion: "anxious"})
	assert.Equal(t, "Goodbye! We talked for 7 messages today. Your primary emotion was anxious. Take care of yourself! 💙", got)

	got = Goodbye(conversation_memory.Summary{})
	assert.Contains(t, got, "0 messages")
	assert.Contains(t, got, "was neutral.")
}
