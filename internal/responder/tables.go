package responder

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/lewisedginton/wellbeing_companion/internal/patterns"
)

//go:embed data/*.yaml
var defaultData embed.FS

// CulturalContext is a life area recognised from keywords in the utterance.
type CulturalContext struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Lines    []string `yaml:"lines"`

	re *regexp.Regexp
}

// Templates holds the reply templates. It is read-only after loading.
type Templates struct {
	Emotions        map[string]map[string][]string `yaml:"emotions"`
	HighIntensity   map[string]map[string][]string `yaml:"high_intensity"`
	FollowUp        map[string]string              `yaml:"follow_up"`
	CopingByEmotion map[string]string              `yaml:"coping_by_emotion"`
	Contexts        []CulturalContext              `yaml:"contexts"`
	Coping          map[string][]string            `yaml:"coping"`
	Fallback        string                         `yaml:"fallback"`
	GroundingOffer  string                         `yaml:"grounding_offer"`
}

// Helplines maps locales to crisis scripts.
type Helplines struct {
	DefaultLocale string            `yaml:"default_locale"`
	Intro         map[string]string `yaml:"intro"`
	Outro         string            `yaml:"outro"`
	Locales       map[string]Locale `yaml:"locales"`
}

// Locale is the helpline table for one locale.
type Locale struct {
	Lines      []string                           `yaml:"lines"`
	Categories map[patterns.RiskCategory][]string `yaml:"categories"`
}

// DefaultTemplates returns the embedded reply templates.
func DefaultTemplates() (*Templates, error) {
	data, err := defaultData.ReadFile("data/templates.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded templates: %w", err)
	}
	return LoadTemplates(bytes.NewReader(data))
}

// LoadTemplatesFile reads templates from a YAML file.
func LoadTemplatesFile(path string) (*Templates, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("open templates %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return LoadTemplates(f)
}

// LoadTemplates decodes and validates templates.
func LoadTemplates(r io.Reader) (*Templates, error) {
	var t Templates
	if err := yaml.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("decode templates: %w", err)
	}

	var result error
	for i := range t.Contexts {
		c := &t.Contexts[i]
		if c.Name == "" || len(c.Keywords) == 0 || len(c.Lines) == 0 {
			result = multierror.Append(result, fmt.Errorf("context %d needs a name, keywords and lines", i))
			continue
		}
		c.re = keywordPattern(c.Keywords)
	}
	for emo, group := range t.CopingByEmotion {
		if len(t.Coping[group]) == 0 {
			result = multierror.Append(result, fmt.Errorf("coping group %q for %s has no entries", group, emo))
		}
	}
	if len(t.Coping["grounding"]) == 0 {
		result = multierror.Append(result, fmt.Errorf("coping table needs a grounding group"))
	}
	if t.Fallback == "" {
		result = multierror.Append(result, fmt.Errorf("fallback reply is required"))
	}
	if result != nil {
		return nil, result
	}
	return &t, nil
}

// keywordPattern matches any keyword at the start of a word,
// case-insensitively, so "work" also finds "working" but not "homework".
func keywordPattern(keywords []string) *regexp.Regexp {
	quoted := make([]string, len(keywords))
	for i, k := range keywords {
		quoted[i] = regexp.QuoteMeta(k)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)`)
}

// DetectCulturalContexts returns the names of contexts mentioned in text, in
// table order.
func (t *Templates) DetectCulturalContexts(text string) []string {
	var found []string
	for _, c := range t.Contexts {
		if c.re.MatchString(text) {
			found = append(found, c.Name)
		}
	}
	return found
}

func (t *Templates) context(name string) (CulturalContext, bool) {
	for _, c := range t.Contexts {
		if c.Name == name {
			return c, true
		}
	}
	return CulturalContext{}, false
}

// group returns the variants of an emotion group, preferring the
// high-intensity override.
func (t *Templates) group(emo, name string, high bool) []string {
	if high {
		if lines := t.HighIntensity[emo][name]; len(lines) > 0 {
			return lines
		}
	}
	return t.Emotions[emo][name]
}

// DefaultHelplines returns the embedded helpline table.
func DefaultHelplines() (*Helplines, error) {
	data, err := defaultData.ReadFile("data/helplines.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded helplines: %w", err)
	}
	return LoadHelplines(bytes.NewReader(data))
}

// LoadHelplinesFile reads a helpline table from a YAML file.
func LoadHelplinesFile(path string) (*Helplines, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("open helplines %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return LoadHelplines(f)
}

// LoadHelplines decodes and validates a helpline table. Locale keys are
// upper-cased.
func LoadHelplines(r io.Reader) (*Helplines, error) {
	var h Helplines
	if err := yaml.NewDecoder(r).Decode(&h); err != nil {
		return nil, fmt.Errorf("decode helplines: %w", err)
	}

	locales := make(map[string]Locale, len(h.Locales))
	for k, v := range h.Locales {
		locales[strings.ToUpper(k)] = v
	}
	h.Locales = locales
	h.DefaultLocale = strings.ToUpper(h.DefaultLocale)

	var result error
	def, ok := h.Locales[h.DefaultLocale]
	if !ok {
		result = multierror.Append(result, fmt.Errorf("default locale %q has no table", h.DefaultLocale))
	} else if len(def.Lines) == 0 {
		result = multierror.Append(result, fmt.Errorf("default locale %q has no lines", h.DefaultLocale))
	}
	if h.Intro["default"] == "" {
		result = multierror.Append(result, fmt.Errorf("a default intro is required"))
	}
	if result != nil {
		return nil, result
	}
	return &h, nil
}

// Lines returns the helplines for a locale and category: the category's
// extra lines first, then the locale's general lines. Unknown locales use the
// default locale's table.
func (h *Helplines) Lines(locale string, category patterns.RiskCategory) []string {
	table, ok := h.Locales[strings.ToUpper(locale)]
	if !ok {
		table = h.Locales[h.DefaultLocale]
	}
	lines := make([]string, 0, len(table.Categories[category])+len(table.Lines))
	lines = append(lines, table.Categories[category]...)
	return append(lines, table.Lines...)
}

// Script builds the full crisis message for a locale and category.
func (h *Helplines) Script(locale string, category patterns.RiskCategory) string {
	intro, ok := h.Intro[string(category)]
	if !ok {
		intro = h.Intro["default"]
	}

	var b strings.Builder
	b.WriteString(intro)
	for _, line := range h.Lines(locale, category) {
		b.WriteString("\n• ")
		b.WriteString(line)
	}
	if h.Outro != "" {
		b.WriteString("\n\n")
		b.WriteString(h.Outro)
	}
	return b.String()
}
