// Package patterns holds the static tables the classifiers run on: risk
// patterns per category, low-risk overrides, emotion keywords per register,
// cultural idioms, intensity qualifiers and regional markers.
//
// Tables are data. They are declared in YAML, compiled once, and never
// mutated afterwards, so a Library is safe for concurrent use. Slices returned
// by accessors are shared and must be treated as read-only.
package patterns

// RiskCategory is the kind of risk a pattern detects.
type RiskCategory string

const (
	Suicide        RiskCategory = "suicide"
	SelfHarm       RiskCategory = "self_harm"
	Violence       RiskCategory = "violence"
	Abuse          RiskCategory = "abuse"
	Substance      RiskCategory = "substance"
	EatingDisorder RiskCategory = "eating_disorder"
	Unknown        RiskCategory = "unknown"
)

// CategoryOrder is the fixed priority in which categories are scanned.
var CategoryOrder = []RiskCategory{Suicide, SelfHarm, Violence, Abuse, Substance, EatingDisorder}

func parseCategory(s string) (RiskCategory, bool) {
	for _, c := range CategoryOrder {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// RiskPattern is a pattern bound to the category it detects.
type RiskPattern struct {
	Pattern
	Category RiskCategory
}

// Idiom is a cultural expression that boosts an emotion score. An idiom with
// an empty Emotion is recognised but contributes nothing.
type Idiom struct {
	Phrase
	Group   string
	Emotion string
	Boost   float64
}

// Region is a set of regional slang markers.
type Region struct {
	Name    string
	Markers []Phrase
}

// Library is the compiled, read-only pattern set.
type Library struct {
	weights    map[Register]float64
	overrides  []Pattern
	categories map[RiskCategory][]RiskPattern
	vocabulary []string
	lexicon    map[string][]Phrase
	idioms     []Idiom
	high       []Phrase
	medium     []Phrase
	regions    []Region
}

// Overrides returns the low-risk override patterns in declaration order.
func (l *Library) Overrides() []Pattern {
	return l.overrides
}

// CategoryPatterns returns the patterns of one risk category in declaration order.
func (l *Library) CategoryPatterns(c RiskCategory) []RiskPattern {
	return l.categories[c]
}

// Vocabulary returns the emotion tags in their fixed enumeration order.
func (l *Library) Vocabulary() []string {
	return l.vocabulary
}

// Keywords returns the keywords of an emotion tag across all registers.
func (l *Library) Keywords(tag string) []Phrase {
	return l.lexicon[tag]
}

// Weight returns the scoring weight of a register.
func (l *Library) Weight(r Register) float64 {
	return l.weights[r]
}

// Idioms returns the cultural expression table.
func (l *Library) Idioms() []Idiom {
	return l.idioms
}

// HighQualifiers returns the high-intensity qualifier words.
func (l *Library) HighQualifiers() []Phrase {
	return l.high
}

// MediumQualifiers returns the medium-intensity qualifier words.
func (l *Library) MediumQualifiers() []Phrase {
	return l.medium
}

// Regions returns the regional marker lists in declaration order.
func (l *Library) Regions() []Region {
	return l.regions
}

// PatternCount returns the number of compiled risk and override patterns.
func (l *Library) PatternCount() int {
	n := len(l.overrides)
	for _, c := range CategoryOrder {
		n += len(l.categories[c])
	}
	return n
}
