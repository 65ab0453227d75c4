package risk

import (
	"strings"

	"github.com/lewisedginton/wellbeing_companion/internal/patterns"
)

// scan is the working state of one assessment.
type scan struct {
	text      string
	overrides []string
	matches   []patterns.RiskPattern
	result    Assessment
}

// rule is one named stage of the pipeline. apply returns true when the
// assessment is final and later rules must not run.
type rule struct {
	name  string
	apply func(c *Classifier, s *scan) bool
}

var pipeline = []rule{
	{name: "empty_input", apply: emptyInput},
	{name: "low_risk_override", apply: lowRiskOverride},
	{name: "category_scan", apply: categoryScan},
	{name: "severity", apply: severity},
}

// RuleNames returns the pipeline stages in the order they run.
func RuleNames() []string {
	names := make([]string, len(pipeline))
	for i, r := range pipeline {
		names[i] = r.name
	}
	return names
}

func emptyInput(_ *Classifier, s *scan) bool {
	if strings.TrimSpace(s.text) != "" {
		return false
	}
	s.result = Assessment{Level: None, Category: patterns.Unknown, MatchedPatterns: []string{}}
	return true
}

func lowRiskOverride(c *Classifier, s *scan) bool {
	for _, p := range c.lib.Overrides() {
		if p.Match(s.text) {
			s.overrides = append(s.overrides, p.ID)
		}
	}
	if len(s.overrides) == 0 || !c.opts.OverrideFirst {
		return false
	}
	s.result = overridden(s.overrides)
	return true
}

func categoryScan(c *Classifier, s *scan) bool {
	for _, category := range patterns.CategoryOrder {
		for _, p := range c.lib.CategoryPatterns(category) {
			if p.Match(s.text) {
				s.matches = append(s.matches, p)
			}
		}
	}
	return false
}

func severity(_ *Classifier, s *scan) bool {
	if len(s.matches) == 0 {
		if len(s.overrides) > 0 {
			s.result = overridden(s.overrides)
			return true
		}
		s.result = Assessment{Level: None, Category: patterns.Unknown, MatchedPatterns: []string{}}
		return true
	}

	ids := make([]string, len(s.matches))
	for i, m := range s.matches {
		ids[i] = m.ID
	}

	// matches are in priority order, so the first match of the highest
	// severity fixes the category
	level, category := None, patterns.Unknown
	for _, m := range s.matches {
		l := categorySeverity(m.Category)
		if rank(l) > rank(level) {
			level, category = l, m.Category
		}
	}
	s.result = Assessment{Level: level, Category: category, MatchedPatterns: ids}
	return true
}

func overridden(ids []string) Assessment {
	return Assessment{Level: Low, Category: patterns.Unknown, MatchedPatterns: append([]string(nil), ids...)}
}

func categorySeverity(c patterns.RiskCategory) Level {
	switch c {
	case patterns.Suicide, patterns.SelfHarm:
		return High
	case patterns.Violence, patterns.Abuse, patterns.Substance, patterns.EatingDisorder:
		return Medium
	default:
		return None
	}
}

func rank(l Level) int {
	switch l {
	case Low:
		return 1
	case Medium:
		return 2
	case High:
		return 3
	default:
		return 0
	}
}
