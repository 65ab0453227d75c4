package patterns

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Register is the written style a pattern or keyword belongs to.
type Register string

const (
	// Standard is plain English.
	Standard Register = "standard"
	// Transliterated is Hindi written in Latin script.
	Transliterated Register = "transliterated"
	// CodeMixed is informal Hindi-English mixing (Hinglish).
	CodeMixed Register = "code_mixed"
)

var knownRegisters = []Register{Standard, Transliterated, CodeMixed}

func parseRegister(s string) (Register, error) {
	for _, r := range knownRegisters {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown register %q", s)
}

// Phrase is a keyword or multi-word expression matched as a whole word,
// case-insensitively, with any run of whitespace between its words.
type Phrase struct {
	Text     string
	Register Register
	expr     *regexp.Regexp
}

func newPhrase(text string, register Register) (Phrase, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return Phrase{}, fmt.Errorf("empty phrase")
	}
	expr, err := regexp.Compile(phraseExpr(text))
	if err != nil {
		return Phrase{}, fmt.Errorf("phrase %q: %w", text, err)
	}
	return Phrase{Text: text, Register: register, expr: expr}, nil
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// phraseExpr builds a case-insensitive expression for text. Word boundaries are
// only added on edges that are word characters, \b would never match otherwise.
func phraseExpr(text string) string {
	words := strings.Fields(text)
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}

	var b strings.Builder
	b.WriteString("(?i)")
	if first, _ := utf8.DecodeRuneInString(text); isWordRune(first) {
		b.WriteString(`\b`)
	}
	b.WriteString(strings.Join(quoted, `\s+`))
	if last, _ := utf8.DecodeLastRuneInString(text); isWordRune(last) {
		b.WriteString(`\b`)
	}
	return b.String()
}

// Match reports whether the phrase occurs in text.
func (p Phrase) Match(text string) bool {
	return p.expr != nil && p.expr.MatchString(text)
}

// Pattern is a compiled, case-insensitive regular expression with a stable id.
type Pattern struct {
	ID       string
	Register Register
	Source   string
	expr     *regexp.Regexp
}

func newPattern(id, source string, register Register) (Pattern, error) {
	if id == "" {
		return Pattern{}, fmt.Errorf("pattern %q has no id", source)
	}
	expr, err := regexp.Compile("(?i)" + source)
	if err != nil {
		return Pattern{}, fmt.Errorf("pattern %s: %w", id, err)
	}
	return Pattern{ID: id, Register: register, Source: source, expr: expr}, nil
}

// Match reports whether the pattern occurs in text.
func (p Pattern) Match(text string) bool {
	return p.expr != nil && p.expr.MatchString(text)
}
