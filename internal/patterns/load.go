package patterns

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var defaultTables embed.FS

var defaultTableFiles = []string{"data/risk.yaml", "data/emotions.yaml"}

type patternDoc struct {
	ID       string `yaml:"id"`
	Register string `yaml:"register"`
	Pattern  string `yaml:"pattern"`
}

type idiomDoc struct {
	Group   string   `yaml:"group"`
	Emotion string   `yaml:"emotion"`
	Boost   float64  `yaml:"boost"`
	Phrases []string `yaml:"phrases"`
}

type regionDoc struct {
	Region  string   `yaml:"region"`
	Markers []string `yaml:"markers"`
}

type qualifierDoc struct {
	High   []string `yaml:"high"`
	Medium []string `yaml:"medium"`
}

// document is one YAML table file. Every section is optional so tables can be
// split across files and extended by later files.
type document struct {
	Registers  map[string]float64             `yaml:"registers"`
	Overrides  []patternDoc                   `yaml:"overrides"`
	Categories map[string][]patternDoc        `yaml:"categories"`
	Vocabulary []string                       `yaml:"vocabulary"`
	Lexicon    map[string]map[string][]string `yaml:"lexicon"`
	Idioms     []idiomDoc                     `yaml:"idioms"`
	Qualifiers qualifierDoc                   `yaml:"qualifiers"`
	Regions    []regionDoc                    `yaml:"regions"`
}

type builder struct {
	lib  *Library
	ids  map[string]bool
	errs error
}

func newBuilder() *builder {
	return &builder{
		lib: &Library{
			weights: map[Register]float64{
				Standard:       1.0,
				Transliterated: 1.5,
				CodeMixed:      2.0,
			},
			categories: make(map[RiskCategory][]RiskPattern),
			lexicon:    make(map[string][]Phrase),
		},
		ids: make(map[string]bool),
	}
}

func (b *builder) fail(err error) {
	b.errs = multierror.Append(b.errs, err)
}

func (b *builder) pattern(doc patternDoc) (Pattern, bool) {
	register, err := parseRegister(doc.Register)
	if err != nil {
		b.fail(fmt.Errorf("pattern %s: %w", doc.ID, err))
		return Pattern{}, false
	}
	if b.ids[doc.ID] {
		b.fail(fmt.Errorf("duplicate pattern id %s", doc.ID))
		return Pattern{}, false
	}
	p, err := newPattern(doc.ID, doc.Pattern, register)
	if err != nil {
		b.fail(err)
		return Pattern{}, false
	}
	b.ids[doc.ID] = true
	return p, true
}

func (b *builder) phrases(texts []string, register Register) []Phrase {
	out := make([]Phrase, 0, len(texts))
	for _, text := range texts {
		p, err := newPhrase(text, register)
		if err != nil {
			b.fail(err)
			continue
		}
		out = append(out, p)
	}
	return out
}

func (b *builder) add(doc document) {
	lib := b.lib

	for name, weight := range doc.Registers {
		register, err := parseRegister(name)
		if err != nil {
			b.fail(err)
			continue
		}
		if weight <= 0 {
			b.fail(fmt.Errorf("register %s: weight must be positive, got %v", name, weight))
			continue
		}
		lib.weights[register] = weight
	}

	for _, o := range doc.Overrides {
		if p, ok := b.pattern(o); ok {
			lib.overrides = append(lib.overrides, p)
		}
	}

	for name, docs := range doc.Categories {
		category, ok := parseCategory(name)
		if !ok {
			b.fail(fmt.Errorf("unknown risk category %q", name))
			continue
		}
		for _, d := range docs {
			if p, ok := b.pattern(d); ok {
				lib.categories[category] = append(lib.categories[category], RiskPattern{Pattern: p, Category: category})
			}
		}
	}

	for _, tag := range doc.Vocabulary {
		if !slices.Contains(lib.vocabulary, tag) {
			lib.vocabulary = append(lib.vocabulary, tag)
		}
	}

	for tag, byRegister := range doc.Lexicon {
		for name := range byRegister {
			if _, err := parseRegister(name); err != nil {
				b.fail(fmt.Errorf("lexicon %s: %w", tag, err))
			}
		}
		// fixed register order keeps keyword order deterministic
		for _, register := range knownRegisters {
			lib.lexicon[tag] = append(lib.lexicon[tag], b.phrases(byRegister[string(register)], register)...)
		}
	}

	for _, d := range doc.Idioms {
		if d.Group == "" {
			b.fail(fmt.Errorf("idiom group without a name"))
			continue
		}
		for _, p := range b.phrases(d.Phrases, CodeMixed) {
			lib.idioms = append(lib.idioms, Idiom{Phrase: p, Group: d.Group, Emotion: d.Emotion, Boost: d.Boost})
		}
	}

	lib.high = append(lib.high, b.phrases(doc.Qualifiers.High, Standard)...)
	lib.medium = append(lib.medium, b.phrases(doc.Qualifiers.Medium, Standard)...)

	for _, d := range doc.Regions {
		idx := slices.IndexFunc(lib.regions, func(r Region) bool { return r.Name == d.Region })
		markers := b.phrases(d.Markers, CodeMixed)
		if idx >= 0 {
			lib.regions[idx].Markers = append(lib.regions[idx].Markers, markers...)
			continue
		}
		lib.regions = append(lib.regions, Region{Name: d.Region, Markers: markers})
	}
}

func (b *builder) build() (*Library, error) {
	for tag := range b.lib.lexicon {
		if !slices.Contains(b.lib.vocabulary, tag) {
			b.fail(fmt.Errorf("lexicon tag %q is not in the vocabulary", tag))
		}
	}
	for _, idiom := range b.lib.idioms {
		if idiom.Emotion != "" && !slices.Contains(b.lib.vocabulary, idiom.Emotion) {
			b.fail(fmt.Errorf("idiom group %s maps to unknown emotion %q", idiom.Group, idiom.Emotion))
		}
	}
	if b.errs != nil {
		return nil, b.errs
	}
	return b.lib, nil
}

// Load builds a library from YAML table documents, applied in order. Later
// documents extend earlier ones.
func Load(readers ...io.Reader) (*Library, error) {
	b := newBuilder()
	for i, r := range readers {
		var doc document
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to decode pattern table %d: %w", i, err)
		}
		b.add(doc)
	}
	return b.build()
}

func defaultReaders() ([]io.Reader, error) {
	readers := make([]io.Reader, 0, len(defaultTableFiles))
	for _, name := range defaultTableFiles {
		data, err := defaultTables.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read embedded table %s: %w", name, err)
		}
		readers = append(readers, bytes.NewReader(data))
	}
	return readers, nil
}

// Default builds the library from the embedded tables.
func Default() (*Library, error) {
	readers, err := defaultReaders()
	if err != nil {
		return nil, err
	}
	return Load(readers...)
}

// LoadFile builds the embedded tables extended by the YAML files at paths.
func LoadFile(paths ...string) (*Library, error) {
	readers, err := defaultReaders()
	if err != nil {
		return nil, err
	}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read pattern file %s: %w", path, err)
		}
		readers = append(readers, bytes.NewReader(data))
	}
	return Load(readers...)
}
