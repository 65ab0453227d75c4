// Package responder chooses the reply for a turn: a crisis script when the
// utterance carries risk, otherwise a template or generated reply with any
// pattern nudges appended.
package responder

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/lewisedginton/wellbeing_companion/internal/crisis"
	"github.com/lewisedginton/wellbeing_companion/internal/emotion"
	"github.com/lewisedginton/wellbeing_companion/internal/models"
	"github.com/lewisedginton/wellbeing_companion/internal/risk"
	"github.com/lewisedginton/wellbeing_companion/pkg/logger"
)

const (
	// DefaultMaxLength caps template and generated text.
	DefaultMaxLength = 300
	// DefaultMinTemplateLength is the shortest template reply used without
	// asking the generator.
	DefaultMinTemplateLength = 50
	// DefaultLocale selects the helpline table.
	DefaultLocale = "IN"

	ellipsis = "..."
)

// Source says where a reply came from.
type Source string

const (
	SourceCrisis    Source = "crisis"
	SourceTemplate  Source = "template"
	SourceGenerated Source = "generated"
	SourceFallback  Source = "fallback"
)

// Nudge kinds, in the order they are appended.
const (
	NudgePattern  = "pattern"
	NudgeRepeated = "repeated"
)

// Options configure a Selector. Zero values take defaults.
type Options struct {
	Locale            string
	MaxLength         int
	MinTemplateLength int
	// Generator is optional; without one the template or fallback line is used.
	Generator models.Generator
	Templates *Templates
	Helplines *Helplines
	// Rand picks template variants. Seed it for reproducible replies.
	Rand   *rand.Rand
	Logger logger.Logger
}

// Input is everything known about a turn when its reply is chosen.
type Input struct {
	Text    string
	Risk    risk.Assessment
	Emotion emotion.Assessment
	// Context is the recent conversation, passed to the generator.
	Context string
	Crisis  crisis.State
	// Repeated is set when one concerning emotion dominates recent turns.
	Repeated *crisis.Nudge
}

// Reply is the chosen reply.
type Reply struct {
	Text             string   `json:"text"`
	Source           Source   `json:"source"`
	CulturalContexts []string `json:"cultural_contexts,omitempty"`
	Nudges           []string `json:"nudges,omitempty"`
	GroundingOffer   string   `json:"grounding_offer,omitempty"`
}

// Selector picks replies. It is safe for concurrent use.
type Selector struct {
	locale            string
	maxLength         int
	minTemplateLength int
	generator         models.Generator
	templates         *Templates
	helplines         *Helplines
	log               logger.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// New builds a selector, loading the embedded tables when none are given.
func New(opts Options) (*Selector, error) {
	if opts.Templates == nil {
		t, err := DefaultTemplates()
		if err != nil {
			return nil, err
		}
		opts.Templates = t
	}
	if opts.Helplines == nil {
		h, err := DefaultHelplines()
		if err != nil {
			return nil, err
		}
		opts.Helplines = h
	}
	if opts.Locale == "" {
		opts.Locale = DefaultLocale
	}
	if opts.MaxLength <= 0 {
		opts.MaxLength = DefaultMaxLength
	}
	if opts.MinTemplateLength <= 0 {
		opts.MinTemplateLength = DefaultMinTemplateLength
	}
	if opts.Rand == nil {
		seed := uint64(time.Now().UnixNano()) //nolint:gosec // seed only
		opts.Rand = rand.New(rand.NewPCG(seed, seed>>1))
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNopLogger()
	}

	return &Selector{
		locale:            opts.Locale,
		maxLength:         opts.MaxLength,
		minTemplateLength: opts.MinTemplateLength,
		generator:         opts.Generator,
		templates:         opts.Templates,
		helplines:         opts.Helplines,
		log:               opts.Logger,
		rng:               opts.Rand,
	}, nil
}

// Select returns the reply for a turn. Crisis-level risk short-circuits to
// the helpline script with no emotional reply and no nudges.
func (s *Selector) Select(ctx context.Context, in Input) Reply {
	if in.Risk.Level.IsCrisis() {
		reply := Reply{
			Text:   s.helplines.Script(s.locale, in.Risk.Category),
			Source: SourceCrisis,
		}
		if in.Risk.Level == risk.High {
			reply.GroundingOffer = s.templates.GroundingOffer
		}
		return reply
	}

	contexts := s.templates.DetectCulturalContexts(in.Text)
	reply := s.emotionReply(ctx, in, contexts)
	reply.CulturalContexts = contexts

	if nudge := crisis.PatternNudge(in.Crisis); nudge != "" {
		reply.Text += nudge
		reply.Nudges = append(reply.Nudges, NudgePattern)
	}
	if in.Repeated != nil {
		reply.Text += in.Repeated.Text
		reply.Nudges = append(reply.Nudges, NudgeRepeated)
	}
	return reply
}

func (s *Selector) emotionReply(ctx context.Context, in Input, contexts []string) Reply {
	primary := in.Emotion.Primary
	if primary == "" {
		primary = emotion.Neutral
	}

	var template string
	if len(contexts) > 0 || primary != emotion.Neutral {
		template = s.Template(primary, in.Emotion.Intensity, contexts)
		if utf8.RuneCountInString(template) > s.minTemplateLength {
			return Reply{Text: template, Source: SourceTemplate}
		}
	}

	if s.generator != nil {
		text, err := s.generator.Generate(ctx, models.Request{
			Utterance:        in.Text,
			Context:          in.Context,
			Emotion:          in.Emotion,
			CulturalContexts: contexts,
		})
		switch {
		case err == nil:
			return Reply{Text: Truncate(text, s.maxLength), Source: SourceGenerated}
		case errors.Is(err, models.ErrEmptyReply):
			s.log.Info("Generator returned an empty reply",
				logger.StringField("generator", s.generator.Name()))
		default:
			s.log.Error("Reply generation failed, using templates",
				logger.StringField("generator", s.generator.Name()),
				logger.ErrorField(err))
		}
	}

	if template == "" {
		template = s.Template(primary, in.Emotion.Intensity, contexts)
	}
	if template != "" {
		return Reply{Text: template, Source: SourceTemplate}
	}
	return Reply{Text: s.templates.Fallback, Source: SourceFallback}
}

// Template assembles a template reply: an acknowledgement, a line for the
// first cultural context, the emotion's follow-up, and a coping strategy for
// emotions that have one at medium or high intensity.
func (s *Selector) Template(primary string, intensity emotion.Intensity, contexts []string) string {
	t := s.templates
	high := intensity == emotion.High

	var parts []string
	if line := s.pick(t.group(primary, "acknowledgments", high)); line != "" {
		parts = append(parts, line)
	}
	if len(contexts) > 0 {
		if c, ok := t.context(contexts[0]); ok {
			parts = append(parts, s.pick(c.Lines))
		}
	}
	if group, ok := t.FollowUp[primary]; ok {
		if line := s.pick(t.group(primary, group, high)); line != "" {
			parts = append(parts, line)
		}
	}
	if group, ok := t.CopingByEmotion[primary]; ok && intensity.AtLeastMedium() {
		if line := s.pick(t.Coping[group]); line != "" {
			parts = append(parts, "Try this: "+line)
		}
	}

	return Truncate(strings.Join(parts, " "), s.maxLength)
}

// GroundingExercise returns a random grounding technique.
func (s *Selector) GroundingExercise() string {
	return s.pick(s.templates.Coping["grounding"])
}

// CopingStrategy returns a random strategy from a coping group, or an empty
// string for unknown groups.
func (s *Selector) CopingStrategy(group string) string {
	return s.pick(s.templates.Coping[group])
}

// DetectCulturalContexts returns the cultural contexts mentioned in text.
func (s *Selector) DetectCulturalContexts(text string) []string {
	return s.templates.DetectCulturalContexts(text)
}

func (s *Selector) pick(options []string) string {
	if len(options) == 0 {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return options[s.rng.IntN(len(options))]
}

// Truncate caps text at maxLen runes including the ellipsis, cutting at the
// last word boundary when there is one.
func Truncate(text string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(text) <= maxLen {
		return text
	}
	limit := maxLen - utf8.RuneCountInString(ellipsis)
	if limit <= 0 {
		return string([]rune(ellipsis)[:maxLen])
	}

	runes := []rune(text)
	cut := string(runes[:limit])
	if !unicode.IsSpace(runes[limit]) {
		if i := strings.LastIndexAny(cut, " \n\t"); i > 0 {
			cut = cut[:i]
		}
	}
	return strings.TrimRight(cut, " ,;:-") + ellipsis
}
