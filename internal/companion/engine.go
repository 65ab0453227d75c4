// Package companion runs conversation turns through the safety pipeline:
// risk screening, emotion analysis, reply selection, pattern nudges and
// memory.
package companion

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/lewisedginton/wellbeing_companion/internal/conversation_memory"
	"github.com/lewisedginton/wellbeing_companion/internal/crisis"
	"github.com/lewisedginton/wellbeing_companion/internal/emotion"
	"github.com/lewisedginton/wellbeing_companion/internal/responder"
	"github.com/lewisedginton/wellbeing_companion/internal/risk"
	"github.com/lewisedginton/wellbeing_companion/pkg/logger"
	"github.com/lewisedginton/wellbeing_companion/pkg/metrics"
)

const (
	// EmotionSuicidal is recorded for turns screened as high risk.
	EmotionSuicidal = "suicidal"
	// EmotionCrisis is recorded for turns screened as medium risk.
	EmotionCrisis = "crisis"

	// CrisisTone is the speaking tone of crisis replies.
	CrisisTone = "sad"

	recentEmotionCount = 5
)

// ErrEmptyUtterance is returned for blank input.
var ErrEmptyUtterance = errors.New("utterance is empty")

// negativeTrendEmotions raise an alert when they dominate recent turns.
var negativeTrendEmotions = []string{"sad", "angry", "anxious"}

// Config holds the collaborators of an Engine.
type Config struct {
	Risk     *risk.Classifier
	Emotions *emotion.Tracker
	Crisis   *crisis.Detector
	Repeated *crisis.RepeatedDetector
	Store    *conversation_memory.Store
	Selector *responder.Selector
	// Metrics is optional.
	Metrics *metrics.Metrics
	Logger  logger.Logger
}

// Engine processes conversation turns. It is safe for concurrent use; turns
// are serialised only by the memory store.
type Engine struct {
	risk     *risk.Classifier
	emotions *emotion.Tracker
	crisis   *crisis.Detector
	repeated *crisis.RepeatedDetector
	store    *conversation_memory.Store
	selector *responder.Selector
	metrics  *metrics.Metrics
	log      logger.Logger
}

// New creates an engine from cfg.
func New(cfg Config) (*Engine, error) {
	switch {
	case cfg.Risk == nil:
		return nil, errors.New("risk classifier is required")
	case cfg.Emotions == nil:
		return nil, errors.New("emotion tracker is required")
	case cfg.Crisis == nil || cfg.Repeated == nil:
		return nil, errors.New("crisis detectors are required")
	case cfg.Store == nil:
		return nil, errors.New("memory store is required")
	case cfg.Selector == nil:
		return nil, errors.New("response selector is required")
	case cfg.Logger == nil:
		return nil, errors.New("logger is required")
	}

	return &Engine{
		risk:     cfg.Risk,
		emotions: cfg.Emotions,
		crisis:   cfg.Crisis,
		repeated: cfg.Repeated,
		store:    cfg.Store,
		selector: cfg.Selector,
		metrics:  cfg.Metrics,
		log:      cfg.Logger,
	}, nil
}

// Turn is the outcome of one utterance.
type Turn struct {
	ID               string              `json:"id,omitempty"`
	Reply            string              `json:"reply"`
	Source           responder.Source    `json:"source"`
	Emotion          string              `json:"emotion"`
	Emoji            string              `json:"emoji"`
	Risk             risk.Assessment     `json:"risk"`
	EmotionDetail    *emotion.Assessment `json:"emotion_detail,omitempty"`
	Crisis           crisis.State        `json:"crisis_pattern"`
	Nudges           []string            `json:"nudges,omitempty"`
	CulturalContexts []string            `json:"cultural_contexts,omitempty"`
	GroundingOffer   string              `json:"grounding_offer,omitempty"`
	// Stored is false when the turn could not be persisted.
	Stored bool `json:"stored"`
}

// Tone is the speaking tone for the reply.
func (t Turn) Tone() string {
	if t.Risk.Level.IsCrisis() {
		return CrisisTone
	}
	return t.Emotion
}

// HandleTurn screens text for risk, picks the reply and records the turn.
// Only blank input is an error; a memory failure is logged and leaves
// Stored false.
func (e *Engine) HandleTurn(ctx context.Context, text string) (Turn, error) {
	start := time.Now()
	text = strings.TrimSpace(text)
	if text == "" {
		return Turn{}, ErrEmptyUtterance
	}

	assessed := e.risk.Assess(text)
	in := responder.Input{
		Text:    text,
		Risk:    assessed,
		Context: e.store.Context(true),
	}

	var (
		tag    string
		detail *emotion.Assessment
	)
	if assessed.Level.IsCrisis() {
		tag = crisisEmotion(assessed.Level)
	} else {
		a := e.emotions.Analyze(text)
		in.Emotion = a
		detail = &a
		tag = a.Primary
	}

	history := append(e.store.RecentEmotions(0), tag)
	in.Crisis = e.crisis.Evaluate(history)
	if nudge, ok := e.repeated.Check(history); ok {
		in.Repeated = &nudge
	}

	reply := e.selector.Select(ctx, in)
	turn := Turn{
		Reply:            reply.Text,
		Source:           reply.Source,
		Emotion:          tag,
		Emoji:            responder.EmotionEmoji(tag),
		Risk:             assessed,
		EmotionDetail:    detail,
		Crisis:           in.Crisis,
		Nudges:           reply.Nudges,
		CulturalContexts: reply.CulturalContexts,
		GroundingOffer:   reply.GroundingOffer,
	}

	rec, err := e.store.Append(ctx, conversation_memory.Turn{
		UserText:      text,
		BotReply:      reply.Text,
		Emotion:       tag,
		Risk:          assessed,
		EmotionDetail: detail,
	})
	turn.ID = rec.ID
	turn.Stored = err == nil
	if err != nil {
		e.metrics.IncrementStorageErrors()
		e.log.Error("Failed to store conversation turn",
			logger.TurnIDField(rec.ID),
			logger.ErrorField(err))
	}

	e.metrics.ObserveTurn(string(assessed.Level), tag, in.Crisis.Score, time.Since(start))
	e.logTurn(turn, time.Since(start))
	return turn, nil
}

func (e *Engine) logTurn(t Turn, took time.Duration) {
	fields := []logger.LogField{
		logger.TurnIDField(t.ID),
		logger.RiskLevelField(t.Risk.Level.String()),
		logger.RiskCategoryField(string(t.Risk.Category)),
		logger.EmotionField(t.Emotion),
		logger.StringField("source", string(t.Source)),
		logger.IntField("crisis_score", t.Crisis.Score),
		logger.DurationField("took", took),
	}
	if t.EmotionDetail != nil {
		fields = append(fields, logger.IntensityField(string(t.EmotionDetail.Intensity)))
	}

	if t.Risk.Level.IsCrisis() {
		e.log.Warn("Crisis turn handled", append(fields,
			logger.StringField("matched_patterns", strings.Join(t.Risk.MatchedPatterns, ",")))...)
		return
	}
	e.log.Info("Turn handled", fields...)
}

func crisisEmotion(l risk.Level) string {
	if l == risk.High {
		return EmotionSuicidal
	}
	return EmotionCrisis
}

// Report is the analytics view of the conversation so far.
type Report struct {
	Session        conversation_memory.Summary   `json:"session_summary"`
	RecentEmotions []string                      `json:"recent_emotions"`
	Crisis         crisis.State                  `json:"crisis_pattern"`
	Insights       conversation_memory.Analytics `json:"insights"`
	Trends         emotion.Trend                 `json:"emotion_trends"`
	RiskTrends     risk.TrendSummary             `json:"risk_trends"`
}

// Analytics summarises the stored conversation and this process's emotion
// trends.
func (e *Engine) Analytics() Report {
	return Report{
		Session:        e.store.SessionSummary(),
		RecentEmotions: e.store.RecentEmotions(recentEmotionCount),
		Crisis:         e.crisis.Evaluate(e.store.RecentEmotions(0)),
		Insights:       e.store.Analytics(),
		Trends:         e.emotions.Trends(emotion.DefaultTrendWindow),
		RiskTrends:     risk.Trends(e.store.RiskLevels()),
	}
}

// NegativeTrend reports a strong trend towards a negative emotion.
func (e *Engine) NegativeTrend() (emotion.Trend, bool) {
	t := e.emotions.Trends(emotion.DefaultTrendWindow)
	return t, t.Trend == emotion.TrendStrong && slices.Contains(negativeTrendEmotions, t.Dominant)
}

// Summary describes the current session.
func (e *Engine) Summary() conversation_memory.Summary {
	return e.store.SessionSummary()
}

// GroundingExercise returns a grounding exercise.
func (e *Engine) GroundingExercise() string {
	return e.selector.GroundingExercise()
}

// Ping checks the memory backend.
func (e *Engine) Ping(ctx context.Context) error {
	return e.store.Ping(ctx)
}
