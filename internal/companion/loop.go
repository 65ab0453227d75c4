package companion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/lewisedginton/wellbeing_companion/internal/emotion"
	"github.com/lewisedginton/wellbeing_companion/internal/responder"
	"github.com/lewisedginton/wellbeing_companion/internal/speech"
	"github.com/lewisedginton/wellbeing_companion/pkg/logger"
)

// Speakers shown by a Display.
const (
	SpeakerUser      = "User"
	SpeakerAssistant = "Assistant"
	SpeakerSystem    = "System"

	// AnalyticsCommand prints the analytics report instead of taking a turn.
	AnalyticsCommand = "analytics"
	// ExitCommand ends the conversation. Only the whole utterance counts, so
	// "I want to exit this world" is screened as a turn.
	ExitCommand = "exit"
)

// Message is one line of the conversation shown to the user.
type Message struct {
	Speaker string
	Text    string
	// Emotion is the emotion tag of assistant replies.
	Emotion string
}

// Display shows conversation messages.
type Display interface {
	Show(m Message)
}

// WriterDisplay writes messages as text.
type WriterDisplay struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterDisplay returns a display writing to w.
func NewWriterDisplay(w io.Writer) *WriterDisplay {
	return &WriterDisplay{w: w}
}

// Show writes one message followed by a blank line.
func (d *WriterDisplay) Show(m Message) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if m.Emotion != "" {
		_, _ = fmt.Fprintf(d.w, "%s %s: %s\n\n", responder.EmotionEmoji(m.Emotion), m.Speaker, m.Text)
		return
	}
	_, _ = fmt.Fprintf(d.w, "%s: %s\n\n", m.Speaker, m.Text)
}

// LoopConfig holds the collaborators of a Loop.
type LoopConfig struct {
	Engine   *Engine
	Listener speech.Listener
	Display  Display
	// Speaker is optional; replies are only displayed without one.
	Speaker speech.Speaker
	Logger  logger.Logger
}

// Loop is the interactive conversation: listen, take a turn, show and speak
// the reply.
type Loop struct {
	engine   *Engine
	listener speech.Listener
	display  Display
	speaker  *speech.AsyncSpeaker
	log      logger.Logger
}

// NewLoop creates a conversation loop.
func NewLoop(cfg LoopConfig) (*Loop, error) {
	switch {
	case cfg.Engine == nil:
		return nil, errors.New("engine is required")
	case cfg.Listener == nil:
		return nil, errors.New("listener is required")
	case cfg.Display == nil:
		return nil, errors.New("display is required")
	case cfg.Logger == nil:
		return nil, errors.New("logger is required")
	}

	l := &Loop{engine: cfg.Engine, listener: cfg.Listener, display: cfg.Display, log: cfg.Logger}
	if cfg.Speaker != nil {
		l.speaker = speech.NewAsyncSpeaker(cfg.Speaker, cfg.Logger)
	}
	return l, nil
}

// Run greets the user and handles utterances until the exit command, the end
// of input or ctx is cancelled. A failing turn is answered with an apology
// and the loop keeps listening; only a broken listener stops it with an
// error.
func (l *Loop) Run(ctx context.Context) error {
	defer l.waitSpeech()

	l.display.Show(Message{Speaker: SpeakerSystem, Text: responder.Welcome})
	l.speak(ctx, responder.Welcome, emotion.Neutral)

	for {
		text, err := l.listener.NextUtterance(ctx)
		switch {
		case errors.Is(err, speech.ErrClosed):
			l.goodbye(ctx)
			return nil
		case ctx.Err() != nil:
			return nil
		case err != nil:
			l.log.Error("Listener failed", logger.ErrorField(err))
			return fmt.Errorf("failed to listen: %w", err)
		}

		text = strings.TrimSpace(text)
		switch {
		case text == "":
			continue
		case strings.EqualFold(text, ExitCommand):
			l.goodbye(ctx)
			return nil
		case strings.EqualFold(text, AnalyticsCommand):
			l.showAnalytics()
			continue
		}

		l.turn(ctx, text)
	}
}

func (l *Loop) turn(ctx context.Context, text string) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("Turn panic recovered", logger.StringField("panic", fmt.Sprint(r)))
			l.apologise()
		}
	}()

	l.display.Show(Message{Speaker: SpeakerUser, Text: text})

	t, err := l.engine.HandleTurn(ctx, text)
	if err != nil {
		l.log.Error("Turn failed", logger.ErrorField(err))
		l.apologise()
		return
	}

	l.display.Show(Message{Speaker: SpeakerAssistant, Text: t.Reply, Emotion: t.Emotion})
	l.speak(ctx, t.Reply, t.Tone())
	if t.GroundingOffer != "" {
		l.display.Show(Message{Speaker: SpeakerSystem, Text: t.GroundingOffer})
	}

	if trend, ok := l.engine.NegativeTrend(); ok {
		l.log.Warn("Strong negative emotion trend detected",
			logger.EmotionField(trend.Dominant),
			logger.FloatField("strength", trend.Strength))
	}
}

func (l *Loop) showAnalytics() {
	data, err := json.MarshalIndent(l.engine.Analytics(), "", "  ")
	if err != nil {
		l.log.Error("Failed to encode analytics", logger.ErrorField(err))
		l.apologise()
		return
	}
	l.display.Show(Message{Speaker: SpeakerSystem, Text: string(data)})
}

func (l *Loop) goodbye(ctx context.Context) {
	l.display.Show(Message{Speaker: SpeakerSystem, Text: responder.Goodbye(l.engine.Summary())})
	l.speak(ctx, responder.SpokenGoodbye, emotion.Neutral)
}

func (l *Loop) apologise() {
	l.display.Show(Message{Speaker: SpeakerSystem, Text: responder.Apology})
}

func (l *Loop) speak(ctx context.Context, text, tone string) {
	if l.speaker != nil {
		l.speaker.Speak(ctx, text, tone)
	}
}

func (l *Loop) waitSpeech() {
	if l.speaker != nil {
		l.speaker.Wait()
	}
}
