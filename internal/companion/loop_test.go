package companion

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lewisedginton/wellbeing_companion/internal/models"
	"github.com/lewisedginton/wellbeing_companion/internal/responder"
	"github.com/lewisedginton/wellbeing_companion/internal/risk"
	"github.com/lewisedginton/wellbeing_companion/internal/speech"
	"github.com/lewisedginton/wellbeing_companion/pkg/logger"
)

// scriptedListener returns its utterances in order, then err.
type scriptedListener struct {
	utterances []string
	err        error
}

func (l *scriptedListener) NextUtterance(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(l.utterances) == 0 {
		return "", l.err
	}
	next := l.utterances[0]
	l.utterances = l.utterances[1:]
	return next, nil
}

type recordingDisplay struct {
	mu       sync.Mutex
	messages []Message
}

func (d *recordingDisplay) Show(m Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, m)
}

func (d *recordingDisplay) texts(speaker string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []string
	for _, m := range d.messages {
		if m.Speaker == speaker {
			out = append(out, m.Text)
		}
	}
	return out
}

type spoken struct {
	text string
	tone string
}

type recordingSpeaker struct {
	mu    sync.Mutex
	calls []spoken
}

func (s *recordingSpeaker) Speak(_ context.Context, text, tone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, spoken{text: text, tone: tone})
	return nil
}

func (s *recordingSpeaker) tones() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string)
	for _, c := range s.calls {
		out[c.text] = c.tone
	}
	return out
}

type panickingGenerator struct{}

func (panickingGenerator) Name() string { return "panicking" }

func (panickingGenerator) Generate(context.Context, models.Request) (string, error) {
	panic("model exploded")
}

func newTestLoop(t *testing.T, e *Engine, listener speech.Listener) (*Loop, *recordingDisplay, *recordingSpeaker) {
	t.Helper()
	display := &recordingDisplay{}
	speaker := &recordingSpeaker{}
	l, err := NewLoop(LoopConfig{
		Engine:   e,
		Listener: listener,
		Display:  display,
		Speaker:  speaker,
		Logger:   logger.NewNopLogger(),
	})
	require.NoError(t, err)
	return l, display, speaker
}

func TestNewLoop_RequiresCollaborators(t *testing.T) {
	_, err := NewLoop(LoopConfig{})
	assert.Error(t, err)
}

func TestLoop_Conversation(t *testing.T) {
	e := newTestEngine(t, nil)
	listener := &scriptedListener{
		utterances: []string{"", sadText, "Analytics", suicideText, "EXIT", "never read"},
		err:        speech.ErrClosed,
	}
	l, display, speaker := newTestLoop(t, e.Engine, listener)

	require.NoError(t, l.Run(context.Background()))

	assert.Equal(t, []string{sadText, suicideText}, display.texts(SpeakerUser))
	assert.Equal(t, []string{"never read"}, listener.utterances)

	replies := display.texts(SpeakerAssistant)
	require.Len(t, replies, 2)
	assert.Contains(t, replies[1], "AASRA")

	system := display.texts(SpeakerSystem)
	require.Len(t, system, 4)
	assert.Equal(t, responder.Welcome, system[0])
	assert.Contains(t, system[1], `"session_summary"`)
	assert.Contains(t, system[2], "grounding exercise")
	assert.Equal(t, "Goodbye! We talked for 2 messages today. Your primary emotion was sad. Take care of yourself! 💙", system[3])

	tones := speaker.tones()
	assert.Equal(t, "neutral", tones[responder.Welcome])
	assert.Equal(t, "sad", tones[replies[0]])
	assert.Equal(t, CrisisTone, tones[replies[1]])
	assert.Equal(t, "neutral", tones[responder.SpokenGoodbye])
}

func TestLoop_ExitInsideAnUtteranceIsScreened(t *testing.T) {
	const mixed = "I want to exit this world, I want to kill myself"
	e := newTestEngine(t, nil)
	listener := &scriptedListener{utterances: []string{mixed, "exit", "never read"}, err: speech.ErrClosed}
	l, display, _ := newTestLoop(t, e.Engine, listener)

	require.NoError(t, l.Run(context.Background()))

	assert.Equal(t, []string{mixed}, display.texts(SpeakerUser))
	replies := display.texts(SpeakerAssistant)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "AASRA")
	assert.Equal(t, []string{"never read"}, listener.utterances)

	recs := e.store.Recent(0)
	require.Len(t, recs, 1)
	assert.Equal(t, risk.High, recs[0].RiskLevel)
}

func TestLoop_ExitWordInSentenceIsATurn(t *testing.T) {
	e := newTestEngine(t, nil)
	for _, text := range []string{"The exit interview was hard", "Exiting this job feels scary"} {
		listener := &scriptedListener{utterances: []string{text}, err: speech.ErrClosed}
		l, display, _ := newTestLoop(t, e.Engine, listener)
		require.NoError(t, l.Run(context.Background()))
		assert.Equal(t, []string{text}, display.texts(SpeakerUser))
	}
}

func TestLoop_EndOfInputSaysGoodbye(t *testing.T) {
	e := newTestEngine(t, nil)
	l, display, _ := newTestLoop(t, e.Engine, &scriptedListener{err: speech.ErrClosed})

	require.NoError(t, l.Run(context.Background()))
	system := display.texts(SpeakerSystem)
	require.Len(t, system, 2)
	assert.Contains(t, system[1], "We talked for 0 messages today")
}

func TestLoop_ListenerFailureStops(t *testing.T) {
	e := newTestEngine(t, nil)
	l, _, _ := newTestLoop(t, e.Engine, &scriptedListener{err: errors.New("microphone unplugged")})

	err := l.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "microphone unplugged")
}

func TestLoop_CancelledContext(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l, display, _ := newTestLoop(t, e.Engine, &scriptedListener{utterances: []string{sadText}})
	assert.NoError(t, l.Run(ctx))
	assert.Empty(t, display.texts(SpeakerUser))
}

func TestLoop_RecoversFromPanickingTurn(t *testing.T) {
	e := newTestEngineWithGenerator(t, nil, panickingGenerator{})
	// the anxious template is long enough to skip the generator
	listener := &scriptedListener{utterances: []string{"hmm", "bahut tension mein hun"}, err: speech.ErrClosed}
	l, display, _ := newTestLoop(t, e.Engine, listener)

	require.NoError(t, l.Run(context.Background()))

	assert.Equal(t, []string{"hmm", "bahut tension mein hun"}, display.texts(SpeakerUser))
	assert.Contains(t, display.texts(SpeakerSystem), responder.Apology)
	assert.Len(t, display.texts(SpeakerAssistant), 1, "the loop keeps listening after a panic")
}

func TestLoop_WithoutSpeaker(t *testing.T) {
	e := newTestEngine(t, nil)
	display := &recordingDisplay{}
	l, err := NewLoop(LoopConfig{
		Engine:   e.Engine,
		Listener: &scriptedListener{utterances: []string{sadText}, err: speech.ErrClosed},
		Display:  display,
		Logger:   logger.NewNopLogger(),
	})
	require.NoError(t, err)
	require.NoError(t, l.Run(context.Background()))
	assert.Len(t, display.texts(SpeakerAssistant), 1)
}

func TestWriterDisplay(t *testing.T) {
	var buf bytes.Buffer
	d := NewWriterDisplay(&buf)

	d.Show(Message{Speaker: SpeakerUser, Text: "hello"})
	d.Show(Message{Speaker: SpeakerAssistant, Text: "hi there", Emotion: "sad"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n\n")
	assert.Equal(t, []string{"User: hello", "😢 Assistant: hi there"}, lines)
}
