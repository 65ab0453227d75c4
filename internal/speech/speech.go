// Package speech defines the listening and speaking collaborators of the
// conversation loop, with console and log implementations.
package speech

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/lewisedginton/wellbeing_companion/pkg/logger"
)

// ErrClosed is returned by a listener that has no more input.
var ErrClosed = errors.New("listener closed")

// Listener supplies utterances. An empty utterance means silence; callers
// retry rather than treat it as an error.
type Listener interface {
	NextUtterance(ctx context.Context) (string, error)
}

// Speaker voices a reply, using the emotion tag to choose its tone.
type Speaker interface {
	Speak(ctx context.Context, text, emotion string) error
}

// SpeakerFunc adapts a function to a Speaker.
type SpeakerFunc func(ctx context.Context, text, emotion string) error

// Speak calls f.
func (f SpeakerFunc) Speak(ctx context.Context, text, emotion string) error {
	return f(ctx, text, emotion)
}

// ConsoleListener reads one utterance per line.
type ConsoleListener struct {
	prompt string
	out    io.Writer

	lines chan string
	done  chan struct{}

	mu  sync.Mutex
	err error
}

// NewConsoleListener starts reading lines from r. When out is non-nil the
// prompt is written to it before each read.
func NewConsoleListener(r io.Reader, out io.Writer, prompt string) *ConsoleListener {
	l := &ConsoleListener{
		prompt: prompt,
		out:    out,
		lines:  make(chan string),
		done:   make(chan struct{}),
	}
	go l.read(r)
	return l
}

func (l *ConsoleListener) read(r io.Reader) {
	defer close(l.lines)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		select {
		case l.lines <- scanner.Text():
		case <-l.done:
			return
		}
	}

	l.mu.Lock()
	l.err = scanner.Err()
	l.mu.Unlock()
}

// NextUtterance blocks until a line is read or ctx is done. It returns
// ErrClosed once the input is exhausted.
func (l *ConsoleListener) NextUtterance(ctx context.Context) (string, error) {
	if l.out != nil && l.prompt != "" {
		_, _ = fmt.Fprint(l.out, l.prompt)
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-l.lines:
		if !ok {
			l.mu.Lock()
			defer l.mu.Unlock()
			if l.err != nil {
				return "", fmt.Errorf("read input: %w", l.err)
			}
			return "", ErrClosed
		}
		return strings.TrimSpace(line), nil
	}
}

// Close stops the reader goroutine once it next produces a line.
func (l *ConsoleListener) Close() {
	select {
	case <-l.done:
	default:
		close(l.done)
	}
}

// LogSpeaker records replies in the log instead of voicing them.
type LogSpeaker struct {
	log logger.Logger
}

// NewLogSpeaker returns a speaker writing to log.
func NewLogSpeaker(log logger.Logger) *LogSpeaker {
	return &LogSpeaker{log: log}
}

// Speak logs the reply and its tone.
func (s *LogSpeaker) Speak(_ context.Context, text, emotion string) error {
	s.log.Debug("Speaking reply",
		logger.EmotionField(emotion),
		logger.IntField("characters", len([]rune(text))))
	return nil
}
