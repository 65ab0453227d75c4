package speech

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/lewisedginton/wellbeing_companion/pkg/logger"
)

// AsyncSpeaker speaks in the background. Failures and panics are logged and
// never reach the caller.
type AsyncSpeaker struct {
	speaker Speaker
	log     logger.Logger
	wg      sync.WaitGroup
}

// NewAsyncSpeaker wraps speaker.
func NewAsyncSpeaker(speaker Speaker, log logger.Logger) *AsyncSpeaker {
	return &AsyncSpeaker{speaker: speaker, log: log}
}

// Speak starts speaking and returns immediately. The speech outlives ctx
// cancellation of the turn that produced it.
func (a *AsyncSpeaker) Speak(ctx context.Context, text, emotion string) {
	ctx = context.WithoutCancel(ctx)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				a.log.Error("Speech panic recovered",
					logger.StringField("panic_error", fmt.Sprintf("%v", r)),
					logger.StringField("stack_trace", string(debug.Stack())))
			}
		}()

		if err := a.speaker.Speak(ctx, text, emotion); err != nil {
			a.log.Warn("Speech failed", logger.EmotionField(emotion), logger.ErrorField(err))
		}
	}()
}

// Wait blocks until every started speech has finished.
func (a *AsyncSpeaker) Wait() {
	a.wg.Wait()
}
