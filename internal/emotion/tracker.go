package emotion

import (
	"sync"
	"time"
)

const (
	// DefaultHistorySize is how many analyses a Tracker keeps.
	DefaultHistorySize = 50
	// DefaultTrendWindow is how many recent analyses Trends looks at.
	DefaultTrendWindow = 10

	TrendInsufficientData = "insufficient_data"
	TrendStable           = "stable"
	TrendStrong           = "strong"

	strongTrendShare = 0.4
)

// Entry is one analysed utterance in a Tracker's history.
type Entry struct {
	Text       string
	Assessment Assessment
	Timestamp  time.Time
}

// Trend describes the dominant emotion over recent analyses.
type Trend struct {
	Trend        string         `json:"trend"`
	Dominant     string         `json:"dominant_emotion,omitempty"`
	Strength     float64        `json:"strength,omitempty"`
	Distribution map[string]int `json:"emotion_distribution,omitempty"`
}

// Tracker classifies utterances and keeps a bounded, in-process history of
// the results. The history only feeds Trends and never changes how text is
// classified.
type Tracker struct {
	classifier *Classifier
	size       int
	now        func() time.Time

	mu      sync.RWMutex
	history []Entry
}

// NewTracker returns a tracker keeping the most recent size analyses. A
// non-positive size uses DefaultHistorySize.
func NewTracker(c *Classifier, size int) *Tracker {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &Tracker{classifier: c, size: size, now: time.Now}
}

// Analyze classifies text and records the result.
func (t *Tracker) Analyze(text string) Assessment {
	a := t.classifier.Classify(text)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.history = append(t.history, Entry{Text: text, Assessment: a.Clone(), Timestamp: t.now()})
	if over := len(t.history) - t.size; over > 0 {
		t.history = append([]Entry(nil), t.history[over:]...)
	}
	return a
}

// History returns a copy of the recorded analyses, oldest first.
func (t *Tracker) History() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, len(t.history))
	for i, e := range t.history {
		e.Assessment = e.Assessment.Clone()
		out[i] = e
	}
	return out
}

// Trends summarises the primary emotions of the last window analyses. A
// non-positive window uses DefaultTrendWindow.
func (t *Tracker) Trends(window int) Trend {
	if window <= 0 {
		window = DefaultTrendWindow
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.history) < 2 {
		return Trend{Trend: TrendInsufficientData}
	}
	recent := t.history[max(0, len(t.history)-window):]

	counts := make(map[string]int)
	var seen []string
	for _, e := range recent {
		tag := e.Assessment.Primary
		if counts[tag] == 0 {
			seen = append(seen, tag)
		}
		counts[tag]++
	}
	// ties go to the tag that appeared first in the window
	dominant := seen[0]
	for _, tag := range seen[1:] {
		if counts[tag] > counts[dominant] {
			dominant = tag
		}
	}

	strength := float64(counts[dominant]) / float64(len(recent))
	trend := TrendStable
	if strength >= strongTrendShare {
		trend = TrendStrong
	}
	return Trend{Trend: trend, Dominant: dominant, Strength: strength, Distribution: counts}
}
