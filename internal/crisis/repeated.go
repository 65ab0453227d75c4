package crisis

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

const (
	highPatternNudge = "\n\nI've noticed some concerning patterns in our conversations. " +
		"Your wellbeing is important to me. Would you consider reaching out to " +
		"a mental health professional? I can provide some resources if helpful."
	mediumPatternNudge = "\n\nI want to check in - how are you taking care of yourself lately? " +
		"Remember, it's okay to seek support when you need it. 💙"

	feelingNudge = "\n\nI've noticed you've been feeling %s quite often lately. " +
		"That must be really tough. Would you like to talk about what's been " +
		"contributing to these feelings, or would you prefer some coping strategies?"
	anxietyNudge = "\n\nI see anxiety has been a recurring theme. That's exhausting to deal with. " +
		"Would you like to try a quick breathing exercise, or would you prefer to " +
		"talk through what's been triggering these anxious feelings?"
)

// PatternNudge returns the text appended to a reply for a crisis state, or
// an empty string for low states.
func PatternNudge(s State) string {
	switch s.Level {
	case High:
		return highPatternNudge
	case Medium:
		return mediumPatternNudge
	default:
		return ""
	}
}

// RepeatedConfig parameterises the repeated-emotion detector.
type RepeatedConfig struct {
	// Window is how many recent tags are inspected.
	Window int
	// MinEntries is the minimum number of tags needed before checking.
	MinEntries int
	// Threshold is how often a concerning tag must appear.
	Threshold int
	// Concerning tags trigger a nudge. "anxious" gets its own wording.
	Concerning []string
}

// DefaultRepeatedConfig returns the standard repeated-emotion settings.
func DefaultRepeatedConfig() RepeatedConfig {
	return RepeatedConfig{
		Window:     10,
		MinEntries: 5,
		Threshold:  4,
		Concerning: []string{"sad", "lonely", "overwhelmed", "anxious"},
	}
}

// Validate checks the repeated-emotion settings.
func (c RepeatedConfig) Validate() error {
	var result error
	if c.Window <= 0 {
		result = multierror.Append(result, fmt.Errorf("repeated emotion window must be greater than 0, got %d", c.Window))
	}
	if c.MinEntries <= 0 || c.MinEntries > c.Window {
		result = multierror.Append(result, fmt.Errorf("repeated emotion minimum entries must be between 1 and the window, got %d", c.MinEntries))
	}
	if c.Threshold <= 0 {
		result = multierror.Append(result, fmt.Errorf("repeated emotion threshold must be greater than 0, got %d", c.Threshold))
	}
	return result
}

// Nudge is a tailored message for a repeated emotion.
type Nudge struct {
	Emotion string `json:"emotion"`
	Count   int    `json:"count"`
	Text    string `json:"text"`
}

// RepeatedDetector flags a concerning emotion recurring in the recent
// history.
type RepeatedDetector struct {
	cfg        RepeatedConfig
	concerning map[string]bool
}

// NewRepeatedDetector validates cfg and returns a detector.
func NewRepeatedDetector(cfg RepeatedConfig) (*RepeatedDetector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &RepeatedDetector{cfg: cfg, concerning: make(map[string]bool)}
	for _, tag := range cfg.Concerning {
		d.concerning[tag] = true
	}
	return d, nil
}

// Check inspects the most recent tags of emotions, oldest first, and returns
// a nudge for a concerning tag seen at least Threshold times. When several
// qualify the most frequent wins, ties going to the one seen first.
func (d *RepeatedDetector) Check(emotions []string) (Nudge, bool) {
	window := emotions[max(0, len(emotions)-d.cfg.Window):]
	if len(window) < d.cfg.MinEntries {
		return Nudge{}, false
	}

	counts := make(map[string]int)
	var order []string
	for _, tag := range window {
		if counts[tag] == 0 {
			order = append(order, tag)
		}
		counts[tag]++
	}

	var flagged string
	for _, tag := range order {
		if !d.concerning[tag] || counts[tag] < d.cfg.Threshold {
			continue
		}
		if flagged == "" || counts[tag] > counts[flagged] {
			flagged = tag
		}
	}
	if flagged == "" {
		return Nudge{}, false
	}

	text := fmt.Sprintf(feelingNudge, flagged)
	if flagged == "anxious" {
		text = anxietyNudge
	}
	return Nudge{Emotion: flagged, Count: counts[flagged], Text: text}, true
}
