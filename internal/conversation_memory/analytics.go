package conversation_memory //nolint:revive // var-naming: using underscores for domain clarity

import (
	"time"

	"github.com/lewisedginton/wellbeing_companion/internal/emotion"
	"github.com/lewisedginton/wellbeing_companion/internal/risk"
)

// Summary describes the current session bucket.
type Summary struct {
	SessionID       string         `json:"session_id"`
	MessageCount    int            `json:"message_count"`
	DominantEmotion string         `json:"dominant_emotion"`
	Emotions        map[string]int `json:"emotions"`
}

// SessionSummary summarises the turns in the current session bucket. The
// dominant emotion is neutral when the session has no tagged turns.
func (s *Store) SessionSummary() Summary {
	session := SessionID(s.now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := Summary{SessionID: session, Emotions: make(map[string]int)}
	var tags []string
	for _, r := range s.memory {
		if r.SessionID != session {
			continue
		}
		summary.MessageCount++
		if r.Emotion != "" {
			tags = append(tags, r.Emotion)
		}
	}
	summary.DominantEmotion, _ = dominant(tags, summary.Emotions)
	if summary.DominantEmotion == "" {
		summary.DominantEmotion = emotion.Neutral
	}
	return summary
}

// PrimaryState is the most frequent emotion in the analytics log.
type PrimaryState struct {
	Emotion   string  `json:"emotion"`
	Frequency int     `json:"frequency"`
	Share     float64 `json:"share"`
}

// Analytics aggregates the emotion analytics log.
type Analytics struct {
	Total                 int                       `json:"total"`
	Sessions              int                       `json:"sessions"`
	Distribution          map[string]int            `json:"distribution"`
	IntensityDistribution map[emotion.Intensity]int `json:"intensity_distribution"`
	RiskDistribution      map[risk.Level]int        `json:"risk_distribution"`
	PrimaryState          *PrimaryState             `json:"primary_state,omitempty"`
	FirstSeen             time.Time                 `json:"first_seen,omitzero"`
	LastSeen              time.Time                 `json:"last_seen,omitzero"`
}

// Analytics aggregates every entry of the analytics log.
func (s *Store) Analytics() Analytics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a := Analytics{
		Total:                 len(s.analytics),
		Distribution:          make(map[string]int),
		IntensityDistribution: make(map[emotion.Intensity]int),
		RiskDistribution:      make(map[risk.Level]int),
	}
	sessions := make(map[string]bool)
	tags := make([]string, 0, len(s.analytics))
	for i, e := range s.analytics {
		if i == 0 {
			a.FirstSeen = e.Timestamp
		}
		a.LastSeen = e.Timestamp
		sessions[e.SessionID] = true
		tags = append(tags, e.Emotion)
		if e.Intensity != "" {
			a.IntensityDistribution[e.Intensity]++
		}
		a.RiskDistribution[e.RiskLevel]++
	}
	a.Sessions = len(sessions)

	if top, count := dominant(tags, a.Distribution); top != "" {
		a.PrimaryState = &PrimaryState{
			Emotion:   top,
			Frequency: count,
			Share:     float64(count) / float64(a.Total),
		}
	}
	return a
}

// RiskLevels returns the risk levels of every analytics entry, oldest first.
func (s *Store) RiskLevels() []risk.Level {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]risk.Level, len(s.analytics))
	for i, e := range s.analytics {
		out[i] = e.RiskLevel
	}
	return out
}

// dominant fills counts from tags and returns the most frequent tag, ties
// going to the tag seen first.
func dominant(tags []string, counts map[string]int) (string, int) {
	var order []string
	for _, tag := range tags {
		if counts[tag] == 0 {
			order = append(order, tag)
		}
		counts[tag]++
	}
	top := ""
	for _, tag := range order {
		if top == "" || counts[tag] > counts[top] {
			top = tag
		}
	}
	return top, counts[top]
}
