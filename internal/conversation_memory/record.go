package conversation_memory //nolint:revive // var-naming: using underscores for domain clarity

import (
	"time"

	"github.com/google/uuid"

	"github.com/lewisedginton/wellbeing_companion/internal/emotion"
	"github.com/lewisedginton/wellbeing_companion/internal/patterns"
	"github.com/lewisedginton/wellbeing_companion/internal/risk"
)

const (
	// RecordIDPrefix prefixes every record id.
	RecordIDPrefix = "turn"

	// SessionLayout buckets timestamps by hour to form session ids.
	SessionLayout = "2006-01-02T15"
)

// Record is one conversation turn. Records are created once and never
// mutated; the store hands out copies.
type Record struct {
	ID            string                `json:"id"`
	UserText      string                `json:"user_text"`
	BotReply      string                `json:"bot_reply"`
	Emotion       string                `json:"emotion"`
	RiskLevel     risk.Level            `json:"risk_level"`
	RiskCategory  patterns.RiskCategory `json:"risk_category"`
	EmotionDetail *emotion.Assessment   `json:"emotion_detail,omitempty"`
	Timestamp     time.Time             `json:"timestamp"`
	SessionID     string                `json:"session_id"`
}

func (r Record) clone() Record {
	if r.EmotionDetail != nil {
		detail := r.EmotionDetail.Clone()
		r.EmotionDetail = &detail
	}
	return r
}

// AnalyticsEntry is the emotion-only view of a turn kept for long-range
// analytics.
type AnalyticsEntry struct {
	RecordID   string            `json:"record_id"`
	Emotion    string            `json:"emotion"`
	Intensity  emotion.Intensity `json:"intensity,omitempty"`
	Confidence float64           `json:"confidence,omitempty"`
	RiskLevel  risk.Level        `json:"risk_level"`
	Timestamp  time.Time         `json:"timestamp"`
	SessionID  string            `json:"session_id"`
}

func (r Record) analyticsEntry() AnalyticsEntry {
	e := AnalyticsEntry{
		RecordID:  r.ID,
		Emotion:   r.Emotion,
		RiskLevel: r.RiskLevel,
		Timestamp: r.Timestamp,
		SessionID: r.SessionID,
	}
	if r.EmotionDetail != nil {
		e.Intensity = r.EmotionDetail.Intensity
		e.Confidence = r.EmotionDetail.Confidence
	}
	return e
}

// SessionID returns the session bucket a timestamp falls into.
func SessionID(t time.Time) string {
	return t.UTC().Format(SessionLayout)
}

// Turn carries what a caller knows about a turn before it becomes a Record.
type Turn struct {
	UserText      string
	BotReply      string
	Emotion       string
	Risk          risk.Assessment
	EmotionDetail *emotion.Assessment
}

func newRecord(t Turn, now time.Time) Record {
	rec := Record{
		ID:           RecordIDPrefix + "-" + uuid.NewString(),
		UserText:     t.UserText,
		BotReply:     t.BotReply,
		Emotion:      t.Emotion,
		RiskLevel:    t.Risk.Level,
		RiskCategory: t.Risk.Category,
		Timestamp:    now,
		SessionID:    SessionID(now),
	}
	if rec.RiskLevel == "" {
		rec.RiskLevel = risk.None
	}
	if rec.RiskCategory == "" {
		rec.RiskCategory = patterns.Unknown
	}
	if t.EmotionDetail != nil {
		detail := t.EmotionDetail.Clone()
		rec.EmotionDetail = &detail
	}
	return rec
}
