package responder

import (
	"fmt"

	"github.com/lewisedginton/wellbeing_companion/internal/conversation_memory"
	"github.com/lewisedginton/wellbeing_companion/internal/emotion"
)

const (
	// Welcome greets the user when a conversation starts.
	Welcome = "Welcome! I'm your mental health companion. I understand English, Hindi, and Hinglish. " +
		"I'm here to listen, support, and help you navigate your emotions. " +
		"Say 'exit' when you're ready to end our conversation. 💙"

	// Apology is shown when a turn fails unexpectedly.
	Apology = "I'm having some technical difficulties. Let me try to help you anyway. 💙"

	// SpokenGoodbye is spoken when the conversation ends.
	SpokenGoodbye = "Goodbye! Take care of yourself."
)

var emotionEmoji = map[string]string{
	"happy":        "😊",
	"sad":          "😢",
	"angry":        "😠",
	"anxious":      "😰",
	"excited":      "🤩",
	"confused":     "😕",
	"lonely":       "😔",
	"overwhelmed":  "😵",
	"grateful":     "🙏",
	"hopeful":      "🌟",
	"disappointed": "😞",
	"guilty":       "😳",
	"proud":        "😌",
	"jealous":      "😒",
	"surprised":    "😲",
	"frustrated":   "😤",
	"peaceful":     "😌",
	"motivated":    "💪",
	"tired":        "😴",
	"curious":      "🤔",
	"embarrassed":  "😅",
	"hopeless":     "🥀",
	"suicidal":     "🆘",
	"crisis":       "🆘",
	"neutral":      "😐",
}

// EmotionEmoji returns the indicator for an emotion tag.
func EmotionEmoji(tag string) string {
	if e, ok := emotionEmoji[tag]; ok {
		return e
	}
	return emotionEmoji[emotion.Neutral]
}

// Goodbye builds the closing message from the session summary.
func Goodbye(s conversation_memory.Summary) string {
	dominant := s.DominantEmotion
	if dominant == "" {
		dominant = emotion.Neutral
	}
	return fmt.Sprintf("Goodbye! We talked for %d messages today. Your primary emotion was %s. Take care of yourself! 💙",
		s.MessageCount, dominant)
}
