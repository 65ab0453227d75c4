// Package models defines the generative-reply collaborator and the prompt
// shaping shared by the provider adapters.
package models

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/lewisedginton/wellbeing_companion/internal/emotion"
)

// ErrEmptyReply is returned when a provider produced no usable text.
var ErrEmptyReply = errors.New("generator returned an empty reply")

// Request is what a generator is asked to reply to.
type Request struct {
	Utterance        string
	Context          string
	Emotion          emotion.Assessment
	CulturalContexts []string
}

// Generator produces a free-text reply. Callers must tolerate errors and
// empty output.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// Options are the sampling settings shared by the adapters.
type Options struct {
	MaxTokens   int64
	Temperature float64
	TopP        float64
}

// DefaultOptions returns the sampling settings used when none are given.
func DefaultOptions() Options {
	return Options{MaxTokens: 160, Temperature: 0.7, TopP: 0.92}
}

const systemStyle = "You are a compassionate, culturally-aware mental health voice assistant designed for Indian users. " +
	"You understand Hindi, English, and Hinglish expressions. Be warm, empathetic, and non-judgmental. " +
	"Respect Indian cultural values, family dynamics, and social contexts. " +
	"Avoid medical diagnosis or prescriptions. Encourage reflection, offer gentle coping strategies, " +
	"and suggest professional help when needed. Keep responses under 4 sentences and culturally appropriate."

// Exchange is one few-shot example.
type Exchange struct {
	User      string
	Assistant string
}

var fewShots = map[string][]Exchange{
	"sad": {
		{
			User:      "I'm feeling really depressed and low today.",
			Assistant: "I hear you, and I'm here with you. 💙 Depression can feel so heavy. Would you like to share what's weighing on your heart?",
		},
		{
			User:      "Bahut udaas feel kar raha hun, kuch achha nahi lag raha.",
			Assistant: "Main samajh sakta hun. Udaasi ka ehsaas bahut painful hai. Kya aap batana chahenge ki kya pareshaan kar raha hai?",
		},
	},
	"anxious": {
		{
			User:      "I'm so worried about everything, can't stop thinking.",
			Assistant: "Anxiety can be really overwhelming. Let's focus on your breathing for a moment. What's your biggest worry right now?",
		},
		{
			User:      "Bahut tension ho rahi hai, dimag mein bohot thoughts aa rahe.",
			Assistant: "Ghabrahat normal hai, especially when thoughts race. Ek gehri saans lete hain together. Sabse zyada kya chinta hai?",
		},
	},
	"happy": {
		{
			User:      "I'm feeling so good today, everything is going well!",
			Assistant: "That's wonderful to hear! 😊 Your happiness is contagious. What's making you feel so good today?",
		},
		{
			User:      "Aaj bahut khushi ho rahi hai, sab kuch achha chal raha.",
			Assistant: "Bahut achhi baat hai! Khushi ki baat hai. Kya khaas baat hai jo aapko itna khush kar rahi hai?",
		},
	},
}

var defaultFewShots = []Exchange{
	{
		User:      "I don't know what to do about my situation.",
		Assistant: "Uncertainty can feel overwhelming. I'm here to listen and support you. Would you like to share what's on your mind?",
	},
	{
		User:      "Samajh nahi aa raha kya karu.",
		Assistant: "Confusion mein hona bilkul normal hai. Main yahan hun sunne ke liye. Kya share karna chahenge?",
	},
}

// Prompt is a provider-neutral chat prompt.
type Prompt struct {
	System   string
	Examples []Exchange
	User     string
}

// BuildPrompt shapes a request into a system instruction, few-shot examples
// chosen by emotion, and the final user message carrying the recent context
// and the detected emotion.
func BuildPrompt(req Request) Prompt {
	intensity := req.Emotion.Intensity
	if intensity == "" {
		intensity = emotion.Medium
	}
	primary := req.Emotion.Primary
	if primary == "" {
		primary = emotion.Neutral
	}

	system := systemStyle
	if len(req.CulturalContexts) > 0 {
		system += fmt.Sprintf(" The user seems to be dealing with %s.", strings.Join(req.CulturalContexts, ", "))
	}
	if intensity == emotion.High {
		system += " The user's emotional state seems intense - be extra supportive."
	}

	examples, ok := fewShots[primary]
	if !ok {
		examples = defaultFewShots
	}

	var user strings.Builder
	if ctx := strings.TrimSpace(req.Context); ctx != "" {
		user.WriteString("Context: ")
		user.WriteString(ctx)
		user.WriteString("\n")
	}
	fmt.Fprintf(&user, "Detected emotion: %s (intensity: %s)\n", primary, intensity)
	user.WriteString(req.Utterance)

	return Prompt{
		System:   system,
		Examples: append([]Exchange(nil), examples...),
		User:     user.String(),
	}
}

var whitespace = regexp.MustCompile(`\s+`)

// Postprocess cleans provider output: it keeps the text after the last
// assistant marker and before any invented user turn, collapses whitespace,
// drops repeated sentences and adds a tone suffix for the emotion.
func Postprocess(generated, primary string) string {
	if i := strings.LastIndex(generated, "Assistant:"); i >= 0 {
		generated = generated[i+len("Assistant:"):]
	}
	if i := strings.Index(generated, "\nUser:"); i >= 0 {
		generated = generated[:i]
	}
	generated = strings.TrimSpace(whitespace.ReplaceAllString(generated, " "))
	if generated == "" {
		return ""
	}

	var unique []string
	seen := make(map[string]bool)
	for _, sentence := range strings.Split(generated, ". ") {
		if seen[sentence] {
			continue
		}
		seen[sentence] = true
		unique = append(unique, sentence)
	}
	reply := strings.Join(unique, ". ")

	switch primary {
	case "happy":
		if !strings.Contains(reply, "😊") {
			reply += " 😊"
		}
	case "sad":
		if !strings.Contains(reply, "💙") {
			reply += " 💙"
		}
	case "anxious", "overwhelmed":
		if !strings.Contains(reply, "🤗") {
			reply += " Take it one step at a time."
		}
	}
	return reply
}
