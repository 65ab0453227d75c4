// Package openai generates replies with OpenAI chat completions.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/lewisedginton/wellbeing_companion/internal/models"
)

// Model generates replies with an OpenAI chat model.
type Model struct {
	client    openai.Client
	modelName string
	opts      models.Options
}

// New creates a generator for modelName. Extra request options are passed
// to the client, e.g. a base URL for compatible servers.
func New(apiKey, modelName string, opts models.Options, reqOpts ...option.RequestOption) (*Model, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name is required")
	}

	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, reqOpts...)...)
	return &Model{client: client, modelName: modelName, opts: opts}, nil
}

// Name returns the model name.
func (m *Model) Name() string {
	return m.modelName
}

// Generate asks the model for a reply and post-processes it.
func (m *Model) Generate(ctx context.Context, req models.Request) (string, error) {
	params := m.params(models.BuildPrompt(req))

	completion, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai API error: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices in response: %w", models.ErrEmptyReply)
	}

	reply := models.Postprocess(completion.Choices[0].Message.Content, req.Emotion.Primary)
	if reply == "" {
		return "", models.ErrEmptyReply
	}
	return reply, nil
}

// params maps a prompt onto chat messages: the system instruction, each
// few-shot exchange as a user/assistant pair, then the user turn.
func (m *Model) params(p models.Prompt) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2+2*len(p.Examples))
	messages = append(messages, openai.SystemMessage(p.System))
	for _, ex := range p.Examples {
		messages = append(messages, openai.UserMessage(ex.User), openai.AssistantMessage(ex.Assistant))
	}
	messages = append(messages, openai.UserMessage(p.User))

	params := openai.ChatCompletionNewParams{
		Model:    m.modelName,
		Messages: messages,
	}
	if m.opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(m.opts.MaxTokens)
	}
	if m.opts.Temperature > 0 {
		params.Temperature = openai.Float(m.opts.Temperature)
	}
	if m.opts.TopP > 0 {
		params.TopP = openai.Float(m.opts.TopP)
	}
	return params
}
