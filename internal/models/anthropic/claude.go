// Package anthropic generates replies with Anthropic Claude messages.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/lewisedginton/wellbeing_companion/internal/models"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = string(anthropic.ModelClaudeSonnet4_5_20250929)

// ClaudeModel generates replies with a Claude model.
type ClaudeModel struct {
	client    anthropic.Client
	modelName string
	opts      models.Options
}

// NewClaudeModel creates a generator for modelName, defaulting to
// DefaultModel.
func NewClaudeModel(apiKey, modelName string, opts models.Options, reqOpts ...option.RequestOption) (*ClaudeModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if modelName == "" {
		modelName = DefaultModel
	}

	client := anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, reqOpts...)...)
	return &ClaudeModel{client: client, modelName: modelName, opts: opts}, nil
}

// Name returns the model name.
func (c *ClaudeModel) Name() string {
	return c.modelName
}

// Generate asks Claude for a reply and post-processes it.
func (c *ClaudeModel) Generate(ctx context.Context, req models.Request) (string, error) {
	resp, err := c.client.Messages.New(ctx, c.params(models.BuildPrompt(req)))
	if err != nil {
		return "", fmt.Errorf("claude api error: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}

	reply := models.Postprocess(text.String(), req.Emotion.Primary)
	if reply == "" {
		return "", models.ErrEmptyReply
	}
	return reply, nil
}

// params maps a prompt onto a Messages request with the few-shot exchanges as
// alternating user and assistant turns.
func (c *ClaudeModel) params(p models.Prompt) anthropic.MessageNewParams {
	messages := make([]anthropic.MessageParam, 0, 1+2*len(p.Examples))
	for _, ex := range p.Examples {
		messages = append(messages,
			anthropic.NewUserMessage(anthropic.NewTextBlock(ex.User)),
			anthropic.NewAssistantMessage(anthropic.NewTextBlock(ex.Assistant)))
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(p.User)))

	maxTokens := c.opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = models.DefaultOptions().MaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.modelName),
		MaxTokens: maxTokens,
		Messages:  messages,
		System:    []anthropic.TextBlockParam{{Text: p.System}},
	}
	if c.opts.Temperature > 0 {
		params.Temperature = anthropic.Float(c.opts.Temperature)
	}
	// Claude rejects temperature and top_p together on newer models
	if c.opts.TopP > 0 && c.opts.Temperature <= 0 {
		params.TopP = anthropic.Float(c.opts.TopP)
	}
	return params
}
