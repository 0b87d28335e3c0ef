package ai

import (
	"context"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = string(anthropic.ModelClaudeSonnet4_20250514)

// AnthropicMessager is the subset of the Anthropic client the generator uses.
type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// AnthropicGenerator serves Generator through the Anthropic Messages API.
type AnthropicGenerator struct {
	messages AnthropicMessager
	model    string
}

// NewAnthropicGenerator creates a generator backed by the Anthropic SDK client.
func NewAnthropicGenerator(apiKey, model string) *AnthropicGenerator {
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return NewAnthropicGeneratorWithMessager(&c.Messages, model)
}

// NewAnthropicGeneratorWithMessager is used by tests to inject a fake client.
func NewAnthropicGeneratorWithMessager(m AnthropicMessager, model string) *AnthropicGenerator {
	if model == "" {
		model = DefaultAnthropicModel
	}
	return &AnthropicGenerator{messages: m, model: model}
}

// Generate implements Generator. TopK and TopP are not forwarded.
func (a *AnthropicGenerator) Generate(ctx context.Context, prompt string, opts GenerationOptions) (string, error) {
	opts = opts.withDefaults()
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   int64(opts.MaxOutputTokens),
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(opts.Temperature),
	}
	if len(opts.StopSequences) > 0 {
		params.StopSequences = opts.StopSequences
	}

	resp, err := a.messages.New(ctx, params)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	if sb.Len() == 0 {
		return "", ErrEmptyReply
	}
	return sb.String(), nil
}
