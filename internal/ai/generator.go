// Package ai wraps a generative text model behind typed deal-room
// operations. Every operation degrades to a fixed fallback payload instead
// of returning an error.
package ai

import (
	"context"
	"errors"
)

// ErrEmptyReply is returned by a Generator when the model produced no text.
var ErrEmptyReply = errors.New("model returned no text")

// GenerationOptions are the decoding parameters for one call. Zero values
// fall back to the defaults below.
type GenerationOptions struct {
	Temperature     float64
	TopK            int
	TopP            float64
	MaxOutputTokens int
	StopSequences   []string
}

const (
	DefaultTemperature     = 0.7
	DefaultTopK            = 1
	DefaultTopP            = 1.0
	DefaultMaxOutputTokens = 2048
)

func (o GenerationOptions) withDefaults() GenerationOptions {
	if o.Temperature == 0 {
		o.Temperature = DefaultTemperature
	}
	if o.TopK == 0 {
		o.TopK = DefaultTopK
	}
	if o.TopP == 0 {
		o.TopP = DefaultTopP
	}
	if o.MaxOutputTokens == 0 {
		o.MaxOutputTokens = DefaultMaxOutputTokens
	}
	if o.StopSequences == nil {
		o.StopSequences = []string{}
	}
	return o
}

// Generator sends a prompt to a model and returns the reply text.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenerationOptions) (string, error)
}

// Ensure providers implement Generator.
var (
	_ Generator = (*GeminiClient)(nil)
	_ Generator = (*AnthropicGenerator)(nil)
)
