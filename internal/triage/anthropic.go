package triage

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/fast-aid/triage-platform/internal/model"
)

const defaultAnthropicModel = "claude-3-5-haiku-20241022"

// AnthropicGenerator proposes prediagnoses through the Anthropic API.
type AnthropicGenerator struct {
	client    *anthropic.Client
	modelName string
}

// NewAnthropicGenerator creates a new Anthropic-backed generator.
func NewAnthropicGenerator(apiKey, modelName string) (*AnthropicGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("Anthropic API key is required")
	}
	if modelName == "" {
		modelName = defaultAnthropicModel
	}

	return &AnthropicGenerator{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		modelName: modelName,
	}, nil
}

// Name returns the provider name.
func (g *AnthropicGenerator) Name() string {
	return "anthropic"
}

// Propose sends the generation request and decodes the returned draft.
func (g *AnthropicGenerator) Propose(ctx context.Context, data PatientData, history *model.MedicalHistory) (*Draft, error) {
	resp, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.F(g.modelName),
		MaxTokens:   anthropic.F(int64(2000)),
		Temperature: anthropic.F(0.1),
		System: anthropic.F([]anthropic.TextBlockParam{
			{
				Type: anthropic.F(anthropic.TextBlockParamTypeText),
				Text: anthropic.F(systemPrompt),
			},
		}),
		Messages: anthropic.F([]anthropic.MessageParam{
			{
				Role: anthropic.F(anthropic.MessageParamRoleUser),
				Content: anthropic.F([]anthropic.ContentBlockParamUnion{
					anthropic.TextBlockParam{
						Type: anthropic.F(anthropic.TextBlockParamTypeText),
						Text: anthropic.F(buildUserPrompt(data, history)),
					},
				}),
			},
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrGenerationFailed, err)
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			content += block.Text
		}
	}

	return decodeDraft(content)
}
