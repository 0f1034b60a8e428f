package triage

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/fast-aid/triage-platform/internal/model"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIGenerator proposes prediagnoses through the OpenAI API.
type OpenAIGenerator struct {
	client    *openai.Client
	modelName string
}

// NewOpenAIGenerator creates a new OpenAI-backed generator.
func NewOpenAIGenerator(apiKey, modelName string) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	if modelName == "" {
		modelName = defaultOpenAIModel
	}

	return &OpenAIGenerator{
		client:    openai.NewClient(apiKey),
		modelName: modelName,
	}, nil
}

// Name returns the provider name.
func (g *OpenAIGenerator) Name() string {
	return "openai"
}

// Propose sends the generation request and decodes the returned draft.
func (g *OpenAIGenerator) Propose(ctx context.Context, data PatientData, history *model.MedicalHistory) (*Draft, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.modelName,
		MaxTokens:   2000,
		Temperature: 0.1,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(data, history)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrGenerationFailed, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", model.ErrGenerationFailed)
	}

	return decodeDraft(resp.Choices[0].Message.Content)
}
