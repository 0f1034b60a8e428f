package triage

import (
	"context"

	"github.com/fast-aid/triage-platform/internal/model"
)

// Generator proposes a prediagnosis draft from patient data and medical
// history. It is a black box: the orchestrator imposes no retry policy, only
// a timeout boundary around the single call.
type Generator interface {
	// Propose generates a draft or fails. Both the call erroring and an
	// incomplete draft are reported as model.ErrGenerationFailed.
	Propose(ctx context.Context, data PatientData, history *model.MedicalHistory) (*Draft, error)

	// Name returns the provider name.
	Name() string
}

// Provider is the type of generation provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// NewGenerator creates a generator for the given provider.
func NewGenerator(provider Provider, apiKey, model string) (Generator, error) {
	switch provider {
	case ProviderOpenAI:
		return NewOpenAIGenerator(apiKey, model)
	default:
		return NewAnthropicGenerator(apiKey, model)
	}
}
