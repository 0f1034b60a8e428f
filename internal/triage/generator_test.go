package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fast-aid/triage-platform/internal/model"
)

const fullDraftJSON = `{
	"potential_diseases": "tension headache, migraine",
	"course_of_action": "rest and hydrate",
	"support_messages": "your symptoms are highly treatable",
	"recommended_practitioners": "general physician, neurologist"
}`

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"bare object", fullDraftJSON},
		{"json code fence", "```json\n" + fullDraftJSON + "\n```"},
		{"plain code fence", "```\n" + fullDraftJSON + "\n```"},
		{"surrounding prose", "Here is the result:\n" + fullDraftJSON + "\nLet me know."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft, err := decodeDraft(tt.in)
			require.NoError(t, err)
			assert.Equal(t, "rest and hydrate", draft.CourseOfAction)
		})
	}
}

func TestDecodeDraftMissingField(t *testing.T) {
	incomplete := `{
		"potential_diseases": "migraine",
		"course_of_action": "rest",
		"support_messages": "it will pass"
	}`

	_, err := decodeDraft(incomplete)
	assert.ErrorIs(t, err, model.ErrGenerationFailed)
}

func TestDecodeDraftMalformed(t *testing.T) {
	_, err := decodeDraft("not json at all")
	assert.ErrorIs(t, err, model.ErrGenerationFailed)
}

func TestBuildUserPrompt(t *testing.T) {
	age := 41
	prompt := buildUserPrompt(PatientData{
		Symptoms: []string{"headache", "dizziness"},
		Duration: "3 days",
		Age:      &age,
	}, &model.MedicalHistory{Allergies: []string{"penicillin"}})

	assert.Contains(t, prompt, "headache")
	assert.Contains(t, prompt, "3 days")
	assert.Contains(t, prompt, "penicillin")
	assert.Contains(t, prompt, "medical history")
}

func TestBuildUserPromptWithoutHistory(t *testing.T) {
	prompt := buildUserPrompt(PatientData{Symptoms: []string{"cough"}}, nil)
	assert.NotContains(t, prompt, "medical history")
}
