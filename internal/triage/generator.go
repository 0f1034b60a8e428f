// Package triage implements prediagnosis generation: the external-generator
// abstraction, its LLM-backed implementations, and the orchestrator that
// attaches generated drafts to conversations.
package triage

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fast-aid/triage-platform/internal/model"
)

// PatientData is the request-scoped input to a generation attempt.
type PatientData struct {
	Symptoms []string `json:"symptoms"`
	Duration string   `json:"duration,omitempty"`
	Age      *int     `json:"age,omitempty"`
}

// Draft is a proposed prediagnosis returned by a generator. All four fields
// are required; a draft missing any of them is a generation failure, never a
// partial success.
type Draft struct {
	PotentialDiseases        string `json:"potential_diseases"`
	CourseOfAction           string `json:"course_of_action"`
	SupportMessages          string `json:"support_messages"`
	RecommendedPractitioners string `json:"recommended_practitioners"`
}

// Validate checks that every required field is present.
func (d *Draft) Validate() error {
	for field, value := range map[string]string{
		"potential_diseases":        d.PotentialDiseases,
		"course_of_action":          d.CourseOfAction,
		"support_messages":          d.SupportMessages,
		"recommended_practitioners": d.RecommendedPractitioners,
	} {
		if value == "" {
			return fmt.Errorf("%w: missing required field %s", model.ErrGenerationFailed, field)
		}
	}
	return nil
}

const systemPrompt = `You are a medical expert trying to prediagnose a patient and eventually send that data
to a doctor for further investigation. Your job is to locate their potential diseases,
recommend a light course of action while waiting for the doctor's response, offer some stress
relief messages, and recommend which types of practitioners to see. Your recommended course of actions
should not be exhaustive and create unnecessary stress.

Return your answer in a valid JSON structure strictly following these given keys, although the values may be longer or shorter.
Return ONLY the JSON object without any markdown formatting or additional text.
{
    "potential_diseases" : "stroke, heart disease, lung cancer, etc.",
    "course_of_action" : "I recommend you to reduce the amount of sugar and carbohydrate intake. Additionally, you can move around your right arm for better blood circulation.",
    "support_messages" : "Your symptoms are highly treatable and your local physicians have great ratings!",
    "recommended_practitioners" : "general physician, orthopedic, ER"
}`

// buildUserPrompt renders the patient data and optional medical history into
// the generation request.
func buildUserPrompt(data PatientData, history *model.MedicalHistory) string {
	var b strings.Builder
	payload, _ := json.Marshal(data)
	fmt.Fprintf(&b, "Generate a prediagnosis based on the following data: %s", payload)
	if history != nil {
		doc, _ := json.Marshal(history)
		fmt.Fprintf(&b, "\nand on the given patient medical history: %s", doc)
	}
	return b.String()
}

// extractJSON pulls a JSON object out of model output that may wrap it in
// markdown code fences or surrounding prose.
func extractJSON(text string) string {
	if i := strings.Index(text, "```json"); i >= 0 {
		rest := text[i+len("```json"):]
		if j := strings.Index(rest, "```"); j >= 0 {
			return strings.TrimSpace(rest[:j])
		}
	}
	if i := strings.Index(text, "```"); i >= 0 {
		rest := text[i+len("```"):]
		if j := strings.Index(rest, "```"); j >= 0 {
			return strings.TrimSpace(rest[:j])
		}
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return strings.TrimSpace(text[start : end+1])
	}
	return strings.TrimSpace(text)
}

// decodeDraft parses generator output into a validated Draft.
func decodeDraft(text string) (*Draft, error) {
	var draft Draft
	if err := json.Unmarshal([]byte(extractJSON(text)), &draft); err != nil {
		return nil, fmt.Errorf("%w: decode draft: %v", model.ErrGenerationFailed, err)
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	return &draft, nil
}
