package model

import (
	"time"
)

// Prediagnosis is a structured triage suggestion attached to a conversation.
// Records are immutable once created; a conversation may accumulate several,
// and the most recently created one is the one surfaced by default.
//
// DoctorID is nil for AI-generated records on conversations without an
// assigned doctor; it is filled with the assigned doctor otherwise.
type Prediagnosis struct {
	ID                       string    `json:"id"`
	ConversationID           string    `json:"conversation_id"`
	PatientID                string    `json:"patient_id"`
	DoctorID                 *string   `json:"doctor_id,omitempty"`
	PotentialDiseases        string    `json:"potential_diseases"`
	CourseOfAction           string    `json:"course_of_action"`
	SupportMessages          string    `json:"support_messages"`
	RecommendedPractitioners string    `json:"recommended_practitioners"`
	CreatedAt                time.Time `json:"created_at"`
}

// PrediagnosisRequest is the request to generate a prediagnosis. When
// ConversationID is empty a new conversation is created for the caller.
type PrediagnosisRequest struct {
	Symptoms       []string `json:"symptoms"`
	Duration       string   `json:"duration,omitempty"`
	Age            *int     `json:"age,omitempty"`
	ConversationID string   `json:"conversation_id,omitempty"`
}
