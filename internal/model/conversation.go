package model

import (
	"time"
)

// Conversation is the unit of triage interaction between one patient and at
// most one assigned doctor. PatientID is set at creation and never changes;
// DoctorID is an optional, mutable assignment.
type Conversation struct {
	ID        string    `json:"id"`
	PatientID string    `json:"patient_id"`
	DoctorID  *string   `json:"doctor_id,omitempty"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConversationDetail is a conversation with its owned records loaded.
type ConversationDetail struct {
	Conversation
	Messages     []Message      `json:"messages"`
	Prediagnoses []Prediagnosis `json:"prediagnoses"`
}

// CreateConversationRequest is the request to create a new conversation.
type CreateConversationRequest struct {
	Title string `json:"title,omitempty"`
}

// UpdateTitleRequest is the request to rename a conversation.
type UpdateTitleRequest struct {
	Title string `json:"title"`
}

// AssignDoctorRequest is the request to assign a doctor to a conversation.
type AssignDoctorRequest struct {
	DoctorID string `json:"doctor_id"`
}

// ListConversationsResponse is the response for listing conversations.
type ListConversationsResponse struct {
	Conversations []Conversation `json:"conversations"`
	Total         int            `json:"total"`
}
