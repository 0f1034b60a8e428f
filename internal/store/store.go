// Package store provides durable storage for users, conversations, messages,
// and prediagnoses. Two implementations exist: Postgres for production and an
// in-memory store for tests and dependency-free development runs.
package store

import (
	"context"

	"github.com/fast-aid/triage-platform/internal/model"
)

// DefaultConversationLimit caps unbounded conversation listings.
const DefaultConversationLimit = 50

// Store is the transactional storage handle threaded through every operation.
//
// All "get by id" calls return model.ErrNotFound when the id does not
// resolve; callers must branch explicitly. AppendMessage inserts the message
// and bumps the parent conversation's UpdatedAt atomically as one unit.
type Store interface {
	// Users
	CreateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateMedicalHistory(ctx context.Context, userID string, history *model.MedicalHistory) (*model.User, error)

	// Conversations
	CreateConversation(ctx context.Context, patientID, title string) (*model.Conversation, error)
	GetConversation(ctx context.Context, id string) (*model.Conversation, error)
	ListConversationsForUser(ctx context.Context, userID string, limit int) ([]model.Conversation, error)
	AssignDoctor(ctx context.Context, conversationID, doctorID string) (*model.Conversation, error)
	RemoveDoctor(ctx context.Context, conversationID string) (*model.Conversation, error)
	UpdateConversationTitle(ctx context.Context, conversationID, title string) (*model.Conversation, error)
	DeleteConversation(ctx context.Context, id string) error

	// Messages
	AppendMessage(ctx context.Context, conversationID, senderID string, role model.MessageRole, content string) (*model.Message, error)
	ListMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error)

	// Prediagnoses
	RecordPrediagnosis(ctx context.Context, p *model.Prediagnosis) (*model.Prediagnosis, error)
	LatestPrediagnosis(ctx context.Context, conversationID string) (*model.Prediagnosis, error)
	ListPrediagnoses(ctx context.Context, conversationID string) ([]model.Prediagnosis, error)
	ListPatientPrediagnoses(ctx context.Context, patientID string, limit int) ([]model.Prediagnosis, error)

	// Ping reports whether the underlying storage is reachable.
	Ping(ctx context.Context) error
}

// capLimit clamps a listing limit to (0, max].
func capLimit(limit, max int) int {
	if limit <= 0 || limit > max {
		return max
	}
	return limit
}
