package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fast-aid/triage-platform/internal/events"
	"github.com/fast-aid/triage-platform/internal/model"
	"github.com/fast-aid/triage-platform/internal/policy"
	"github.com/fast-aid/triage-platform/internal/store"
	"github.com/fast-aid/triage-platform/pkg/logger"
	"github.com/fast-aid/triage-platform/pkg/metrics"
)

const defaultConversationTitle = "New Conversation"

// ConversationService composes the access policy and the conversation store.
// Every operation confirms existence first, then evaluates policy, then acts.
type ConversationService struct {
	store  store.Store
	events events.Publisher
	logger *logger.Logger
}

// NewConversationService creates a new conversation service.
func NewConversationService(s store.Store, pub events.Publisher, log *logger.Logger) *ConversationService {
	return &ConversationService{
		store:  s,
		events: pub,
		logger: log,
	}
}

// Create starts a new conversation owned by the patient principal.
func (s *ConversationService) Create(ctx context.Context, p policy.Principal, title string) (*model.Conversation, error) {
	if p.Role != model.RolePatient {
		return nil, model.ErrAccessDenied
	}
	if title == "" {
		title = defaultConversationTitle
	}

	conv, err := s.store.CreateConversation(ctx, p.ID, title)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	metrics.ConversationsTotal.Inc()
	s.events.Publish(ctx, events.Event{
		Type:           events.TypeConversationCreated,
		ConversationID: conv.ID,
		ActorID:        p.ID,
	})
	return conv, nil
}

// List returns the principal's conversations, most recently updated first.
func (s *ConversationService) List(ctx context.Context, p policy.Principal, limit int) ([]model.Conversation, error) {
	return s.store.ListConversationsForUser(ctx, p.ID, limit)
}

// Get returns a conversation with its messages and prediagnoses loaded.
func (s *ConversationService) Get(ctx context.Context, p policy.Principal, conversationID string) (*model.ConversationDetail, error) {
	conv, err := s.authorize(ctx, p, conversationID)
	if err != nil {
		return nil, err
	}

	msgs, err := s.store.ListMessages(ctx, conversationID, 0)
	if err != nil {
		return nil, err
	}
	recs, err := s.store.ListPrediagnoses(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	return &model.ConversationDetail{
		Conversation: *conv,
		Messages:     msgs,
		Prediagnoses: recs,
	}, nil
}

// UpdateTitle renames a conversation.
func (s *ConversationService) UpdateTitle(ctx context.Context, p policy.Principal, conversationID, title string) (*model.Conversation, error) {
	if _, err := s.authorize(ctx, p, conversationID); err != nil {
		return nil, err
	}
	return s.store.UpdateConversationTitle(ctx, conversationID, title)
}

// Delete removes a conversation and everything it owns. Only the owning
// patient may delete.
func (s *ConversationService) Delete(ctx context.Context, p policy.Principal, conversationID string) error {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if p.Role != model.RolePatient || conv.PatientID != p.ID {
		return model.ErrAccessDenied
	}
	return s.store.DeleteConversation(ctx, conversationID)
}

// AssignDoctor assigns a doctor to a conversation. Allowed for the owning
// patient and for admins; the target must be an existing user with role
// doctor, verified before any mutation.
func (s *ConversationService) AssignDoctor(ctx context.Context, p policy.Principal, conversationID, doctorID string) (*model.Conversation, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !policy.CanAssignDoctor(p, conv) {
		return nil, model.ErrAccessDenied
	}

	doctor, err := s.store.GetUser(ctx, doctorID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("%w: doctor %s does not exist", model.ErrInvalidReference, doctorID)
		}
		return nil, err
	}
	if doctor.Role != model.RoleDoctor {
		return nil, fmt.Errorf("%w: user %s is not a doctor", model.ErrInvalidReference, doctorID)
	}

	updated, err := s.store.AssignDoctor(ctx, conversationID, doctorID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("doctor assigned",
		zap.String("conversation_id", conversationID),
		zap.String("doctor_id", doctorID),
	)
	s.events.Publish(ctx, events.Event{
		Type:           events.TypeDoctorAssigned,
		ConversationID: conversationID,
		ActorID:        p.ID,
		Payload:        map[string]string{"doctor_id": doctorID},
	})
	return updated, nil
}

// RemoveDoctor clears a conversation's doctor assignment. Same access rule as
// AssignDoctor.
func (s *ConversationService) RemoveDoctor(ctx context.Context, p policy.Principal, conversationID string) (*model.Conversation, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !policy.CanAssignDoctor(p, conv) {
		return nil, model.ErrAccessDenied
	}

	updated, err := s.store.RemoveDoctor(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, events.Event{
		Type:           events.TypeDoctorRemoved,
		ConversationID: conversationID,
		ActorID:        p.ID,
	})
	return updated, nil
}

// AppendMessage adds a message to a conversation on behalf of the principal.
func (s *ConversationService) AppendMessage(ctx context.Context, p policy.Principal, conversationID string, req *model.CreateMessageRequest) (*model.Message, error) {
	if _, err := s.authorize(ctx, p, conversationID); err != nil {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = model.MessageRoleUser
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown message role %q", model.ErrInvalidReference, req.Role)
	}

	msg, err := s.store.AppendMessage(ctx, conversationID, p.ID, role, req.Content)
	if err != nil {
		return nil, err
	}

	metrics.MessagesTotal.WithLabelValues(string(role)).Inc()
	s.events.Publish(ctx, events.Event{
		Type:           events.TypeMessageAppended,
		ConversationID: conversationID,
		ActorID:        p.ID,
	})
	return msg, nil
}

// ListMessages returns a conversation's messages in append order.
func (s *ConversationService) ListMessages(ctx context.Context, p policy.Principal, conversationID string, limit int) ([]model.Message, error) {
	if _, err := s.authorize(ctx, p, conversationID); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, conversationID, limit)
}

// LatestPrediagnosis returns the most recently created prediagnosis of a
// conversation.
func (s *ConversationService) LatestPrediagnosis(ctx context.Context, p policy.Principal, conversationID string) (*model.Prediagnosis, error) {
	if _, err := s.authorize(ctx, p, conversationID); err != nil {
		return nil, err
	}
	return s.store.LatestPrediagnosis(ctx, conversationID)
}

// PatientPrediagnoses returns the principal's own prediagnosis history.
func (s *ConversationService) PatientPrediagnoses(ctx context.Context, p policy.Principal, limit int) ([]model.Prediagnosis, error) {
	if p.Role != model.RolePatient {
		return nil, model.ErrAccessDenied
	}
	if limit <= 0 {
		limit = 10
	}
	return s.store.ListPatientPrediagnoses(ctx, p.ID, limit)
}

// authorize confirms the conversation exists, then evaluates general access
// policy for the principal. NotFound is reported before any policy decision.
func (s *ConversationService) authorize(ctx context.Context, p policy.Principal, conversationID string) (*model.Conversation, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !policy.CanAccessConversation(p, conv) {
		return nil, model.ErrAccessDenied
	}
	return conv, nil
}
