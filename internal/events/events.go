// Package events publishes triage domain events for downstream review
// tooling. Publishing is best effort: failures are logged and never fail the
// originating request.
package events

import (
	"context"
	"time"
)

// Type identifies a domain event.
type Type string

const (
	TypeConversationCreated Type = "conversation.created"
	TypeMessageAppended     Type = "message.appended"
	TypeDoctorAssigned      Type = "doctor.assigned"
	TypeDoctorRemoved       Type = "doctor.removed"
	TypePrediagnosisCreated Type = "prediagnosis.created"
)

// Event is a single domain event.
type Event struct {
	Type           Type      `json:"type"`
	ConversationID string    `json:"conversation_id"`
	ActorID        string    `json:"actor_id,omitempty"`
	At             time.Time `json:"at"`
	Payload        any       `json:"payload,omitempty"`
}

// Publisher emits domain events.
type Publisher interface {
	Publish(ctx context.Context, e Event)
	Close()
}

// Noop discards all events. Used when no broker is configured and in tests.
type Noop struct{}

func (Noop) Publish(ctx context.Context, e Event) {}
func (Noop) Close()                               {}
