package triage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fast-aid/triage-platform/internal/events"
	"github.com/fast-aid/triage-platform/internal/model"
	"github.com/fast-aid/triage-platform/internal/policy"
	"github.com/fast-aid/triage-platform/internal/store"
	"github.com/fast-aid/triage-platform/pkg/logger"
	"github.com/fast-aid/triage-platform/pkg/metrics"
)

// DefaultGenerationTimeout bounds the external generator call.
const DefaultGenerationTimeout = 60 * time.Second

// Orchestrator coordinates the create-prediagnosis use case: resolve the
// conversation, call the external generator, and persist the draft.
type Orchestrator struct {
	store     store.Store
	generator Generator
	events    events.Publisher
	logger    *logger.Logger
	timeout   time.Duration
}

// NewOrchestrator creates a triage orchestrator. A nil generator is allowed;
// generation requests then fail until a provider is configured.
func NewOrchestrator(s store.Store, gen Generator, pub events.Publisher, log *logger.Logger, timeout time.Duration) *Orchestrator {
	if timeout <= 0 {
		timeout = DefaultGenerationTimeout
	}
	return &Orchestrator{
		store:     s,
		generator: gen,
		events:    pub,
		logger:    log,
		timeout:   timeout,
	}
}

// Request carries the parameters of a create-prediagnosis call. When
// ConversationID is empty a new conversation is created for the principal;
// otherwise the existing one is resolved and ownership enforced.
type Request struct {
	Symptoms       []string
	Duration       string
	Age            *int
	ConversationID string
}

// CreatePrediagnosis runs the triage flow for a patient principal.
//
// Conversation resolution commits independently of generation: when the
// generator fails, the conversation (freshly created or pre-existing) stays
// as is and the caller can retry against its id. Nothing is persisted for a
// failed generation attempt.
func (o *Orchestrator) CreatePrediagnosis(ctx context.Context, p policy.Principal, req Request) (*model.Prediagnosis, error) {
	if p.Role != model.RolePatient {
		return nil, model.ErrAccessDenied
	}
	if len(req.Symptoms) == 0 {
		return nil, model.ErrNoSymptoms
	}

	patient, err := o.store.GetUser(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	conv, err := o.resolveConversation(ctx, p, req)
	if err != nil {
		return nil, err
	}

	age := req.Age
	if age == nil && patient.MedicalHistory != nil {
		age = patient.MedicalHistory.Age
	}
	data := PatientData{
		Symptoms: req.Symptoms,
		Duration: req.Duration,
		Age:      age,
	}

	draft, err := o.generate(ctx, data, patient.MedicalHistory)
	if err != nil {
		o.logger.Warn("prediagnosis generation failed",
			zap.String("conversation_id", conv.ID),
			zap.Error(err),
		)
		return nil, err
	}

	rec, err := o.store.RecordPrediagnosis(ctx, &model.Prediagnosis{
		ConversationID:           conv.ID,
		PatientID:                conv.PatientID,
		DoctorID:                 conv.DoctorID,
		PotentialDiseases:        draft.PotentialDiseases,
		CourseOfAction:           draft.CourseOfAction,
		SupportMessages:          draft.SupportMessages,
		RecommendedPractitioners: draft.RecommendedPractitioners,
	})
	if err != nil {
		return nil, fmt.Errorf("persist prediagnosis: %w", err)
	}

	metrics.PrediagnosesTotal.Inc()
	o.events.Publish(ctx, events.Event{
		Type:           events.TypePrediagnosisCreated,
		ConversationID: conv.ID,
		ActorID:        p.ID,
		Payload:        rec,
	})

	return rec, nil
}

// resolveConversation creates a conversation with a symptom-derived title, or
// fetches the requested one and enforces that the principal owns it.
func (o *Orchestrator) resolveConversation(ctx context.Context, p policy.Principal, req Request) (*model.Conversation, error) {
	if req.ConversationID == "" {
		conv, err := o.store.CreateConversation(ctx, p.ID, deriveTitle(req.Symptoms))
		if err != nil {
			return nil, fmt.Errorf("create conversation: %w", err)
		}
		metrics.ConversationsTotal.Inc()
		o.events.Publish(ctx, events.Event{
			Type:           events.TypeConversationCreated,
			ConversationID: conv.ID,
			ActorID:        p.ID,
		})
		return conv, nil
	}

	conv, err := o.store.GetConversation(ctx, req.ConversationID)
	if err != nil {
		return nil, err
	}
	if conv.PatientID != p.ID {
		return nil, model.ErrAccessDenied
	}
	return conv, nil
}

// generate calls the external generator inside its timeout boundary. A
// deadline expiry is a generation failure; no partial persistence happens.
func (o *Orchestrator) generate(ctx context.Context, data PatientData, history *model.MedicalHistory) (*Draft, error) {
	if o.generator == nil {
		return nil, fmt.Errorf("%w: no generator configured", model.ErrGenerationFailed)
	}

	genCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	draft, err := o.generator.Propose(genCtx, data, history)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		metrics.RecordGeneration(o.generator.Name(), "error", elapsed)
		if errors.Is(err, model.ErrGenerationFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", model.ErrGenerationFailed, err)
	}
	if err := draft.Validate(); err != nil {
		metrics.RecordGeneration(o.generator.Name(), "incomplete", elapsed)
		return nil, err
	}

	metrics.RecordGeneration(o.generator.Name(), "success", elapsed)
	return draft, nil
}

// deriveTitle builds a conversation title from the first few symptom terms.
func deriveTitle(symptoms []string) string {
	n := len(symptoms)
	if n > 3 {
		n = 3
	}
	return "Symptoms: " + strings.Join(symptoms[:n], ", ")
}
