package triage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fast-aid/triage-platform/internal/events"
	"github.com/fast-aid/triage-platform/internal/model"
	"github.com/fast-aid/triage-platform/internal/policy"
	"github.com/fast-aid/triage-platform/internal/store"
	"github.com/fast-aid/triage-platform/pkg/logger"
)

// stubGenerator is a deterministic Generator replacement.
type stubGenerator struct {
	ProposeFunc func(ctx context.Context, data PatientData, history *model.MedicalHistory) (*Draft, error)
	calls       int
}

func (s *stubGenerator) Propose(ctx context.Context, data PatientData, history *model.MedicalHistory) (*Draft, error) {
	s.calls++
	if s.ProposeFunc != nil {
		return s.ProposeFunc(ctx, data, history)
	}
	return &Draft{
		PotentialDiseases:        "tension headache",
		CourseOfAction:           "rest and hydrate",
		SupportMessages:          "your symptoms are highly treatable",
		RecommendedPractitioners: "general physician",
	}, nil
}

func (s *stubGenerator) Name() string { return "stub" }

func setup(t *testing.T, gen Generator) (*Orchestrator, *store.Memory, *model.User) {
	t.Helper()
	m := store.NewMemory()
	patient := &model.User{
		Name: "Pat", Email: "pat@example.com", HashedPassword: "x", Role: model.RolePatient,
		MedicalHistory: &model.MedicalHistory{Age: intPtr(34)},
	}
	require.NoError(t, m.CreateUser(context.Background(), patient))

	o := NewOrchestrator(m, gen, events.Noop{}, logger.NewNop(), 0)
	return o, m, patient
}

func intPtr(i int) *int { return &i }

func TestCreatePrediagnosisNewConversation(t *testing.T) {
	ctx := context.Background()
	gen := &stubGenerator{}
	o, m, patient := setup(t, gen)
	principal := policy.Principal{ID: patient.ID, Role: model.RolePatient}

	rec, err := o.CreatePrediagnosis(ctx, principal, Request{
		Symptoms: []string{"headache", "dizziness", "nausea", "fatigue"},
	})
	require.NoError(t, err)

	assert.Equal(t, patient.ID, rec.PatientID)
	assert.Nil(t, rec.DoctorID, "no doctor assigned, record stays unattributed")
	assert.Equal(t, "rest and hydrate", rec.CourseOfAction)

	conv, err := m.GetConversation(ctx, rec.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, "Symptoms: headache, dizziness, nausea", conv.Title)

	convs, err := m.ListConversationsForUser(ctx, patient.ID, 0)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, conv.ID, convs[0].ID)
}

func TestCreatePrediagnosisExistingConversation(t *testing.T) {
	ctx := context.Background()
	gen := &stubGenerator{}
	o, m, patient := setup(t, gen)
	principal := policy.Principal{ID: patient.ID, Role: model.RolePatient}

	conv, err := m.CreateConversation(ctx, patient.ID, "Headache")
	require.NoError(t, err)

	rec, err := o.CreatePrediagnosis(ctx, principal, Request{
		Symptoms:       []string{"headache", "dizziness"},
		ConversationID: conv.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, conv.ID, rec.ConversationID)

	latest, err := m.LatestPrediagnosis(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, latest.ID)
}

func TestCreatePrediagnosisUsesAssignedDoctor(t *testing.T) {
	ctx := context.Background()
	gen := &stubGenerator{}
	o, m, patient := setup(t, gen)
	principal := policy.Principal{ID: patient.ID, Role: model.RolePatient}

	doctor := &model.User{Name: "Doc", Email: "doc@example.com", HashedPassword: "x", Role: model.RoleDoctor}
	require.NoError(t, m.CreateUser(ctx, doctor))
	conv, err := m.CreateConversation(ctx, patient.ID, "Headache")
	require.NoError(t, err)
	_, err = m.AssignDoctor(ctx, conv.ID, doctor.ID)
	require.NoError(t, err)

	rec, err := o.CreatePrediagnosis(ctx, principal, Request{
		Symptoms:       []string{"headache"},
		ConversationID: conv.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, rec.DoctorID)
	assert.Equal(t, doctor.ID, *rec.DoctorID)
}

func TestCreatePrediagnosisConversationNotFound(t *testing.T) {
	gen := &stubGenerator{}
	o, _, patient := setup(t, gen)
	principal := policy.Principal{ID: patient.ID, Role: model.RolePatient}

	_, err := o.CreatePrediagnosis(context.Background(), principal, Request{
		Symptoms:       []string{"headache"},
		ConversationID: "missing",
	})
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Zero(t, gen.calls, "generator must not run for unresolved conversations")
}

func TestCreatePrediagnosisDeniedForNonOwner(t *testing.T) {
	ctx := context.Background()
	gen := &stubGenerator{}
	o, m, _ := setup(t, gen)

	other := &model.User{Name: "Other", Email: "other@example.com", HashedPassword: "x", Role: model.RolePatient}
	require.NoError(t, m.CreateUser(ctx, other))
	conv, err := m.CreateConversation(ctx, other.ID, "Not yours")
	require.NoError(t, err)

	intruder := &model.User{Name: "Intr", Email: "intr@example.com", HashedPassword: "x", Role: model.RolePatient}
	require.NoError(t, m.CreateUser(ctx, intruder))

	_, err = o.CreatePrediagnosis(ctx, policy.Principal{ID: intruder.ID, Role: model.RolePatient}, Request{
		Symptoms:       []string{"headache"},
		ConversationID: conv.ID,
	})
	assert.ErrorIs(t, err, model.ErrAccessDenied)
	assert.Zero(t, gen.calls)
}

func TestCreatePrediagnosisIncompleteDraft(t *testing.T) {
	ctx := context.Background()
	gen := &stubGenerator{
		ProposeFunc: func(ctx context.Context, data PatientData, history *model.MedicalHistory) (*Draft, error) {
			// recommended_practitioners deliberately missing
			return &Draft{
				PotentialDiseases: "migraine",
				CourseOfAction:    "rest",
				SupportMessages:   "it will pass",
			}, nil
		},
	}
	o, m, patient := setup(t, gen)
	principal := policy.Principal{ID: patient.ID, Role: model.RolePatient}

	conv, err := m.CreateConversation(ctx, patient.ID, "Headache")
	require.NoError(t, err)

	_, err = o.CreatePrediagnosis(ctx, principal, Request{
		Symptoms:       []string{"headache"},
		ConversationID: conv.ID,
	})
	assert.ErrorIs(t, err, model.ErrGenerationFailed)

	_, err = m.LatestPrediagnosis(ctx, conv.ID)
	assert.ErrorIs(t, err, model.ErrNotFound, "no record persisted for a failed generation")
}

func TestCreatePrediagnosisGeneratorErrorKeepsConversation(t *testing.T) {
	ctx := context.Background()
	gen := &stubGenerator{
		ProposeFunc: func(ctx context.Context, data PatientData, history *model.MedicalHistory) (*Draft, error) {
			return nil, errors.New("upstream unavailable")
		},
	}
	o, m, patient := setup(t, gen)
	principal := policy.Principal{ID: patient.ID, Role: model.RolePatient}

	_, err := o.CreatePrediagnosis(ctx, principal, Request{Symptoms: []string{"headache"}})
	assert.ErrorIs(t, err, model.ErrGenerationFailed)

	// The freshly created conversation survives so the caller can retry
	// against its id.
	convs, err := m.ListConversationsForUser(ctx, patient.ID, 0)
	require.NoError(t, err)
	require.Len(t, convs, 1)

	rec, err := o.CreatePrediagnosis(ctx, principal, Request{Symptoms: []string{"headache"}, ConversationID: convs[0].ID})
	assert.ErrorIs(t, err, model.ErrGenerationFailed)
	assert.Nil(t, rec)
}

func TestCreatePrediagnosisPassesDerivedAge(t *testing.T) {
	var seen PatientData
	gen := &stubGenerator{
		ProposeFunc: func(ctx context.Context, data PatientData, history *model.MedicalHistory) (*Draft, error) {
			seen = data
			return &Draft{
				PotentialDiseases:        "x",
				CourseOfAction:           "y",
				SupportMessages:          "z",
				RecommendedPractitioners: "w",
			}, nil
		},
	}
	o, _, patient := setup(t, gen)
	principal := policy.Principal{ID: patient.ID, Role: model.RolePatient}

	_, err := o.CreatePrediagnosis(context.Background(), principal, Request{Symptoms: []string{"cough"}})
	require.NoError(t, err)
	require.NotNil(t, seen.Age)
	assert.Equal(t, 34, *seen.Age, "age derived from stored medical history")
}

func TestCreatePrediagnosisRequiresPatientRole(t *testing.T) {
	gen := &stubGenerator{}
	o, _, _ := setup(t, gen)

	_, err := o.CreatePrediagnosis(context.Background(), policy.Principal{ID: "d1", Role: model.RoleDoctor}, Request{
		Symptoms: []string{"headache"},
	})
	assert.ErrorIs(t, err, model.ErrAccessDenied)
}

func TestCreatePrediagnosisRequiresSymptoms(t *testing.T) {
	gen := &stubGenerator{}
	o, _, patient := setup(t, gen)

	_, err := o.CreatePrediagnosis(context.Background(), policy.Principal{ID: patient.ID, Role: model.RolePatient}, Request{})
	assert.ErrorIs(t, err, model.ErrNoSymptoms)
}

func TestCreatePrediagnosisNoGeneratorConfigured(t *testing.T) {
	o, _, patient := setup(t, nil)

	_, err := o.CreatePrediagnosis(context.Background(), policy.Principal{ID: patient.ID, Role: model.RolePatient}, Request{
		Symptoms: []string{"headache"},
	})
	assert.ErrorIs(t, err, model.ErrGenerationFailed)
}
