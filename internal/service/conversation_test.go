package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fast-aid/triage-platform/internal/events"
	"github.com/fast-aid/triage-platform/internal/model"
	"github.com/fast-aid/triage-platform/internal/policy"
	"github.com/fast-aid/triage-platform/internal/store"
	"github.com/fast-aid/triage-platform/pkg/logger"
)

type fixture struct {
	svc     *ConversationService
	store   *store.Memory
	patient *model.User
	doctor  *model.User
	admin   *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	m := store.NewMemory()

	patient := &model.User{Name: "Pat", Email: "pat@example.com", HashedPassword: "x", Role: model.RolePatient}
	doctor := &model.User{Name: "Doc", Email: "doc@example.com", HashedPassword: "x", Role: model.RoleDoctor}
	admin := &model.User{Name: "Adm", Email: "adm@example.com", HashedPassword: "x", Role: model.RoleAdmin}
	for _, u := range []*model.User{patient, doctor, admin} {
		require.NoError(t, m.CreateUser(ctx, u))
	}

	return &fixture{
		svc:     NewConversationService(m, events.Noop{}, logger.NewNop()),
		store:   m,
		patient: patient,
		doctor:  doctor,
		admin:   admin,
	}
}

func (f *fixture) principal(u *model.User) policy.Principal {
	return policy.Principal{ID: u.ID, Role: u.Role}
}

func TestCreateConversationPatientOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conv, err := f.svc.Create(ctx, f.principal(f.patient), "")
	require.NoError(t, err)
	assert.Equal(t, "New Conversation", conv.Title)
	assert.Equal(t, f.patient.ID, conv.PatientID)

	_, err = f.svc.Create(ctx, f.principal(f.doctor), "Headache")
	assert.ErrorIs(t, err, model.ErrAccessDenied)
}

func TestCrossTenantDenial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conv, err := f.svc.Create(ctx, f.principal(f.patient), "Headache")
	require.NoError(t, err)

	other := &model.User{Name: "U2", Email: "u2@example.com", HashedPassword: "x", Role: model.RolePatient}
	require.NoError(t, f.store.CreateUser(ctx, other))

	_, err = f.svc.ListMessages(ctx, f.principal(other), conv.ID, 0)
	assert.ErrorIs(t, err, model.ErrAccessDenied)

	_, err = f.svc.Get(ctx, f.principal(other), conv.ID)
	assert.ErrorIs(t, err, model.ErrAccessDenied)
}

func TestNotFoundBeforePolicy(t *testing.T) {
	f := newFixture(t)

	// A missing conversation is NotFound even for a principal that would be
	// denied on an existing one.
	_, err := f.svc.ListMessages(context.Background(), f.principal(f.admin), "missing", 0)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestAssignDoctor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conv, err := f.svc.Create(ctx, f.principal(f.patient), "Headache")
	require.NoError(t, err)

	updated, err := f.svc.AssignDoctor(ctx, f.principal(f.patient), conv.ID, f.doctor.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.DoctorID)
	assert.Equal(t, f.doctor.ID, *updated.DoctorID)

	// The assigned doctor can now read the conversation.
	_, err = f.svc.Get(ctx, f.principal(f.doctor), conv.ID)
	assert.NoError(t, err)
}

func TestAssignDoctorByAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conv, err := f.svc.Create(ctx, f.principal(f.patient), "Headache")
	require.NoError(t, err)

	updated, err := f.svc.AssignDoctor(ctx, f.principal(f.admin), conv.ID, f.doctor.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.DoctorID)
	assert.Equal(t, f.doctor.ID, *updated.DoctorID)
}

func TestAssignDoctorDeniedForNonOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conv, err := f.svc.Create(ctx, f.principal(f.patient), "Headache")
	require.NoError(t, err)

	_, err = f.svc.AssignDoctor(ctx, f.principal(f.doctor), conv.ID, f.doctor.ID)
	assert.ErrorIs(t, err, model.ErrAccessDenied)

	unchanged, err := f.store.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Nil(t, unchanged.DoctorID, "doctor_id unchanged after denial")
}

func TestAssignDoctorInvalidReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conv, err := f.svc.Create(ctx, f.principal(f.patient), "Headache")
	require.NoError(t, err)

	// Nonexistent target user.
	_, err = f.svc.AssignDoctor(ctx, f.principal(f.patient), conv.ID, "missing")
	assert.ErrorIs(t, err, model.ErrInvalidReference)

	// Existing target that is not a doctor.
	_, err = f.svc.AssignDoctor(ctx, f.principal(f.patient), conv.ID, f.admin.ID)
	assert.ErrorIs(t, err, model.ErrInvalidReference)

	unchanged, err := f.store.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Nil(t, unchanged.DoctorID, "no mutation on invalid reference")
}

func TestRemoveDoctor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conv, err := f.svc.Create(ctx, f.principal(f.patient), "Headache")
	require.NoError(t, err)
	_, err = f.svc.AssignDoctor(ctx, f.principal(f.patient), conv.ID, f.doctor.ID)
	require.NoError(t, err)

	_, err = f.svc.RemoveDoctor(ctx, f.principal(f.doctor), conv.ID)
	assert.ErrorIs(t, err, model.ErrAccessDenied)

	updated, err := f.svc.RemoveDoctor(ctx, f.principal(f.admin), conv.ID)
	require.NoError(t, err)
	assert.Nil(t, updated.DoctorID)
}

func TestAppendMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conv, err := f.svc.Create(ctx, f.principal(f.patient), "Headache")
	require.NoError(t, err)

	msg, err := f.svc.AppendMessage(ctx, f.principal(f.patient), conv.ID, &model.CreateMessageRequest{
		Content: "my head hurts",
	})
	require.NoError(t, err)
	assert.Equal(t, model.MessageRoleUser, msg.Role, "role defaults to user")
	assert.Equal(t, f.patient.ID, msg.SenderID)

	_, err = f.svc.AppendMessage(ctx, f.principal(f.patient), conv.ID, &model.CreateMessageRequest{
		Role: model.MessageRole("moderator"), Content: "x",
	})
	assert.ErrorIs(t, err, model.ErrInvalidReference)

	_, err = f.svc.AppendMessage(ctx, f.principal(f.patient), conv.ID, &model.CreateMessageRequest{})
	assert.ErrorIs(t, err, model.ErrEmptyContent)
}

func TestLatestPrediagnosisAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conv, err := f.svc.Create(ctx, f.principal(f.patient), "Headache")
	require.NoError(t, err)

	_, err = f.svc.LatestPrediagnosis(ctx, f.principal(f.patient), conv.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = f.store.RecordPrediagnosis(ctx, &model.Prediagnosis{
		ConversationID: conv.ID, PatientID: f.patient.ID, PotentialDiseases: "migraine",
	})
	require.NoError(t, err)

	rec, err := f.svc.LatestPrediagnosis(ctx, f.principal(f.patient), conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "migraine", rec.PotentialDiseases)

	// Unassigned doctor cannot read it.
	_, err = f.svc.LatestPrediagnosis(ctx, f.principal(f.doctor), conv.ID)
	assert.ErrorIs(t, err, model.ErrAccessDenied)
}

func TestDeleteConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conv, err := f.svc.Create(ctx, f.principal(f.patient), "Headache")
	require.NoError(t, err)

	err = f.svc.Delete(ctx, f.principal(f.admin), conv.ID)
	assert.ErrorIs(t, err, model.ErrAccessDenied)

	require.NoError(t, f.svc.Delete(ctx, f.principal(f.patient), conv.ID))
	_, err = f.store.GetConversation(ctx, conv.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestPatientPrediagnoses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conv, err := f.svc.Create(ctx, f.principal(f.patient), "Headache")
	require.NoError(t, err)
	_, err = f.store.RecordPrediagnosis(ctx, &model.Prediagnosis{ConversationID: conv.ID, PatientID: f.patient.ID})
	require.NoError(t, err)

	recs, err := f.svc.PatientPrediagnoses(ctx, f.principal(f.patient), 0)
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	_, err = f.svc.PatientPrediagnoses(ctx, f.principal(f.doctor), 0)
	assert.ErrorIs(t, err, model.ErrAccessDenied)
}
