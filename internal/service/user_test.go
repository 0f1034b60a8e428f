package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fast-aid/triage-platform/internal/auth"
	"github.com/fast-aid/triage-platform/internal/model"
	"github.com/fast-aid/triage-platform/internal/policy"
	"github.com/fast-aid/triage-platform/internal/store"
	"github.com/fast-aid/triage-platform/pkg/logger"
)

func newUserService(t *testing.T) (*UserService, *store.Memory) {
	t.Helper()
	m := store.NewMemory()
	return NewUserService(m, "test-secret", time.Hour, logger.NewNop()), m
}

func TestRegisterDefaultsToPatient(t *testing.T) {
	svc, _ := newUserService(t)

	u, err := svc.Register(context.Background(), &model.RegisterRequest{
		Name: "Pat", Email: "pat@example.com", Password: "s3cret",
	})
	require.NoError(t, err)
	assert.Equal(t, model.RolePatient, u.Role)
	assert.NotEmpty(t, u.ID)
	assert.NotEqual(t, "s3cret", u.HashedPassword)
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	svc, _ := newUserService(t)

	_, err := svc.Register(context.Background(), &model.RegisterRequest{
		Name: "X", Email: "x@example.com", Password: "pw", Role: model.Role("superuser"),
	})
	assert.ErrorIs(t, err, model.ErrInvalidReference)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &model.RegisterRequest{Name: "A", Email: "dup@example.com", Password: "pw"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, &model.RegisterRequest{Name: "B", Email: "dup@example.com", Password: "pw"})
	assert.ErrorIs(t, err, model.ErrEmailTaken)
}

func TestLogin(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, &model.RegisterRequest{Name: "Pat", Email: "pat@example.com", Password: "s3cret"})
	require.NoError(t, err)

	resp, err := svc.Login(ctx, "pat@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, u.ID, resp.User.ID)

	p, err := auth.ParseToken(resp.AccessToken, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.ID)
	assert.Equal(t, model.RolePatient, p.Role)
}

func TestLoginBadCredentials(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &model.RegisterRequest{Name: "Pat", Email: "pat@example.com", Password: "s3cret"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "pat@example.com", "wrong")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)

	// Unknown emails get the same error as a wrong password.
	_, err = svc.Login(ctx, "nobody@example.com", "s3cret")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)
}

func TestGetUserPolicy(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	a, err := svc.Register(ctx, &model.RegisterRequest{Name: "A", Email: "a@example.com", Password: "pw"})
	require.NoError(t, err)
	b, err := svc.Register(ctx, &model.RegisterRequest{Name: "B", Email: "b@example.com", Password: "pw"})
	require.NoError(t, err)
	doc, err := svc.Register(ctx, &model.RegisterRequest{Name: "D", Email: "d@example.com", Password: "pw", Role: model.RoleDoctor})
	require.NoError(t, err)

	_, err = svc.Get(ctx, policy.Principal{ID: a.ID, Role: model.RolePatient}, a.ID)
	assert.NoError(t, err)

	_, err = svc.Get(ctx, policy.Principal{ID: a.ID, Role: model.RolePatient}, b.ID)
	assert.ErrorIs(t, err, model.ErrAccessDenied)

	_, err = svc.Get(ctx, policy.Principal{ID: doc.ID, Role: model.RoleDoctor}, a.ID)
	assert.NoError(t, err)
}

func TestUpdateMedicalHistoryPolicy(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	pat, err := svc.Register(ctx, &model.RegisterRequest{Name: "Pat", Email: "pat@example.com", Password: "pw"})
	require.NoError(t, err)
	doc, err := svc.Register(ctx, &model.RegisterRequest{Name: "Doc", Email: "doc@example.com", Password: "pw", Role: model.RoleDoctor})
	require.NoError(t, err)

	age := 29
	history := &model.MedicalHistory{Age: &age, ChronicConditions: []string{"asthma"}}

	updated, err := svc.UpdateMedicalHistory(ctx, policy.Principal{ID: pat.ID, Role: model.RolePatient}, pat.ID, history)
	require.NoError(t, err)
	require.NotNil(t, updated.MedicalHistory)
	assert.Equal(t, 29, *updated.MedicalHistory.Age)

	_, err = svc.UpdateMedicalHistory(ctx, policy.Principal{ID: doc.ID, Role: model.RoleDoctor}, pat.ID, history)
	assert.ErrorIs(t, err, model.ErrAccessDenied)
}
