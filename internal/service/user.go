// Package service provides the policy-gated business logic of the triage
// platform.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/fast-aid/triage-platform/internal/auth"
	"github.com/fast-aid/triage-platform/internal/model"
	"github.com/fast-aid/triage-platform/internal/policy"
	"github.com/fast-aid/triage-platform/internal/store"
	"github.com/fast-aid/triage-platform/pkg/logger"
)

// UserService handles registration, login, and user record access.
type UserService struct {
	store     store.Store
	jwtSecret string
	jwtTTL    time.Duration
	logger    *logger.Logger
}

// NewUserService creates a new user service.
func NewUserService(s store.Store, jwtSecret string, jwtTTL time.Duration, log *logger.Logger) *UserService {
	return &UserService{
		store:     s,
		jwtSecret: jwtSecret,
		jwtTTL:    jwtTTL,
		logger:    log,
	}
}

// Register creates a new user. The role defaults to patient; unknown roles
// are rejected.
func (s *UserService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	role := req.Role
	if role == "" {
		role = model.RolePatient
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", model.ErrInvalidReference, req.Role)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Name:           req.Name,
		Email:          req.Email,
		HashedPassword: string(hashed),
		Role:           role,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)),
	)
	return user, nil
}

// Login verifies credentials and issues an access token.
func (s *UserService) Login(ctx context.Context, email, password string) (*model.TokenResponse, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	token, err := auth.NewToken(user, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return nil, err
	}

	return &model.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        user,
	}, nil
}

// Get returns a user record, policy permitting.
func (s *UserService) Get(ctx context.Context, p policy.Principal, userID string) (*model.User, error) {
	if !policy.CanReadUser(p, userID) {
		return nil, model.ErrAccessDenied
	}
	return s.store.GetUser(ctx, userID)
}

// UpdateMedicalHistory replaces a patient's medical history document.
func (s *UserService) UpdateMedicalHistory(ctx context.Context, p policy.Principal, userID string, history *model.MedicalHistory) (*model.User, error) {
	if !policy.CanUpdateMedicalHistory(p, userID) {
		return nil, model.ErrAccessDenied
	}
	return s.store.UpdateMedicalHistory(ctx, userID, history)
}
