// Package model defines the data structures shared across the triage platform.
package model

import (
	"time"
)

// Role represents a user's role in the system.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}

// MedicalHistory is the structured medical background a patient maintains.
// All fields are optional; the document travels opaquely through storage.
type MedicalHistory struct {
	Age                *int     `json:"age,omitempty"`
	Gender             string   `json:"gender,omitempty"`
	HeightCm           *float64 `json:"height_cm,omitempty"`
	WeightKg           *float64 `json:"weight_kg,omitempty"`
	BloodType          string   `json:"blood_type,omitempty"`
	ChronicConditions  []string `json:"chronic_conditions,omitempty"`
	Allergies          []string `json:"allergies,omitempty"`
	CurrentMedications []string `json:"current_medications,omitempty"`
}

// User represents a registered principal: patient, doctor, or admin.
type User struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	HashedPassword string          `json:"-"`
	Role           Role            `json:"role"`
	MedicalHistory *MedicalHistory `json:"medical_history,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// RegisterRequest is the request to create a new user.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role,omitempty"`
}

// LoginRequest is the request to authenticate a user.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is returned on successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        *User  `json:"user"`
}
