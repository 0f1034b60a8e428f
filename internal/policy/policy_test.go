package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fast-aid/triage-platform/internal/model"
)

func strPtr(s string) *string { return &s }

func TestCanAccessConversation(t *testing.T) {
	conv := &model.Conversation{
		ID:        "c1",
		PatientID: "patient-1",
		DoctorID:  strPtr("doctor-1"),
	}
	unassigned := &model.Conversation{
		ID:        "c2",
		PatientID: "patient-1",
	}

	tests := []struct {
		name string
		p    Principal
		conv *model.Conversation
		want bool
	}{
		{"owning patient", Principal{"patient-1", model.RolePatient}, conv, true},
		{"other patient", Principal{"patient-2", model.RolePatient}, conv, false},
		{"assigned doctor", Principal{"doctor-1", model.RoleDoctor}, conv, true},
		{"unassigned doctor", Principal{"doctor-2", model.RoleDoctor}, conv, false},
		{"doctor on unassigned conversation", Principal{"doctor-1", model.RoleDoctor}, unassigned, false},
		{"admin has no general access", Principal{"admin-1", model.RoleAdmin}, conv, false},
		{"unknown role", Principal{"x", model.Role("auditor")}, conv, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanAccessConversation(tt.p, tt.conv))
		})
	}
}

func TestCanAssignDoctor(t *testing.T) {
	conv := &model.Conversation{ID: "c1", PatientID: "patient-1"}

	tests := []struct {
		name string
		p    Principal
		want bool
	}{
		{"owning patient", Principal{"patient-1", model.RolePatient}, true},
		{"other patient", Principal{"patient-2", model.RolePatient}, false},
		{"doctor", Principal{"doctor-1", model.RoleDoctor}, false},
		{"admin regardless of ownership", Principal{"admin-1", model.RoleAdmin}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanAssignDoctor(tt.p, conv))
		})
	}
}

func TestCanReadUser(t *testing.T) {
	assert.True(t, CanReadUser(Principal{"u1", model.RolePatient}, "u1"))
	assert.False(t, CanReadUser(Principal{"u1", model.RolePatient}, "u2"))
	assert.True(t, CanReadUser(Principal{"d1", model.RoleDoctor}, "u2"))
	assert.True(t, CanReadUser(Principal{"a1", model.RoleAdmin}, "u2"))
}

func TestCanUpdateMedicalHistory(t *testing.T) {
	assert.True(t, CanUpdateMedicalHistory(Principal{"u1", model.RolePatient}, "u1"))
	assert.False(t, CanUpdateMedicalHistory(Principal{"u1", model.RolePatient}, "u2"))
	assert.False(t, CanUpdateMedicalHistory(Principal{"d1", model.RoleDoctor}, "u2"))
	assert.True(t, CanUpdateMedicalHistory(Principal{"a1", model.RoleAdmin}, "u2"))
}
