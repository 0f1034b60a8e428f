package model

import "errors"

// Domain error taxonomy. Callers branch with errors.Is; the HTTP boundary maps
// each to its transport representation.
var (
	// ErrNotFound means the requested resource id does not resolve. Existence
	// is always checked before any policy decision.
	ErrNotFound = errors.New("resource not found")

	// ErrAccessDenied means the access policy evaluated false for the
	// principal and resource. Never retried.
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidReference means a referenced id does not satisfy its role
	// constraint, e.g. assigning a non-doctor as doctor. Rejected before any
	// mutation.
	ErrInvalidReference = errors.New("invalid reference")

	// ErrGenerationFailed means the external generator errored, timed out, or
	// returned an incomplete draft. Nothing is persisted for the attempt.
	ErrGenerationFailed = errors.New("prediagnosis generation failed")

	// ErrEmptyContent means a message was submitted without content.
	ErrEmptyContent = errors.New("message content cannot be empty")

	// ErrNoSymptoms means a prediagnosis was requested without symptoms.
	ErrNoSymptoms = errors.New("at least one symptom is required")

	// ErrEmailTaken means registration used an already registered email.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials means login failed. The cause (unknown email or
	// wrong password) is deliberately not distinguished.
	ErrInvalidCredentials = errors.New("incorrect email or password")
)
