package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fast-aid/triage-platform/internal/model"
	"github.com/fast-aid/triage-platform/pkg/metrics"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// writeServiceError maps a service error onto an HTTP status. Existence is
// reported before access, so a missing resource is always 404 regardless of
// who asked.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, model.ErrAccessDenied):
		metrics.AccessDeniedTotal.WithLabelValues(r.URL.Path).Inc()
		writeError(w, http.StatusForbidden, "access denied")
	case errors.Is(err, model.ErrInvalidReference),
		errors.Is(err, model.ErrEmailTaken),
		errors.Is(err, model.ErrNoSymptoms),
		errors.Is(err, model.ErrEmptyContent):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, model.ErrGenerationFailed):
		writeError(w, http.StatusBadGateway, "prediagnosis generation failed")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
