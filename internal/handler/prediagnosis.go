package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fast-aid/triage-platform/internal/middleware"
	"github.com/fast-aid/triage-platform/internal/model"
	"github.com/fast-aid/triage-platform/internal/report"
	"github.com/fast-aid/triage-platform/internal/service"
	"github.com/fast-aid/triage-platform/internal/triage"
	"github.com/fast-aid/triage-platform/pkg/logger"
)

// PrediagnosisHandler handles prediagnosis endpoints.
type PrediagnosisHandler struct {
	orchestrator  *triage.Orchestrator
	conversations *service.ConversationService
	users         *service.UserService
	logger        *logger.Logger
}

// NewPrediagnosisHandler creates a new prediagnosis handler.
func NewPrediagnosisHandler(o *triage.Orchestrator, convs *service.ConversationService, users *service.UserService, log *logger.Logger) *PrediagnosisHandler {
	return &PrediagnosisHandler{
		orchestrator:  o,
		conversations: convs,
		users:         users,
		logger:        log,
	}
}

// Create handles POST /api/v1/prediagnosis
func (h *PrediagnosisHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var req model.PrediagnosisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateSymptoms(req.Symptoms); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ConversationID != "" {
		if err := middleware.ValidateConversationID(req.ConversationID); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	rec, err := h.orchestrator.CreatePrediagnosis(r.Context(), p, triage.Request{
		Symptoms:       req.Symptoms,
		Duration:       req.Duration,
		Age:            req.Age,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

// My handles GET /api/v1/prediagnosis/my
func (h *PrediagnosisHandler) My(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	recs, err := h.conversations.PatientPrediagnoses(r.Context(), p, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, recs)
}

// Latest handles GET /api/v1/conversations/:id/prediagnosis
func (h *PrediagnosisHandler) Latest(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.conversations.LatestPrediagnosis(r.Context(), p, conversationID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// Report handles GET /api/v1/conversations/:id/prediagnosis/report and
// returns the latest record rendered as a PDF.
func (h *PrediagnosisHandler) Report(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.conversations.LatestPrediagnosis(r.Context(), p, conversationID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	patient, err := h.users.Get(r.Context(), p, rec.PatientID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	data, err := report.Render(rec, patient)
	if err != nil {
		h.logger.Error("failed to render report")
		writeError(w, http.StatusInternalServerError, "failed to render report")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="prediagnosis_%s.pdf"`, rec.ID))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
