package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"planthealth/internal/api/v1/dto"
	"planthealth/internal/middleware"
	"planthealth/internal/model"
	"planthealth/internal/service"

	"github.com/rs/zerolog"
)

// maxImageBytes caps diagnosis uploads at 10 MiB.
const maxImageBytes = 10 << 20

// DiagnosisHandler handles the diagnosis workflow and history endpoints.
type DiagnosisHandler struct {
	diagnosisSvc service.DiagnosisService
	logger       zerolog.Logger
}

// NewDiagnosisHandler creates a new DiagnosisHandler.
func NewDiagnosisHandler(diagnosisSvc service.DiagnosisService, logger zerolog.Logger) *DiagnosisHandler {
	return &DiagnosisHandler{diagnosisSvc: diagnosisSvc, logger: logger}
}

// RegisterRoutes registers the diagnosis endpoints.
func (h *DiagnosisHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	mux.Handle("POST /diagnoses", authMiddleware(http.HandlerFunc(h.diagnose)))
	mux.Handle("GET /diagnoses", authMiddleware(http.HandlerFunc(h.list)))
	mux.Handle("GET /diagnoses/{id}", authMiddleware(http.HandlerFunc(h.get)))
	mux.Handle("DELETE /diagnoses/{id}", authMiddleware(http.HandlerFunc(h.delete)))
}

// diagnose godoc
// @Summary Run a plant-health diagnosis
// @Description Accepts a multipart JPEG/PNG upload and returns the structured diagnosis.
// @Tags diagnoses
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "Plant photo (JPEG or PNG)"
// @Success 200 {object} dto.DiagnosisResponseDTO
// @Failure 400 {string} string "unsupported media type"
// @Failure 403 {string} string "monthly detection limit reached"
// @Router /diagnoses [post]
func (h *DiagnosisHandler) diagnose(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		http.Error(w, "invalid multipart payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "missing image file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read image", http.StatusBadRequest)
		return
	}
	mimeType := header.Header.Get("Content-Type")

	rec, err := h.diagnosisSvc.Diagnose(r.Context(), userID, data, mimeType)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnsupportedMediaType):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, service.ErrQuotaExceeded):
			http.Error(w, err.Error(), http.StatusForbidden)
		default:
			h.logger.Error().Err(err).Str("user_id", userID).Msg("diagnosis failed")
			http.Error(w, "diagnosis failed", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(diagnosisToDTO(rec, ""))
}

func (h *DiagnosisHandler) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	limit := 20
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}
	offset := 0
	if o, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && o >= 0 {
		offset = o
	}

	records, err := h.diagnosisSvc.List(r.Context(), userID, limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to list diagnoses")
		http.Error(w, "failed to list diagnoses", http.StatusInternalServerError)
		return
	}

	resp := make([]dto.DiagnosisResponseDTO, 0, len(records))
	for i := range records {
		resp = append(resp, diagnosisToDTO(&records[i], ""))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *DiagnosisHandler) get(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid diagnosis id", http.StatusBadRequest)
		return
	}

	rec, imageURL, err := h.diagnosisSvc.Get(r.Context(), id, userID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Int64("diagnosis_id", id).Msg("failed to fetch diagnosis")
		http.Error(w, "failed to fetch diagnosis", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(diagnosisToDTO(rec, imageURL))
}

func (h *DiagnosisHandler) delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid diagnosis id", http.StatusBadRequest)
		return
	}

	if err := h.diagnosisSvc.Delete(r.Context(), id, userID); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Int64("diagnosis_id", id).Msg("failed to delete diagnosis")
		http.Error(w, "failed to delete diagnosis", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func diagnosisToDTO(rec *model.DiagnosisRecord, imageURL string) dto.DiagnosisResponseDTO {
	return dto.DiagnosisResponseDTO{
		DiagnosisID:         rec.ID,
		PlantName:           rec.PlantName,
		ScientificName:      rec.ScientificName,
		Status:              rec.Status,
		ProblemJudgment:     rec.ProblemJudgment,
		Severity:            rec.Severity,
		SeverityValue:       rec.SeverityValue,
		HandlingSuggestions: rec.HandlingSuggestions,
		NeedProduct:         rec.NeedProduct,
		PlantIntroduction:   rec.PlantIntroduction,
		ReminderType:        rec.ReminderType,
		ReminderReason:      rec.ReminderReason,
		ReminderDays:        rec.ReminderDays,
		ImageURL:            imageURL,
		CreatedAt:           rec.CreatedAt,
	}
}
