package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"planthealth/internal/api/v1/dto"
	"planthealth/internal/middleware"
	"planthealth/internal/model"
	"planthealth/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// ReminderHandler handles reminder endpoints.
type ReminderHandler struct {
	reminderSvc service.ReminderService
	validate    *validator.Validate
	logger      zerolog.Logger
}

// NewReminderHandler creates a new ReminderHandler.
func NewReminderHandler(reminderSvc service.ReminderService, v *validator.Validate, logger zerolog.Logger) *ReminderHandler {
	return &ReminderHandler{reminderSvc: reminderSvc, validate: v, logger: logger}
}

// RegisterRoutes registers the reminder endpoints.
func (h *ReminderHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	mux.Handle("GET /reminders", authMiddleware(http.HandlerFunc(h.list)))
	mux.Handle("POST /reminders", authMiddleware(http.HandlerFunc(h.create)))
	mux.Handle("GET /reminders/unread-count", authMiddleware(http.HandlerFunc(h.unreadCount)))
	mux.Handle("PATCH /reminders/{id}", authMiddleware(http.HandlerFunc(h.update)))
	mux.Handle("DELETE /reminders/{id}", authMiddleware(http.HandlerFunc(h.delete)))
}

func (h *ReminderHandler) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	reminders, err := h.reminderSvc.List(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to list reminders")
		http.Error(w, "failed to list reminders", http.StatusInternalServerError)
		return
	}

	resp := make([]dto.ReminderResponseDTO, 0, len(reminders))
	for i := range reminders {
		resp = append(resp, reminderToDTO(&reminders[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// unreadCount godoc
// @Summary Count reminders needing attention
// @Description Counts unread, incomplete reminders due within the next 3 days.
// @Tags reminders
// @Produce json
// @Success 200 {object} dto.UnreadCountDTO
// @Router /reminders/unread-count [get]
func (h *ReminderHandler) unreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	count, err := h.reminderSvc.CountDueSoon(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to count reminders")
		http.Error(w, "failed to count reminders", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dto.UnreadCountDTO{UnreadCount: count})
}

func (h *ReminderHandler) create(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req dto.ReminderCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	rem := &model.Reminder{
		UserID:      userID,
		PlantID:     req.PlantID,
		Type:        req.Type,
		Title:       req.Title,
		Message:     req.Message,
		Reason:      req.Reason,
		ScheduledAt: req.ScheduledAt,
	}
	if err := h.reminderSvc.Create(r.Context(), rem); err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to create reminder")
		http.Error(w, "failed to create reminder", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(reminderToDTO(rem))
}

func (h *ReminderHandler) update(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid reminder id", http.StatusBadRequest)
		return
	}

	var req dto.ReminderUpdateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}

	rem, err := h.reminderSvc.SetFlags(r.Context(), id, userID, req.IsRead, req.IsCompleted)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Int64("reminder_id", id).Msg("failed to update reminder")
		http.Error(w, "failed to update reminder", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(reminderToDTO(rem))
}

func (h *ReminderHandler) delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid reminder id", http.StatusBadRequest)
		return
	}

	if err := h.reminderSvc.Delete(r.Context(), id, userID); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Int64("reminder_id", id).Msg("failed to delete reminder")
		http.Error(w, "failed to delete reminder", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func reminderToDTO(rem *model.Reminder) dto.ReminderResponseDTO {
	return dto.ReminderResponseDTO{
		ID:          rem.ID,
		PlantID:     rem.PlantID,
		Type:        rem.Type,
		Title:       rem.Title,
		Message:     rem.Message,
		Reason:      rem.Reason,
		ScheduledAt: rem.ScheduledAt,
		IsCompleted: rem.IsCompleted,
		IsRead:      rem.IsRead,
		CreatedAt:   rem.CreatedAt,
	}
}
