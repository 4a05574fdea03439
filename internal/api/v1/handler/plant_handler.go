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

// PlantHandler handles tracked-plant endpoints.
type PlantHandler struct {
	plantSvc service.PlantService
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewPlantHandler creates a new PlantHandler.
func NewPlantHandler(plantSvc service.PlantService, v *validator.Validate, logger zerolog.Logger) *PlantHandler {
	return &PlantHandler{plantSvc: plantSvc, validate: v, logger: logger}
}

// RegisterRoutes registers the plant endpoints.
func (h *PlantHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	mux.Handle("POST /plants", authMiddleware(http.HandlerFunc(h.create)))
	mux.Handle("GET /plants", authMiddleware(http.HandlerFunc(h.list)))
	mux.Handle("GET /plants/{id}", authMiddleware(http.HandlerFunc(h.get)))
	mux.Handle("PATCH /plants/{id}", authMiddleware(http.HandlerFunc(h.update)))
	mux.Handle("DELETE /plants/{id}", authMiddleware(http.HandlerFunc(h.delete)))
	mux.Handle("POST /plants/{id}/water", authMiddleware(http.HandlerFunc(h.water)))
}

func (h *PlantHandler) create(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req dto.PlantCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" && req.DiagnosisID == nil {
		http.Error(w, "name is required unless seeding from a diagnosis", http.StatusBadRequest)
		return
	}

	plant, err := h.plantSvc.Create(r.Context(), userID, service.PlantCreateInput{
		Name:                 req.Name,
		Nickname:             req.Nickname,
		ScientificName:       req.ScientificName,
		Status:               req.Status,
		DiagnosisID:          req.DiagnosisID,
		Notes:                req.Notes,
		WateringIntervalDays: req.WateringIntervalDays,
		LastWateredDate:      req.LastWateredDate,
	})
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to create plant")
		http.Error(w, "failed to create plant", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(plantToDTO(plant))
}

func (h *PlantHandler) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	plants, err := h.plantSvc.List(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to list plants")
		http.Error(w, "failed to list plants", http.StatusInternalServerError)
		return
	}

	resp := make([]dto.PlantResponseDTO, 0, len(plants))
	for i := range plants {
		resp = append(resp, plantToDTO(&plants[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *PlantHandler) get(w http.ResponseWriter, r *http.Request) {
	h.withPlant(w, r, func(userID string, id int64) (*model.Plant, error) {
		return h.plantSvc.Get(r.Context(), id, userID)
	})
}

func (h *PlantHandler) update(w http.ResponseWriter, r *http.Request) {
	var req dto.PlantUpdateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.withPlant(w, r, func(userID string, id int64) (*model.Plant, error) {
		return h.plantSvc.Update(r.Context(), id, userID, service.PlantUpdateInput{
			Name:                 req.Name,
			Nickname:             req.Nickname,
			ScientificName:       req.ScientificName,
			Status:               req.Status,
			Notes:                req.Notes,
			WateringIntervalDays: req.WateringIntervalDays,
			LastWateredDate:      req.LastWateredDate,
		})
	})
}

func (h *PlantHandler) water(w http.ResponseWriter, r *http.Request) {
	h.withPlant(w, r, func(userID string, id int64) (*model.Plant, error) {
		return h.plantSvc.RecordWatering(r.Context(), id, userID)
	})
}

func (h *PlantHandler) delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid plant id", http.StatusBadRequest)
		return
	}

	if err := h.plantSvc.Delete(r.Context(), id, userID); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Int64("plant_id", id).Msg("failed to delete plant")
		http.Error(w, "failed to delete plant", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// withPlant factors the shared id-parse / not-found / encode plumbing of the
// single-plant endpoints.
func (h *PlantHandler) withPlant(w http.ResponseWriter, r *http.Request, op func(userID string, id int64) (*model.Plant, error)) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid plant id", http.StatusBadRequest)
		return
	}

	plant, err := op(userID, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Int64("plant_id", id).Msg("plant operation failed")
		http.Error(w, "plant operation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(plantToDTO(plant))
}

func plantToDTO(p *model.Plant) dto.PlantResponseDTO {
	return dto.PlantResponseDTO{
		ID:                   p.ID,
		Name:                 p.Name,
		Nickname:             p.Nickname,
		ScientificName:       p.ScientificName,
		Status:               p.Status,
		DiagnosisID:          p.DiagnosisID,
		ImagePath:            p.ImagePath,
		Notes:                p.Notes,
		WateringIntervalDays: p.WateringIntervalDays,
		LastWateredDate:      p.LastWateredDate,
		NextWateringDate:     p.NextWateringDate,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}
