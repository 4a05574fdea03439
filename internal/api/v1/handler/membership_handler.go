package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"planthealth/internal/api/v1/dto"
	"planthealth/internal/middleware"
	"planthealth/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// MembershipHandler handles quota-status and VIP purchase endpoints.
type MembershipHandler struct {
	membershipSvc service.MembershipService
	validate      *validator.Validate
	logger        zerolog.Logger
}

// NewMembershipHandler creates a new MembershipHandler.
func NewMembershipHandler(membershipSvc service.MembershipService, v *validator.Validate, logger zerolog.Logger) *MembershipHandler {
	return &MembershipHandler{membershipSvc: membershipSvc, validate: v, logger: logger}
}

// RegisterRoutes registers the membership endpoints.
func (h *MembershipHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	mux.Handle("GET /membership", authMiddleware(http.HandlerFunc(h.status)))
	mux.Handle("POST /membership/purchase", authMiddleware(http.HandlerFunc(h.purchase)))
}

// status godoc
// @Summary Get membership and quota status
// @Description Returns the VIP flag, this month's detection count and the remaining detections (-1 means unlimited).
// @Tags membership
// @Produce json
// @Success 200 {object} dto.MembershipStatusDTO
// @Failure 401 {string} string "unauthorized"
// @Router /membership [get]
func (h *MembershipHandler) status(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	m, err := h.membershipSvc.GetOrCreate(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to load membership")
		http.Error(w, "failed to load membership", http.StatusInternalServerError)
		return
	}

	resp := dto.MembershipStatusDTO{
		IsVip:               m.IsVip,
		MonthlyDetections:   m.MonthlyDetections,
		RemainingDetections: h.membershipSvc.RemainingDetections(m),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// purchase godoc
// @Summary Purchase VIP membership
// @Description Validates the transaction reference shape and upgrades the membership to VIP.
// @Tags membership
// @Accept json
// @Produce json
// @Param purchase body dto.MembershipPurchaseDTO true "Purchase request"
// @Success 200 {object} dto.MembershipPurchaseResponseDTO
// @Failure 400 {string} string "invalid purchase request"
// @Router /membership/purchase [post]
func (h *MembershipHandler) purchase(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req dto.MembershipPurchaseDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	m, err := h.membershipSvc.UpgradeToVip(r.Context(), userID, req.TransactionHash, req.WalletAddress)
	if err != nil {
		if errors.Is(err, service.ErrInvalidPurchase) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to upgrade membership")
		http.Error(w, "failed to upgrade membership", http.StatusInternalServerError)
		return
	}

	resp := dto.MembershipPurchaseResponseDTO{
		Success: true,
		Message: "membership upgraded",
		IsVip:   m.IsVip,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
