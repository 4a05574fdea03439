package dto

// MembershipStatusDTO reports the user's quota state.
// RemainingDetections is -1 for VIPs, meaning unlimited.
type MembershipStatusDTO struct {
	IsVip               bool `json:"is_vip"`
	MonthlyDetections   int  `json:"monthly_detections"`
	RemainingDetections int  `json:"remaining_detections"`
}

// MembershipPurchaseDTO carries a VIP purchase request. The references are
// format-checked only; on-chain verification happens elsewhere.
type MembershipPurchaseDTO struct {
	TransactionHash string `json:"transaction_hash" validate:"required"`
	WalletAddress   string `json:"wallet_address" validate:"required"`
	Plan            string `json:"plan" validate:"required,oneof=monthly quarterly yearly"`
}

// MembershipPurchaseResponseDTO reports the purchase outcome.
type MembershipPurchaseResponseDTO struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	IsVip   bool   `json:"is_vip"`
}
