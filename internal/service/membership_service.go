package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"planthealth/internal/model"
	"planthealth/internal/repository"

	"github.com/rs/zerolog"
)

var (
	// ErrQuotaExceeded is returned when a non-VIP user has used up their
	// monthly detections.
	ErrQuotaExceeded = errors.New("monthly detection limit reached")
	// ErrInvalidPurchase is returned when a purchase request carries a
	// malformed transaction hash or wallet address.
	ErrInvalidPurchase = errors.New("invalid purchase request")
)

// UnlimitedDetections is the sentinel remaining-detections value for VIPs.
const UnlimitedDetections = -1

// Purchase references are format-checked only; on-chain verification is an
// external collaborator's responsibility.
var (
	txHashPattern        = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
	walletAddressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
)

// MembershipService owns the membership lifecycle: default creation, monthly
// counter resets, quota checks and VIP upgrades.
type MembershipService interface {
	// GetOrCreate returns the user's membership with the monthly counter
	// already reset if the calendar month rolled over since last access.
	GetOrCreate(ctx context.Context, userID string) (*model.Membership, error)
	// RemainingDetections reports how many detections the user has left this
	// month; UnlimitedDetections for VIPs.
	RemainingDetections(m *model.Membership) int
	// CheckQuota fails with ErrQuotaExceeded when a non-VIP membership is at
	// or over the monthly limit. It does not consume quota; the increment
	// happens inside the diagnosis commit so failed diagnoses cost nothing.
	CheckQuota(m *model.Membership) error
	// UpgradeToVip validates the purchase reference shape and flips the VIP
	// flag. Idempotent.
	UpgradeToVip(ctx context.Context, userID, transactionHash, walletAddress string) (*model.Membership, error)
	MonthlyLimit() int
}

type membershipService struct {
	repo         repository.MembershipRepository
	monthlyLimit int
	logger       zerolog.Logger
	now          func() time.Time
}

// NewMembershipService creates a new MembershipService with a scoped logger.
func NewMembershipService(repo repository.MembershipRepository, monthlyLimit int, logger zerolog.Logger) MembershipService {
	return &membershipService{
		repo:         repo,
		monthlyLimit: monthlyLimit,
		logger:       logger.With().Str("service", "MembershipService").Logger(),
		now:          time.Now,
	}
}

func (s *membershipService) GetOrCreate(ctx context.Context, userID string) (*model.Membership, error) {
	today := s.now()
	m, err := s.repo.GetOrCreate(ctx, userID, today)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to get or create membership")
		return nil, err
	}
	return s.resetIfNeeded(ctx, m, today)
}

// resetIfNeeded zeroes the counter on any calendar-month transition. The
// day-of-month delta is irrelevant: crossing into a new month resets.
func (s *membershipService) resetIfNeeded(ctx context.Context, m *model.Membership, today time.Time) (*model.Membership, error) {
	if m.LastResetDate.Year() == today.Year() && m.LastResetDate.Month() == today.Month() {
		return m, nil
	}
	refreshed, err := s.repo.Reset(ctx, m.UserID, today)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", m.UserID).Msg("Failed to reset monthly counter")
		return nil, err
	}
	s.logger.Info().Str("user_id", m.UserID).Msg("Monthly detection counter reset")
	return refreshed, nil
}

func (s *membershipService) RemainingDetections(m *model.Membership) int {
	if m.IsVip {
		return UnlimitedDetections
	}
	remaining := s.monthlyLimit - m.MonthlyDetections
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (s *membershipService) CheckQuota(m *model.Membership) error {
	if m.IsVip {
		return nil
	}
	if m.MonthlyDetections >= s.monthlyLimit {
		return fmt.Errorf("%w: free plan allows %d detections per month", ErrQuotaExceeded, s.monthlyLimit)
	}
	return nil
}

func (s *membershipService) UpgradeToVip(ctx context.Context, userID, transactionHash, walletAddress string) (*model.Membership, error) {
	if !txHashPattern.MatchString(transactionHash) {
		return nil, fmt.Errorf("%w: malformed transaction hash", ErrInvalidPurchase)
	}
	if !walletAddressPattern.MatchString(walletAddress) {
		return nil, fmt.Errorf("%w: malformed wallet address", ErrInvalidPurchase)
	}

	// Make sure the row exists before flipping the flag; purchases can be the
	// user's very first membership access.
	if _, err := s.repo.GetOrCreate(ctx, userID, s.now()); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to ensure membership before upgrade")
		return nil, err
	}
	m, err := s.repo.SetVip(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to upgrade membership to VIP")
		return nil, err
	}
	s.logger.Info().Str("user_id", userID).Str("tx_hash", transactionHash).Msg("Membership upgraded to VIP")
	return m, nil
}

func (s *membershipService) MonthlyLimit() int {
	return s.monthlyLimit
}
