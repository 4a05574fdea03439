package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestMembershipService(repo *fakeMembershipRepo, now time.Time) *membershipService {
	svc := NewMembershipService(repo, 5, zerolog.Nop()).(*membershipService)
	svc.now = fixedClock(now)
	return svc
}

func TestGetOrCreateDefaults(t *testing.T) {
	repo := newFakeMembershipRepo()
	svc := newTestMembershipService(repo, time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC))

	m, err := svc.GetOrCreate(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if m.IsVip {
		t.Error("new membership should not be VIP")
	}
	if m.MonthlyDetections != 0 {
		t.Errorf("expected 0 detections, got %d", m.MonthlyDetections)
	}
	if got := svc.RemainingDetections(m); got != 5 {
		t.Errorf("expected 5 remaining, got %d", got)
	}
}

func TestCheckQuotaBoundary(t *testing.T) {
	repo := newFakeMembershipRepo()
	svc := newTestMembershipService(repo, time.Now())

	m, err := svc.GetOrCreate(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	m.MonthlyDetections = 4
	if err := svc.CheckQuota(m); err != nil {
		t.Errorf("4 of 5 used should pass quota check, got %v", err)
	}

	m.MonthlyDetections = 5
	err = svc.CheckQuota(m)
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if !strings.Contains(err.Error(), "5") {
		t.Errorf("quota error should mention the limit, got %q", err.Error())
	}
}

func TestRemainingNeverNegative(t *testing.T) {
	svc := newTestMembershipService(newFakeMembershipRepo(), time.Now())
	m, _ := svc.GetOrCreate(context.Background(), "user-1")
	m.MonthlyDetections = 7
	if got := svc.RemainingDetections(m); got != 0 {
		t.Errorf("expected 0 remaining when over the limit, got %d", got)
	}
}

func TestVipHasUnlimitedDetections(t *testing.T) {
	svc := newTestMembershipService(newFakeMembershipRepo(), time.Now())
	m, _ := svc.GetOrCreate(context.Background(), "user-1")
	m.IsVip = true
	m.MonthlyDetections = 1000

	if err := svc.CheckQuota(m); err != nil {
		t.Errorf("VIP should never hit the quota, got %v", err)
	}
	if got := svc.RemainingDetections(m); got != UnlimitedDetections {
		t.Errorf("expected %d for VIP, got %d", UnlimitedDetections, got)
	}
}

func TestMonthlyReset(t *testing.T) {
	tests := []struct {
		name      string
		lastReset time.Time
		today     time.Time
		wantReset bool
	}{
		{
			name:      "same month",
			lastReset: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			today:     time.Date(2025, 6, 28, 0, 0, 0, 0, time.UTC),
			wantReset: false,
		},
		{
			name:      "next month fewer than 30 days later",
			lastReset: time.Date(2025, 6, 28, 0, 0, 0, 0, time.UTC),
			today:     time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC),
			wantReset: true,
		},
		{
			name:      "year rollover",
			lastReset: time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC),
			today:     time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC),
			wantReset: true,
		},
		{
			name:      "same month different year",
			lastReset: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
			today:     time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
			wantReset: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeMembershipRepo()
			svc := newTestMembershipService(repo, tt.lastReset)
			if _, err := svc.GetOrCreate(context.Background(), "user-1"); err != nil {
				t.Fatalf("seed GetOrCreate failed: %v", err)
			}
			repo.memberships["user-1"].MonthlyDetections = 3

			svc.now = fixedClock(tt.today)
			m, err := svc.GetOrCreate(context.Background(), "user-1")
			if err != nil {
				t.Fatalf("GetOrCreate failed: %v", err)
			}

			if tt.wantReset && m.MonthlyDetections != 0 {
				t.Errorf("expected counter reset, got %d", m.MonthlyDetections)
			}
			if !tt.wantReset && m.MonthlyDetections != 3 {
				t.Errorf("expected counter preserved at 3, got %d", m.MonthlyDetections)
			}
		})
	}
}

const (
	validTxHash = "0x4e3a3754410177e6937ef1f84bba68ea139e8d1a2258c5f85db9f1cd715a1bdd"
	validWallet = "0x71C7656EC7ab88b098defB751B7401B5f6d8976F"
)

func TestUpgradeToVip(t *testing.T) {
	repo := newFakeMembershipRepo()
	svc := newTestMembershipService(repo, time.Now())

	m, err := svc.UpgradeToVip(context.Background(), "user-1", validTxHash, validWallet)
	if err != nil {
		t.Fatalf("UpgradeToVip failed: %v", err)
	}
	if !m.IsVip {
		t.Error("membership should be VIP after upgrade")
	}

	// Idempotent: a second purchase keeps the flag set.
	m, err = svc.UpgradeToVip(context.Background(), "user-1", validTxHash, validWallet)
	if err != nil {
		t.Fatalf("repeat UpgradeToVip failed: %v", err)
	}
	if !m.IsVip {
		t.Error("membership should stay VIP after a repeat purchase")
	}
}

func TestUpgradeToVipValidation(t *testing.T) {
	repo := newFakeMembershipRepo()
	svc := newTestMembershipService(repo, time.Now())

	if _, err := svc.UpgradeToVip(context.Background(), "user-1", "0xnothex", validWallet); !errors.Is(err, ErrInvalidPurchase) {
		t.Errorf("malformed tx hash: expected ErrInvalidPurchase, got %v", err)
	}
	if _, err := svc.UpgradeToVip(context.Background(), "user-1", validTxHash, "0xshort"); !errors.Is(err, ErrInvalidPurchase) {
		t.Errorf("malformed wallet: expected ErrInvalidPurchase, got %v", err)
	}
	if _, ok := repo.memberships["user-1"]; ok {
		t.Error("rejected purchase should not create a membership")
	}
}
