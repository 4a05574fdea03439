package repository

import (
	"context"
	"fmt"
	"time"

	"planthealth/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

// MembershipRepository persists per-user subscription state.
type MembershipRepository interface {
	// GetOrCreate returns the user's membership, creating a default non-VIP
	// row if none exists. Safe under concurrent first access: the insert is
	// ON CONFLICT DO NOTHING, so at most one row is ever created.
	GetOrCreate(ctx context.Context, userID string, today time.Time) (*model.Membership, error)
	// Reset zeroes the monthly counter and stamps the reset date.
	Reset(ctx context.Context, userID string, today time.Time) (*model.Membership, error)
	// SetVip marks the membership as VIP. Idempotent.
	SetVip(ctx context.Context, userID string) (*model.Membership, error)
}

type membershipRepo struct {
	pool *pgxpool.Pool
}

// NewMembershipRepo creates a new MembershipRepository.
func NewMembershipRepo(pool *pgxpool.Pool) MembershipRepository {
	return &membershipRepo{pool: pool}
}

const membershipColumns = `user_id, is_vip, monthly_detections, last_reset_date, created_at, updated_at`

func (r *membershipRepo) GetOrCreate(ctx context.Context, userID string, today time.Time) (*model.Membership, error) {
	const insertQ = `
        INSERT INTO memberships (user_id, is_vip, monthly_detections, last_reset_date)
        VALUES ($1, false, 0, $2)
        ON CONFLICT (user_id) DO NOTHING
    `
	if _, err := r.pool.Exec(ctx, insertQ, userID, today); err != nil {
		return nil, fmt.Errorf("ensure membership for user %s: %w", userID, err)
	}

	var m model.Membership
	const selectQ = `SELECT ` + membershipColumns + ` FROM memberships WHERE user_id = $1`
	err := r.pool.QueryRow(ctx, selectQ, userID).Scan(
		&m.UserID,
		&m.IsVip,
		&m.MonthlyDetections,
		&m.LastResetDate,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch membership for user %s: %w", userID, err)
	}
	return &m, nil
}

func (r *membershipRepo) Reset(ctx context.Context, userID string, today time.Time) (*model.Membership, error) {
	var m model.Membership
	const q = `
        UPDATE memberships
        SET monthly_detections = 0,
            last_reset_date = $2,
            updated_at = NOW()
        WHERE user_id = $1
        RETURNING ` + membershipColumns
	err := r.pool.QueryRow(ctx, q, userID, today).Scan(
		&m.UserID,
		&m.IsVip,
		&m.MonthlyDetections,
		&m.LastResetDate,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("reset membership counter for user %s: %w", userID, err)
	}
	return &m, nil
}

func (r *membershipRepo) SetVip(ctx context.Context, userID string) (*model.Membership, error) {
	var m model.Membership
	const q = `
        UPDATE memberships
        SET is_vip = true,
            updated_at = NOW()
        WHERE user_id = $1
        RETURNING ` + membershipColumns
	err := r.pool.QueryRow(ctx, q, userID).Scan(
		&m.UserID,
		&m.IsVip,
		&m.MonthlyDetections,
		&m.LastResetDate,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upgrade membership for user %s: %w", userID, err)
	}
	return &m, nil
}
