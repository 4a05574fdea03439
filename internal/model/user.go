package model

import "time"

// User represents a user in the system. Identity fields come from the
// external authenticator (JWT subject) and are immutable after creation.
type User struct {
	UserID    string    `db:"user_id" json:"user_id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	AvatarURL string    `db:"avatar_url" json:"avatar_url"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Membership holds a user's subscription state. Exactly one row per user,
// auto-created on first access. Mutated by the membership service only.
type Membership struct {
	UserID            string    `db:"user_id" json:"user_id"`
	IsVip             bool      `db:"is_vip" json:"is_vip"`
	MonthlyDetections int       `db:"monthly_detections" json:"monthly_detections"`
	LastResetDate     time.Time `db:"last_reset_date" json:"last_reset_date"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}
