package model

import "time"

// Plant is a user-curated tracked plant instance, optionally seeded from a
// DiagnosisRecord.
type Plant struct {
	ID                   int64      `db:"id" json:"id"`
	UserID               string     `db:"user_id" json:"user_id"`
	Name                 string     `db:"name" json:"name"`
	Nickname             *string    `db:"nickname" json:"nickname,omitempty"`
	ScientificName       *string    `db:"scientific_name" json:"scientific_name,omitempty"`
	Status               string     `db:"status" json:"status"`
	DiagnosisID          *int64     `db:"diagnosis_id" json:"diagnosis_id,omitempty"`
	ImagePath            *string    `db:"image_path" json:"image_path,omitempty"`
	Notes                string     `db:"notes" json:"notes"`
	WateringIntervalDays *int       `db:"watering_interval_days" json:"watering_interval_days,omitempty"`
	LastWateredDate      *time.Time `db:"last_watered_date" json:"last_watered_date,omitempty"`
	NextWateringDate     *time.Time `db:"next_watering_date" json:"next_watering_date,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}
