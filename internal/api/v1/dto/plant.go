package dto

import "time"

// PlantCreateDTO creates a tracked plant, optionally seeded from a diagnosis.
type PlantCreateDTO struct {
	Name                 string     `json:"name"`
	Nickname             *string    `json:"nickname"`
	ScientificName       *string    `json:"scientific_name"`
	Status               string     `json:"status"`
	DiagnosisID          *int64     `json:"diagnosis_id"`
	Notes                string     `json:"notes"`
	WateringIntervalDays *int       `json:"watering_interval_days" validate:"omitempty,gt=0"`
	LastWateredDate      *time.Time `json:"last_watered_date"`
}

// PlantUpdateDTO is a partial update; absent fields are left untouched.
type PlantUpdateDTO struct {
	Name                 *string    `json:"name"`
	Nickname             *string    `json:"nickname"`
	ScientificName       *string    `json:"scientific_name"`
	Status               *string    `json:"status"`
	Notes                *string    `json:"notes"`
	WateringIntervalDays *int       `json:"watering_interval_days" validate:"omitempty,gt=0"`
	LastWateredDate      *time.Time `json:"last_watered_date"`
}

// PlantResponseDTO is returned in API responses.
type PlantResponseDTO struct {
	ID                   int64      `json:"id"`
	Name                 string     `json:"name"`
	Nickname             *string    `json:"nickname,omitempty"`
	ScientificName       *string    `json:"scientific_name,omitempty"`
	Status               string     `json:"status"`
	DiagnosisID          *int64     `json:"diagnosis_id,omitempty"`
	ImagePath            *string    `json:"image_path,omitempty"`
	Notes                string     `json:"notes"`
	WateringIntervalDays *int       `json:"watering_interval_days,omitempty"`
	LastWateredDate      *time.Time `json:"last_watered_date,omitempty"`
	NextWateringDate     *time.Time `json:"next_watering_date,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}
