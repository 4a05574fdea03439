package dto

import "time"

// ReminderCreateDTO creates a reminder on explicit user request.
type ReminderCreateDTO struct {
	PlantID     *int64    `json:"plant_id"`
	Type        string    `json:"type" validate:"omitempty,oneof=watering re_examination"`
	Title       string    `json:"title" validate:"required"`
	Message     string    `json:"message"`
	Reason      *string   `json:"reason"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
}

// ReminderUpdateDTO flips the read/completed flags; absent fields are left
// untouched.
type ReminderUpdateDTO struct {
	IsRead      *bool `json:"is_read"`
	IsCompleted *bool `json:"is_completed"`
}

// ReminderResponseDTO is returned in API responses.
type ReminderResponseDTO struct {
	ID          int64     `json:"id"`
	PlantID     *int64    `json:"plant_id,omitempty"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Reason      *string   `json:"reason,omitempty"`
	ScheduledAt time.Time `json:"scheduled_at"`
	IsCompleted bool      `json:"is_completed"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

// UnreadCountDTO is the due-soon badge payload.
type UnreadCountDTO struct {
	UnreadCount int `json:"unread_count"`
}
