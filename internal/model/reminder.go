package model

import "time"

// Reminder types. Anything the provider labels that is not a watering
// reminder is treated as a re-examination reminder.
const (
	ReminderTypeWatering      = "watering"
	ReminderTypeReExamination = "re_examination"
)

// Reminder is a scheduled notification for a user, optionally tied to a
// plant. At most one incomplete watering reminder may exist per plant.
type Reminder struct {
	ID          int64     `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	PlantID     *int64    `db:"plant_id" json:"plant_id,omitempty"`
	Type        string    `db:"type" json:"type"`
	Title       string    `db:"title" json:"title"`
	Message     string    `db:"message" json:"message"`
	Reason      *string   `db:"reason" json:"reason,omitempty"`
	ScheduledAt time.Time `db:"scheduled_at" json:"scheduled_at"`
	IsCompleted bool      `db:"is_completed" json:"is_completed"`
	IsRead      bool      `db:"is_read" json:"is_read"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
