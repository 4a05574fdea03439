package model

import "time"

// DiagnosisRecord is an immutable snapshot of one diagnosis event.
// It is never mutated after creation; owners may delete it.
type DiagnosisRecord struct {
	ID                  int64     `db:"id" json:"id"`
	UserID              string    `db:"user_id" json:"user_id"`
	PlantName           string    `db:"plant_name" json:"plant_name"`
	ScientificName      string    `db:"scientific_name" json:"scientific_name"`
	Status              string    `db:"status" json:"status"`
	ProblemJudgment     string    `db:"problem_judgment" json:"problem_judgment"`
	Severity            string    `db:"severity" json:"severity"`
	SeverityValue       int       `db:"severity_value" json:"severity_value"`
	HandlingSuggestions []string  `db:"handling_suggestions" json:"handling_suggestions"`
	NeedProduct         bool      `db:"need_product" json:"need_product"`
	PlantIntroduction   string    `db:"plant_introduction" json:"plant_introduction"`
	ReminderType        *string   `db:"reminder_type" json:"reminder_type,omitempty"`
	ReminderReason      *string   `db:"reminder_reason" json:"reminder_reason,omitempty"`
	ReminderDays        *int      `db:"reminder_days" json:"reminder_days,omitempty"`
	ImagePath           string    `db:"image_path" json:"image_path"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
}

// DiagnosisResult is the normalized output of the vision provider (or the
// local simulator) before it is persisted as a DiagnosisRecord.
type DiagnosisResult struct {
	PlantName           string   `json:"plant_name"`
	ScientificName      string   `json:"scientific_name"`
	Status              string   `json:"status"`
	ProblemJudgment     string   `json:"problem_judgment"`
	Severity            string   `json:"severity"`
	SeverityValue       int      `json:"severity_value"`
	HandlingSuggestions []string `json:"handling_suggestions"`
	NeedProduct         bool     `json:"need_product"`
	PlantIntroduction   string   `json:"plant_introduction"`
	ReminderType        string   `json:"reminder_type,omitempty"`
	ReminderReason      string   `json:"reminder_reason,omitempty"`
	ReminderDays        int      `json:"reminder_days,omitempty"`
}
