package dto

import "time"

// DiagnosisResponseDTO is the structured outcome of a diagnosis request.
type DiagnosisResponseDTO struct {
	DiagnosisID         int64     `json:"diagnosis_id"`
	PlantName           string    `json:"plant_name"`
	ScientificName      string    `json:"scientific_name"`
	Status              string    `json:"status"`
	ProblemJudgment     string    `json:"problem_judgment"`
	Severity            string    `json:"severity"`
	SeverityValue       int       `json:"severity_value"`
	HandlingSuggestions []string  `json:"handling_suggestions"`
	NeedProduct         bool      `json:"need_product"`
	PlantIntroduction   string    `json:"plant_introduction"`
	ReminderType        *string   `json:"reminder_type,omitempty"`
	ReminderReason      *string   `json:"reminder_reason,omitempty"`
	ReminderDays        *int      `json:"reminder_days,omitempty"`
	ImageURL            string    `json:"image_url,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}
