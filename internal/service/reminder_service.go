package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"planthealth/internal/model"
	"planthealth/internal/repository"

	"github.com/rs/zerolog"
)

// dueSoonWindow is how far ahead a reminder may be scheduled and still count
// toward the unread badge.
const dueSoonWindow = 72 * time.Hour

// DispatchQueue enqueues delayed reminder-dispatch jobs for the notifier
// worker.
type DispatchQueue interface {
	Send(ctx context.Context, queue string, payload []byte, delaySec int) error
}

// ReminderService derives, creates and maintains scheduled reminders.
type ReminderService interface {
	// DeriveFromDiagnosis builds (but does not persist) the follow-up
	// reminder suggested by a diagnosis. Returns nil when the day offset is
	// not positive or the type label maps to none.
	DeriveFromDiagnosis(result *model.DiagnosisResult, userID string) *model.Reminder
	// DeriveFromWatering completes any active watering reminder for the plant
	// and creates a new one at midnight of the next watering date.
	DeriveFromWatering(ctx context.Context, plant *model.Plant) (*model.Reminder, error)
	// ReconcileWatering updates the plant's active watering reminder in place
	// if one exists, or creates one, matching the plant's next watering date.
	ReconcileWatering(ctx context.Context, plant *model.Plant) error
	// CountDueSoon counts unread, incomplete reminders due within the next
	// three days. Overdue reminders always count.
	CountDueSoon(ctx context.Context, userID string) (int, error)
	List(ctx context.Context, userID string) ([]model.Reminder, error)
	Create(ctx context.Context, rem *model.Reminder) error
	// SetFlags updates the read/completed flags; nil leaves a flag untouched.
	SetFlags(ctx context.Context, id int64, userID string, isRead, isCompleted *bool) (*model.Reminder, error)
	Delete(ctx context.Context, id int64, userID string) error
	// EnqueueDispatch schedules a best-effort push-notification job; failures
	// are logged, never propagated.
	EnqueueDispatch(ctx context.Context, rem *model.Reminder)
}

type reminderService struct {
	repo      repository.ReminderRepository
	queue     DispatchQueue
	queueName string
	logger    zerolog.Logger
	now       func() time.Time
}

// NewReminderService creates a new ReminderService with a scoped logger.
// The dispatch queue may be nil, in which case no jobs are enqueued.
func NewReminderService(repo repository.ReminderRepository, queue DispatchQueue, queueName string, logger zerolog.Logger) ReminderService {
	return &reminderService{
		repo:      repo,
		queue:     queue,
		queueName: queueName,
		logger:    logger.With().Str("service", "ReminderService").Logger(),
		now:       time.Now,
	}
}

// mapReminderType maps the provider's human-readable label to the internal
// reminder category. Unknown labels default to re-examination.
func mapReminderType(label string) string {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "watering reminder":
		return model.ReminderTypeWatering
	case "re-examination reminder":
		return model.ReminderTypeReExamination
	case "", "none":
		return ""
	default:
		return model.ReminderTypeReExamination
	}
}

func (s *reminderService) DeriveFromDiagnosis(result *model.DiagnosisResult, userID string) *model.Reminder {
	if result.ReminderDays <= 0 {
		return nil
	}
	remType := mapReminderType(result.ReminderType)
	if remType == "" {
		return nil
	}

	rem := &model.Reminder{
		UserID:      userID,
		Type:        remType,
		Title:       fmt.Sprintf("%s: %s", strings.TrimSpace(result.ReminderType), result.PlantName),
		Message:     fmt.Sprintf("Check on your %s (%s).", result.PlantName, result.Status),
		ScheduledAt: s.now().AddDate(0, 0, result.ReminderDays),
	}
	if result.ReminderReason != "" {
		reason := result.ReminderReason
		rem.Reason = &reason
	}
	return rem
}

func plantDisplayName(plant *model.Plant) string {
	if plant.Nickname != nil && *plant.Nickname != "" {
		return *plant.Nickname
	}
	return plant.Name
}

// midnight truncates an instant to the start of its calendar day.
func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func (s *reminderService) DeriveFromWatering(ctx context.Context, plant *model.Plant) (*model.Reminder, error) {
	if plant.WateringIntervalDays == nil || plant.LastWateredDate == nil {
		return nil, fmt.Errorf("plant %d has no watering cadence to derive from", plant.ID)
	}
	next := plant.LastWateredDate.AddDate(0, 0, *plant.WateringIntervalDays)

	rem := &model.Reminder{
		UserID:      plant.UserID,
		PlantID:     &plant.ID,
		Type:        model.ReminderTypeWatering,
		Title:       fmt.Sprintf("Time to water %s", plantDisplayName(plant)),
		Message:     fmt.Sprintf("%s is due for watering every %d days.", plantDisplayName(plant), *plant.WateringIntervalDays),
		ScheduledAt: midnight(next),
	}
	if err := s.repo.ReplaceActiveWatering(ctx, rem); err != nil {
		s.logger.Error().Err(err).Int64("plant_id", plant.ID).Msg("Failed to replace watering reminder")
		return nil, err
	}
	s.EnqueueDispatch(ctx, rem)
	return rem, nil
}

func (s *reminderService) ReconcileWatering(ctx context.Context, plant *model.Plant) error {
	if plant.NextWateringDate == nil {
		return nil
	}
	scheduled := midnight(*plant.NextWateringDate)

	existing, err := s.repo.GetActiveWatering(ctx, plant.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		existing.Title = fmt.Sprintf("Time to water %s", plantDisplayName(plant))
		existing.ScheduledAt = scheduled
		if err := s.repo.Update(ctx, existing); err != nil {
			s.logger.Error().Err(err).Int64("plant_id", plant.ID).Msg("Failed to update watering reminder")
			return err
		}
		return nil
	}

	rem := &model.Reminder{
		UserID:      plant.UserID,
		PlantID:     &plant.ID,
		Type:        model.ReminderTypeWatering,
		Title:       fmt.Sprintf("Time to water %s", plantDisplayName(plant)),
		Message:     fmt.Sprintf("%s is due for watering.", plantDisplayName(plant)),
		ScheduledAt: scheduled,
	}
	if err := s.repo.Create(ctx, rem); err != nil {
		s.logger.Error().Err(err).Int64("plant_id", plant.ID).Msg("Failed to create watering reminder")
		return err
	}
	s.EnqueueDispatch(ctx, rem)
	return nil
}

func (s *reminderService) CountDueSoon(ctx context.Context, userID string) (int, error) {
	cutoff := s.now().Add(dueSoonWindow)
	count, err := s.repo.CountDueSoon(ctx, userID, cutoff)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to count due reminders")
		return 0, err
	}
	return count, nil
}

func (s *reminderService) List(ctx context.Context, userID string) ([]model.Reminder, error) {
	return s.repo.ListByUserID(ctx, userID)
}

func (s *reminderService) Create(ctx context.Context, rem *model.Reminder) error {
	if rem.Type != model.ReminderTypeWatering {
		rem.Type = model.ReminderTypeReExamination
	}
	if err := s.repo.Create(ctx, rem); err != nil {
		s.logger.Error().Err(err).Str("user_id", rem.UserID).Msg("Failed to create reminder")
		return err
	}
	s.EnqueueDispatch(ctx, rem)
	return nil
}

func (s *reminderService) SetFlags(ctx context.Context, id int64, userID string, isRead, isCompleted *bool) (*model.Reminder, error) {
	rem, err := s.repo.GetByIDForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if rem == nil {
		return nil, ErrNotFound
	}
	if isRead != nil {
		rem.IsRead = *isRead
	}
	if isCompleted != nil {
		rem.IsCompleted = *isCompleted
	}
	if err := s.repo.Update(ctx, rem); err != nil {
		s.logger.Error().Err(err).Int64("reminder_id", id).Msg("Failed to update reminder flags")
		return nil, err
	}
	return rem, nil
}

func (s *reminderService) Delete(ctx context.Context, id int64, userID string) error {
	deleted, err := s.repo.Delete(ctx, id, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

func (s *reminderService) EnqueueDispatch(ctx context.Context, rem *model.Reminder) {
	if s.queue == nil {
		return
	}
	payload, err := json.Marshal(struct {
		ReminderID int64  `json:"reminder_id"`
		UserID     string `json:"user_id"`
		Type       string `json:"type"`
		Title      string `json:"title"`
		Message    string `json:"message"`
	}{rem.ID, rem.UserID, rem.Type, rem.Title, rem.Message})
	if err != nil {
		s.logger.Error().Err(err).Int64("reminder_id", rem.ID).Msg("Failed to marshal dispatch payload")
		return
	}
	delay := int(rem.ScheduledAt.Sub(s.now()).Seconds())
	if delay < 0 {
		delay = 0
	}
	if err := s.queue.Send(ctx, s.queueName, payload, delay); err != nil {
		// The reminder row is the source of truth; a lost dispatch job only
		// delays the push notification.
		s.logger.Error().Err(err).Int64("reminder_id", rem.ID).Msg("Failed to enqueue reminder dispatch")
	}
}
