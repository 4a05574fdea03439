package notifier

import (
	"context"
	"encoding/json"
	"time"

	"planthealth/internal/config"
	"planthealth/internal/pgmq"
	"planthealth/internal/pubsub"
	"planthealth/internal/repository"

	"github.com/rs/zerolog"
)

// dispatchJob mirrors the payload enqueued when a reminder is scheduled.
type dispatchJob struct {
	ReminderID int64  `json:"reminder_id"`
	UserID     string `json:"user_id"`
	Type       string `json:"type"`
	Title      string `json:"title"`
	Message    string `json:"message"`
}

// Run polls the reminder dispatch queue and fans each due job out to the
// notification topic. Jobs whose reminder was completed or deleted in the
// meantime are dropped; publish failures go to the dead-letter queue.
func Run(ctx context.Context, cfg *config.Config, logger zerolog.Logger, client *pgmq.Client, publisher pubsub.Publisher, reminders repository.ReminderRepository) error {
	queue := cfg.ReminderQueueName
	logger.Info().Str("queue", queue).Str("topic", cfg.ReminderTopic).Msg("Starting reminder notifier")
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Shutting down reminder notifier")
			return nil
		default:
		}

		msgs, err := client.ReadWithPoll(ctx, queue, cfg.NotifierPollTimeoutSec, cfg.NotifierPollMaxMsg)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info().Msg("Shutting down reminder notifier")
				return nil
			}
			logger.Error().Err(err).Msg("Error reading dispatch queue")
			time.Sleep(time.Second)
			continue
		}
		if len(msgs) == 0 {
			continue
		}

		msg := msgs[0]
		logger.Info().Int64("msg_id", msg.ID).Msg("Received dispatch job")

		var job dispatchJob
		if err := json.Unmarshal(msg.Data, &job); err != nil {
			logger.Error().Err(err).Msg("Failed to unmarshal dispatch payload; deleting message")
			client.Delete(ctx, queue, []int64{msg.ID})
			continue
		}

		// The reminder row is the source of truth; skip jobs whose reminder
		// was completed or removed while the message sat in the queue.
		rem, err := reminders.GetByIDForUser(ctx, job.ReminderID, job.UserID)
		if err != nil {
			logger.Error().Err(err).Int64("reminder_id", job.ReminderID).Msg("Failed to load reminder; will retry")
			time.Sleep(time.Second)
			continue
		}
		if rem == nil || rem.IsCompleted {
			logger.Info().Int64("reminder_id", job.ReminderID).Msg("Reminder no longer pending, dropping job")
			if err := client.Delete(ctx, queue, []int64{msg.ID}); err != nil {
				logger.Error().Err(err).Msg("Error deleting stale dispatch message")
			}
			continue
		}

		if id, err := publisher.Publish(ctx, cfg.ReminderTopic, msg.Data); err != nil {
			logger.Error().Err(err).Int64("reminder_id", job.ReminderID).Msg("Failed to publish notification; moving job to DLQ")
			if err := client.Send(ctx, cfg.ReminderDLQName, msg.Data, 0); err != nil {
				logger.Error().Err(err).Str("dlq", cfg.ReminderDLQName).Msg("Failed to send message to dead-letter queue")
			}
			if err := client.Delete(ctx, queue, []int64{msg.ID}); err != nil {
				logger.Error().Err(err).Msg("Error deleting dispatch message after failure")
			}
			continue
		} else {
			logger.Info().Str("message_id", id).Int64("reminder_id", job.ReminderID).Msg("Notification published")
		}

		if err := client.Delete(ctx, queue, []int64{msg.ID}); err != nil {
			logger.Error().Err(err).Msg("Error deleting dispatch message")
		}
	}
}
