package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"planthealth/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReminderRepository persists scheduled reminders.
type ReminderRepository interface {
	Create(ctx context.Context, rem *model.Reminder) error
	GetByIDForUser(ctx context.Context, id int64, userID string) (*model.Reminder, error)
	ListByUserID(ctx context.Context, userID string) ([]model.Reminder, error)
	Update(ctx context.Context, rem *model.Reminder) error
	Delete(ctx context.Context, id int64, userID string) (bool, error)
	// GetActiveWatering returns the incomplete watering reminder for a plant,
	// or nil when there is none.
	GetActiveWatering(ctx context.Context, plantID int64) (*model.Reminder, error)
	// ReplaceActiveWatering completes any incomplete watering reminder for the
	// plant and inserts the new one in a single transaction, keeping the
	// at-most-one-active invariant.
	ReplaceActiveWatering(ctx context.Context, rem *model.Reminder) error
	// CountDueSoon counts unread, incomplete reminders scheduled at or before
	// the cutoff instant.
	CountDueSoon(ctx context.Context, userID string, cutoff time.Time) (int, error)
}

type reminderRepo struct {
	pool *pgxpool.Pool
}

// NewReminderRepo creates a new ReminderRepository.
func NewReminderRepo(pool *pgxpool.Pool) ReminderRepository {
	return &reminderRepo{pool: pool}
}

const reminderColumns = `id, user_id, plant_id, type, title, message, reason,
       scheduled_at, is_completed, is_read, created_at`

const reminderInsertQ = `
    INSERT INTO reminders (user_id, plant_id, type, title, message, reason, scheduled_at)
    VALUES ($1, $2, $3, $4, $5, $6, $7)
    RETURNING id, created_at
`

func scanReminder(row pgx.Row) (*model.Reminder, error) {
	var rem model.Reminder
	err := row.Scan(
		&rem.ID,
		&rem.UserID,
		&rem.PlantID,
		&rem.Type,
		&rem.Title,
		&rem.Message,
		&rem.Reason,
		&rem.ScheduledAt,
		&rem.IsCompleted,
		&rem.IsRead,
		&rem.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rem, nil
}

func (r *reminderRepo) Create(ctx context.Context, rem *model.Reminder) error {
	err := r.pool.QueryRow(ctx, reminderInsertQ,
		rem.UserID, rem.PlantID, rem.Type, rem.Title, rem.Message, rem.Reason, rem.ScheduledAt,
	).Scan(&rem.ID, &rem.CreatedAt)
	if err != nil {
		return fmt.Errorf("create reminder for user %s: %w", rem.UserID, err)
	}
	return nil
}

func (r *reminderRepo) GetByIDForUser(ctx context.Context, id int64, userID string) (*model.Reminder, error) {
	const q = `SELECT ` + reminderColumns + ` FROM reminders WHERE id = $1 AND user_id = $2`
	rem, err := scanReminder(r.pool.QueryRow(ctx, q, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch reminder %d: %w", id, err)
	}
	return rem, nil
}

func (r *reminderRepo) ListByUserID(ctx context.Context, userID string) ([]model.Reminder, error) {
	const q = `SELECT ` + reminderColumns + ` FROM reminders WHERE user_id = $1 ORDER BY scheduled_at`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list reminders for user %s: %w", userID, err)
	}
	defer rows.Close()

	reminders := []model.Reminder{}
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reminder row: %w", err)
		}
		reminders = append(reminders, *rem)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reminder rows error: %w", err)
	}
	return reminders, nil
}

func (r *reminderRepo) Update(ctx context.Context, rem *model.Reminder) error {
	const q = `
        UPDATE reminders
        SET title = $3,
            message = $4,
            reason = $5,
            scheduled_at = $6,
            is_completed = $7,
            is_read = $8
        WHERE id = $1 AND user_id = $2
    `
	tag, err := r.pool.Exec(ctx, q,
		rem.ID, rem.UserID, rem.Title, rem.Message, rem.Reason,
		rem.ScheduledAt, rem.IsCompleted, rem.IsRead,
	)
	if err != nil {
		return fmt.Errorf("update reminder %d: %w", rem.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update reminder %d: %w", rem.ID, pgx.ErrNoRows)
	}
	return nil
}

func (r *reminderRepo) Delete(ctx context.Context, id int64, userID string) (bool, error) {
	const q = `DELETE FROM reminders WHERE id = $1 AND user_id = $2`
	tag, err := r.pool.Exec(ctx, q, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete reminder %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *reminderRepo) GetActiveWatering(ctx context.Context, plantID int64) (*model.Reminder, error) {
	const q = `SELECT ` + reminderColumns + `
               FROM reminders
               WHERE plant_id = $1 AND type = 'watering' AND is_completed = false`
	rem, err := scanReminder(r.pool.QueryRow(ctx, q, plantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch active watering reminder for plant %d: %w", plantID, err)
	}
	return rem, nil
}

func (r *reminderRepo) ReplaceActiveWatering(ctx context.Context, rem *model.Reminder) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("starting watering reminder transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	const completeQ = `
        UPDATE reminders
        SET is_completed = true
        WHERE plant_id = $1 AND type = 'watering' AND is_completed = false
    `
	if _, err := tx.Exec(ctx, completeQ, rem.PlantID); err != nil {
		return fmt.Errorf("completing previous watering reminder for plant %d: %w", *rem.PlantID, err)
	}

	err = tx.QueryRow(ctx, reminderInsertQ,
		rem.UserID, rem.PlantID, rem.Type, rem.Title, rem.Message, rem.Reason, rem.ScheduledAt,
	).Scan(&rem.ID, &rem.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting watering reminder for plant %d: %w", *rem.PlantID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing watering reminder for plant %d: %w", *rem.PlantID, err)
	}
	return nil
}

func (r *reminderRepo) CountDueSoon(ctx context.Context, userID string, cutoff time.Time) (int, error) {
	var count int
	const q = `
        SELECT COUNT(*)
        FROM reminders
        WHERE user_id = $1
          AND is_read = false
          AND is_completed = false
          AND scheduled_at <= $2
    `
	if err := r.pool.QueryRow(ctx, q, userID, cutoff).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting due reminders for user %s: %w", userID, err)
	}
	return count, nil
}
