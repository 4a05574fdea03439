package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"planthealth/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrQuotaLimitReached is returned when a non-VIP user has exhausted their
// monthly detection quota inside the combined diagnosis commit.
var ErrQuotaLimitReached = errors.New("quota_limit_reached")

// DiagnosisRepository persists diagnosis history.
type DiagnosisRepository interface {
	// CreateWithUsage writes the diagnosis record, increments the user's
	// monthly counter and, when given, creates the derived reminder — all in
	// one transaction. Returns ErrQuotaLimitReached when a concurrent request
	// already consumed the last detection, leaving no partial state.
	CreateWithUsage(ctx context.Context, rec *model.DiagnosisRecord, reminder *model.Reminder, monthlyLimit int) error
	GetByID(ctx context.Context, id int64) (*model.DiagnosisRecord, error)
	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]model.DiagnosisRecord, error)
	// Delete removes a record owned by the user. Returns false if no such
	// record exists for that owner.
	Delete(ctx context.Context, id int64, userID string) (bool, error)
}

type diagnosisRepo struct {
	pool *pgxpool.Pool
}

// NewDiagnosisRepo creates a new DiagnosisRepository.
func NewDiagnosisRepo(pool *pgxpool.Pool) DiagnosisRepository {
	return &diagnosisRepo{pool: pool}
}

func (r *diagnosisRepo) CreateWithUsage(ctx context.Context, rec *model.DiagnosisRecord, reminder *model.Reminder, monthlyLimit int) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("starting diagnosis transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// The counter update re-checks the limit so two concurrent requests at
	// the boundary cannot both pass the service-level quota check.
	const usageQ = `
        UPDATE memberships
        SET monthly_detections = monthly_detections + 1,
            updated_at = NOW()
        WHERE user_id = $1
          AND (is_vip OR monthly_detections < $2)
    `
	tag, err := tx.Exec(ctx, usageQ, rec.UserID, monthlyLimit)
	if err != nil {
		return fmt.Errorf("incrementing detections for user %s: %w", rec.UserID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrQuotaLimitReached
	}

	suggestions, err := json.Marshal(rec.HandlingSuggestions)
	if err != nil {
		return fmt.Errorf("marshal handling suggestions: %w", err)
	}
	const insertQ = `
        INSERT INTO diagnosis_records
            (user_id, plant_name, scientific_name, status, problem_judgment,
             severity, severity_value, handling_suggestions, need_product,
             plant_introduction, reminder_type, reminder_reason, reminder_days,
             image_path)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
        RETURNING id, created_at
    `
	err = tx.QueryRow(ctx, insertQ,
		rec.UserID,
		rec.PlantName,
		rec.ScientificName,
		rec.Status,
		rec.ProblemJudgment,
		rec.Severity,
		rec.SeverityValue,
		suggestions,
		rec.NeedProduct,
		rec.PlantIntroduction,
		rec.ReminderType,
		rec.ReminderReason,
		rec.ReminderDays,
		rec.ImagePath,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting diagnosis record for user %s: %w", rec.UserID, err)
	}

	if reminder != nil {
		const reminderQ = `
            INSERT INTO reminders (user_id, plant_id, type, title, message, reason, scheduled_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7)
            RETURNING id, created_at
        `
		err = tx.QueryRow(ctx, reminderQ,
			reminder.UserID,
			reminder.PlantID,
			reminder.Type,
			reminder.Title,
			reminder.Message,
			reminder.Reason,
			reminder.ScheduledAt,
		).Scan(&reminder.ID, &reminder.CreatedAt)
		if err != nil {
			return fmt.Errorf("inserting derived reminder for user %s: %w", rec.UserID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing diagnosis for user %s: %w", rec.UserID, err)
	}
	return nil
}

const diagnosisColumns = `id, user_id, plant_name, scientific_name, status, problem_judgment,
       severity, severity_value, handling_suggestions, need_product,
       plant_introduction, reminder_type, reminder_reason, reminder_days,
       image_path, created_at`

func scanDiagnosis(row pgx.Row) (*model.DiagnosisRecord, error) {
	var rec model.DiagnosisRecord
	var rawSuggestions []byte
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.PlantName,
		&rec.ScientificName,
		&rec.Status,
		&rec.ProblemJudgment,
		&rec.Severity,
		&rec.SeverityValue,
		&rawSuggestions,
		&rec.NeedProduct,
		&rec.PlantIntroduction,
		&rec.ReminderType,
		&rec.ReminderReason,
		&rec.ReminderDays,
		&rec.ImagePath,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(rawSuggestions, &rec.HandlingSuggestions); err != nil {
		return nil, fmt.Errorf("unmarshal handling_suggestions for record %d: %w", rec.ID, err)
	}
	return &rec, nil
}

func (r *diagnosisRepo) GetByID(ctx context.Context, id int64) (*model.DiagnosisRecord, error) {
	const q = `SELECT ` + diagnosisColumns + ` FROM diagnosis_records WHERE id = $1`
	rec, err := scanDiagnosis(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch diagnosis %d: %w", id, err)
	}
	return rec, nil
}

func (r *diagnosisRepo) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]model.DiagnosisRecord, error) {
	const q = `SELECT ` + diagnosisColumns + `
               FROM diagnosis_records
               WHERE user_id = $1
               ORDER BY created_at DESC
               LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list diagnoses for user %s: %w", userID, err)
	}
	defer rows.Close()

	records := []model.DiagnosisRecord{}
	for rows.Next() {
		rec, err := scanDiagnosis(rows)
		if err != nil {
			return nil, fmt.Errorf("scan diagnosis row: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("diagnosis rows error: %w", err)
	}
	return records, nil
}

func (r *diagnosisRepo) Delete(ctx context.Context, id int64, userID string) (bool, error) {
	const q = `DELETE FROM diagnosis_records WHERE id = $1 AND user_id = $2`
	tag, err := r.pool.Exec(ctx, q, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete diagnosis %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}
