package repository

import (
	"context"
	"errors"
	"fmt"

	"planthealth/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PlantRepository persists tracked plants.
type PlantRepository interface {
	Create(ctx context.Context, p *model.Plant) error
	// GetByIDForUser returns nil when the plant does not exist or belongs to
	// another user, so ownership failures are indistinguishable from absence.
	GetByIDForUser(ctx context.Context, id int64, userID string) (*model.Plant, error)
	ListByUserID(ctx context.Context, userID string) ([]model.Plant, error)
	Update(ctx context.Context, p *model.Plant) error
	Delete(ctx context.Context, id int64, userID string) (bool, error)
}

type plantRepo struct {
	pool *pgxpool.Pool
}

// NewPlantRepo creates a new PlantRepository.
func NewPlantRepo(pool *pgxpool.Pool) PlantRepository {
	return &plantRepo{pool: pool}
}

const plantColumns = `id, user_id, name, nickname, scientific_name, status, diagnosis_id,
       image_path, notes, watering_interval_days, last_watered_date,
       next_watering_date, created_at, updated_at`

func scanPlant(row pgx.Row) (*model.Plant, error) {
	var p model.Plant
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Name,
		&p.Nickname,
		&p.ScientificName,
		&p.Status,
		&p.DiagnosisID,
		&p.ImagePath,
		&p.Notes,
		&p.WateringIntervalDays,
		&p.LastWateredDate,
		&p.NextWateringDate,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *plantRepo) Create(ctx context.Context, p *model.Plant) error {
	const q = `
        INSERT INTO plants
            (user_id, name, nickname, scientific_name, status, diagnosis_id,
             image_path, notes, watering_interval_days, last_watered_date,
             next_watering_date)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING id, created_at, updated_at
    `
	err := r.pool.QueryRow(ctx, q,
		p.UserID,
		p.Name,
		p.Nickname,
		p.ScientificName,
		p.Status,
		p.DiagnosisID,
		p.ImagePath,
		p.Notes,
		p.WateringIntervalDays,
		p.LastWateredDate,
		p.NextWateringDate,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create plant for user %s: %w", p.UserID, err)
	}
	return nil
}

func (r *plantRepo) GetByIDForUser(ctx context.Context, id int64, userID string) (*model.Plant, error) {
	const q = `SELECT ` + plantColumns + ` FROM plants WHERE id = $1 AND user_id = $2`
	p, err := scanPlant(r.pool.QueryRow(ctx, q, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch plant %d: %w", id, err)
	}
	return p, nil
}

func (r *plantRepo) ListByUserID(ctx context.Context, userID string) ([]model.Plant, error) {
	const q = `SELECT ` + plantColumns + ` FROM plants WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list plants for user %s: %w", userID, err)
	}
	defer rows.Close()

	plants := []model.Plant{}
	for rows.Next() {
		p, err := scanPlant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plant row: %w", err)
		}
		plants = append(plants, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("plant rows error: %w", err)
	}
	return plants, nil
}

func (r *plantRepo) Update(ctx context.Context, p *model.Plant) error {
	const q = `
        UPDATE plants
        SET name = $3,
            nickname = $4,
            scientific_name = $5,
            status = $6,
            image_path = $7,
            notes = $8,
            watering_interval_days = $9,
            last_watered_date = $10,
            next_watering_date = $11,
            updated_at = NOW()
        WHERE id = $1 AND user_id = $2
        RETURNING updated_at
    `
	err := r.pool.QueryRow(ctx, q,
		p.ID,
		p.UserID,
		p.Name,
		p.Nickname,
		p.ScientificName,
		p.Status,
		p.ImagePath,
		p.Notes,
		p.WateringIntervalDays,
		p.LastWateredDate,
		p.NextWateringDate,
	).Scan(&p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update plant %d: %w", p.ID, err)
	}
	return nil
}

func (r *plantRepo) Delete(ctx context.Context, id int64, userID string) (bool, error) {
	const q = `DELETE FROM plants WHERE id = $1 AND user_id = $2`
	tag, err := r.pool.Exec(ctx, q, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete plant %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}
