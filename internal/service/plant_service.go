package service

import (
	"context"
	"time"

	"planthealth/internal/model"
	"planthealth/internal/repository"

	"github.com/rs/zerolog"
)

// PlantCreateInput carries the fields for a new tracked plant.
type PlantCreateInput struct {
	Name                 string
	Nickname             *string
	ScientificName       *string
	Status               string
	DiagnosisID          *int64
	Notes                string
	WateringIntervalDays *int
	LastWateredDate      *time.Time
}

// PlantUpdateInput carries a partial update; nil fields are left untouched.
type PlantUpdateInput struct {
	Name                 *string
	Nickname             *string
	ScientificName       *string
	Status               *string
	Notes                *string
	WateringIntervalDays *int
	LastWateredDate      *time.Time
}

// PlantService owns the tracked-plant lifecycle, including seeding from
// diagnoses and watering-driven reminder upkeep.
type PlantService interface {
	Create(ctx context.Context, userID string, input PlantCreateInput) (*model.Plant, error)
	Get(ctx context.Context, id int64, userID string) (*model.Plant, error)
	List(ctx context.Context, userID string) ([]model.Plant, error)
	Update(ctx context.Context, id int64, userID string, input PlantUpdateInput) (*model.Plant, error)
	// RecordWatering stamps today as the last watered date and re-derives the
	// watering reminder when a cadence is set.
	RecordWatering(ctx context.Context, id int64, userID string) (*model.Plant, error)
	Delete(ctx context.Context, id int64, userID string) error
}

type plantService struct {
	repo      repository.PlantRepository
	diagnoses repository.DiagnosisRepository
	reminders ReminderService
	logger    zerolog.Logger
	now       func() time.Time
}

// NewPlantService creates a new PlantService with a scoped logger.
func NewPlantService(repo repository.PlantRepository, diagnoses repository.DiagnosisRepository, reminders ReminderService, logger zerolog.Logger) PlantService {
	return &plantService{
		repo:      repo,
		diagnoses: diagnoses,
		reminders: reminders,
		logger:    logger.With().Str("service", "PlantService").Logger(),
		now:       time.Now,
	}
}

// computeNextWatering derives the next watering date when both cadence and
// last watered date are present, and clears it otherwise.
func computeNextWatering(p *model.Plant) {
	if p.WateringIntervalDays != nil && p.LastWateredDate != nil {
		next := p.LastWateredDate.AddDate(0, 0, *p.WateringIntervalDays)
		p.NextWateringDate = &next
		return
	}
	p.NextWateringDate = nil
}

func (s *plantService) Create(ctx context.Context, userID string, input PlantCreateInput) (*model.Plant, error) {
	plant := &model.Plant{
		UserID:               userID,
		Name:                 input.Name,
		Nickname:             input.Nickname,
		ScientificName:       input.ScientificName,
		Status:               input.Status,
		DiagnosisID:          input.DiagnosisID,
		Notes:                input.Notes,
		WateringIntervalDays: input.WateringIntervalDays,
		LastWateredDate:      input.LastWateredDate,
	}

	if input.DiagnosisID != nil {
		rec, err := s.diagnoses.GetByID(ctx, *input.DiagnosisID)
		if err != nil {
			return nil, err
		}
		if rec == nil || rec.UserID != userID {
			return nil, ErrNotFound
		}
		// Back-fill display fields the user left unset.
		if plant.Name == "" {
			plant.Name = rec.PlantName
		}
		if plant.ScientificName == nil && rec.ScientificName != "" {
			sci := rec.ScientificName
			plant.ScientificName = &sci
		}
		if plant.Status == "" {
			plant.Status = rec.Status
		}
		if rec.ImagePath != "" {
			imagePath := rec.ImagePath
			plant.ImagePath = &imagePath
		}
	}
	if plant.Status == "" {
		plant.Status = "healthy"
	}
	computeNextWatering(plant)

	if err := s.repo.Create(ctx, plant); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to create plant")
		return nil, err
	}

	if plant.NextWateringDate != nil {
		if _, err := s.reminders.DeriveFromWatering(ctx, plant); err != nil {
			return nil, err
		}
	}
	return plant, nil
}

func (s *plantService) Get(ctx context.Context, id int64, userID string) (*model.Plant, error) {
	plant, err := s.repo.GetByIDForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if plant == nil {
		return nil, ErrNotFound
	}
	return plant, nil
}

func (s *plantService) List(ctx context.Context, userID string) ([]model.Plant, error) {
	return s.repo.ListByUserID(ctx, userID)
}

func (s *plantService) Update(ctx context.Context, id int64, userID string, input PlantUpdateInput) (*model.Plant, error) {
	plant, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		plant.Name = *input.Name
	}
	if input.Nickname != nil {
		plant.Nickname = input.Nickname
	}
	if input.ScientificName != nil {
		plant.ScientificName = input.ScientificName
	}
	if input.Status != nil {
		plant.Status = *input.Status
	}
	if input.Notes != nil {
		plant.Notes = *input.Notes
	}
	if input.WateringIntervalDays != nil {
		plant.WateringIntervalDays = input.WateringIntervalDays
	}
	if input.LastWateredDate != nil {
		plant.LastWateredDate = input.LastWateredDate
	}
	computeNextWatering(plant)

	if err := s.repo.Update(ctx, plant); err != nil {
		s.logger.Error().Err(err).Int64("plant_id", id).Msg("Failed to update plant")
		return nil, err
	}

	if plant.NextWateringDate != nil {
		if err := s.reminders.ReconcileWatering(ctx, plant); err != nil {
			return nil, err
		}
	}
	return plant, nil
}

func (s *plantService) RecordWatering(ctx context.Context, id int64, userID string) (*model.Plant, error) {
	plant, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	plant.LastWateredDate = &today
	computeNextWatering(plant)

	if err := s.repo.Update(ctx, plant); err != nil {
		s.logger.Error().Err(err).Int64("plant_id", id).Msg("Failed to record watering")
		return nil, err
	}

	if plant.WateringIntervalDays != nil {
		if _, err := s.reminders.DeriveFromWatering(ctx, plant); err != nil {
			return nil, err
		}
	}
	return plant, nil
}

func (s *plantService) Delete(ctx context.Context, id int64, userID string) error {
	deleted, err := s.repo.Delete(ctx, id, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}
