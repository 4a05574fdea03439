package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"planthealth/internal/model"
	"planthealth/internal/repository"

	"github.com/rs/zerolog"
)

// ErrUnsupportedMediaType is returned for uploads that are not JPEG or PNG.
var ErrUnsupportedMediaType = errors.New("only JPEG and PNG images are supported")

// Defaults substituted for fields the provider payload left out. A partially
// malformed payload must never fail the request.
const (
	defaultPlantName     = "unknown plant"
	defaultStatus        = "unrecognized"
	defaultJudgment      = "No clear problem could be identified from the photo."
	defaultSeverity      = "mild"
	defaultSeverityValue = 30
	defaultSuggestion    = "Monitor the plant and take another photo in a few days."
)

// DiagnosisService coordinates the quota-gated diagnosis workflow: quota
// check, image persistence, provider call with local fallback, result
// normalization and the combined history/quota/reminder commit.
type DiagnosisService interface {
	Diagnose(ctx context.Context, userID string, image []byte, mimeType string) (*model.DiagnosisRecord, error)
	List(ctx context.Context, userID string, limit, offset int) ([]model.DiagnosisRecord, error)
	// Get returns the record and a short-lived URL for its stored image.
	Get(ctx context.Context, id int64, userID string) (*model.DiagnosisRecord, string, error)
	Delete(ctx context.Context, id int64, userID string) error
}

type diagnosisService struct {
	repo            repository.DiagnosisRepository
	memberships     MembershipService
	reminders       ReminderService
	images          ImageStore
	provider        DiagnosisProvider
	simulator       *Simulator
	providerTimeout time.Duration
	logger          zerolog.Logger
}

// NewDiagnosisService creates a new DiagnosisService with a scoped logger.
func NewDiagnosisService(
	repo repository.DiagnosisRepository,
	memberships MembershipService,
	reminders ReminderService,
	images ImageStore,
	provider DiagnosisProvider,
	simulator *Simulator,
	providerTimeout time.Duration,
	logger zerolog.Logger,
) DiagnosisService {
	return &diagnosisService{
		repo:            repo,
		memberships:     memberships,
		reminders:       reminders,
		images:          images,
		provider:        provider,
		simulator:       simulator,
		providerTimeout: providerTimeout,
		logger:          logger.With().Str("service", "DiagnosisService").Logger(),
	}
}

func (s *diagnosisService) Diagnose(ctx context.Context, userID string, image []byte, mimeType string) (*model.DiagnosisRecord, error) {
	if mimeType != "image/jpeg" && mimeType != "image/png" {
		return nil, ErrUnsupportedMediaType
	}

	membership, err := s.memberships.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.memberships.CheckQuota(membership); err != nil {
		return nil, err
	}

	// The upload is persisted before the provider call so it survives a
	// failed diagnosis.
	imagePath, err := s.images.Store(ctx, userID, image, mimeType)
	if err != nil {
		return nil, fmt.Errorf("persist diagnosis image: %w", err)
	}

	result := s.callProvider(ctx, image, mimeType)
	normalizeResult(result)

	rec := recordFromResult(result, userID, imagePath)
	reminder := s.reminders.DeriveFromDiagnosis(result, userID)

	// History write, quota increment and derived reminder commit together;
	// a failure leaves the quota untouched and no record behind.
	if err := s.repo.CreateWithUsage(ctx, rec, reminder, s.memberships.MonthlyLimit()); err != nil {
		if errors.Is(err, repository.ErrQuotaLimitReached) {
			return nil, fmt.Errorf("%w: free plan allows %d detections per month", ErrQuotaExceeded, s.memberships.MonthlyLimit())
		}
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to commit diagnosis")
		return nil, err
	}
	if reminder != nil {
		s.reminders.EnqueueDispatch(ctx, reminder)
	}

	s.logger.Info().
		Str("user_id", userID).
		Int64("diagnosis_id", rec.ID).
		Str("status", rec.Status).
		Msg("Diagnosis completed")
	return rec, nil
}

// callProvider invokes the remote vision model with a bounded timeout and a
// single attempt. Any failure falls back to the local simulator; provider
// errors are never surfaced to the caller.
func (s *diagnosisService) callProvider(ctx context.Context, image []byte, mimeType string) *model.DiagnosisResult {
	ctxReq, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()

	result, stage, err := s.provider.Diagnose(ctxReq, image, mimeType)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Vision provider failed, falling back to simulator")
		return s.simulator.Diagnose()
	}
	if stage == DecodeDefaulted {
		s.logger.Warn().Msg("Vision provider payload unusable, applying defaults")
	}
	return result
}

// normalizeResult fills documented defaults for any missing field.
func normalizeResult(r *model.DiagnosisResult) {
	if r.PlantName == "" {
		r.PlantName = defaultPlantName
	}
	if r.Status == "" {
		r.Status = defaultStatus
	}
	if r.ProblemJudgment == "" {
		r.ProblemJudgment = defaultJudgment
	}
	if r.Severity == "" {
		r.Severity = defaultSeverity
		if r.SeverityValue == 0 {
			r.SeverityValue = defaultSeverityValue
		}
	}
	if r.SeverityValue < 0 {
		r.SeverityValue = 0
	}
	if r.SeverityValue > 100 {
		r.SeverityValue = 100
	}
	if len(r.HandlingSuggestions) == 0 {
		r.HandlingSuggestions = []string{defaultSuggestion}
	}
}

func recordFromResult(r *model.DiagnosisResult, userID, imagePath string) *model.DiagnosisRecord {
	rec := &model.DiagnosisRecord{
		UserID:              userID,
		PlantName:           r.PlantName,
		ScientificName:      r.ScientificName,
		Status:              r.Status,
		ProblemJudgment:     r.ProblemJudgment,
		Severity:            r.Severity,
		SeverityValue:       r.SeverityValue,
		HandlingSuggestions: r.HandlingSuggestions,
		NeedProduct:         r.NeedProduct,
		PlantIntroduction:   r.PlantIntroduction,
		ImagePath:           imagePath,
	}
	if r.ReminderType != "" && r.ReminderType != "none" {
		remType := r.ReminderType
		rec.ReminderType = &remType
	}
	if r.ReminderReason != "" {
		reason := r.ReminderReason
		rec.ReminderReason = &reason
	}
	if r.ReminderDays > 0 {
		days := r.ReminderDays
		rec.ReminderDays = &days
	}
	return rec
}

func (s *diagnosisService) List(ctx context.Context, userID string, limit, offset int) ([]model.DiagnosisRecord, error) {
	return s.repo.ListByUserID(ctx, userID, limit, offset)
}

func (s *diagnosisService) Get(ctx context.Context, id int64, userID string) (*model.DiagnosisRecord, string, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if rec == nil || rec.UserID != userID {
		return nil, "", ErrNotFound
	}
	imageURL, err := s.images.PresignedURL(ctx, rec.ImagePath)
	if err != nil {
		s.logger.Warn().Err(err).Int64("diagnosis_id", id).Msg("Could not presign image URL")
		imageURL = ""
	}
	return rec, imageURL, nil
}

func (s *diagnosisService) Delete(ctx context.Context, id int64, userID string) error {
	deleted, err := s.repo.Delete(ctx, id, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}
