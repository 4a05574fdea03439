package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"planthealth/internal/model"
	"planthealth/internal/repository"

	"github.com/rs/zerolog"
)

type diagnosisFixture struct {
	membershipRepo *fakeMembershipRepo
	diagnosisRepo  *fakeDiagnosisRepo
	reminderRepo   *fakeReminderRepo
	memberships    MembershipService
	reminders      ReminderService
	images         *fakeImageStore
	provider       *fakeProvider
	queue          *fakeQueue
	svc            DiagnosisService
}

func newDiagnosisFixture(provider *fakeProvider) *diagnosisFixture {
	membershipRepo := newFakeMembershipRepo()
	diagnosisRepo := newFakeDiagnosisRepo(membershipRepo)
	reminderRepo := &fakeReminderRepo{}
	queue := &fakeQueue{}
	images := &fakeImageStore{}

	memberships := NewMembershipService(membershipRepo, 5, zerolog.Nop())
	reminders := NewReminderService(reminderRepo, queue, "reminder_dispatch", zerolog.Nop())
	// A pinned pick keeps simulator fallbacks deterministic.
	simulator := NewSimulatorWithPick(func(int) int { return 1 })

	svc := NewDiagnosisService(
		diagnosisRepo,
		memberships,
		reminders,
		images,
		provider,
		simulator,
		time.Second,
		zerolog.Nop(),
	)
	return &diagnosisFixture{
		membershipRepo: membershipRepo,
		diagnosisRepo:  diagnosisRepo,
		reminderRepo:   reminderRepo,
		memberships:    memberships,
		reminders:      reminders,
		images:         images,
		provider:       provider,
		queue:          queue,
		svc:            svc,
	}
}

func healthyResult() *model.DiagnosisResult {
	return &model.DiagnosisResult{
		PlantName:           "Monstera",
		ScientificName:      "Monstera deliciosa",
		Status:              "healthy",
		ProblemJudgment:     "No issues found.",
		Severity:            "none",
		HandlingSuggestions: []string{"Keep doing what you are doing."},
		PlantIntroduction:   "A tropical climber.",
	}
}

func TestDiagnoseUnsupportedMediaType(t *testing.T) {
	f := newDiagnosisFixture(&fakeProvider{result: healthyResult()})

	_, err := f.svc.Diagnose(context.Background(), "user-1", []byte("gifdata"), "image/gif")
	if !errors.Is(err, ErrUnsupportedMediaType) {
		t.Fatalf("expected ErrUnsupportedMediaType, got %v", err)
	}
	if f.images.stored != 0 {
		t.Error("rejected upload must not be stored")
	}
	if f.provider.calls != 0 {
		t.Error("rejected upload must not reach the provider")
	}
}

func TestDiagnoseSuccessConsumesQuota(t *testing.T) {
	f := newDiagnosisFixture(&fakeProvider{result: healthyResult()})

	rec, err := f.svc.Diagnose(context.Background(), "user-1", []byte("jpegdata"), "image/jpeg")
	if err != nil {
		t.Fatalf("Diagnose failed: %v", err)
	}
	if rec.ID == 0 {
		t.Error("record should have an assigned id")
	}
	if rec.ImagePath == "" {
		t.Error("record should carry the stored image path")
	}
	if got := f.membershipRepo.detections("user-1"); got != 1 {
		t.Errorf("expected 1 detection consumed, got %d", got)
	}
	if len(f.diagnosisRepo.records) != 1 {
		t.Fatalf("expected 1 persisted record, got %d", len(f.diagnosisRepo.records))
	}
}

func TestDiagnoseProviderFailureFallsBack(t *testing.T) {
	f := newDiagnosisFixture(&fakeProvider{err: errors.New("connection refused")})

	rec, err := f.svc.Diagnose(context.Background(), "user-1", []byte("jpegdata"), "image/jpeg")
	if err != nil {
		t.Fatalf("provider failure must not surface, got %v", err)
	}
	// Pick pinned to 1: the underwatered Peace Lily entry.
	if rec.PlantName != "Peace Lily" {
		t.Errorf("expected simulator fallback result, got %q", rec.PlantName)
	}
	if rec.Status != "underwatered" {
		t.Errorf("expected simulator status, got %q", rec.Status)
	}
	if got := f.membershipRepo.detections("user-1"); got != 1 {
		t.Errorf("fallback diagnosis still consumes quota, got %d", got)
	}
}

func TestDiagnoseQuotaExceededBeforeWork(t *testing.T) {
	f := newDiagnosisFixture(&fakeProvider{result: healthyResult()})
	if _, err := f.memberships.GetOrCreate(context.Background(), "user-1"); err != nil {
		t.Fatalf("seed membership: %v", err)
	}
	f.membershipRepo.memberships["user-1"].MonthlyDetections = 5

	_, err := f.svc.Diagnose(context.Background(), "user-1", []byte("jpegdata"), "image/jpeg")
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if f.images.stored != 0 {
		t.Error("over-quota request must not store an image")
	}
	if f.provider.calls != 0 {
		t.Error("over-quota request must not reach the provider")
	}
	if got := f.membershipRepo.detections("user-1"); got != 5 {
		t.Errorf("failed diagnosis must not change the counter, got %d", got)
	}
}

func TestDiagnoseQuotaRaceAtCommit(t *testing.T) {
	// The commit re-checks the quota; a concurrent diagnosis that landed
	// between the fast-path check and the commit surfaces as quota exceeded.
	f := newDiagnosisFixture(&fakeProvider{result: healthyResult()})
	f.diagnosisRepo.commitErr = repository.ErrQuotaLimitReached

	_, err := f.svc.Diagnose(context.Background(), "user-1", []byte("jpegdata"), "image/jpeg")
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if !strings.Contains(err.Error(), "5") {
		t.Errorf("quota error should mention the limit, got %q", err.Error())
	}
}

func TestDiagnoseCommitFailureLeavesQuotaUntouched(t *testing.T) {
	f := newDiagnosisFixture(&fakeProvider{result: healthyResult()})
	f.diagnosisRepo.commitErr = errors.New("connection reset")

	_, err := f.svc.Diagnose(context.Background(), "user-1", []byte("jpegdata"), "image/jpeg")
	if err == nil {
		t.Fatal("expected commit failure to surface")
	}
	if got := f.membershipRepo.detections("user-1"); got != 0 {
		t.Errorf("failed commit must leave the counter at 0, got %d", got)
	}
	if len(f.diagnosisRepo.records) != 0 {
		t.Error("failed commit must not leave a record behind")
	}
}

func TestDiagnoseAppliesDefaults(t *testing.T) {
	f := newDiagnosisFixture(&fakeProvider{result: &model.DiagnosisResult{}, stage: DecodeDefaulted})

	rec, err := f.svc.Diagnose(context.Background(), "user-1", []byte("jpegdata"), "image/jpeg")
	if err != nil {
		t.Fatalf("Diagnose failed: %v", err)
	}
	if rec.PlantName != "unknown plant" {
		t.Errorf("expected default plant name, got %q", rec.PlantName)
	}
	if rec.Status != "unrecognized" {
		t.Errorf("expected default status, got %q", rec.Status)
	}
	if rec.Severity != "mild" || rec.SeverityValue != 30 {
		t.Errorf("expected default severity mild/30, got %s/%d", rec.Severity, rec.SeverityValue)
	}
	if len(rec.HandlingSuggestions) != 1 {
		t.Errorf("expected a single default suggestion, got %d", len(rec.HandlingSuggestions))
	}
}

func TestDiagnoseSeverityValueClamped(t *testing.T) {
	result := healthyResult()
	result.Severity = "severe"
	result.SeverityValue = 140
	f := newDiagnosisFixture(&fakeProvider{result: result})

	rec, err := f.svc.Diagnose(context.Background(), "user-1", []byte("jpegdata"), "image/jpeg")
	if err != nil {
		t.Fatalf("Diagnose failed: %v", err)
	}
	if rec.SeverityValue != 100 {
		t.Errorf("expected severity value clamped to 100, got %d", rec.SeverityValue)
	}
}

func TestDiagnoseDerivesReminder(t *testing.T) {
	result := healthyResult()
	result.Status = "underwatered"
	result.ReminderType = "watering reminder"
	result.ReminderReason = "Soil was bone dry."
	result.ReminderDays = 2
	f := newDiagnosisFixture(&fakeProvider{result: result})

	rec, err := f.svc.Diagnose(context.Background(), "user-1", []byte("jpegdata"), "image/jpeg")
	if err != nil {
		t.Fatalf("Diagnose failed: %v", err)
	}
	if rec.ReminderType == nil || *rec.ReminderType != "watering reminder" {
		t.Error("record should keep the provider's reminder label")
	}
	if len(f.diagnosisRepo.reminders) != 1 {
		t.Fatalf("expected 1 reminder committed with the diagnosis, got %d", len(f.diagnosisRepo.reminders))
	}
	if got := f.diagnosisRepo.reminders[0].Type; got != model.ReminderTypeWatering {
		t.Errorf("expected watering reminder, got %q", got)
	}
	if len(f.queue.jobs) != 1 {
		t.Fatalf("expected 1 dispatch job enqueued, got %d", len(f.queue.jobs))
	}
	if f.queue.jobs[0].delaySec <= 0 {
		t.Errorf("a reminder two days out should have a positive dispatch delay, got %d", f.queue.jobs[0].delaySec)
	}
}

func TestDiagnoseGetOwnership(t *testing.T) {
	f := newDiagnosisFixture(&fakeProvider{result: healthyResult()})
	rec, err := f.svc.Diagnose(context.Background(), "user-1", []byte("jpegdata"), "image/jpeg")
	if err != nil {
		t.Fatalf("Diagnose failed: %v", err)
	}

	got, imageURL, err := f.svc.Get(context.Background(), rec.ID, "user-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ID != rec.ID {
		t.Errorf("expected record %d, got %d", rec.ID, got.ID)
	}
	if imageURL == "" {
		t.Error("owner fetch should include a presigned image URL")
	}

	// Another user's fetch is indistinguishable from a missing record.
	if _, _, err := f.svc.Get(context.Background(), rec.ID, "user-2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign record, got %v", err)
	}
	if err := f.svc.Delete(context.Background(), rec.ID, "user-2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting foreign record, got %v", err)
	}
}

func TestDiagnoseQuotaLifecycle(t *testing.T) {
	f := newDiagnosisFixture(&fakeProvider{result: healthyResult()})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := f.svc.Diagnose(ctx, "user-1", []byte("jpegdata"), "image/jpeg"); err != nil {
			t.Fatalf("diagnosis %d failed: %v", i+1, err)
		}
	}

	_, err := f.svc.Diagnose(ctx, "user-1", []byte("jpegdata"), "image/jpeg")
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("sixth diagnosis: expected ErrQuotaExceeded, got %v", err)
	}
	if !strings.Contains(err.Error(), "5") {
		t.Errorf("quota error should mention the limit, got %q", err.Error())
	}

	if _, err := f.memberships.UpgradeToVip(ctx, "user-1", validTxHash, validWallet); err != nil {
		t.Fatalf("VIP upgrade failed: %v", err)
	}

	if _, err := f.svc.Diagnose(ctx, "user-1", []byte("jpegdata"), "image/jpeg"); err != nil {
		t.Fatalf("post-upgrade diagnosis failed: %v", err)
	}
	m, err := f.memberships.GetOrCreate(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if got := f.memberships.RemainingDetections(m); got != UnlimitedDetections {
		t.Errorf("expected unlimited remaining after upgrade, got %d", got)
	}
}
