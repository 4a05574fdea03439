package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"planthealth/internal/model"
	"planthealth/internal/repository"
)

// In-memory stands-ins for the Postgres repositories. They mirror the
// repository contracts closely enough for service-level behavior, including
// the conditional quota increment inside the diagnosis commit.

type fakeMembershipRepo struct {
	mu          sync.Mutex
	memberships map[string]*model.Membership
}

func newFakeMembershipRepo() *fakeMembershipRepo {
	return &fakeMembershipRepo{memberships: map[string]*model.Membership{}}
}

func (r *fakeMembershipRepo) GetOrCreate(_ context.Context, userID string, today time.Time) (*model.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.memberships[userID]; ok {
		cp := *m
		return &cp, nil
	}
	m := &model.Membership{UserID: userID, LastResetDate: today, CreatedAt: today, UpdatedAt: today}
	r.memberships[userID] = m
	cp := *m
	return &cp, nil
}

func (r *fakeMembershipRepo) Reset(_ context.Context, userID string, today time.Time) (*model.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.memberships[userID]
	if !ok {
		return nil, errors.New("membership not found")
	}
	m.MonthlyDetections = 0
	m.LastResetDate = today
	cp := *m
	return &cp, nil
}

func (r *fakeMembershipRepo) SetVip(_ context.Context, userID string) (*model.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.memberships[userID]
	if !ok {
		return nil, errors.New("membership not found")
	}
	m.IsVip = true
	cp := *m
	return &cp, nil
}

func (r *fakeMembershipRepo) detections(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.memberships[userID]; ok {
		return m.MonthlyDetections
	}
	return 0
}

type fakeDiagnosisRepo struct {
	memberships *fakeMembershipRepo
	records     []*model.DiagnosisRecord
	reminders   []*model.Reminder
	nextID      int64
	commitErr   error
}

func newFakeDiagnosisRepo(memberships *fakeMembershipRepo) *fakeDiagnosisRepo {
	return &fakeDiagnosisRepo{memberships: memberships}
}

func (r *fakeDiagnosisRepo) CreateWithUsage(_ context.Context, rec *model.DiagnosisRecord, reminder *model.Reminder, monthlyLimit int) error {
	if r.commitErr != nil {
		return r.commitErr
	}
	r.memberships.mu.Lock()
	m, ok := r.memberships.memberships[rec.UserID]
	if !ok {
		r.memberships.mu.Unlock()
		return errors.New("membership not found")
	}
	if !m.IsVip && m.MonthlyDetections >= monthlyLimit {
		r.memberships.mu.Unlock()
		return repository.ErrQuotaLimitReached
	}
	m.MonthlyDetections++
	r.memberships.mu.Unlock()

	r.nextID++
	rec.ID = r.nextID
	rec.CreatedAt = time.Now()
	cp := *rec
	r.records = append(r.records, &cp)
	if reminder != nil {
		reminder.ID = rec.ID
		rcp := *reminder
		r.reminders = append(r.reminders, &rcp)
	}
	return nil
}

func (r *fakeDiagnosisRepo) GetByID(_ context.Context, id int64) (*model.DiagnosisRecord, error) {
	for _, rec := range r.records {
		if rec.ID == id {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeDiagnosisRepo) ListByUserID(_ context.Context, userID string, limit, offset int) ([]model.DiagnosisRecord, error) {
	var out []model.DiagnosisRecord
	for _, rec := range r.records {
		if rec.UserID == userID {
			out = append(out, *rec)
		}
	}
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeDiagnosisRepo) Delete(_ context.Context, id int64, userID string) (bool, error) {
	for i, rec := range r.records {
		if rec.ID == id && rec.UserID == userID {
			r.records = append(r.records[:i], r.records[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type fakeReminderRepo struct {
	reminders []*model.Reminder
	nextID    int64
}

func (r *fakeReminderRepo) Create(_ context.Context, rem *model.Reminder) error {
	r.nextID++
	rem.ID = r.nextID
	rem.CreatedAt = time.Now()
	r.reminders = append(r.reminders, rem)
	return nil
}

func (r *fakeReminderRepo) GetByIDForUser(_ context.Context, id int64, userID string) (*model.Reminder, error) {
	for _, rem := range r.reminders {
		if rem.ID == id && rem.UserID == userID {
			return rem, nil
		}
	}
	return nil, nil
}

func (r *fakeReminderRepo) ListByUserID(_ context.Context, userID string) ([]model.Reminder, error) {
	var out []model.Reminder
	for _, rem := range r.reminders {
		if rem.UserID == userID {
			out = append(out, *rem)
		}
	}
	return out, nil
}

func (r *fakeReminderRepo) Update(_ context.Context, rem *model.Reminder) error {
	for i, existing := range r.reminders {
		if existing.ID == rem.ID {
			r.reminders[i] = rem
			return nil
		}
	}
	return errors.New("reminder not found")
}

func (r *fakeReminderRepo) Delete(_ context.Context, id int64, userID string) (bool, error) {
	for i, rem := range r.reminders {
		if rem.ID == id && rem.UserID == userID {
			r.reminders = append(r.reminders[:i], r.reminders[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeReminderRepo) GetActiveWatering(_ context.Context, plantID int64) (*model.Reminder, error) {
	for _, rem := range r.reminders {
		if rem.PlantID != nil && *rem.PlantID == plantID && rem.Type == model.ReminderTypeWatering && !rem.IsCompleted {
			return rem, nil
		}
	}
	return nil, nil
}

func (r *fakeReminderRepo) ReplaceActiveWatering(ctx context.Context, rem *model.Reminder) error {
	if rem.PlantID != nil {
		for _, existing := range r.reminders {
			if existing.PlantID != nil && *existing.PlantID == *rem.PlantID &&
				existing.Type == model.ReminderTypeWatering && !existing.IsCompleted {
				existing.IsCompleted = true
			}
		}
	}
	return r.Create(ctx, rem)
}

func (r *fakeReminderRepo) CountDueSoon(_ context.Context, userID string, cutoff time.Time) (int, error) {
	count := 0
	for _, rem := range r.reminders {
		if rem.UserID == userID && !rem.IsRead && !rem.IsCompleted && !rem.ScheduledAt.After(cutoff) {
			count++
		}
	}
	return count, nil
}

// activeWatering counts incomplete watering reminders for a plant.
func (r *fakeReminderRepo) activeWatering(plantID int64) int {
	count := 0
	for _, rem := range r.reminders {
		if rem.PlantID != nil && *rem.PlantID == plantID && rem.Type == model.ReminderTypeWatering && !rem.IsCompleted {
			count++
		}
	}
	return count
}

type fakePlantRepo struct {
	plants []*model.Plant
	nextID int64
}

func (r *fakePlantRepo) Create(_ context.Context, p *model.Plant) error {
	r.nextID++
	p.ID = r.nextID
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	r.plants = append(r.plants, p)
	return nil
}

func (r *fakePlantRepo) GetByIDForUser(_ context.Context, id int64, userID string) (*model.Plant, error) {
	for _, p := range r.plants {
		if p.ID == id && p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakePlantRepo) ListByUserID(_ context.Context, userID string) ([]model.Plant, error) {
	var out []model.Plant
	for _, p := range r.plants {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakePlantRepo) Update(_ context.Context, p *model.Plant) error {
	for i, existing := range r.plants {
		if existing.ID == p.ID {
			p.UpdatedAt = time.Now()
			r.plants[i] = p
			return nil
		}
	}
	return errors.New("plant not found")
}

func (r *fakePlantRepo) Delete(_ context.Context, id int64, userID string) (bool, error) {
	for i, p := range r.plants {
		if p.ID == id && p.UserID == userID {
			r.plants = append(r.plants[:i], r.plants[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type fakeProvider struct {
	result *model.DiagnosisResult
	stage  DecodeStage
	err    error
	calls  int
}

func (p *fakeProvider) Diagnose(_ context.Context, _ []byte, _ string) (*model.DiagnosisResult, DecodeStage, error) {
	p.calls++
	if p.err != nil {
		return nil, DecodeDefaulted, p.err
	}
	cp := *p.result
	return &cp, p.stage, nil
}

type fakeImageStore struct {
	stored   int
	storeErr error
}

func (s *fakeImageStore) Store(_ context.Context, userID string, _ []byte, _ string) (string, error) {
	if s.storeErr != nil {
		return "", s.storeErr
	}
	s.stored++
	return "diagnoses/" + userID + "/test.jpg", nil
}

func (s *fakeImageStore) PresignedURL(_ context.Context, storagePath string) (string, error) {
	return "https://images.test/" + storagePath, nil
}

type queuedJob struct {
	queue    string
	payload  []byte
	delaySec int
}

type fakeQueue struct {
	jobs    []queuedJob
	sendErr error
}

func (q *fakeQueue) Send(_ context.Context, queue string, payload []byte, delaySec int) error {
	if q.sendErr != nil {
		return q.sendErr
	}
	q.jobs = append(q.jobs, queuedJob{queue: queue, payload: payload, delaySec: delaySec})
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
