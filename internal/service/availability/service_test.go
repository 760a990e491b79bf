package availability

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicdesk/booking-api/internal/model"
	"github.com/clinicdesk/booking-api/pkg/errors"
	"github.com/clinicdesk/booking-api/pkg/logger"
)

var testLogger = logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})

type fakeAvailabilityRepo struct {
	slots        map[uuid.UUID]*model.Availability
	copyWeekDest time.Time
}

func newFakeAvailabilityRepo() *fakeAvailabilityRepo {
	return &fakeAvailabilityRepo{slots: make(map[uuid.UUID]*model.Availability)}
}

func (r *fakeAvailabilityRepo) Create(ctx context.Context, slot *model.Availability) error {
	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}
	r.slots[slot.ID] = slot
	return nil
}

func (r *fakeAvailabilityRepo) Get(ctx context.Context, id uuid.UUID) (*model.Availability, error) {
	slot, ok := r.slots[id]
	if !ok {
		return nil, fmt.Errorf("availability not found")
	}
	return slot, nil
}

func (r *fakeAvailabilityRepo) Update(ctx context.Context, slot *model.Availability) error {
	r.slots[slot.ID] = slot
	return nil
}

func (r *fakeAvailabilityRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.slots, id)
	return nil
}

func (r *fakeAvailabilityRepo) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Availability, error) {
	var out []*model.Availability
	for _, s := range r.slots {
		if s.DoctorID == doctorID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeAvailabilityRepo) ListOpenByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Availability, error) {
	var out []*model.Availability
	for _, s := range r.slots {
		if s.DoctorID == doctorID && s.IsAvailable {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeAvailabilityRepo) Claim(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (bool, error) {
	return false, nil
}

func (r *fakeAvailabilityRepo) Release(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	return nil
}

func (r *fakeAvailabilityRepo) FindBySlot(ctx context.Context, doctorID uuid.UUID, date time.Time, startTime string) (*model.Availability, error) {
	return nil, fmt.Errorf("availability not found")
}

func (r *fakeAvailabilityRepo) CopyWeek(ctx context.Context, doctorID uuid.UUID, anchorDate time.Time) (int, error) {
	r.copyWeekDest = anchorDate
	count := 0
	for _, s := range r.slots {
		if s.DoctorID == doctorID && s.Recurring {
			count++
		}
	}
	return count, nil
}

type fakeDoctorRepo struct {
	doctors map[uuid.UUID]*model.Doctor
}

func newFakeDoctorRepo() *fakeDoctorRepo {
	return &fakeDoctorRepo{doctors: make(map[uuid.UUID]*model.Doctor)}
}

func (r *fakeDoctorRepo) Create(ctx context.Context, d *model.Doctor) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	r.doctors[d.ID] = d
	return nil
}

func (r *fakeDoctorRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, d *model.Doctor) error {
	return r.Create(ctx, d)
}

func (r *fakeDoctorRepo) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	d, ok := r.doctors[id]
	if !ok {
		return nil, fmt.Errorf("doctor not found")
	}
	return d, nil
}

func (r *fakeDoctorRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Doctor, error) {
	for _, d := range r.doctors {
		if d.UserID == userID {
			return d, nil
		}
	}
	return nil, fmt.Errorf("doctor not found")
}

func (r *fakeDoctorRepo) Update(ctx context.Context, d *model.Doctor) error { return nil }
func (r *fakeDoctorRepo) Delete(ctx context.Context, id uuid.UUID) error    { return nil }
func (r *fakeDoctorRepo) List(ctx context.Context) ([]*model.Doctor, error) { return nil, nil }
func (r *fakeDoctorRepo) Count(ctx context.Context) (int64, error)          { return 0, nil }

type fixture struct {
	svc    *Service
	repo   *fakeAvailabilityRepo
	doctor *model.Doctor
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo: newFakeAvailabilityRepo(),
		// A Wednesday morning.
		now: time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC),
	}
	doctors := newFakeDoctorRepo()
	f.doctor = &model.Doctor{UserID: uuid.New()}
	require.NoError(t, doctors.Create(context.Background(), f.doctor))

	f.svc = NewService(f.repo, doctors, testLogger)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func TestCreateRecurringSlot(t *testing.T) {
	f := newFixture(t)

	slot, err := f.svc.Create(context.Background(), f.doctor.UserID, &model.CreateAvailabilityRequest{
		DayOfWeek: time.Monday,
		StartTime: "09:00",
		EndTime:   "12:00",
		Recurring: true,
	})
	require.NoError(t, err)

	assert.Equal(t, f.doctor.ID, slot.DoctorID)
	assert.Equal(t, time.Monday, slot.DayOfWeek)
	assert.True(t, slot.IsAvailable)
	assert.Nil(t, slot.Date)
}

func TestCreateOneOffDerivesWeekday(t *testing.T) {
	f := newFixture(t)
	// A Friday, submitted with a stale weekday.
	date := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	slot, err := f.svc.Create(context.Background(), f.doctor.UserID, &model.CreateAvailabilityRequest{
		DayOfWeek: time.Monday,
		StartTime: "09:00",
		EndTime:   "10:00",
		Date:      &date,
	})
	require.NoError(t, err)
	assert.Equal(t, time.Friday, slot.DayOfWeek)
}

func TestCreateOneOffWithoutDate(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), f.doctor.UserID, &model.CreateAvailabilityRequest{
		DayOfWeek: time.Monday,
		StartTime: "09:00",
		EndTime:   "10:00",
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrBadRequest))
}

func TestCreateRejectsInvertedWindow(t *testing.T) {
	f := newFixture(t)

	cases := []struct{ start, end string }{
		{"12:00", "09:00"},
		{"09:00", "09:00"},
		{"not-a-time", "10:00"},
		{"09:00", "bad"},
	}
	for _, tc := range cases {
		_, err := f.svc.Create(context.Background(), f.doctor.UserID, &model.CreateAvailabilityRequest{
			StartTime: tc.start,
			EndTime:   tc.end,
			Recurring: true,
		})
		require.Error(t, err, "window %s-%s", tc.start, tc.end)
		assert.True(t, errors.IsCode(err, errors.ErrBadRequest))
	}
}

func TestQuickAdd(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)
	end := start.Add(45 * time.Minute)

	slot, err := f.svc.QuickAdd(context.Background(), f.doctor.UserID, &model.QuickAddRequest{
		Start: start,
		End:   end,
	})
	require.NoError(t, err)

	assert.Equal(t, "10:30", slot.StartTime)
	assert.Equal(t, "11:15", slot.EndTime)
	assert.False(t, slot.Recurring)
	require.NotNil(t, slot.Date)
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), *slot.Date)
	assert.Equal(t, time.Friday, slot.DayOfWeek)
}

func TestQuickAddInPast(t *testing.T) {
	f := newFixture(t)
	start := f.now.Add(-time.Hour)

	_, err := f.svc.QuickAdd(context.Background(), f.doctor.UserID, &model.QuickAddRequest{
		Start: start,
		End:   start.Add(time.Hour),
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrPastSlot))
}

func TestCopyWeekAnchorsNextWeek(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.repo.Create(context.Background(), &model.Availability{
		DoctorID:  f.doctor.ID,
		DayOfWeek: time.Monday,
		StartTime: "09:00",
		EndTime:   "12:00",
		Recurring: true,
	}))

	created, err := f.svc.CopyWeek(context.Background(), f.doctor.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.Equal(t, time.Date(2025, 3, 19, 0, 0, 0, 0, time.UTC), f.repo.copyWeekDest)
}

func TestListOpenFiltersPastDatedSlots(t *testing.T) {
	f := newFixture(t)
	past := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	future := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	mk := func(date *time.Time, recurring, open bool) *model.Availability {
		slot := &model.Availability{
			DoctorID:    f.doctor.ID,
			StartTime:   "10:00",
			EndTime:     "11:00",
			Date:        date,
			Recurring:   recurring,
			IsAvailable: open,
		}
		require.NoError(t, f.repo.Create(context.Background(), slot))
		return slot
	}

	mk(&past, false, true)
	futureSlot := mk(&future, false, true)
	recurringSlot := mk(nil, true, true)
	mk(&future, false, false)

	open, err := f.svc.ListOpenForDoctor(context.Background(), f.doctor.ID)
	require.NoError(t, err)

	require.Len(t, open, 2)
	ids := []uuid.UUID{open[0].ID, open[1].ID}
	assert.Contains(t, ids, futureSlot.ID)
	assert.Contains(t, ids, recurringSlot.ID)
}

func TestToggle(t *testing.T) {
	f := newFixture(t)
	slot := &model.Availability{
		DoctorID:    f.doctor.ID,
		StartTime:   "10:00",
		EndTime:     "11:00",
		Recurring:   true,
		IsAvailable: true,
	}
	require.NoError(t, f.repo.Create(context.Background(), slot))

	toggled, err := f.svc.Toggle(context.Background(), f.doctor.UserID, slot.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsAvailable)

	toggled, err = f.svc.Toggle(context.Background(), f.doctor.UserID, slot.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsAvailable)
}

func TestToggleForeignSlotForbidden(t *testing.T) {
	f := newFixture(t)
	other := &model.Availability{
		DoctorID:  uuid.New(),
		StartTime: "10:00",
		EndTime:   "11:00",
	}
	require.NoError(t, f.repo.Create(context.Background(), other))

	_, err := f.svc.Toggle(context.Background(), f.doctor.UserID, other.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrForbidden))
}

func TestDeleteOwnedSlot(t *testing.T) {
	f := newFixture(t)
	slot := &model.Availability{
		DoctorID:  f.doctor.ID,
		StartTime: "10:00",
		EndTime:   "11:00",
		Recurring: true,
	}
	require.NoError(t, f.repo.Create(context.Background(), slot))

	require.NoError(t, f.svc.Delete(context.Background(), f.doctor.UserID, slot.ID))
	_, err := f.repo.Get(context.Background(), slot.ID)
	assert.Error(t, err)
}
