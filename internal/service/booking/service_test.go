package booking

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
	"github.com/clinicdesk/booking-api/pkg/metrics"
)

// Shared across tests: promauto registers into the default registry and
// a second New would panic on duplicate collectors.
var testMetrics = metrics.New("booking_test")

var testLogger = logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return fn(nil)
}

type fakeAvailabilityRepo struct {
	slots        map[uuid.UUID]*model.Availability
	lastFindDate time.Time
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
	slot, ok := r.slots[id]
	if !ok || !slot.IsAvailable {
		return false, nil
	}
	slot.IsAvailable = false
	return true, nil
}

func (r *fakeAvailabilityRepo) Release(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	slot, ok := r.slots[id]
	if !ok {
		return fmt.Errorf("availability not found")
	}
	slot.IsAvailable = true
	return nil
}

func (r *fakeAvailabilityRepo) FindBySlot(ctx context.Context, doctorID uuid.UUID, date time.Time, startTime string) (*model.Availability, error) {
	r.lastFindDate = date
	for _, s := range r.slots {
		if s.DoctorID != doctorID || s.Date == nil {
			continue
		}
		sameDay := s.Date.Year() == date.Year() && s.Date.YearDay() == date.YearDay()
		if sameDay && s.StartTime == startTime {
			return s, nil
		}
	}
	return nil, fmt.Errorf("availability not found")
}

func (r *fakeAvailabilityRepo) CopyWeek(ctx context.Context, doctorID uuid.UUID, anchorDate time.Time) (int, error) {
	return 0, nil
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

type fakePatientRepo struct {
	patients map[uuid.UUID]*model.Patient
}

func newFakePatientRepo() *fakePatientRepo {
	return &fakePatientRepo{patients: make(map[uuid.UUID]*model.Patient)}
}

func (r *fakePatientRepo) Create(ctx context.Context, p *model.Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.patients[p.ID] = p
	return nil
}

func (r *fakePatientRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, p *model.Patient) error {
	return r.Create(ctx, p)
}

func (r *fakePatientRepo) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	p, ok := r.patients[id]
	if !ok {
		return nil, fmt.Errorf("patient not found")
	}
	return p, nil
}

func (r *fakePatientRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Patient, error) {
	for _, p := range r.patients {
		if p.UserID == userID {
			return p, nil
		}
	}
	return nil, fmt.Errorf("patient not found")
}

func (r *fakePatientRepo) Update(ctx context.Context, p *model.Patient) error { return nil }
func (r *fakePatientRepo) Delete(ctx context.Context, id uuid.UUID) error     { return nil }
func (r *fakePatientRepo) List(ctx context.Context) ([]*model.Patient, error) { return nil, nil }
func (r *fakePatientRepo) Count(ctx context.Context) (int64, error)           { return 0, nil }

type fakeAppointmentRepo struct {
	appointments map[uuid.UUID]*model.Appointment
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{appointments: make(map[uuid.UUID]*model.Appointment)}
}

func (r *fakeAppointmentRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, apt *model.Appointment) error {
	if apt.ID == uuid.Nil {
		apt.ID = uuid.New()
	}
	r.appointments[apt.ID] = apt
	return nil
}

func (r *fakeAppointmentRepo) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, ok := r.appointments[id]
	if !ok {
		return nil, fmt.Errorf("appointment not found")
	}
	copied := *apt
	return &copied, nil
}

func (r *fakeAppointmentRepo) Update(ctx context.Context, apt *model.Appointment) error {
	r.appointments[apt.ID] = apt
	return nil
}

func (r *fakeAppointmentRepo) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status model.AppointmentStatus) error {
	apt, ok := r.appointments[id]
	if !ok {
		return fmt.Errorf("appointment not found")
	}
	apt.Status = status
	return nil
}

func (r *fakeAppointmentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.appointments, id)
	return nil
}

func (r *fakeAppointmentRepo) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	return nil, nil
}

func (r *fakeAppointmentRepo) ListBetween(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*model.Appointment, error) {
	return nil, nil
}

func (r *fakeAppointmentRepo) CountByStatus(ctx context.Context, doctorID uuid.UUID) ([]*model.StatusCount, error) {
	return nil, nil
}

func (r *fakeAppointmentRepo) CountBetween(ctx context.Context, doctorID uuid.UUID, from, to time.Time) (int64, error) {
	return 0, nil
}

func (r *fakeAppointmentRepo) Count(ctx context.Context, doctorID uuid.UUID) (int64, error) {
	return 0, nil
}

func (r *fakeAppointmentRepo) CountsByMonth(ctx context.Context, from, to time.Time) ([]*model.MonthCount, error) {
	return nil, nil
}

type fakeOutboxRepo struct {
	events []*model.OutboxEvent
}

func (r *fakeOutboxRepo) Create(ctx context.Context, event *model.OutboxEvent) error {
	r.events = append(r.events, event)
	return nil
}

func (r *fakeOutboxRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) error {
	return r.Create(ctx, event)
}

func (r *fakeOutboxRepo) GetPendingWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	return nil, nil
}

func (r *fakeOutboxRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error {
	return nil
}

func (r *fakeOutboxRepo) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

type fixture struct {
	svc            *Service
	availabilities *fakeAvailabilityRepo
	appointments   *fakeAppointmentRepo
	doctors        *fakeDoctorRepo
	patients       *fakePatientRepo
	outbox         *fakeOutboxRepo

	doctor  *model.Doctor
	patient *model.Patient
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		availabilities: newFakeAvailabilityRepo(),
		appointments:   newFakeAppointmentRepo(),
		doctors:        newFakeDoctorRepo(),
		patients:       newFakePatientRepo(),
		outbox:         &fakeOutboxRepo{},
		// A Wednesday morning.
		now: time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC),
	}

	f.doctor = &model.Doctor{UserID: uuid.New()}
	require.NoError(t, f.doctors.Create(context.Background(), f.doctor))

	f.patient = &model.Patient{UserID: uuid.New()}
	require.NoError(t, f.patients.Create(context.Background(), f.patient))

	f.svc = NewService(fakeTxRunner{}, f.appointments, f.availabilities, f.doctors, f.patients, f.outbox, testMetrics, testLogger)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) addSlot(t *testing.T, slot *model.Availability) *model.Availability {
	t.Helper()
	slot.DoctorID = f.doctor.ID
	slot.IsAvailable = true
	require.NoError(t, f.availabilities.Create(context.Background(), slot))
	return slot
}

func (f *fixture) oneOffSlot(t *testing.T, date time.Time, start, end string) *model.Availability {
	t.Helper()
	return f.addSlot(t, &model.Availability{
		DayOfWeek: date.Weekday(),
		StartTime: start,
		EndTime:   end,
		Date:      &date,
	})
}

func TestBookOneOffSlot(t *testing.T) {
	f := newFixture(t)
	date := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	slot := f.oneOffSlot(t, date, "10:00", "11:30")

	apt, err := f.svc.Book(context.Background(), f.patient.UserID, &model.BookingRequest{
		DoctorID:       f.doctor.ID,
		AvailabilityID: slot.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusPending, apt.Status)
	assert.Equal(t, f.doctor.ID, apt.DoctorID)
	assert.Equal(t, f.patient.ID, apt.PatientID)
	assert.Equal(t, time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC), apt.StartTime)
	assert.Equal(t, time.Date(2025, 3, 14, 11, 30, 0, 0, time.UTC), apt.EndTime)
	assert.NotEmpty(t, apt.Reference)
	require.NotNil(t, apt.AvailabilityID)
	assert.Equal(t, slot.ID, *apt.AvailabilityID)

	assert.False(t, slot.IsAvailable, "slot should be claimed")

	require.Len(t, f.outbox.events, 1)
	assert.Equal(t, model.EventAppointmentBooked, f.outbox.events[0].EventType)
}

func TestBookRecurringSlotNextOccurrence(t *testing.T) {
	f := newFixture(t)
	// Now is Wednesday; a Monday slot should land on the following Monday.
	slot := f.addSlot(t, &model.Availability{
		DayOfWeek: time.Monday,
		StartTime: "14:00",
		EndTime:   "17:00",
		Recurring: true,
	})

	apt, err := f.svc.Book(context.Background(), f.patient.UserID, &model.BookingRequest{
		DoctorID:       f.doctor.ID,
		AvailabilityID: slot.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 3, 17, 14, 0, 0, 0, time.UTC), apt.StartTime)
	assert.Equal(t, apt.StartTime.Add(time.Hour), apt.EndTime, "recurring slots book a fixed hour")
}

func TestBookRecurringSlotSameDayRollsOver(t *testing.T) {
	f := newFixture(t)
	// Wednesday slot whose start already passed today.
	slot := f.addSlot(t, &model.Availability{
		DayOfWeek: time.Wednesday,
		StartTime: "08:00",
		EndTime:   "12:00",
		Recurring: true,
	})

	apt, err := f.svc.Book(context.Background(), f.patient.UserID, &model.BookingRequest{
		DoctorID:       f.doctor.ID,
		AvailabilityID: slot.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 19, 8, 0, 0, 0, time.UTC), apt.StartTime)
}

func TestBookSlotTaken(t *testing.T) {
	f := newFixture(t)
	date := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	slot := f.oneOffSlot(t, date, "10:00", "11:00")

	req := &model.BookingRequest{DoctorID: f.doctor.ID, AvailabilityID: slot.ID}

	_, err := f.svc.Book(context.Background(), f.patient.UserID, req)
	require.NoError(t, err)

	_, err = f.svc.Book(context.Background(), f.patient.UserID, req)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrSlotTaken))
}

func TestBookPastSlot(t *testing.T) {
	f := newFixture(t)
	date := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	slot := f.oneOffSlot(t, date, "10:00", "11:00")

	_, err := f.svc.Book(context.Background(), f.patient.UserID, &model.BookingRequest{
		DoctorID:       f.doctor.ID,
		AvailabilityID: slot.ID,
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrPastSlot))
}

func TestBookStartExactlyNowIsPast(t *testing.T) {
	f := newFixture(t)
	date := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	slot := f.oneOffSlot(t, date, "09:00", "10:00")

	_, err := f.svc.Book(context.Background(), f.patient.UserID, &model.BookingRequest{
		DoctorID:       f.doctor.ID,
		AvailabilityID: slot.ID,
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrPastSlot))
}

func TestBookSlotDoctorMismatch(t *testing.T) {
	f := newFixture(t)
	otherDoctor := &model.Doctor{UserID: uuid.New()}
	require.NoError(t, f.doctors.Create(context.Background(), otherDoctor))

	date := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	slot := f.oneOffSlot(t, date, "10:00", "11:00")

	_, err := f.svc.Book(context.Background(), f.patient.UserID, &model.BookingRequest{
		DoctorID:       otherDoctor.ID,
		AvailabilityID: slot.ID,
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrInvalidSlot))
}

func TestBookUnknownSlot(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Book(context.Background(), f.patient.UserID, &model.BookingRequest{
		DoctorID:       f.doctor.ID,
		AvailabilityID: uuid.New(),
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrNotFound))
}

func TestBookWithoutPatientProfile(t *testing.T) {
	f := newFixture(t)
	date := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	slot := f.oneOffSlot(t, date, "10:00", "11:00")

	_, err := f.svc.Book(context.Background(), uuid.New(), &model.BookingRequest{
		DoctorID:       f.doctor.ID,
		AvailabilityID: slot.ID,
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrNotFound))
}

func (f *fixture) book(t *testing.T, slot *model.Availability) *model.Appointment {
	t.Helper()
	apt, err := f.svc.Book(context.Background(), f.patient.UserID, &model.BookingRequest{
		DoctorID:       f.doctor.ID,
		AvailabilityID: slot.ID,
	})
	require.NoError(t, err)
	return apt
}

func TestCancelRestoresSlot(t *testing.T) {
	f := newFixture(t)
	date := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	slot := f.oneOffSlot(t, date, "10:00", "11:00")
	apt := f.book(t, slot)
	require.False(t, slot.IsAvailable)

	actor := model.Actor{UserID: f.patient.UserID, Role: model.RolePatient}
	require.NoError(t, f.svc.Cancel(context.Background(), actor, apt.ID))

	stored, err := f.appointments.Get(context.Background(), apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, stored.Status)
	assert.True(t, slot.IsAvailable, "slot should reopen")

	require.Len(t, f.outbox.events, 2)
	assert.Equal(t, model.EventAppointmentCancelled, f.outbox.events[1].EventType)
}

func TestCancelIdempotent(t *testing.T) {
	f := newFixture(t)
	date := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	slot := f.oneOffSlot(t, date, "10:00", "11:00")
	apt := f.book(t, slot)

	actor := model.Actor{UserID: f.patient.UserID, Role: model.RolePatient}
	require.NoError(t, f.svc.Cancel(context.Background(), actor, apt.ID))

	// Claim the slot again, then re-cancel: the slot must not reopen.
	slot.IsAvailable = false
	require.NoError(t, f.svc.Cancel(context.Background(), actor, apt.ID))
	assert.False(t, slot.IsAvailable, "re-cancel must not restore the slot again")
	assert.Len(t, f.outbox.events, 2, "re-cancel must not emit another event")
}

func TestCancelCompletedFails(t *testing.T) {
	f := newFixture(t)
	date := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	slot := f.oneOffSlot(t, date, "10:00", "11:00")
	apt := f.book(t, slot)

	doctorActor := model.Actor{UserID: f.doctor.UserID, Role: model.RoleDoctor}
	require.NoError(t, f.svc.Confirm(context.Background(), doctorActor, apt.ID))
	f.now = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	require.NoError(t, f.svc.Complete(context.Background(), doctorActor, apt.ID))

	err := f.svc.Cancel(context.Background(), doctorActor, apt.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConflict))
}

func TestCancelRestoreFallbackWithoutSlotReference(t *testing.T) {
	f := newFixture(t)
	date := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	slot := f.oneOffSlot(t, date, "10:00", "11:00")
	apt := f.book(t, slot)

	// Simulate a legacy row without the slot reference.
	f.appointments.appointments[apt.ID].AvailabilityID = nil

	actor := model.Actor{UserID: f.patient.UserID, Role: model.RolePatient}
	require.NoError(t, f.svc.Cancel(context.Background(), actor, apt.ID))
	assert.True(t, slot.IsAvailable, "fallback lookup should reopen the slot")

	// The lookup queries by calendar day, not the full start timestamp.
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), f.availabilities.lastFindDate)
}

func TestCancelWithoutResolvableSlot(t *testing.T) {
	f := newFixture(t)
	date := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	slot := f.oneOffSlot(t, date, "10:00", "11:00")
	apt := f.book(t, slot)

	// The slot is gone and the appointment never stored a reference.
	f.appointments.appointments[apt.ID].AvailabilityID = nil
	require.NoError(t, f.availabilities.Delete(context.Background(), slot.ID))

	actor := model.Actor{UserID: f.patient.UserID, Role: model.RolePatient}
	require.NoError(t, f.svc.Cancel(context.Background(), actor, apt.ID))

	stored, err := f.appointments.Get(context.Background(), apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, stored.Status)
	assert.False(t, slot.IsAvailable, "the orphaned slot must not be touched")

	require.Len(t, f.outbox.events, 2)
	assert.Equal(t, model.EventAppointmentCancelled, f.outbox.events[1].EventType)
}

func TestCancelForbiddenForOtherPatient(t *testing.T) {
	f := newFixture(t)
	date := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	slot := f.oneOffSlot(t, date, "10:00", "11:00")
	apt := f.book(t, slot)

	other := &model.Patient{UserID: uuid.New()}
	require.NoError(t, f.patients.Create(context.Background(), other))

	err := f.svc.Cancel(context.Background(), model.Actor{UserID: other.UserID, Role: model.RolePatient}, apt.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrForbidden))
}

func TestCancelByAdmin(t *testing.T) {
	f := newFixture(t)
	date := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	slot := f.oneOffSlot(t, date, "10:00", "11:00")
	apt := f.book(t, slot)

	err := f.svc.Cancel(context.Background(), model.Actor{UserID: uuid.New(), Role: model.RoleAdmin}, apt.ID)
	require.NoError(t, err)
}

func TestConfirmLifecycle(t *testing.T) {
	f := newFixture(t)
	date := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	slot := f.oneOffSlot(t, date, "10:00", "11:00")
	apt := f.book(t, slot)

	doctorActor := model.Actor{UserID: f.doctor.UserID, Role: model.RoleDoctor}

	require.NoError(t, f.svc.Confirm(context.Background(), doctorActor, apt.ID))
	stored, _ := f.appointments.Get(context.Background(), apt.ID)
	assert.Equal(t, model.AppointmentStatusConfirmed, stored.Status)

	// Confirming twice violates the transition table.
	err := f.svc.Confirm(context.Background(), doctorActor, apt.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConflict))
}

func TestConfirmForbiddenForPatient(t *testing.T) {
	f := newFixture(t)
	date := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	slot := f.oneOffSlot(t, date, "10:00", "11:00")
	apt := f.book(t, slot)

	err := f.svc.Confirm(context.Background(), model.Actor{UserID: f.patient.UserID, Role: model.RolePatient}, apt.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrForbidden))
}

func TestCompleteRequiresEndTimePassed(t *testing.T) {
	f := newFixture(t)
	date := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	slot := f.oneOffSlot(t, date, "10:00", "11:00")
	apt := f.book(t, slot)

	doctorActor := model.Actor{UserID: f.doctor.UserID, Role: model.RoleDoctor}
	require.NoError(t, f.svc.Confirm(context.Background(), doctorActor, apt.ID))

	err := f.svc.Complete(context.Background(), doctorActor, apt.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConflict))

	f.now = time.Date(2025, 3, 14, 11, 0, 1, 0, time.UTC)
	require.NoError(t, f.svc.Complete(context.Background(), doctorActor, apt.ID))

	stored, _ := f.appointments.Get(context.Background(), apt.ID)
	assert.Equal(t, model.AppointmentStatusCompleted, stored.Status)
}

func TestCompletePendingFails(t *testing.T) {
	f := newFixture(t)
	date := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	slot := f.oneOffSlot(t, date, "10:00", "11:00")
	apt := f.book(t, slot)

	f.now = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	err := f.svc.Complete(context.Background(), model.Actor{UserID: f.doctor.UserID, Role: model.RoleDoctor}, apt.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConflict))
}
