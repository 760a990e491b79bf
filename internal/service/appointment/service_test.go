package appointment

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicdesk/booking-api/internal/model"
	"github.com/clinicdesk/booking-api/pkg/errors"
)

type fakeAppointmentRepo struct {
	appointments map[uuid.UUID]*model.Appointment
	lastFilters  *model.AppointmentFilters
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
	return nil
}

func (r *fakeAppointmentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.appointments, id)
	return nil
}

func (r *fakeAppointmentRepo) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	r.lastFilters = filters
	var out []*model.Appointment
	for _, apt := range r.appointments {
		if filters.DoctorID != uuid.Nil && apt.DoctorID != filters.DoctorID {
			continue
		}
		if filters.PatientID != uuid.Nil && apt.PatientID != filters.PatientID {
			continue
		}
		out = append(out, apt)
	}
	return out, nil
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

type fixture struct {
	svc          *Service
	appointments *fakeAppointmentRepo

	doctor  *model.Doctor
	patient *model.Patient
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		appointments: newFakeAppointmentRepo(),
		now:          time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC),
	}
	doctors := newFakeDoctorRepo()
	patients := newFakePatientRepo()

	f.doctor = &model.Doctor{UserID: uuid.New()}
	require.NoError(t, doctors.Create(context.Background(), f.doctor))
	f.patient = &model.Patient{UserID: uuid.New()}
	require.NoError(t, patients.Create(context.Background(), f.patient))

	f.svc = NewService(f.appointments, doctors, patients)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) addAppointment(t *testing.T, doctorID, patientID uuid.UUID) *model.Appointment {
	t.Helper()
	apt := &model.Appointment{
		DoctorID:  doctorID,
		PatientID: patientID,
		StartTime: time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2025, 3, 14, 11, 0, 0, 0, time.UTC),
		Status:    model.AppointmentStatusPending,
	}
	require.NoError(t, f.appointments.CreateTx(context.Background(), nil, apt))
	return apt
}

func TestListScopesDoctorToOwnAppointments(t *testing.T) {
	f := newFixture(t)
	own := f.addAppointment(t, f.doctor.ID, f.patient.ID)
	f.addAppointment(t, uuid.New(), f.patient.ID)

	// The doctor tries to read another doctor's schedule.
	list, err := f.svc.List(context.Background(), model.Actor{UserID: f.doctor.UserID, Role: model.RoleDoctor},
		&model.AppointmentFilters{DoctorID: uuid.New()})
	require.NoError(t, err)

	require.Len(t, list, 1)
	assert.Equal(t, own.ID, list[0].ID)
	assert.Equal(t, f.doctor.ID, f.appointments.lastFilters.DoctorID)
}

func TestListScopesPatientToOwnAppointments(t *testing.T) {
	f := newFixture(t)
	own := f.addAppointment(t, f.doctor.ID, f.patient.ID)
	f.addAppointment(t, f.doctor.ID, uuid.New())

	list, err := f.svc.List(context.Background(), model.Actor{UserID: f.patient.UserID, Role: model.RolePatient}, nil)
	require.NoError(t, err)

	require.Len(t, list, 1)
	assert.Equal(t, own.ID, list[0].ID)
}

func TestListAdminSeesAll(t *testing.T) {
	f := newFixture(t)
	f.addAppointment(t, f.doctor.ID, f.patient.ID)
	f.addAppointment(t, uuid.New(), uuid.New())

	list, err := f.svc.List(context.Background(), model.Actor{UserID: uuid.New(), Role: model.RoleAdmin}, nil)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestGetForbiddenForForeignDoctor(t *testing.T) {
	f := newFixture(t)
	apt := f.addAppointment(t, uuid.New(), f.patient.ID)

	_, err := f.svc.Get(context.Background(), model.Actor{UserID: f.doctor.UserID, Role: model.RoleDoctor}, apt.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrForbidden))
}

func TestRescheduleMovesStartAndEnd(t *testing.T) {
	f := newFixture(t)
	apt := f.addAppointment(t, f.doctor.ID, f.patient.ID)

	newStart := time.Date(2025, 3, 20, 14, 0, 0, 0, time.UTC)
	updated, err := f.svc.Reschedule(context.Background(), apt.ID, &model.RescheduleRequest{StartTime: &newStart})
	require.NoError(t, err)

	assert.Equal(t, newStart, updated.StartTime)
	assert.Equal(t, newStart.Add(AdminRescheduleDuration), updated.EndTime)
}

func TestRescheduleIntoPastRejected(t *testing.T) {
	f := newFixture(t)
	apt := f.addAppointment(t, f.doctor.ID, f.patient.ID)

	past := f.now.Add(-time.Hour)
	_, err := f.svc.Reschedule(context.Background(), apt.ID, &model.RescheduleRequest{StartTime: &past})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrPastSlot))
}

func TestRescheduleStatusOverride(t *testing.T) {
	f := newFixture(t)
	apt := f.addAppointment(t, f.doctor.ID, f.patient.ID)

	confirmed := model.AppointmentStatusConfirmed
	updated, err := f.svc.Reschedule(context.Background(), apt.ID, &model.RescheduleRequest{Status: &confirmed})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, updated.Status)

	// pending -> completed skips confirmation and is rejected.
	apt2 := f.addAppointment(t, f.doctor.ID, f.patient.ID)
	completed := model.AppointmentStatusCompleted
	_, err = f.svc.Reschedule(context.Background(), apt2.ID, &model.RescheduleRequest{Status: &completed})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConflict))
}

func TestRescheduleSameStatusNoop(t *testing.T) {
	f := newFixture(t)
	apt := f.addAppointment(t, f.doctor.ID, f.patient.ID)

	pending := model.AppointmentStatusPending
	updated, err := f.svc.Reschedule(context.Background(), apt.ID, &model.RescheduleRequest{Status: &pending})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusPending, updated.Status)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	apt := f.addAppointment(t, f.doctor.ID, f.patient.ID)

	require.NoError(t, f.svc.Delete(context.Background(), apt.ID))
	assert.Empty(t, f.appointments.appointments)

	err := f.svc.Delete(context.Background(), apt.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrNotFound))
}
