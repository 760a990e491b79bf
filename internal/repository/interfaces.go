package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/clinicdesk/booking-api/internal/model"
)

// ErrDuplicate marks inserts rejected by a uniqueness constraint, so
// services can distinguish lost races from real failures.
var ErrDuplicate = errors.New("duplicate record")

// TxRunner executes a function within a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error
}

// All repository interfaces in one file
type (
	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		CreateTx(ctx context.Context, tx *sqlx.Tx, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		Update(ctx context.Context, user *model.User) error
		Delete(ctx context.Context, id uuid.UUID) error
	}

	DoctorRepository interface {
		Create(ctx context.Context, doctor *model.Doctor) error
		CreateTx(ctx context.Context, tx *sqlx.Tx, doctor *model.Doctor) error
		Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
		GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Doctor, error)
		Update(ctx context.Context, doctor *model.Doctor) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context) ([]*model.Doctor, error)
		Count(ctx context.Context) (int64, error)
	}

	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		CreateTx(ctx context.Context, tx *sqlx.Tx, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Patient, error)
		Update(ctx context.Context, patient *model.Patient) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context) ([]*model.Patient, error)
		Count(ctx context.Context) (int64, error)
	}

	AvailabilityRepository interface {
		Create(ctx context.Context, slot *model.Availability) error
		Get(ctx context.Context, id uuid.UUID) (*model.Availability, error)
		Update(ctx context.Context, slot *model.Availability) error
		Delete(ctx context.Context, id uuid.UUID) error
		ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Availability, error)
		ListOpenByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Availability, error)

		// Claim conditionally flips is_available from true to false inside
		// the given transaction. It reports false when the slot was already
		// claimed, without error.
		Claim(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (bool, error)

		// Release flips is_available back to true inside the given
		// transaction.
		Release(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error

		// FindBySlot looks up a concrete slot by doctor, calendar date and
		// start time of day. Used as the cancellation-restore fallback for
		// appointments without a stored availability reference.
		FindBySlot(ctx context.Context, doctorID uuid.UUID, date time.Time, startTime string) (*model.Availability, error)

		// CopyWeek clones every recurring slot of the doctor as a
		// non-recurring slot anchored to anchorDate, leaving the originals
		// untouched. Returns the number of clones created.
		CopyWeek(ctx context.Context, doctorID uuid.UUID, anchorDate time.Time) (int, error)
	}

	AppointmentRepository interface {
		CreateTx(ctx context.Context, tx *sqlx.Tx, apt *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		Update(ctx context.Context, apt *model.Appointment) error
		UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status model.AppointmentStatus) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		ListBetween(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*model.Appointment, error)
		CountByStatus(ctx context.Context, doctorID uuid.UUID) ([]*model.StatusCount, error)
		CountBetween(ctx context.Context, doctorID uuid.UUID, from, to time.Time) (int64, error)
		Count(ctx context.Context, doctorID uuid.UUID) (int64, error)
		CountsByMonth(ctx context.Context, from, to time.Time) ([]*model.MonthCount, error)
	}

	PrescriptionRepository interface {
		Create(ctx context.Context, p *model.Prescription) error
		Get(ctx context.Context, id uuid.UUID) (*model.Prescription, error)
		GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.Prescription, error)
		ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Prescription, error)
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Prescription, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		CreateTx(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) error
		GetPendingWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
