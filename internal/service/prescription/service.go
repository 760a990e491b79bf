package prescription

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/booking-api/internal/model"
	"github.com/clinicdesk/booking-api/internal/repository"
	"github.com/clinicdesk/booking-api/pkg/errors"
	"github.com/clinicdesk/booking-api/pkg/storage"
)

// Service handles prescription uploads and retrieval. An appointment
// gets at most one prescription, uploaded by its own doctor after the
// appointment has ended.
type Service struct {
	prescriptions repository.PrescriptionRepository
	appointments  repository.AppointmentRepository
	doctors       repository.DoctorRepository
	patients      repository.PatientRepository
	files         storage.Storage
	now           func() time.Time
}

func NewService(
	prescriptions repository.PrescriptionRepository,
	appointments repository.AppointmentRepository,
	doctors repository.DoctorRepository,
	patients repository.PatientRepository,
	files storage.Storage,
) *Service {
	return &Service{
		prescriptions: prescriptions,
		appointments:  appointments,
		doctors:       doctors,
		patients:      patients,
		files:         files,
		now:           time.Now,
	}
}

// Upload stores the file and records the prescription. Gating rules:
// the uploader must be the appointment's doctor, the appointment must
// have ended, and no prescription may exist for it yet.
func (s *Service) Upload(ctx context.Context, doctorUserID, appointmentID uuid.UUID, fileName string, file io.Reader, notes string) (*model.Prescription, error) {
	doctor, err := s.doctors.GetByUserID(ctx, doctorUserID)
	if err != nil {
		return nil, errors.NotFound("doctor profile", err)
	}

	apt, err := s.appointments.Get(ctx, appointmentID)
	if err != nil {
		return nil, errors.NotFound("appointment", err)
	}
	if apt.DoctorID != doctor.ID {
		return nil, errors.Forbidden("appointment belongs to another doctor")
	}
	if s.now().Before(apt.EndTime) {
		return nil, errors.Conflict("prescriptions can only be uploaded after the appointment ends")
	}

	if existing, err := s.prescriptions.GetByAppointment(ctx, appointmentID); err == nil && existing != nil {
		return nil, errors.AlreadyExists("a prescription for this appointment")
	}

	storedName, err := s.files.Save(ctx, fileName, file)
	if err != nil {
		return nil, fmt.Errorf("failed to store prescription file: %w", err)
	}

	p := &model.Prescription{
		AppointmentID: appointmentID,
		DoctorID:      doctor.ID,
		FileName:      storedName,
		Notes:         notes,
		UploadedAt:    s.now(),
	}
	if err := s.prescriptions.Create(ctx, p); err != nil {
		// Leave no orphaned file behind the failed row.
		_ = s.files.Delete(ctx, storedName)
		// A concurrent upload can slip past the existence check and lose
		// the race on the unique constraint instead.
		if stderrors.Is(err, repository.ErrDuplicate) {
			return nil, errors.AlreadyExists("a prescription for this appointment")
		}
		return nil, fmt.Errorf("failed to create prescription: %w", err)
	}
	return p, nil
}

// Get returns the prescription metadata if the actor may see it: the
// owning doctor, the appointment's patient, or an admin.
func (s *Service) Get(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Prescription, error) {
	p, err := s.prescriptions.Get(ctx, id)
	if err != nil {
		return nil, errors.NotFound("prescription", err)
	}
	if err := s.authorize(ctx, actor, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Download opens the stored file for an authorized actor.
func (s *Service) Download(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Prescription, io.ReadCloser, error) {
	p, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.files.Open(ctx, p.FileName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open prescription file: %w", err)
	}
	return p, rc, nil
}

// ListForDoctor returns the prescriptions written by the doctor behind
// doctorUserID.
func (s *Service) ListForDoctor(ctx context.Context, doctorUserID uuid.UUID) ([]*model.Prescription, error) {
	doctor, err := s.doctors.GetByUserID(ctx, doctorUserID)
	if err != nil {
		return nil, errors.NotFound("doctor profile", err)
	}
	prescriptions, err := s.prescriptions.ListByDoctor(ctx, doctor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	return prescriptions, nil
}

// ListForPatient returns the prescriptions attached to the patient's
// appointments.
func (s *Service) ListForPatient(ctx context.Context, patientUserID uuid.UUID) ([]*model.Prescription, error) {
	patient, err := s.patients.GetByUserID(ctx, patientUserID)
	if err != nil {
		return nil, errors.NotFound("patient profile", err)
	}
	prescriptions, err := s.prescriptions.ListByPatient(ctx, patient.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	return prescriptions, nil
}

func (s *Service) authorize(ctx context.Context, actor model.Actor, p *model.Prescription) error {
	switch actor.Role {
	case model.RoleAdmin:
		return nil
	case model.RoleDoctor:
		doctor, err := s.doctors.GetByUserID(ctx, actor.UserID)
		if err != nil || doctor.ID != p.DoctorID {
			return errors.Forbidden("prescription belongs to another doctor")
		}
		return nil
	case model.RolePatient:
		patient, err := s.patients.GetByUserID(ctx, actor.UserID)
		if err != nil {
			return errors.Forbidden("no patient profile for this account")
		}
		apt, err := s.appointments.Get(ctx, p.AppointmentID)
		if err != nil || apt.PatientID != patient.ID {
			return errors.Forbidden("prescription belongs to another patient")
		}
		return nil
	}
	return errors.Forbidden("unknown role")
}
