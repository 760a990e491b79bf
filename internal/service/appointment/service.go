package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/booking-api/internal/model"
	"github.com/clinicdesk/booking-api/internal/repository"
	"github.com/clinicdesk/booking-api/pkg/errors"
)

// AdminRescheduleDuration is the fixed appointment length applied when
// an admin moves an appointment to a new start time.
const AdminRescheduleDuration = 30 * time.Minute

// Service covers appointment listing and the admin-side edits that do
// not touch slot state. Slot-claiming lifecycle changes live in the
// booking service.
type Service struct {
	appointments repository.AppointmentRepository
	doctors      repository.DoctorRepository
	patients     repository.PatientRepository
	now          func() time.Time
}

func NewService(appointments repository.AppointmentRepository, doctors repository.DoctorRepository, patients repository.PatientRepository) *Service {
	return &Service{
		appointments: appointments,
		doctors:      doctors,
		patients:     patients,
		now:          time.Now,
	}
}

// List returns appointments matching the filters. Non-admin actors are
// constrained to their own appointments regardless of the filters they
// pass.
func (s *Service) List(ctx context.Context, actor model.Actor, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	if filters == nil {
		filters = &model.AppointmentFilters{}
	}

	switch actor.Role {
	case model.RoleDoctor:
		doctor, err := s.doctors.GetByUserID(ctx, actor.UserID)
		if err != nil {
			return nil, errors.NotFound("doctor profile", err)
		}
		filters.DoctorID = doctor.ID
	case model.RolePatient:
		patient, err := s.patients.GetByUserID(ctx, actor.UserID)
		if err != nil {
			return nil, errors.NotFound("patient profile", err)
		}
		filters.PatientID = patient.ID
	}

	appointments, err := s.appointments.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

// Get returns a single appointment the actor is allowed to see.
func (s *Service) Get(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.appointments.Get(ctx, id)
	if err != nil {
		return nil, errors.NotFound("appointment", err)
	}

	switch actor.Role {
	case model.RoleAdmin:
	case model.RoleDoctor:
		doctor, err := s.doctors.GetByUserID(ctx, actor.UserID)
		if err != nil || doctor.ID != apt.DoctorID {
			return nil, errors.Forbidden("appointment belongs to another doctor")
		}
	case model.RolePatient:
		patient, err := s.patients.GetByUserID(ctx, actor.UserID)
		if err != nil || patient.ID != apt.PatientID {
			return nil, errors.Forbidden("appointment belongs to another patient")
		}
	default:
		return nil, errors.Forbidden("unknown role")
	}
	return apt, nil
}

// Reschedule applies admin edits: an optional new start time (with a
// fixed 30 minute duration) and an optional status override. Admin
// status overrides still respect the transition table.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, req *model.RescheduleRequest) (*model.Appointment, error) {
	apt, err := s.appointments.Get(ctx, id)
	if err != nil {
		return nil, errors.NotFound("appointment", err)
	}

	if req.StartTime != nil {
		if !req.StartTime.After(s.now()) {
			return nil, errors.PastSlot()
		}
		apt.StartTime = *req.StartTime
		apt.EndTime = req.StartTime.Add(AdminRescheduleDuration)
	}

	if req.Status != nil {
		if *req.Status != apt.Status && !apt.Status.CanTransitionTo(*req.Status) {
			return nil, errors.Conflict(fmt.Sprintf("cannot move a %s appointment to %s", apt.Status, *req.Status))
		}
		apt.Status = *req.Status
	}

	if err := s.appointments.Update(ctx, apt); err != nil {
		return nil, fmt.Errorf("failed to update appointment: %w", err)
	}
	return apt, nil
}

// Delete removes an appointment outright. Admin only, enforced at the
// router.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.appointments.Get(ctx, id); err != nil {
		return errors.NotFound("appointment", err)
	}
	if err := s.appointments.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	return nil
}
