package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/clinicdesk/booking-api/internal/model"
	"github.com/clinicdesk/booking-api/internal/repository"
	"github.com/clinicdesk/booking-api/pkg/errors"
	"github.com/clinicdesk/booking-api/pkg/logger"
	"github.com/clinicdesk/booking-api/pkg/metrics"
)

// RecurringSlotDuration is the booked length of a weekly recurring slot.
// One-off slots keep their own start/end window.
const RecurringSlotDuration = time.Hour

// Service coordinates slot claiming and appointment lifecycle changes.
// Every mutating path runs inside a single database transaction together
// with its outbox event, so the slot state and the appointment row can
// never disagree.
type Service struct {
	tx             repository.TxRunner
	appointments   repository.AppointmentRepository
	availabilities repository.AvailabilityRepository
	doctors        repository.DoctorRepository
	patients       repository.PatientRepository
	outbox         repository.OutboxRepository
	metrics        *metrics.Metrics
	logger         *logger.Logger
	now            func() time.Time
}

func NewService(
	tx repository.TxRunner,
	appointments repository.AppointmentRepository,
	availabilities repository.AvailabilityRepository,
	doctors repository.DoctorRepository,
	patients repository.PatientRepository,
	outbox repository.OutboxRepository,
	m *metrics.Metrics,
	l *logger.Logger,
) *Service {
	return &Service{
		tx:             tx,
		appointments:   appointments,
		availabilities: availabilities,
		doctors:        doctors,
		patients:       patients,
		outbox:         outbox,
		metrics:        m,
		logger:         l,
		now:            time.Now,
	}
}

// Book claims the availability slot and creates a pending appointment for
// the patient behind patientUserID. Under concurrent requests for the
// same slot, exactly one booking succeeds and the rest get a slot-taken
// error.
func (s *Service) Book(ctx context.Context, patientUserID uuid.UUID, req *model.BookingRequest) (*model.Appointment, error) {
	patient, err := s.patients.GetByUserID(ctx, patientUserID)
	if err != nil {
		return nil, errors.NotFound("patient profile", err)
	}

	if _, err := s.doctors.Get(ctx, req.DoctorID); err != nil {
		return nil, errors.NotFound("doctor", err)
	}

	slot, err := s.availabilities.Get(ctx, req.AvailabilityID)
	if err != nil {
		return nil, errors.NotFound("availability slot", err)
	}
	if slot.DoctorID != req.DoctorID {
		return nil, errors.InvalidSlot("slot does not belong to this doctor")
	}
	if !slot.IsAvailable {
		s.metrics.BookingConflicts.Inc()
		return nil, errors.SlotTaken()
	}

	now := s.now()
	startTime, endTime, err := s.resolveSlotWindow(slot, now)
	if err != nil {
		return nil, errors.BadRequest("invalid slot times", err)
	}
	if !startTime.After(now) {
		return nil, errors.PastSlot()
	}

	availabilityID := slot.ID
	apt := &model.Appointment{
		DoctorID:       req.DoctorID,
		PatientID:      patient.ID,
		AvailabilityID: &availabilityID,
		StartTime:      startTime,
		EndTime:        endTime,
		Status:         model.AppointmentStatusPending,
		Reference:      newReference(),
	}

	err = s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		claimed, err := s.availabilities.Claim(ctx, tx, slot.ID)
		if err != nil {
			return fmt.Errorf("failed to claim slot: %w", err)
		}
		if !claimed {
			return errors.SlotTaken()
		}

		if err := s.appointments.CreateTx(ctx, tx, apt); err != nil {
			return fmt.Errorf("failed to create appointment: %w", err)
		}
		return s.writeEvent(ctx, tx, model.EventAppointmentBooked, apt)
	})
	if err != nil {
		if errors.IsCode(err, errors.ErrSlotTaken) {
			s.metrics.BookingConflicts.Inc()
		}
		return nil, err
	}

	s.metrics.BookingsTotal.Inc()
	s.logger.WithFields(map[string]interface{}{
		"appointment_id": apt.ID,
		"doctor_id":      apt.DoctorID,
		"patient_id":     apt.PatientID,
		"reference":      apt.Reference,
	}).Info("appointment booked")

	return apt, nil
}

// Cancel moves the appointment to cancelled and reopens its slot. The
// slot restore is best-effort: a slot that can no longer be resolved
// does not block the cancellation.
func (s *Service) Cancel(ctx context.Context, actor model.Actor, appointmentID uuid.UUID) error {
	apt, err := s.appointments.Get(ctx, appointmentID)
	if err != nil {
		return errors.NotFound("appointment", err)
	}

	if err := s.authorize(ctx, actor, apt); err != nil {
		return err
	}

	// Re-cancelling is a no-op, and the slot is not restored twice.
	if apt.Status == model.AppointmentStatusCancelled {
		return nil
	}
	if !apt.Status.CanTransitionTo(model.AppointmentStatusCancelled) {
		return errors.Conflict(fmt.Sprintf("cannot cancel a %s appointment", apt.Status))
	}

	slotID := s.resolveRestoreSlot(ctx, apt)

	err = s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.appointments.UpdateStatusTx(ctx, tx, apt.ID, model.AppointmentStatusCancelled); err != nil {
			return fmt.Errorf("failed to cancel appointment: %w", err)
		}
		if slotID != nil {
			if err := s.availabilities.Release(ctx, tx, *slotID); err != nil {
				return fmt.Errorf("failed to restore slot: %w", err)
			}
		}
		apt.Status = model.AppointmentStatusCancelled
		return s.writeEvent(ctx, tx, model.EventAppointmentCancelled, apt)
	})
	if err != nil {
		return err
	}

	s.metrics.Cancellations.Inc()
	return nil
}

// Confirm moves a pending appointment to confirmed. Only the owning
// doctor or an admin may confirm.
func (s *Service) Confirm(ctx context.Context, actor model.Actor, appointmentID uuid.UUID) error {
	return s.transition(ctx, actor, appointmentID, model.AppointmentStatusConfirmed, model.EventAppointmentConfirmed)
}

// Complete moves a confirmed appointment to completed. Only the owning
// doctor or an admin may complete.
func (s *Service) Complete(ctx context.Context, actor model.Actor, appointmentID uuid.UUID) error {
	return s.transition(ctx, actor, appointmentID, model.AppointmentStatusCompleted, model.EventAppointmentCompleted)
}

func (s *Service) transition(ctx context.Context, actor model.Actor, appointmentID uuid.UUID, next model.AppointmentStatus, eventType string) error {
	apt, err := s.appointments.Get(ctx, appointmentID)
	if err != nil {
		return errors.NotFound("appointment", err)
	}

	if actor.Role == model.RolePatient {
		return errors.Forbidden("only the doctor can change appointment status")
	}
	if err := s.authorize(ctx, actor, apt); err != nil {
		return err
	}

	if !apt.Status.CanTransitionTo(next) {
		return errors.Conflict(fmt.Sprintf("cannot move a %s appointment to %s", apt.Status, next))
	}
	if next == model.AppointmentStatusCompleted && s.now().Before(apt.EndTime) {
		return errors.Conflict("cannot complete an appointment before it ends")
	}

	return s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.appointments.UpdateStatusTx(ctx, tx, apt.ID, next); err != nil {
			return fmt.Errorf("failed to update appointment status: %w", err)
		}
		apt.Status = next
		return s.writeEvent(ctx, tx, eventType, apt)
	})
}

// authorize checks that the actor owns the appointment. Admins pass
// unconditionally.
func (s *Service) authorize(ctx context.Context, actor model.Actor, apt *model.Appointment) error {
	switch actor.Role {
	case model.RoleAdmin:
		return nil
	case model.RoleDoctor:
		doctor, err := s.doctors.GetByUserID(ctx, actor.UserID)
		if err != nil {
			return errors.Forbidden("no doctor profile for this account")
		}
		if doctor.ID != apt.DoctorID {
			return errors.Forbidden("appointment belongs to another doctor")
		}
		return nil
	case model.RolePatient:
		patient, err := s.patients.GetByUserID(ctx, actor.UserID)
		if err != nil {
			return errors.Forbidden("no patient profile for this account")
		}
		if patient.ID != apt.PatientID {
			return errors.Forbidden("appointment belongs to another patient")
		}
		return nil
	}
	return errors.Forbidden("unknown role")
}

// resolveSlotWindow computes the concrete start/end of a slot. One-off
// slots anchor to their stored date; recurring slots anchor to the next
// weekday occurrence with a fixed one-hour duration.
func (s *Service) resolveSlotWindow(slot *model.Availability, now time.Time) (time.Time, time.Time, error) {
	if slot.Date != nil {
		start, err := slot.StartOn(*slot.Date)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end, err := slot.EndOn(*slot.Date)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		return start, end, nil
	}

	start, err := slot.NextOccurrence(now)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.Add(RecurringSlotDuration), nil
}

// resolveRestoreSlot finds the slot to reopen on cancellation. The
// stored availability reference wins; appointments without one fall back
// to a doctor/date/start-time lookup.
func (s *Service) resolveRestoreSlot(ctx context.Context, apt *model.Appointment) *uuid.UUID {
	if apt.AvailabilityID != nil {
		return apt.AvailabilityID
	}

	day := time.Date(apt.StartTime.Year(), apt.StartTime.Month(), apt.StartTime.Day(), 0, 0, 0, 0, apt.StartTime.Location())
	slot, err := s.availabilities.FindBySlot(ctx, apt.DoctorID, day, apt.StartTime.Format(model.TimeOfDayLayout))
	if err != nil {
		s.logger.WithFields(map[string]interface{}{
			"appointment_id": apt.ID,
		}).Debug("no slot to restore for cancelled appointment")
		return nil
	}
	return &slot.ID
}

func (s *Service) writeEvent(ctx context.Context, tx *sqlx.Tx, eventType string, apt *model.Appointment) error {
	payload, err := json.Marshal(model.AppointmentEvent{
		AppointmentID: apt.ID,
		DoctorID:      apt.DoctorID,
		PatientID:     apt.PatientID,
		StartTime:     apt.StartTime,
		Reference:     apt.Reference,
		Status:        apt.Status,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	event := &model.OutboxEvent{
		EventType: eventType,
		Payload:   payload,
	}
	if err := s.outbox.CreateTx(ctx, tx, event); err != nil {
		return fmt.Errorf("failed to record outbox event: %w", err)
	}
	return nil
}

// newReference builds a short human-readable booking reference.
func newReference() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "APT-" + strings.ToUpper(raw[:8])
}
