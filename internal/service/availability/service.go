package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/booking-api/internal/model"
	"github.com/clinicdesk/booking-api/internal/repository"
	"github.com/clinicdesk/booking-api/pkg/errors"
	"github.com/clinicdesk/booking-api/pkg/logger"
)

// Service manages doctor availability slots.
type Service struct {
	availabilities repository.AvailabilityRepository
	doctors        repository.DoctorRepository
	logger         *logger.Logger
	now            func() time.Time
}

func NewService(availabilities repository.AvailabilityRepository, doctors repository.DoctorRepository, l *logger.Logger) *Service {
	return &Service{
		availabilities: availabilities,
		doctors:        doctors,
		logger:         l,
		now:            time.Now,
	}
}

// Create adds a slot for the doctor behind doctorUserID. One-off slots
// carry a date and derive their weekday from it; recurring slots carry
// only a weekday.
func (s *Service) Create(ctx context.Context, doctorUserID uuid.UUID, req *model.CreateAvailabilityRequest) (*model.Availability, error) {
	doctor, err := s.doctors.GetByUserID(ctx, doctorUserID)
	if err != nil {
		return nil, errors.NotFound("doctor profile", err)
	}

	if err := validateTimeWindow(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	if !req.Recurring && req.Date == nil {
		return nil, errors.BadRequest("one-off slots need a date", nil)
	}

	slot := &model.Availability{
		DoctorID:    doctor.ID,
		DayOfWeek:   req.DayOfWeek,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Date:        req.Date,
		Recurring:   req.Recurring,
		IsAvailable: true,
	}
	if req.Date != nil {
		slot.DayOfWeek = req.Date.Weekday()
	}

	if err := s.availabilities.Create(ctx, slot); err != nil {
		return nil, fmt.Errorf("failed to create availability: %w", err)
	}
	return slot, nil
}

// QuickAdd creates a one-off slot from a concrete start/end datetime
// pair, the way calendar drag-selection submits it.
func (s *Service) QuickAdd(ctx context.Context, doctorUserID uuid.UUID, req *model.QuickAddRequest) (*model.Availability, error) {
	doctor, err := s.doctors.GetByUserID(ctx, doctorUserID)
	if err != nil {
		return nil, errors.NotFound("doctor profile", err)
	}

	if !req.Start.After(s.now()) {
		return nil, errors.PastSlot()
	}

	date := time.Date(req.Start.Year(), req.Start.Month(), req.Start.Day(), 0, 0, 0, 0, req.Start.Location())
	slot := &model.Availability{
		DoctorID:    doctor.ID,
		DayOfWeek:   req.Start.Weekday(),
		StartTime:   req.Start.Format(model.TimeOfDayLayout),
		EndTime:     req.End.Format(model.TimeOfDayLayout),
		Date:        &date,
		Recurring:   false,
		IsAvailable: true,
	}

	if err := s.availabilities.Create(ctx, slot); err != nil {
		return nil, fmt.Errorf("failed to create availability: %w", err)
	}
	return slot, nil
}

// CopyWeek clones every recurring slot of the doctor as one-off slots
// anchored a week out from today. Returns the number of clones.
func (s *Service) CopyWeek(ctx context.Context, doctorUserID uuid.UUID) (int, error) {
	doctor, err := s.doctors.GetByUserID(ctx, doctorUserID)
	if err != nil {
		return 0, errors.NotFound("doctor profile", err)
	}

	now := s.now()
	anchor := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 7)

	created, err := s.availabilities.CopyWeek(ctx, doctor.ID, anchor)
	if err != nil {
		return 0, fmt.Errorf("failed to copy week: %w", err)
	}
	return created, nil
}

// ListForDoctor returns every slot the doctor owns, for schedule
// management.
func (s *Service) ListForDoctor(ctx context.Context, doctorUserID uuid.UUID) ([]*model.Availability, error) {
	doctor, err := s.doctors.GetByUserID(ctx, doctorUserID)
	if err != nil {
		return nil, errors.NotFound("doctor profile", err)
	}
	slots, err := s.availabilities.ListByDoctor(ctx, doctor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list availabilities: %w", err)
	}
	return slots, nil
}

// ListOpenForDoctor returns the bookable slots of a doctor: available,
// and either recurring or dated today onwards. This is the patient-facing
// view.
func (s *Service) ListOpenForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Availability, error) {
	if _, err := s.doctors.Get(ctx, doctorID); err != nil {
		return nil, errors.NotFound("doctor", err)
	}

	slots, err := s.availabilities.ListOpenByDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list open availabilities: %w", err)
	}

	now := s.now()
	open := make([]*model.Availability, 0, len(slots))
	for _, slot := range slots {
		if slot.Recurring || slot.Date == nil {
			open = append(open, slot)
			continue
		}
		start, err := slot.StartOn(*slot.Date)
		if err != nil {
			s.logger.WithFields(map[string]interface{}{
				"availability_id": slot.ID,
			}).Debug("skipping slot with unparseable start time")
			continue
		}
		if start.After(now) {
			open = append(open, slot)
		}
	}
	return open, nil
}

// Toggle flips the availability flag on a slot the doctor owns.
func (s *Service) Toggle(ctx context.Context, doctorUserID, slotID uuid.UUID) (*model.Availability, error) {
	slot, err := s.ownedSlot(ctx, doctorUserID, slotID)
	if err != nil {
		return nil, err
	}

	slot.IsAvailable = !slot.IsAvailable
	if err := s.availabilities.Update(ctx, slot); err != nil {
		return nil, fmt.Errorf("failed to update availability: %w", err)
	}
	return slot, nil
}

// Delete removes a slot the doctor owns.
func (s *Service) Delete(ctx context.Context, doctorUserID, slotID uuid.UUID) error {
	slot, err := s.ownedSlot(ctx, doctorUserID, slotID)
	if err != nil {
		return err
	}
	if err := s.availabilities.Delete(ctx, slot.ID); err != nil {
		return fmt.Errorf("failed to delete availability: %w", err)
	}
	return nil
}

func (s *Service) ownedSlot(ctx context.Context, doctorUserID, slotID uuid.UUID) (*model.Availability, error) {
	doctor, err := s.doctors.GetByUserID(ctx, doctorUserID)
	if err != nil {
		return nil, errors.NotFound("doctor profile", err)
	}
	slot, err := s.availabilities.Get(ctx, slotID)
	if err != nil {
		return nil, errors.NotFound("availability slot", err)
	}
	if slot.DoctorID != doctor.ID {
		return nil, errors.Forbidden("slot belongs to another doctor")
	}
	return slot, nil
}

func validateTimeWindow(start, end string) error {
	startT, err := time.Parse(model.TimeOfDayLayout, start)
	if err != nil {
		return errors.BadRequest("invalid start time, expected HH:MM", err)
	}
	endT, err := time.Parse(model.TimeOfDayLayout, end)
	if err != nil {
		return errors.BadRequest("invalid end time, expected HH:MM", err)
	}
	if !endT.After(startT) {
		return errors.BadRequest("end time must be after start time", nil)
	}
	return nil
}
