package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/booking-api/internal/model"
	"github.com/clinicdesk/booking-api/internal/repository"
	"github.com/clinicdesk/booking-api/pkg/logger"
)

// ReminderLeadTime is how far ahead of the appointment start the
// reminder fires.
const ReminderLeadTime = 24 * time.Hour

// ReminderSweeper periodically emits reminder outbox events for
// confirmed appointments starting ReminderLeadTime from now. Each sweep
// covers the window [lead, lead+interval) so consecutive sweeps never
// remind the same appointment twice.
type ReminderSweeper struct {
	appointments repository.AppointmentRepository
	outbox       repository.OutboxRepository
	interval     time.Duration
	logger       *logger.Logger
	now          func() time.Time
}

func NewReminderSweeper(appointments repository.AppointmentRepository, outbox repository.OutboxRepository, interval time.Duration, l *logger.Logger) *ReminderSweeper {
	if interval <= 0 {
		panic("interval must be greater than 0")
	}
	return &ReminderSweeper{
		appointments: appointments,
		outbox:       outbox,
		interval:     interval,
		logger:       l,
		now:          time.Now,
	}
}

func (w *ReminderSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("Starting reminder sweeper")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Shutting down reminder sweeper")
			return
		case <-ticker.C:
			if err := w.sweep(ctx); err != nil {
				w.logger.Error(err, "Failed to sweep reminders")
			}
		}
	}
}

func (w *ReminderSweeper) sweep(ctx context.Context) error {
	from := w.now().Add(ReminderLeadTime)
	to := from.Add(w.interval)

	appointments, err := w.appointments.ListBetween(ctx, uuid.Nil, from, to)
	if err != nil {
		return fmt.Errorf("failed to list upcoming appointments: %w", err)
	}

	for _, apt := range appointments {
		if apt.Status != model.AppointmentStatusConfirmed {
			continue
		}

		payload, err := json.Marshal(model.AppointmentEvent{
			AppointmentID: apt.ID,
			DoctorID:      apt.DoctorID,
			PatientID:     apt.PatientID,
			StartTime:     apt.StartTime,
			Reference:     apt.Reference,
			Status:        apt.Status,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal reminder payload: %w", err)
		}

		event := &model.OutboxEvent{
			EventType: model.EventAppointmentReminder,
			Payload:   payload,
		}
		if err := w.outbox.Create(ctx, event); err != nil {
			w.logger.WithFields(map[string]interface{}{
				"appointment_id": apt.ID,
			}).Error(err, "Failed to queue reminder")
			continue
		}
	}
	return nil
}
