package notification

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/clinicdesk/booking-api/internal/model"
	"github.com/clinicdesk/booking-api/internal/repository"
	"github.com/clinicdesk/booking-api/pkg/logger"
)

// Config holds SMTP settings. Disabled turns sending into a logged
// no-op, which is how dev environments run.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Enabled  bool
}

// Service emails booking lifecycle notifications to patients. Sending
// is best-effort: callers log failures and move on.
type Service struct {
	cfg      Config
	dialer   *gomail.Dialer
	patients repository.PatientRepository
	logger   *logger.Logger
}

func NewService(cfg Config, patients repository.PatientRepository, l *logger.Logger) *Service {
	return &Service{
		cfg:      cfg,
		dialer:   gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		patients: patients,
		logger:   l,
	}
}

func (s *Service) NotifyBooked(ctx context.Context, apt *model.AppointmentEvent) error {
	subject := fmt.Sprintf("Appointment %s booked", apt.Reference)
	body := fmt.Sprintf(
		"Your appointment %s is booked for %s.\nIt is pending confirmation by the doctor.",
		apt.Reference, apt.StartTime.Format("Monday, 2 January 2006 at 15:04"),
	)
	return s.sendToPatient(ctx, apt, subject, body)
}

func (s *Service) NotifyConfirmed(ctx context.Context, apt *model.AppointmentEvent) error {
	subject := fmt.Sprintf("Appointment %s confirmed", apt.Reference)
	body := fmt.Sprintf(
		"Your appointment %s on %s has been confirmed.",
		apt.Reference, apt.StartTime.Format("Monday, 2 January 2006 at 15:04"),
	)
	return s.sendToPatient(ctx, apt, subject, body)
}

func (s *Service) NotifyCancelled(ctx context.Context, apt *model.AppointmentEvent) error {
	subject := fmt.Sprintf("Appointment %s cancelled", apt.Reference)
	body := fmt.Sprintf(
		"Your appointment %s on %s has been cancelled. The time slot is open again.",
		apt.Reference, apt.StartTime.Format("Monday, 2 January 2006 at 15:04"),
	)
	return s.sendToPatient(ctx, apt, subject, body)
}

func (s *Service) NotifyReminder(ctx context.Context, apt *model.AppointmentEvent) error {
	subject := fmt.Sprintf("Reminder: appointment %s tomorrow", apt.Reference)
	body := fmt.Sprintf(
		"This is a reminder for your appointment %s on %s.",
		apt.Reference, apt.StartTime.Format("Monday, 2 January 2006 at 15:04"),
	)
	return s.sendToPatient(ctx, apt, subject, body)
}

func (s *Service) sendToPatient(ctx context.Context, apt *model.AppointmentEvent, subject, body string) error {
	patient, err := s.patients.Get(ctx, apt.PatientID)
	if err != nil {
		return fmt.Errorf("failed to resolve patient: %w", err)
	}
	if patient.Email == "" {
		return fmt.Errorf("patient %s has no email address", patient.ID)
	}
	return s.send(patient.Email, subject, body)
}

func (s *Service) send(to, subject, body string) error {
	if !s.cfg.Enabled {
		s.logger.WithFields(map[string]interface{}{
			"to":      to,
			"subject": subject,
		}).Debug("email sending disabled, skipping")
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
