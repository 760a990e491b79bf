package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/clinicdesk/booking-api/internal/model"
	"github.com/clinicdesk/booking-api/internal/repository"
	"github.com/clinicdesk/booking-api/pkg/errors"
)

const (
	adminStatsCacheKey = "admin_stats"
	statsCacheTTL      = time.Minute
)

// Service computes dashboard aggregates. Admin stats are cached briefly
// since every dashboard load requests them.
type Service struct {
	appointments repository.AppointmentRepository
	doctors      repository.DoctorRepository
	patients     repository.PatientRepository
	cache        *gocache.Cache
	now          func() time.Time
}

func NewService(appointments repository.AppointmentRepository, doctors repository.DoctorRepository, patients repository.PatientRepository) *Service {
	return &Service{
		appointments: appointments,
		doctors:      doctors,
		patients:     patients,
		cache:        gocache.New(statsCacheTTL, 5*time.Minute),
		now:          time.Now,
	}
}

// AdminStats returns the admin dashboard aggregates.
func (s *Service) AdminStats(ctx context.Context) (*model.AdminStats, error) {
	if cached, ok := s.cache.Get(adminStatsCacheKey); ok {
		return cached.(*model.AdminStats), nil
	}

	stats := &model.AdminStats{ByStatus: make(map[string]int64)}

	total, err := s.appointments.Count(ctx, uuid.Nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count appointments: %w", err)
	}
	stats.TotalAppointments = total

	if stats.TotalDoctors, err = s.doctors.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count doctors: %w", err)
	}
	if stats.TotalPatients, err = s.patients.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count patients: %w", err)
	}

	byStatus, err := s.appointments.CountByStatus(ctx, uuid.Nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}
	for _, row := range byStatus {
		stats.ByStatus[string(row.Status)] = row.Count
	}

	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if stats.Today, err = s.appointments.CountBetween(ctx, uuid.Nil, dayStart, dayStart.AddDate(0, 0, 1)); err != nil {
		return nil, fmt.Errorf("failed to count today's appointments: %w", err)
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	lastMonthStart := monthStart.AddDate(0, -1, 0)

	months, err := s.appointments.CountsByMonth(ctx, lastMonthStart, monthStart.AddDate(0, 1, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to count by month: %w", err)
	}
	for _, m := range months {
		switch {
		case m.Month.Equal(monthStart):
			stats.ThisMonth = m.Count
		case m.Month.Equal(lastMonthStart):
			stats.LastMonth = m.Count
		}
	}
	stats.MonthTrendPercent = trendPercent(stats.ThisMonth, stats.LastMonth)

	s.cache.Set(adminStatsCacheKey, stats, statsCacheTTL)
	return stats, nil
}

// DoctorStats returns the dashboard summary for the doctor behind
// doctorUserID.
func (s *Service) DoctorStats(ctx context.Context, doctorUserID uuid.UUID) (*model.DoctorStats, error) {
	doctor, err := s.doctors.GetByUserID(ctx, doctorUserID)
	if err != nil {
		return nil, errors.NotFound("doctor profile", err)
	}

	stats := &model.DoctorStats{}

	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if stats.Today, err = s.appointments.CountBetween(ctx, doctor.ID, dayStart, dayStart.AddDate(0, 0, 1)); err != nil {
		return nil, fmt.Errorf("failed to count today's appointments: %w", err)
	}

	byStatus, err := s.appointments.CountByStatus(ctx, doctor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}
	for _, row := range byStatus {
		stats.Total += row.Count
		switch row.Status {
		case model.AppointmentStatusPending:
			stats.Pending = row.Count
		case model.AppointmentStatusConfirmed:
			stats.Confirmed = row.Count
		}
	}
	return stats, nil
}

// trendPercent computes the month-over-month change. A zero previous
// month with current bookings reads as +100%.
func trendPercent(current, previous int64) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return float64(current-previous) / float64(previous) * 100
}
