package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/clinicdesk/booking-api/internal/model"
	"github.com/clinicdesk/booking-api/internal/repository"
)

type appointmentRepository struct {
	BaseRepository
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{NewBaseRepository(db)}
}

const selectAppointmentQuery = `
	SELECT a.id, a.doctor_id, a.patient_id, a.availability_id,
		   a.start_time, a.end_time, a.status, a.reference,
		   a.created_at, a.updated_at,
		   du.first_name || ' ' || du.last_name AS doctor_name,
		   pu.first_name || ' ' || pu.last_name AS patient_name
	FROM appointments a
	JOIN doctors d ON d.id = a.doctor_id
	JOIN users du ON du.id = d.user_id
	JOIN patients p ON p.id = a.patient_id
	JOIN users pu ON pu.id = p.user_id
`

func (r *appointmentRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, apt *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, doctor_id, patient_id, availability_id,
			start_time, end_time, status, reference,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if apt.ID == uuid.Nil {
		apt.ID = uuid.New()
	}
	apt.CreatedAt = time.Now()
	apt.UpdatedAt = time.Now()

	_, err := tx.ExecContext(ctx, query,
		apt.ID, apt.DoctorID, apt.PatientID, apt.AvailabilityID,
		apt.StartTime, apt.EndTime, apt.Status, apt.Reference,
		apt.CreatedAt, apt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	var apt model.Appointment
	if err := r.db.GetContext(ctx, &apt, selectAppointmentQuery+` WHERE a.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("appointment not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &apt, nil
}

func (r *appointmentRepository) Update(ctx context.Context, apt *model.Appointment) error {
	query := `
		UPDATE appointments
		SET start_time = $1, end_time = $2, status = $3, updated_at = $4
		WHERE id = $5
	`
	apt.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		apt.StartTime, apt.EndTime, apt.Status, apt.UpdatedAt, apt.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	return requireRows(result, "appointment")
}

func (r *appointmentRepository) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status model.AppointmentStatus) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE appointments
		SET status = $1, updated_at = $2
		WHERE id = $3
	`, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", err)
	}
	return requireRows(result, "appointment")
}

func (r *appointmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	return requireRows(result, "appointment")
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := selectAppointmentQuery + ` WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if filters.DoctorID != uuid.Nil {
		query += fmt.Sprintf(" AND a.doctor_id = $%d", argCount)
		args = append(args, filters.DoctorID)
		argCount++
	}
	if filters.PatientID != uuid.Nil {
		query += fmt.Sprintf(" AND a.patient_id = $%d", argCount)
		args = append(args, filters.PatientID)
		argCount++
	}
	if filters.Status != "" {
		query += fmt.Sprintf(" AND a.status = $%d", argCount)
		args = append(args, filters.Status)
		argCount++
	}
	if filters.Date != nil {
		query += fmt.Sprintf(" AND a.start_time >= $%d AND a.start_time < $%d", argCount, argCount+1)
		day := filters.Date.Truncate(24 * time.Hour)
		args = append(args, day, day.AddDate(0, 0, 1))
		argCount += 2
	}
	if filters.Search != "" {
		query += fmt.Sprintf(
			" AND (du.first_name || ' ' || du.last_name ILIKE $%d"+
				" OR pu.first_name || ' ' || pu.last_name ILIKE $%d"+
				" OR du.email ILIKE $%d OR pu.email ILIKE $%d"+
				" OR a.reference ILIKE $%d)",
			argCount, argCount, argCount, argCount, argCount)
		args = append(args, "%"+filters.Search+"%")
		argCount++
	}

	query += " ORDER BY a.start_time DESC"

	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListBetween(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*model.Appointment, error) {
	query := selectAppointmentQuery + ` WHERE a.start_time >= $1 AND a.start_time < $2`
	args := []interface{}{from, to}

	if doctorID != uuid.Nil {
		query += ` AND a.doctor_id = $3`
		args = append(args, doctorID)
	}
	query += ` ORDER BY a.start_time ASC`

	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments between dates: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) CountByStatus(ctx context.Context, doctorID uuid.UUID) ([]*model.StatusCount, error) {
	query := `SELECT status, COUNT(*) AS count FROM appointments`
	args := []interface{}{}

	if doctorID != uuid.Nil {
		query += ` WHERE doctor_id = $1`
		args = append(args, doctorID)
	}
	query += ` GROUP BY status`

	var counts []*model.StatusCount
	if err := r.db.SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("failed to count appointments by status: %w", err)
	}
	return counts, nil
}

func (r *appointmentRepository) CountBetween(ctx context.Context, doctorID uuid.UUID, from, to time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM appointments WHERE start_time >= $1 AND start_time < $2`
	args := []interface{}{from, to}

	if doctorID != uuid.Nil {
		query += ` AND doctor_id = $3`
		args = append(args, doctorID)
	}

	var count int64
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count appointments: %w", err)
	}
	return count, nil
}

func (r *appointmentRepository) Count(ctx context.Context, doctorID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM appointments`
	args := []interface{}{}

	if doctorID != uuid.Nil {
		query += ` WHERE doctor_id = $1`
		args = append(args, doctorID)
	}

	var count int64
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count appointments: %w", err)
	}
	return count, nil
}

func (r *appointmentRepository) CountsByMonth(ctx context.Context, from, to time.Time) ([]*model.MonthCount, error) {
	query := `
		SELECT date_trunc('month', start_time) AS month, COUNT(*) AS count
		FROM appointments
		WHERE start_time >= $1 AND start_time < $2
		GROUP BY month
		ORDER BY month
	`
	var counts []*model.MonthCount
	if err := r.db.SelectContext(ctx, &counts, query, from, to); err != nil {
		return nil, fmt.Errorf("failed to count appointments by month: %w", err)
	}
	return counts, nil
}
