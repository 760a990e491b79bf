package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/clinicdesk/booking-api/internal/model"
	"github.com/clinicdesk/booking-api/internal/repository"
)

// Postgres unique_violation error code.
const uniqueViolation = "23505"

type prescriptionRepository struct {
	BaseRepository
}

func NewPrescriptionRepository(db *sqlx.DB) repository.PrescriptionRepository {
	return &prescriptionRepository{NewBaseRepository(db)}
}

const selectPrescriptionColumns = `
	SELECT id, appointment_id, doctor_id, file_name, notes, uploaded_at,
		   created_at, updated_at
	FROM prescriptions
`

func (r *prescriptionRepository) Create(ctx context.Context, p *model.Prescription) error {
	query := `
		INSERT INTO prescriptions (
			id, appointment_id, doctor_id, file_name, notes, uploaded_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.AppointmentID, p.DoctorID, p.FileName, p.Notes,
		p.UploadedAt, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("prescription for appointment %s: %w", p.AppointmentID, repository.ErrDuplicate)
		}
		return fmt.Errorf("failed to create prescription: %w", err)
	}
	return nil
}

func (r *prescriptionRepository) Get(ctx context.Context, id uuid.UUID) (*model.Prescription, error) {
	var p model.Prescription
	if err := r.db.GetContext(ctx, &p, selectPrescriptionColumns+` WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("prescription not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get prescription: %w", err)
	}
	return &p, nil
}

func (r *prescriptionRepository) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.Prescription, error) {
	var p model.Prescription
	err := r.db.GetContext(ctx, &p, selectPrescriptionColumns+` WHERE appointment_id = $1`, appointmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("prescription not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get prescription by appointment: %w", err)
	}
	return &p, nil
}

func (r *prescriptionRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Prescription, error) {
	var prescriptions []*model.Prescription
	err := r.db.SelectContext(ctx, &prescriptions,
		selectPrescriptionColumns+` WHERE doctor_id = $1 ORDER BY uploaded_at DESC`, doctorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	return prescriptions, nil
}

func (r *prescriptionRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Prescription, error) {
	query := `
		SELECT pr.id, pr.appointment_id, pr.doctor_id, pr.file_name, pr.notes,
			   pr.uploaded_at, pr.created_at, pr.updated_at
		FROM prescriptions pr
		JOIN appointments a ON a.id = pr.appointment_id
		WHERE a.patient_id = $1
		ORDER BY pr.uploaded_at DESC
	`
	var prescriptions []*model.Prescription
	if err := r.db.SelectContext(ctx, &prescriptions, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list patient prescriptions: %w", err)
	}
	return prescriptions, nil
}
