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

type doctorRepository struct {
	BaseRepository
}

func NewDoctorRepository(db *sqlx.DB) repository.DoctorRepository {
	return &doctorRepository{NewBaseRepository(db)}
}

const insertDoctorQuery = `
	INSERT INTO doctors (id, user_id, specialty, phone, bio, rating, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

const selectDoctorQuery = `
	SELECT d.id, d.user_id, d.specialty, d.phone, d.bio, d.rating,
		   d.created_at, d.updated_at,
		   u.first_name, u.last_name, u.email
	FROM doctors d
	JOIN users u ON u.id = d.user_id
`

func (r *doctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	prepareDoctor(doctor)
	_, err := r.db.ExecContext(ctx, insertDoctorQuery,
		doctor.ID, doctor.UserID, doctor.Specialty, doctor.Phone,
		doctor.Bio, doctor.Rating, doctor.CreatedAt, doctor.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create doctor: %w", err)
	}
	return nil
}

func (r *doctorRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, doctor *model.Doctor) error {
	prepareDoctor(doctor)
	_, err := tx.ExecContext(ctx, insertDoctorQuery,
		doctor.ID, doctor.UserID, doctor.Specialty, doctor.Phone,
		doctor.Bio, doctor.Rating, doctor.CreatedAt, doctor.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create doctor: %w", err)
	}
	return nil
}

func prepareDoctor(doctor *model.Doctor) {
	if doctor.ID == uuid.Nil {
		doctor.ID = uuid.New()
	}
	doctor.CreatedAt = time.Now()
	doctor.UpdatedAt = time.Now()
}

func (r *doctorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	var doctor model.Doctor
	if err := r.db.GetContext(ctx, &doctor, selectDoctorQuery+` WHERE d.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("doctor not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}
	return &doctor, nil
}

func (r *doctorRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Doctor, error) {
	var doctor model.Doctor
	if err := r.db.GetContext(ctx, &doctor, selectDoctorQuery+` WHERE d.user_id = $1`, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("doctor not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get doctor by user: %w", err)
	}
	return &doctor, nil
}

func (r *doctorRepository) Update(ctx context.Context, doctor *model.Doctor) error {
	query := `
		UPDATE doctors
		SET specialty = $1, phone = $2, bio = $3, rating = $4, updated_at = $5
		WHERE id = $6
	`
	doctor.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		doctor.Specialty, doctor.Phone, doctor.Bio, doctor.Rating,
		doctor.UpdatedAt, doctor.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update doctor: %w", err)
	}
	return requireRows(result, "doctor")
}

func (r *doctorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM doctors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete doctor: %w", err)
	}
	return requireRows(result, "doctor")
}

func (r *doctorRepository) List(ctx context.Context) ([]*model.Doctor, error) {
	var doctors []*model.Doctor
	err := r.db.SelectContext(ctx, &doctors, selectDoctorQuery+` ORDER BY u.last_name, u.first_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	return doctors, nil
}

func (r *doctorRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM doctors`); err != nil {
		return 0, fmt.Errorf("failed to count doctors: %w", err)
	}
	return count, nil
}
