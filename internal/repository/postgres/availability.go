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

type availabilityRepository struct {
	BaseRepository
}

func NewAvailabilityRepository(db *sqlx.DB) repository.AvailabilityRepository {
	return &availabilityRepository{NewBaseRepository(db)}
}

const selectAvailabilityColumns = `
	SELECT id, doctor_id, day_of_week, start_time, end_time, date,
		   recurring, is_available, created_at, updated_at
	FROM availabilities
`

func (r *availabilityRepository) Create(ctx context.Context, slot *model.Availability) error {
	query := `
		INSERT INTO availabilities (
			id, doctor_id, day_of_week, start_time, end_time, date,
			recurring, is_available, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}
	slot.CreatedAt = time.Now()
	slot.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		slot.ID, slot.DoctorID, slot.DayOfWeek, slot.StartTime, slot.EndTime,
		slot.Date, slot.Recurring, slot.IsAvailable, slot.CreatedAt, slot.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create availability: %w", err)
	}
	return nil
}

func (r *availabilityRepository) Get(ctx context.Context, id uuid.UUID) (*model.Availability, error) {
	var slot model.Availability
	if err := r.db.GetContext(ctx, &slot, selectAvailabilityColumns+` WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("availability not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get availability: %w", err)
	}
	return &slot, nil
}

func (r *availabilityRepository) Update(ctx context.Context, slot *model.Availability) error {
	query := `
		UPDATE availabilities
		SET day_of_week = $1, start_time = $2, end_time = $3, date = $4,
			recurring = $5, is_available = $6, updated_at = $7
		WHERE id = $8
	`
	slot.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		slot.DayOfWeek, slot.StartTime, slot.EndTime, slot.Date,
		slot.Recurring, slot.IsAvailable, slot.UpdatedAt, slot.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update availability: %w", err)
	}
	return requireRows(result, "availability")
}

func (r *availabilityRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM availabilities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete availability: %w", err)
	}
	return requireRows(result, "availability")
}

func (r *availabilityRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Availability, error) {
	var slots []*model.Availability
	err := r.db.SelectContext(ctx, &slots,
		selectAvailabilityColumns+` WHERE doctor_id = $1 ORDER BY date NULLS LAST, day_of_week, start_time`,
		doctorID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list availabilities: %w", err)
	}
	return slots, nil
}

func (r *availabilityRepository) ListOpenByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Availability, error) {
	var slots []*model.Availability
	err := r.db.SelectContext(ctx, &slots,
		selectAvailabilityColumns+` WHERE doctor_id = $1 AND is_available = TRUE ORDER BY date NULLS LAST, start_time`,
		doctorID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list open availabilities: %w", err)
	}
	return slots, nil
}

// Claim is the race guard for concurrent bookings: the conditional WHERE
// makes the first transaction win and every later one see zero rows.
func (r *availabilityRepository) Claim(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (bool, error) {
	result, err := tx.ExecContext(ctx, `
		UPDATE availabilities
		SET is_available = FALSE, updated_at = $1
		WHERE id = $2 AND is_available = TRUE
	`, time.Now(), id)
	if err != nil {
		return false, fmt.Errorf("failed to claim availability: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *availabilityRepository) Release(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE availabilities
		SET is_available = TRUE, updated_at = $1
		WHERE id = $2
	`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to release availability: %w", err)
	}
	return nil
}

func (r *availabilityRepository) FindBySlot(ctx context.Context, doctorID uuid.UUID, date time.Time, startTime string) (*model.Availability, error) {
	var slot model.Availability
	err := r.db.GetContext(ctx, &slot,
		selectAvailabilityColumns+` WHERE doctor_id = $1 AND date = $2::date AND start_time = $3`,
		doctorID, date, startTime,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("availability not found: %w", err)
		}
		return nil, fmt.Errorf("failed to find availability by slot: %w", err)
	}
	return &slot, nil
}

func (r *availabilityRepository) CopyWeek(ctx context.Context, doctorID uuid.UUID, anchorDate time.Time) (int, error) {
	// Each clone lands on the anchor week's calendar day matching the
	// slot's weekday.
	query := `
		INSERT INTO availabilities (
			id, doctor_id, day_of_week, start_time, end_time, date,
			recurring, is_available, created_at, updated_at
		)
		SELECT gen_random_uuid(), doctor_id, day_of_week, start_time, end_time,
			   $2::date + ((day_of_week - EXTRACT(DOW FROM $2::date)::int + 7) % 7),
			   FALSE, is_available, NOW(), NOW()
		FROM availabilities
		WHERE doctor_id = $1 AND recurring = TRUE
	`
	result, err := r.db.ExecContext(ctx, query, doctorID, anchorDate)
	if err != nil {
		return 0, fmt.Errorf("failed to copy week availabilities: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rows), nil
}
