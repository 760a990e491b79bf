package doctor

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/clinicdesk/booking-api/internal/model"
	"github.com/clinicdesk/booking-api/internal/repository"
	"github.com/clinicdesk/booking-api/pkg/errors"
	"github.com/clinicdesk/booking-api/pkg/security"
)

// Service manages doctor profiles and their backing user accounts.
type Service struct {
	tx      repository.TxRunner
	users   repository.UserRepository
	doctors repository.DoctorRepository
	hasher  security.PasswordHasher
}

func NewService(tx repository.TxRunner, users repository.UserRepository, doctors repository.DoctorRepository, hasher security.PasswordHasher) *Service {
	return &Service{tx: tx, users: users, doctors: doctors, hasher: hasher}
}

// Create provisions a doctor account plus profile in one transaction.
// Admin-facing.
func (s *Service) Create(ctx context.Context, req *model.CreateDoctorRequest) (*model.Doctor, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if existing, err := s.users.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, errors.AlreadyExists("an account with this email")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, errors.BadRequest("invalid password", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         model.RoleDoctor,
	}
	doctor := &model.Doctor{
		Specialty: req.Specialty,
		Phone:     req.Phone,
		Bio:       req.Bio,
	}

	err = s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.users.CreateTx(ctx, tx, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		doctor.UserID = user.ID
		if err := s.doctors.CreateTx(ctx, tx, doctor); err != nil {
			return fmt.Errorf("failed to create doctor profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	doctor.FirstName = user.FirstName
	doctor.LastName = user.LastName
	doctor.Email = user.Email
	return doctor, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	doctor, err := s.doctors.Get(ctx, id)
	if err != nil {
		return nil, errors.NotFound("doctor", err)
	}
	return doctor, nil
}

// GetByUserID resolves the profile behind an authenticated doctor
// account. A doctor account without a profile row is reported
// explicitly rather than papered over.
func (s *Service) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Doctor, error) {
	doctor, err := s.doctors.GetByUserID(ctx, userID)
	if err != nil {
		return nil, errors.NotFound("doctor profile", err)
	}
	return doctor, nil
}

// List returns all doctors, the patient-facing browse view.
func (s *Service) List(ctx context.Context) ([]*model.Doctor, error) {
	doctors, err := s.doctors.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	return doctors, nil
}

// Update applies partial edits to the profile and its user row.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateDoctorRequest) (*model.Doctor, error) {
	doctor, err := s.doctors.Get(ctx, id)
	if err != nil {
		return nil, errors.NotFound("doctor", err)
	}

	if req.FirstName != nil || req.LastName != nil {
		user, err := s.users.Get(ctx, doctor.UserID)
		if err != nil {
			return nil, errors.NotFound("user", err)
		}
		if req.FirstName != nil {
			user.FirstName = *req.FirstName
		}
		if req.LastName != nil {
			user.LastName = *req.LastName
		}
		if err := s.users.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
		doctor.FirstName = user.FirstName
		doctor.LastName = user.LastName
	}

	if req.Specialty != nil {
		doctor.Specialty = *req.Specialty
	}
	if req.Phone != nil {
		doctor.Phone = *req.Phone
	}
	if req.Bio != nil {
		doctor.Bio = *req.Bio
	}
	if req.Rating != nil {
		doctor.Rating = *req.Rating
	}

	if err := s.doctors.Update(ctx, doctor); err != nil {
		return nil, fmt.Errorf("failed to update doctor: %w", err)
	}
	return doctor, nil
}

// Delete removes the doctor profile and its user account.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	doctor, err := s.doctors.Get(ctx, id)
	if err != nil {
		return errors.NotFound("doctor", err)
	}
	if err := s.doctors.Delete(ctx, doctor.ID); err != nil {
		return fmt.Errorf("failed to delete doctor: %w", err)
	}
	if err := s.users.Delete(ctx, doctor.UserID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}
