package patient

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

// Service manages patient profiles and their backing user accounts.
type Service struct {
	tx       repository.TxRunner
	users    repository.UserRepository
	patients repository.PatientRepository
	hasher   security.PasswordHasher
}

func NewService(tx repository.TxRunner, users repository.UserRepository, patients repository.PatientRepository, hasher security.PasswordHasher) *Service {
	return &Service{tx: tx, users: users, patients: patients, hasher: hasher}
}

// Create provisions a patient account plus profile in one transaction.
// Admin-facing; self-service registration goes through the auth service.
func (s *Service) Create(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error) {
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
		Role:         model.RolePatient,
	}
	patient := &model.Patient{
		Phone:   req.Phone,
		Address: req.Address,
	}

	err = s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.users.CreateTx(ctx, tx, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		patient.UserID = user.ID
		if err := s.patients.CreateTx(ctx, tx, patient); err != nil {
			return fmt.Errorf("failed to create patient profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	patient.FirstName = user.FirstName
	patient.LastName = user.LastName
	patient.Email = user.Email
	return patient, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	patient, err := s.patients.Get(ctx, id)
	if err != nil {
		return nil, errors.NotFound("patient", err)
	}
	return patient, nil
}

func (s *Service) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Patient, error) {
	patient, err := s.patients.GetByUserID(ctx, userID)
	if err != nil {
		return nil, errors.NotFound("patient profile", err)
	}
	return patient, nil
}

func (s *Service) List(ctx context.Context) ([]*model.Patient, error) {
	patients, err := s.patients.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error) {
	patient, err := s.patients.Get(ctx, id)
	if err != nil {
		return nil, errors.NotFound("patient", err)
	}

	if req.FirstName != nil || req.LastName != nil {
		user, err := s.users.Get(ctx, patient.UserID)
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
		patient.FirstName = user.FirstName
		patient.LastName = user.LastName
	}

	if req.Phone != nil {
		patient.Phone = *req.Phone
	}
	if req.Address != nil {
		patient.Address = *req.Address
	}

	if err := s.patients.Update(ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}
	return patient, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	patient, err := s.patients.Get(ctx, id)
	if err != nil {
		return errors.NotFound("patient", err)
	}
	if err := s.patients.Delete(ctx, patient.ID); err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}
	if err := s.users.Delete(ctx, patient.UserID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}
