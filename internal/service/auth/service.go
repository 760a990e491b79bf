package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/clinicdesk/booking-api/internal/model"
	"github.com/clinicdesk/booking-api/internal/repository"
	"github.com/clinicdesk/booking-api/pkg/auth"
	"github.com/clinicdesk/booking-api/pkg/errors"
	"github.com/clinicdesk/booking-api/pkg/security"
)

// Service handles registration and token issuance.
type Service struct {
	tx       repository.TxRunner
	users    repository.UserRepository
	doctors  repository.DoctorRepository
	patients repository.PatientRepository
	hasher   security.PasswordHasher
	jwt      auth.JWTService
}

func NewService(
	tx repository.TxRunner,
	users repository.UserRepository,
	doctors repository.DoctorRepository,
	patients repository.PatientRepository,
	hasher security.PasswordHasher,
	jwt auth.JWTService,
) *Service {
	return &Service{
		tx:       tx,
		users:    users,
		doctors:  doctors,
		patients: patients,
		hasher:   hasher,
		jwt:      jwt,
	}
}

// Register creates the user account and its doctor or patient profile in
// one transaction.
func (s *Service) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
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
		Role:         req.Role,
	}

	err = s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.users.CreateTx(ctx, tx, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		switch req.Role {
		case model.RoleDoctor:
			doctor := &model.Doctor{
				UserID:    user.ID,
				Specialty: req.Specialty,
				Phone:     req.Phone,
				Bio:       req.Bio,
			}
			if err := s.doctors.CreateTx(ctx, tx, doctor); err != nil {
				return fmt.Errorf("failed to create doctor profile: %w", err)
			}
		case model.RolePatient:
			patient := &model.Patient{
				UserID:  user.ID,
				Phone:   req.Phone,
				Address: req.Address,
			}
			if err := s.patients.CreateTx(ctx, tx, patient); err != nil {
				return fmt.Errorf("failed to create patient profile: %w", err)
			}
		default:
			return errors.BadRequest("unsupported role", nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and returns an access/refresh token pair.
func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return nil, errors.Unauthorized("invalid email or password")
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		return nil, errors.Unauthorized("invalid email or password")
	}

	return s.issueTokens(user)
}

// Refresh exchanges a valid refresh token for a new token pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*model.TokenResponse, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, errors.Unauthorized("invalid refresh token")
	}

	user, err := s.users.Get(ctx, claims.UserID)
	if err != nil {
		return nil, errors.Unauthorized("account no longer exists")
	}

	return s.issueTokens(user)
}

func (s *Service) issueTokens(user *model.User) (*model.TokenResponse, error) {
	access, expiresAt, err := s.jwt.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, err := s.jwt.GenerateRefreshToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return &model.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
	}, nil
}
