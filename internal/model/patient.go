package model

import "github.com/google/uuid"

type Patient struct {
	Base
	UserID  uuid.UUID `db:"user_id" json:"user_id"`
	Phone   string    `db:"phone" json:"phone"`
	Address string    `db:"address" json:"address"`

	// Joined from users, read-only.
	FirstName string `db:"first_name" json:"first_name,omitempty"`
	LastName  string `db:"last_name" json:"last_name,omitempty"`
	Email     string `db:"email" json:"email,omitempty"`
}

type CreatePatientRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

type UpdatePatientRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	Address   *string `json:"address"`
}
