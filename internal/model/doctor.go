package model

import "github.com/google/uuid"

type Doctor struct {
	Base
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Specialty string    `db:"specialty" json:"specialty"`
	Phone     string    `db:"phone" json:"phone"`
	Bio       string    `db:"bio" json:"bio"`
	Rating    float64   `db:"rating" json:"rating"`

	// Joined from users, read-only.
	FirstName string `db:"first_name" json:"first_name,omitempty"`
	LastName  string `db:"last_name" json:"last_name,omitempty"`
	Email     string `db:"email" json:"email,omitempty"`
}

type CreateDoctorRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Specialty string `json:"specialty" binding:"required"`
	Phone     string `json:"phone"`
	Bio       string `json:"bio"`
}

type UpdateDoctorRequest struct {
	FirstName *string  `json:"first_name"`
	LastName  *string  `json:"last_name"`
	Specialty *string  `json:"specialty"`
	Phone     *string  `json:"phone"`
	Bio       *string  `json:"bio"`
	Rating    *float64 `json:"rating"`
}
