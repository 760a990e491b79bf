package model

import (
	"time"

	"github.com/google/uuid"
)

type Prescription struct {
	Base
	AppointmentID uuid.UUID `db:"appointment_id" json:"appointment_id"`
	DoctorID      uuid.UUID `db:"doctor_id" json:"doctor_id"`
	FileName      string    `db:"file_name" json:"file_name"`
	Notes         string    `db:"notes" json:"notes,omitempty"`
	UploadedAt    time.Time `db:"uploaded_at" json:"uploaded_at"`
}
