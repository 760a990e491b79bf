package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
)

// CanTransitionTo reports whether the status machine allows moving to
// next. Cancelled and Completed are terminal.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	switch s {
	case AppointmentStatusPending:
		return next == AppointmentStatusConfirmed || next == AppointmentStatusCancelled
	case AppointmentStatusConfirmed:
		return next == AppointmentStatusCompleted || next == AppointmentStatusCancelled
	}
	return false
}

func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentStatusCancelled || s == AppointmentStatusCompleted
}

type Appointment struct {
	Base
	DoctorID       uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	PatientID      uuid.UUID         `db:"patient_id" json:"patient_id"`
	AvailabilityID *uuid.UUID        `db:"availability_id" json:"availability_id,omitempty"`
	StartTime      time.Time         `db:"start_time" json:"start_time"`
	EndTime        time.Time         `db:"end_time" json:"end_time"`
	Status         AppointmentStatus `db:"status" json:"status"`
	Reference      string            `db:"reference" json:"reference"`

	// Joined display fields, read-only.
	DoctorName  string `db:"doctor_name" json:"doctor_name,omitempty"`
	PatientName string `db:"patient_name" json:"patient_name,omitempty"`
}

type BookingRequest struct {
	DoctorID       uuid.UUID `json:"doctor_id" binding:"required"`
	AvailabilityID uuid.UUID `json:"availability_id" binding:"required"`
}

type RescheduleRequest struct {
	Status    *AppointmentStatus `json:"status"`
	StartTime *time.Time         `json:"start_time"`
}

type AppointmentFilters struct {
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	Status    AppointmentStatus
	Date      *time.Time
	Search    string
}

// StatusCount is a count aggregation row used by reporting.
type StatusCount struct {
	Status AppointmentStatus `db:"status" json:"status"`
	Count  int64             `db:"count" json:"count"`
}

// MonthCount is a per-month count aggregation row used by reporting.
type MonthCount struct {
	Month time.Time `db:"month" json:"month"`
	Count int64     `db:"count" json:"count"`
}
