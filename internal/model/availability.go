package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TimeOfDayLayout is the wire/storage format for slot times.
const TimeOfDayLayout = "15:04"

// Availability is a doctor-defined bookable window. Either Date is set
// (one-off slot on a single calendar day) or Recurring is true and the
// slot renews weekly on DayOfWeek.
type Availability struct {
	Base
	DoctorID    uuid.UUID    `db:"doctor_id" json:"doctor_id"`
	DayOfWeek   time.Weekday `db:"day_of_week" json:"day_of_week"`
	StartTime   string       `db:"start_time" json:"start_time"`
	EndTime     string       `db:"end_time" json:"end_time"`
	Date        *time.Time   `db:"date" json:"date,omitempty"`
	Recurring   bool         `db:"recurring" json:"recurring"`
	IsAvailable bool         `db:"is_available" json:"is_available"`
}

// StartOn combines the slot's start time-of-day with the given date.
func (a *Availability) StartOn(date time.Time) (time.Time, error) {
	return atTimeOfDay(date, a.StartTime)
}

// EndOn combines the slot's end time-of-day with the given date.
func (a *Availability) EndOn(date time.Time) (time.Time, error) {
	return atTimeOfDay(date, a.EndTime)
}

// NextOccurrence returns the next date-time at which a recurring slot
// occurs, starting from now. If the slot's weekday is today but its start
// time has already passed, it rolls over to next week.
func (a *Availability) NextOccurrence(now time.Time) (time.Time, error) {
	daysAhead := int(a.DayOfWeek) - int(now.Weekday())
	if daysAhead < 0 {
		daysAhead += 7
	}

	next, err := atTimeOfDay(now.AddDate(0, 0, daysAhead), a.StartTime)
	if err != nil {
		return time.Time{}, err
	}
	if !next.After(now) {
		next = next.AddDate(0, 0, 7)
	}
	return next, nil
}

func atTimeOfDay(date time.Time, tod string) (time.Time, error) {
	t, err := time.Parse(TimeOfDayLayout, tod)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time of day %q: %w", tod, err)
	}
	return time.Date(date.Year(), date.Month(), date.Day(),
		t.Hour(), t.Minute(), 0, 0, date.Location()), nil
}

type CreateAvailabilityRequest struct {
	DayOfWeek time.Weekday `json:"day_of_week" binding:"min=0,max=6"`
	StartTime string       `json:"start_time" binding:"required"`
	EndTime   string       `json:"end_time" binding:"required"`
	Date      *time.Time   `json:"date"`
	Recurring bool         `json:"recurring"`
}

// QuickAddRequest creates a one-off slot from a concrete datetime pair,
// the way calendar drag-selection submits it.
type QuickAddRequest struct {
	Start time.Time `json:"start" binding:"required"`
	End   time.Time `json:"end" binding:"required,gtfield=Start"`
}
