package query

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/appointment"
	"github.com/clinicore/clinic-scheduling/internal/fault"
)

type TimeOfDay string

const (
	TimeOfDayAll TimeOfDay = "ALL"
	TimeOfDayAM  TimeOfDay = "AM" // start hour < 12
	TimeOfDayPM  TimeOfDay = "PM" // start hour >= 12
)

// Criteria is a bounded query configuration. Omitted options impose no
// constraint; supplied options combine with logical AND. The two
// stores are queried independently: AppointmentIDs lets a caller
// narrow prescriptions by the ids a relational query returned.
type Criteria struct {
	DoctorID            *uuid.UUID
	PatientNameContains string
	Specialty           string
	TimeOfDay           TimeOfDay
	DateFrom            time.Time
	DateUntil           time.Time
	FreeText            string
	AppointmentIDs      []uuid.UUID
	Limit               int
}

func (c Criteria) validate() error {
	switch c.TimeOfDay {
	case "", TimeOfDayAll, TimeOfDayAM, TimeOfDayPM:
	default:
		return fault.New(fault.Validation, "time of day %q: want AM, PM or ALL", c.TimeOfDay)
	}
	if !c.DateFrom.IsZero() && !c.DateUntil.IsZero() && c.DateUntil.Before(c.DateFrom) {
		return fault.New(fault.Validation, "date range ends before it starts")
	}
	return nil
}

// AppointmentView is a read model joining the appointment row with the
// doctor and patient names the filters match against.
type AppointmentView struct {
	ID              uuid.UUID          `json:"id"`
	DoctorID        uuid.UUID          `json:"doctor_id"`
	DoctorName      string             `json:"doctor_name"`
	Specialty       string             `json:"specialty"`
	PatientID       uuid.UUID          `json:"patient_id"`
	PatientName     string             `json:"patient_name"`
	StartTime       time.Time          `json:"start_time"`
	DurationMinutes int                `json:"duration_minutes"`
	Status          appointment.Status `json:"status"`
}
