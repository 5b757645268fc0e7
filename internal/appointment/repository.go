package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrIntervalTaken is returned by the conditional insert when a
	// blocking appointment already overlaps the requested interval.
	ErrIntervalTaken = errors.New("interval already taken for this doctor")
)

// Repository contains all DB interactions needed by the scheduler. The
// appointment table is mutated exclusively through InsertScheduled and
// UpdateStatus; rows are never deleted.
type Repository interface {
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// InsertScheduled commits a new scheduled appointment with a
	// conditional write: the insert succeeds only if no blocking row
	// overlaps [start, start+duration) for the doctor, a guarantee the
	// store must enforce across concurrent transactions. This is the
	// single atomic commit point of a booking.
	InsertScheduled(ctx context.Context, doctorID, patientID uuid.UUID, start time.Time, durationMinutes int) (*Appointment, error)

	// UpdateStatus performs a compare-and-set on the current status so
	// concurrent transitions on the same row cannot both succeed.
	// Returns ErrAppointmentNotFound when no row matches id+from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)

	FindByDoctorAndDate(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]Appointment, error)
	FindByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
