package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/schedule"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// Blocking reports whether the status keeps the appointment's interval
// occupied for availability purposes.
func (s Status) Blocking() bool {
	return s == StatusScheduled || s == StatusCompleted
}

// CanTransition reports whether from -> to is a legal move. The only
// legal moves are scheduled -> completed | cancelled | no_show.
func CanTransition(from, to Status) bool {
	return from == StatusScheduled && to.Terminal()
}

const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
	RoleAdmin   = "admin"
)

// Actor is the verified identity behind a request, supplied by the
// authentication boundary. The scheduler trusts it as-is.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

type Doctor struct {
	ID          uuid.UUID
	Name        string
	Specialty   string
	Email       string
	Phone       *string
	SlotMinutes int
	Template    schedule.WeeklyTemplate
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	Phone     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Appointment struct {
	ID              uuid.UUID
	DoctorID        uuid.UUID
	PatientID       uuid.UUID
	StartTime       time.Time
	DurationMinutes int
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (a Appointment) EndTime() time.Time {
	return a.StartTime.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
