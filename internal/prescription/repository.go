package prescription

import (
	"context"
	"errors"
	"time"
)

var (
	ErrPrescriptionNotFound = errors.New("prescription not found")
)

// SearchFilter narrows document-store reads. Zero values impose no
// constraint; supplied fields combine with logical AND.
type SearchFilter struct {
	AppointmentIDs      []string
	PatientNameContains string
	FreeText            string // case-insensitive substring over medication and doctor notes
	CreatedFrom         time.Time
	CreatedUntil        time.Time
	Limit               int
}

// Repository contains all document-store interactions. Prescriptions
// are inserted once, amended through UpdateDetails, and never deleted.
type Repository interface {
	Insert(ctx context.Context, p Prescription) error
	GetByID(ctx context.Context, id string) (*Prescription, error)
	GetByAppointment(ctx context.Context, appointmentID string) (*Prescription, error)
	UpdateDetails(ctx context.Context, id string, payload UpdatePayload, now time.Time) (*Prescription, error)
	Search(ctx context.Context, filter SearchFilter) ([]Prescription, error)

	// ListRefs streams every prescription-to-appointment reference for
	// the reconciliation sweep.
	ListRefs(ctx context.Context) ([]Ref, error)
}
