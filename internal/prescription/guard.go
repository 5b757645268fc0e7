package prescription

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinic-scheduling/internal/appointment"
	"github.com/clinicore/clinic-scheduling/internal/clock"
	"github.com/clinicore/clinic-scheduling/internal/fault"
)

var (
	ErrAppointmentNotEligible = errors.New("appointment is cancelled or no-show")
	ErrAlreadyAttached        = errors.New("a prescription already exists for this appointment")
)

// AppointmentSource is the scheduler read path the guard validates
// references against.
type AppointmentSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
}

// Guard enforces cross-store referential integrity: a prescription
// document may only be created against an existing appointment that is
// scheduled or completed. There is no transaction spanning the two
// stores; the guard checks the relational side, then writes the
// document. An appointment cancelled inside that window is caught later
// by the reconciler, not prevented here.
type Guard struct {
	appointments AppointmentSource
	repo         Repository
	clock        clock.Clock
	log          zerolog.Logger
}

func NewGuard(appointments AppointmentSource, repo Repository, clk clock.Clock, log zerolog.Logger) *Guard {
	return &Guard{
		appointments: appointments,
		repo:         repo,
		clock:        clk,
		log:          log.With().Str("component", "link_guard").Logger(),
	}
}

// Attach validates the referenced appointment and writes the document.
// The write happens strictly after the check so a failed write never
// leaves relational state to compensate.
func (g *Guard) Attach(ctx context.Context, appointmentID uuid.UUID, payload AttachPayload) (*Prescription, error) {
	if err := validateAttach(payload); err != nil {
		return nil, err
	}

	appt, err := g.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !appt.Status.Blocking() {
		return nil, fault.Wrap(fault.Integrity, ErrAppointmentNotEligible,
			"appointment %s is %s", appointmentID, appt.Status)
	}

	// One prescription per appointment is policy, not an index; the
	// guard is the gate.
	existing, err := g.repo.GetByAppointment(ctx, appointmentID.String())
	if err != nil && !errors.Is(err, ErrPrescriptionNotFound) {
		return nil, fault.Wrap(fault.Unavailable, err, "check existing prescription")
	}
	if existing != nil {
		return nil, fault.Wrap(fault.Integrity, ErrAlreadyAttached, "appointment %s", appointmentID)
	}

	now := g.clock.Now()
	p := Prescription{
		ID:            uuid.NewString(),
		AppointmentID: appointmentID.String(),
		PatientName:   strings.TrimSpace(payload.PatientName),
		Medication:    strings.TrimSpace(payload.Medication),
		Dosage:        strings.TrimSpace(payload.Dosage),
		DoctorNotes:   payload.DoctorNotes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := g.repo.Insert(ctx, p); err != nil {
		return nil, fault.Wrap(fault.Unavailable, err, "write prescription")
	}

	g.log.Info().
		Str("prescription_id", p.ID).
		Str("appointment_id", appointmentID.String()).
		Msg("prescription attached")

	return &p, nil
}

// Update amends dosage, medication or notes. The appointment reference
// was validated at creation time and is deliberately not re-checked.
func (g *Guard) Update(ctx context.Context, id string, payload UpdatePayload) (*Prescription, error) {
	if payload.Medication == nil && payload.Dosage == nil && payload.DoctorNotes == nil {
		return nil, fault.New(fault.Validation, "update carries no fields")
	}
	if payload.Medication != nil && strings.TrimSpace(*payload.Medication) == "" {
		return nil, fault.New(fault.Validation, "medication must not be blank")
	}
	if payload.Dosage != nil && strings.TrimSpace(*payload.Dosage) == "" {
		return nil, fault.New(fault.Validation, "dosage must not be blank")
	}

	p, err := g.repo.UpdateDetails(ctx, id, payload, g.clock.Now())
	if err != nil {
		if errors.Is(err, ErrPrescriptionNotFound) {
			return nil, fault.Wrap(fault.Integrity, err, "prescription %s", id)
		}
		return nil, fault.Wrap(fault.Unavailable, err, "update prescription")
	}
	return p, nil
}

// GetByAppointment is the read path for callers bridging the stores.
func (g *Guard) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Prescription, error) {
	p, err := g.repo.GetByAppointment(ctx, appointmentID.String())
	if err != nil {
		if errors.Is(err, ErrPrescriptionNotFound) {
			return nil, fault.Wrap(fault.Integrity, err, "appointment %s", appointmentID)
		}
		return nil, fault.Wrap(fault.Unavailable, err, "load prescription")
	}
	return p, nil
}

func validateAttach(payload AttachPayload) error {
	if strings.TrimSpace(payload.PatientName) == "" {
		return fault.New(fault.Validation, "patient name is required")
	}
	if strings.TrimSpace(payload.Medication) == "" {
		return fault.New(fault.Validation, "medication is required")
	}
	if strings.TrimSpace(payload.Dosage) == "" {
		return fault.New(fault.Validation, "dosage is required")
	}
	return nil
}
