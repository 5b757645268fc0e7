package prescription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinic-scheduling/internal/appointment"
	"github.com/clinicore/clinic-scheduling/internal/clock"
	"github.com/clinicore/clinic-scheduling/internal/fault"
)

// Orphan is a prescription whose appointment reference no longer holds:
// the appointment is gone or has moved to cancelled/no-show since the
// prescription was attached.
type Orphan struct {
	PrescriptionID    string
	AppointmentID     string
	AppointmentStatus appointment.Status // empty when the appointment is missing
	DetectedAt        time.Time
}

// ReportSink receives detected orphans. Reports are append-only;
// clinical history is never deleted on the strength of a sweep.
type ReportSink interface {
	ReportOrphan(ctx context.Context, o Orphan) error
}

// Reconciler periodically re-checks every prescription-to-appointment
// reference. It closes the staleness window the link guard accepts:
// what the guard cannot prevent synchronously, the sweep reports.
type Reconciler struct {
	repo         Repository
	appointments AppointmentSource
	sink         ReportSink
	clock        clock.Clock
	log          zerolog.Logger
}

func NewReconciler(repo Repository, appointments AppointmentSource, sink ReportSink, clk clock.Clock, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		repo:         repo,
		appointments: appointments,
		sink:         sink,
		clock:        clk,
		log:          log.With().Str("component", "reconciler").Logger(),
	}
}

// Sweep walks all prescription references and reports every orphan.
// Returns the number of orphans found.
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	refs, err := r.repo.ListRefs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list prescription refs: %w", err)
	}

	orphans := 0
	for _, ref := range refs {
		orphan, ok, err := r.check(ctx, ref)
		if err != nil {
			r.log.Error().Err(err).
				Str("prescription_id", ref.PrescriptionID).
				Msg("reference check failed, skipping")
			continue
		}
		if !ok {
			continue
		}

		orphans++
		r.log.Warn().
			Err(fault.New(fault.Inconsistency, "prescription %s references appointment %s", orphan.PrescriptionID, orphan.AppointmentID)).
			Str("prescription_id", orphan.PrescriptionID).
			Str("appointment_id", orphan.AppointmentID).
			Str("appointment_status", string(orphan.AppointmentStatus)).
			Msg("prescription references an ineligible appointment")

		if err := r.sink.ReportOrphan(ctx, orphan); err != nil {
			r.log.Error().Err(err).
				Str("prescription_id", orphan.PrescriptionID).
				Msg("report orphan")
		}
	}

	return orphans, nil
}

func (r *Reconciler) check(ctx context.Context, ref Ref) (Orphan, bool, error) {
	apptID, err := uuid.Parse(ref.AppointmentID)
	if err != nil {
		// An unparseable reference can never resolve; report it.
		return Orphan{
			PrescriptionID: ref.PrescriptionID,
			AppointmentID:  ref.AppointmentID,
			DetectedAt:     r.clock.Now(),
		}, true, nil
	}

	appt, err := r.appointments.GetByID(ctx, apptID)
	if err != nil {
		if errors.Is(err, appointment.ErrAppointmentNotFound) {
			return Orphan{
				PrescriptionID: ref.PrescriptionID,
				AppointmentID:  ref.AppointmentID,
				DetectedAt:     r.clock.Now(),
			}, true, nil
		}
		return Orphan{}, false, err
	}

	if appt.Status.Blocking() {
		return Orphan{}, false, nil
	}

	return Orphan{
		PrescriptionID:    ref.PrescriptionID,
		AppointmentID:     ref.AppointmentID,
		AppointmentStatus: appt.Status,
		DetectedAt:        r.clock.Now(),
	}, true, nil
}
