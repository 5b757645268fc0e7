package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinic-scheduling/internal/clock"
	"github.com/clinicore/clinic-scheduling/internal/fault"
	redisclient "github.com/clinicore/clinic-scheduling/internal/redis"
	"github.com/clinicore/clinic-scheduling/internal/schedule"
)

const (
	EventAppointmentBooked = "APPOINTMENT_BOOKED"
	EventStatusChanged     = "APPOINTMENT_STATUS_CHANGED"
)

var (
	ErrInvalidSlot       = errors.New("requested interval is not inside a free slot")
	ErrSlotConflict      = errors.New("interval already booked for this doctor")
	ErrScheduleBusy      = errors.New("doctor schedule is currently being booked, please retry")
	ErrInvalidTransition = errors.New("illegal status transition")
	ErrForbidden         = errors.New("actor may not perform this transition")
)

// Service owns the appointment lifecycle. It is the only writer of
// appointment rows: bookings commit through a conditional insert and
// status changes through a compare-and-set.
type Service struct {
	repo      Repository
	locker    redisclient.Locker
	resolver  *schedule.Resolver
	clock     clock.Clock
	lookahead time.Duration
	log       zerolog.Logger
}

func NewService(repo Repository, locker redisclient.Locker, resolver *schedule.Resolver, clk clock.Clock, lookahead time.Duration, log zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		locker:    locker,
		resolver:  resolver,
		clock:     clk,
		lookahead: lookahead,
		log:       log.With().Str("component", "scheduler").Logger(),
	}
}

// FreeSlots returns the doctor's unbooked slots for a calendar day.
func (s *Service) FreeSlots(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]schedule.Slot, error) {
	return s.resolver.FreeSlots(ctx, doctorID, day)
}

// Book reserves an interval for a patient. Requests for the same doctor
// and day are serialized by a distributed lock; the conditional insert,
// backed by the appointments_no_overlap exclusion constraint, is the
// atomic commit point, so even a lock that expired mid-section cannot
// let two overlapping bookings both commit.
func (s *Service) Book(ctx context.Context, doctorID, patientID uuid.UUID, start time.Time, durationMinutes int) (*Appointment, error) {
	if durationMinutes <= 0 {
		return nil, fault.New(fault.Validation, "duration must be positive, got %d", durationMinutes)
	}
	now := s.clock.Now()
	if !start.After(now) {
		return nil, fault.New(fault.Validation, "appointment start %s is not in the future", start.Format(time.RFC3339))
	}
	if s.lookahead > 0 && start.After(now.Add(s.lookahead)) {
		return nil, fault.New(fault.Validation, "appointment start %s is beyond the booking window", start.Format(time.RFC3339))
	}

	if _, err := s.repo.GetPatientByID(ctx, patientID); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, fault.Wrap(fault.Integrity, err, "patient %s", patientID)
		}
		return nil, fault.Wrap(fault.Unavailable, err, "load patient")
	}

	doctor, err := s.repo.GetDoctorByID(ctx, doctorID)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, fault.Wrap(fault.Integrity, err, "doctor %s", doctorID)
		}
		return nil, fault.Wrap(fault.Unavailable, err, "load doctor")
	}

	day := schedule.DayOf(start)

	// Conflicts are judged before slot shape: an interval overlapping a
	// committed booking reads as a conflict, not a vanished slot. This
	// read is advisory; the conditional insert below is the authority
	// when two bookings race past it.
	existing, err := s.repo.FindByDoctorAndDate(ctx, doctorID, day)
	if err != nil {
		return nil, fault.Wrap(fault.Unavailable, err, "load bookings")
	}
	for _, a := range existing {
		if a.Status.Blocking() && schedule.Overlaps(a.StartTime, a.DurationMinutes, start, durationMinutes) {
			return nil, fault.Wrap(fault.Conflict, ErrSlotConflict,
				"doctor %s interval at %s", doctorID, start.Format(time.RFC3339))
		}
	}

	// The interval must sit inside a slot the doctor offers that day.
	offered := doctor.Template.Expand(doctorID, day, doctor.SlotMinutes)
	contained := false
	for _, slot := range offered {
		if slot.Contains(start, durationMinutes) {
			contained = true
			break
		}
	}
	if !contained {
		return nil, fault.Wrap(fault.Integrity, ErrInvalidSlot,
			"doctor %s offers no slot containing %s+%dm", doctorID, start.Format(time.RFC3339), durationMinutes)
	}

	var created *Appointment

	err = s.locker.WithDoctorDayLock(ctx, doctorID, day, func(lockCtx context.Context) error {
		appt, err := s.repo.InsertScheduled(lockCtx, doctorID, patientID, start, durationMinutes)
		if err != nil {
			if errors.Is(err, ErrIntervalTaken) {
				return fault.Wrap(fault.Conflict, ErrSlotConflict,
					"doctor %s interval at %s", doctorID, start.Format(time.RFC3339))
			}
			return fault.Wrap(fault.Unavailable, err, "commit booking")
		}

		created = appt

		s.logEvent(lockCtx, appt.ID, EventAppointmentBooked, map[string]any{
			"doctor_id":        doctorID.String(),
			"patient_id":       patientID.String(),
			"start_time":       start,
			"duration_minutes": durationMinutes,
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, fault.Wrap(fault.Conflict, ErrScheduleBusy, "doctor %s day %s", doctorID, day.Format("2006-01-02"))
		}
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", created.ID.String()).
		Str("doctor_id", doctorID.String()).
		Time("start", start).
		Msg("appointment booked")

	return created, nil
}

// Transition moves an appointment along the status state machine.
// scheduled is the only non-terminal state; completed, cancelled and
// no_show reject every further move.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, target Status, actor Actor) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, fault.Wrap(fault.Integrity, err, "appointment %s", id)
		}
		return nil, fault.Wrap(fault.Unavailable, err, "load appointment")
	}

	if !CanTransition(appt.Status, target) {
		return nil, fault.Wrap(fault.Integrity, ErrInvalidTransition, "%s -> %s", appt.Status, target)
	}
	if err := authorizeTransition(appt, target, actor); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateStatus(ctx, id, appt.Status, target)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// The compare-and-set missed: a concurrent transition won.
			return nil, fault.Wrap(fault.Conflict, ErrInvalidTransition, "appointment %s changed concurrently", id)
		}
		return nil, fault.Wrap(fault.Unavailable, err, "update status")
	}

	s.logEvent(ctx, updated.ID, EventStatusChanged, map[string]any{
		"from":       string(appt.Status),
		"to":         string(target),
		"actor_id":   actor.UserID.String(),
		"actor_role": actor.Role,
	})

	s.log.Info().
		Str("appointment_id", id.String()).
		Str("from", string(appt.Status)).
		Str("to", string(target)).
		Msg("appointment status changed")

	return updated, nil
}

// authorizeTransition enforces who may drive which move: patients may
// cancel their own appointments; doctors may complete, cancel or mark
// no-show on their own; admins may do anything.
func authorizeTransition(appt *Appointment, target Status, actor Actor) error {
	if actor.Role == RoleAdmin {
		return nil
	}

	switch target {
	case StatusCancelled:
		if actor.Role == RolePatient && actor.UserID == appt.PatientID {
			return nil
		}
		if actor.Role == RoleDoctor && actor.UserID == appt.DoctorID {
			return nil
		}
	case StatusCompleted, StatusNoShow:
		if actor.Role == RoleDoctor && actor.UserID == appt.DoctorID {
			return nil
		}
	}

	return fault.Wrap(fault.Integrity, ErrForbidden, "%s %s on appointment %s", actor.Role, target, appt.ID)
}

// GetByID is the read path the link guard validates against.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, fault.Wrap(fault.Integrity, err, "appointment %s", id)
		}
		return nil, fault.Wrap(fault.Unavailable, err, "load appointment")
	}
	return appt, nil
}

func (s *Service) FindByDoctorAndDate(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]Appointment, error) {
	appts, err := s.repo.FindByDoctorAndDate(ctx, doctorID, day)
	if err != nil {
		return nil, fmt.Errorf("find by doctor and date: %w", err)
	}
	return appts, nil
}

func (s *Service) FindByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	if limit <= 0 {
		limit = 20 // default
	}
	if limit > 100 {
		limit = 100 // max
	}
	if offset < 0 {
		offset = 0
	}

	appts, err := s.repo.FindByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("find by patient: %w", err)
	}
	return appts, nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("event_type", eventType).Msg("marshal event payload")
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.clock.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Error().Err(err).
			Str("event_type", eventType).
			Str("appointment_id", appointmentID.String()).
			Msg("insert event log")
	}
}
