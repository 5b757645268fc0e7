package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinic-scheduling/internal/schedule"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var email, phone *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&email,
		&phone,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	p.Email = email
	p.Phone = phone
	return &p, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.PatientID,
		&a.StartTime,
		&a.DurationMinutes,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

const appointmentColumns = `id, doctor_id, patient_id, start_time, duration_minutes, status, created_at, updated_at`

// Interface methods

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	var d Doctor
	var phone *string

	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty, email, phone, slot_minutes, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	err := row.Scan(&d.ID, &d.Name, &d.Specialty, &d.Email, &phone, &d.SlotMinutes, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	d.Phone = phone

	template, err := r.loadTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Template = template

	return &d, nil
}

func (r *PgRepository) loadTemplate(ctx context.Context, doctorID uuid.UUID) (schedule.WeeklyTemplate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT weekday, start_minute, end_minute
		FROM doctor_availability
		WHERE doctor_id = $1
		ORDER BY weekday, start_minute
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	template := make(schedule.WeeklyTemplate)
	for rows.Next() {
		var weekday, startMin, endMin int
		if err := rows.Scan(&weekday, &startMin, &endMin); err != nil {
			return nil, err
		}
		day := time.Weekday(weekday)
		template[day] = append(template[day], schedule.TimeRange{
			StartMinute: startMin,
			EndMinute:   endMin,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Rows come back ordered; a template that still fails validation
	// means the availability table holds overlapping windows.
	if err := template.Validate(); err != nil {
		return nil, fmt.Errorf("doctor %s availability: %w", doctorID, err)
	}

	return template, nil
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, phone, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) InsertScheduled(ctx context.Context, doctorID, patientID uuid.UUID, start time.Time, durationMinutes int) (*Appointment, error) {
	id := uuid.New()
	end := start.Add(time.Duration(durationMinutes) * time.Minute)

	// The NOT EXISTS guard turns an already-visible overlap into a clean
	// no-rows result. Two racing inserts can each miss the other in
	// their snapshots; the appointments_no_overlap exclusion constraint
	// then rejects the second committer, which surfaces as SQLSTATE
	// 23P01 and is mapped to the same ErrIntervalTaken.
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, doctor_id, patient_id, start_time, duration_minutes, status, created_at, updated_at)
		SELECT $1, $2, $3, $4, $5, 'scheduled', now(), now()
		WHERE NOT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $2
			  AND status IN ('scheduled', 'completed')
			  AND start_time < $6
			  AND start_time + make_interval(mins => duration_minutes) > $4
		)
		RETURNING `+appointmentColumns+`
	`, id, doctorID, patientID, start, durationMinutes, end)

	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) || isOverlapViolation(err) {
			return nil, ErrIntervalTaken
		}
		return nil, err
	}
	return appt, nil
}

// exclusion_violation, raised by appointments_no_overlap
const exclusionViolationCode = "23P01"

func isOverlapViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == exclusionViolationCode
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, to, from)

	return scanAppointment(row)
}

func (r *PgRepository) FindByDoctorAndDate(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]Appointment, error) {
	dayStart := schedule.DayOf(day)
	dayEnd := dayStart.Add(24 * time.Hour)

	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND start_time >= $2
		  AND start_time < $3
		ORDER BY start_time
	`, doctorID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *PgRepository) FindByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY start_time DESC
		LIMIT $2 OFFSET $3
	`, patientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	return err
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// schedule source adapters

// DoctorSchedule implements schedule.TemplateSource.
func (r *PgRepository) DoctorSchedule(ctx context.Context, doctorID uuid.UUID) (schedule.WeeklyTemplate, int, error) {
	d, err := r.GetDoctorByID(ctx, doctorID)
	if err != nil {
		return nil, 0, err
	}
	return d.Template, d.SlotMinutes, nil
}

// ActiveBookings implements schedule.BookingSource. It returns every
// blocking interval that touches the given day, including spill-over
// from adjacent days.
func (r *PgRepository) ActiveBookings(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]schedule.Booking, error) {
	dayStart := schedule.DayOf(day)
	dayEnd := dayStart.Add(24 * time.Hour)

	rows, err := r.pool.Query(ctx, `
		SELECT start_time, duration_minutes
		FROM appointments
		WHERE doctor_id = $1
		  AND status IN ('scheduled', 'completed')
		  AND start_time < $3
		  AND start_time + make_interval(mins => duration_minutes) > $2
		ORDER BY start_time
	`, doctorID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []schedule.Booking
	for rows.Next() {
		var b schedule.Booking
		if err := rows.Scan(&b.Start, &b.DurationMinutes); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return bookings, nil
}
