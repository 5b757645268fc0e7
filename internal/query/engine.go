package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinic-scheduling/internal/fault"
	"github.com/clinicore/clinic-scheduling/internal/prescription"
)

const defaultLimit = 100

// Engine answers bounded queries against the two stores. It is
// read-only and never joins them server-side: appointments come from
// the relational store, prescriptions from the document store.
type Engine struct {
	pool          *pgxpool.Pool
	prescriptions prescription.Repository
}

func NewEngine(pool *pgxpool.Pool, prescriptions prescription.Repository) *Engine {
	return &Engine{pool: pool, prescriptions: prescriptions}
}

// Appointments runs the relational side of a query.
func (e *Engine) Appointments(ctx context.Context, c Criteria) ([]AppointmentView, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	sql, args := buildAppointmentQuery(c)

	rows, err := e.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fault.Wrap(fault.Unavailable, err, "query appointments")
	}
	defer rows.Close()

	var result []AppointmentView
	for rows.Next() {
		var v AppointmentView
		err := rows.Scan(
			&v.ID,
			&v.DoctorID,
			&v.DoctorName,
			&v.Specialty,
			&v.PatientID,
			&v.PatientName,
			&v.StartTime,
			&v.DurationMinutes,
			&v.Status,
		)
		if err != nil {
			return nil, fault.Wrap(fault.Unavailable, err, "scan appointment view")
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.Wrap(fault.Unavailable, err, "read appointment views")
	}

	return result, nil
}

// Prescriptions runs the document side of a query. Free text matches
// case-insensitively over medication and doctor notes; the date range
// applies to the creation timestamp.
func (e *Engine) Prescriptions(ctx context.Context, c Criteria) ([]prescription.Prescription, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	filter := prescription.SearchFilter{
		PatientNameContains: c.PatientNameContains,
		FreeText:            c.FreeText,
		CreatedFrom:         c.DateFrom,
		CreatedUntil:        c.DateUntil,
		Limit:               c.Limit,
	}
	for _, id := range c.AppointmentIDs {
		filter.AppointmentIDs = append(filter.AppointmentIDs, id.String())
	}

	result, err := e.prescriptions.Search(ctx, filter)
	if err != nil {
		return nil, fault.Wrap(fault.Unavailable, err, "query prescriptions")
	}
	return result, nil
}

// buildAppointmentQuery translates criteria into one parameterized
// statement. Kept separate from execution so the translation is
// testable without a database.
func buildAppointmentQuery(c Criteria) (string, []any) {
	var sb strings.Builder
	var args []any

	sb.WriteString(`
		SELECT a.id, a.doctor_id, d.name, d.specialty, a.patient_id, p.name, a.start_time, a.duration_minutes, a.status
		FROM appointments a
		JOIN doctors d ON d.id = a.doctor_id
		JOIN patients p ON p.id = a.patient_id
		WHERE 1=1`)

	add := func(clause string, value any) {
		args = append(args, value)
		sb.WriteString(fmt.Sprintf("\n\t\t  AND "+clause, len(args)))
	}

	if c.DoctorID != nil {
		add("a.doctor_id = $%d", *c.DoctorID)
	}
	if c.Specialty != "" {
		add("d.specialty = $%d", c.Specialty)
	}
	if c.PatientNameContains != "" {
		add("p.name ILIKE '%%' || $%d || '%%'", c.PatientNameContains)
	}
	if !c.DateFrom.IsZero() {
		add("a.start_time >= $%d", c.DateFrom)
	}
	if !c.DateUntil.IsZero() {
		add("a.start_time < $%d", c.DateUntil)
	}

	// The hour is taken in UTC, not the session TimeZone, so the AM/PM
	// split does not shift with connection settings.
	switch c.TimeOfDay {
	case TimeOfDayAM:
		sb.WriteString("\n\t\t  AND EXTRACT(HOUR FROM a.start_time AT TIME ZONE 'UTC') < 12")
	case TimeOfDayPM:
		sb.WriteString("\n\t\t  AND EXTRACT(HOUR FROM a.start_time AT TIME ZONE 'UTC') >= 12")
	}

	limit := c.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	args = append(args, limit)
	sb.WriteString(fmt.Sprintf("\n\t\tORDER BY a.start_time\n\t\tLIMIT $%d", len(args)))

	return sb.String(), args
}
