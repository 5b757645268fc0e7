package prescription

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PgReportSink appends orphan reports to the relational
// inconsistency_reports table so they survive restarts and can be
// audited alongside the scheduling event log.
type PgReportSink struct {
	pool *pgxpool.Pool
}

func NewPgReportSink(pool *pgxpool.Pool) *PgReportSink {
	return &PgReportSink{pool: pool}
}

func (s *PgReportSink) ReportOrphan(ctx context.Context, o Orphan) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO inconsistency_reports (prescription_id, appointment_id, appointment_status, detected_at)
		VALUES ($1, $2, $3, $4)
	`, o.PrescriptionID, o.AppointmentID, string(o.AppointmentStatus), o.DetectedAt)
	if err != nil {
		return fmt.Errorf("insert inconsistency report: %w", err)
	}
	return nil
}
