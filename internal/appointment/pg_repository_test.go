package appointment

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

// A booking that loses the race at commit time surfaces as an
// exclusion_violation from appointments_no_overlap; it must be read as
// a taken interval, not a storage failure.
func TestOverlapViolationDetection(t *testing.T) {
	exclusion := &pgconn.PgError{
		Code:           "23P01",
		ConstraintName: "appointments_no_overlap",
	}

	assert.True(t, isOverlapViolation(exclusion))
	assert.True(t, isOverlapViolation(fmt.Errorf("insert appointment: %w", exclusion)))

	assert.False(t, isOverlapViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isOverlapViolation(errors.New("connection reset")))
	assert.False(t, isOverlapViolation(nil))
}
