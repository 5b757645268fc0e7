package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfUnwrapsChains(t *testing.T) {
	sentinel := errors.New("interval already booked")

	err := Wrap(Conflict, sentinel, "doctor %s", "d1")
	assert.Equal(t, Conflict, KindOf(err))
	assert.ErrorIs(t, err, sentinel)

	// classification survives further wrapping
	outer := fmt.Errorf("handle booking: %w", err)
	assert.Equal(t, Conflict, KindOf(outer))
	assert.ErrorIs(t, outer, sentinel)
}

func TestKindOfUnclassified(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestIsKind(t *testing.T) {
	err := New(Validation, "duration must be positive, got %d", -5)

	assert.True(t, IsKind(err, Validation))
	assert.False(t, IsKind(err, Conflict))
	assert.Equal(t, "duration must be positive, got -5", err.Error())
}

func TestWrapMessageIncludesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(Unavailable, cause, "load doctor")

	assert.Equal(t, "load doctor: connection refused", err.Error())
	assert.Equal(t, "load doctor", err.Reason())
	assert.Equal(t, cause, errors.Unwrap(err))
}
