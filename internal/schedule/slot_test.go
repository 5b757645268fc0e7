package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestOverlapsHalfOpen(t *testing.T) {
	base := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		aStart   time.Time
		aMinutes int
		bStart   time.Time
		bMinutes int
		want     bool
	}{
		{"identical", base, 30, base, 30, true},
		{"partial overlap", base, 30, base.Add(15 * time.Minute), 30, true},
		{"contained", base, 60, base.Add(15 * time.Minute), 15, true},
		{"back to back", base, 30, base.Add(30 * time.Minute), 30, false},
		{"disjoint", base, 30, base.Add(2 * time.Hour), 30, false},
		{"b before a back to back", base, 30, base.Add(-30 * time.Minute), 30, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Overlaps(tt.aStart, tt.aMinutes, tt.bStart, tt.bMinutes)
			assert.Equal(t, tt.want, got)

			// overlap is symmetric
			assert.Equal(t, tt.want, Overlaps(tt.bStart, tt.bMinutes, tt.aStart, tt.aMinutes))
		})
	}
}

func TestSlotContains(t *testing.T) {
	slot := Slot{
		DoctorID:        uuid.New(),
		Start:           time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC),
		DurationMinutes: 60,
	}

	assert.True(t, slot.Contains(slot.Start, 60))
	assert.True(t, slot.Contains(slot.Start, 30))
	assert.True(t, slot.Contains(slot.Start.Add(30*time.Minute), 30))
	assert.False(t, slot.Contains(slot.Start.Add(45*time.Minute), 30))
	assert.False(t, slot.Contains(slot.Start.Add(-15*time.Minute), 30))
	assert.False(t, slot.Contains(slot.Start, 90))
}

func TestDayOf(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}
	ts := time.Date(2026, 9, 7, 18, 45, 12, 999, loc)
	day := DayOf(ts)

	assert.Equal(t, time.Date(2026, 9, 7, 0, 0, 0, 0, loc), day)
	assert.Equal(t, loc, day.Location())
}
