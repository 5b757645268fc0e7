package schedule

import (
	"time"

	"github.com/google/uuid"
)

// Slot is a candidate bookable interval derived from a doctor's weekly
// template. Slots have no stored lifecycle; they are recomputed on
// every availability query.
type Slot struct {
	DoctorID        uuid.UUID `json:"doctor_id"`
	Start           time.Time `json:"start"`
	DurationMinutes int       `json:"duration_minutes"`
}

func (s Slot) End() time.Time {
	return s.Start.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// Contains reports whether the interval [start, start+duration) lies
// fully inside the slot.
func (s Slot) Contains(start time.Time, durationMinutes int) bool {
	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	return !start.Before(s.Start) && !end.After(s.End())
}

// Overlaps reports whether two half-open intervals intersect.
// Back-to-back intervals do not overlap.
func Overlaps(aStart time.Time, aMinutes int, bStart time.Time, bMinutes int) bool {
	aEnd := aStart.Add(time.Duration(aMinutes) * time.Minute)
	bEnd := bStart.Add(time.Duration(bMinutes) * time.Minute)
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// DayOf truncates t to midnight in its own location.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
