package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTemplateSource struct {
	template    WeeklyTemplate
	slotMinutes int
}

func (f *fakeTemplateSource) DoctorSchedule(ctx context.Context, doctorID uuid.UUID) (WeeklyTemplate, int, error) {
	return f.template, f.slotMinutes, nil
}

type fakeBookingSource struct {
	bookings []Booking
}

func (f *fakeBookingSource) ActiveBookings(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]Booking, error) {
	return f.bookings, nil
}

// 2026-09-07 is a Monday
var monday = time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

func newResolver(bookings ...Booking) *Resolver {
	templates := &fakeTemplateSource{
		template: WeeklyTemplate{
			time.Monday: {{540, 720}}, // 09:00-12:00
		},
		slotMinutes: 60,
	}
	return NewResolver(templates, &fakeBookingSource{bookings: bookings})
}

func TestFreeSlotsAllOpen(t *testing.T) {
	r := newResolver()

	slots, err := r.FreeSlots(context.Background(), uuid.New(), monday)
	require.NoError(t, err)
	require.Len(t, slots, 3)

	for i := 1; i < len(slots); i++ {
		assert.True(t, slots[i-1].Start.Before(slots[i].Start), "slots must be ascending")
	}
}

func TestFreeSlotsSubtractsBookedIntervals(t *testing.T) {
	booked := Booking{Start: monday.Add(10 * time.Hour), DurationMinutes: 60}
	r := newResolver(booked)

	slots, err := r.FreeSlots(context.Background(), uuid.New(), monday)
	require.NoError(t, err)
	require.Len(t, slots, 2)

	for _, slot := range slots {
		assert.False(t, Overlaps(slot.Start, slot.DurationMinutes, booked.Start, booked.DurationMinutes))
	}
}

// A booking that only partially covers a slot still blocks the whole
// slot; the free set plus the booked overlaps must cover the template.
func TestFreeSlotsPartialOverlapBlocksSlot(t *testing.T) {
	booked := Booking{Start: monday.Add(9*time.Hour + 30*time.Minute), DurationMinutes: 60}
	r := newResolver(booked)

	slots, err := r.FreeSlots(context.Background(), uuid.New(), monday)
	require.NoError(t, err)

	// 09:00 and 10:00 both overlap 09:30-10:30; only 11:00 is free.
	require.Len(t, slots, 1)
	assert.Equal(t, monday.Add(11*time.Hour), slots[0].Start)
}

func TestFreeSlotsEmptyWhenFullyBooked(t *testing.T) {
	r := newResolver(
		Booking{Start: monday.Add(9 * time.Hour), DurationMinutes: 60},
		Booking{Start: monday.Add(10 * time.Hour), DurationMinutes: 60},
		Booking{Start: monday.Add(11 * time.Hour), DurationMinutes: 60},
	)

	slots, err := r.FreeSlots(context.Background(), uuid.New(), monday)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestFreeSlotsEmptyForOffDay(t *testing.T) {
	r := newResolver()

	sunday := monday.AddDate(0, 0, -1)
	slots, err := r.FreeSlots(context.Background(), uuid.New(), sunday)
	require.NoError(t, err)
	assert.Empty(t, slots)
	assert.NotNil(t, slots, "no offered slots is an empty result, not an error")
}

func TestFreeSlotsIdempotent(t *testing.T) {
	r := newResolver(Booking{Start: monday.Add(10 * time.Hour), DurationMinutes: 60})

	doctorID := uuid.New()
	first, err := r.FreeSlots(context.Background(), doctorID, monday)
	require.NoError(t, err)
	second, err := r.FreeSlots(context.Background(), doctorID, monday)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

// Free slots plus blocked template slots account for the whole
// template: nothing offered goes missing.
func TestFreeSlotsPartitionTemplate(t *testing.T) {
	booked := []Booking{
		{Start: monday.Add(9 * time.Hour), DurationMinutes: 60},
	}
	r := newResolver(booked...)

	free, err := r.FreeSlots(context.Background(), uuid.New(), monday)
	require.NoError(t, err)

	template := WeeklyTemplate{time.Monday: {{540, 720}}}
	offered := template.Expand(uuid.Nil, monday, 60)

	covered := 0
	for _, slot := range offered {
		isFree := false
		for _, f := range free {
			if f.Start.Equal(slot.Start) {
				isFree = true
				break
			}
		}
		isBlocked := false
		for _, b := range booked {
			if Overlaps(slot.Start, slot.DurationMinutes, b.Start, b.DurationMinutes) {
				isBlocked = true
				break
			}
		}
		assert.True(t, isFree != isBlocked, "slot %s must be exactly one of free or blocked", slot.Start)
		covered++
	}
	assert.Equal(t, len(offered), covered)
}
