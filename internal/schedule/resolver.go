package schedule

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Booking is a committed interval that blocks availability.
type Booking struct {
	Start           time.Time
	DurationMinutes int
}

// TemplateSource supplies a doctor's weekly offered windows and slot
// length. Backed by the doctor-profile rows in the relational store.
type TemplateSource interface {
	DoctorSchedule(ctx context.Context, doctorID uuid.UUID) (WeeklyTemplate, int, error)
}

// BookingSource supplies the intervals that currently block a doctor's
// availability (scheduled and completed appointments).
type BookingSource interface {
	ActiveBookings(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]Booking, error)
}

// Resolver computes free slots by subtracting booked intervals from
// the doctor's template. Side-effect free; safe to call concurrently
// and speculatively.
type Resolver struct {
	templates TemplateSource
	bookings  BookingSource
}

func NewResolver(templates TemplateSource, bookings BookingSource) *Resolver {
	return &Resolver{templates: templates, bookings: bookings}
}

// FreeSlots returns the doctor's unbooked slots for the given calendar
// day, ascending by start time. An empty result is not an error: the
// doctor may offer nothing that weekday, or everything may be booked.
func (r *Resolver) FreeSlots(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]Slot, error) {
	template, slotMinutes, err := r.templates.DoctorSchedule(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("load doctor schedule: %w", err)
	}

	offered := template.Expand(doctorID, day, slotMinutes)
	if len(offered) == 0 {
		return []Slot{}, nil
	}

	booked, err := r.bookings.ActiveBookings(ctx, doctorID, DayOf(day))
	if err != nil {
		return nil, fmt.Errorf("load booked intervals: %w", err)
	}

	free := make([]Slot, 0, len(offered))
	for _, slot := range offered {
		blocked := false
		for _, b := range booked {
			if Overlaps(slot.Start, slot.DurationMinutes, b.Start, b.DurationMinutes) {
				blocked = true
				break
			}
		}
		if !blocked {
			free = append(free, slot)
		}
	}

	sort.Slice(free, func(i, j int) bool { return free[i].Start.Before(free[j].Start) })
	return free, nil
}
