package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// TimeRange is an offered working window within a day, in minutes from
// midnight. Half-open: a 09:00-10:00 range ends exactly at 10:00.
type TimeRange struct {
	StartMinute int
	EndMinute   int
}

func (r TimeRange) String() string {
	return m2t(r.StartMinute) + "-" + m2t(r.EndMinute)
}

func m2t(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

var rangePattern = regexp.MustCompile(`^(\d{2}):(\d{2})-(\d{2}):(\d{2})$`)

// ParseRange parses an offered window in "HH:MM-HH:MM" form.
func ParseRange(s string) (TimeRange, error) {
	m := rangePattern.FindStringSubmatch(s)
	if m == nil {
		return TimeRange{}, fmt.Errorf("time range %q: want HH:MM-HH:MM", s)
	}

	parts := make([]int, 4)
	for i := 0; i < 4; i++ {
		parts[i], _ = strconv.Atoi(m[i+1])
	}
	if parts[0] > 23 || parts[2] > 23 || parts[1] > 59 || parts[3] > 59 {
		return TimeRange{}, fmt.Errorf("time range %q: out of range", s)
	}

	r := TimeRange{
		StartMinute: parts[0]*60 + parts[1],
		EndMinute:   parts[2]*60 + parts[3],
	}
	if r.StartMinute >= r.EndMinute {
		return TimeRange{}, fmt.Errorf("time range %q: start must precede end", s)
	}
	return r, nil
}

// WeeklyTemplate maps each weekday to the doctor's ordered offered
// windows. Days with no entry offer nothing.
type WeeklyTemplate map[time.Weekday][]TimeRange

// Validate checks that every day's windows are sorted and disjoint.
func (t WeeklyTemplate) Validate() error {
	for day, ranges := range t {
		for i, r := range ranges {
			if r.StartMinute >= r.EndMinute {
				return fmt.Errorf("%s window %s: start must precede end", day, r)
			}
			if i > 0 && ranges[i-1].EndMinute > r.StartMinute {
				return fmt.Errorf("%s windows %s and %s overlap or are out of order", day, ranges[i-1], r)
			}
		}
	}
	return nil
}

// Expand produces the concrete slots a template offers on a given day,
// cut into fixed-length pieces of slotMinutes. A trailing remainder
// shorter than slotMinutes is not offered.
func (t WeeklyTemplate) Expand(doctorID uuid.UUID, day time.Time, slotMinutes int) []Slot {
	if slotMinutes <= 0 {
		return nil
	}

	dayStart := DayOf(day)
	ranges := t[dayStart.Weekday()]

	var slots []Slot
	for _, r := range ranges {
		for m := r.StartMinute; m+slotMinutes <= r.EndMinute; m += slotMinutes {
			slots = append(slots, Slot{
				DoctorID:        doctorID,
				Start:           dayStart.Add(time.Duration(m) * time.Minute),
				DurationMinutes: slotMinutes,
			})
		}
	}
	return slots
}
