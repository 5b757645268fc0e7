package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeRange
		wantErr bool
	}{
		{"09:00-10:00", TimeRange{540, 600}, false},
		{"00:00-23:59", TimeRange{0, 1439}, false},
		{"13:30-17:00", TimeRange{810, 1020}, false},
		{"9:00-10:00", TimeRange{}, true},
		{"10:00-09:00", TimeRange{}, true},
		{"09:00-09:00", TimeRange{}, true},
		{"25:00-26:00", TimeRange{}, true},
		{"09:61-10:00", TimeRange{}, true},
		{"garbage", TimeRange{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRange(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWeeklyTemplateValidate(t *testing.T) {
	valid := WeeklyTemplate{
		time.Monday: {{540, 720}, {780, 1020}},
		time.Friday: {{540, 600}},
	}
	assert.NoError(t, valid.Validate())

	overlapping := WeeklyTemplate{
		time.Monday: {{540, 720}, {700, 1020}},
	}
	assert.Error(t, overlapping.Validate())

	outOfOrder := WeeklyTemplate{
		time.Monday: {{780, 1020}, {540, 720}},
	}
	assert.Error(t, outOfOrder.Validate())
}

func TestExpand(t *testing.T) {
	doctorID := uuid.New()
	template := WeeklyTemplate{
		time.Monday: {{540, 720}, {780, 840}}, // 09:00-12:00, 13:00-14:00
	}

	// 2026-09-07 is a Monday
	monday := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

	slots := template.Expand(doctorID, monday, 60)
	require.Len(t, slots, 4)

	wantStarts := []time.Time{
		monday.Add(9 * time.Hour),
		monday.Add(10 * time.Hour),
		monday.Add(11 * time.Hour),
		monday.Add(13 * time.Hour),
	}
	for i, slot := range slots {
		assert.Equal(t, wantStarts[i], slot.Start)
		assert.Equal(t, 60, slot.DurationMinutes)
		assert.Equal(t, doctorID, slot.DoctorID)
	}
}

func TestExpandDropsShortRemainder(t *testing.T) {
	template := WeeklyTemplate{
		time.Monday: {{540, 630}}, // 09:00-10:30
	}
	monday := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

	slots := template.Expand(uuid.New(), monday, 60)
	require.Len(t, slots, 1)
	assert.Equal(t, monday.Add(9*time.Hour), slots[0].Start)
}

func TestExpandEmptyForOffDay(t *testing.T) {
	template := WeeklyTemplate{
		time.Monday: {{540, 720}},
	}
	// 2026-09-06 is a Sunday
	sunday := time.Date(2026, 9, 6, 0, 0, 0, 0, time.UTC)

	assert.Empty(t, template.Expand(uuid.New(), sunday, 60))
}
