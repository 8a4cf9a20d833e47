package checkday

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_BeforeRolloverBelongsToPreviousDay(t *testing.T) {
	now := time.Date(2024, 3, 10, 2, 0, 0, 0, Zone)

	day, err := Resolve(now)
	require.NoError(t, err)

	assert.Equal(t, "2024-03-09", day.Label)
	assert.Equal(t, time.Date(2024, 3, 8, 23, 0, 0, 0, time.UTC), day.Start)
	assert.Equal(t, time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC), day.End)
}

func TestResolve_Table(t *testing.T) {
	tests := []struct {
		name  string
		now   time.Time
		label string
	}{
		{name: "exactly rollover", now: time.Date(2024, 3, 10, 6, 0, 0, 0, Zone), label: "2024-03-10"},
		{name: "one second before rollover", now: time.Date(2024, 3, 10, 5, 59, 59, 0, Zone), label: "2024-03-09"},
		{name: "local midnight", now: time.Date(2024, 3, 10, 0, 0, 0, 0, Zone), label: "2024-03-09"},
		{name: "late evening", now: time.Date(2024, 3, 10, 23, 30, 0, 0, Zone), label: "2024-03-10"},
		{name: "utc input", now: time.Date(2024, 3, 9, 22, 59, 0, 0, time.UTC), label: "2024-03-09"},
		{name: "utc input after rollover", now: time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC), label: "2024-03-10"},
		{name: "month boundary", now: time.Date(2024, 3, 1, 4, 0, 0, 0, Zone), label: "2024-02-29"},
		{name: "year boundary", now: time.Date(2025, 1, 1, 1, 0, 0, 0, Zone), label: "2024-12-31"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			day, err := Resolve(tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.label, day.Label)
			assert.Equal(t, 24*time.Hour, day.End.Sub(day.Start))

			start := day.Start.In(Zone)
			assert.Equal(t, RolloverHour, start.Hour())
			assert.Equal(t, 0, start.Minute())
			assert.Equal(t, tt.label, start.Format(LabelLayout))
			assert.True(t, day.Contains(tt.now))
		})
	}
}

func TestResolve_PartitionIsStable(t *testing.T) {
	base := time.Date(2024, 6, 1, 6, 0, 0, 0, Zone)
	first, err := Resolve(base)
	require.NoError(t, err)

	for offset := time.Duration(0); offset < 24*time.Hour; offset += 17 * time.Minute {
		day, err := Resolve(base.Add(offset))
		require.NoError(t, err)
		assert.Equal(t, first, day)
	}

	next, err := Resolve(base.Add(24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, first.End, next.Start)
}

func TestResolve_ZeroTime(t *testing.T) {
	_, err := Resolve(time.Time{})
	assert.ErrorIs(t, err, ErrInvalidInstant)
}

func TestForDate(t *testing.T) {
	day, err := ForDate("2024-03-09")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 8, 23, 0, 0, 0, time.UTC), day.Start)

	_, err = ForDate("09/03/2024")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestContainsIsHalfOpen(t *testing.T) {
	day, err := ForDate("2024-03-09")
	require.NoError(t, err)

	assert.True(t, day.Contains(day.Start))
	assert.False(t, day.Contains(day.End))
	assert.False(t, day.Contains(day.Start.Add(-time.Nanosecond)))
}

func TestFormatLocal(t *testing.T) {
	ts := time.Date(2024, 3, 9, 4, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-09 11:00:00", FormatLocal(ts))
}
