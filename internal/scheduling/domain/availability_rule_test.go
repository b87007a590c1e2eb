package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAvailabilityRule(t *testing.T) {
	memberID := uuid.New()

	t.Run("valid rule", func(t *testing.T) {
		rule, err := NewAvailabilityRule(memberID, time.Monday, 9*time.Hour, 17*time.Hour, true)
		require.NoError(t, err)

		assert.Equal(t, memberID, rule.MemberID())
		assert.Equal(t, time.Monday, rule.Weekday())
		assert.Equal(t, 9*time.Hour, rule.Start())
		assert.Equal(t, 17*time.Hour, rule.End())
		assert.True(t, rule.IsAvailable())
	})

	t.Run("end before start", func(t *testing.T) {
		_, err := NewAvailabilityRule(memberID, time.Monday, 17*time.Hour, 9*time.Hour, true)
		assert.ErrorIs(t, err, ErrRuleInvalidWindow)
	})

	t.Run("start out of range", func(t *testing.T) {
		_, err := NewAvailabilityRule(memberID, time.Monday, 25*time.Hour, 26*time.Hour, true)
		assert.ErrorIs(t, err, ErrRuleInvalidClock)
	})

	t.Run("invalid weekday", func(t *testing.T) {
		_, err := NewAvailabilityRule(memberID, time.Weekday(9), 9*time.Hour, 17*time.Hour, true)
		assert.ErrorIs(t, err, ErrRuleInvalidWeekday)
	})
}

func TestAvailabilityRule_Window(t *testing.T) {
	memberID := uuid.New()
	rule, err := NewAvailabilityRule(memberID, time.Monday, 9*time.Hour, 17*time.Hour, true)
	require.NoError(t, err)

	t.Run("UTC", func(t *testing.T) {
		date := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC) // a Monday
		start, end := rule.Window(date, time.UTC)

		assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC), end)
	})

	t.Run("New York winter offset", func(t *testing.T) {
		loc, err := time.LoadLocation("America/New_York")
		require.NoError(t, err)

		date := time.Date(2026, 3, 2, 12, 0, 0, 0, loc)
		start, end := rule.Window(date, loc)

		// EST is UTC-5, so 09:00 local is 14:00 UTC.
		assert.Equal(t, time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2026, 3, 2, 22, 0, 0, 0, time.UTC), end)
	})

	t.Run("DST spring forward keeps the wall clock", func(t *testing.T) {
		loc, err := time.LoadLocation("America/New_York")
		require.NoError(t, err)

		// 2026-03-08: clocks jump from 02:00 EST to 03:00 EDT. Nine elapsed
		// hours after midnight would land on 10:00 local; the rule means
		// 09:00 local regardless.
		date := time.Date(2026, 3, 8, 12, 0, 0, 0, loc)
		start, end := rule.Window(date, loc)

		// EDT is UTC-4.
		assert.Equal(t, time.Date(2026, 3, 8, 13, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2026, 3, 8, 21, 0, 0, 0, time.UTC), end)
	})

	t.Run("DST fall back keeps the wall clock", func(t *testing.T) {
		loc, err := time.LoadLocation("America/New_York")
		require.NoError(t, err)

		// 2026-11-01: clocks fall back, the day has 25 hours.
		date := time.Date(2026, 11, 1, 12, 0, 0, 0, loc)
		start, _ := rule.Window(date, loc)

		// EST is UTC-5.
		assert.Equal(t, time.Date(2026, 11, 1, 14, 0, 0, 0, time.UTC), start)
	})
}

func TestAvailabilityRule_HalfHourOffsets(t *testing.T) {
	rule, err := NewAvailabilityRule(uuid.New(), time.Monday, 9*time.Hour+30*time.Minute, 17*time.Hour, true)
	require.NoError(t, err)

	start, _ := rule.Window(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), time.UTC)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC), start)
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{"09:00", 9 * time.Hour, false},
		{"17:30", 17*time.Hour + 30*time.Minute, false},
		{"00:00", 0, false},
		{"23:59", 23*time.Hour + 59*time.Minute, false},
		{"9am", 0, true},
		{"25:00", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseClock(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "09:00", FormatClock(9*time.Hour))
	assert.Equal(t, "17:30", FormatClock(17*time.Hour+30*time.Minute))
	assert.Equal(t, "00:00", FormatClock(0))
}
