package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	calendarApp "github.com/slotwise/slotwise/internal/calendar/application"
	"github.com/slotwise/slotwise/internal/scheduling/domain"
)

type stubRuleRepo struct {
	rules map[time.Weekday]*domain.AvailabilityRule
	err   error
}

func (r *stubRuleRepo) Save(ctx context.Context, rule *domain.AvailabilityRule) error { return nil }

func (r *stubRuleRepo) FindByMember(ctx context.Context, memberID uuid.UUID) ([]*domain.AvailabilityRule, error) {
	return nil, nil
}

func (r *stubRuleRepo) FindByMemberAndWeekday(ctx context.Context, memberID uuid.UUID, weekday time.Weekday) (*domain.AvailabilityRule, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.rules[weekday], nil
}

type stubFreeBusy struct {
	busy []calendarApp.BusyInterval
	err  error

	gotStart time.Time
	gotEnd   time.Time
	calls    int
}

func (f *stubFreeBusy) FreeBusy(ctx context.Context, member *domain.TeamMember, start, end time.Time) ([]calendarApp.BusyInterval, error) {
	f.calls++
	f.gotStart = start
	f.gotEnd = end
	if f.err != nil {
		return nil, f.err
	}
	return f.busy, nil
}

// monday is a Monday at noon UTC, comfortably inside the test window.
var monday = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func newTestMember(t *testing.T) *domain.TeamMember {
	t.Helper()
	member, err := domain.NewTeamMember("Ada", "ada@example.com", domain.ProviderGoogle, "")
	require.NoError(t, err)
	return member
}

func newTestEventType(t *testing.T, duration, before, after, notice time.Duration) *domain.EventType {
	t.Helper()
	et, err := domain.NewEventType("intro", "Intro", duration, before, after, notice, nil, 60)
	require.NoError(t, err)
	return et
}

func mondayRule(t *testing.T, member *domain.TeamMember, start, end time.Duration) *stubRuleRepo {
	t.Helper()
	rule, err := domain.NewAvailabilityRule(member.ID(), time.Monday, start, end, true)
	require.NoError(t, err)
	return &stubRuleRepo{rules: map[time.Weekday]*domain.AvailabilityRule{time.Monday: rule}}
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestSlotGenerator_Generate(t *testing.T) {
	ctx := context.Background()
	member := newTestMember(t)

	t.Run("fills the window at fixed granularity", func(t *testing.T) {
		rules := mondayRule(t, member, 9*time.Hour, 17*time.Hour)
		freeBusy := &stubFreeBusy{}
		gen := NewSlotGenerator(rules, freeBusy, nil).
			WithClock(fixedClock(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)))

		et := newTestEventType(t, time.Hour, 0, 0, 0)
		slots, err := gen.Generate(ctx, member, et, monday, "UTC")
		require.NoError(t, err)

		// 09:00 through 16:00 inclusive, every 15 minutes.
		require.Len(t, slots, 29)
		assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), slots[0].Start)
		assert.Equal(t, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), slots[0].End)
		assert.Equal(t, time.Date(2026, 3, 2, 16, 0, 0, 0, time.UTC), slots[len(slots)-1].Start)
	})

	t.Run("no rule means no slots", func(t *testing.T) {
		rules := &stubRuleRepo{rules: map[time.Weekday]*domain.AvailabilityRule{}}
		gen := NewSlotGenerator(rules, &stubFreeBusy{}, nil)

		et := newTestEventType(t, 30*time.Minute, 0, 0, 0)
		slots, err := gen.Generate(ctx, member, et, monday, "UTC")
		require.NoError(t, err)
		assert.Empty(t, slots)
	})

	t.Run("unavailable rule means no slots", func(t *testing.T) {
		rule, err := domain.NewAvailabilityRule(member.ID(), time.Monday, 9*time.Hour, 17*time.Hour, false)
		require.NoError(t, err)
		rules := &stubRuleRepo{rules: map[time.Weekday]*domain.AvailabilityRule{time.Monday: rule}}
		gen := NewSlotGenerator(rules, &stubFreeBusy{}, nil)

		et := newTestEventType(t, 30*time.Minute, 0, 0, 0)
		slots, err := gen.Generate(ctx, member, et, monday, "UTC")
		require.NoError(t, err)
		assert.Empty(t, slots)
	})

	t.Run("busy interval excludes buffered overlaps", func(t *testing.T) {
		rules := mondayRule(t, member, 9*time.Hour, 17*time.Hour)
		freeBusy := &stubFreeBusy{busy: []calendarApp.BusyInterval{{
			Start: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
			End:   time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC),
		}}}
		gen := NewSlotGenerator(rules, freeBusy, nil).
			WithClock(fixedClock(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)))

		// 30m meetings padded by 15m before and 5m after.
		et := newTestEventType(t, 30*time.Minute, 15*time.Minute, 5*time.Minute, 0)
		slots, err := gen.Generate(ctx, member, et, monday, "UTC")
		require.NoError(t, err)

		starts := make(map[string]bool, len(slots))
		for _, slot := range slots {
			starts[slot.Start.Format("15:04")] = true
		}

		// 09:15 pads to 09:00-09:50, clear of the busy block.
		assert.True(t, starts["09:15"])
		// 09:45 pads to 09:30-10:20, colliding with 10:00-10:30.
		assert.False(t, starts["09:45"])
		assert.False(t, starts["10:00"])
		assert.False(t, starts["10:15"])
		// 10:30 pads to 10:15-11:05, still colliding.
		assert.False(t, starts["10:30"])
		// 10:45 pads to 10:30-11:20, exactly clear of the busy block's end.
		assert.True(t, starts["10:45"])
	})

	t.Run("single free busy query spans the buffered window", func(t *testing.T) {
		rules := mondayRule(t, member, 9*time.Hour, 17*time.Hour)
		freeBusy := &stubFreeBusy{}
		gen := NewSlotGenerator(rules, freeBusy, nil).
			WithClock(fixedClock(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)))

		et := newTestEventType(t, 30*time.Minute, 15*time.Minute, 5*time.Minute, 0)
		_, err := gen.Generate(ctx, member, et, monday, "UTC")
		require.NoError(t, err)

		assert.Equal(t, 1, freeBusy.calls)
		assert.Equal(t, time.Date(2026, 3, 2, 8, 45, 0, 0, time.UTC), freeBusy.gotStart)
		assert.Equal(t, time.Date(2026, 3, 2, 17, 5, 0, 0, time.UTC), freeBusy.gotEnd)
	})

	t.Run("minimum notice pushes the first slot out", func(t *testing.T) {
		rules := mondayRule(t, member, 9*time.Hour, 17*time.Hour)
		gen := NewSlotGenerator(rules, &stubFreeBusy{}, nil).
			WithClock(fixedClock(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)))

		et := newTestEventType(t, 30*time.Minute, 0, 0, 4*time.Hour)
		slots, err := gen.Generate(ctx, member, et, monday, "UTC")
		require.NoError(t, err)

		require.NotEmpty(t, slots)
		assert.Equal(t, time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC), slots[0].Start)
	})

	t.Run("start rounds up to the next boundary", func(t *testing.T) {
		rules := mondayRule(t, member, 9*time.Hour, 17*time.Hour)
		gen := NewSlotGenerator(rules, &stubFreeBusy{}, nil).
			WithClock(fixedClock(time.Date(2026, 3, 2, 10, 7, 0, 0, time.UTC)))

		et := newTestEventType(t, 30*time.Minute, 0, 0, 0)
		slots, err := gen.Generate(ctx, member, et, monday, "UTC")
		require.NoError(t, err)

		require.NotEmpty(t, slots)
		assert.Equal(t, time.Date(2026, 3, 2, 10, 15, 0, 0, time.UTC), slots[0].Start)
	})

	t.Run("last slot still fits inside the window", func(t *testing.T) {
		rules := mondayRule(t, member, 9*time.Hour, 17*time.Hour)
		gen := NewSlotGenerator(rules, &stubFreeBusy{}, nil).
			WithClock(fixedClock(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)))

		et := newTestEventType(t, 30*time.Minute, 0, 0, 0)
		slots, err := gen.Generate(ctx, member, et, monday, "UTC")
		require.NoError(t, err)

		require.NotEmpty(t, slots)
		last := slots[len(slots)-1]
		assert.Equal(t, time.Date(2026, 3, 2, 16, 30, 0, 0, time.UTC), last.Start)
		assert.Equal(t, time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC), last.End)
	})

	t.Run("fails closed when free busy is unanswerable", func(t *testing.T) {
		rules := mondayRule(t, member, 9*time.Hour, 17*time.Hour)
		freeBusy := &stubFreeBusy{err: calendarApp.ErrNoFreeBusyData}
		gen := NewSlotGenerator(rules, freeBusy, nil).
			WithClock(fixedClock(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)))

		et := newTestEventType(t, 30*time.Minute, 0, 0, 0)
		slots, err := gen.Generate(ctx, member, et, monday, "UTC")
		require.NoError(t, err)
		assert.Empty(t, slots)
	})

	t.Run("other free busy errors surface", func(t *testing.T) {
		rules := mondayRule(t, member, 9*time.Hour, 17*time.Hour)
		freeBusy := &stubFreeBusy{err: errors.New("connection refused")}
		gen := NewSlotGenerator(rules, freeBusy, nil).
			WithClock(fixedClock(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)))

		et := newTestEventType(t, 30*time.Minute, 0, 0, 0)
		_, err := gen.Generate(ctx, member, et, monday, "UTC")
		assert.Error(t, err)
	})

	t.Run("unknown timezone", func(t *testing.T) {
		rules := mondayRule(t, member, 9*time.Hour, 17*time.Hour)
		gen := NewSlotGenerator(rules, &stubFreeBusy{}, nil)

		et := newTestEventType(t, 30*time.Minute, 0, 0, 0)
		_, err := gen.Generate(ctx, member, et, monday, "Mars/Olympus_Mons")
		assert.ErrorIs(t, err, ErrUnknownTimezone)
	})

	t.Run("window is interpreted in the requested timezone", func(t *testing.T) {
		rules := mondayRule(t, member, 9*time.Hour, 17*time.Hour)
		gen := NewSlotGenerator(rules, &stubFreeBusy{}, nil).
			WithClock(fixedClock(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)))

		et := newTestEventType(t, 30*time.Minute, 0, 0, 0)
		slots, err := gen.Generate(ctx, member, et, monday, "America/New_York")
		require.NoError(t, err)

		// 09:00 EST is 14:00 UTC.
		require.NotEmpty(t, slots)
		assert.Equal(t, time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC), slots[0].Start.UTC())
	})

	t.Run("same inputs produce the same slots", func(t *testing.T) {
		rules := mondayRule(t, member, 9*time.Hour, 17*time.Hour)
		freeBusy := &stubFreeBusy{busy: []calendarApp.BusyInterval{{
			Start: time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC),
			End:   time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
		}}}
		gen := NewSlotGenerator(rules, freeBusy, nil).
			WithClock(fixedClock(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)))

		et := newTestEventType(t, 30*time.Minute, 0, 0, 0)
		first, err := gen.Generate(ctx, member, et, monday, "UTC")
		require.NoError(t, err)
		second, err := gen.Generate(ctx, member, et, monday, "UTC")
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})
}

func TestRoundUpToGranularity(t *testing.T) {
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, base, roundUpToGranularity(base))
	assert.Equal(t, base.Add(15*time.Minute), roundUpToGranularity(base.Add(time.Minute)))
	assert.Equal(t, base.Add(15*time.Minute), roundUpToGranularity(base.Add(14*time.Minute+59*time.Second)))
	assert.Equal(t, base.Add(15*time.Minute), roundUpToGranularity(base.Add(15*time.Minute)))
}
