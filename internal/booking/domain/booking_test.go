package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBooking(t *testing.T) *Booking {
	t.Helper()
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	b, err := NewBooking(
		uuid.New(), uuid.New(), nil,
		Invitee{Name: "Grace", Email: "grace@example.com"},
		start, start.Add(30*time.Minute),
		"America/New_York", "looking forward to it",
	)
	require.NoError(t, err)
	return b
}

func TestNewBooking(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		b := newTestBooking(t)

		assert.Equal(t, StatusConfirmed, b.Status())
		assert.True(t, b.IsConfirmed())
		assert.Equal(t, "grace@example.com", b.Invitee().Email)
		assert.Equal(t, "America/New_York", b.Timezone())
		assert.NotEmpty(t, b.ManageToken())
		assert.Nil(t, b.CalendarEventID())
		assert.Nil(t, b.ReminderSentAt())

		events := b.DomainEvents()
		require.Len(t, events, 1)
		created, ok := events[0].(*BookingCreated)
		require.True(t, ok)
		assert.Equal(t, b.ID(), created.BookingID)
		assert.Equal(t, "booking.booking.created", created.RoutingKey())
	})

	t.Run("end before start", func(t *testing.T) {
		start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
		_, err := NewBooking(uuid.New(), uuid.New(), nil,
			Invitee{Name: "Grace", Email: "grace@example.com"},
			start, start.Add(-time.Minute), "UTC", "")
		assert.ErrorIs(t, err, ErrBookingInvalidWindow)
	})

	t.Run("zero length window", func(t *testing.T) {
		start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
		_, err := NewBooking(uuid.New(), uuid.New(), nil,
			Invitee{Name: "Grace", Email: "grace@example.com"},
			start, start, "UTC", "")
		assert.ErrorIs(t, err, ErrBookingInvalidWindow)
	})

	t.Run("invalid invitee email", func(t *testing.T) {
		start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
		_, err := NewBooking(uuid.New(), uuid.New(), nil,
			Invitee{Name: "Grace", Email: "not-an-email"},
			start, start.Add(30*time.Minute), "UTC", "")
		assert.ErrorIs(t, err, ErrBookingInvalidInvitee)
	})

	t.Run("times are stored in UTC", func(t *testing.T) {
		loc, err := time.LoadLocation("America/New_York")
		require.NoError(t, err)
		start := time.Date(2026, 3, 2, 10, 0, 0, 0, loc)

		b, err := NewBooking(uuid.New(), uuid.New(), nil,
			Invitee{Name: "Grace", Email: "grace@example.com"},
			start, start.Add(30*time.Minute), "America/New_York", "")
		require.NoError(t, err)

		assert.Equal(t, time.UTC, b.StartTime().Location())
		assert.Equal(t, start.UTC(), b.StartTime())
	})
}

func TestBooking_Cancel(t *testing.T) {
	b := newTestBooking(t)
	b.ClearDomainEvents()

	require.NoError(t, b.Cancel())
	assert.Equal(t, StatusCancelled, b.Status())
	assert.False(t, b.IsConfirmed())

	events := b.DomainEvents()
	require.Len(t, events, 1)
	_, ok := events[0].(*BookingCancelled)
	assert.True(t, ok)

	t.Run("cancelled is terminal", func(t *testing.T) {
		b.ClearDomainEvents()
		err := b.Cancel()
		assert.ErrorIs(t, err, ErrBookingCancelled)
		// No second cancellation event.
		assert.Empty(t, b.DomainEvents())
	})
}

func TestBooking_Reschedule(t *testing.T) {
	t.Run("moves the window", func(t *testing.T) {
		b := newTestBooking(t)
		token := b.ManageToken()
		member := b.TeamMemberID()
		b.MarkReminderSent(time.Now())
		b.ClearDomainEvents()

		newStart := time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC)
		require.NoError(t, b.Reschedule(newStart, newStart.Add(30*time.Minute)))

		assert.Equal(t, newStart, b.StartTime())
		// Token and member survive the move, the reminder flag does not.
		assert.Equal(t, token, b.ManageToken())
		assert.Equal(t, member, b.TeamMemberID())
		assert.Nil(t, b.ReminderSentAt())

		events := b.DomainEvents()
		require.Len(t, events, 1)
		moved, ok := events[0].(*BookingRescheduled)
		require.True(t, ok)
		assert.Equal(t, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), moved.PreviousStart)
		assert.Equal(t, newStart, moved.StartTime)
	})

	t.Run("cancelled booking cannot move", func(t *testing.T) {
		b := newTestBooking(t)
		require.NoError(t, b.Cancel())

		newStart := time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC)
		err := b.Reschedule(newStart, newStart.Add(30*time.Minute))
		assert.ErrorIs(t, err, ErrBookingNotConfirmed)
	})

	t.Run("invalid window", func(t *testing.T) {
		b := newTestBooking(t)
		newStart := time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC)
		err := b.Reschedule(newStart, newStart)
		assert.ErrorIs(t, err, ErrBookingInvalidWindow)
	})
}

func TestBooking_MarkReminderSent(t *testing.T) {
	b := newTestBooking(t)
	b.ClearDomainEvents()

	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	b.MarkReminderSent(at)

	require.NotNil(t, b.ReminderSentAt())
	assert.Equal(t, at, *b.ReminderSentAt())

	events := b.DomainEvents()
	require.Len(t, events, 1)
	due, ok := events[0].(*BookingReminderDue)
	require.True(t, ok)
	assert.Equal(t, b.ID(), due.BookingID)
}

func TestBooking_SetCalendarEventID(t *testing.T) {
	b := newTestBooking(t)

	eventID := "evt_123"
	b.SetCalendarEventID(&eventID)
	require.NotNil(t, b.CalendarEventID())
	assert.Equal(t, "evt_123", *b.CalendarEventID())

	b.SetCalendarEventID(nil)
	assert.Nil(t, b.CalendarEventID())
}

func TestRehydrateBooking(t *testing.T) {
	id := uuid.New()
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	createdAt := start.Add(-24 * time.Hour)
	token, err := NewManageToken()
	require.NoError(t, err)

	b := RehydrateBooking(
		id, uuid.New(), uuid.New(), nil,
		Invitee{Name: "Grace", Email: "grace@example.com"},
		start, start.Add(30*time.Minute), "UTC", "",
		StatusConfirmed, token, nil, nil,
		createdAt, createdAt,
	)

	assert.Equal(t, id, b.ID())
	assert.Equal(t, token, b.ManageToken())
	assert.Equal(t, createdAt, b.CreatedAt())
	// Rehydration replays no events.
	assert.Empty(t, b.DomainEvents())
}
