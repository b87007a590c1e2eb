package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookingApp "github.com/slotwise/slotwise/internal/booking/application"
	"github.com/slotwise/slotwise/internal/booking/domain"
	calendarApp "github.com/slotwise/slotwise/internal/calendar/application"
	schedulingDomain "github.com/slotwise/slotwise/internal/scheduling/domain"
)

var testNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func testEventType(t *testing.T) *schedulingDomain.EventType {
	t.Helper()
	et, err := schedulingDomain.NewEventType("intro", "Intro Call", 30*time.Minute, 0, 0, 0, nil, 60)
	require.NoError(t, err)
	return et
}

func testMember(t *testing.T) *schedulingDomain.TeamMember {
	t.Helper()
	m, err := schedulingDomain.NewTeamMember("Ada", "ada@example.com", schedulingDomain.ProviderGoogle, "")
	require.NoError(t, err)
	return m
}

type createFixture struct {
	handler      *CreateBookingHandler
	bookings     *fakeBookingRepo
	members      *stubMembers
	availability *stubAvailability
	calendar     *fakeCalendar
	outboxRepo   *fakeOutbox
	uow          *noopUnitOfWork
}

func newCreateFixture(t *testing.T, et *schedulingDomain.EventType, member *schedulingDomain.TeamMember) *createFixture {
	t.Helper()

	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	f := &createFixture{
		bookings: newFakeBookingRepo(),
		members:  &stubMembers{claimed: member},
		availability: &stubAvailability{slots: []schedulingDomain.TimeSlot{{
			Start:              start,
			End:                start.Add(30 * time.Minute),
			AvailableMemberIDs: []uuid.UUID{member.ID()},
		}}},
		calendar:   &fakeCalendar{createResult: &calendarApp.EventResult{EventID: "evt_1", JoinLink: "https://meet.example/abc"}},
		outboxRepo: &fakeOutbox{},
		uow:        &noopUnitOfWork{},
	}
	f.handler = NewCreateBookingHandler(
		f.bookings, newStubEventTypes(et), f.members, f.availability,
		f.calendar, f.outboxRepo, f.uow, nil,
	).WithClock(func() time.Time { return testNow })
	return f
}

func validCommand() CreateBookingCommand {
	return CreateBookingCommand{
		EventTypeSlug: "intro",
		StartTime:     time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		Timezone:      "UTC",
		InviteeName:   "Grace",
		InviteeEmail:  "grace@example.com",
	}
}

func TestCreateBookingHandler_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("books the slot", func(t *testing.T) {
		et := testEventType(t)
		member := testMember(t)
		f := newCreateFixture(t, et, member)

		result, err := f.handler.Handle(ctx, validCommand())
		require.NoError(t, err)

		require.NotNil(t, result.Booking)
		assert.Equal(t, member.ID(), result.Booking.TeamMemberID())
		assert.Equal(t, domain.StatusConfirmed, result.Booking.Status())
		assert.True(t, result.CalendarSynced)
		assert.Equal(t, "https://meet.example/abc", result.JoinLink)
		require.NotNil(t, result.Booking.CalendarEventID())
		assert.Equal(t, "evt_1", *result.Booking.CalendarEventID())

		// The claim ran against the pool the availability view returned.
		assert.Equal(t, []uuid.UUID{member.ID()}, f.members.claimedPool)
		assert.Equal(t, testNow, f.members.claimedAt)

		// Domain events went to the outbox inside the transaction.
		assert.Equal(t, 1, f.outboxRepo.messageCount())
		assert.Empty(t, result.Booking.DomainEvents())
		assert.Equal(t, 1, f.uow.commits)
	})

	t.Run("unknown timezone", func(t *testing.T) {
		f := newCreateFixture(t, testEventType(t), testMember(t))
		cmd := validCommand()
		cmd.Timezone = "Mars/Olympus_Mons"

		_, err := f.handler.Handle(ctx, cmd)
		assert.ErrorIs(t, err, bookingApp.ErrValidation)
	})

	t.Run("invalid invitee email", func(t *testing.T) {
		f := newCreateFixture(t, testEventType(t), testMember(t))
		cmd := validCommand()
		cmd.InviteeEmail = "not-an-email"

		_, err := f.handler.Handle(ctx, cmd)
		assert.ErrorIs(t, err, bookingApp.ErrValidation)
	})

	t.Run("unknown event type", func(t *testing.T) {
		f := newCreateFixture(t, testEventType(t), testMember(t))
		cmd := validCommand()
		cmd.EventTypeSlug = "missing"

		_, err := f.handler.Handle(ctx, cmd)
		assert.ErrorIs(t, err, bookingApp.ErrNotFound)
	})

	t.Run("start in the past", func(t *testing.T) {
		f := newCreateFixture(t, testEventType(t), testMember(t))
		cmd := validCommand()
		cmd.StartTime = testNow.Add(-time.Hour)

		_, err := f.handler.Handle(ctx, cmd)
		assert.ErrorIs(t, err, bookingApp.ErrValidation)
	})

	t.Run("start beyond the advance window", func(t *testing.T) {
		f := newCreateFixture(t, testEventType(t), testMember(t))
		cmd := validCommand()
		cmd.StartTime = testNow.AddDate(0, 0, 61)

		_, err := f.handler.Handle(ctx, cmd)
		assert.ErrorIs(t, err, bookingApp.ErrValidation)
	})

	t.Run("slot no longer offered", func(t *testing.T) {
		f := newCreateFixture(t, testEventType(t), testMember(t))
		f.availability.slots = nil

		_, err := f.handler.Handle(ctx, validCommand())
		assert.ErrorIs(t, err, bookingApp.ErrSlotUnavailable)
		assert.Empty(t, f.bookings.saved)
	})

	t.Run("claim loses the race", func(t *testing.T) {
		f := newCreateFixture(t, testEventType(t), testMember(t))
		f.members.claimed = nil

		_, err := f.handler.Handle(ctx, validCommand())
		assert.ErrorIs(t, err, bookingApp.ErrSlotUnavailable)
		assert.Equal(t, 1, f.uow.rollbacks)
		assert.Zero(t, f.outboxRepo.messageCount())
	})

	t.Run("daily cap reached", func(t *testing.T) {
		dailyCap := 2
		et, err := schedulingDomain.NewEventType("intro", "Intro Call", 30*time.Minute, 0, 0, 0, &dailyCap, 60)
		require.NoError(t, err)
		f := newCreateFixture(t, et, testMember(t))
		f.bookings.dayCount = 2

		_, err = f.handler.Handle(ctx, validCommand())
		assert.ErrorIs(t, err, bookingApp.ErrSlotUnavailable)
	})

	t.Run("daily cap with room left", func(t *testing.T) {
		dailyCap := 2
		et, err := schedulingDomain.NewEventType("intro", "Intro Call", 30*time.Minute, 0, 0, 0, &dailyCap, 60)
		require.NoError(t, err)
		f := newCreateFixture(t, et, testMember(t))
		f.bookings.dayCount = 1

		result, err := f.handler.Handle(ctx, validCommand())
		require.NoError(t, err)
		assert.NotNil(t, result.Booking)
	})

	t.Run("member with a conflicting booking is rejected", func(t *testing.T) {
		f := newCreateFixture(t, testEventType(t), testMember(t))
		f.bookings.overlap = true

		_, err := f.handler.Handle(ctx, validCommand())
		assert.ErrorIs(t, err, bookingApp.ErrSlotUnavailable)
		assert.Empty(t, f.bookings.saved)
		assert.Equal(t, 1, f.uow.rollbacks)
		assert.Zero(t, f.outboxRepo.messageCount())
		assert.True(t, f.bookings.overlapInTx, "conflict check must join the claiming transaction")
		assert.Equal(t, uuid.Nil, f.bookings.overlapExcludeID)
	})

	t.Run("unsynced booking still blocks its slot", func(t *testing.T) {
		// The calendar write fails, so the first booking never reaches the
		// free/busy view. The second request for the same slot must be
		// rejected off the persisted bookings alone.
		et := testEventType(t)
		member := testMember(t)
		f := newCreateFixture(t, et, member)
		f.calendar.createErr = errors.New("provider down")

		first, err := f.handler.Handle(ctx, validCommand())
		require.NoError(t, err)
		assert.False(t, first.CalendarSynced)

		_, err = f.handler.Handle(ctx, validCommand())
		assert.ErrorIs(t, err, bookingApp.ErrSlotUnavailable)
		require.Len(t, f.bookings.saved, 1)
		assert.Equal(t, member.ID(), f.bookings.overlapMemberID)
	})

	t.Run("daily cap is counted inside the transaction", func(t *testing.T) {
		dailyCap := 2
		et, err := schedulingDomain.NewEventType("intro", "Intro Call", 30*time.Minute, 0, 0, 0, &dailyCap, 60)
		require.NoError(t, err)
		f := newCreateFixture(t, et, testMember(t))

		_, err = f.handler.Handle(ctx, validCommand())
		require.NoError(t, err)
		assert.True(t, f.bookings.dayCountInTx)
	})

	t.Run("calendar failure does not void the booking", func(t *testing.T) {
		f := newCreateFixture(t, testEventType(t), testMember(t))
		f.calendar.createErr = errors.New("provider down")

		result, err := f.handler.Handle(ctx, validCommand())
		require.NoError(t, err)

		require.NotNil(t, result.Booking)
		assert.False(t, result.CalendarSynced)
		assert.Empty(t, result.JoinLink)
		assert.Nil(t, result.Booking.CalendarEventID())
	})

	t.Run("availability failure is internal", func(t *testing.T) {
		f := newCreateFixture(t, testEventType(t), testMember(t))
		f.availability.err = errors.New("calendar fan-out failed")

		_, err := f.handler.Handle(ctx, validCommand())
		assert.ErrorIs(t, err, bookingApp.ErrInternal)
	})
}
