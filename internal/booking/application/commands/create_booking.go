// Package commands implements the booking lifecycle transitions.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	bookingApp "github.com/slotwise/slotwise/internal/booking/application"
	"github.com/slotwise/slotwise/internal/booking/domain"
	calendarApp "github.com/slotwise/slotwise/internal/calendar/application"
	schedulingDomain "github.com/slotwise/slotwise/internal/scheduling/domain"
	sharedApplication "github.com/slotwise/slotwise/internal/shared/application"
	"github.com/slotwise/slotwise/internal/shared/infrastructure/outbox"
)

// CreateBookingCommand contains the data needed to book a slot.
type CreateBookingCommand struct {
	EventTypeSlug string
	StartTime     time.Time
	Timezone      string
	InviteeName   string
	InviteeEmail  string
	InviteePhone  string
	Notes         string
	TeamID        *uuid.UUID
}

// CreateBookingResult contains the persisted booking plus the calendar-write
// outcome.
type CreateBookingResult struct {
	Booking        *domain.Booking
	CalendarSynced bool
	JoinLink       string
}

// CreateBookingHandler handles the CreateBookingCommand.
type CreateBookingHandler struct {
	bookings     domain.Repository
	eventTypes   schedulingDomain.EventTypeRepository
	members      schedulingDomain.TeamMemberRepository
	availability bookingApp.AvailabilityView
	calendar     bookingApp.CalendarClient
	outboxRepo   outbox.Repository
	uow          sharedApplication.UnitOfWork
	logger       *slog.Logger
	now          func() time.Time
}

// NewCreateBookingHandler creates a new CreateBookingHandler.
func NewCreateBookingHandler(
	bookings domain.Repository,
	eventTypes schedulingDomain.EventTypeRepository,
	members schedulingDomain.TeamMemberRepository,
	availability bookingApp.AvailabilityView,
	calendar bookingApp.CalendarClient,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	logger *slog.Logger,
) *CreateBookingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CreateBookingHandler{
		bookings:     bookings,
		eventTypes:   eventTypes,
		members:      members,
		availability: availability,
		calendar:     calendar,
		outboxRepo:   outboxRepo,
		uow:          uow,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the handler's clock. Used in tests.
func (h *CreateBookingHandler) WithClock(now func() time.Time) *CreateBookingHandler {
	h.now = now
	return h
}

// Handle books the requested slot. The ordering is strict: slot re-validation,
// then member claim, then persistence, then the calendar write. Persistence is
// the durability boundary; the calendar write may fail independently and only
// flips CalendarSynced.
func (h *CreateBookingHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (*CreateBookingResult, error) {
	now := h.now()

	loc, err := time.LoadLocation(cmd.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q", bookingApp.ErrValidation, cmd.Timezone)
	}
	if !strings.Contains(cmd.InviteeEmail, "@") {
		return nil, fmt.Errorf("%w: invitee email is invalid", bookingApp.ErrValidation)
	}

	eventType, err := h.eventTypes.FindBySlug(ctx, strings.ToLower(strings.TrimSpace(cmd.EventTypeSlug)))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load event type: %v", bookingApp.ErrInternal, err)
	}
	if eventType == nil {
		return nil, fmt.Errorf("%w: event type %q", bookingApp.ErrNotFound, cmd.EventTypeSlug)
	}

	start := cmd.StartTime.UTC()
	if !start.After(now) {
		return nil, fmt.Errorf("%w: start time must be in the future", bookingApp.ErrValidation)
	}
	if start.After(eventType.LatestBookableStart(now)) {
		return nil, fmt.Errorf("%w: start time exceeds the advance booking window", bookingApp.ErrValidation)
	}
	end := start.Add(eventType.Duration())

	pool, err := h.revalidateSlot(ctx, eventType, start, cmd.Timezone, cmd.TeamID)
	if err != nil {
		return nil, err
	}

	var booking *domain.Booking
	var member *schedulingDomain.TeamMember

	err = sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		// The cap count runs inside the transaction so two concurrent
		// requests cannot both read the pre-insert count.
		if dailyCap := eventType.MaxDailyBookings(); dailyCap != nil {
			localStart := start.In(loc)
			dayStart := time.Date(localStart.Year(), localStart.Month(), localStart.Day(), 0, 0, 0, 0, loc).UTC()
			dayEnd := dayStart.AddDate(0, 0, 1)
			count, err := h.bookings.CountConfirmedForDay(txCtx, eventType.ID(), dayStart, dayEnd)
			if err != nil {
				return fmt.Errorf("%w: failed to count daily bookings: %v", bookingApp.ErrInternal, err)
			}
			if count >= *dailyCap {
				return fmt.Errorf("%w: daily booking cap reached", bookingApp.ErrSlotUnavailable)
			}
		}

		claimed, err := h.members.ClaimLeastRecentlyBooked(txCtx, pool, now)
		if err != nil {
			return fmt.Errorf("%w: failed to claim member: %v", bookingApp.ErrInternal, err)
		}
		if claimed == nil {
			return fmt.Errorf("%w: no member left to assign", bookingApp.ErrSlotUnavailable)
		}
		member = claimed

		// The availability view only sees what the calendar reports. A booking
		// that committed without a calendar event is invisible there, so the
		// persisted bookings are the authority on the claimed member's time.
		// The claim above row-locks the member, serializing this check.
		taken, err := h.bookings.ExistsConfirmedOverlapping(txCtx, member.ID(), start, end, uuid.Nil)
		if err != nil {
			return fmt.Errorf("%w: failed to check for conflicting bookings: %v", bookingApp.ErrInternal, err)
		}
		if taken {
			return fmt.Errorf("%w: member already booked for this window", bookingApp.ErrSlotUnavailable)
		}

		created, err := domain.NewBooking(
			eventType.ID(),
			member.ID(),
			cmd.TeamID,
			domain.Invitee{Name: cmd.InviteeName, Email: cmd.InviteeEmail, Phone: cmd.InviteePhone},
			start, end,
			cmd.Timezone,
			cmd.Notes,
		)
		if err != nil {
			return fmt.Errorf("%w: %v", bookingApp.ErrValidation, err)
		}

		if err := h.bookings.Save(txCtx, created); err != nil {
			return fmt.Errorf("%w: failed to persist booking: %v", bookingApp.ErrInternal, err)
		}
		if err := saveEventsToOutbox(txCtx, h.outboxRepo, created); err != nil {
			return fmt.Errorf("%w: failed to enqueue events: %v", bookingApp.ErrInternal, err)
		}

		booking = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &CreateBookingResult{Booking: booking}

	eventResult, err := h.calendar.CreateEvent(ctx, member, eventSpecFor(eventType, booking))
	if err != nil {
		// The booking is already durable; the calendar stays out of sync and
		// the response says so.
		h.logger.Warn("calendar write failed after booking commit",
			"booking_id", booking.ID(),
			"member_id", member.ID(),
			"error", err,
		)
		return result, nil
	}

	booking.SetCalendarEventID(&eventResult.EventID)
	if err := h.bookings.Save(ctx, booking); err != nil {
		h.logger.Warn("failed to record calendar event id",
			"booking_id", booking.ID(),
			"error", err,
		)
	}
	result.CalendarSynced = true
	result.JoinLink = eventResult.JoinLink
	return result, nil
}

// revalidateSlot confirms the requested start is still present in the live
// availability view and returns the member pool offering it. Skipping this
// check permits double-booking under concurrent requests.
func (h *CreateBookingHandler) revalidateSlot(
	ctx context.Context,
	eventType *schedulingDomain.EventType,
	start time.Time,
	timezone string,
	teamID *uuid.UUID,
) ([]uuid.UUID, error) {
	slots, err := h.availability.CombinedAvailability(ctx, eventType, start, timezone, teamID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to compute availability: %v", bookingApp.ErrInternal, err)
	}
	for _, slot := range slots {
		if slot.StartsAt(start) {
			return slot.AvailableMemberIDs, nil
		}
	}
	return nil, fmt.Errorf("%w: requested start is no longer free", bookingApp.ErrSlotUnavailable)
}

func eventSpecFor(eventType *schedulingDomain.EventType, booking *domain.Booking) calendarApp.EventSpec {
	description := fmt.Sprintf("Booked by %s (%s)", booking.Invitee().Name, booking.Invitee().Email)
	if booking.Notes() != "" {
		description += "\n\n" + booking.Notes()
	}
	return calendarApp.EventSpec{
		Title:       fmt.Sprintf("%s with %s", eventType.Name(), booking.Invitee().Name),
		Description: description,
		Start:       booking.StartTime(),
		End:         booking.EndTime(),
		Timezone:    booking.Timezone(),
		Attendees:   []string{booking.Invitee().Email},
	}
}

func saveEventsToOutbox(ctx context.Context, repo outbox.Repository, booking *domain.Booking) error {
	events := booking.DomainEvents()
	if len(events) == 0 {
		return nil
	}
	sharedApplication.ApplyEventMetadata(events, sharedApplication.NewEventMetadata())

	msgs := make([]*outbox.Message, 0, len(events))
	for _, event := range events {
		msg, err := outbox.NewMessage(event)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	if err := repo.SaveBatch(ctx, msgs); err != nil {
		return err
	}
	booking.ClearDomainEvents()
	return nil
}
