package commands

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	bookingApp "github.com/slotwise/slotwise/internal/booking/application"
	"github.com/slotwise/slotwise/internal/booking/domain"
	schedulingDomain "github.com/slotwise/slotwise/internal/scheduling/domain"
	sharedApplication "github.com/slotwise/slotwise/internal/shared/application"
	"github.com/slotwise/slotwise/internal/shared/infrastructure/outbox"
)

// RescheduleBookingCommand moves a confirmed booking to a new start.
type RescheduleBookingCommand struct {
	ManageToken  string
	NewStartTime time.Time
}

// RescheduleBookingResult carries the updated booking plus the calendar-write
// outcome.
type RescheduleBookingResult struct {
	Booking        *domain.Booking
	CalendarSynced bool
}

// RescheduleBookingHandler handles the RescheduleBookingCommand.
type RescheduleBookingHandler struct {
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

// NewRescheduleBookingHandler creates a new RescheduleBookingHandler.
func NewRescheduleBookingHandler(
	bookings domain.Repository,
	eventTypes schedulingDomain.EventTypeRepository,
	members schedulingDomain.TeamMemberRepository,
	availability bookingApp.AvailabilityView,
	calendar bookingApp.CalendarClient,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	logger *slog.Logger,
) *RescheduleBookingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RescheduleBookingHandler{
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
func (h *RescheduleBookingHandler) WithClock(now func() time.Time) *RescheduleBookingHandler {
	h.now = now
	return h
}

// Handle moves the booking. The assigned member and the manage token never
// change; the new slot is re-validated for that same member.
func (h *RescheduleBookingHandler) Handle(ctx context.Context, cmd RescheduleBookingCommand) (*RescheduleBookingResult, error) {
	token, err := domain.ParseManageToken(cmd.ManageToken)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed manage token", bookingApp.ErrNotFound)
	}

	now := h.now()
	newStart := cmd.NewStartTime.UTC()
	if !newStart.After(now) {
		return nil, fmt.Errorf("%w: new start time must be in the future", bookingApp.ErrValidation)
	}

	booking, err := h.bookings.FindByManageToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load booking: %v", bookingApp.ErrInternal, err)
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: unknown manage token", bookingApp.ErrNotFound)
	}
	if !booking.IsConfirmed() {
		return nil, fmt.Errorf("%w: only confirmed bookings can be rescheduled", bookingApp.ErrValidation)
	}

	eventType, err := h.eventTypes.FindByID(ctx, booking.EventTypeID())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load event type: %v", bookingApp.ErrInternal, err)
	}
	if eventType == nil {
		return nil, fmt.Errorf("%w: event type no longer exists", bookingApp.ErrNotFound)
	}
	if newStart.After(eventType.LatestBookableStart(now)) {
		return nil, fmt.Errorf("%w: new start time exceeds the advance booking window", bookingApp.ErrValidation)
	}

	if err := h.revalidateForMember(ctx, eventType, booking, newStart); err != nil {
		return nil, err
	}

	newEnd := newStart.Add(eventType.Duration())

	err = sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		// Unsynced bookings never reach the calendar view, so the persisted
		// rows decide whether the member's new window is truly free. The
		// booking itself is excluded or it would collide with its old window.
		taken, err := h.bookings.ExistsConfirmedOverlapping(txCtx, booking.TeamMemberID(), newStart, newEnd, booking.ID())
		if err != nil {
			return fmt.Errorf("%w: failed to check for conflicting bookings: %v", bookingApp.ErrInternal, err)
		}
		if taken {
			return fmt.Errorf("%w: member already booked for this window", bookingApp.ErrSlotUnavailable)
		}

		if err := booking.Reschedule(newStart, newEnd); err != nil {
			return fmt.Errorf("%w: %v", bookingApp.ErrValidation, err)
		}
		if err := h.bookings.Save(txCtx, booking); err != nil {
			return fmt.Errorf("%w: failed to persist reschedule: %v", bookingApp.ErrInternal, err)
		}
		if err := saveEventsToOutbox(txCtx, h.outboxRepo, booking); err != nil {
			return fmt.Errorf("%w: failed to enqueue events: %v", bookingApp.ErrInternal, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &RescheduleBookingResult{Booking: booking}
	result.CalendarSynced = h.syncCalendar(ctx, eventType, booking)
	return result, nil
}

// revalidateForMember confirms the new start is free for the already-assigned
// member. The slot pool of other members is irrelevant; reschedule never
// round-robins.
func (h *RescheduleBookingHandler) revalidateForMember(
	ctx context.Context,
	eventType *schedulingDomain.EventType,
	booking *domain.Booking,
	newStart time.Time,
) error {
	slots, err := h.availability.CombinedAvailability(ctx, eventType, newStart, booking.Timezone(), booking.TeamID())
	if err != nil {
		return fmt.Errorf("%w: failed to compute availability: %v", bookingApp.ErrInternal, err)
	}
	for _, slot := range slots {
		if slot.StartsAt(newStart) && slices.Contains(slot.AvailableMemberIDs, booking.TeamMemberID()) {
			return nil
		}
	}
	return fmt.Errorf("%w: requested start is not free for the assigned member", bookingApp.ErrSlotUnavailable)
}

// syncCalendar updates the existing event when one exists, otherwise creates
// one. Best effort; the reschedule is already durable.
func (h *RescheduleBookingHandler) syncCalendar(ctx context.Context, eventType *schedulingDomain.EventType, booking *domain.Booking) bool {
	member, err := h.members.FindByID(ctx, booking.TeamMemberID())
	if err != nil || member == nil {
		h.logger.Warn("cannot resolve member for calendar sync",
			"booking_id", booking.ID(),
			"error", err,
		)
		return false
	}

	spec := eventSpecFor(eventType, booking)
	if eventID := booking.CalendarEventID(); eventID != nil {
		if _, err := h.calendar.UpdateEvent(ctx, member, *eventID, spec); err != nil {
			h.logger.Warn("calendar update failed after reschedule",
				"booking_id", booking.ID(),
				"event_id", *eventID,
				"error", err,
			)
			return false
		}
		return true
	}

	result, err := h.calendar.CreateEvent(ctx, member, spec)
	if err != nil {
		h.logger.Warn("calendar create failed after reschedule",
			"booking_id", booking.ID(),
			"error", err,
		)
		return false
	}
	booking.SetCalendarEventID(&result.EventID)
	if err := h.bookings.Save(ctx, booking); err != nil {
		h.logger.Warn("failed to record calendar event id",
			"booking_id", booking.ID(),
			"error", err,
		)
	}
	return true
}
