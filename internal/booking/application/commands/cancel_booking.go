package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	bookingApp "github.com/slotwise/slotwise/internal/booking/application"
	"github.com/slotwise/slotwise/internal/booking/domain"
	schedulingDomain "github.com/slotwise/slotwise/internal/scheduling/domain"
	sharedApplication "github.com/slotwise/slotwise/internal/shared/application"
	"github.com/slotwise/slotwise/internal/shared/infrastructure/outbox"
)

// CancelBookingCommand cancels a booking identified by its manage token.
type CancelBookingCommand struct {
	ManageToken string
}

// CancelBookingHandler handles the CancelBookingCommand.
type CancelBookingHandler struct {
	bookings   domain.Repository
	members    schedulingDomain.TeamMemberRepository
	calendar   bookingApp.CalendarClient
	outboxRepo outbox.Repository
	uow        sharedApplication.UnitOfWork
	logger     *slog.Logger
}

// NewCancelBookingHandler creates a new CancelBookingHandler.
func NewCancelBookingHandler(
	bookings domain.Repository,
	members schedulingDomain.TeamMemberRepository,
	calendar bookingApp.CalendarClient,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	logger *slog.Logger,
) *CancelBookingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CancelBookingHandler{
		bookings:   bookings,
		members:    members,
		calendar:   calendar,
		outboxRepo: outboxRepo,
		uow:        uow,
		logger:     logger,
	}
}

// Handle cancels the booking. Cancelling an already-cancelled booking is a
// validation error and produces no second side effect.
func (h *CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (*domain.Booking, error) {
	token, err := domain.ParseManageToken(cmd.ManageToken)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed manage token", bookingApp.ErrNotFound)
	}

	var booking *domain.Booking

	err = sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		found, err := h.bookings.FindByManageToken(txCtx, token)
		if err != nil {
			return fmt.Errorf("%w: failed to load booking: %v", bookingApp.ErrInternal, err)
		}
		if found == nil {
			return fmt.Errorf("%w: unknown manage token", bookingApp.ErrNotFound)
		}

		if err := found.Cancel(); err != nil {
			if errors.Is(err, domain.ErrBookingCancelled) {
				return fmt.Errorf("%w: booking is already cancelled", bookingApp.ErrValidation)
			}
			return fmt.Errorf("%w: %v", bookingApp.ErrValidation, err)
		}

		if err := h.bookings.Save(txCtx, found); err != nil {
			return fmt.Errorf("%w: failed to persist cancellation: %v", bookingApp.ErrInternal, err)
		}
		if err := saveEventsToOutbox(txCtx, h.outboxRepo, found); err != nil {
			return fmt.Errorf("%w: failed to enqueue events: %v", bookingApp.ErrInternal, err)
		}

		booking = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.deleteCalendarEvent(ctx, booking)
	return booking, nil
}

// deleteCalendarEvent is best effort; the cancellation is already durable.
func (h *CancelBookingHandler) deleteCalendarEvent(ctx context.Context, booking *domain.Booking) {
	eventID := booking.CalendarEventID()
	if eventID == nil {
		return
	}

	member, err := h.members.FindByID(ctx, booking.TeamMemberID())
	if err != nil || member == nil {
		h.logger.Warn("cannot resolve member for calendar delete",
			"booking_id", booking.ID(),
			"error", err,
		)
		return
	}

	if _, err := h.calendar.DeleteEvent(ctx, member, *eventID); err != nil {
		h.logger.Warn("calendar delete failed after cancellation",
			"booking_id", booking.ID(),
			"event_id", *eventID,
			"error", err,
		)
	}
}
