package queries

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	bookingApp "github.com/slotwise/slotwise/internal/booking/application"
	"github.com/slotwise/slotwise/internal/booking/domain"
)

// ListUpcomingBookingsHandler lists a member's upcoming confirmed bookings.
type ListUpcomingBookingsHandler struct {
	bookings domain.Repository
	now      func() time.Time
}

// NewListUpcomingBookingsHandler creates a new ListUpcomingBookingsHandler.
func NewListUpcomingBookingsHandler(bookings domain.Repository) *ListUpcomingBookingsHandler {
	return &ListUpcomingBookingsHandler{
		bookings: bookings,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the handler's clock. Used in tests.
func (h *ListUpcomingBookingsHandler) WithClock(now func() time.Time) *ListUpcomingBookingsHandler {
	h.now = now
	return h
}

// Handle returns the member's confirmed bookings from now on, start ascending.
func (h *ListUpcomingBookingsHandler) Handle(ctx context.Context, memberID uuid.UUID) ([]BookingView, error) {
	bookings, err := h.bookings.ListUpcomingByMember(ctx, memberID, h.now())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list bookings: %v", bookingApp.ErrInternal, err)
	}

	views := make([]BookingView, 0, len(bookings))
	for _, booking := range bookings {
		views = append(views, NewBookingView(booking))
	}
	return views, nil
}
