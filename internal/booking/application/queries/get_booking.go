// Package queries implements read-side lookups for bookings.
package queries

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	bookingApp "github.com/slotwise/slotwise/internal/booking/application"
	"github.com/slotwise/slotwise/internal/booking/domain"
)

// BookingView is the read model returned to transport adapters.
type BookingView struct {
	ID              uuid.UUID  `json:"id"`
	EventTypeID     uuid.UUID  `json:"event_type_id"`
	TeamMemberID    uuid.UUID  `json:"team_member_id"`
	InviteeName     string     `json:"invitee_name"`
	InviteeEmail    string     `json:"invitee_email"`
	InviteePhone    string     `json:"invitee_phone,omitempty"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         time.Time  `json:"end_time"`
	Timezone        string     `json:"timezone"`
	Notes           string     `json:"notes,omitempty"`
	Status          string     `json:"status"`
	CalendarEventID *string    `json:"calendar_event_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// NewBookingView maps a booking aggregate to its read model.
func NewBookingView(b *domain.Booking) BookingView {
	return BookingView{
		ID:              b.ID(),
		EventTypeID:     b.EventTypeID(),
		TeamMemberID:    b.TeamMemberID(),
		InviteeName:     b.Invitee().Name,
		InviteeEmail:    b.Invitee().Email,
		InviteePhone:    b.Invitee().Phone,
		StartTime:       b.StartTime(),
		EndTime:         b.EndTime(),
		Timezone:        b.Timezone(),
		Notes:           b.Notes(),
		Status:          string(b.Status()),
		CalendarEventID: b.CalendarEventID(),
		CreatedAt:       b.CreatedAt(),
	}
}

// GetBookingByTokenHandler resolves a booking by its manage token.
type GetBookingByTokenHandler struct {
	bookings domain.Repository
}

// NewGetBookingByTokenHandler creates a new GetBookingByTokenHandler.
func NewGetBookingByTokenHandler(bookings domain.Repository) *GetBookingByTokenHandler {
	return &GetBookingByTokenHandler{bookings: bookings}
}

// Handle looks up the booking the token grants access to.
func (h *GetBookingByTokenHandler) Handle(ctx context.Context, rawToken string) (*BookingView, error) {
	token, err := domain.ParseManageToken(rawToken)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed manage token", bookingApp.ErrNotFound)
	}

	booking, err := h.bookings.FindByManageToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load booking: %v", bookingApp.ErrInternal, err)
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: unknown manage token", bookingApp.ErrNotFound)
	}

	view := NewBookingView(booking)
	return &view, nil
}
