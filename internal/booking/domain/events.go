package domain

import (
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/slotwise/slotwise/internal/shared/domain"
)

const aggregateType = "Booking"

// BookingCreated is emitted when a booking is confirmed.
type BookingCreated struct {
	sharedDomain.BaseEvent
	BookingID    uuid.UUID `json:"booking_id"`
	EventTypeID  uuid.UUID `json:"event_type_id"`
	TeamMemberID uuid.UUID `json:"team_member_id"`
	InviteeName  string    `json:"invitee_name"`
	InviteeEmail string    `json:"invitee_email"`
	InviteePhone string    `json:"invitee_phone,omitempty"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Timezone     string    `json:"timezone"`
	ManageToken  string    `json:"manage_token"`
}

// NewBookingCreated creates a BookingCreated event.
func NewBookingCreated(b *Booking) *BookingCreated {
	return &BookingCreated{
		BaseEvent:    sharedDomain.NewBaseEvent(b.ID(), aggregateType, "booking.booking.created"),
		BookingID:    b.ID(),
		EventTypeID:  b.EventTypeID(),
		TeamMemberID: b.TeamMemberID(),
		InviteeName:  b.Invitee().Name,
		InviteeEmail: b.Invitee().Email,
		InviteePhone: b.Invitee().Phone,
		StartTime:    b.StartTime(),
		EndTime:      b.EndTime(),
		Timezone:     b.Timezone(),
		ManageToken:  b.ManageToken().String(),
	}
}

// BookingCancelled is emitted when a booking reaches its terminal state.
type BookingCancelled struct {
	sharedDomain.BaseEvent
	BookingID    uuid.UUID `json:"booking_id"`
	TeamMemberID uuid.UUID `json:"team_member_id"`
	InviteeEmail string    `json:"invitee_email"`
	StartTime    time.Time `json:"start_time"`
}

// NewBookingCancelled creates a BookingCancelled event.
func NewBookingCancelled(b *Booking) *BookingCancelled {
	return &BookingCancelled{
		BaseEvent:    sharedDomain.NewBaseEvent(b.ID(), aggregateType, "booking.booking.cancelled"),
		BookingID:    b.ID(),
		TeamMemberID: b.TeamMemberID(),
		InviteeEmail: b.Invitee().Email,
		StartTime:    b.StartTime(),
	}
}

// BookingRescheduled is emitted when a confirmed booking moves to a new window.
type BookingRescheduled struct {
	sharedDomain.BaseEvent
	BookingID     uuid.UUID `json:"booking_id"`
	TeamMemberID  uuid.UUID `json:"team_member_id"`
	InviteeEmail  string    `json:"invitee_email"`
	PreviousStart time.Time `json:"previous_start"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	ManageToken   string    `json:"manage_token"`
}

// NewBookingRescheduled creates a BookingRescheduled event.
func NewBookingRescheduled(b *Booking, previousStart time.Time) *BookingRescheduled {
	return &BookingRescheduled{
		BaseEvent:     sharedDomain.NewBaseEvent(b.ID(), aggregateType, "booking.booking.rescheduled"),
		BookingID:     b.ID(),
		TeamMemberID:  b.TeamMemberID(),
		InviteeEmail:  b.Invitee().Email,
		PreviousStart: previousStart,
		StartTime:     b.StartTime(),
		EndTime:       b.EndTime(),
		ManageToken:   b.ManageToken().String(),
	}
}

// BookingReminderDue is emitted when the reminder window for an upcoming
// booking opens.
type BookingReminderDue struct {
	sharedDomain.BaseEvent
	BookingID    uuid.UUID `json:"booking_id"`
	TeamMemberID uuid.UUID `json:"team_member_id"`
	InviteeEmail string    `json:"invitee_email"`
	StartTime    time.Time `json:"start_time"`
	ManageToken  string    `json:"manage_token"`
}

// NewBookingReminderDue creates a BookingReminderDue event.
func NewBookingReminderDue(b *Booking) *BookingReminderDue {
	return &BookingReminderDue{
		BaseEvent:    sharedDomain.NewBaseEvent(b.ID(), aggregateType, "booking.booking.reminder_due"),
		BookingID:    b.ID(),
		TeamMemberID: b.TeamMemberID(),
		InviteeEmail: b.Invitee().Email,
		StartTime:    b.StartTime(),
		ManageToken:  b.ManageToken().String(),
	}
}
