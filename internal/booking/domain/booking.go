// Package domain holds the booking aggregate and its lifecycle rules.
package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/slotwise/slotwise/internal/shared/domain"
)

var (
	ErrBookingInvalidWindow  = errors.New("booking end must be after start")
	ErrBookingInvalidInvitee = errors.New("invitee email is invalid")
	ErrBookingCancelled      = errors.New("booking is already cancelled")
	ErrBookingNotConfirmed   = errors.New("booking is not confirmed")
)

// Status is the booking lifecycle state. Cancelled is terminal.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"

	// StatusCompleted is written by an external completion process once the
	// meeting has passed, never by this engine.
	StatusCompleted Status = "completed"
)

// Invitee identifies the external person who booked the slot.
type Invitee struct {
	Name  string
	Email string
	Phone string
}

// Booking is a confirmed reservation of one member's time slot by an invitee.
type Booking struct {
	sharedDomain.BaseAggregateRoot
	eventTypeID     uuid.UUID
	teamMemberID    uuid.UUID
	teamID          *uuid.UUID
	invitee         Invitee
	startTime       time.Time
	endTime         time.Time
	timezone        string
	notes           string
	status          Status
	manageToken     ManageToken
	calendarEventID *string
	reminderSentAt  *time.Time
}

// NewBooking creates a confirmed booking with a fresh manage token.
func NewBooking(
	eventTypeID uuid.UUID,
	teamMemberID uuid.UUID,
	teamID *uuid.UUID,
	invitee Invitee,
	start, end time.Time,
	timezone string,
	notes string,
) (*Booking, error) {
	if !end.After(start) {
		return nil, ErrBookingInvalidWindow
	}
	invitee.Name = strings.TrimSpace(invitee.Name)
	invitee.Email = strings.TrimSpace(invitee.Email)
	invitee.Phone = strings.TrimSpace(invitee.Phone)
	if !strings.Contains(invitee.Email, "@") {
		return nil, ErrBookingInvalidInvitee
	}

	token, err := NewManageToken()
	if err != nil {
		return nil, err
	}

	booking := &Booking{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		eventTypeID:       eventTypeID,
		teamMemberID:      teamMemberID,
		teamID:            teamID,
		invitee:           invitee,
		startTime:         start.UTC(),
		endTime:           end.UTC(),
		timezone:          timezone,
		notes:             notes,
		status:            StatusConfirmed,
		manageToken:       token,
	}
	booking.AddDomainEvent(NewBookingCreated(booking))
	return booking, nil
}

// Getters
func (b *Booking) EventTypeID() uuid.UUID    { return b.eventTypeID }
func (b *Booking) TeamMemberID() uuid.UUID   { return b.teamMemberID }
func (b *Booking) TeamID() *uuid.UUID        { return b.teamID }
func (b *Booking) Invitee() Invitee          { return b.invitee }
func (b *Booking) StartTime() time.Time      { return b.startTime }
func (b *Booking) EndTime() time.Time        { return b.endTime }
func (b *Booking) Timezone() string          { return b.timezone }
func (b *Booking) Notes() string             { return b.notes }
func (b *Booking) Status() Status            { return b.status }
func (b *Booking) ManageToken() ManageToken  { return b.manageToken }
func (b *Booking) CalendarEventID() *string  { return b.calendarEventID }
func (b *Booking) ReminderSentAt() *time.Time { return b.reminderSentAt }

// IsConfirmed reports whether the booking is in the confirmed state.
func (b *Booking) IsConfirmed() bool { return b.status == StatusConfirmed }

// SetCalendarEventID records the external calendar event backing this booking.
// A nil id means the calendar write failed or was rolled back.
func (b *Booking) SetCalendarEventID(eventID *string) {
	b.calendarEventID = eventID
	b.Touch()
}

// Cancel moves the booking into its terminal state. Cancelling twice is a
// domain error, not a second side effect.
func (b *Booking) Cancel() error {
	if b.status == StatusCancelled {
		return ErrBookingCancelled
	}
	b.status = StatusCancelled
	b.Touch()
	b.AddDomainEvent(NewBookingCancelled(b))
	return nil
}

// Reschedule moves a confirmed booking to a new window. The manage token and
// the assigned member never change.
func (b *Booking) Reschedule(start, end time.Time) error {
	if b.status != StatusConfirmed {
		return ErrBookingNotConfirmed
	}
	if !end.After(start) {
		return ErrBookingInvalidWindow
	}
	previousStart := b.startTime
	b.startTime = start.UTC()
	b.endTime = end.UTC()
	b.reminderSentAt = nil
	b.Touch()
	b.AddDomainEvent(NewBookingRescheduled(b, previousStart))
	return nil
}

// MarkReminderSent records that the reminder fired, so a scanner never sends
// it twice.
func (b *Booking) MarkReminderSent(at time.Time) {
	at = at.UTC()
	b.reminderSentAt = &at
	b.Touch()
	b.AddDomainEvent(NewBookingReminderDue(b))
}

// RehydrateBooking recreates a booking from persisted state.
func RehydrateBooking(
	id uuid.UUID,
	eventTypeID uuid.UUID,
	teamMemberID uuid.UUID,
	teamID *uuid.UUID,
	invitee Invitee,
	start, end time.Time,
	timezone string,
	notes string,
	status Status,
	manageToken ManageToken,
	calendarEventID *string,
	reminderSentAt *time.Time,
	createdAt, updatedAt time.Time,
) *Booking {
	return &Booking{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(
			sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt)),
		eventTypeID:     eventTypeID,
		teamMemberID:    teamMemberID,
		teamID:          teamID,
		invitee:         invitee,
		startTime:       start,
		endTime:         end,
		timezone:        timezone,
		notes:           notes,
		status:          status,
		manageToken:     manageToken,
		calendarEventID: calendarEventID,
		reminderSentAt:  reminderSentAt,
	}
}
