// Package subscribers bridges consumed booking events into the notification
// trigger.
package subscribers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	notificationApp "github.com/slotwise/slotwise/internal/notification/application"
	"github.com/slotwise/slotwise/internal/shared/infrastructure/eventbus"
)

// BookingSubscriber turns booking lifecycle events into notifications.
// publicBaseURL anchors the self-service links put into each payload.
type BookingSubscriber struct {
	trigger       *notificationApp.Trigger
	publicBaseURL string
	logger        *slog.Logger
}

// NewBookingSubscriber creates a booking notification subscriber.
func NewBookingSubscriber(trigger *notificationApp.Trigger, publicBaseURL string, logger *slog.Logger) *BookingSubscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &BookingSubscriber{
		trigger:       trigger,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger,
	}
}

// EventTypes returns the event types this subscriber handles.
func (s *BookingSubscriber) EventTypes() []string {
	return []string{
		"booking.booking.created",
		"booking.booking.cancelled",
		"booking.booking.rescheduled",
		"booking.booking.reminder_due",
	}
}

// bookingEventPayload covers the union of fields across booking events.
type bookingEventPayload struct {
	BookingID    uuid.UUID `json:"booking_id"`
	EventTypeID  uuid.UUID `json:"event_type_id"`
	TeamMemberID uuid.UUID `json:"team_member_id"`
	InviteeName  string    `json:"invitee_name"`
	InviteeEmail string    `json:"invitee_email"`
	InviteePhone string    `json:"invitee_phone"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Timezone     string    `json:"timezone"`
	ManageToken  string    `json:"manage_token"`
}

// Handle processes an event.
func (s *BookingSubscriber) Handle(ctx context.Context, event *eventbus.ConsumedEvent) error {
	var payload bookingEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		s.logger.Error("failed to decode booking event",
			"routing_key", event.RoutingKey,
			"event_id", event.EventID,
			"error", err,
		)
		// A malformed payload will never decode; requeueing it is useless.
		return nil
	}

	var kind notificationApp.Kind
	switch event.RoutingKey {
	case "booking.booking.created":
		kind = notificationApp.KindConfirmation
	case "booking.booking.cancelled":
		kind = notificationApp.KindCancellation
	case "booking.booking.rescheduled":
		kind = notificationApp.KindReschedule
	case "booking.booking.reminder_due":
		kind = notificationApp.KindReminder
	default:
		return nil
	}

	notification := notificationApp.BookingNotification{
		Kind:         kind,
		BookingID:    payload.BookingID,
		EventTypeID:  payload.EventTypeID,
		TeamMemberID: payload.TeamMemberID,
		InviteeName:  payload.InviteeName,
		InviteeEmail: payload.InviteeEmail,
		InviteePhone: payload.InviteePhone,
		StartTime:    payload.StartTime,
		EndTime:      payload.EndTime,
		Timezone:     payload.Timezone,
	}
	if payload.ManageToken != "" {
		notification.CancelURL = s.manageLink(payload.ManageToken, "cancel")
		notification.RescheduleURL = s.manageLink(payload.ManageToken, "reschedule")
	}

	s.trigger.Fire(ctx, notification)
	return nil
}

func (s *BookingSubscriber) manageLink(token, action string) string {
	return fmt.Sprintf("%s/bookings/%s/%s", s.publicBaseURL, token, action)
}
