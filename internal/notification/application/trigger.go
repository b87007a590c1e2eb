// Package application fans booking state transitions out to notification
// sinks. Everything here is best effort: a failed delivery never rolls back
// the transition that caused it.
package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the notification occasion.
type Kind string

const (
	KindConfirmation Kind = "confirmation"
	KindCancellation Kind = "cancellation"
	KindReschedule   Kind = "reschedule"
	KindReminder     Kind = "reminder"
)

// BookingNotification is the payload delivered to every sink.
type BookingNotification struct {
	Kind         Kind      `json:"kind"`
	BookingID    uuid.UUID `json:"booking_id"`
	EventTypeID  uuid.UUID `json:"event_type_id,omitempty"`
	TeamMemberID uuid.UUID `json:"team_member_id"`
	InviteeName  string    `json:"invitee_name,omitempty"`
	InviteeEmail string    `json:"invitee_email"`
	InviteePhone string    `json:"invitee_phone,omitempty"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time,omitempty"`
	Timezone     string    `json:"timezone,omitempty"`

	// Self-service links derived from the booking's manage token. Empty on
	// cancellations, which leave nothing to manage.
	CancelURL     string `json:"cancel_url,omitempty"`
	RescheduleURL string `json:"reschedule_url,omitempty"`
}

// Sink is one delivery channel: an email sender, a webhook dispatcher, a
// timed-workflow starter.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, notification BookingNotification) error
}

// Trigger fires a notification into every registered sink. Sinks are
// independent: one failing does not stop the others, and no failure
// propagates to the caller.
type Trigger struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewTrigger creates a notification trigger.
func NewTrigger(sinks []Sink, logger *slog.Logger) *Trigger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Trigger{sinks: sinks, logger: logger}
}

// Fire delivers the notification to all sinks and reports how many failed.
func (t *Trigger) Fire(ctx context.Context, notification BookingNotification) int {
	failed := 0
	for _, sink := range t.sinks {
		if err := sink.Deliver(ctx, notification); err != nil {
			failed++
			t.logger.Warn("notification delivery failed",
				"sink", sink.Name(),
				"kind", notification.Kind,
				"booking_id", notification.BookingID,
				"error", err,
			)
			continue
		}
		t.logger.Debug("notification delivered",
			"sink", sink.Name(),
			"kind", notification.Kind,
			"booking_id", notification.BookingID,
		)
	}
	return failed
}
