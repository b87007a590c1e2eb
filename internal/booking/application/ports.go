package application

import (
	"context"
	"time"

	"github.com/google/uuid"

	calendarApp "github.com/slotwise/slotwise/internal/calendar/application"
	schedulingDomain "github.com/slotwise/slotwise/internal/scheduling/domain"
)

// AvailabilityView computes the merged bookable slots for an event type on a
// day. Booking creation uses it to re-validate a requested slot against the
// live calendars.
type AvailabilityView interface {
	CombinedAvailability(
		ctx context.Context,
		eventType *schedulingDomain.EventType,
		date time.Time,
		timezone string,
		teamID *uuid.UUID,
	) ([]schedulingDomain.TimeSlot, error)
}

// CalendarClient writes events through the tiered credential chain. All
// methods are best-effort from the booking's point of view.
type CalendarClient interface {
	CreateEvent(ctx context.Context, member *schedulingDomain.TeamMember, spec calendarApp.EventSpec) (*calendarApp.EventResult, error)
	UpdateEvent(ctx context.Context, member *schedulingDomain.TeamMember, eventID string, spec calendarApp.EventSpec) (string, error)
	DeleteEvent(ctx context.Context, member *schedulingDomain.TeamMember, eventID string) (bool, error)
}
