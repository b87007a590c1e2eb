// Package application defines the calendar provider contract and the tiered
// credential resolution used to reach a team member's external calendar.
package application

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoFreeBusyData signals that no credential tier could answer a
	// free/busy query. Callers must fail closed and treat the member as fully
	// busy for the window.
	ErrNoFreeBusyData = errors.New("free/busy data unavailable for member")

	// ErrCalendarUnavailable signals that every credential tier failed for a
	// calendar write. Bookings proceed without a calendar event.
	ErrCalendarUnavailable = errors.New("calendar unavailable on all credential tiers")

	// ErrCredentialRevoked signals the member's own OAuth grant was rejected
	// as revoked by the provider.
	ErrCredentialRevoked = errors.New("member calendar credential revoked")

	// ErrEventNotFound signals the referenced calendar event no longer exists.
	ErrEventNotFound = errors.New("calendar event not found")
)

// BusyInterval is an occupied interval on an external calendar, in UTC. It is
// always re-derived live and never persisted.
type BusyInterval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether the interval intersects [start, end).
func (b BusyInterval) Overlaps(start, end time.Time) bool {
	return start.Before(b.End) && end.After(b.Start)
}

// EventSpec describes a calendar event to create or update.
type EventSpec struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	Timezone    string
	Attendees   []string
}

// EventResult is the uniform outcome of a calendar write, regardless of which
// credential tier produced it.
type EventResult struct {
	EventID   string
	JoinLink  string
	JoinPhone string
	JoinPIN   string
}

// Provider talks to one external calendar account.
type Provider interface {
	FreeBusy(ctx context.Context, calendarID string, start, end time.Time) ([]BusyInterval, error)
	CreateEvent(ctx context.Context, calendarID string, spec EventSpec) (*EventResult, error)
	UpdateEvent(ctx context.Context, calendarID, eventID string, spec EventSpec) (string, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) (bool, error)
}
