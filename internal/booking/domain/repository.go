package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines persistence for bookings.
type Repository interface {
	Save(ctx context.Context, booking *Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindByManageToken resolves a booking by its self-service capability.
	// Returns nil when no booking holds the token.
	FindByManageToken(ctx context.Context, token ManageToken) (*Booking, error)

	// CountConfirmedForDay counts confirmed bookings of the event type whose
	// start falls within [dayStart, dayEnd).
	CountConfirmedForDay(ctx context.Context, eventTypeID uuid.UUID, dayStart, dayEnd time.Time) (int, error)

	// ExistsConfirmedOverlapping reports whether the member already holds a
	// confirmed booking intersecting [start, end). The calendar free/busy view
	// misses bookings that never synced, so slot claims must consult this
	// inside the claiming transaction. excludeID skips one booking, letting a
	// reschedule move within its own window; pass uuid.Nil otherwise.
	ExistsConfirmedOverlapping(ctx context.Context, memberID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (bool, error)

	// ListUpcomingByMember lists confirmed bookings for a member starting at or
	// after the given instant, ordered by start ascending.
	ListUpcomingByMember(ctx context.Context, memberID uuid.UUID, from time.Time) ([]*Booking, error)

	// FindConfirmedStartingWithin lists confirmed bookings starting inside
	// [from, to) whose reminder has not been sent yet.
	FindConfirmedStartingWithin(ctx context.Context, from, to time.Time) ([]*Booking, error)
}
