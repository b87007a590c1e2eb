package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TeamMemberRepository defines persistence for team members.
type TeamMemberRepository interface {
	Save(ctx context.Context, member *TeamMember) error
	FindByID(ctx context.Context, id uuid.UUID) (*TeamMember, error)

	// FindActiveOrderedByFairness lists active members ordered by fairness
	// cursor ascending (never-booked members first), member id as tiebreak.
	// A non-nil teamID restricts the result to that team's membership.
	FindActiveOrderedByFairness(ctx context.Context, teamID *uuid.UUID) ([]*TeamMember, error)

	// ClaimLeastRecentlyBooked atomically selects the fairest member from the
	// candidate set and advances their fairness cursor to at. Two concurrent
	// claims over the same single-member pool must not both succeed for the
	// same instant; the store serializes them. Returns nil when no candidate
	// can be claimed.
	ClaimLeastRecentlyBooked(ctx context.Context, candidateIDs []uuid.UUID, at time.Time) (*TeamMember, error)
}

// AvailabilityRuleRepository defines persistence for availability rules.
type AvailabilityRuleRepository interface {
	Save(ctx context.Context, rule *AvailabilityRule) error
	FindByMember(ctx context.Context, memberID uuid.UUID) ([]*AvailabilityRule, error)

	// FindByMemberAndWeekday returns at most one applicable rule, nil when the
	// member has no rule for that weekday.
	FindByMemberAndWeekday(ctx context.Context, memberID uuid.UUID, weekday time.Weekday) (*AvailabilityRule, error)
}

// EventTypeRepository defines persistence for event types.
type EventTypeRepository interface {
	Save(ctx context.Context, eventType *EventType) error
	FindByID(ctx context.Context, id uuid.UUID) (*EventType, error)
	FindBySlug(ctx context.Context, slug string) (*EventType, error)

	// FindEligibleMemberIDs returns the ids of active members bookable for the
	// event type, optionally restricted to a team.
	FindEligibleMemberIDs(ctx context.Context, eventTypeID uuid.UUID, teamID *uuid.UUID) ([]uuid.UUID, error)
}

// TeamRepository defines persistence for teams.
type TeamRepository interface {
	Save(ctx context.Context, team *Team) error
	FindByID(ctx context.Context, id uuid.UUID) (*Team, error)
	FindBySlug(ctx context.Context, slug string) (*Team, error)
}
