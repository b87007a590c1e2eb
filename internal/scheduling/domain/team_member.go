package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/slotwise/slotwise/internal/shared/domain"
)

var (
	ErrMemberEmptyName       = errors.New("member name cannot be empty")
	ErrMemberInvalidEmail    = errors.New("member email is invalid")
	ErrMemberInactive        = errors.New("member is inactive")
	ErrMemberCursorBackwards = errors.New("fairness cursor cannot move backwards")
)

// CalendarProvider identifies which external calendar system holds a member's calendar.
type CalendarProvider string

const (
	ProviderGoogle CalendarProvider = "google"
	ProviderCalDAV CalendarProvider = "caldav"
)

// IsValid checks if the provider is supported.
func (p CalendarProvider) IsValid() bool {
	switch p {
	case ProviderGoogle, ProviderCalDAV:
		return true
	default:
		return false
	}
}

// TeamMember is a bookable person with an external calendar.
type TeamMember struct {
	sharedDomain.BaseAggregateRoot
	name             string
	email            string
	calendarProvider CalendarProvider
	calendarID       string
	hasOAuthGrant    bool
	active           bool
	fairnessCursor   *time.Time
}

// NewTeamMember creates a new active team member.
func NewTeamMember(name, email string, provider CalendarProvider, calendarID string) (*TeamMember, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrMemberEmptyName
	}
	email = strings.TrimSpace(email)
	if !strings.Contains(email, "@") {
		return nil, ErrMemberInvalidEmail
	}
	if !provider.IsValid() {
		provider = ProviderGoogle
	}
	if calendarID == "" {
		calendarID = email
	}

	return &TeamMember{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		name:              name,
		email:             email,
		calendarProvider:  provider,
		calendarID:        calendarID,
		active:            true,
	}, nil
}

// Getters
func (m *TeamMember) Name() string                       { return m.name }
func (m *TeamMember) Email() string                      { return m.email }
func (m *TeamMember) CalendarProvider() CalendarProvider { return m.calendarProvider }
func (m *TeamMember) CalendarID() string                 { return m.calendarID }
func (m *TeamMember) HasOAuthGrant() bool                { return m.hasOAuthGrant }
func (m *TeamMember) IsActive() bool                     { return m.active }
func (m *TeamMember) FairnessCursor() *time.Time         { return m.fairnessCursor }

// MarkOAuthGrant records whether the member has a personal OAuth credential.
func (m *TeamMember) MarkOAuthGrant(granted bool) {
	m.hasOAuthGrant = granted
	m.Touch()
}

// Deactivate removes the member from rotation. Members are never hard-deleted
// while bookings reference them.
func (m *TeamMember) Deactivate() {
	if m.active {
		m.active = false
		m.Touch()
	}
}

// Activate returns the member to rotation.
func (m *TeamMember) Activate() {
	if !m.active {
		m.active = true
		m.Touch()
	}
}

// AdvanceFairnessCursor moves the cursor forward after a successful assignment.
// The cursor only ever moves forward.
func (m *TeamMember) AdvanceFairnessCursor(at time.Time) error {
	if !m.active {
		return ErrMemberInactive
	}
	if m.fairnessCursor != nil && at.Before(*m.fairnessCursor) {
		return ErrMemberCursorBackwards
	}
	at = at.UTC()
	m.fairnessCursor = &at
	m.Touch()
	return nil
}

// RehydrateTeamMember recreates a team member from persisted state.
func RehydrateTeamMember(
	id uuid.UUID,
	name string,
	email string,
	provider CalendarProvider,
	calendarID string,
	hasOAuthGrant bool,
	active bool,
	fairnessCursor *time.Time,
	createdAt time.Time,
	updatedAt time.Time,
) *TeamMember {
	return &TeamMember{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(
			sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt)),
		name:             name,
		email:            email,
		calendarProvider: provider,
		calendarID:       calendarID,
		hasOAuthGrant:    hasOAuthGrant,
		active:           active,
		fairnessCursor:   fairnessCursor,
	}
}
