package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	schedulingDomain "github.com/slotwise/slotwise/internal/scheduling/domain"
)

// Session is a resolved way of talking to a calendar on behalf of a member.
type Session struct {
	Provider   Provider
	CalendarID string

	// ExtraAttendees is populated by the fallback tier that writes to the
	// service identity's own calendar: the member and invitee are added as
	// attendees so the event reaches them even without calendar access.
	ExtraAttendees []string
}

// Tier is one credential-resolution strategy in the ordered fallback chain.
type Tier interface {
	Name() string

	// FreeBusyCapable reports whether the tier can answer busy queries for
	// the member's actual calendar. The own-calendar fallback cannot.
	FreeBusyCapable() bool

	// Open resolves a provider session for the member. An error means the
	// tier cannot serve this member right now.
	Open(ctx context.Context, member *schedulingDomain.TeamMember) (*Session, error)
}

// TieredClient tries an ordered list of credential tiers until one succeeds.
// Tier failures are logged and swallowed; only total failure surfaces.
type TieredClient struct {
	tiers  []Tier
	logger *slog.Logger
}

// NewTieredClient creates a tiered calendar client.
func NewTieredClient(tiers []Tier, logger *slog.Logger) *TieredClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &TieredClient{tiers: tiers, logger: logger}
}

// FreeBusy queries busy intervals on the member's calendar. Only tiers that
// can see the member's actual calendar are consulted. Total failure returns
// ErrNoFreeBusyData; callers must fail closed.
func (c *TieredClient) FreeBusy(ctx context.Context, member *schedulingDomain.TeamMember, start, end time.Time) ([]BusyInterval, error) {
	for _, tier := range c.tiers {
		if !tier.FreeBusyCapable() {
			continue
		}
		session, err := tier.Open(ctx, member)
		if err != nil {
			c.logTierFailure("free_busy", tier, member, err)
			continue
		}
		busy, err := session.Provider.FreeBusy(ctx, session.CalendarID, start, end)
		if err != nil {
			c.logTierFailure("free_busy", tier, member, err)
			continue
		}
		return busy, nil
	}
	return nil, ErrNoFreeBusyData
}

// CreateEvent writes an event through the first tier that succeeds. Total
// failure returns ErrCalendarUnavailable; the booking itself must not fail.
func (c *TieredClient) CreateEvent(ctx context.Context, member *schedulingDomain.TeamMember, spec EventSpec) (*EventResult, error) {
	for _, tier := range c.tiers {
		session, err := tier.Open(ctx, member)
		if err != nil {
			c.logTierFailure("create_event", tier, member, err)
			continue
		}
		tierSpec := spec
		tierSpec.Attendees = append(append([]string{}, spec.Attendees...), session.ExtraAttendees...)
		result, err := session.Provider.CreateEvent(ctx, session.CalendarID, tierSpec)
		if err != nil {
			c.logTierFailure("create_event", tier, member, err)
			continue
		}
		c.logger.Debug("calendar event created",
			"tier", tier.Name(),
			"member_id", member.ID(),
			"event_id", result.EventID,
		)
		return result, nil
	}
	return nil, ErrCalendarUnavailable
}

// UpdateEvent updates an existing event in place through the first tier that
// succeeds.
func (c *TieredClient) UpdateEvent(ctx context.Context, member *schedulingDomain.TeamMember, eventID string, spec EventSpec) (string, error) {
	for _, tier := range c.tiers {
		session, err := tier.Open(ctx, member)
		if err != nil {
			c.logTierFailure("update_event", tier, member, err)
			continue
		}
		tierSpec := spec
		tierSpec.Attendees = append(append([]string{}, spec.Attendees...), session.ExtraAttendees...)
		updatedID, err := session.Provider.UpdateEvent(ctx, session.CalendarID, eventID, tierSpec)
		if err != nil {
			c.logTierFailure("update_event", tier, member, err)
			continue
		}
		return updatedID, nil
	}
	return "", ErrCalendarUnavailable
}

// DeleteEvent removes an event through the first tier that succeeds.
func (c *TieredClient) DeleteEvent(ctx context.Context, member *schedulingDomain.TeamMember, eventID string) (bool, error) {
	for _, tier := range c.tiers {
		session, err := tier.Open(ctx, member)
		if err != nil {
			c.logTierFailure("delete_event", tier, member, err)
			continue
		}
		deleted, err := session.Provider.DeleteEvent(ctx, session.CalendarID, eventID)
		if err != nil {
			c.logTierFailure("delete_event", tier, member, err)
			continue
		}
		return deleted, nil
	}
	return false, ErrCalendarUnavailable
}

func (c *TieredClient) logTierFailure(op string, tier Tier, member *schedulingDomain.TeamMember, err error) {
	if errors.Is(err, ErrCredentialRevoked) {
		// The member's own grant is gone; skip the tier and report the member
		// as needing reconnection. Flag handling lives outside the adapter.
		c.logger.Warn("member calendar credential revoked",
			"op", op,
			"tier", tier.Name(),
			"member_id", member.ID(),
		)
		return
	}
	c.logger.Warn("calendar tier failed",
		"op", op,
		"tier", tier.Name(),
		"member_id", member.ID(),
		"error", err,
	)
}
