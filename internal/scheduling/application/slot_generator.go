// Package application computes bookable slots and drives the round-robin
// member selection over them.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	calendarApp "github.com/slotwise/slotwise/internal/calendar/application"
	"github.com/slotwise/slotwise/internal/scheduling/domain"
)

// SlotGranularity is the fixed spacing between candidate slot starts. It is a
// design constant, not per-event-type configuration.
const SlotGranularity = 15 * time.Minute

// ErrUnknownTimezone signals the caller supplied an unresolvable IANA zone name.
var ErrUnknownTimezone = errors.New("unknown timezone")

// FreeBusySource answers busy-interval queries for a member's calendar.
// Implementations must return ErrNoFreeBusyData when no credential tier can
// answer; the generator then treats the member as fully busy.
type FreeBusySource interface {
	FreeBusy(ctx context.Context, member *domain.TeamMember, start, end time.Time) ([]calendarApp.BusyInterval, error)
}

// SlotGenerator turns one member's weekly rule, busy intervals, and the event
// type's constraints into the bookable slots for a single day.
type SlotGenerator struct {
	rules    domain.AvailabilityRuleRepository
	freeBusy FreeBusySource
	logger   *slog.Logger
	now      func() time.Time
}

// NewSlotGenerator creates a slot generator.
func NewSlotGenerator(rules domain.AvailabilityRuleRepository, freeBusy FreeBusySource, logger *slog.Logger) *SlotGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlotGenerator{
		rules:    rules,
		freeBusy: freeBusy,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the generator's clock. Used in tests.
func (g *SlotGenerator) WithClock(now func() time.Time) *SlotGenerator {
	g.now = now
	return g
}

// Generate computes the bookable slots for one member on one day. The day is
// interpreted in the given timezone, not the server's local zone. The result
// is a pure function of the rule, the busy intervals, and the clock.
func (g *SlotGenerator) Generate(
	ctx context.Context,
	member *domain.TeamMember,
	eventType *domain.EventType,
	date time.Time,
	timezone string,
) ([]domain.TimeSlot, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTimezone, timezone)
	}

	localDate := date.In(loc)
	rule, err := g.rules.FindByMemberAndWeekday(ctx, member.ID(), localDate.Weekday())
	if err != nil {
		return nil, fmt.Errorf("failed to load availability rule: %w", err)
	}
	// No rule for the weekday means zero availability, not an error.
	if rule == nil || !rule.IsAvailable() {
		return nil, nil
	}

	windowStart, windowEnd := rule.Window(localDate, loc)
	now := g.now()

	effectiveStart := windowStart
	if earliest := now.Add(eventType.MinNotice()); earliest.After(effectiveStart) {
		effectiveStart = earliest
	}
	effectiveStart = roundUpToGranularity(effectiveStart)

	duration := eventType.Duration()
	latestStart := windowEnd.Add(-duration)
	if effectiveStart.After(latestStart) {
		return nil, nil
	}

	// One free/busy query spans the whole buffered window; walking per slot
	// would multiply provider round trips.
	busy, err := g.freeBusy.FreeBusy(ctx, member,
		effectiveStart.Add(-eventType.BeforeBuffer()),
		windowEnd.Add(eventType.AfterBuffer()),
	)
	if err != nil {
		if errors.Is(err, calendarApp.ErrNoFreeBusyData) {
			// Fail closed: an unanswerable calendar yields no slots rather than
			// slots that might already be taken.
			g.logger.Warn("free/busy unavailable, treating member as fully busy",
				"member_id", member.ID(),
				"date", localDate.Format("2006-01-02"),
			)
			return nil, nil
		}
		return nil, fmt.Errorf("free/busy query failed: %w", err)
	}

	var slots []domain.TimeSlot
	for cursor := effectiveStart; !cursor.After(latestStart); cursor = cursor.Add(SlotGranularity) {
		if !cursor.After(now) {
			continue
		}
		bufferedStart := cursor.Add(-eventType.BeforeBuffer())
		bufferedEnd := cursor.Add(duration + eventType.AfterBuffer())

		conflict := false
		for _, interval := range busy {
			if interval.Overlaps(bufferedStart, bufferedEnd) {
				conflict = true
				break
			}
		}
		if conflict {
			continue
		}

		slots = append(slots, domain.TimeSlot{
			Start: cursor,
			End:   cursor.Add(duration),
		})
	}
	return slots, nil
}

// roundUpToGranularity rounds t up to the next slot boundary. A time already
// on a boundary is unchanged.
func roundUpToGranularity(t time.Time) time.Time {
	rounded := t.Truncate(SlotGranularity)
	if rounded.Before(t) {
		rounded = rounded.Add(SlotGranularity)
	}
	return rounded
}
