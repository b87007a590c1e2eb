package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/slotwise/slotwise/internal/shared/domain"
)

var (
	ErrRuleInvalidWeekday = errors.New("weekday must be between 0 and 6")
	ErrRuleInvalidWindow  = errors.New("rule end must be after start")
	ErrRuleInvalidClock   = errors.New("clock time must be within one day")
)

// AvailabilityRule describes one member's recurring working window for a
// single weekday. Start and end are local wall-clock offsets from midnight;
// the timezone is supplied at slot-computation time, not stored here.
// A weekday without a rule means zero availability on that day.
type AvailabilityRule struct {
	sharedDomain.BaseEntity
	memberID  uuid.UUID
	weekday   time.Weekday
	start     time.Duration
	end       time.Duration
	available bool
}

// NewAvailabilityRule creates a rule for a member and weekday.
func NewAvailabilityRule(memberID uuid.UUID, weekday time.Weekday, start, end time.Duration, available bool) (*AvailabilityRule, error) {
	if weekday < time.Sunday || weekday > time.Saturday {
		return nil, ErrRuleInvalidWeekday
	}
	if start < 0 || start >= 24*time.Hour || end < 0 || end > 24*time.Hour {
		return nil, ErrRuleInvalidClock
	}
	if end <= start {
		return nil, ErrRuleInvalidWindow
	}

	return &AvailabilityRule{
		BaseEntity: sharedDomain.NewBaseEntity(),
		memberID:   memberID,
		weekday:    weekday,
		start:      start,
		end:        end,
		available:  available,
	}, nil
}

// Getters
func (r *AvailabilityRule) MemberID() uuid.UUID   { return r.memberID }
func (r *AvailabilityRule) Weekday() time.Weekday { return r.weekday }
func (r *AvailabilityRule) Start() time.Duration  { return r.start }
func (r *AvailabilityRule) End() time.Duration    { return r.end }
func (r *AvailabilityRule) IsAvailable() bool     { return r.available }

// Window resolves the rule's wall-clock offsets against a concrete date in the
// given location, returning UTC instants. The offsets pin the wall clock, not
// elapsed time since midnight: a 09:00 rule means 09:00 local even on DST
// transition days, where adding a duration to midnight would drift an hour.
func (r *AvailabilityRule) Window(date time.Time, loc *time.Location) (start, end time.Time) {
	return atWallClock(date, r.start, loc), atWallClock(date, r.end, loc)
}

func atWallClock(date time.Time, offset time.Duration, loc *time.Location) time.Time {
	hours := int(offset / time.Hour)
	minutes := int(offset/time.Minute) % 60
	return time.Date(date.Year(), date.Month(), date.Day(), hours, minutes, 0, 0, loc).UTC()
}

// ParseClock parses a "HH:MM" wall-clock string into an offset from midnight.
func ParseClock(value string) (time.Duration, error) {
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time, use HH:MM: %w", err)
	}
	return time.Duration(parsed.Hour())*time.Hour + time.Duration(parsed.Minute())*time.Minute, nil
}

// FormatClock renders an offset from midnight as "HH:MM".
func FormatClock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}

// RehydrateAvailabilityRule recreates a rule from persisted state.
func RehydrateAvailabilityRule(
	id uuid.UUID,
	memberID uuid.UUID,
	weekday time.Weekday,
	start, end time.Duration,
	available bool,
	createdAt, updatedAt time.Time,
) *AvailabilityRule {
	return &AvailabilityRule{
		BaseEntity: sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt),
		memberID:   memberID,
		weekday:    weekday,
		start:      start,
		end:        end,
		available:  available,
	}
}
