package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/slotwise/slotwise/internal/shared/domain"
)

var (
	ErrEventTypeEmptySlug       = errors.New("event type slug cannot be empty")
	ErrEventTypeInvalidDuration = errors.New("event type duration must be positive")
	ErrEventTypeInvalidBuffer   = errors.New("buffers cannot be negative")
	ErrEventTypeInvalidNotice   = errors.New("minimum notice cannot be negative")
	ErrEventTypeInvalidAdvance  = errors.New("advance window must be positive")
	ErrEventTypeInvalidCap      = errors.New("daily booking cap must be positive")
)

// EventType describes a bookable meeting kind. It is a read-only input to slot
// computation and never mutated by the engine.
type EventType struct {
	sharedDomain.BaseAggregateRoot
	slug             string
	name             string
	duration         time.Duration
	beforeBuffer     time.Duration
	afterBuffer      time.Duration
	minNotice        time.Duration
	maxDailyBookings *int
	maxAdvanceDays   int
}

// NewEventType creates an event type.
func NewEventType(
	slug, name string,
	duration, beforeBuffer, afterBuffer, minNotice time.Duration,
	maxDailyBookings *int,
	maxAdvanceDays int,
) (*EventType, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, ErrEventTypeEmptySlug
	}
	if duration <= 0 {
		return nil, ErrEventTypeInvalidDuration
	}
	if beforeBuffer < 0 || afterBuffer < 0 {
		return nil, ErrEventTypeInvalidBuffer
	}
	if minNotice < 0 {
		return nil, ErrEventTypeInvalidNotice
	}
	if maxAdvanceDays <= 0 {
		return nil, ErrEventTypeInvalidAdvance
	}
	if maxDailyBookings != nil && *maxDailyBookings <= 0 {
		return nil, ErrEventTypeInvalidCap
	}
	if name == "" {
		name = slug
	}

	return &EventType{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		slug:              slug,
		name:              name,
		duration:          duration,
		beforeBuffer:      beforeBuffer,
		afterBuffer:       afterBuffer,
		minNotice:         minNotice,
		maxDailyBookings:  maxDailyBookings,
		maxAdvanceDays:    maxAdvanceDays,
	}, nil
}

// Getters
func (e *EventType) Slug() string                { return e.slug }
func (e *EventType) Name() string                { return e.name }
func (e *EventType) Duration() time.Duration     { return e.duration }
func (e *EventType) BeforeBuffer() time.Duration { return e.beforeBuffer }
func (e *EventType) AfterBuffer() time.Duration  { return e.afterBuffer }
func (e *EventType) MinNotice() time.Duration    { return e.minNotice }
func (e *EventType) MaxDailyBookings() *int      { return e.maxDailyBookings }
func (e *EventType) MaxAdvanceDays() int         { return e.maxAdvanceDays }

// LatestBookableStart returns the last instant a booking of this type may
// start, measured from now.
func (e *EventType) LatestBookableStart(now time.Time) time.Time {
	return now.AddDate(0, 0, e.maxAdvanceDays)
}

// RehydrateEventType recreates an event type from persisted state.
func RehydrateEventType(
	id uuid.UUID,
	slug, name string,
	duration, beforeBuffer, afterBuffer, minNotice time.Duration,
	maxDailyBookings *int,
	maxAdvanceDays int,
	createdAt, updatedAt time.Time,
) *EventType {
	return &EventType{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(
			sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt)),
		slug:             slug,
		name:             name,
		duration:         duration,
		beforeBuffer:     beforeBuffer,
		afterBuffer:      afterBuffer,
		minNotice:        minNotice,
		maxDailyBookings: maxDailyBookings,
		maxAdvanceDays:   maxAdvanceDays,
	}
}
