package domain

import (
	"time"

	"github.com/google/uuid"
)

// TimeSlot is a transient candidate bookable interval. It is computed on
// demand and never persisted. AvailableMemberIDs is populated only in merged
// multi-member views.
type TimeSlot struct {
	Start              time.Time
	End                time.Time
	AvailableMemberIDs []uuid.UUID
}

// Contains reports whether the slot starts at exactly the given instant.
func (s TimeSlot) StartsAt(t time.Time) bool {
	return s.Start.Equal(t)
}
