package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/slotwise/slotwise/internal/scheduling/domain"
)

// ErrNoEligibleMember signals that no active member can serve the event type.
var ErrNoEligibleMember = errors.New("no eligible member for event type")

// DefaultMemberTimeout bounds each per-member slot computation during the
// combined-availability fan-out.
const DefaultMemberTimeout = 10 * time.Second

// Selector picks the fairest member for an assignment and builds merged
// multi-member availability views.
type Selector struct {
	members       domain.TeamMemberRepository
	eventTypes    domain.EventTypeRepository
	generator     *SlotGenerator
	memberTimeout time.Duration
	logger        *slog.Logger
}

// NewSelector creates a round-robin selector.
func NewSelector(
	members domain.TeamMemberRepository,
	eventTypes domain.EventTypeRepository,
	generator *SlotGenerator,
	logger *slog.Logger,
) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{
		members:       members,
		eventTypes:    eventTypes,
		generator:     generator,
		memberTimeout: DefaultMemberTimeout,
		logger:        logger,
	}
}

// SelectMember returns the active member with the oldest fairness cursor,
// never-booked members first, member id as tiebreak. The fairness cursor is
// not advanced here; assignment happens in the booking transaction.
func (s *Selector) SelectMember(ctx context.Context, eventType *domain.EventType, teamID *uuid.UUID) (*domain.TeamMember, error) {
	candidates, err := s.eligibleMembers(ctx, eventType, teamID)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrNoEligibleMember
	}
	return candidates[0], nil
}

// EligibleMemberIDs returns the candidate pool for the event type in fairness
// order. The booking transaction uses it to claim a member atomically.
func (s *Selector) EligibleMemberIDs(ctx context.Context, eventType *domain.EventType, teamID *uuid.UUID) ([]uuid.UUID, error) {
	candidates, err := s.eligibleMembers(ctx, eventType, teamID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(candidates))
	for _, member := range candidates {
		ids = append(ids, member.ID())
	}
	return ids, nil
}

func (s *Selector) eligibleMembers(ctx context.Context, eventType *domain.EventType, teamID *uuid.UUID) ([]*domain.TeamMember, error) {
	eligible, err := s.eventTypes.FindEligibleMemberIDs(ctx, eventType.ID(), teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve eligible members: %w", err)
	}
	if len(eligible) == 0 {
		return nil, nil
	}
	eligibleSet := make(map[uuid.UUID]struct{}, len(eligible))
	for _, id := range eligible {
		eligibleSet[id] = struct{}{}
	}

	ordered, err := s.members.FindActiveOrderedByFairness(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load members: %w", err)
	}

	candidates := make([]*domain.TeamMember, 0, len(ordered))
	for _, member := range ordered {
		if _, ok := eligibleSet[member.ID()]; ok {
			candidates = append(candidates, member)
		}
	}
	return candidates, nil
}

// CombinedAvailability computes slots for every eligible member concurrently
// and merges them by start instant. The view is informational; assignment
// always goes through SelectMember.
func (s *Selector) CombinedAvailability(
	ctx context.Context,
	eventType *domain.EventType,
	date time.Time,
	timezone string,
	teamID *uuid.UUID,
) ([]domain.TimeSlot, error) {
	candidates, err := s.eligibleMembers(ctx, eventType, teamID)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	type memberSlots struct {
		memberID uuid.UUID
		slots    []domain.TimeSlot
	}

	results := make(chan memberSlots, len(candidates))
	var wg sync.WaitGroup

	for _, member := range candidates {
		wg.Add(1)
		go func(member *domain.TeamMember) {
			defer wg.Done()

			memberCtx, cancel := context.WithTimeout(ctx, s.memberTimeout)
			defer cancel()

			slots, err := s.generator.Generate(memberCtx, member, eventType, date, timezone)
			if err != nil {
				// A member whose slots cannot be computed contributes nothing;
				// the merged view fails closed per member, not as a whole.
				s.logger.Warn("slot generation failed for member",
					"member_id", member.ID(),
					"error", err,
				)
				return
			}
			results <- memberSlots{memberID: member.ID(), slots: slots}
		}(member)
	}

	wg.Wait()
	close(results)

	merged := make(map[time.Time]*domain.TimeSlot)
	for result := range results {
		for _, slot := range result.slots {
			key := slot.Start.UTC()
			entry, ok := merged[key]
			if !ok {
				entry = &domain.TimeSlot{Start: slot.Start, End: slot.End}
				merged[key] = entry
			}
			entry.AvailableMemberIDs = append(entry.AvailableMemberIDs, result.memberID)
		}
	}

	combined := make([]domain.TimeSlot, 0, len(merged))
	for _, slot := range merged {
		sort.Slice(slot.AvailableMemberIDs, func(i, j int) bool {
			return bytes.Compare(slot.AvailableMemberIDs[i][:], slot.AvailableMemberIDs[j][:]) < 0
		})
		combined = append(combined, *slot)
	}
	sort.Slice(combined, func(i, j int) bool {
		return combined[i].Start.Before(combined[j].Start)
	})
	return combined, nil
}
